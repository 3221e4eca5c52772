package entity

import (
	"net/http"
	"time"

	"github.com/conquestsam/MLM/lib/validate"
)

// ReferralLink is a shareable campaign link owned by a member. Link codes
// live in their own uniqueness namespace, separate from member referral
// codes, so a campaign code can never shadow a sponsor code.
type ReferralLink struct {
	Id            string    `json:"id"`
	OwnerId       string    `json:"owner_id"`
	CampaignLabel string    `json:"campaign_label"`
	LinkCode      string    `json:"link_code"`
	ClickCount    int64     `json:"click_count"`
	CreatedAt     time.Time `json:"created_at"`
}

type CreateLinkRequest struct {
	OwnerId       string `json:"owner_id" validate:"required,uuid4"`
	CampaignLabel string `json:"campaign_label" validate:"omitempty,max=100"`
}

func (c *CreateLinkRequest) Bind(_ *http.Request) error {
	return validate.Struct(c)
}
