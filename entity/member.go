// Package entity defines the domain types shared across the application.
package entity

import (
	"net/http"
	"time"

	"github.com/conquestsam/MLM/lib/validate"
	"github.com/shopspring/decimal"
)

// MemberStatus controls what a member may do, not what they earn.
// Suspended members still accrue commissions; suspension only blocks
// withdrawals handled by the settlement collaborator.
type MemberStatus string

const (
	StatusActive    MemberStatus = "active"
	StatusSuspended MemberStatus = "suspended"
)

// Member is a node in the sponsorship forest. SponsorId is set exactly
// once at enrollment and never changes afterwards; re-parenting would
// allow retroactive commission reassignment.
type Member struct {
	Id                string          `json:"id" bson:"id"`
	ReferralCode      string          `json:"referral_code" bson:"referral_code"`
	SponsorId         string          `json:"sponsor_id,omitempty" bson:"sponsor_id"`
	Generation        int             `json:"generation" bson:"generation"`
	Username          string          `json:"username,omitempty" bson:"username"`
	Email             string          `json:"email,omitempty" bson:"email"`
	WalletAddress     string          `json:"wallet_address,omitempty" bson:"wallet_address"`
	RankLevel         int             `json:"rank_level" bson:"rank_level"`
	TotalReferrals    int             `json:"total_referrals" bson:"total_referrals"`
	Available         decimal.Decimal `json:"available" bson:"available"`
	Pending           decimal.Decimal `json:"pending" bson:"pending"`
	LifetimeEarned    decimal.Decimal `json:"lifetime_earned" bson:"lifetime_earned"`
	LifetimeWithdrawn decimal.Decimal `json:"lifetime_withdrawn" bson:"lifetime_withdrawn"`
	Status            MemberStatus    `json:"status" bson:"status"`
	CreatedAt         time.Time       `json:"created_at" bson:"created_at"`
}

func (m *Member) IsActive() bool {
	return m.Status == StatusActive
}

// BalanceOK reports whether the ledger equation holds:
// available + pending + lifetime_withdrawn == lifetime_earned.
func (m *Member) BalanceOK() bool {
	sum := m.Available.Add(m.Pending).Add(m.LifetimeWithdrawn)
	return sum.Equal(m.LifetimeEarned)
}

// AncestorRef pairs an ancestor with its hop distance from a member.
type AncestorRef struct {
	Member   Member `json:"member"`
	Distance int    `json:"distance"`
}

// EnrollRequest is the enrollment payload. CandidateId is optional;
// a fresh UUID is assigned when empty. SponsorCode is optional: members
// enrolled without one become roots of their own tree.
type EnrollRequest struct {
	CandidateId   string `json:"candidate_id" validate:"omitempty,uuid4"`
	SponsorCode   string `json:"sponsor_code" validate:"omitempty,min=6,max=16"`
	Username      string `json:"username" validate:"omitempty,min=2,max=64"`
	Email         string `json:"email" validate:"omitempty,email"`
	WalletAddress string `json:"wallet_address" validate:"omitempty,min=8,max=128"`
}

func (e *EnrollRequest) Bind(_ *http.Request) error {
	return validate.Struct(e)
}
