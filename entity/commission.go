package entity

import (
	"net/http"
	"time"

	"github.com/conquestsam/MLM/lib/validate"
	"github.com/shopspring/decimal"
)

type CommissionType string

const (
	CommissionDirect     CommissionType = "direct"      // distance 1
	CommissionLevelBonus CommissionType = "level_bonus" // distance 2..MaxDepth
	CommissionRankBonus  CommissionType = "rank_bonus"  // granted by the settlement collaborator
)

// CommissionStatus moves strictly forward:
// pending -> processing -> completed | failed.
//
// The engine writes pending and the terminal states. Processing is
// reserved for the settlement collaborator, which marks records it has
// picked up for payout; such records settle the same way pending ones do.
type CommissionStatus string

const (
	CommissionPending    CommissionStatus = "pending"
	CommissionProcessing CommissionStatus = "processing"
	CommissionCompleted  CommissionStatus = "completed"
	CommissionFailed     CommissionStatus = "failed"
)

// CanSettle reports whether a record in this status may still be
// finalized to completed or failed.
func (s CommissionStatus) CanSettle() bool {
	return s == CommissionPending || s == CommissionProcessing
}

// CommissionRecord is one ledger entry crediting one ancestor for one
// qualifying event. The triple (recipient, event, distance) is unique;
// redelivered events therefore cannot double-credit anyone.
type CommissionRecord struct {
	Id                 string           `json:"id"`
	RecipientId        string           `json:"recipient_id"`
	SourceMemberId     string           `json:"source_member_id"`
	EventId            string           `json:"event_id"`
	Type               CommissionType   `json:"commission_type"`
	GenerationDistance int              `json:"generation_distance"`
	Amount             decimal.Decimal  `json:"amount"`
	RateApplied        decimal.Decimal  `json:"rate_applied"`
	Currency           string           `json:"currency"`
	Status             CommissionStatus `json:"status"`
	CreatedAt          time.Time        `json:"created_at"`
	SettledAt          *time.Time       `json:"settled_at,omitempty"`
}

// SettleOutcome is the settlement collaborator's verdict on a pending record.
type SettleOutcome string

const (
	OutcomeCompleted SettleOutcome = "completed"
	OutcomeFailed    SettleOutcome = "failed"
)

type SettleRequest struct {
	Outcome SettleOutcome `json:"outcome" validate:"required,oneof=completed failed"`
}

func (s *SettleRequest) Bind(_ *http.Request) error {
	return validate.Struct(s)
}
