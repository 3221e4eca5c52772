package entity

import (
	"net/http"
	"strings"
	"time"

	"github.com/conquestsam/MLM/lib/validate"
	"github.com/biter777/countries"
	"github.com/shopspring/decimal"
)

// EventKind is a closed set so the distribution switch stays exhaustive.
type EventKind string

const (
	EventPayment EventKind = "payment" // settled purchase or deposit
	EventSignup  EventKind = "signup"  // enrollment bonus trigger
)

// QualifyingEvent is an external occurrence that triggers commission
// distribution up the acting member's sponsor chain. EventId is the
// idempotency key; delivery upstream is at-least-once.
type QualifyingEvent struct {
	EventId        string          `json:"event_id" validate:"required,min=8,max=128"`
	Kind           EventKind       `json:"kind" validate:"required,oneof=payment signup"`
	ActingMemberId string          `json:"acting_member_id" validate:"required,uuid4"`
	BaseAmount     decimal.Decimal `json:"base_amount" validate:"required"`
	Currency       string          `json:"currency" validate:"required,len=3"`
	OccurredAt     time.Time       `json:"occurred_at,omitempty"`
}

func (e *QualifyingEvent) Bind(_ *http.Request) error {
	if err := validate.Struct(e); err != nil {
		return err
	}
	return e.Validate()
}

// Validate applies the checks the validator tags cannot express.
func (e *QualifyingEvent) Validate() error {
	if e.BaseAmount.IsNegative() {
		return ErrMalformedEvent
	}
	e.Currency = strings.ToUpper(e.Currency)
	if countries.CurrencyCodeByName(e.Currency) == countries.CurrencyUnknown {
		return ErrMalformedEvent
	}
	return nil
}

// zero-decimal and three-decimal ISO 4217 exceptions; everything else
// uses two minor units.
var currencyExponent = map[string]int32{
	"JPY": 0, "KRW": 0, "VND": 0, "CLP": 0, "ISK": 0,
	"BHD": 3, "KWD": 3, "OMR": 3, "JOD": 3, "TND": 3,
}

// CurrencyPrecision returns the number of minor units for a currency code.
func CurrencyPrecision(currency string) int32 {
	if exp, ok := currencyExponent[strings.ToUpper(currency)]; ok {
		return exp
	}
	return 2
}
