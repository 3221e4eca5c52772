package entity

import "errors"

// Sentinel errors for the referral graph and distribution engine.
// Handlers classify them through KindOf and never leak raw store errors.
var (
	ErrInvalidSponsorCode      = errors.New("sponsor code does not resolve to an active member")
	ErrSelfReferral            = errors.New("member cannot sponsor itself")
	ErrDuplicateMember         = errors.New("member already enrolled")
	ErrMalformedEvent          = errors.New("malformed qualifying event")
	ErrUnknownMember           = errors.New("member not found")
	ErrUnknownRecord           = errors.New("commission record not found")
	ErrUnknownLink             = errors.New("referral link not found")
	ErrCodeTaken               = errors.New("referral code already taken")
	ErrCodeGenerationExhausted = errors.New("referral code generation retries exhausted")
	ErrAlreadyProcessed        = errors.New("event already processed")
	ErrAlreadySettled          = errors.New("commission record already settled")
	ErrCycleDetected           = errors.New("sponsor chain revisits the candidate")
	ErrBalanceInvariant        = errors.New("balance equation violated")
)

// ErrorKind is the user-visible failure taxonomy.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindConflict
	KindTransient
	KindInvariant
)

// KindOf classifies an error into the taxonomy. Unclassified errors are
// treated as transient: safe to retry with the same idempotency key.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrInvalidSponsorCode),
		errors.Is(err, ErrSelfReferral),
		errors.Is(err, ErrMalformedEvent),
		errors.Is(err, ErrUnknownMember),
		errors.Is(err, ErrUnknownRecord),
		errors.Is(err, ErrUnknownLink):
		return KindValidation
	case errors.Is(err, ErrDuplicateMember),
		errors.Is(err, ErrCodeTaken),
		errors.Is(err, ErrAlreadyProcessed),
		errors.Is(err, ErrAlreadySettled):
		return KindConflict
	case errors.Is(err, ErrCycleDetected),
		errors.Is(err, ErrCodeGenerationExhausted),
		errors.Is(err, ErrBalanceInvariant):
		return KindInvariant
	default:
		return KindTransient
	}
}
