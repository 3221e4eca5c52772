package entity

import "github.com/shopspring/decimal"

// GenerationStat is the per-distance slice of a member's earnings.
type GenerationStat struct {
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

// Stats is the read-side aggregate for one member. Earned figures count
// completed records only; PendingTotal counts pending ones. ThisMonth is
// scoped to the calendar month containing the as-of instant, and
// AverageDaily divides it by the as-of day of month.
type Stats struct {
	TotalEarned         decimal.Decimal        `json:"total_earned"`
	PendingTotal        decimal.Decimal        `json:"pending_total"`
	ThisMonth           decimal.Decimal        `json:"this_month"`
	AverageDaily        decimal.Decimal        `json:"average_daily"`
	GenerationBreakdown map[int]GenerationStat `json:"generation_breakdown"`
}

// SeriesPoint is one bucket of a daily or monthly series. Bucket is
// "2006-01-02" for daily and "2006-01" for monthly series; windows are
// dense, missing buckets carry a zero amount.
type SeriesPoint struct {
	Bucket string          `json:"bucket"`
	Amount decimal.Decimal `json:"amount"`
}
