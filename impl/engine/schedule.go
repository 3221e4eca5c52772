package engine

import "github.com/shopspring/decimal"

// Schedule is the per-generation commission rate table, in percent.
// Index 0 pays distance 1. Distances beyond the table earn nothing.
type Schedule struct {
	rates []decimal.Decimal
}

// defaultRates is the observed production schedule.
var defaultRates = []float64{10, 5, 2, 1, 0.5}

func NewSchedule(percents []float64) Schedule {
	if len(percents) == 0 {
		percents = defaultRates
	}
	rates := make([]decimal.Decimal, len(percents))
	for i, p := range percents {
		rates[i] = decimal.NewFromFloat(p)
	}
	return Schedule{rates: rates}
}

func DefaultSchedule() Schedule {
	return NewSchedule(nil)
}

// Rate returns the percent rate for a generation distance, zero when the
// distance is outside the table.
func (s Schedule) Rate(distance int) decimal.Decimal {
	if distance < 1 || distance > len(s.rates) {
		return decimal.Zero
	}
	return s.rates[distance-1]
}

func (s Schedule) Depth() int {
	return len(s.rates)
}
