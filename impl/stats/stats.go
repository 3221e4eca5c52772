// Package stats serves read-side aggregates over the commission ledger.
package stats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/conquestsam/MLM/entity"
	"github.com/conquestsam/MLM/lib/clock"
	"github.com/conquestsam/MLM/lib/sl"
	"github.com/shopspring/decimal"
)

// Store is the ledger read model. Sums cover completed records unless
// stated otherwise; ranges are [from, to).
type Store interface {
	TotalsByStatus(ctx context.Context, memberId string) (completed, pending decimal.Decimal, err error)
	SumCompletedBetween(ctx context.Context, memberId string, from, to time.Time) (decimal.Decimal, error)
	DailyCompletedSums(ctx context.Context, memberId string, from, to time.Time) (map[string]decimal.Decimal, error)
	MonthlyCompletedSums(ctx context.Context, memberId string) ([]entity.SeriesPoint, error)
	GenerationBreakdown(ctx context.Context, memberId string) (map[int]entity.GenerationStat, error)
	RecordsByRecipient(ctx context.Context, memberId string, limit, offset int) ([]entity.CommissionRecord, error)
	// RollupMonth reads the incrementally maintained monthly rollup.
	// It must always equal SumCompletedBetween over the same month.
	RollupMonth(ctx context.Context, memberId, monthKey string) (decimal.Decimal, error)
}

// Members resolves member existence; satisfied by the graph manager.
type Members interface {
	MemberById(ctx context.Context, memberId string) (*entity.Member, error)
}

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
	maxWindowDays       = 366
)

type Aggregator struct {
	store   Store
	members Members
	log     *slog.Logger
}

func New(store Store, members Members, log *slog.Logger) *Aggregator {
	if store == nil {
		panic("stats store is nil")
	}
	return &Aggregator{
		store:   store,
		members: members,
		log:     log.With(sl.Module("stats")),
	}
}

// StatsFor computes the member's aggregate figures as of the given
// instant (zero value = now). ThisMonth covers the calendar month
// containing asOf and is served from the incremental rollup, not a
// ledger scan; AverageDaily divides it by asOf's day of month.
func (a *Aggregator) StatsFor(ctx context.Context, memberId string, asOf time.Time) (*entity.Stats, error) {
	if _, err := a.members.MemberById(ctx, memberId); err != nil {
		return nil, err
	}
	if asOf.IsZero() {
		asOf = time.Now()
	}
	asOf = asOf.UTC()

	completed, pending, err := a.store.TotalsByStatus(ctx, memberId)
	if err != nil {
		return nil, fmt.Errorf("ledger totals: %w", err)
	}

	thisMonth, err := a.store.RollupMonth(ctx, memberId, clock.MonthKey(asOf))
	if err != nil {
		return nil, fmt.Errorf("month rollup: %w", err)
	}

	breakdown, err := a.store.GenerationBreakdown(ctx, memberId)
	if err != nil {
		return nil, fmt.Errorf("generation breakdown: %w", err)
	}

	dayOfMonth := decimal.NewFromInt(int64(asOf.Day()))
	return &entity.Stats{
		TotalEarned:         completed,
		PendingTotal:        pending,
		ThisMonth:           thisMonth,
		AverageDaily:        thisMonth.DivRound(dayOfMonth, 4),
		GenerationBreakdown: breakdown,
	}, nil
}

// DailySeries returns one point per day for the window ending today,
// oldest first. Days without completed commissions carry a zero amount.
func (a *Aggregator) DailySeries(ctx context.Context, memberId string, windowDays int) ([]entity.SeriesPoint, error) {
	if _, err := a.members.MemberById(ctx, memberId); err != nil {
		return nil, err
	}
	if windowDays < 1 {
		windowDays = 1
	}
	if windowDays > maxWindowDays {
		windowDays = maxWindowDays
	}

	end := clock.DayStart(time.Now()).AddDate(0, 0, 1)
	start := end.AddDate(0, 0, -windowDays)
	sums, err := a.store.DailyCompletedSums(ctx, memberId, start, end)
	if err != nil {
		return nil, fmt.Errorf("daily sums: %w", err)
	}

	series := make([]entity.SeriesPoint, 0, windowDays)
	for day := start; day.Before(end); day = day.AddDate(0, 0, 1) {
		key := clock.DayKey(day)
		amount, ok := sums[key]
		if !ok {
			amount = decimal.Zero
		}
		series = append(series, entity.SeriesPoint{Bucket: key, Amount: amount})
	}
	return series, nil
}

// MonthlySeries returns completed sums per calendar month, oldest first.
func (a *Aggregator) MonthlySeries(ctx context.Context, memberId string) ([]entity.SeriesPoint, error) {
	if _, err := a.members.MemberById(ctx, memberId); err != nil {
		return nil, err
	}
	return a.store.MonthlyCompletedSums(ctx, memberId)
}

// Commissions pages through the member's ledger history, newest first.
func (a *Aggregator) Commissions(ctx context.Context, memberId string, limit, offset int) ([]entity.CommissionRecord, error) {
	if _, err := a.members.MemberById(ctx, memberId); err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}
	return a.store.RecordsByRecipient(ctx, memberId, limit, offset)
}

// VerifyRollup cross-checks the incremental monthly rollup against a
// full scan of the same month. A mismatch is an invariant violation.
func (a *Aggregator) VerifyRollup(ctx context.Context, memberId string, month time.Time) error {
	if _, err := a.members.MemberById(ctx, memberId); err != nil {
		return err
	}
	monthStart := clock.MonthStart(month)
	monthEnd := monthStart.AddDate(0, 1, 0)

	scanned, err := a.store.SumCompletedBetween(ctx, memberId, monthStart, monthEnd)
	if err != nil {
		return fmt.Errorf("scan month: %w", err)
	}
	rolled, err := a.store.RollupMonth(ctx, memberId, clock.MonthKey(monthStart))
	if err != nil {
		return fmt.Errorf("read rollup: %w", err)
	}
	if !scanned.Equal(rolled) {
		a.log.With(
			sl.Member(memberId),
			slog.String("month", clock.MonthKey(monthStart)),
			slog.String("scanned", scanned.String()),
			slog.String("rollup", rolled.String()),
		).Error("monthly rollup diverged from ledger scan")
		return entity.ErrBalanceInvariant
	}
	return nil
}
