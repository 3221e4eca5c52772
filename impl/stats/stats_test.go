package stats

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/conquestsam/MLM/entity"
	"github.com/conquestsam/MLM/lib/clock"
	"github.com/shopspring/decimal"
)

type fakeStore struct {
	completed decimal.Decimal
	pending   decimal.Decimal
	monthSum  decimal.Decimal
	rollup    decimal.Decimal
	rollupKey string
	breakdown map[int]entity.GenerationStat

	dailyFn func(from, to time.Time) map[string]decimal.Decimal

	historyLimit  int
	historyOffset int
}

func (f *fakeStore) TotalsByStatus(_ context.Context, _ string) (decimal.Decimal, decimal.Decimal, error) {
	return f.completed, f.pending, nil
}

func (f *fakeStore) SumCompletedBetween(_ context.Context, _ string, _, _ time.Time) (decimal.Decimal, error) {
	return f.monthSum, nil
}

func (f *fakeStore) DailyCompletedSums(_ context.Context, _ string, from, to time.Time) (map[string]decimal.Decimal, error) {
	if f.dailyFn == nil {
		return nil, nil
	}
	return f.dailyFn(from, to), nil
}

func (f *fakeStore) MonthlyCompletedSums(_ context.Context, _ string) ([]entity.SeriesPoint, error) {
	return []entity.SeriesPoint{
		{Bucket: "2026-07", Amount: decimal.RequireFromString("12.5")},
		{Bucket: "2026-08", Amount: decimal.RequireFromString("40")},
	}, nil
}

func (f *fakeStore) GenerationBreakdown(_ context.Context, _ string) (map[int]entity.GenerationStat, error) {
	return f.breakdown, nil
}

func (f *fakeStore) RecordsByRecipient(_ context.Context, _ string, limit, offset int) ([]entity.CommissionRecord, error) {
	f.historyLimit = limit
	f.historyOffset = offset
	return nil, nil
}

func (f *fakeStore) RollupMonth(_ context.Context, _, monthKey string) (decimal.Decimal, error) {
	f.rollupKey = monthKey
	return f.rollup, nil
}

type fakeMembers struct {
	known map[string]bool
}

func (f *fakeMembers) MemberById(_ context.Context, id string) (*entity.Member, error) {
	if !f.known[id] {
		return nil, entity.ErrUnknownMember
	}
	return &entity.Member{Id: id}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newAggregator(store *fakeStore) *Aggregator {
	return New(store, &fakeMembers{known: map[string]bool{"m1": true}}, testLogger())
}

func TestStatsFor(t *testing.T) {
	store := &fakeStore{
		completed: decimal.RequireFromString("250"),
		pending:   decimal.RequireFromString("40"),
		rollup:    decimal.RequireFromString("100"),
		// a full scan would disagree; ThisMonth must come from the rollup
		monthSum: decimal.RequireFromString("999"),
		breakdown: map[int]entity.GenerationStat{
			1: {Count: 3, Total: decimal.RequireFromString("200")},
		},
	}
	a := newAggregator(store)

	asOf := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	s, err := a.StatsFor(context.Background(), "m1", asOf)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !s.TotalEarned.Equal(store.completed) || !s.PendingTotal.Equal(store.pending) {
		t.Fatalf("totals %s/%s, want 250/40", s.TotalEarned, s.PendingTotal)
	}
	if !s.ThisMonth.Equal(store.rollup) {
		t.Fatalf("this month = %s, want 100 from the rollup", s.ThisMonth)
	}
	if store.rollupKey != "2026-03" {
		t.Fatalf("rollup month key = %q, want 2026-03", store.rollupKey)
	}
	// 100 over 10 elapsed days
	if !s.AverageDaily.Equal(decimal.RequireFromString("10")) {
		t.Fatalf("average daily = %s, want 10", s.AverageDaily)
	}
	if s.GenerationBreakdown[1].Count != 3 {
		t.Fatalf("breakdown %+v, want distance 1 count 3", s.GenerationBreakdown)
	}
}

func TestStatsForUnknownMember(t *testing.T) {
	a := newAggregator(&fakeStore{})
	if _, err := a.StatsFor(context.Background(), "ghost", time.Time{}); !errors.Is(err, entity.ErrUnknownMember) {
		t.Fatalf("got %v, want ErrUnknownMember", err)
	}
}

func TestDailySeriesZeroFill(t *testing.T) {
	store := &fakeStore{}
	store.dailyFn = func(from, to time.Time) map[string]decimal.Decimal {
		// earnings on the first and third day of the window only
		return map[string]decimal.Decimal{
			clock.DayKey(from):                  decimal.RequireFromString("5"),
			clock.DayKey(from.AddDate(0, 0, 2)): decimal.RequireFromString("7.5"),
		}
	}
	a := newAggregator(store)

	series, err := a.DailySeries(context.Background(), "m1", 7)
	if err != nil {
		t.Fatalf("daily series: %v", err)
	}
	if len(series) != 7 {
		t.Fatalf("points = %d, want 7", len(series))
	}
	if !series[0].Amount.Equal(decimal.RequireFromString("5")) {
		t.Fatalf("first point = %s, want 5", series[0].Amount)
	}
	if !series[2].Amount.Equal(decimal.RequireFromString("7.5")) {
		t.Fatalf("third point = %s, want 7.5", series[2].Amount)
	}
	for i, p := range series {
		if i == 0 || i == 2 {
			continue
		}
		if !p.Amount.IsZero() {
			t.Fatalf("point %d (%s) = %s, want zero fill", i, p.Bucket, p.Amount)
		}
	}
	// oldest first, consecutive days
	for i := 1; i < len(series); i++ {
		if series[i].Bucket <= series[i-1].Bucket {
			t.Fatalf("buckets out of order: %s after %s", series[i].Bucket, series[i-1].Bucket)
		}
	}
}

func TestDailySeriesWindowClamps(t *testing.T) {
	store := &fakeStore{}
	a := newAggregator(store)
	ctx := context.Background()

	series, err := a.DailySeries(ctx, "m1", 0)
	if err != nil {
		t.Fatalf("zero window: %v", err)
	}
	if len(series) != 1 {
		t.Fatalf("zero window points = %d, want 1", len(series))
	}

	series, err = a.DailySeries(ctx, "m1", 100000)
	if err != nil {
		t.Fatalf("oversized window: %v", err)
	}
	if len(series) != maxWindowDays {
		t.Fatalf("oversized window points = %d, want %d", len(series), maxWindowDays)
	}
}

func TestMonthlySeries(t *testing.T) {
	a := newAggregator(&fakeStore{})
	series, err := a.MonthlySeries(context.Background(), "m1")
	if err != nil {
		t.Fatalf("monthly series: %v", err)
	}
	if len(series) != 2 || series[0].Bucket != "2026-07" {
		t.Fatalf("series %+v, want two months oldest first", series)
	}
}

func TestCommissionsPaging(t *testing.T) {
	store := &fakeStore{}
	a := newAggregator(store)
	ctx := context.Background()

	tests := []struct {
		limit, offset         int
		wantLimit, wantOffset int
	}{
		{0, 0, defaultHistoryLimit, 0},
		{25, 10, 25, 10},
		{9999, -3, maxHistoryLimit, 0},
	}
	for _, tc := range tests {
		if _, err := a.Commissions(ctx, "m1", tc.limit, tc.offset); err != nil {
			t.Fatalf("commissions(%d,%d): %v", tc.limit, tc.offset, err)
		}
		if store.historyLimit != tc.wantLimit || store.historyOffset != tc.wantOffset {
			t.Fatalf("store called with limit=%d offset=%d, want %d/%d",
				store.historyLimit, store.historyOffset, tc.wantLimit, tc.wantOffset)
		}
	}
}

// recordStore derives every read from one shared record slice, so the
// series and totals answers cannot drift apart.
type recordStore struct {
	fakeStore
	records []entity.CommissionRecord
}

func (r *recordStore) SumCompletedBetween(_ context.Context, _ string, from, to time.Time) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, rec := range r.records {
		if rec.Status == entity.CommissionCompleted &&
			!rec.CreatedAt.Before(from) && rec.CreatedAt.Before(to) {
			total = total.Add(rec.Amount)
		}
	}
	return total, nil
}

func (r *recordStore) DailyCompletedSums(_ context.Context, _ string, from, to time.Time) (map[string]decimal.Decimal, error) {
	sums := make(map[string]decimal.Decimal)
	for _, rec := range r.records {
		if rec.Status != entity.CommissionCompleted ||
			rec.CreatedAt.Before(from) || !rec.CreatedAt.Before(to) {
			continue
		}
		key := clock.DayKey(rec.CreatedAt)
		sums[key] = sums[key].Add(rec.Amount)
	}
	return sums, nil
}

func TestDailySeriesMatchesWindowTotal(t *testing.T) {
	now := time.Now().UTC()
	store := &recordStore{
		records: []entity.CommissionRecord{
			{Status: entity.CommissionCompleted, Amount: decimal.RequireFromString("10"), CreatedAt: now},
			{Status: entity.CommissionCompleted, Amount: decimal.RequireFromString("2.25"), CreatedAt: now.AddDate(0, 0, -1)},
			{Status: entity.CommissionCompleted, Amount: decimal.RequireFromString("7.75"), CreatedAt: now.AddDate(0, 0, -3)},
			{Status: entity.CommissionPending, Amount: decimal.RequireFromString("99"), CreatedAt: now},
		},
	}
	a := New(store, &fakeMembers{known: map[string]bool{"m1": true}}, testLogger())

	const window = 7
	series, err := a.DailySeries(context.Background(), "m1", window)
	if err != nil {
		t.Fatalf("daily series: %v", err)
	}

	seriesTotal := decimal.Zero
	for _, p := range series {
		seriesTotal = seriesTotal.Add(p.Amount)
	}

	end := clock.DayStart(now).AddDate(0, 0, 1)
	scanned, err := store.SumCompletedBetween(context.Background(), "m1", end.AddDate(0, 0, -window), end)
	if err != nil {
		t.Fatalf("scan window: %v", err)
	}
	if !seriesTotal.Equal(scanned) {
		t.Fatalf("series total %s != window scan %s", seriesTotal, scanned)
	}
	if !seriesTotal.Equal(decimal.RequireFromString("20")) {
		t.Fatalf("series total = %s, want 20 (pending excluded)", seriesTotal)
	}
}

func TestVerifyRollup(t *testing.T) {
	store := &fakeStore{
		monthSum: decimal.RequireFromString("120.50"),
		rollup:   decimal.RequireFromString("120.5"),
	}
	a := newAggregator(store)
	month := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	if err := a.VerifyRollup(context.Background(), "m1", month); err != nil {
		t.Fatalf("matching rollup: %v", err)
	}

	store.rollup = decimal.RequireFromString("119")
	if err := a.VerifyRollup(context.Background(), "m1", month); !errors.Is(err, entity.ErrBalanceInvariant) {
		t.Fatalf("diverged rollup: got %v, want ErrBalanceInvariant", err)
	}

	if err := a.VerifyRollup(context.Background(), "ghost", month); !errors.Is(err, entity.ErrUnknownMember) {
		t.Fatalf("unknown member: got %v, want ErrUnknownMember", err)
	}
}
