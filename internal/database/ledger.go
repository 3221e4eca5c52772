package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/conquestsam/MLM/entity"
	"github.com/conquestsam/MLM/lib/clock"
	"github.com/shopspring/decimal"
)

const recordColumns = `id, recipient_id, source_member_id, event_id, commission_type,
	generation_distance, amount, rate_applied, currency, status, created_at, settled_at`

func scanRecord(row interface{ Scan(...interface{}) error }) (*entity.CommissionRecord, error) {
	var r entity.CommissionRecord
	var settledAt sql.NullTime
	err := row.Scan(
		&r.Id,
		&r.RecipientId,
		&r.SourceMemberId,
		&r.EventId,
		&r.Type,
		&r.GenerationDistance,
		&r.Amount,
		&r.RateApplied,
		&r.Currency,
		&r.Status,
		&r.CreatedAt,
		&settledAt,
	)
	if err != nil {
		return nil, err
	}
	if settledAt.Valid {
		t := settledAt.Time
		r.SettledAt = &t
	}
	return &r, nil
}

func (s *MySql) RecordsByEvent(ctx context.Context, eventId string) ([]entity.CommissionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM commission_records WHERE event_id = ? ORDER BY generation_distance ASC`,
		eventId)
	if err != nil {
		return nil, fmt.Errorf("select event records: %w", err)
	}
	defer rows.Close()

	var records []entity.CommissionRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, *r)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// CreateDistribution writes one event's record batch and credits every
// recipient atomically. The unique key on (recipient, event, distance)
// turns a concurrent redelivery into ErrAlreadyProcessed, letting the
// engine return the winner's records instead of double-crediting.
func (s *MySql) CreateDistribution(ctx context.Context, records []entity.CommissionRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, r := range records {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO commission_records (id, recipient_id, source_member_id, event_id, commission_type,
				generation_distance, amount, rate_applied, currency, status, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.Id, r.RecipientId, r.SourceMemberId, r.EventId, r.Type,
			r.GenerationDistance, r.Amount, r.RateApplied, r.Currency, r.Status, r.CreatedAt)
		if duplicateOn(err, "uq_commission_idem") {
			return entity.ErrAlreadyProcessed
		}
		if err != nil {
			return fmt.Errorf("insert record: %w", err)
		}

		// row-locked arithmetic; concurrent credits to the same member
		// serialize here instead of losing updates
		res, err := tx.ExecContext(ctx,
			`UPDATE members SET pending = pending + ?, lifetime_earned = lifetime_earned + ? WHERE id = ?`,
			r.Amount, r.Amount, r.RecipientId)
		if err != nil {
			return fmt.Errorf("credit member: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("credit member: %w", err)
		}
		if affected == 0 {
			return entity.ErrUnknownMember
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO commission_rollups (member_id, month_key, pending_total)
			 VALUES (?, ?, ?)
			 ON DUPLICATE KEY UPDATE pending_total = pending_total + VALUES(pending_total)`,
			r.RecipientId, clock.MonthKey(r.CreatedAt), r.Amount)
		if err != nil {
			return fmt.Errorf("update rollup: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// SettleRecord finalizes one pending record using its stored amount.
// completed: pending -> available. failed: pending and lifetime_earned
// are reverted. Either way the rollup row for the record's month moves
// with the balances, inside the same transaction.
func (s *MySql) SettleRecord(ctx context.Context, recordId string, outcome entity.SettleOutcome, settledAt time.Time) (*entity.CommissionRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM commission_records WHERE id = ? FOR UPDATE`, recordId)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrUnknownRecord
	}
	if err != nil {
		return nil, fmt.Errorf("select record: %w", err)
	}
	if !rec.Status.CanSettle() {
		return nil, entity.ErrAlreadySettled
	}

	status := entity.CommissionCompleted
	if outcome == entity.OutcomeFailed {
		status = entity.CommissionFailed
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE commission_records SET status = ?, settled_at = ? WHERE id = ?`,
		status, settledAt, recordId)
	if err != nil {
		return nil, fmt.Errorf("update record: %w", err)
	}

	monthKey := clock.MonthKey(rec.CreatedAt)
	if outcome == entity.OutcomeCompleted {
		_, err = tx.ExecContext(ctx,
			`UPDATE members SET pending = pending - ?, available = available + ? WHERE id = ?`,
			rec.Amount, rec.Amount, rec.RecipientId)
		if err != nil {
			return nil, fmt.Errorf("move balance: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE commission_rollups SET pending_total = pending_total - ?, completed_total = completed_total + ?
			 WHERE member_id = ? AND month_key = ?`,
			rec.Amount, rec.Amount, rec.RecipientId, monthKey)
	} else {
		_, err = tx.ExecContext(ctx,
			`UPDATE members SET pending = pending - ?, lifetime_earned = lifetime_earned - ? WHERE id = ?`,
			rec.Amount, rec.Amount, rec.RecipientId)
		if err != nil {
			return nil, fmt.Errorf("revert balance: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE commission_rollups SET pending_total = pending_total - ?
			 WHERE member_id = ? AND month_key = ?`,
			rec.Amount, rec.RecipientId, monthKey)
	}
	if err != nil {
		return nil, fmt.Errorf("update rollup: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	rec.Status = status
	rec.SettledAt = &settledAt
	return rec, nil
}

func (s *MySql) TotalsByStatus(ctx context.Context, memberId string) (decimal.Decimal, decimal.Decimal, error) {
	var completed, pending decimal.Decimal
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(IF(status = 'completed', amount, 0)), 0),
		        COALESCE(SUM(IF(status = 'pending', amount, 0)), 0)
		 FROM commission_records WHERE recipient_id = ?`, memberId).
		Scan(&completed, &pending)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("sum totals: %w", err)
	}
	return completed, pending, nil
}

func (s *MySql) SumCompletedBetween(ctx context.Context, memberId string, from, to time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM commission_records
		 WHERE recipient_id = ? AND status = 'completed' AND created_at >= ? AND created_at < ?`,
		memberId, from, to).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum month: %w", err)
	}
	return total, nil
}

func (s *MySql) DailyCompletedSums(ctx context.Context, memberId string, from, to time.Time) (map[string]decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DATE_FORMAT(created_at, '%Y-%m-%d'), COALESCE(SUM(amount), 0)
		 FROM commission_records
		 WHERE recipient_id = ? AND status = 'completed' AND created_at >= ? AND created_at < ?
		 GROUP BY 1`, memberId, from, to)
	if err != nil {
		return nil, fmt.Errorf("daily sums: %w", err)
	}
	defer rows.Close()

	sums := make(map[string]decimal.Decimal)
	for rows.Next() {
		var day string
		var amount decimal.Decimal
		if err = rows.Scan(&day, &amount); err != nil {
			return nil, fmt.Errorf("scan daily sum: %w", err)
		}
		sums[day] = amount
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return sums, nil
}

func (s *MySql) MonthlyCompletedSums(ctx context.Context, memberId string) ([]entity.SeriesPoint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DATE_FORMAT(created_at, '%Y-%m'), COALESCE(SUM(amount), 0)
		 FROM commission_records
		 WHERE recipient_id = ? AND status = 'completed'
		 GROUP BY 1 ORDER BY 1 ASC`, memberId)
	if err != nil {
		return nil, fmt.Errorf("monthly sums: %w", err)
	}
	defer rows.Close()

	var series []entity.SeriesPoint
	for rows.Next() {
		var p entity.SeriesPoint
		if err = rows.Scan(&p.Bucket, &p.Amount); err != nil {
			return nil, fmt.Errorf("scan monthly sum: %w", err)
		}
		series = append(series, p)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return series, nil
}

func (s *MySql) GenerationBreakdown(ctx context.Context, memberId string) (map[int]entity.GenerationStat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT generation_distance, COUNT(*), COALESCE(SUM(amount), 0)
		 FROM commission_records
		 WHERE recipient_id = ? AND status = 'completed'
		 GROUP BY generation_distance`, memberId)
	if err != nil {
		return nil, fmt.Errorf("generation breakdown: %w", err)
	}
	defer rows.Close()

	breakdown := make(map[int]entity.GenerationStat)
	for rows.Next() {
		var distance int
		var stat entity.GenerationStat
		if err = rows.Scan(&distance, &stat.Count, &stat.Total); err != nil {
			return nil, fmt.Errorf("scan breakdown: %w", err)
		}
		breakdown[distance] = stat
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return breakdown, nil
}

func (s *MySql) RecordsByRecipient(ctx context.Context, memberId string, limit, offset int) ([]entity.CommissionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM commission_records
		 WHERE recipient_id = ? ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		memberId, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("select history: %w", err)
	}
	defer rows.Close()

	var records []entity.CommissionRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, *r)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *MySql) RollupMonth(ctx context.Context, memberId, monthKey string) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.db.QueryRowContext(ctx,
		`SELECT completed_total FROM commission_rollups WHERE member_id = ? AND month_key = ?`,
		memberId, monthKey).Scan(&total)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("select rollup: %w", err)
	}
	return total, nil
}
