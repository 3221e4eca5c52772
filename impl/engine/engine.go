// Package engine consumes qualifying events and distributes commissions
// up the acting member's sponsor chain, exactly once per event.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/conquestsam/MLM/entity"
	"github.com/conquestsam/MLM/lib/sl"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store is the transactional ledger the engine writes to.
type Store interface {
	RecordsByEvent(ctx context.Context, eventId string) ([]entity.CommissionRecord, error)
	// CreateDistribution inserts every record and credits each
	// recipient's pending and lifetime_earned balances in a single
	// transaction. All-or-nothing: a failed write rolls back the whole
	// batch. Returns entity.ErrAlreadyProcessed when the event's unique
	// key is already present.
	CreateDistribution(ctx context.Context, records []entity.CommissionRecord) error
	// SettleRecord finalizes one pending record: completed moves the
	// amount from pending to available, failed reverts pending and
	// lifetime_earned. The stored amount is authoritative; nothing is
	// re-derived. Returns entity.ErrAlreadySettled on a second attempt.
	SettleRecord(ctx context.Context, recordId string, outcome entity.SettleOutcome, settledAt time.Time) (*entity.CommissionRecord, error)
}

// Graph is the read side of the referral graph the engine consults.
type Graph interface {
	MemberById(ctx context.Context, memberId string) (*entity.Member, error)
	AncestorsOf(ctx context.Context, memberId string) ([]entity.AncestorRef, error)
}

type Notifier interface {
	Publish(n entity.ChangeNotification)
}

var hundred = decimal.NewFromInt(100)

type Engine struct {
	store    Store
	graph    Graph
	notify   Notifier
	schedule Schedule
	log      *slog.Logger
}

func New(store Store, graph Graph, notify Notifier, schedule Schedule, log *slog.Logger) *Engine {
	if store == nil {
		panic("engine store is nil")
	}
	if graph == nil {
		panic("engine graph is nil")
	}
	return &Engine{
		store:    store,
		graph:    graph,
		notify:   notify,
		schedule: schedule,
		log:      log.With(sl.Module("engine")),
	}
}

// Distribute applies one qualifying event. The returned bool is true
// when the event was seen before: the previously written records come
// back unchanged and no balance moves. Redelivery is therefore always
// safe; upstream delivery is at-least-once.
func (e *Engine) Distribute(ctx context.Context, evt *entity.QualifyingEvent) ([]entity.CommissionRecord, bool, error) {
	if err := evt.Validate(); err != nil {
		return nil, false, err
	}
	log := e.log.With(
		sl.Event(evt.EventId),
		sl.Member(evt.ActingMemberId),
	)

	existing, err := e.store.RecordsByEvent(ctx, evt.EventId)
	if err != nil {
		return nil, false, fmt.Errorf("lookup event records: %w", err)
	}
	if len(existing) > 0 {
		log.Debug("event already processed, returning existing records")
		return existing, true, nil
	}

	if _, err = e.graph.MemberById(ctx, evt.ActingMemberId); err != nil {
		return nil, false, err
	}

	ancestors, err := e.graph.AncestorsOf(ctx, evt.ActingMemberId)
	if err != nil {
		return nil, false, fmt.Errorf("resolve ancestors: %w", err)
	}
	if len(ancestors) == 0 {
		log.Debug("no sponsor chain, nothing owed")
		return nil, false, nil
	}

	records := e.buildRecords(evt, ancestors)
	if len(records) == 0 {
		return nil, false, nil
	}

	err = e.store.CreateDistribution(ctx, records)
	if errors.Is(err, entity.ErrAlreadyProcessed) {
		// lost the race against a concurrent redelivery; the winner's
		// records are the canonical set
		existing, err = e.store.RecordsByEvent(ctx, evt.EventId)
		if err != nil {
			return nil, false, fmt.Errorf("lookup event records: %w", err)
		}
		return existing, true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("write distribution: %w", err)
	}

	log.With(
		slog.Int("records", len(records)),
		slog.String("base_amount", evt.BaseAmount.String()),
		slog.String("currency", evt.Currency),
	).Info("commissions distributed")
	e.announce(records)
	return records, false, nil
}

// buildRecords walks the ancestor chain and prices each generation from
// the schedule. Amounts use banker's rounding at the currency's
// precision so repeated small commissions carry no systematic bias.
func (e *Engine) buildRecords(evt *entity.QualifyingEvent, ancestors []entity.AncestorRef) []entity.CommissionRecord {
	precision := entity.CurrencyPrecision(evt.Currency)
	now := time.Now().UTC()

	var records []entity.CommissionRecord
	for _, ref := range ancestors {
		rate := e.schedule.Rate(ref.Distance)
		if rate.IsZero() {
			continue
		}
		amount := evt.BaseAmount.Mul(rate).Div(hundred).RoundBank(precision)

		ctype := entity.CommissionLevelBonus
		if ref.Distance == 1 {
			ctype = entity.CommissionDirect
		}
		records = append(records, entity.CommissionRecord{
			Id:                 uuid.NewString(),
			RecipientId:        ref.Member.Id,
			SourceMemberId:     evt.ActingMemberId,
			EventId:            evt.EventId,
			Type:               ctype,
			GenerationDistance: ref.Distance,
			Amount:             amount,
			RateApplied:        rate,
			Currency:           evt.Currency,
			Status:             entity.CommissionPending,
			CreatedAt:          now,
		})
	}
	return records
}

// Settle finalizes one record on behalf of the settlement collaborator.
func (e *Engine) Settle(ctx context.Context, recordId string, outcome entity.SettleOutcome) (*entity.CommissionRecord, error) {
	if outcome != entity.OutcomeCompleted && outcome != entity.OutcomeFailed {
		return nil, entity.ErrMalformedEvent
	}
	rec, err := e.store.SettleRecord(ctx, recordId, outcome, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	e.log.With(
		slog.String("record_id", rec.Id),
		sl.Member(rec.RecipientId),
		slog.String("outcome", string(outcome)),
		slog.String("amount", rec.Amount.String()),
	).Info("commission settled")

	if e.notify != nil {
		e.notify.Publish(entity.ChangeNotification{
			Kind:     entity.NoteCommissionUpdated,
			Topic:    entity.TopicLedger,
			MemberId: rec.RecipientId,
			RefId:    rec.Id,
			At:       time.Now().UTC(),
		})
	}
	return rec, nil
}

func (e *Engine) announce(records []entity.CommissionRecord) {
	if e.notify == nil {
		return
	}
	now := time.Now().UTC()
	for _, rec := range records {
		e.notify.Publish(entity.ChangeNotification{
			Kind:     entity.NoteCommissionCreated,
			Topic:    entity.TopicLedger,
			MemberId: rec.RecipientId,
			RefId:    rec.Id,
			At:       now,
		})
	}
}
