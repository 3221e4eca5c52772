// Package core composes the graph manager, distribution engine, stats
// aggregator and notification hub behind the single interface the
// transport layer talks to.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/conquestsam/MLM/entity"
	"github.com/conquestsam/MLM/impl/engine"
	"github.com/conquestsam/MLM/impl/graph"
	"github.com/conquestsam/MLM/impl/links"
	"github.com/conquestsam/MLM/impl/stats"
	"github.com/conquestsam/MLM/internal/notify"
	"github.com/conquestsam/MLM/lib/sl"
	"github.com/stripe/stripe-go/v76"
)

type AuthService interface {
	UserByToken(token string) (*entity.User, error)
}

// Settlement verifies and translates the settlement collaborator's
// webhook deliveries.
type Settlement interface {
	VerifySignature(payload []byte, header string, tolerance time.Duration) bool
	ParseEvent(evt *stripe.Event) (*entity.QualifyingEvent, error)
}

// Archive keeps an audit trail of raw event deliveries; optional.
type Archive interface {
	ArchiveEvent(evt *entity.QualifyingEvent) error
}

type Core struct {
	graph      *graph.Manager
	engine     *engine.Engine
	stats      *stats.Aggregator
	links      *links.Service
	hub        *notify.Hub
	auth       AuthService
	settlement Settlement
	archive    Archive
	log        *slog.Logger
}

func New(g *graph.Manager, e *engine.Engine, a *stats.Aggregator, l *links.Service, hub *notify.Hub, log *slog.Logger) *Core {
	if g == nil || e == nil || a == nil {
		panic("core services are nil")
	}
	return &Core{
		graph:  g,
		engine: e,
		stats:  a,
		links:  l,
		hub:    hub,
		log:    log.With(sl.Module("core")),
	}
}

func (c *Core) SetAuthService(auth AuthService) {
	c.auth = auth
}

func (c *Core) SetSettlement(s Settlement) {
	c.settlement = s
}

func (c *Core) SetArchive(a Archive) {
	c.archive = a
}

func (c *Core) AuthenticateByToken(token string) (*entity.User, error) {
	if c.auth == nil {
		return nil, fmt.Errorf("auth service not connected")
	}
	return c.auth.UserByToken(token)
}

func (c *Core) Enroll(ctx context.Context, req *entity.EnrollRequest) (*entity.Member, error) {
	return c.graph.Enroll(ctx, req)
}

func (c *Core) MemberById(ctx context.Context, memberId string) (*entity.Member, error) {
	return c.graph.MemberById(ctx, memberId)
}

func (c *Core) AncestorsOf(ctx context.Context, memberId string) ([]entity.AncestorRef, error) {
	return c.graph.AncestorsOf(ctx, memberId)
}

func (c *Core) DescendantsOf(ctx context.Context, memberId string, generation int) ([]entity.Member, error) {
	return c.graph.DescendantsOf(ctx, memberId, generation)
}

func (c *Core) Distribute(ctx context.Context, evt *entity.QualifyingEvent) ([]entity.CommissionRecord, bool, error) {
	if c.archive != nil {
		if err := c.archive.ArchiveEvent(evt); err != nil {
			// audit trail only; the ledger's idempotency key is what
			// actually protects against redelivery
			c.log.With(sl.Event(evt.EventId), sl.Err(err)).Warn("archive event")
		}
	}
	return c.engine.Distribute(ctx, evt)
}

func (c *Core) Settle(ctx context.Context, recordId string, outcome entity.SettleOutcome) (*entity.CommissionRecord, error) {
	return c.engine.Settle(ctx, recordId, outcome)
}

func (c *Core) StatsFor(ctx context.Context, memberId string, asOf time.Time) (*entity.Stats, error) {
	return c.stats.StatsFor(ctx, memberId, asOf)
}

func (c *Core) DailySeries(ctx context.Context, memberId string, windowDays int) ([]entity.SeriesPoint, error) {
	return c.stats.DailySeries(ctx, memberId, windowDays)
}

func (c *Core) MonthlySeries(ctx context.Context, memberId string) ([]entity.SeriesPoint, error) {
	return c.stats.MonthlySeries(ctx, memberId)
}

func (c *Core) Commissions(ctx context.Context, memberId string, limit, offset int) ([]entity.CommissionRecord, error) {
	return c.stats.Commissions(ctx, memberId, limit, offset)
}

func (c *Core) Statement(ctx context.Context, memberId string) ([]byte, error) {
	return c.stats.Statement(ctx, memberId)
}

func (c *Core) VerifyRollup(ctx context.Context, memberId string, month time.Time) error {
	return c.stats.VerifyRollup(ctx, memberId, month)
}

func (c *Core) CreateLink(ctx context.Context, req *entity.CreateLinkRequest) (*entity.ReferralLink, error) {
	if c.links == nil {
		return nil, fmt.Errorf("links service not connected")
	}
	return c.links.Create(ctx, req)
}

func (c *Core) ClickLink(ctx context.Context, code string) (*entity.ReferralLink, error) {
	if c.links == nil {
		return nil, fmt.Errorf("links service not connected")
	}
	return c.links.Click(ctx, code)
}

func (c *Core) LinkQR(ctx context.Context, code string) ([]byte, error) {
	if c.links == nil {
		return nil, fmt.Errorf("links service not connected")
	}
	return c.links.QR(ctx, code)
}

func (c *Core) Subscribe(memberId string, topics ...string) *notify.Subscription {
	return c.hub.Subscribe(memberId, topics...)
}

func (c *Core) SettlementVerifySignature(payload []byte, header string, tolerance time.Duration) bool {
	if c.settlement == nil {
		return false
	}
	return c.settlement.VerifySignature(payload, header, tolerance)
}

// SettlementEvent handles one verified webhook delivery. Events that do
// not qualify are acknowledged without touching the ledger.
func (c *Core) SettlementEvent(ctx context.Context, evt *stripe.Event) error {
	if c.settlement == nil {
		return fmt.Errorf("settlement service not connected")
	}
	qe, err := c.settlement.ParseEvent(evt)
	if err != nil {
		return fmt.Errorf("parse settlement event: %w", err)
	}
	if qe == nil {
		return nil
	}
	_, _, err = c.Distribute(ctx, qe)
	return err
}
