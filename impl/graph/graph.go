// Package graph maintains the sponsorship forest: enrollment, referral
// code assignment and the materialized ancestor-edge index.
package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/conquestsam/MLM/entity"
	"github.com/conquestsam/MLM/lib/codes"
	"github.com/conquestsam/MLM/lib/sl"
	"github.com/google/uuid"
)

// Store is the durable storage the graph manager depends on.
// Lookup methods return (nil, nil) when the row does not exist.
type Store interface {
	MemberById(ctx context.Context, id string) (*entity.Member, error)
	MemberByReferralCode(ctx context.Context, code string) (*entity.Member, error)
	// CreateMember inserts the member and its ancestor edges in one
	// transaction and bumps each ancestor's referral counter. Returns
	// entity.ErrCodeTaken on a referral-code collision and
	// entity.ErrDuplicateMember when the id is already enrolled.
	CreateMember(ctx context.Context, m *entity.Member, edges []entity.ReferralEdge) error
	AncestorsOf(ctx context.Context, memberId string) ([]entity.AncestorRef, error)
	DescendantsOf(ctx context.Context, memberId string, generation int) ([]entity.Member, error)
}

type Notifier interface {
	Publish(n entity.ChangeNotification)
}

// maxCodeAttempts bounds regeneration on referral-code collisions before
// enrollment fails with ErrCodeGenerationExhausted.
const maxCodeAttempts = 5

type Manager struct {
	store      Store
	notify     Notifier
	maxDepth   int
	codeLength int
	log        *slog.Logger
}

func New(store Store, notify Notifier, log *slog.Logger, maxDepth, codeLength int) *Manager {
	if store == nil {
		panic("graph store is nil")
	}
	if maxDepth <= 0 {
		maxDepth = 5
	}
	return &Manager{
		store:      store,
		notify:     notify,
		maxDepth:   maxDepth,
		codeLength: codeLength,
		log:        log.With(sl.Module("graph")),
	}
}

// Enroll creates a member under the sponsor identified by
// req.SponsorCode, or as a root when the code is empty. The sponsor link
// is written exactly once; ancestor edges are materialized up to
// MaxDepth in the same transaction.
func (g *Manager) Enroll(ctx context.Context, req *entity.EnrollRequest) (*entity.Member, error) {
	candidateId := req.CandidateId
	if candidateId == "" {
		candidateId = uuid.NewString()
	}
	log := g.log.With(sl.Member(candidateId))

	existing, err := g.store.MemberById(ctx, candidateId)
	if err != nil {
		return nil, fmt.Errorf("lookup candidate: %w", err)
	}
	if existing != nil {
		return nil, entity.ErrDuplicateMember
	}

	var sponsor *entity.Member
	if req.SponsorCode != "" {
		sponsor, err = g.store.MemberByReferralCode(ctx, req.SponsorCode)
		if err != nil {
			return nil, fmt.Errorf("lookup sponsor: %w", err)
		}
		if sponsor == nil || !sponsor.IsActive() {
			return nil, entity.ErrInvalidSponsorCode
		}
		if sponsor.Id == candidateId {
			return nil, entity.ErrSelfReferral
		}
	}

	member := &entity.Member{
		Id:            candidateId,
		Username:      req.Username,
		Email:         req.Email,
		WalletAddress: req.WalletAddress,
		Status:        entity.StatusActive,
		CreatedAt:     time.Now().UTC(),
	}

	var edges []entity.ReferralEdge
	if sponsor != nil {
		member.SponsorId = sponsor.Id
		member.Generation = sponsor.Generation + 1
		edges, err = g.buildEdges(ctx, candidateId, sponsor)
		if err != nil {
			return nil, err
		}
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := codes.New(g.codeLength)
		if err != nil {
			return nil, fmt.Errorf("generate referral code: %w", err)
		}
		member.ReferralCode = code

		err = g.store.CreateMember(ctx, member, edges)
		if errors.Is(err, entity.ErrCodeTaken) {
			log.With(slog.Int("attempt", attempt+1)).Debug("referral code collision, regenerating")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create member: %w", err)
		}

		log.With(
			slog.String("referral_code", member.ReferralCode),
			slog.Int("generation", member.Generation),
			slog.Int("edges", len(edges)),
		).Info("member enrolled")
		g.announce(member, edges)
		return member, nil
	}

	return nil, entity.ErrCodeGenerationExhausted
}

// buildEdges derives the candidate's ancestor rows from the sponsor's
// already materialized chain: sponsor at distance 1, then each of the
// sponsor's ancestors one hop further, cut off at MaxDepth. A chain that
// leads back to the candidate means corrupted data, not normal input.
func (g *Manager) buildEdges(ctx context.Context, candidateId string, sponsor *entity.Member) ([]entity.ReferralEdge, error) {
	edges := []entity.ReferralEdge{{
		MemberId:           candidateId,
		AncestorId:         sponsor.Id,
		GenerationDistance: 1,
	}}

	chain, err := g.store.AncestorsOf(ctx, sponsor.Id)
	if err != nil {
		return nil, fmt.Errorf("sponsor ancestors: %w", err)
	}
	for _, ref := range chain {
		distance := ref.Distance + 1
		if distance > g.maxDepth {
			break
		}
		if ref.Member.Id == candidateId {
			g.log.With(sl.Member(candidateId)).Error("cycle detected in sponsor chain")
			return nil, entity.ErrCycleDetected
		}
		edges = append(edges, entity.ReferralEdge{
			MemberId:           candidateId,
			AncestorId:         ref.Member.Id,
			GenerationDistance: distance,
		})
	}
	return edges, nil
}

func (g *Manager) announce(member *entity.Member, edges []entity.ReferralEdge) {
	if g.notify == nil {
		return
	}
	now := time.Now().UTC()
	for _, edge := range edges {
		g.notify.Publish(entity.ChangeNotification{
			Kind:     entity.NoteEdgeAdded,
			Topic:    entity.TopicGraph,
			MemberId: edge.AncestorId,
			RefId:    member.Id,
			At:       now,
		})
	}
}

// AncestorsOf returns the member's ancestor chain, distance ascending,
// at most MaxDepth entries. Served from the edge index, never by walking
// sponsor pointers.
func (g *Manager) AncestorsOf(ctx context.Context, memberId string) ([]entity.AncestorRef, error) {
	m, err := g.store.MemberById(ctx, memberId)
	if err != nil {
		return nil, fmt.Errorf("lookup member: %w", err)
	}
	if m == nil {
		return nil, entity.ErrUnknownMember
	}
	return g.store.AncestorsOf(ctx, memberId)
}

// DescendantsOf returns the member's downline, optionally filtered to a
// single generation distance (0 = all generations within MaxDepth).
func (g *Manager) DescendantsOf(ctx context.Context, memberId string, generation int) ([]entity.Member, error) {
	m, err := g.store.MemberById(ctx, memberId)
	if err != nil {
		return nil, fmt.Errorf("lookup member: %w", err)
	}
	if m == nil {
		return nil, entity.ErrUnknownMember
	}
	if generation < 0 || generation > g.maxDepth {
		generation = 0 // out of range means no filter
	}
	return g.store.DescendantsOf(ctx, memberId, generation)
}

func (g *Manager) MemberById(ctx context.Context, memberId string) (*entity.Member, error) {
	m, err := g.store.MemberById(ctx, memberId)
	if err != nil {
		return nil, fmt.Errorf("lookup member: %w", err)
	}
	if m == nil {
		return nil, entity.ErrUnknownMember
	}
	return m, nil
}

func (g *Manager) MaxDepth() int {
	return g.maxDepth
}
