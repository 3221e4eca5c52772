package graph

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/conquestsam/MLM/entity"
)

type fakeStore struct {
	members    map[string]*entity.Member
	byCode     map[string]*entity.Member
	ancestors  map[string][]entity.AncestorRef
	edges      []entity.ReferralEdge
	takenCodes int // CreateMember fails with ErrCodeTaken this many times
	creates    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		members:   make(map[string]*entity.Member),
		byCode:    make(map[string]*entity.Member),
		ancestors: make(map[string][]entity.AncestorRef),
	}
}

func (f *fakeStore) add(m *entity.Member) {
	f.members[m.Id] = m
	f.byCode[m.ReferralCode] = m
}

func (f *fakeStore) MemberById(_ context.Context, id string) (*entity.Member, error) {
	return f.members[id], nil
}

func (f *fakeStore) MemberByReferralCode(_ context.Context, code string) (*entity.Member, error) {
	return f.byCode[code], nil
}

func (f *fakeStore) CreateMember(_ context.Context, m *entity.Member, edges []entity.ReferralEdge) error {
	f.creates++
	if f.takenCodes > 0 {
		f.takenCodes--
		return entity.ErrCodeTaken
	}
	f.add(m)
	f.edges = append(f.edges, edges...)
	return nil
}

func (f *fakeStore) AncestorsOf(_ context.Context, memberId string) ([]entity.AncestorRef, error) {
	return f.ancestors[memberId], nil
}

func (f *fakeStore) DescendantsOf(_ context.Context, _ string, _ int) ([]entity.Member, error) {
	return nil, nil
}

type fakeNotifier struct {
	notes []entity.ChangeNotification
}

func (f *fakeNotifier) Publish(n entity.ChangeNotification) {
	f.notes = append(f.notes, n)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEnrollRoot(t *testing.T) {
	store := newFakeStore()
	mgr := New(store, nil, testLogger(), 5, 8)

	m, err := mgr.Enroll(context.Background(), &entity.EnrollRequest{Username: "root"})
	if err != nil {
		t.Fatalf("enroll root: %v", err)
	}
	if m.SponsorId != "" {
		t.Fatalf("root member has sponsor %q", m.SponsorId)
	}
	if m.Generation != 0 {
		t.Fatalf("root generation = %d, want 0", m.Generation)
	}
	if len(m.ReferralCode) != 8 {
		t.Fatalf("referral code %q, want length 8", m.ReferralCode)
	}
	if len(store.edges) != 0 {
		t.Fatalf("root enrollment wrote %d edges", len(store.edges))
	}
}

func TestEnrollUnderSponsor(t *testing.T) {
	store := newFakeStore()
	grand := &entity.Member{Id: "grand", ReferralCode: "GRANDCDE", Status: entity.StatusActive}
	sponsor := &entity.Member{Id: "sponsor", ReferralCode: "SPONSCDE", SponsorId: "grand", Generation: 1, Status: entity.StatusActive}
	store.add(grand)
	store.add(sponsor)
	store.ancestors["sponsor"] = []entity.AncestorRef{{Member: *grand, Distance: 1}}

	notifier := &fakeNotifier{}
	mgr := New(store, notifier, testLogger(), 5, 8)

	m, err := mgr.Enroll(context.Background(), &entity.EnrollRequest{SponsorCode: "SPONSCDE"})
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}
	if m.SponsorId != "sponsor" {
		t.Fatalf("sponsor id = %q, want sponsor", m.SponsorId)
	}
	if m.Generation != 2 {
		t.Fatalf("generation = %d, want 2", m.Generation)
	}

	if len(store.edges) != 2 {
		t.Fatalf("edges = %d, want 2", len(store.edges))
	}
	if store.edges[0].AncestorId != "sponsor" || store.edges[0].GenerationDistance != 1 {
		t.Fatalf("first edge %+v, want sponsor at distance 1", store.edges[0])
	}
	if store.edges[1].AncestorId != "grand" || store.edges[1].GenerationDistance != 2 {
		t.Fatalf("second edge %+v, want grand at distance 2", store.edges[1])
	}

	if len(notifier.notes) != 2 {
		t.Fatalf("notifications = %d, want 2", len(notifier.notes))
	}
	for _, n := range notifier.notes {
		if n.Kind != entity.NoteEdgeAdded || n.Topic != entity.TopicGraph {
			t.Fatalf("notification %+v, want edge_added on graph topic", n)
		}
	}
}

func TestEnrollEdgesCutAtMaxDepth(t *testing.T) {
	store := newFakeStore()
	sponsor := &entity.Member{Id: "s", ReferralCode: "SPONSCDE", Generation: 5, Status: entity.StatusActive}
	store.add(sponsor)
	chain := make([]entity.AncestorRef, 0, 5)
	for i := 1; i <= 5; i++ {
		id := string(rune('a' + i))
		chain = append(chain, entity.AncestorRef{Member: entity.Member{Id: id}, Distance: i})
	}
	store.ancestors["s"] = chain

	mgr := New(store, nil, testLogger(), 3, 8)

	_, err := mgr.Enroll(context.Background(), &entity.EnrollRequest{SponsorCode: "SPONSCDE"})
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}
	if len(store.edges) != 3 {
		t.Fatalf("edges = %d, want 3 (cut at max depth)", len(store.edges))
	}
	for i, e := range store.edges {
		if e.GenerationDistance != i+1 {
			t.Fatalf("edge %d distance = %d, want %d", i, e.GenerationDistance, i+1)
		}
	}
}

func TestEnrollValidation(t *testing.T) {
	store := newFakeStore()
	active := &entity.Member{Id: "active", ReferralCode: "ACTIVECD", Status: entity.StatusActive}
	suspended := &entity.Member{Id: "frozen", ReferralCode: "FROZENCD", Status: entity.StatusSuspended}
	store.add(active)
	store.add(suspended)

	mgr := New(store, nil, testLogger(), 5, 8)

	tests := []struct {
		name string
		req  entity.EnrollRequest
		want error
	}{
		{"unknown sponsor code", entity.EnrollRequest{SponsorCode: "NOSUCHCD"}, entity.ErrInvalidSponsorCode},
		{"suspended sponsor", entity.EnrollRequest{SponsorCode: "FROZENCD"}, entity.ErrInvalidSponsorCode},
		{"duplicate member", entity.EnrollRequest{CandidateId: "active"}, entity.ErrDuplicateMember},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := mgr.Enroll(context.Background(), &tc.req)
			if !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestEnrollSelfReferral(t *testing.T) {
	store := newFakeStore()
	sponsor := &entity.Member{Id: "self", ReferralCode: "SELFCODE", Status: entity.StatusActive}
	store.byCode[sponsor.ReferralCode] = sponsor // resolvable by code but not yet by id

	mgr := New(store, nil, testLogger(), 5, 8)

	_, err := mgr.Enroll(context.Background(), &entity.EnrollRequest{CandidateId: "self", SponsorCode: "SELFCODE"})
	if !errors.Is(err, entity.ErrSelfReferral) {
		t.Fatalf("got %v, want ErrSelfReferral", err)
	}
}

func TestEnrollCodeCollisionRetries(t *testing.T) {
	store := newFakeStore()
	store.takenCodes = 2
	mgr := New(store, nil, testLogger(), 5, 8)

	m, err := mgr.Enroll(context.Background(), &entity.EnrollRequest{})
	if err != nil {
		t.Fatalf("enroll with collisions: %v", err)
	}
	if m.ReferralCode == "" {
		t.Fatal("no referral code assigned")
	}
	if store.creates != 3 {
		t.Fatalf("create attempts = %d, want 3", store.creates)
	}
}

func TestEnrollCodeGenerationExhausted(t *testing.T) {
	store := newFakeStore()
	store.takenCodes = maxCodeAttempts
	mgr := New(store, nil, testLogger(), 5, 8)

	_, err := mgr.Enroll(context.Background(), &entity.EnrollRequest{})
	if !errors.Is(err, entity.ErrCodeGenerationExhausted) {
		t.Fatalf("got %v, want ErrCodeGenerationExhausted", err)
	}
}

func TestEnrollCycleDetected(t *testing.T) {
	store := newFakeStore()
	sponsor := &entity.Member{Id: "s", ReferralCode: "SPONSCDE", Status: entity.StatusActive}
	store.add(sponsor)
	// corrupted chain that leads back to the candidate
	store.ancestors["s"] = []entity.AncestorRef{
		{Member: entity.Member{Id: "candidate"}, Distance: 1},
	}

	mgr := New(store, nil, testLogger(), 5, 8)

	_, err := mgr.Enroll(context.Background(), &entity.EnrollRequest{CandidateId: "candidate", SponsorCode: "SPONSCDE"})
	if !errors.Is(err, entity.ErrCycleDetected) {
		t.Fatalf("got %v, want ErrCycleDetected", err)
	}
}

func TestLookupsUnknownMember(t *testing.T) {
	mgr := New(newFakeStore(), nil, testLogger(), 5, 8)
	ctx := context.Background()

	if _, err := mgr.MemberById(ctx, "missing"); !errors.Is(err, entity.ErrUnknownMember) {
		t.Fatalf("MemberById: got %v, want ErrUnknownMember", err)
	}
	if _, err := mgr.AncestorsOf(ctx, "missing"); !errors.Is(err, entity.ErrUnknownMember) {
		t.Fatalf("AncestorsOf: got %v, want ErrUnknownMember", err)
	}
	if _, err := mgr.DescendantsOf(ctx, "missing", 0); !errors.Is(err, entity.ErrUnknownMember) {
		t.Fatalf("DescendantsOf: got %v, want ErrUnknownMember", err)
	}
}
