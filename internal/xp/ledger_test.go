package xp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/irsescapeplan/platform/pkg/config"
	apperrors "github.com/irsescapeplan/platform/pkg/errors"
)

// memoryStore mirrors the Postgres store's semantics for tests: the view set
// acts as the unique constraint, and all three writes happen under one lock.
type memoryStore struct {
	mu     sync.Mutex
	views  map[string]map[string]struct{}
	totals map[string]int64
	awards int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		views:  make(map[string]map[string]struct{}),
		totals: make(map[string]int64),
	}
}

func (s *memoryStore) TotalXP(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totals[userID], nil
}

func (s *memoryStore) RecordGlossaryView(_ context.Context, userID, termID string, points int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, seen := s.views[userID][termID]; seen {
		return false, nil
	}
	if s.views[userID] == nil {
		s.views[userID] = make(map[string]struct{})
	}
	s.views[userID][termID] = struct{}{}
	s.totals[userID] += points
	s.awards++
	return true, nil
}

func (s *memoryStore) AddQuizPoints(_ context.Context, userID string, points int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totals[userID] += points
	s.awards++
	return nil
}

type staticTermSet map[string]struct{}

func (s staticTermSet) HasTerm(id string) bool {
	_, ok := s[id]
	return ok
}

type failingStore struct{}

func (failingStore) TotalXP(context.Context, string) (int64, error) {
	return 0, errors.New("connection refused")
}
func (failingStore) RecordGlossaryView(context.Context, string, string, int64) (bool, error) {
	return false, errors.New("connection refused")
}
func (failingStore) AddQuizPoints(context.Context, string, int64) error {
	return errors.New("connection refused")
}

func newTestLedger(store Store) *Ledger {
	terms := staticTermSet{"term-reps": {}, "term-qof": {}, "term-str": {}}
	cfg := config.XPConfig{GlossaryViewPoints: 10, MaxQuizPoints: 10000}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewLedger(store, terms, cfg, nil, nil, logger)
}

func TestGlossaryViewAwardedExactlyOnce(t *testing.T) {
	store := newMemoryStore()
	ledger := newTestLedger(store)
	ctx := context.Background()

	first, err := ledger.AwardGlossaryView(ctx, "user-1", "term-reps")
	if err != nil {
		t.Fatalf("first view: %v", err)
	}
	if first.Status != StatusSuccess || first.XPEarned != 10 || !first.FirstView {
		t.Fatalf("first view: expected success/10/first, got %+v", first)
	}

	for i := 0; i < 5; i++ {
		repeat, err := ledger.AwardGlossaryView(ctx, "user-1", "term-reps")
		if err != nil {
			t.Fatalf("repeat view %d: %v", i, err)
		}
		if repeat.Status != StatusAlreadyViewed || repeat.XPEarned != 0 || repeat.FirstView {
			t.Fatalf("repeat view %d: expected already_viewed/0, got %+v", i, repeat)
		}
	}

	got, err := ledger.UserXP(ctx, "user-1")
	if err != nil {
		t.Fatalf("reading total: %v", err)
	}
	if got.TotalXP != 10 {
		t.Fatalf("expected total 10 after repeats, got %d", got.TotalXP)
	}
}

func TestConcurrentGlossaryViewsAwardOnce(t *testing.T) {
	store := newMemoryStore()
	ledger := newTestLedger(store)
	ctx := context.Background()

	const workers = 32
	results := make(chan GlossaryViewResult, workers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			res, err := ledger.AwardGlossaryView(ctx, "user-1", "term-qof")
			if err != nil {
				t.Errorf("concurrent view: %v", err)
				return
			}
			results <- res
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	var wins int
	for res := range results {
		if res.FirstView {
			wins++
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winning award, got %d", wins)
	}
	total, _ := store.TotalXP(ctx, "user-1")
	if total != 10 {
		t.Fatalf("expected total 10, got %d", total)
	}
}

func TestQuizPointsAccumulate(t *testing.T) {
	store := newMemoryStore()
	ledger := newTestLedger(store)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := ledger.AwardQuizCompletion(ctx, "user-1", 50)
		if err != nil {
			t.Fatalf("quiz award %d: %v", i, err)
		}
		if res.Status != StatusSuccess || res.XPEarned != 50 {
			t.Fatalf("quiz award %d: got %+v", i, res)
		}
	}

	got, err := ledger.UserXP(ctx, "user-1")
	if err != nil {
		t.Fatalf("reading total: %v", err)
	}
	if got.TotalXP != 100 {
		t.Fatalf("expected repeat quizzes to stack to 100, got %d", got.TotalXP)
	}
}

func TestUsersAreIsolated(t *testing.T) {
	store := newMemoryStore()
	ledger := newTestLedger(store)
	ctx := context.Background()

	if _, err := ledger.AwardGlossaryView(ctx, "user-1", "term-reps"); err != nil {
		t.Fatal(err)
	}
	res, err := ledger.AwardGlossaryView(ctx, "user-2", "term-reps")
	if err != nil {
		t.Fatal(err)
	}
	if !res.FirstView {
		t.Fatal("user-2's first view of the same term must earn points")
	}
	if _, err := ledger.AwardQuizCompletion(ctx, "user-2", 75); err != nil {
		t.Fatal(err)
	}

	one, _ := ledger.UserXP(ctx, "user-1")
	two, _ := ledger.UserXP(ctx, "user-2")
	if one.TotalXP != 10 || two.TotalXP != 85 {
		t.Fatalf("expected 10/85, got %d/%d", one.TotalXP, two.TotalXP)
	}
}

func TestUnknownUserHasZeroTotal(t *testing.T) {
	ledger := newTestLedger(newMemoryStore())
	got, err := ledger.UserXP(context.Background(), "never-seen")
	if err != nil {
		t.Fatalf("unknown user must not be an error: %v", err)
	}
	if got.TotalXP != 0 {
		t.Fatalf("expected 0, got %d", got.TotalXP)
	}
}

func TestAwardValidation(t *testing.T) {
	ledger := newTestLedger(newMemoryStore())
	ctx := context.Background()

	tests := []struct {
		name     string
		run      func() error
		sentinel error
	}{
		{"blank user on view", func() error {
			_, err := ledger.AwardGlossaryView(ctx, "  ", "term-reps")
			return err
		}, apperrors.ErrInvalidInput},
		{"blank term on view", func() error {
			_, err := ledger.AwardGlossaryView(ctx, "user-1", "")
			return err
		}, apperrors.ErrInvalidInput},
		{"unknown term", func() error {
			_, err := ledger.AwardGlossaryView(ctx, "user-1", "term-bogus")
			return err
		}, apperrors.ErrTermNotFound},
		{"negative quiz points", func() error {
			_, err := ledger.AwardQuizCompletion(ctx, "user-1", -5)
			return err
		}, apperrors.ErrInvalidInput},
		{"quiz points over cap", func() error {
			_, err := ledger.AwardQuizCompletion(ctx, "user-1", 10001)
			return err
		}, apperrors.ErrInvalidInput},
		{"blank user on total", func() error {
			_, err := ledger.UserXP(ctx, "")
			return err
		}, apperrors.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			if !errors.Is(err, tt.sentinel) {
				t.Fatalf("expected %v, got %v", tt.sentinel, err)
			}
		})
	}
}

func TestZeroPointQuizIsAccepted(t *testing.T) {
	ledger := newTestLedger(newMemoryStore())
	res, err := ledger.AwardQuizCompletion(context.Background(), "user-1", 0)
	if err != nil {
		t.Fatalf("zero points must be accepted: %v", err)
	}
	if res.Status != StatusSuccess || res.XPEarned != 0 {
		t.Fatalf("got %+v", res)
	}
}

func TestStoreFailuresMapToUnavailable(t *testing.T) {
	ledger := newTestLedger(failingStore{})
	ctx := context.Background()

	if _, err := ledger.UserXP(ctx, "user-1"); !errors.Is(err, apperrors.ErrStoreUnavailable) {
		t.Errorf("UserXP: expected store unavailable, got %v", err)
	}
	if _, err := ledger.AwardGlossaryView(ctx, "user-1", "term-reps"); !errors.Is(err, apperrors.ErrStoreUnavailable) {
		t.Errorf("AwardGlossaryView: expected store unavailable, got %v", err)
	}
	if _, err := ledger.AwardQuizCompletion(ctx, "user-1", 10); !errors.Is(err, apperrors.ErrStoreUnavailable) {
		t.Errorf("AwardQuizCompletion: expected store unavailable, got %v", err)
	}
}

// Walks a realistic learner session end to end: three first views, one
// repeat, two quizzes, interleaved with reads.
func TestLearnerSession(t *testing.T) {
	ledger := newTestLedger(newMemoryStore())
	ctx := context.Background()
	user := "learner-1"

	steps := []struct {
		termID    string
		wantTotal int64
	}{
		{"term-reps", 10},
		{"term-qof", 20},
		{"term-reps", 20}, // repeat view
		{"term-str", 30},
	}
	for _, step := range steps {
		if _, err := ledger.AwardGlossaryView(ctx, user, step.termID); err != nil {
			t.Fatalf("viewing %s: %v", step.termID, err)
		}
		got, err := ledger.UserXP(ctx, user)
		if err != nil {
			t.Fatal(err)
		}
		if got.TotalXP != step.wantTotal {
			t.Fatalf("after viewing %s: expected %d, got %d", step.termID, step.wantTotal, got.TotalXP)
		}
	}

	for _, points := range []int64{40, 40} {
		if _, err := ledger.AwardQuizCompletion(ctx, user, points); err != nil {
			t.Fatal(err)
		}
	}
	got, _ := ledger.UserXP(ctx, user)
	if got.TotalXP != 110 {
		t.Fatalf("expected final total 110, got %d", got.TotalXP)
	}
}
