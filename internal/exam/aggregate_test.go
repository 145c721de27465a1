package exam

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeStore struct {
	saved []Result
	err   error
}

func (s *fakeStore) Save(ctx context.Context, r Result) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, r)
	return nil
}

type fakeForwarder struct {
	forwarded []Result
}

func (f *fakeForwarder) Forward(r Result) {
	f.forwarded = append(f.forwarded, r)
}

func completedAttempt() *Attempt {
	return &Attempt{
		Subject:  SubjectMath,
		UserName: "Mona",
		OrgCode:  "ORG-ABC123",
		PhaseScores: map[string]PhaseResult{
			"behavioral":     {Total: 20, Percentage: 50},
			"specialization": {Total: 10, Percentage: 100},
		},
		State:         StateCompleted,
		ExamCompleted: true,
	}
}

func TestAggregate(t *testing.T) {
	store := &fakeStore{}
	forwarder := &fakeForwarder{}
	g := NewAggregator(store, forwarder, zap.NewNop())
	completedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return completedAt }

	r, err := g.Aggregate(context.Background(), completedAttempt())
	if err != nil {
		t.Fatalf("Aggregate returned error: %v", err)
	}

	// (50*20 + 100*10) / 30 = 66.7, rounded.
	if r.TotalScore != 67 {
		t.Errorf("TotalScore = %d, want 67", r.TotalScore)
	}
	if r.PhaseScores["behavioral"] != 50 || r.PhaseScores["specialization"] != 100 {
		t.Errorf("PhaseScores = %v", r.PhaseScores)
	}
	if r.UserName != "Mona" || r.Subject != SubjectMath || r.OrgCode != "ORG-ABC123" {
		t.Errorf("identity fields = %q %q %q", r.UserName, r.Subject, r.OrgCode)
	}
	if !r.CompletedAt.Equal(completedAt) {
		t.Errorf("CompletedAt = %v, want %v", r.CompletedAt, completedAt)
	}
	if !strings.HasPrefix(r.StorageKey, "result_1772366400000_") {
		t.Errorf("StorageKey = %q, want timestamp-prefixed key", r.StorageKey)
	}

	if len(store.saved) != 1 {
		t.Fatalf("store has %d results, want 1", len(store.saved))
	}
	if len(forwarder.forwarded) != 1 || forwarder.forwarded[0].StorageKey != r.StorageKey {
		t.Errorf("forwarded = %v, want the persisted result", forwarder.forwarded)
	}
}

func TestAggregateIsIdempotent(t *testing.T) {
	store := &fakeStore{}
	g := NewAggregator(store, nil, zap.NewNop())

	a := completedAttempt()
	first, err := g.Aggregate(context.Background(), a)
	if err != nil {
		t.Fatalf("first Aggregate returned error: %v", err)
	}
	// The handler records the result back onto the attempt; a repeat request
	// then reuses it instead of appending a second row.
	a.Result = &first

	second, err := g.Aggregate(context.Background(), a)
	if err != nil {
		t.Fatalf("second Aggregate returned error: %v", err)
	}
	if second.StorageKey != first.StorageKey {
		t.Errorf("second StorageKey = %q, want %q", second.StorageKey, first.StorageKey)
	}
	if len(store.saved) != 1 {
		t.Errorf("store has %d results, want 1", len(store.saved))
	}
}

func TestAggregateRejections(t *testing.T) {
	g := NewAggregator(&fakeStore{}, nil, zap.NewNop())

	if _, err := g.Aggregate(context.Background(), nil); !errors.Is(err, ErrNoAttempt) {
		t.Errorf("nil attempt error = %v, want ErrNoAttempt", err)
	}

	active := completedAttempt()
	active.ExamCompleted = false
	active.State = StatePhaseActive
	if _, err := g.Aggregate(context.Background(), active); !errors.Is(err, ErrExamNotCompleted) {
		t.Errorf("active attempt error = %v, want ErrExamNotCompleted", err)
	}
}

func TestAggregateStoreFailure(t *testing.T) {
	storeErr := errors.New("disk on fire")
	g := NewAggregator(&fakeStore{err: storeErr}, nil, zap.NewNop())

	a := completedAttempt()
	if _, err := g.Aggregate(context.Background(), a); !errors.Is(err, storeErr) {
		t.Errorf("error = %v, want wrapped store error", err)
	}
	if a.Result != nil {
		t.Error("failed aggregation must not leave a result on the attempt")
	}
}

func TestCompositeScore(t *testing.T) {
	tests := []struct {
		name   string
		scores map[string]PhaseResult
		want   int
	}{
		{
			name: "larger phases dominate",
			scores: map[string]PhaseResult{
				"a": {Total: 30, Percentage: 80},
				"b": {Total: 10, Percentage: 20},
			},
			want: 65,
		},
		{
			name: "equal sizes average evenly",
			scores: map[string]PhaseResult{
				"a": {Total: 10, Percentage: 40},
				"b": {Total: 10, Percentage: 60},
			},
			want: 50,
		},
		{
			name: "phases with no answers carry no weight",
			scores: map[string]PhaseResult{
				"a": {Total: 0, Percentage: 0},
				"b": {Total: 5, Percentage: 90},
			},
			want: 90,
		},
		{
			name:   "no answered phases at all",
			scores: map[string]PhaseResult{},
			want:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CompositeScore(tt.scores); got != tt.want {
				t.Errorf("CompositeScore = %d, want %d", got, tt.want)
			}
		})
	}
}
