package exam

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Result is the composite outcome of a completed attempt, immutable after
// creation. StorageKey embeds the creation timestamp and is the durable key
// in the result store.
type Result struct {
	StorageKey  string         `json:"storageKey"`
	TotalScore  int            `json:"totalScore"`
	PhaseScores map[string]int `json:"phaseScores"`
	CompletedAt time.Time      `json:"completedAt"`
	UserName    string         `json:"userName"`
	Subject     string         `json:"subject"`
	OrgCode     string         `json:"organizationCode"`
}

// ResultStore is append/read-only keyed storage for finished results. Save
// must be idempotent per StorageKey; persisted results are never mutated.
type ResultStore interface {
	Save(ctx context.Context, r Result) error
}

// Forwarder receives a finished result for best-effort external recording.
// Implementations must not block the caller on network I/O.
type Forwarder interface {
	Forward(r Result)
}

var ErrExamNotCompleted = errors.New("exam attempt is not completed")

// Aggregator turns a completed attempt into one durable Result.
type Aggregator struct {
	store     ResultStore
	forwarder Forwarder
	log       *zap.Logger
	now       func() time.Time
}

// NewAggregator builds an aggregator. forwarder may be nil when no external
// recording endpoint is configured.
func NewAggregator(store ResultStore, forwarder Forwarder, log *zap.Logger) *Aggregator {
	return &Aggregator{
		store:     store,
		forwarder: forwarder,
		log:       log,
		now:       time.Now,
	}
}

// Aggregate computes and persists the composite score for a completed
// attempt, exactly once per attempt: a second call returns the previously
// created Result without recomputing or re-appending.
//
// The composite is a question-count-weighted average of phase percentages.
// Phases vary widely in size (a 10-question sub-phase vs. a 40-question
// specialization), so an unweighted mean would misrepresent the outcome.
func (g *Aggregator) Aggregate(ctx context.Context, a *Attempt) (Result, error) {
	if a == nil {
		return Result{}, ErrNoAttempt
	}
	if !a.ExamCompleted {
		return Result{}, ErrExamNotCompleted
	}
	if a.Result != nil {
		return *a.Result, nil
	}

	completedAt := g.now()
	r := Result{
		StorageKey:  newStorageKey(completedAt),
		TotalScore:  CompositeScore(a.PhaseScores),
		PhaseScores: make(map[string]int, len(a.PhaseScores)),
		CompletedAt: completedAt,
		UserName:    a.UserName,
		Subject:     a.Subject,
		OrgCode:     a.OrgCode,
	}
	for key, score := range a.PhaseScores {
		r.PhaseScores[key] = score.Percentage
	}

	if err := g.store.Save(ctx, r); err != nil {
		return Result{}, fmt.Errorf("failed to persist result: %w", err)
	}

	g.log.Info("Result aggregated",
		zap.String("storage_key", r.StorageKey),
		zap.String("subject", r.Subject),
		zap.Int("total_score", r.TotalScore),
	)

	// Best-effort external recording. The persisted result and the
	// user-visible outcome do not depend on it.
	if g.forwarder != nil {
		g.forwarder.Forward(r)
	}
	return r, nil
}

// CompositeScore is the question-count-weighted average of phase percentages.
func CompositeScore(phaseScores map[string]PhaseResult) int {
	weightedSum := 0.0
	totalQuestions := 0
	for _, score := range phaseScores {
		weightedSum += float64(score.Percentage) * float64(score.Total)
		totalQuestions += score.Total
	}
	if totalQuestions == 0 {
		return 0
	}
	return int(math.Round(weightedSum / float64(totalQuestions)))
}

// newStorageKey builds the per-attempt result key, embedding the creation
// timestamp for the history view's chronological ordering.
func newStorageKey(at time.Time) string {
	return fmt.Sprintf("result_%d_%s", at.UnixMilli(), uuid.NewString())
}
