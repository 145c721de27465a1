package exam

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

const (
	testPhaseDuration = 10 * time.Minute
	testBreakDuration = 2 * time.Minute
)

// newTestSequencer returns a sequencer pinned to a controllable clock.
func newTestSequencer(t *testing.T) (*Sequencer, *time.Time) {
	t.Helper()
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s := NewSequencer(testBank(t), zap.NewNop(), testPhaseDuration, testBreakDuration)
	s.now = func() time.Time { return clock }
	return s, &clock
}

func TestInit(t *testing.T) {
	s, clock := newTestSequencer(t)

	a, err := s.Init(SubjectMath, "Mona", "ORG-ABC123")
	if err != nil {
		t.Fatalf("Init returned error: %v", err)
	}
	if a.State != StatePhaseActive {
		t.Errorf("State = %v, want %v", a.State, StatePhaseActive)
	}
	if got := len(a.Phases); got != 8 {
		t.Errorf("len(Phases) = %d, want 8 for a teaching subject", got)
	}
	if current, ok := a.CurrentPhase(); !ok || current.Main != "behavioral" {
		t.Errorf("CurrentPhase = %v, %v; want behavioral, true", current, ok)
	}
	if want := clock.Add(testPhaseDuration); !a.PhaseDeadline.Equal(want) {
		t.Errorf("PhaseDeadline = %v, want %v", a.PhaseDeadline, want)
	}
}

func TestInitRejectsSecondAttempt(t *testing.T) {
	s, _ := newTestSequencer(t)

	if _, err := s.Init(SubjectMail, "Mona", ""); err != nil {
		t.Fatalf("first Init returned error: %v", err)
	}
	if _, err := s.Init(SubjectMail, "Mona", ""); !errors.Is(err, ErrExamActive) {
		t.Errorf("second Init error = %v, want ErrExamActive", err)
	}
}

func TestInitUnknownSubjectGetsMailPhases(t *testing.T) {
	s, _ := newTestSequencer(t)

	a, err := s.Init("alchemy", "Mona", "")
	if err != nil {
		t.Fatalf("Init returned error: %v", err)
	}
	if got := len(a.Phases); got != 7 {
		t.Errorf("len(Phases) = %d, want 7 (mail list)", got)
	}
}

func TestSubmitAnswer(t *testing.T) {
	s, _ := newTestSequencer(t)
	a, _ := s.Init(SubjectMail, "Mona", "")

	behavioral := PhaseID{Main: "behavioral"}
	if err := s.SubmitAnswer(behavioral, "q1", 0); err != nil {
		t.Fatalf("SubmitAnswer returned error: %v", err)
	}
	// Overwriting an answer before the phase ends is allowed.
	if err := s.SubmitAnswer(behavioral, "q1", 2); err != nil {
		t.Fatalf("SubmitAnswer overwrite returned error: %v", err)
	}
	if got := a.Answers["behavioral"]["q1"]; got != 2 {
		t.Errorf("stored answer = %d, want 2", got)
	}

	if err := s.SubmitAnswer(PhaseID{Main: "specialization"}, "s1", 0); !errors.Is(err, ErrPhaseNotActive) {
		t.Errorf("future-phase answer error = %v, want ErrPhaseNotActive", err)
	}
}

func TestSubmitAnswerWithoutAttempt(t *testing.T) {
	s, _ := newTestSequencer(t)
	if err := s.SubmitAnswer(PhaseID{Main: "behavioral"}, "q1", 0); !errors.Is(err, ErrNoAttempt) {
		t.Errorf("error = %v, want ErrNoAttempt", err)
	}
}

func TestFinalizePhase(t *testing.T) {
	s, clock := newTestSequencer(t)
	a, _ := s.Init(SubjectMail, "Mona", "")

	behavioral := PhaseID{Main: "behavioral"}
	if err := s.SubmitAnswer(behavioral, "q1", 0); err != nil {
		t.Fatalf("SubmitAnswer returned error: %v", err)
	}
	if err := s.FinalizePhase(behavioral); err != nil {
		t.Fatalf("FinalizePhase returned error: %v", err)
	}

	if a.State != StateBreakActive {
		t.Errorf("State = %v, want %v", a.State, StateBreakActive)
	}
	if !a.Completed["behavioral"] {
		t.Error("behavioral not marked completed")
	}
	if score, ok := a.PhaseScores["behavioral"]; !ok || score.Percentage != 100 {
		t.Errorf("PhaseScores[behavioral] = %+v, %v; want 100%%", score, ok)
	}
	if want := clock.Add(testBreakDuration); !a.BreakDeadline.Equal(want) {
		t.Errorf("BreakDeadline = %v, want %v", a.BreakDeadline, want)
	}

	// Sealed phases reject further answers.
	if err := s.SubmitAnswer(behavioral, "q2", 1); !errors.Is(err, ErrPhaseNotActive) {
		t.Errorf("answer after finalize error = %v, want ErrPhaseNotActive", err)
	}
}

func TestFinalizePhaseRejectsOutOfOrder(t *testing.T) {
	s, _ := newTestSequencer(t)
	a, _ := s.Init(SubjectMail, "Mona", "")

	before := *a
	if err := s.FinalizePhase(PhaseID{Main: "specialization"}); !errors.Is(err, ErrPhaseNotActive) {
		t.Fatalf("error = %v, want ErrPhaseNotActive", err)
	}
	if a.State != before.State || a.CurrentIndex != before.CurrentIndex {
		t.Error("rejected finalize mutated the attempt")
	}
	if len(a.Completed) != 0 {
		t.Errorf("Completed = %v, want empty", a.Completed)
	}
}

func TestTickAdvancesOnDeadline(t *testing.T) {
	s, clock := newTestSequencer(t)
	a, _ := s.Init(SubjectMail, "Mona", "")
	start := *clock

	// Before the deadline nothing moves.
	s.Tick(start.Add(testPhaseDuration - time.Second))
	if a.State != StatePhaseActive || a.CurrentIndex != 0 {
		t.Fatalf("early tick changed state: %v index %d", a.State, a.CurrentIndex)
	}

	// At the deadline the phase seals and the break opens.
	s.Tick(start.Add(testPhaseDuration))
	if a.State != StateBreakActive {
		t.Fatalf("State = %v, want %v", a.State, StateBreakActive)
	}

	// Break deadline anchors at the phase boundary, not the tick time.
	if want := start.Add(testPhaseDuration + testBreakDuration); !a.BreakDeadline.Equal(want) {
		t.Errorf("BreakDeadline = %v, want %v", a.BreakDeadline, want)
	}

	// After the break the next phase opens with a full fresh window.
	s.Tick(a.BreakDeadline.Add(30 * time.Second))
	if a.State != StatePhaseActive || a.CurrentIndex != 1 {
		t.Fatalf("State = %v index %d, want phase 1 active", a.State, a.CurrentIndex)
	}
	if want := start.Add(2*testPhaseDuration + testBreakDuration); !a.PhaseDeadline.Equal(want) {
		t.Errorf("PhaseDeadline = %v, want %v", a.PhaseDeadline, want)
	}
}

func TestTickIsIdempotent(t *testing.T) {
	s, clock := newTestSequencer(t)
	a, _ := s.Init(SubjectMail, "Mona", "")

	at := clock.Add(testPhaseDuration)
	s.Tick(at)
	first := *a
	s.Tick(at)
	s.Tick(at)
	if a.State != first.State || a.CurrentIndex != first.CurrentIndex || !a.BreakDeadline.Equal(first.BreakDeadline) {
		t.Error("repeated tick at the same instant changed the attempt")
	}
}

func TestTickCatchesUpThroughMissedBoundaries(t *testing.T) {
	s, clock := newTestSequencer(t)
	a, _ := s.Init(SubjectMail, "Mona", "")

	// A tab backgrounded for hours fires one tick far past every deadline.
	s.Tick(clock.Add(24 * time.Hour))

	if a.State != StateCompleted {
		t.Fatalf("State = %v, want %v", a.State, StateCompleted)
	}
	if !a.ExamCompleted {
		t.Error("ExamCompleted = false, want true")
	}
	if got := len(a.Completed); got != len(a.Phases) {
		t.Errorf("completed %d phases, want %d", got, len(a.Phases))
	}
	for _, phase := range a.Phases {
		if _, ok := a.PhaseScores[phase.String()]; !ok {
			t.Errorf("phase %s has no score", phase)
		}
	}
}

func TestRemainingSeconds(t *testing.T) {
	s, clock := newTestSequencer(t)
	_, _ = s.Init(SubjectMail, "Mona", "")

	if got := s.RemainingSeconds(*clock); got != int(testPhaseDuration/time.Second) {
		t.Errorf("RemainingSeconds at start = %d, want %d", got, int(testPhaseDuration/time.Second))
	}
	if got := s.RemainingSeconds(clock.Add(testPhaseDuration + time.Minute)); got != 0 {
		t.Errorf("RemainingSeconds past deadline = %d, want 0", got)
	}
}

func TestRecordResult(t *testing.T) {
	s, clock := newTestSequencer(t)
	a, _ := s.Init(SubjectMail, "Mona", "")

	if err := s.RecordResult(Result{StorageKey: "early"}); !errors.Is(err, ErrExamNotCompleted) {
		t.Fatalf("error before completion = %v, want ErrExamNotCompleted", err)
	}

	s.Tick(clock.Add(24 * time.Hour))
	if err := s.RecordResult(Result{StorageKey: "first"}); err != nil {
		t.Fatalf("RecordResult returned error: %v", err)
	}
	if err := s.RecordResult(Result{StorageKey: "second"}); err != nil {
		t.Fatalf("second RecordResult returned error: %v", err)
	}
	if a.Result == nil || a.Result.StorageKey != "first" {
		t.Errorf("Result = %+v, want the first recorded result kept", a.Result)
	}
}

func TestAbandon(t *testing.T) {
	s, _ := newTestSequencer(t)
	_, _ = s.Init(SubjectMail, "Mona", "")

	s.Abandon()
	if s.Attempt() != nil {
		t.Fatal("Attempt() != nil after Abandon")
	}
	// A fresh start is allowed after abandonment.
	if _, err := s.Init(SubjectMath, "Mona", ""); err != nil {
		t.Errorf("Init after Abandon returned error: %v", err)
	}
}
