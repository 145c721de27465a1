package exam

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/thomas-x-69/exams-sub001/internal/bank"
)

// State of an exam attempt.
type State string

const (
	StateNotStarted  State = "not_started"
	StatePhaseActive State = "phase_active"
	StateBreakActive State = "break_active"
	StateCompleted   State = "completed"
)

var (
	ErrExamActive     = errors.New("an exam attempt is already active")
	ErrNoAttempt      = errors.New("no exam attempt in progress")
	ErrPhaseNotActive = errors.New("phase is not the current active phase")
	ErrExamCompleted  = errors.New("exam already completed")
)

// Attempt is the unit of work for one learner session and the single mutable
// object of the core. Only the Sequencer mutates it; everything else reads
// snapshots. Deadlines are absolute wall-clock timestamps so remaining time
// survives reloads and backgrounded tabs.
type Attempt struct {
	Subject  string `json:"subject"`
	UserName string `json:"userName"`
	OrgCode  string `json:"organizationCode"`

	Phases []PhaseID `json:"phases"`

	// Answers maps phase key -> question id -> selected option index.
	Answers map[string]map[string]int `json:"answers"`

	// Completed holds phase keys whose timer elapsed or that were finalized.
	Completed   map[string]bool        `json:"completedPhases"`
	PhaseScores map[string]PhaseResult `json:"phaseScores"`

	CurrentIndex  int       `json:"currentIndex"`
	State         State     `json:"state"`
	StartedAt     time.Time `json:"startedAt"`
	PhaseDeadline time.Time `json:"phaseDeadline"`
	BreakDeadline time.Time `json:"breakDeadline"`

	ExamCompleted bool    `json:"examCompleted"`
	Result        *Result `json:"currentResult,omitempty"`
}

// CurrentPhase returns the active phase id; ok is false when no phase is
// active (not started, on break, or completed).
func (a *Attempt) CurrentPhase() (PhaseID, bool) {
	if a.State != StatePhaseActive || a.CurrentIndex >= len(a.Phases) {
		return PhaseID{}, false
	}
	return a.Phases[a.CurrentIndex], true
}

// Sequencer owns phase ordering, timers and transitions for one attempt.
// It is re-entered only through discrete calls (answer, finalize, tick);
// every tick is evaluated against absolute deadlines, so repeated or delayed
// firing is idempotent.
type Sequencer struct {
	bank          *bank.Bank
	log           *zap.Logger
	phaseDuration time.Duration
	breakDuration time.Duration

	now func() time.Time

	attempt *Attempt
}

// NewSequencer builds a sequencer with no attempt attached.
func NewSequencer(b *bank.Bank, log *zap.Logger, phaseDuration, breakDuration time.Duration) *Sequencer {
	return &Sequencer{
		bank:          b,
		log:           log,
		phaseDuration: phaseDuration,
		breakDuration: breakDuration,
		now:           time.Now,
	}
}

// Attach adopts a previously persisted attempt.
func (s *Sequencer) Attach(a *Attempt) {
	s.attempt = a
}

// Attempt exposes the current attempt for persistence and snapshots.
func (s *Sequencer) Attempt() *Attempt {
	return s.attempt
}

// Init starts a fresh attempt. Valid only when no attempt is active; name and
// subject are fixed for the attempt's lifetime. An unknown subject still gets
// a full exam via the mail phase list.
func (s *Sequencer) Init(subject, userName, orgCode string) (*Attempt, error) {
	if s.attempt != nil && s.attempt.State != StateNotStarted && s.attempt.State != StateCompleted {
		return nil, ErrExamActive
	}

	if !KnownSubject(subject) {
		s.log.Warn("Unknown subject requested, falling back to mail phase list",
			zap.String("subject", subject))
	}

	now := s.now()
	a := &Attempt{
		Subject:       subject,
		UserName:      userName,
		OrgCode:       orgCode,
		Phases:        PhasesFor(subject),
		Answers:       map[string]map[string]int{},
		Completed:     map[string]bool{},
		PhaseScores:   map[string]PhaseResult{},
		State:         StatePhaseActive,
		StartedAt:     now,
		PhaseDeadline: now.Add(s.phaseDuration),
	}
	s.attempt = a

	s.log.Info("Exam attempt started",
		zap.String("subject", subject),
		zap.String("user", userName),
		zap.Int("phases", len(a.Phases)),
	)
	return a, nil
}

// SubmitAnswer records an answer for the active phase. Answers for any other
// phase are rejected: finalized phases are immutable and future phases are
// not open yet.
func (s *Sequencer) SubmitAnswer(phase PhaseID, questionID string, selected int) error {
	a := s.attempt
	if a == nil {
		return ErrNoAttempt
	}
	if a.State == StateCompleted {
		return ErrExamCompleted
	}
	current, ok := a.CurrentPhase()
	if !ok || current != phase {
		return ErrPhaseNotActive
	}

	key := phase.String()
	if a.Answers[key] == nil {
		a.Answers[key] = map[string]int{}
	}
	a.Answers[key][questionID] = selected
	return nil
}

// FinalizePhase ends the given phase ahead of its deadline. Acting on any
// phase other than the current active one is rejected with the state
// unchanged; phases cannot complete out of order.
func (s *Sequencer) FinalizePhase(phase PhaseID) error {
	a := s.attempt
	if a == nil {
		return ErrNoAttempt
	}
	if a.State == StateCompleted {
		return ErrExamCompleted
	}
	current, ok := a.CurrentPhase()
	if !ok || current != phase {
		return ErrPhaseNotActive
	}

	s.finalizeCurrent(s.now())
	return nil
}

// Tick advances the state machine against the wall clock. Expired phase
// deadlines finalize their phase, expired breaks open the next phase.
// Transitions chain off the stored absolute deadlines rather than now, so a
// long-backgrounded tab catches up through every boundary it slept past.
func (s *Sequencer) Tick(now time.Time) {
	a := s.attempt
	if a == nil {
		return
	}
	for {
		switch a.State {
		case StatePhaseActive:
			if now.Before(a.PhaseDeadline) {
				return
			}
			s.finalizeCurrent(a.PhaseDeadline)
		case StateBreakActive:
			if now.Before(a.BreakDeadline) {
				return
			}
			s.openNextPhase(a.BreakDeadline)
		default:
			return
		}
	}
}

// RemainingSeconds derives the current countdown from the absolute deadline.
func (s *Sequencer) RemainingSeconds(now time.Time) int {
	a := s.attempt
	if a == nil {
		return 0
	}
	var deadline time.Time
	switch a.State {
	case StatePhaseActive:
		deadline = a.PhaseDeadline
	case StateBreakActive:
		deadline = a.BreakDeadline
	default:
		return 0
	}
	remaining := int(deadline.Sub(now) / time.Second)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RecordResult attaches the aggregated result to a completed attempt. The
// sequencer is the only component that mutates the attempt, so the aggregator
// hands the result back through here. Set exactly once; later calls are
// no-ops to keep the result immutable.
func (s *Sequencer) RecordResult(r Result) error {
	a := s.attempt
	if a == nil {
		return ErrNoAttempt
	}
	if !a.ExamCompleted {
		return ErrExamNotCompleted
	}
	if a.Result == nil {
		a.Result = &r
	}
	return nil
}

// Abandon discards the in-progress attempt. Reloading or navigating away
// mid-exam is abandonment, not resumption; a learner cannot reset a timer by
// reloading.
func (s *Sequencer) Abandon() {
	if s.attempt == nil {
		return
	}
	s.log.Info("Exam attempt abandoned",
		zap.String("subject", s.attempt.Subject),
		zap.String("user", s.attempt.UserName),
	)
	s.attempt = nil
}

// finalizeCurrent scores and seals the active phase at the given boundary
// time, then either opens the break before the next phase or completes the
// exam.
func (s *Sequencer) finalizeCurrent(at time.Time) {
	a := s.attempt
	phase := a.Phases[a.CurrentIndex]
	key := phase.String()

	a.Completed[key] = true
	a.PhaseScores[key] = ScorePhase(s.bank, a.Subject, phase, a.Answers[key])

	s.log.Debug("Phase finalized",
		zap.String("phase", key),
		zap.Int("percentage", a.PhaseScores[key].Percentage),
	)

	if a.CurrentIndex+1 < len(a.Phases) {
		a.State = StateBreakActive
		a.BreakDeadline = at.Add(s.breakDuration)
		return
	}

	a.State = StateCompleted
	a.ExamCompleted = true
}

// openNextPhase moves from a break into the next phase with a fresh
// full-duration deadline anchored at the break boundary.
func (s *Sequencer) openNextPhase(at time.Time) {
	a := s.attempt
	a.CurrentIndex++
	a.State = StatePhaseActive
	a.PhaseDeadline = at.Add(s.phaseDuration)
}
