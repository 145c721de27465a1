package models

import (
	"encoding/json"
	"time"

	"github.com/lib/pq"

	"github.com/thomas-x-69/exams-sub001/internal/exam"
)

// AttemptRecord is the persisted form of an in-progress exam attempt, keyed
// by the browser session. It backs reload-time recovery decisions: an active
// record with WasReloaded set means the learner left mid-exam and the attempt
// is discarded on the next load.
type AttemptRecord struct {
	ID         uint   `gorm:"primaryKey"`
	SessionKey string `gorm:"uniqueIndex"`

	Subject  string
	UserName string
	OrgCode  string

	ActiveExam  bool
	WasReloaded bool

	State         string
	CurrentIndex  int
	StartedAt     time.Time
	PhaseDeadline time.Time
	BreakDeadline time.Time
	ExamCompleted bool

	CompletedPhases pq.StringArray  `gorm:"type:text[]"`
	Answers         json.RawMessage `gorm:"type:jsonb"`
	PhaseScores     json.RawMessage `gorm:"type:jsonb"`
	Result          json.RawMessage `gorm:"type:jsonb"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// FromAttempt captures a domain attempt into a persistable row. JSON columns
// hold the nested maps; the completed-phase set flattens to a text array.
func (r *AttemptRecord) FromAttempt(a *exam.Attempt) error {
	r.Subject = a.Subject
	r.UserName = a.UserName
	r.OrgCode = a.OrgCode
	r.State = string(a.State)
	r.CurrentIndex = a.CurrentIndex
	r.StartedAt = a.StartedAt
	r.PhaseDeadline = a.PhaseDeadline
	r.BreakDeadline = a.BreakDeadline
	r.ExamCompleted = a.ExamCompleted
	r.ActiveExam = a.State == exam.StatePhaseActive || a.State == exam.StateBreakActive

	r.CompletedPhases = r.CompletedPhases[:0]
	for key := range a.Completed {
		r.CompletedPhases = append(r.CompletedPhases, key)
	}

	answers, err := json.Marshal(a.Answers)
	if err != nil {
		return err
	}
	r.Answers = answers

	scores, err := json.Marshal(a.PhaseScores)
	if err != nil {
		return err
	}
	r.PhaseScores = scores

	if a.Result != nil {
		result, err := json.Marshal(a.Result)
		if err != nil {
			return err
		}
		r.Result = result
	}
	return nil
}

// ToAttempt rebuilds the domain attempt from a persisted row. The phase list
// is re-derived from the subject rather than stored; it is a deterministic
// function of the subject.
func (r *AttemptRecord) ToAttempt() (*exam.Attempt, error) {
	a := &exam.Attempt{
		Subject:       r.Subject,
		UserName:      r.UserName,
		OrgCode:       r.OrgCode,
		Phases:        exam.PhasesFor(r.Subject),
		Answers:       map[string]map[string]int{},
		Completed:     map[string]bool{},
		PhaseScores:   map[string]exam.PhaseResult{},
		CurrentIndex:  r.CurrentIndex,
		State:         exam.State(r.State),
		StartedAt:     r.StartedAt,
		PhaseDeadline: r.PhaseDeadline,
		BreakDeadline: r.BreakDeadline,
		ExamCompleted: r.ExamCompleted,
	}

	for _, key := range r.CompletedPhases {
		a.Completed[key] = true
	}
	if len(r.Answers) > 0 {
		if err := json.Unmarshal(r.Answers, &a.Answers); err != nil {
			return nil, err
		}
	}
	if len(r.PhaseScores) > 0 {
		if err := json.Unmarshal(r.PhaseScores, &a.PhaseScores); err != nil {
			return nil, err
		}
	}
	if len(r.Result) > 0 {
		var result exam.Result
		if err := json.Unmarshal(r.Result, &result); err != nil {
			return nil, err
		}
		a.Result = &result
	}
	return a, nil
}
