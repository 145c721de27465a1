// bank.go
package bank

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Question is a single immutable catalog entry. Options order is meaningful:
// a learner's answer is the index of the chosen option. Points, when present,
// carries one weight per option and marks the question as weighted-scored.
type Question struct {
	ID            string    `yaml:"id" json:"id"`
	Text          string    `yaml:"text" json:"text"`
	Options       []string  `yaml:"options" json:"options"`
	CorrectAnswer int       `yaml:"correct_answer" json:"correctAnswer"`
	Points        []float64 `yaml:"points,omitempty" json:"points,omitempty"`
}

// MaxPoints returns the per-question ceiling for weighted scoring.
func (q Question) MaxPoints() float64 {
	max := 0.0
	for _, p := range q.Points {
		if p > max {
			max = p
		}
	}
	return max
}

// Weighted reports whether the question carries a points array.
func (q Question) Weighted() bool {
	return len(q.Points) > 0
}

// PhaseSet is the question material for one phase, either directly or split
// into named sub-phases (e.g. language -> arabic / english).
type PhaseSet struct {
	Questions []Question          `yaml:"questions,omitempty"`
	SubPhases map[string]QuestionGroup `yaml:"subphases,omitempty"`
}

// QuestionGroup is a flat list of questions under a sub-phase key.
type QuestionGroup struct {
	Questions []Question `yaml:"questions"`
}

// SubjectCatalog maps phase keys to their question material for one subject.
type SubjectCatalog struct {
	Phases map[string]PhaseSet `yaml:"phases"`
}

// Bank is the versioned question catalog. Several subjects share phases
// (behavioral, language, knowledge) defined once under a canonical subject;
// lookups for a subject that lacks a phase fall back to that subject.
type Bank struct {
	Version        string                    `yaml:"version"`
	Subjects       map[string]SubjectCatalog `yaml:"subjects"`
	defaultSubject string
}

// Load reads and parses the questions catalog file.
func Load(path, defaultSubject string) (*Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read question bank: %w", err)
	}

	var b Bank
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to unmarshal question bank YAML: %w", err)
	}
	b.defaultSubject = defaultSubject

	if err := b.validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

// validate enforces the catalog invariants: 2-5 options per question, a
// points array (when present) matching the options length with finite
// non-negative weights.
func (b *Bank) validate() error {
	if len(b.Subjects) == 0 {
		return fmt.Errorf("question bank has no subjects")
	}
	if _, ok := b.Subjects[b.defaultSubject]; !ok {
		return fmt.Errorf("question bank missing canonical subject %q", b.defaultSubject)
	}
	for subject, cat := range b.Subjects {
		for phase, set := range cat.Phases {
			if err := validateQuestions(set.Questions); err != nil {
				return fmt.Errorf("subject %s phase %s: %w", subject, phase, err)
			}
			for sub, group := range set.SubPhases {
				if err := validateQuestions(group.Questions); err != nil {
					return fmt.Errorf("subject %s phase %s_%s: %w", subject, phase, sub, err)
				}
			}
		}
	}
	return nil
}

func validateQuestions(questions []Question) error {
	for _, q := range questions {
		if q.ID == "" {
			return fmt.Errorf("question with empty id")
		}
		if len(q.Options) < 2 || len(q.Options) > 5 {
			return fmt.Errorf("question %s: expected 2-5 options, got %d", q.ID, len(q.Options))
		}
		if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
			return fmt.Errorf("question %s: correct_answer %d out of range", q.ID, q.CorrectAnswer)
		}
		if len(q.Points) == 0 {
			continue
		}
		if len(q.Points) != len(q.Options) {
			return fmt.Errorf("question %s: %d points for %d options", q.ID, len(q.Points), len(q.Options))
		}
		for _, p := range q.Points {
			if p < 0 || math.IsNaN(p) || math.IsInf(p, 0) {
				return fmt.Errorf("question %s: invalid point weight %v", q.ID, p)
			}
		}
	}
	return nil
}

// Resolve returns the effective question set for (subject, mainPhase, subPhase).
// A subject that lacks the phase (or the whole subject being unknown) resolves
// against the canonical default subject instead, never an empty miss unless
// the default subject also lacks it.
func (b *Bank) Resolve(subject, mainPhase, subPhase string) []Question {
	if qs, ok := b.lookup(subject, mainPhase, subPhase); ok {
		return qs
	}
	if subject != b.defaultSubject {
		if qs, ok := b.lookup(b.defaultSubject, mainPhase, subPhase); ok {
			return qs
		}
	}
	return nil
}

func (b *Bank) lookup(subject, mainPhase, subPhase string) ([]Question, bool) {
	cat, ok := b.Subjects[subject]
	if !ok {
		return nil, false
	}
	set, ok := cat.Phases[mainPhase]
	if !ok {
		return nil, false
	}
	if subPhase == "" {
		if len(set.Questions) == 0 {
			return nil, false
		}
		return set.Questions, true
	}
	group, ok := set.SubPhases[subPhase]
	if !ok || len(group.Questions) == 0 {
		return nil, false
	}
	return group.Questions, true
}

// HasSubject reports whether the subject exists in the catalog.
func (b *Bank) HasSubject(subject string) bool {
	_, ok := b.Subjects[subject]
	return ok
}
