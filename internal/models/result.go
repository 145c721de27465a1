package models

import (
	"encoding/json"
	"time"

	"github.com/thomas-x-69/exams-sub001/internal/exam"
)

// ResultRecord is one finished attempt's durable result. Rows are append-only
// and never updated; StorageKey embeds the creation timestamp and uniquely
// identifies the attempt.
type ResultRecord struct {
	ID          uint   `gorm:"primaryKey"`
	StorageKey  string `gorm:"uniqueIndex"`
	TotalScore  int
	PhaseScores json.RawMessage `gorm:"type:jsonb"`
	CompletedAt time.Time
	UserName    string
	Subject     string `gorm:"index"`
	OrgCode     string

	CreatedAt time.Time
}

// FromResult captures an aggregated result into a persistable row.
func (r *ResultRecord) FromResult(res exam.Result) error {
	scores, err := json.Marshal(res.PhaseScores)
	if err != nil {
		return err
	}
	r.StorageKey = res.StorageKey
	r.TotalScore = res.TotalScore
	r.PhaseScores = scores
	r.CompletedAt = res.CompletedAt
	r.UserName = res.UserName
	r.Subject = res.Subject
	r.OrgCode = res.OrgCode
	return nil
}

// ToResult rebuilds the domain result from a persisted row.
func (r *ResultRecord) ToResult() (exam.Result, error) {
	res := exam.Result{
		StorageKey:  r.StorageKey,
		TotalScore:  r.TotalScore,
		PhaseScores: map[string]int{},
		CompletedAt: r.CompletedAt,
		UserName:    r.UserName,
		Subject:     r.Subject,
		OrgCode:     r.OrgCode,
	}
	if len(r.PhaseScores) > 0 {
		if err := json.Unmarshal(r.PhaseScores, &res.PhaseScores); err != nil {
			return exam.Result{}, err
		}
	}
	return res, nil
}
