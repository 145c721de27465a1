// internal/repository/charts.go
package repository

import (
	"context"
	"time"

	"github.com/thomas-x-69/exams-sub001/internal/database"
	"github.com/thomas-x-69/exams-sub001/internal/models"
)

type TimelineDataPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

type SubjectAverage struct {
	Subject string  `json:"subject"`
	Average float64 `json:"average"`
	Count   int64   `json:"count"`
}

// GetScoreTimeline returns the total score of every finished attempt in
// completion order, optionally restricted to one subject. Feeds the history
// line chart.
func GetScoreTimeline(ctx context.Context, subject string) ([]TimelineDataPoint, error) {
	var data []TimelineDataPoint

	query := database.DB.WithContext(ctx).
		Model(&models.ResultRecord{}).
		Select("completed_at as date, total_score as value").
		Order("completed_at ASC")
	if subject != "" {
		query = query.Where("subject = ?", subject)
	}

	err := query.Scan(&data).Error
	return data, err
}

// GetSubjectAverages returns the mean total score per subject across all
// finished attempts. Feeds the history bar chart.
func GetSubjectAverages(ctx context.Context) ([]SubjectAverage, error) {
	var data []SubjectAverage
	err := database.DB.WithContext(ctx).
		Model(&models.ResultRecord{}).
		Select("subject, AVG(total_score) as average, COUNT(*) as count").
		Group("subject").
		Order("subject").
		Scan(&data).Error
	return data, err
}
