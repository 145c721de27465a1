// internal/repository/results.go
package repository

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/thomas-x-69/exams-sub001/internal/database"
	"github.com/thomas-x-69/exams-sub001/internal/exam"
	"github.com/thomas-x-69/exams-sub001/internal/models"
)

// ResultStore is the GORM-backed implementation of exam.ResultStore.
type ResultStore struct {
	log *zap.Logger
}

func NewResultStore(log *zap.Logger) *ResultStore {
	return &ResultStore{log: log}
}

// Save appends the result. Idempotent per storage key: an existing row is
// left untouched, never updated.
func (s *ResultStore) Save(ctx context.Context, r exam.Result) error {
	var existing models.ResultRecord
	err := database.DB.WithContext(ctx).First(&existing, "storage_key = ?", r.StorageKey).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	var record models.ResultRecord
	if err := record.FromResult(r); err != nil {
		return err
	}
	return database.DB.WithContext(ctx).Create(&record).Error
}

// ListResults returns persisted results for the history view, optionally
// filtered by subject. sortBy is one of "newest", "oldest", "score".
// A row that fails to parse is skipped, not fatal: a corrupted record is
// treated as absent.
func ListResults(ctx context.Context, subject, sortBy string, log *zap.Logger) ([]exam.Result, error) {
	query := database.DB.WithContext(ctx).Model(&models.ResultRecord{})
	if subject != "" {
		query = query.Where("subject = ?", subject)
	}

	switch sortBy {
	case "oldest":
		query = query.Order("completed_at ASC")
	case "score":
		query = query.Order("total_score DESC")
	default:
		query = query.Order("completed_at DESC")
	}

	var records []models.ResultRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}

	results := make([]exam.Result, 0, len(records))
	for _, record := range records {
		r, err := record.ToResult()
		if err != nil {
			log.Warn("Skipping corrupted result record",
				zap.String("storage_key", record.StorageKey),
				zap.Error(err))
			continue
		}
		results = append(results, r)
	}
	return results, nil
}

// GetResult loads a single persisted result by storage key.
func GetResult(ctx context.Context, storageKey string) (exam.Result, error) {
	var record models.ResultRecord
	if err := database.DB.WithContext(ctx).First(&record, "storage_key = ?", storageKey).Error; err != nil {
		return exam.Result{}, err
	}
	return record.ToResult()
}

// DeleteResult removes a result from the history. Deletion is the one
// destructive operation the history view offers.
func DeleteResult(ctx context.Context, storageKey string) error {
	return database.DB.WithContext(ctx).Delete(&models.ResultRecord{}, "storage_key = ?", storageKey).Error
}
