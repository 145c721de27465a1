package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/thomas-x-69/exams-sub001/internal/database"
	"github.com/thomas-x-69/exams-sub001/internal/models"
)

// GetAttempt loads the attempt record for a browser session. Returns
// (nil, nil) when the session has no attempt.
func GetAttempt(ctx context.Context, sessionKey string) (*models.AttemptRecord, error) {
	var record models.AttemptRecord
	err := database.DB.WithContext(ctx).First(&record, "session_key = ?", sessionKey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// SaveAttempt persists the attempt record, creating or updating the row for
// its session key.
func SaveAttempt(ctx context.Context, record *models.AttemptRecord) error {
	if record.ID != 0 {
		return database.DB.WithContext(ctx).Save(record).Error
	}

	var existing models.AttemptRecord
	err := database.DB.WithContext(ctx).First(&existing, "session_key = ?", record.SessionKey).Error
	if err == nil {
		record.ID = existing.ID
		record.CreatedAt = existing.CreatedAt
		return database.DB.WithContext(ctx).Save(record).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return database.DB.WithContext(ctx).Create(record).Error
}

// DeleteAttempt removes the session's attempt record, if any.
func DeleteAttempt(ctx context.Context, sessionKey string) error {
	return database.DB.WithContext(ctx).Delete(&models.AttemptRecord{}, "session_key = ?", sessionKey).Error
}

// MarkReloaded flags an active attempt as having seen an unload event. The
// next load checks the flag to distinguish a real reload-to-abandon from
// in-app navigation. Best effort: the browser may be killed before the
// beacon fires.
func MarkReloaded(ctx context.Context, sessionKey string) error {
	return database.DB.WithContext(ctx).
		Model(&models.AttemptRecord{}).
		Where("session_key = ? AND active_exam = ?", sessionKey, true).
		Update("was_reloaded", true).Error
}

// PurgeAbandoned deletes attempt rows not touched within maxAge. Learners who
// closed the tab without the leave beacon firing leave stale rows behind.
func PurgeAbandoned(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge)
	tx := database.DB.WithContext(ctx).
		Where("updated_at < ?", cutoff).
		Delete(&models.AttemptRecord{})
	return tx.RowsAffected, tx.Error
}
