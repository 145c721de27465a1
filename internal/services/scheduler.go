package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/thomas-x-69/exams-sub001/internal/repository"
)

// Scheduler periodically purges abandoned attempt rows. A learner who closes
// the tab without the leave beacon firing leaves an active attempt behind;
// after maxAge it is garbage.
type Scheduler struct {
	log    *zap.Logger
	maxAge time.Duration
}

func NewScheduler(log *zap.Logger, maxAge time.Duration) *Scheduler {
	return &Scheduler{
		log:    log,
		maxAge: maxAge,
	}
}

// Start runs the scheduler in a goroutine.
func (s *Scheduler) Start() {
	s.log.Info("Starting attempt reaper...")
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()

		for {
			<-ticker.C
			s.runPurge()
		}
	}()
}

func (s *Scheduler) runPurge() {
	purged, err := repository.PurgeAbandoned(context.Background(), s.maxAge)
	if err != nil {
		s.log.Error("Failed to purge abandoned attempts", zap.Error(err))
		return
	}
	if purged > 0 {
		s.log.Info("Purged abandoned attempts", zap.Int64("count", purged))
	}
}
