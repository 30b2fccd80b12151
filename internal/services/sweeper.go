package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const sweepBatchSize = 200

// ExpirationSweeper periodically closes in_progress attempts whose time
// limit elapsed without a submission arriving.
type ExpirationSweeper struct {
	attempts AttemptService
	logger   *slog.Logger
	cron     *cron.Cron
	schedule string
}

func NewExpirationSweeper(attempts AttemptService, schedule string, logger *slog.Logger) *ExpirationSweeper {
	return &ExpirationSweeper{
		attempts: attempts,
		logger:   logger,
		cron:     cron.New(),
		schedule: schedule,
	}
}

func (s *ExpirationSweeper) Start() error {
	_, err := s.cron.AddFunc(s.schedule, s.sweep)
	if err != nil {
		return fmt.Errorf("failed to schedule expiration sweep: %w", err)
	}

	s.cron.Start()
	s.logger.Info("Expiration sweep scheduled", "schedule", s.schedule)
	return nil
}

// Stop waits for a running sweep to finish.
func (s *ExpirationSweeper) Stop(ctx context.Context) error {
	done := s.cron.Stop().Done()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *ExpirationSweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	expired, err := s.attempts.ExpireOverdue(ctx, sweepBatchSize)
	if err != nil {
		s.logger.Error("Expiration sweep failed", "error", err)
		return
	}
	if expired > 0 {
		s.logger.Info("Expiration sweep finished", "expired", expired)
	}
}
