package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"eventregistry/internal/domain"
)

// Config holds scheduler configuration.
type Config struct {
	// Schedule is a five-field cron expression. Empty disables the sweeper.
	Schedule string
	// Timeout bounds a single sweeper run.
	Timeout time.Duration
}

// Scheduler runs the retention sweeper on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	cleanup domain.CleanupService
	config  Config
	logger  *slog.Logger

	stopOnce sync.Once
}

// New creates a new Scheduler. Overlapping runs are skipped.
func New(cfg Config, cleanup domain.CleanupService, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return &Scheduler{
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		cleanup: cleanup,
		config:  cfg,
		logger:  logger,
	}
}

// Start registers the sweeper job and starts the cron loop. The scheduler
// stops when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.config.Schedule == "" {
		s.logger.Info("cleanup scheduler disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(s.config.Schedule, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", s.config.Schedule, err)
	}
	s.cron.Start()
	s.logger.Info("cleanup scheduler started", "schedule", s.config.Schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// RunOnce performs one sweeper run over every category and logs the summary.
func (s *Scheduler) RunOnce(ctx context.Context) *domain.CleanupSummary {
	if ctx.Err() != nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	summary, err := s.cleanup.Run(ctx, domain.SelectAll())
	if err != nil {
		s.logger.Error("scheduled cleanup aborted", "err", err)
		return nil
	}
	if len(summary.Errors) > 0 {
		s.logger.Warn("scheduled cleanup finished with errors", "results", summary.Results, "errors", summary.Errors)
	} else {
		s.logger.Info("scheduled cleanup finished", "results", summary.Results)
	}
	return summary
}

// Stop waits for a running job to finish. Safe to call multiple times.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		<-s.cron.Stop().Done()
		s.logger.Info("cleanup scheduler stopped")
	})
}
