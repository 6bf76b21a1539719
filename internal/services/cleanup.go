package services

import (
	"context"
	"fmt"
	"time"

	"eventregistry/internal/domain"
)

type cleanupService struct {
	*core
	retention domain.RetentionPolicy
}

// NewCleanupService returns the retention sweeper. Categories missing from
// retention fall back to the default windows.
func NewCleanupService(d Deps, retention domain.RetentionPolicy) domain.CleanupService {
	policy := domain.DefaultRetentionPolicy()
	for c, window := range retention {
		if window > 0 {
			policy[c] = window
		}
	}
	return &cleanupService{core: newCore(d), retention: policy}
}

// Run purges each selected category independently. A category failure is
// reported in the summary and the remaining categories still run; only an
// unreachable database aborts the run.
func (s *cleanupService) Run(ctx context.Context, selection domain.CleanupSelection) (*domain.CleanupSummary, error) {
	repos := s.store.Repos()
	if err := repos.Cleanup.Ping(ctx); err != nil {
		return nil, fmt.Errorf("cleanup: database unavailable: %w", err)
	}

	now := s.clock.Now()
	summary := &domain.CleanupSummary{
		Results: make(map[domain.CleanupCategory]int64),
		Errors:  make([]string, 0),
	}
	for _, category := range domain.CleanupCategories {
		if !selection[category] {
			continue
		}
		cutoff := now.Add(-s.retention[category])
		n, err := s.purge(ctx, repos, category, cutoff)
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", category, err))
			s.metrics.CleanupFailed(string(category))
			s.log.Error("cleanup category failed", "category", category, "error", err)
			continue
		}
		summary.Results[category] = n
		s.metrics.CleanupDeleted(string(category), n)
		s.log.Info("cleanup category done", "category", category, "deleted", n, "cutoff", cutoff)
	}
	summary.Success = len(summary.Errors) == 0

	details := map[string]any{"results": summary.Results}
	if len(summary.Errors) > 0 {
		details["errors"] = summary.Errors
	}
	if err := s.recordRun(ctx, repos, now, details); err != nil {
		s.log.Error("record cleanup run", "error", err)
	}
	return summary, nil
}

func (s *cleanupService) recordRun(ctx context.Context, repos domain.Repositories, now time.Time, details map[string]any) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return audit(ctx, repos, now, "cleanup_run", "cleanup", now.Format(time.RFC3339), domain.SystemActor, details)
}

func (s *cleanupService) purge(ctx context.Context, repos domain.Repositories, category domain.CleanupCategory, cutoff time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return repos.Cleanup.Purge(ctx, category, cutoff)
}
