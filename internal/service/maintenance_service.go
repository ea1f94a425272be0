package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/shift-roster-api/pkg/jobs"
)

// Maintenance job kinds.
const (
	JobSweepBatches   = "sweep_batches"
	JobCleanupReports = "cleanup_reports"
)

const staleBatchReason = "abandoned: still in progress after the stale window"

type staleBatchSweeper interface {
	MarkStaleFailed(ctx context.Context, cutoff time.Time, reason string) (int64, error)
}

type reportCleaner interface {
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// MaintenanceService fails batch records left in progress by a crashed writer and prunes
// old archived reports.
type MaintenanceService struct {
	batches    staleBatchSweeper
	reports    reportCleaner
	staleAfter time.Duration
	retention  time.Duration
	logger     *zap.Logger
}

// NewMaintenanceService builds the service. reports may be nil when archiving is disabled.
func NewMaintenanceService(batches staleBatchSweeper, reports reportCleaner, staleAfter, retention time.Duration, logger *zap.Logger) *MaintenanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if staleAfter <= 0 {
		staleAfter = 24 * time.Hour
	}
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	return &MaintenanceService{
		batches:    batches,
		reports:    reports,
		staleAfter: staleAfter,
		retention:  retention,
		logger:     logger,
	}
}

// SweepBatches marks batches older than the stale window as failed.
func (s *MaintenanceService) SweepBatches(ctx context.Context, staleAfter time.Duration) (int64, error) {
	if staleAfter <= 0 {
		staleAfter = s.staleAfter
	}
	swept, err := s.batches.MarkStaleFailed(ctx, time.Now().UTC().Add(-staleAfter), staleBatchReason)
	if err != nil {
		return 0, err
	}
	if swept > 0 {
		s.logger.Warn("stale batches marked failed", zap.Int64("count", swept))
	}
	return swept, nil
}

// CleanupReports removes archived reports past retention.
func (s *MaintenanceService) CleanupReports() ([]string, error) {
	if s.reports == nil {
		return nil, nil
	}
	removed, err := s.reports.CleanupOlderThan(s.retention)
	if err != nil {
		return nil, err
	}
	if len(removed) > 0 {
		s.logger.Info("archived reports removed", zap.Int("count", len(removed)))
	}
	return removed, nil
}

// Handle is the jobs.Handler for maintenance queues.
func (s *MaintenanceService) Handle(ctx context.Context, job jobs.Job) error {
	switch job.Kind {
	case JobSweepBatches:
		_, err := s.SweepBatches(ctx, 0)
		return err
	case JobCleanupReports:
		_, err := s.CleanupReports()
		return err
	default:
		s.logger.Warn("unknown maintenance job", zap.String("kind", job.Kind))
		return nil
	}
}
