package scheduler

import (
	"context"
	"time"

	"github.com/fadedpez/contrast/internal/logging"
)

const (
	defaultRotationInterval = 24 * time.Hour
	defaultPruneInterval    = 7 * 24 * time.Hour
)

// AuditMaintainer is the index housekeeping surface of the audit archive
type AuditMaintainer interface {
	RotateIndices(ctx context.Context) error
	PruneOldIndices(ctx context.Context) ([]string, error)
}

// AuditMaintenanceScheduler manages scheduled maintenance tasks for the
// transaction audit indices
type AuditMaintenanceScheduler struct {
	scheduler *Scheduler
	archive   AuditMaintainer
	logger    *logging.Logger
}

// NewAuditMaintenanceScheduler creates a scheduler that rotates every
// rotationInterval and prunes every pruneInterval. Non-positive intervals
// fall back to daily rotation and weekly pruning.
func NewAuditMaintenanceScheduler(archive AuditMaintainer, rotationInterval, pruneInterval time.Duration, logger *logging.Logger) *AuditMaintenanceScheduler {
	logger = logging.OrDefault(logger)
	s := &AuditMaintenanceScheduler{
		scheduler: NewScheduler(logger),
		archive:   archive,
		logger:    logger.With("audit-maintenance"),
	}

	if rotationInterval <= 0 {
		rotationInterval = defaultRotationInterval
	}
	if pruneInterval <= 0 {
		pruneInterval = defaultPruneInterval
	}
	s.scheduler.AddTask("index_rotation", rotationInterval, s.rotateIndices)
	s.scheduler.AddTask("index_pruning", pruneInterval, s.pruneOldIndices)
	return s
}

// Start starts the maintenance scheduler
func (s *AuditMaintenanceScheduler) Start(ctx context.Context) {
	s.scheduler.Start(ctx)
	s.logger.Info("audit maintenance scheduler started")
}

// Stop stops the maintenance scheduler
func (s *AuditMaintenanceScheduler) Stop() {
	s.scheduler.Stop()
	s.logger.Info("audit maintenance scheduler stopped")
}

// RunOnce rotates and prunes a single time
func (s *AuditMaintenanceScheduler) RunOnce(ctx context.Context) error {
	return s.scheduler.RunOnce(ctx)
}

func (s *AuditMaintenanceScheduler) rotateIndices(ctx context.Context) error {
	return s.archive.RotateIndices(ctx)
}

func (s *AuditMaintenanceScheduler) pruneOldIndices(ctx context.Context) error {
	deleted, err := s.archive.PruneOldIndices(ctx)
	if err != nil {
		return err
	}
	if len(deleted) > 0 {
		s.logger.Info("pruned %d audit indices", len(deleted))
	}
	return nil
}
