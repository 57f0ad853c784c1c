// Package scheduler runs periodic housekeeping: expired task deletion and
// stale export file removal.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/cloneplan/internal/export"
	"github.com/fyrsmithlabs/cloneplan/internal/store"
)

// Config holds scheduler configuration.
type Config struct {
	// Schedule is a cron expression, e.g. "@hourly".
	Schedule string
	// TaskRetention is how long terminal tasks are kept.
	TaskRetention time.Duration
	// FileMaxAge is how long exported files are kept.
	FileMaxAge time.Duration
}

// Scheduler owns the cron runner and the cleanup job.
type Scheduler struct {
	cron    *cron.Cron
	store   *store.Store
	exports *export.Manager
	cfg     Config
	logger  *zap.Logger
}

// New creates a scheduler and registers the cleanup job.
func New(st *store.Store, exports *export.Manager, cfg Config, logger *zap.Logger) (*Scheduler, error) {
	if st == nil {
		return nil, errors.New("store is required")
	}
	if cfg.Schedule == "" {
		return nil, errors.New("schedule is required")
	}
	if cfg.TaskRetention <= 0 {
		return nil, errors.New("task retention must be positive")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Scheduler{
		cron:    cron.New(),
		store:   st,
		exports: exports,
		cfg:     cfg,
		logger:  logger,
	}
	if _, err := s.cron.AddFunc(cfg.Schedule, func() {
		if _, err := s.Clean(context.Background(), cfg.TaskRetention); err != nil {
			logger.Error("scheduled cleanup failed", zap.Error(err))
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid cleanup schedule %q: %w", cfg.Schedule, err)
	}
	return s, nil
}

// Start begins scheduled execution.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("cleanup scheduler started",
		zap.String("schedule", s.cfg.Schedule),
		zap.Duration("task_retention", s.cfg.TaskRetention))
}

// Stop halts scheduling and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("cleanup scheduler stopped")
}

// Clean deletes terminal tasks older than retention and stale exported files.
// Also serves the manual cleanup endpoint, which may pass a retention
// different from the configured one.
func (s *Scheduler) Clean(ctx context.Context, retention time.Duration) (int64, error) {
	deleted, err := s.store.CleanupTasks(ctx, retention)
	if err != nil {
		return 0, err
	}

	files := 0
	if s.exports != nil && s.cfg.FileMaxAge > 0 {
		files, err = s.exports.CleanupFiles(s.cfg.FileMaxAge)
		if err != nil {
			s.logger.Warn("export file cleanup failed", zap.Error(err))
		}
	}

	if deleted > 0 || files > 0 {
		s.logger.Info("cleanup finished",
			zap.Int64("tasks_deleted", deleted),
			zap.Int("files_deleted", files))
	}
	return deleted, nil
}
