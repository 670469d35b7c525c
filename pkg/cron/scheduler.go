// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/renobook/renobook/internal/domain/backup"
)

// Scheduler runs the periodic backup job independently of request
// handling.
type Scheduler struct {
	cron     *cron.Cron
	backups  *backup.Service
	schedule string
	logger   *slog.Logger
}

// NewScheduler creates a scheduler with a standard 5-field cron schedule.
func NewScheduler(backups *backup.Service, schedule string, logger *slog.Logger) *Scheduler {
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:     c,
		backups:  backups,
		schedule: schedule,
		logger:   logger,
	}
}

// Start begins the scheduled jobs.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.schedule, s.runScheduledBackup)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.String("schedule", s.schedule),
		slog.Int("jobs", len(s.cron.Entries())),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow manually triggers a backup (for testing/admin).
func (s *Scheduler) RunNow() {
	go s.runScheduledBackup()
}

// runScheduledBackup snapshots the database and prunes anything beyond
// the retention count.
func (s *Scheduler) runScheduledBackup() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	s.logger.Info("starting scheduled backup")

	filename, err := s.backups.Create(ctx, "scheduled")
	if err != nil {
		s.logger.Error("scheduled backup failed", slog.Any("error", err))
		return
	}

	pruned, err := s.backups.Cleanup(ctx)
	if err != nil {
		s.logger.Warn("backup cleanup failed", slog.Any("error", err))
	}

	s.logger.Info("scheduled backup completed",
		slog.String("filename", filename),
		slog.Int("pruned", pruned),
	)
}
