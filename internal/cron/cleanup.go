// Package cron schedules recurring maintenance of the attachment store.
package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/lgwanai/email-mcp/internal/services"
)

// CleanupScheduler runs age-based attachment cleanup on a cron schedule
type CleanupScheduler struct {
	attachments services.AttachmentService
	schedule    string
	maxAge      time.Duration
	runner      *cron.Cron
}

// NewCleanupScheduler creates a scheduler; Start must be called to activate it
func NewCleanupScheduler(attachments services.AttachmentService, schedule string, maxAge time.Duration) *CleanupScheduler {
	return &CleanupScheduler{
		attachments: attachments,
		schedule:    schedule,
		maxAge:      maxAge,
		runner:      cron.New(),
	}
}

// Start registers the cleanup job and starts the cron runner
func (s *CleanupScheduler) Start() error {
	_, err := s.runner.AddFunc(s.schedule, s.runOnce)
	if err != nil {
		return err
	}
	s.runner.Start()

	slog.Info("cleanup scheduler started",
		"schedule", s.schedule,
		"max_age", s.maxAge)
	return nil
}

// Stop halts the runner, waiting for a running job to finish
func (s *CleanupScheduler) Stop() {
	ctx := s.runner.Stop()
	<-ctx.Done()
}

func (s *CleanupScheduler) runOnce() {
	result, err := s.attachments.Cleanup(context.Background(), s.maxAge)
	if err != nil {
		slog.Error("scheduled cleanup failed", "error", err)
		return
	}
	slog.Info("scheduled cleanup finished",
		"removed_dirs", result.RemovedDirs,
		"failed", len(result.Failed))
}
