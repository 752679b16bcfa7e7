package cron

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lgwanai/email-mcp/internal/services"
)

type fakeAttachmentService struct {
	services.AttachmentService
	calls  atomic.Int32
	maxAge time.Duration
}

func (f *fakeAttachmentService) Cleanup(_ context.Context, maxAge time.Duration) (*services.CleanupResult, error) {
	f.calls.Add(1)
	f.maxAge = maxAge
	return &services.CleanupResult{RemovedDirs: 2}, nil
}

func TestCleanupScheduler_InvalidSchedule(t *testing.T) {
	svc := &fakeAttachmentService{}
	s := NewCleanupScheduler(svc, "not a cron spec", time.Hour)
	assert.Error(t, s.Start())
}

func TestCleanupScheduler_RunOnce(t *testing.T) {
	svc := &fakeAttachmentService{}
	s := NewCleanupScheduler(svc, "0 3 * * *", 30*24*time.Hour)

	s.runOnce()

	assert.Equal(t, int32(1), svc.calls.Load())
	assert.Equal(t, 30*24*time.Hour, svc.maxAge)
}

func TestCleanupScheduler_StartStop(t *testing.T) {
	svc := &fakeAttachmentService{}
	s := NewCleanupScheduler(svc, "@every 1h", time.Hour)

	require.NoError(t, s.Start())
	s.Stop()
}
