package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"barter_backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type stubCounter struct {
	count  int64
	err    error
	seenAt time.Time
}

func (s *stubCounter) CountOverdue(_ context.Context, now time.Time) (int64, error) {
	s.seenAt = now
	return s.count, s.err
}

func TestRunOnce_LogsOverdueMatches(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	counter := &stubCounter{count: 3}
	job := NewMatchExpiryAuditJob(counter, zap.New(core), &config.Config{})
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return fixed }

	n, err := job.RunOnce(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.Equal(t, fixed, counter.seenAt)

	entries := logs.FilterMessage("Active matches past their expiry").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.EqualValues(t, 3, entries[0].ContextMap()["overdue_matches"])
}

func TestRunOnce_Error(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	job := NewMatchExpiryAuditJob(&stubCounter{err: errors.New("db down")}, zap.New(core), &config.Config{})

	_, err := job.RunOnce(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1, logs.FilterMessage("Match expiry audit failed").Len())
}

func TestSetupAndStart(t *testing.T) {
	t.Run("empty schedule disables the job", func(t *testing.T) {
		job := NewMatchExpiryAuditJob(&stubCounter{}, zap.NewNop(), &config.Config{})
		require.NoError(t, job.SetupAndStart())
		assert.Empty(t, job.cronScheduler.Entries())
	})
	t.Run("invalid schedule", func(t *testing.T) {
		job := NewMatchExpiryAuditJob(&stubCounter{}, zap.NewNop(), &config.Config{MatchExpiryAuditSchedule: "not a cron"})
		assert.Error(t, job.SetupAndStart())
	})
	t.Run("valid schedule", func(t *testing.T) {
		job := NewMatchExpiryAuditJob(&stubCounter{}, zap.NewNop(), &config.Config{MatchExpiryAuditSchedule: "@hourly"})
		require.NoError(t, job.SetupAndStart())
		defer job.Stop()
		assert.Len(t, job.cronScheduler.Entries(), 1)
	})
}
