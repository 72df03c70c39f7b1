package jobs

import (
	"context"
	"time"

	"barter_backend/internal/config"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	auditRunTimeout  = time.Minute
	stopGraceTimeout = 10 * time.Second
)

// OverdueCounter counts active matches whose expires_at has passed.
type OverdueCounter interface {
	CountOverdue(ctx context.Context, now time.Time) (int64, error)
}

// MatchExpiryAuditJob reports stale matches on a schedule. It only logs;
// match expiry is not enforced.
type MatchExpiryAuditJob struct {
	matches       OverdueCounter
	logger        *zap.Logger
	schedule      string
	cronScheduler *cron.Cron
	now           func() time.Time
}

func NewMatchExpiryAuditJob(matches OverdueCounter, logger *zap.Logger, cfg *config.Config) *MatchExpiryAuditJob {
	cronLog := NewCronLogger(logger.Named("cron"))
	scheduler := cron.New(
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)

	return &MatchExpiryAuditJob{
		matches:       matches,
		logger:        logger.Named("MatchExpiryAuditJob"),
		schedule:      cfg.MatchExpiryAuditSchedule,
		cronScheduler: scheduler,
		now:           time.Now,
	}
}

// SetupAndStart schedules the audit and starts the scheduler. An empty
// schedule disables the job.
func (j *MatchExpiryAuditJob) SetupAndStart() error {
	if j.schedule == "" {
		j.logger.Warn("MATCH_EXPIRY_AUDIT_SCHEDULE is empty; match expiry audit will not run.")
		return nil
	}

	jobID, err := j.cronScheduler.AddFunc(j.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), auditRunTimeout)
		defer cancel()
		_, _ = j.RunOnce(ctx)
	})
	if err != nil {
		j.logger.Error("Failed to schedule match expiry audit", zap.String("schedule", j.schedule), zap.Error(err))
		return err
	}

	j.logger.Info("Match expiry audit scheduled", zap.String("schedule", j.schedule), zap.Any("jobID", jobID))
	j.cronScheduler.Start()
	return nil
}

// RunOnce counts overdue matches and logs the result.
func (j *MatchExpiryAuditJob) RunOnce(ctx context.Context) (int64, error) {
	overdue, err := j.matches.CountOverdue(ctx, j.now())
	if err != nil {
		j.logger.Error("Match expiry audit failed", zap.Error(err))
		return 0, err
	}
	if overdue > 0 {
		j.logger.Warn("Active matches past their expiry", zap.Int64("overdue_matches", overdue))
	} else {
		j.logger.Info("Match expiry audit completed", zap.Int64("overdue_matches", overdue))
	}
	return overdue, nil
}

// Stop waits for a running audit to finish, up to a grace period.
func (j *MatchExpiryAuditJob) Stop() {
	j.logger.Info("Stopping match expiry audit scheduler...")
	select {
	case <-j.cronScheduler.Stop().Done():
		j.logger.Info("Match expiry audit scheduler stopped.")
	case <-time.After(stopGraceTimeout):
		j.logger.Warn("Match expiry audit scheduler stop timed out.")
	}
}
