// File: internal/jobs/retention.go
package jobs

import (
	"context"
	"fmt"
	"time"

	"workhub_backend/internal/config"
	"workhub_backend/internal/notification"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// RetentionJob periodically purges notifications older than the configured
// retention window. Retention is global: read state does not extend a
// notification's lifetime.
type RetentionJob struct {
	notificationService notification.Service
	logger              *zap.Logger
	cfg                 *config.Config
	cronScheduler       *cron.Cron
}

// NewRetentionJob creates a new RetentionJob.
func NewRetentionJob(
	notificationService notification.Service,
	logger *zap.Logger,
	cfg *config.Config,
) *RetentionJob {
	scheduler := cron.New(cron.WithLogger(NewCronLogger(logger.Named("cron"))))

	return &RetentionJob{
		notificationService: notificationService,
		logger:              logger.Named("RetentionJob"),
		cfg:                 cfg,
		cronScheduler:       scheduler,
	}
}

// SetupAndStart schedules and starts the cron job.
func (j *RetentionJob) SetupAndStart() error {
	jobSpec := j.cfg.RetentionJobSchedule
	if jobSpec == "" || j.cfg.NotificationRetentionDays <= 0 {
		j.logger.Warn("Notification retention job disabled (schedule or retention days not set). Job will not run.")
		return nil
	}

	jobID, err := j.cronScheduler.AddFunc(jobSpec, j.runJob)
	if err != nil {
		j.logger.Error("Failed to schedule notification retention job", zap.String("spec", jobSpec), zap.Error(err))
		return err
	}

	j.logger.Info("Notification retention job scheduled",
		zap.String("spec", jobSpec),
		zap.Int("retention_days", j.cfg.NotificationRetentionDays),
		zap.Any("jobID", jobID),
	)
	j.cronScheduler.Start()
	return nil
}

// runJob is the actual work performed by the cron job.
func (j *RetentionJob) runJob() {
	j.logger.Info("Starting notification retention job run...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cutoff := time.Now().UTC().AddDate(0, 0, -j.cfg.NotificationRetentionDays)
	purgedCount, err := j.notificationService.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		j.logger.Error("Notification retention job run failed", zap.Error(err))
	} else {
		j.logger.Info("Notification retention job run completed",
			zap.Time("cutoff", cutoff),
			zap.Int64("notifications_purged", purgedCount),
		)
	}
}

// Stop gracefully stops the cron scheduler.
func (j *RetentionJob) Stop() {
	if j.cronScheduler != nil {
		j.logger.Info("Stopping notification retention job scheduler...")
		stopCtx := j.cronScheduler.Stop()
		select {
		case <-stopCtx.Done():
			j.logger.Info("Notification retention job scheduler stopped gracefully.")
		case <-time.After(10 * time.Second):
			j.logger.Warn("Notification retention job scheduler stop timed out.")
		}
	}
}

// --- Cron Logger Adapter ---

// cronLogger adapts zap.Logger to cron.Logger interface.
type cronLogger struct {
	zl *zap.Logger
}

// NewCronLogger creates a new cronLogger.
func NewCronLogger(zl *zap.Logger) cron.Logger {
	return &cronLogger{zl: zl}
}

// Info logs routine messages from cron.
func (cl *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	fields := cl.parseKeysAndValues(keysAndValues...)
	cl.zl.Info(msg, fields...)
}

// Error logs error messages from cron.
func (cl *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	fields := cl.parseKeysAndValues(keysAndValues...)
	fields = append(fields, zap.Error(err))
	cl.zl.Error(msg, fields...)
}

func (cl *cronLogger) parseKeysAndValues(keysAndValues ...interface{}) []zap.Field {
	var fields []zap.Field
	for i := 0; i < len(keysAndValues); i += 2 {
		if i+1 < len(keysAndValues) {
			fields = append(fields, zap.Any(fmt.Sprintf("%v", keysAndValues[i]), keysAndValues[i+1]))
		} else {
			fields = append(fields, zap.Any(fmt.Sprintf("%v", keysAndValues[i]), "MISSING_VALUE"))
		}
	}
	return fields
}
