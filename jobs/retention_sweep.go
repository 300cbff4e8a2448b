package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/keystone-admin/keystone/internal/jobs"
)

// RetentionSweepJob deletes revision rows older than the retention window.
// The revision log is append-only from the application's point of view; only
// this job removes rows, and only past the configured horizon.
type RetentionSweepJob struct {
	Pool          *pgxpool.Pool
	Logger        *slog.Logger
	Metrics       *jobmetrics.Metrics
	RetentionDays int
	clock         func() time.Time
}

// NewRetentionSweepJob initialises the sweep handler.
func NewRetentionSweepJob(pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics, retentionDays int) *RetentionSweepJob {
	return &RetentionSweepJob{
		Pool:          pool,
		Logger:        logger,
		Metrics:       metrics,
		RetentionDays: retentionDays,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes one sweep run.
func (j *RetentionSweepJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pool == nil {
		return errors.New("retention sweep: handler not configured")
	}
	var payload RetentionSweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	days := payload.RetentionDays
	if days <= 0 {
		days = j.RetentionDays
	}
	if days <= 0 {
		// No retention configured means keep everything.
		return nil
	}

	tracker := j.metrics().Track(TaskRevisionRetentionSweep)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	horizon := j.now().AddDate(0, 0, -days)
	logger := j.logger().With(slog.Time("horizon", horizon))
	logger.Info("starting retention sweep")

	rows, err := j.Pool.Query(ctx, `WITH removed AS (
			DELETE FROM revisions WHERE modified_at < $1 RETURNING entity_type
		)
		SELECT entity_type, COUNT(*) FROM removed GROUP BY entity_type`, horizon)
	if err != nil {
		resultErr = err
		logger.Error("sweep failed", slog.Any("error", err))
		return resultErr
	}
	defer rows.Close()

	var total int64
	for rows.Next() {
		var entityType string
		var count int64
		if err := rows.Scan(&entityType, &count); err != nil {
			resultErr = err
			return resultErr
		}
		total += count
		j.metrics().AddPruned(entityType, count)
	}
	if err := rows.Err(); err != nil {
		resultErr = err
		return resultErr
	}

	logger.Info("completed retention sweep", slog.Int64("pruned", total))
	return resultErr
}

func (j *RetentionSweepJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskRevisionRetentionSweep))
	}
	return slog.Default().With(slog.String("job", TaskRevisionRetentionSweep))
}

func (j *RetentionSweepJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return jobmetrics.NewMetrics(nil)
}

func (j *RetentionSweepJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
