package jobs

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskRevisionRetentionSweep prunes revision rows past the retention window.
	TaskRevisionRetentionSweep = "revision:retention-sweep"
	// TaskHistoryExport writes a CSV snapshot of an entity's revision history.
	TaskHistoryExport = "revision:history-export"
)

// RetentionSweepPayload scopes a sweep run.
type RetentionSweepPayload struct {
	// RetentionDays keeps revisions newer than this many days. Zero falls
	// back to the worker's configured default.
	RetentionDays int `json:"retentionDays"`
}

// NewRetentionSweepTask constructs the sweep task.
func NewRetentionSweepTask(payload RetentionSweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRevisionRetentionSweep, data), nil
}

// HistoryExportPayload identifies the slice of history to export.
type HistoryExportPayload struct {
	EntityType  string `json:"entityType"`
	EntityID    string `json:"entityId,omitempty"`
	RequestedBy string `json:"requestedBy"`
	Locale      string `json:"locale,omitempty"`
}

// NewHistoryExportTask constructs the export task.
func NewHistoryExportTask(payload HistoryExportPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskHistoryExport, data), nil
}

// Client submits jobs to the queue.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts)}
}

// EnqueueHistoryExport enqueues an export run.
func (c *Client) EnqueueHistoryExport(ctx context.Context, payload HistoryExportPayload) (*asynq.TaskInfo, error) {
	task, err := NewHistoryExportTask(payload)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault))
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}
