package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/hibiken/asynq"

	apperrors "voxledger/internal/app/errors"
	"voxledger/internal/config"
)

// RedisOpt builds the asynq connection options from config.
func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// Client enqueues pipeline tasks. Implements pipeline.Enqueuer.
type Client struct {
	client *asynq.Client
}

// NewClient creates an asynq producer over redis.
func NewClient(cfg config.RedisConfig) *Client {
	return &Client{client: asynq.NewClient(RedisOpt(cfg))}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// Enqueue schedules job processing. The task id is the job id, so a job
// already queued or running is never scheduled twice.
func (c *Client) Enqueue(ctx context.Context, jobID string) error {
	return c.enqueue(ctx, TypeTranscriptionProcess,
		TranscriptionProcessPayload{JobID: jobID},
		asynq.TaskID(jobID),
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Minute))
}

// EnqueueExportRegenerate schedules a best-effort artifact re-render.
func (c *Client) EnqueueExportRegenerate(ctx context.Context, jobID string) error {
	return c.enqueue(ctx, TypeExportRegenerate,
		ExportRegeneratePayload{JobID: jobID},
		asynq.MaxRetry(5),
		asynq.Timeout(5*time.Minute))
}

func (c *Client) enqueue(ctx context.Context, taskType string, payload interface{}, opts ...asynq.Option) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return apperrors.Wrapf(err, "marshal %s payload", taskType)
	}
	_, err = c.client.EnqueueContext(ctx, asynq.NewTask(taskType, data), opts...)
	if err != nil {
		// A duplicate task id means the job is already queued; that is
		// the exclusivity contract working, not a failure.
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return nil
		}
		return apperrors.Wrapf(err, "enqueue %s", taskType)
	}
	return nil
}
