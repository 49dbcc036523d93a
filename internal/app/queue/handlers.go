package queue

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	apperrors "voxledger/internal/app/errors"
	"voxledger/internal/config"
)

// Processor runs one job to a terminal state; satisfied by the pipeline
// orchestrator.
type Processor interface {
	Process(ctx context.Context, jobID string) error
}

// Exporter re-renders the artifacts of a completed job.
type Exporter interface {
	Regenerate(ctx context.Context, jobID string) error
}

// NewMux routes task types to their handlers. exporter may be nil when
// regeneration is not served by this worker.
func NewMux(processor Processor, exporter Exporter) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeTranscriptionProcess, transcriptionHandler(processor))
	if exporter != nil {
		mux.HandleFunc(TypeExportRegenerate, exportHandler(exporter))
	}
	return mux
}

func transcriptionHandler(processor Processor) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload TranscriptionProcessPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return apperrors.Wrap(err, "unmarshal transcription payload")
		}
		slog.Info("processing transcription task", "job_id", payload.JobID)
		return processor.Process(ctx, payload.JobID)
	}
}

func exportHandler(exporter Exporter) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload ExportRegeneratePayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return apperrors.Wrap(err, "unmarshal export payload")
		}
		return exporter.Regenerate(ctx, payload.JobID)
	}
}

// NewServer builds the asynq consumer with the configured concurrency.
func NewServer(redis config.RedisConfig, concurrency int) *asynq.Server {
	return asynq.NewServer(RedisOpt(redis), asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			"default": 1,
		},
	})
}
