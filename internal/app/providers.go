// Package app assembles the configured application graph.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	openai "github.com/sashabaranov/go-openai"

	"voxledger/internal/app/audio"
	"voxledger/internal/app/engine"
	"voxledger/internal/app/engine/openaiengine"
	"voxledger/internal/app/engine/whispercpp"
	"voxledger/internal/app/export"
	"voxledger/internal/app/pipeline"
	"voxledger/internal/app/queue"
	"voxledger/internal/app/quota"
	"voxledger/internal/app/repository"
	"voxledger/internal/app/repository/pg"
	"voxledger/internal/app/repository/sqlite"
	"voxledger/internal/app/storage"
	"voxledger/internal/config"
)

// ProvideStore opens the configured database.
func ProvideStore(cfg *config.Config) (repository.Store, error) {
	switch cfg.DB.Driver {
	case "postgres":
		return pg.NewStore(cfg.DB.DSN)
	default:
		return sqlite.NewStore(cfg.DB.SQLitePath)
	}
}

// ProvideBlobStore opens the configured blob backend.
func ProvideBlobStore(ctx context.Context, cfg *config.Config) (storage.BlobStore, error) {
	if cfg.Storage.Backend == "minio" {
		return storage.NewMinioStore(ctx, cfg.Storage.Minio)
	}
	return storage.NewLocalStore(cfg.Storage.LocalRoot)
}

// ProvideLocalizer resolves blob keys to local paths. The local backend
// serves its files in place; remote backends download to a temp file.
func ProvideLocalizer(blobs storage.BlobStore) storage.Localizer {
	if local, ok := blobs.(*storage.LocalStore); ok {
		return local
	}
	return storage.NewDownloader(blobs)
}

// ProvideEngineFactory builds the configured transcription engine.
func ProvideEngineFactory(cfg *config.Config) (engine.Factory, error) {
	switch cfg.Engine.Provider {
	case "openai":
		return openaiengine.NewFactory(openai.NewClient(cfg.Engine.OpenAIKey), cfg.Engine.OpenAIModel), nil
	default:
		modelPaths, err := config.LoadModelManifest(cfg.Engine.ModelManifest, cfg.Engine.ModelDir)
		if err != nil {
			return nil, err
		}
		return whispercpp.NewFactory(cfg.Engine.WhisperBinary, modelPaths), nil
	}
}

// ProvideLocker serializes admission per user. With the asynq backend
// several processes may admit concurrently, so the lock moves to redis.
func ProvideLocker(cfg *config.Config) quota.Locker {
	if cfg.Worker.Backend == "asynq" {
		return quota.NewRedisLocker(redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}))
	}
	return quota.NewMutexLocker()
}

// ProvideProber probes upload durations with ffprobe.
func ProvideProber() audio.Prober {
	return audio.NewFFProbe()
}

// ProvideExportGenerator renders and stores all artifact formats.
func ProvideExportGenerator(blobs storage.BlobStore) *export.Generator {
	return export.NewGenerator(blobs, storage.ArtifactKey, export.AllFormats...)
}

// QueueBackend bundles whichever queue the configuration selected with
// the enqueue surface the admitter uses.
type QueueBackend struct {
	Enqueuer pipeline.Enqueuer
	Pool     *pipeline.Pool
	Client   *queue.Client
}

// ProvideQueueBackend selects the in-process pool or the asynq client.
// The pool processes jobs in this process; the asynq client only
// enqueues, leaving processing to dedicated worker processes.
func ProvideQueueBackend(cfg *config.Config, orchestrator *pipeline.Orchestrator) *QueueBackend {
	if cfg.Worker.Backend == "asynq" {
		client := queue.NewClient(cfg.Redis)
		return &QueueBackend{Enqueuer: client, Client: client}
	}
	pool := pipeline.NewPool(orchestrator, cfg.Worker.Concurrency, cfg.Worker.QueueDepth)
	return &QueueBackend{Enqueuer: pool, Pool: pool}
}

// Application is the wired process: the HTTP surface plus whichever
// queue backend the configuration selected.
type Application struct {
	Config       *config.Config
	Logger       *slog.Logger
	Store        repository.Store
	Ledger       *quota.Ledger
	Admitter     *pipeline.Admitter
	Orchestrator *pipeline.Orchestrator

	// Pool is set for the in-process backend, Queue for asynq.
	Pool  *pipeline.Pool
	Queue *queue.Client
}

// Start launches the in-process worker pool when one is configured.
// With the asynq backend, processing happens in separate worker
// processes and there is nothing to start here.
func (a *Application) Start(ctx context.Context) {
	if a.Pool != nil {
		a.Pool.Start(ctx)
	}
}

// Close releases the queue and the database.
func (a *Application) Close() error {
	if a.Pool != nil {
		a.Pool.Shutdown()
	}
	if a.Queue != nil {
		if err := a.Queue.Close(); err != nil {
			a.Logger.Warn("closing queue client", "error", err)
		}
	}
	if err := a.Store.Close(); err != nil {
		return fmt.Errorf("closing store: %w", err)
	}
	return nil
}
