package worker

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"voxledger/internal/app"
	"voxledger/internal/app/queue"
	"voxledger/internal/config"
	"voxledger/internal/logging"
)

var logLevel string

func init() {
	Cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
}

// Cmd represents the worker command
var Cmd = &cobra.Command{
	Use:   "worker",
	Short: "Process transcription jobs from the redis queue",
	Long: `Process transcription jobs from the redis queue.

Requires VOXLEDGER_QUEUE=asynq. The worker pulls tasks enqueued by the
API, runs the transcription pipeline and writes the accounting results.
Several workers may run concurrently; each job id is enqueued at most
once.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.Worker.Backend != "asynq" {
			return fmt.Errorf("worker requires VOXLEDGER_QUEUE=asynq, got %q", cfg.Worker.Backend)
		}
		logger := logging.New(logLevel)

		application, err := app.InitializeApplication(context.Background(), cfg, logger)
		if err != nil {
			return err
		}
		defer application.Close()

		logger.Info("worker starting", "concurrency", cfg.Worker.Concurrency, "redis", cfg.Redis.Addr)
		srv := queue.NewServer(cfg.Redis, cfg.Worker.Concurrency)
		mux := queue.NewMux(application.Orchestrator, application.Orchestrator)
		return srv.Run(mux)
	},
}
