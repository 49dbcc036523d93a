package serve

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"voxledger/internal/api/server"
	"voxledger/internal/api/v1/handlers"
	"voxledger/internal/app"
	"voxledger/internal/app/usage"
	"voxledger/internal/config"
	"voxledger/internal/logging"
)

var logLevel string

func init() {
	Cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
}

// Cmd represents the serve command
var Cmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and, with the pool backend, the in-process workers",
	Long: `Start the HTTP API.

With VOXLEDGER_QUEUE=pool (the default) admitted jobs are processed by an
in-process worker pool. With VOXLEDGER_QUEUE=asynq jobs are enqueued to
redis and a separate 'voxledger worker' process handles them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger := logging.New(logLevel)

		application, err := app.InitializeApplication(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer application.Close()
		application.Start(ctx)

		jobs := handlers.NewJobHandler(application.Admitter, application.Store)
		users := handlers.NewUserHandler(application.Store, application.Ledger, usage.NewService(application.Store))
		srv := server.New(cfg.Server, jobs, users, logger)

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("shutdown", "error", err)
			}
		}()

		return srv.Start()
	},
}
