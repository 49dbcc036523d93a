//go:build wireinject
// +build wireinject

package app

import (
	"context"
	"log/slog"

	"github.com/google/wire"

	"voxledger/internal/app/pipeline"
	"voxledger/internal/app/quota"
	"voxledger/internal/config"
)

// InitializeApplication wires the full processing graph from the
// configuration. Regenerate wire_gen.go with `wire ./internal/app`
// after changing the provider set.
func InitializeApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Application, error) {
	wire.Build(
		ProvideStore,
		ProvideBlobStore,
		ProvideLocalizer,
		ProvideEngineFactory,
		ProvideLocker,
		ProvideProber,
		ProvideExportGenerator,
		ProvideQueueBackend,
		quota.NewLedger,
		pipeline.NewOrchestrator,
		pipeline.NewAdmitter,
		wire.FieldsOf(new(*QueueBackend), "Enqueuer", "Pool", "Client"),
		wire.Struct(new(Application), "Config", "Logger", "Store", "Ledger", "Admitter", "Orchestrator", "Pool", "Queue"),
	)
	return &Application{}, nil
}
