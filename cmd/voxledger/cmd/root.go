package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"voxledger/cmd/voxledger/cmd/export"
	"voxledger/cmd/voxledger/cmd/reconcile"
	"voxledger/cmd/voxledger/cmd/serve"
	"voxledger/cmd/voxledger/cmd/transcribe"
	"voxledger/cmd/voxledger/cmd/version"
	"voxledger/cmd/voxledger/cmd/worker"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "voxledger",
	Short: "Speech-to-text job processing with per-user quota accounting",
	Long: `voxledger runs audio transcription jobs and accounts for them.

- serve starts the HTTP API that admits uploads against monthly quotas
- worker processes queued jobs from redis (asynq backend only)
- transcribe runs a single local file through the engine, no accounting
- export and reconcile work against the usage ledger`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serve.Cmd)
	rootCmd.AddCommand(worker.Cmd)
	rootCmd.AddCommand(transcribe.Cmd)
	rootCmd.AddCommand(export.Cmd)
	rootCmd.AddCommand(reconcile.Cmd)
	rootCmd.AddCommand(version.Cmd)
}
