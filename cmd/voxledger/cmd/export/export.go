package export

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"voxledger/internal/app"
	"voxledger/internal/app/usage"
	"voxledger/internal/config"
	"voxledger/internal/logging"
)

var (
	userID  string
	outPath string
)

func init() {
	Cmd.Flags().StringVarP(&userID, "user", "u", "", "user id whose ledger to export")
	Cmd.Flags().StringVarP(&outPath, "out", "o", "usage.xlsx", "output xlsx file")

	Cmd.MarkFlagRequired("user")
}

// Cmd represents the export command
var Cmd = &cobra.Command{
	Use:   "export",
	Short: "Export a user's usage ledger to an xlsx workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logging.New("warn")

		store, err := app.ProvideStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		if _, err := store.GetUser(ctx, userID); err != nil {
			return err
		}
		entries, err := store.ListUsageByUser(ctx, userID)
		if err != nil {
			return err
		}

		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer f.Close()

		if err := usage.WriteReport(entries, f); err != nil {
			return err
		}
		fmt.Printf("wrote %s (%d entries)\n", outPath, len(entries))
		return nil
	},
}
