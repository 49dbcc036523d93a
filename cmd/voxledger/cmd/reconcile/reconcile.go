package reconcile

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"voxledger/internal/app"
	"voxledger/internal/app/usage"
	"voxledger/internal/config"
	"voxledger/internal/logging"
)

var userID string

func init() {
	Cmd.Flags().StringVarP(&userID, "user", "u", "", "user id to reconcile")

	Cmd.MarkFlagRequired("user")
}

// Cmd represents the reconcile command
var Cmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Check a user's cached totals against the usage ledger",
	Long: `Check a user's cached totals against the usage ledger.

The ledger is the source of truth. Any drift means the cached aggregates
were updated outside the completion transaction and the command exits
non-zero.`,
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

		rec, err := usage.NewService(store).Reconcile(context.Background(), userID)
		if err != nil {
			return err
		}

		fmt.Printf("ledger cost:    %s\n", rec.LedgerCost)
		fmt.Printf("cached cost:    %s\n", rec.CachedCost)
		fmt.Printf("ledger minutes: %s (current period)\n", rec.LedgerMinutes)
		fmt.Printf("cached minutes: %s\n", rec.CachedMinutes)

		if !rec.Consistent() {
			return fmt.Errorf("ledger and cached totals disagree for user %s", userID)
		}
		fmt.Println("consistent")
		return nil
	},
}
