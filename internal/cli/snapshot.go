package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LeJamon/goDivvyd/internal/core/state"
	"github.com/LeJamon/goDivvyd/internal/fixture"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage stored ledger snapshots",
	Long: `Store, inspect and remove ledger snapshots kept in the [snapshot] store.
A snapshot can be used as the starting ledger of calc with --from.`,
}

var snapshotImportCmd = &cobra.Command{
	Use:   "import <name> <scenario.json>",
	Short: "Store the ledger described by a scenario",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := fixture.Load(args[1])
		if err != nil {
			return err
		}
		setup, err := fixture.Build(s)
		if err != nil {
			return err
		}
		store, err := app.openSnapshots()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Put(args[0], setup.Ledger); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "stored %s: %d entries\n", args[0], setup.Ledger.Len())
		return nil
	},
}

// ledgerDump is the JSON form of a snapshot.
type ledgerDump struct {
	Name      string        `codec:"name"`
	CloseTime uint32        `codec:"close_time"`
	Open      bool          `codec:"open"`
	Fees      state.Fees    `codec:"fees"`
	Entries   []state.Entry `codec:"entries"`
}

var snapshotExportCmd = &cobra.Command{
	Use:   "export <name>",
	Short: "Print a snapshot as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := app.openSnapshots()
		if err != nil {
			return err
		}
		defer store.Close()

		l, err := store.Get(args[0])
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), ledgerDump{
			Name:      args[0],
			CloseTime: l.CloseTime(),
			Open:      l.Open(),
			Fees:      l.Fees(),
			Entries:   l.Entries(),
		})
	},
}

var snapshotListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored snapshots",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := app.openSnapshots()
		if err != nil {
			return err
		}
		defer store.Close()

		names, err := store.List()
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

var snapshotDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Remove a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := app.openSnapshots()
		if err != nil {
			return err
		}
		defer store.Close()
		return store.Delete(args[0])
	},
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
	snapshotCmd.AddCommand(snapshotImportCmd, snapshotExportCmd, snapshotListCmd, snapshotDeleteCmd)
}
