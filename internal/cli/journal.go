package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var journalLimit int

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Show recently journaled calculations",
	Long: `Print the most recent calculations recorded in the [journal] database,
newest first.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if app.journal == nil {
			return errors.New("no journal configured: set [journal] driver and dsn")
		}
		entries, err := app.journal.Recent(cmd.Context(), journalLimit)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tKIND\tLABEL\tRESULT\tIN\tOUT\tREMOVED")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
				e.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"), e.Kind, e.Label, e.Result, e.AmountIn, e.AmountOut, e.Removed)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.Flags().IntVarP(&journalLimit, "limit", "n", 20, "entries to show")
}
