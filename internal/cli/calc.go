package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	calcVerify bool
	calcAudit  bool
	calcJSON   bool
	calcFrom   string
	calcSave   string
)

var calcCmd = &cobra.Command{
	Use:   "calc <scenario.json>",
	Short: "Run the payment or offer crossing of a scenario",
	Long: `Build the ledger described by a scenario file, run its payment or offer
crossing, and print the outcome.

Examples:
    divvyd calc testdata/cross_currency.json
    divvyd calc scenario.json --verify --audit
    divvyd calc scenario.json --from market --save market-after`,
	Args: cobra.ExactArgs(1),
	RunE: runCalc,
}

func init() {
	rootCmd.AddCommand(calcCmd)

	calcCmd.Flags().BoolVar(&calcVerify, "verify", false, "check the scenario expectations")
	calcCmd.Flags().BoolVar(&calcAudit, "audit", false, "check that value was conserved")
	calcCmd.Flags().BoolVar(&calcJSON, "json", false, "print the report as JSON")
	calcCmd.Flags().StringVar(&calcFrom, "from", "", "run against a stored snapshot instead of the scenario ledger")
	calcCmd.Flags().StringVar(&calcSave, "save", "", "store the resulting ledger as a snapshot")
}

func runCalc(cmd *cobra.Command, args []string) error {
	opts := runOptions{verify: calcVerify, audit: calcAudit, from: calcFrom, save: calcSave}
	if opts.from != "" || opts.save != "" {
		store, err := app.openSnapshots()
		if err != nil {
			return err
		}
		defer store.Close()
		opts.store = store
	}

	rep, err := app.runScenario(cmd.Context(), args[0], opts)
	if err != nil {
		return err
	}
	if calcJSON {
		if err := writeJSON(cmd.OutOrStdout(), rep); err != nil {
			return err
		}
	} else {
		printReport(cmd.OutOrStdout(), rep)
	}
	if !rep.ok() {
		return fmt.Errorf("%s: %d problems", rep.Scenario, len(rep.Problems))
	}
	return nil
}
