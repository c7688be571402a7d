package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/LeJamon/goDivvyd/internal/audit"
	"github.com/LeJamon/goDivvyd/internal/core/keylet"
	"github.com/LeJamon/goDivvyd/internal/core/state"
)

var compareShowAll bool

// compareCmd represents the compare command
var compareCmd = &cobra.Command{
	Use:   "compare <snapshot1> <snapshot2>",
	Short: "Compare two stored snapshots",
	Long: `Compare two snapshots and show differences.

Shows:
- Added entries (in snapshot2 but not snapshot1)
- Removed entries (in snapshot1 but not snapshot2)
- Modified entries
- How every account's positions moved

Examples:
    divvyd compare market market-after
    divvyd compare market market-after --all`,
	Args: cobra.ExactArgs(2),
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)

	compareCmd.Flags().BoolVarP(&compareShowAll, "all", "a", false, "Show unchanged entries too")
}

func runCompare(cmd *cobra.Command, args []string) error {
	store, err := app.openSnapshots()
	if err != nil {
		return err
	}
	defer store.Close()

	first, err := store.Get(args[0])
	if err != nil {
		return err
	}
	second, err := store.Get(args[1])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	d := diffLedgers(first, second)
	fmt.Fprintf(out, "%s: %d entries, %s: %d entries\n\n", args[0], first.Len(), args[1], second.Len())
	fmt.Fprintln(out, "--- Summary ---")
	fmt.Fprintf(out, "Added:     %d\n", len(d.added))
	fmt.Fprintf(out, "Removed:   %d\n", len(d.removed))
	fmt.Fprintf(out, "Modified:  %d\n", len(d.modified))
	fmt.Fprintf(out, "Unchanged: %d\n", len(d.unchanged))

	section(out, "Added", d.added)
	section(out, "Removed", d.removed)
	section(out, "Modified", d.modified)
	if compareShowAll {
		section(out, "Unchanged", d.unchanged)
	}

	r, err := audit.Compare(first.Entries(), second.Entries())
	if err != nil {
		return err
	}
	if holdings := r.Holdings(); len(holdings) > 0 {
		fmt.Fprintln(out, "\n--- Positions ---")
		for _, h := range holdings {
			fmt.Fprintf(out, "%s %s\n", h, r.Changes[h])
		}
	}
	if !r.Native.IsZero() {
		fmt.Fprintf(out, "\nnative supply changed by %s drops\n", r.Native)
	}
	return nil
}

type ledgerDiff struct {
	added, removed, modified, unchanged []string
}

func diffLedgers(a, b *state.Ledger) ledgerDiff {
	index := func(l *state.Ledger) map[keylet.Key]state.Entry {
		m := make(map[keylet.Key]state.Entry)
		for _, e := range l.Entries() {
			m[e.Keylet().Key] = e
		}
		return m
	}
	left, right := index(a), index(b)

	var d ledgerDiff
	for k, e := range left {
		other, ok := right[k]
		switch {
		case !ok:
			d.removed = append(d.removed, describe(e))
		case describe(e) != describe(other):
			d.modified = append(d.modified, describe(e)+"\n    -> "+describe(other))
		default:
			d.unchanged = append(d.unchanged, describe(e))
		}
	}
	for k, e := range right {
		if _, ok := left[k]; !ok {
			d.added = append(d.added, describe(e))
		}
	}
	for _, s := range [][]string{d.added, d.removed, d.modified, d.unchanged} {
		sort.Strings(s)
	}
	return d
}

func describe(e state.Entry) string {
	switch e := e.(type) {
	case *state.AccountRoot:
		return fmt.Sprintf("AccountRoot %s balance %s owners %d flags %#x rate %d",
			e.ID, e.Balance.Value(), e.OwnerCount, uint32(e.Flags), uint32(e.TransferRate))
	case *state.TrustLine:
		return fmt.Sprintf("TrustLine %s/%s %s balance %s limits %s/%s flags %#x",
			e.Low, e.High, e.Currency, e.Balance.Value(), e.LowLimit.Value(), e.HighLimit.Value(), uint32(e.Flags))
	case *state.Offer:
		return fmt.Sprintf("Offer %s#%d pays %s gets %s", e.Owner, e.Sequence, e.TakerPays, e.TakerGets)
	default:
		return fmt.Sprintf("%T", e)
	}
}

func section(w io.Writer, title string, lines []string) {
	if len(lines) == 0 {
		return
	}
	fmt.Fprintf(w, "\n--- %s ---\n", title)
	for _, l := range lines {
		fmt.Fprintf(w, "  %s\n", l)
	}
}
