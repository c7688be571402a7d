package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	batchAudit   bool
	batchJSON    bool
	batchWorkers int
)

var batchCmd = &cobra.Command{
	Use:   "batch <scenario.json|dir>...",
	Short: "Run and verify many scenarios concurrently",
	Long: `Run every scenario given, expanding directories to the *.json files they
contain, and verify each against its expectations. Every scenario runs on
its own ledger, so they are processed in parallel.

Examples:
    divvyd batch internal/fixture/testdata
    divvyd batch a.json b.json --workers 4 --audit`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().BoolVar(&batchAudit, "audit", false, "check that value was conserved")
	batchCmd.Flags().BoolVar(&batchJSON, "json", false, "print the reports as JSON")
	batchCmd.Flags().IntVarP(&batchWorkers, "workers", "w", 0, "parallel scenarios (default from [batch] workers)")
}

// scenarioFiles expands directories to their JSON files, sorted.
func scenarioFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(arg, "*.json"))
		if err != nil {
			return nil, err
		}
		sort.Strings(matches)
		files = append(files, matches...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no scenario files in %v", args)
	}
	return files, nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	files, err := scenarioFiles(args)
	if err != nil {
		return err
	}

	workers := batchWorkers
	if workers == 0 {
		workers = app.cfg.Batch.Workers
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	reports := make([]*report, len(files))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(workers)
	for i, file := range files {
		g.Go(func() error {
			rep, err := app.runScenario(ctx, file, runOptions{verify: true, audit: batchAudit})
			if err != nil {
				return err
			}
			reports[i] = rep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	failed := 0
	out := cmd.OutOrStdout()
	for _, rep := range reports {
		if !rep.ok() {
			failed++
		}
		if !batchJSON {
			printReport(out, rep)
		}
	}
	if batchJSON {
		if err := writeJSON(out, reports); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(out, "\n%d scenarios, %d failed\n", len(reports), failed)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d scenarios failed", failed, len(reports))
	}
	return nil
}
