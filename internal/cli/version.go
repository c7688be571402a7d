package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/LeJamon/goDivvyd/internal/core/paths"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  `Display version information for goDivvyd, the Go version and the engine limits.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "goDivvyd version %s\n", rootCmd.Version)
		fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
		fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)

		limits := paths.DefaultLimits()
		fmt.Fprintf(out, "Default limits: %d passes, %d deliver loops (%d multi-quality), %d advance loops\n",
			limits.MaxPasses, limits.DeliverLoops, limits.DeliverLoopsMQ, limits.AdvanceLoops)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
