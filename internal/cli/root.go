package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/LeJamon/goDivvyd/internal/config"
	"github.com/LeJamon/goDivvyd/internal/core/paths"
	"github.com/LeJamon/goDivvyd/internal/logging"
	"github.com/LeJamon/goDivvyd/internal/metrics"
	"github.com/LeJamon/goDivvyd/internal/storage/journal"
	"github.com/LeJamon/goDivvyd/internal/storage/snapshot"
)

var (
	// Global flags
	configFile  string
	debug       bool
	quiet       bool
	metricsDump bool
)

// env is what PersistentPreRunE sets up for the subcommands.
type env struct {
	cfg       *config.Config
	logger    *log.Logger
	logCloser io.Closer
	registry  *prometheus.Registry
	metrics   *metrics.Engine
	journal   *journal.Journal
}

var app *env

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "divvyd",
	Short: "goDivvyd - Divvy payment engine",
	Long: `goDivvyd computes Divvy payments along explicit paths through trust
lines and order books, crosses offers, and keeps snapshots of the ledger
states it works on.`,
	Version:           "0.1.0-dev",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnFinalize(func() {
		if err := teardown(rootCmd.OutOrStdout()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	})

	rootCmd.PersistentFlags().StringVar(&configFile, "conf", "", "configuration file path")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log errors")
	rootCmd.PersistentFlags().BoolVar(&metricsDump, "metrics", false, "print engine metrics on exit")
}

func setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return err
	}
	switch {
	case debug:
		cfg.Log.Level = "debug"
	case quiet:
		cfg.Log.Level = "error"
	}

	logger, closer, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	a := &env{cfg: cfg, logger: logger, logCloser: closer}

	if cfg.Metrics.Enabled || metricsDump {
		a.registry = prometheus.NewRegistry()
		a.metrics = metrics.NewEngine(a.registry, cfg.Metrics.Namespace)
	}

	if cfg.JournalEnabled() {
		j, err := journal.Open(cmd.Context(), cfg.Journal.Driver, cfg.Journal.DSN, logging.Component(logger, "journal"))
		if err != nil {
			closer.Close()
			return err
		}
		a.journal = j
	}
	app = a
	return nil
}

func teardown(w io.Writer) error {
	if app == nil {
		return nil
	}
	defer func() { app = nil }()

	if metricsDump && app.registry != nil {
		families, err := app.registry.Gather()
		if err != nil {
			return err
		}
		for _, mf := range families {
			if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
				return err
			}
		}
	}
	if app.journal != nil {
		if err := app.journal.Close(); err != nil {
			app.logger.WithError(err).Warn("closing journal")
		}
	}
	return app.logCloser.Close()
}

// calculator returns a payment calculator configured from [engine].
func (a *env) calculator(component string) *paths.Calculator {
	return paths.NewCalculator(a.cfg.Engine.Limits(), logging.Component(a.logger, component))
}

// openSnapshots opens the store configured in [snapshot].
func (a *env) openSnapshots() (snapshot.Store, error) {
	return snapshot.Open(snapshot.Config{
		Backend:       a.cfg.Snapshot.Backend,
		Path:          a.cfg.Snapshot.Path,
		Compression:   a.cfg.Snapshot.Compression,
		RateCacheSize: a.cfg.Engine.RateCacheSize,
	}, logging.Component(a.logger, "snapshot"))
}

// record journals e when a journal is configured.
func (a *env) record(ctx context.Context, e journal.Entry) {
	if a.journal == nil {
		return
	}
	if err := a.journal.Record(ctx, e); err != nil {
		a.logger.WithError(err).Warn("journal write failed")
	}
}
