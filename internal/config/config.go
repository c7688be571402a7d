package config

import (
	"github.com/LeJamon/goDivvyd/internal/core/paths"
)

// Config represents the complete divvyd configuration
type Config struct {
	// 1. Payment engine
	Engine EngineConfig `toml:"engine" mapstructure:"engine"`

	// 2. Diagnostics
	Log     LogConfig     `toml:"log" mapstructure:"log"`
	Metrics MetricsConfig `toml:"metrics" mapstructure:"metrics"`

	// 3. Persistence
	Snapshot SnapshotConfig `toml:"snapshot" mapstructure:"snapshot"`
	Journal  JournalConfig  `toml:"journal" mapstructure:"journal"`

	// 4. Batch runs
	Batch BatchConfig `toml:"batch" mapstructure:"batch"`

	// Internal fields for configuration management
	configPath string `toml:"-" mapstructure:"-"`
}

// EngineConfig represents the [engine] section.
// Loop limits of zero fall back to the engine defaults.
type EngineConfig struct {
	MaxPasses      int  `toml:"max_passes" mapstructure:"max_passes"`
	DeliverLoops   int  `toml:"deliver_loops" mapstructure:"deliver_loops"`
	DeliverLoopsMQ int  `toml:"deliver_loops_mq" mapstructure:"deliver_loops_mq"`
	AdvanceLoops   int  `toml:"advance_loops" mapstructure:"advance_loops"`
	MultiQuality   bool `toml:"multi_quality" mapstructure:"multi_quality"`
	RateCacheSize  int  `toml:"rate_cache_size" mapstructure:"rate_cache_size"`

	// Defaults for payments whose fixture leaves the flag unset
	PartialPayment       bool `toml:"partial_payment" mapstructure:"partial_payment"`
	DefaultPaths         bool `toml:"default_paths" mapstructure:"default_paths"`
	LimitQuality         bool `toml:"limit_quality" mapstructure:"limit_quality"`
	DeleteUnfundedOffers bool `toml:"delete_unfunded_offers" mapstructure:"delete_unfunded_offers"`
}

// Limits converts the section into engine limits.
func (e EngineConfig) Limits() paths.Limits {
	return paths.Limits{
		MaxPasses:      e.MaxPasses,
		DeliverLoops:   e.DeliverLoops,
		DeliverLoopsMQ: e.DeliverLoopsMQ,
		AdvanceLoops:   e.AdvanceLoops,
		MultiQuality:   e.MultiQuality,
	}
}

// Options returns the payment options used when a request sets none.
func (e EngineConfig) Options() paths.Options {
	return paths.Options{
		PartialPaymentAllowed: e.PartialPayment,
		DefaultPathsAllowed:   e.DefaultPaths,
		LimitQuality:          e.LimitQuality,
		DeleteUnfundedOffers:  e.DeleteUnfundedOffers,
		IsLedgerOpen:          true,
	}
}

// LogConfig represents the [log] section
type LogConfig struct {
	Level  string `toml:"level" mapstructure:"level"`
	Format string `toml:"format" mapstructure:"format"`
	// Output is stderr, stdout or a file path
	Output string `toml:"output" mapstructure:"output"`
}

// MetricsConfig represents the [metrics] section
type MetricsConfig struct {
	Enabled   bool   `toml:"enabled" mapstructure:"enabled"`
	Namespace string `toml:"namespace" mapstructure:"namespace"`
}

// SnapshotConfig represents the [snapshot] section
type SnapshotConfig struct {
	Backend     string `toml:"backend" mapstructure:"backend"`
	Path        string `toml:"path" mapstructure:"path"`
	Compression string `toml:"compression" mapstructure:"compression"`
}

// JournalConfig represents the [journal] section.
// An empty driver disables the journal.
type JournalConfig struct {
	Driver string `toml:"driver" mapstructure:"driver"`
	DSN    string `toml:"dsn" mapstructure:"dsn"`
}

// BatchConfig represents the [batch] section
type BatchConfig struct {
	// Workers of zero means one per CPU
	Workers int `toml:"workers" mapstructure:"workers"`
}

// DefaultConfigPath returns the default configuration file path
func DefaultConfigPath() string {
	return "divvyd.toml"
}

// GetConfigPath returns the path the configuration was loaded from
func (c *Config) GetConfigPath() string {
	return c.configPath
}

// JournalEnabled reports whether calculations should be journaled
func (c *Config) JournalEnabled() bool {
	return c.Journal.Driver != ""
}
