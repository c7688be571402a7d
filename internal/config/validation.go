package config

import (
	"fmt"
	"slices"
	"strings"

	log "github.com/sirupsen/logrus"
)

// ValidateConfig performs validation on the complete configuration
func ValidateConfig(config *Config) error {
	if err := config.Engine.Validate(); err != nil {
		return fmt.Errorf("engine validation failed: %w", err)
	}
	if err := config.Log.Validate(); err != nil {
		return fmt.Errorf("log validation failed: %w", err)
	}
	if err := config.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics validation failed: %w", err)
	}
	if err := config.Snapshot.Validate(); err != nil {
		return fmt.Errorf("snapshot validation failed: %w", err)
	}
	if err := config.Journal.Validate(); err != nil {
		return fmt.Errorf("journal validation failed: %w", err)
	}
	if config.Batch.Workers < 0 {
		return fmt.Errorf("batch workers must be non-negative, got %d", config.Batch.Workers)
	}
	return nil
}

// Validate performs validation on the engine configuration
func (e *EngineConfig) Validate() error {
	limits := map[string]int{
		"max_passes":       e.MaxPasses,
		"deliver_loops":    e.DeliverLoops,
		"deliver_loops_mq": e.DeliverLoopsMQ,
		"advance_loops":    e.AdvanceLoops,
	}
	for name, value := range limits {
		if value < 0 {
			return fmt.Errorf("%s must be non-negative, got %d", name, value)
		}
	}
	if e.RateCacheSize <= 0 {
		return fmt.Errorf("rate_cache_size must be positive, got %d", e.RateCacheSize)
	}
	return nil
}

// Validate performs validation on the log configuration
func (l *LogConfig) Validate() error {
	if _, err := log.ParseLevel(l.Level); err != nil {
		return fmt.Errorf("invalid level: %w", err)
	}
	if !slices.Contains([]string{"text", "json"}, strings.ToLower(l.Format)) {
		return fmt.Errorf("invalid format: %s (valid options: text, json)", l.Format)
	}
	if l.Output == "" {
		return fmt.Errorf("output is required")
	}
	return nil
}

// Validate performs validation on the metrics configuration
func (m *MetricsConfig) Validate() error {
	if m.Enabled && m.Namespace == "" {
		return fmt.Errorf("namespace is required when metrics are enabled")
	}
	return nil
}

// Validate performs validation on the snapshot configuration
func (s *SnapshotConfig) Validate() error {
	if !slices.Contains([]string{"pebble", "leveldb", "bbolt"}, s.Backend) {
		return fmt.Errorf("invalid backend: %s (valid options: pebble, leveldb, bbolt)", s.Backend)
	}
	if s.Path == "" {
		return fmt.Errorf("path is required")
	}
	if !slices.Contains([]string{"none", "lz4"}, s.Compression) {
		return fmt.Errorf("invalid compression: %s (valid options: none, lz4)", s.Compression)
	}
	return nil
}

// Validate performs validation on the journal configuration
func (j *JournalConfig) Validate() error {
	switch j.Driver {
	case "":
		return nil
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid driver: %s (valid options: sqlite, postgres)", j.Driver)
	}
	if j.DSN == "" {
		return fmt.Errorf("dsn is required for driver %s", j.Driver)
	}
	return nil
}
