package config

import (
	"github.com/spf13/viper"

	"github.com/LeJamon/goDivvyd/internal/core/paths"
	"github.com/LeJamon/goDivvyd/internal/core/state"
)

// setDefaults sets all default values
func setDefaults(v *viper.Viper) {
	// 1. Engine defaults
	v.SetDefault("engine.max_passes", paths.PaymentMaxLoops)
	v.SetDefault("engine.deliver_loops", paths.CalcNodeDeliverMaxLoops)
	v.SetDefault("engine.deliver_loops_mq", paths.CalcNodeDeliverMaxLoopsMQ)
	v.SetDefault("engine.advance_loops", paths.NodeAdvanceMaxLoops)
	v.SetDefault("engine.multi_quality", true)
	v.SetDefault("engine.rate_cache_size", state.DefaultRateCacheSize)
	v.SetDefault("engine.partial_payment", false)
	v.SetDefault("engine.default_paths", true)
	v.SetDefault("engine.limit_quality", false)
	v.SetDefault("engine.delete_unfunded_offers", true)

	// 2. Diagnostics defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "stderr")
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.namespace", "divvyd")

	// 3. Persistence defaults
	v.SetDefault("snapshot.backend", "pebble")
	v.SetDefault("snapshot.path", "divvyd-snapshots")
	v.SetDefault("snapshot.compression", "lz4")
	v.SetDefault("journal.driver", "")
	v.SetDefault("journal.dsn", "")

	// 4. Batch defaults
	v.SetDefault("batch.workers", 0)
}
