package config

import (
	"time"

	"github.com/spf13/viper"
)

const (
	BackendMemory  = "memory"
	BackendPebble  = "pebble"
	BackendLevelDB = "leveldb"
)

var defaultStartTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func setDefaults(v *viper.Viper) {
	v.SetDefault("chain.workchain", 0)
	v.SetDefault("chain.compute_fee", 10_000_000)
	v.SetDefault("chain.storage_reserve", 10_000_000)
	v.SetDefault("chain.max_steps", 10_000)
	v.SetDefault("chain.start_time", defaultStartTime)

	v.SetDefault("router.admin", "")
	v.SetDefault("router.balance", 1_000_000_000)
	v.SetDefault("router.pool_cache_size", 4096)

	v.SetDefault("storage.backend", BackendMemory)
	v.SetDefault("storage.path", "data/state")

	v.SetDefault("journal.enabled", false)
	v.SetDefault("journal.driver", "sqlite")
	v.SetDefault("journal.dsn", "data/journal.db")
	v.SetDefault("journal.timeout", 30*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}
