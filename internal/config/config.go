// Package config loads tondex settings from defaults, an optional config file
// and TONDEX_ environment variables.
package config

import "time"

// Config is the complete tondex configuration.
type Config struct {
	Chain   ChainConfig   `mapstructure:"chain"`
	Router  RouterConfig  `mapstructure:"router"`
	Storage StorageConfig `mapstructure:"storage"`
	Journal JournalConfig `mapstructure:"journal"`
	Log     LogConfig     `mapstructure:"log"`

	configPath string
}

// ChainConfig holds the simulated ledger's economics.
type ChainConfig struct {
	Workchain      int32     `mapstructure:"workchain"`
	ComputeFee     uint64    `mapstructure:"compute_fee"`
	StorageReserve uint64    `mapstructure:"storage_reserve"`
	MaxSteps       int       `mapstructure:"max_steps"`
	StartTime      time.Time `mapstructure:"start_time"`
}

// RouterConfig describes the router deployed at startup.
type RouterConfig struct {
	// Admin is a raw or user-friendly address. Empty selects the sandbox admin.
	Admin string `mapstructure:"admin"`
	// Balance is the router's initial balance in nanocoins.
	Balance uint64 `mapstructure:"balance"`
	// PoolCacheSize bounds the pool address cache.
	PoolCacheSize int `mapstructure:"pool_cache_size"`
}

// StorageConfig selects the account state backend.
type StorageConfig struct {
	Backend string `mapstructure:"backend"` // memory, pebble or leveldb
	Path    string `mapstructure:"path"`
}

// JournalConfig selects the SQL transaction journal.
type JournalConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Driver  string        `mapstructure:"driver"` // sqlite or postgres
	DSN     string        `mapstructure:"dsn"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// Path is the file the configuration was read from, if any.
func (c *Config) Path() string { return c.configPath }
