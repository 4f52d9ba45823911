package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/CjHare/ton-amm-dex/internal/codec"
	"go.uber.org/zap/zapcore"
)

var (
	ErrUnknownBackend = errors.New("unknown storage backend")
	ErrMissingPath    = errors.New("storage path is required")
	ErrUnknownDriver  = errors.New("unknown journal driver")
	ErrMissingDSN     = errors.New("journal dsn is required")
)

// Validate checks every section and normalizes case-insensitive values.
func Validate(c *Config) error {
	if err := c.Chain.Validate(); err != nil {
		return fmt.Errorf("chain: %w", err)
	}
	if err := c.Router.Validate(); err != nil {
		return fmt.Errorf("router: %w", err)
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Journal.Validate(); err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	return nil
}

func (c *ChainConfig) Validate() error {
	if c.Workchain != 0 && c.Workchain != -1 {
		return fmt.Errorf("workchain must be 0 or -1, got %d", c.Workchain)
	}
	if c.MaxSteps <= 0 {
		return fmt.Errorf("max_steps must be positive, got %d", c.MaxSteps)
	}
	return nil
}

func (c *RouterConfig) Validate() error {
	if c.Admin != "" {
		if _, err := codec.ParseAddress(c.Admin); err != nil {
			return fmt.Errorf("admin: %w", err)
		}
	}
	if c.PoolCacheSize <= 0 {
		return fmt.Errorf("pool_cache_size must be positive, got %d", c.PoolCacheSize)
	}
	return nil
}

func (c *StorageConfig) Validate() error {
	c.Backend = strings.ToLower(c.Backend)
	switch c.Backend {
	case BackendMemory:
		return nil
	case BackendPebble, BackendLevelDB:
		if c.Path == "" {
			return ErrMissingPath
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Backend)
	}
}

func (c *JournalConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	c.Driver = strings.ToLower(c.Driver)
	switch c.Driver {
	case "sqlite", "sqlite3", "postgres", "postgresql":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.Driver)
	}
	if c.DSN == "" {
		return ErrMissingDSN
	}
	return nil
}

func (c *LogConfig) Validate() error {
	if _, err := zapcore.ParseLevel(c.Level); err != nil {
		return err
	}
	c.Format = strings.ToLower(c.Format)
	if c.Format != "json" && c.Format != "console" {
		return fmt.Errorf("format must be json or console, got %q", c.Format)
	}
	return nil
}
