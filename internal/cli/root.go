package cli

import (
	"fmt"
	"os"

	"github.com/CjHare/ton-amm-dex/internal/config"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	logLevel   string
	logFormat  string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tondex",
	Short: "tondex - asynchronous AMM DEX simulator",
	Long: `tondex runs a router, its pools and LP accounts as actors on an in-process
ledger. Messages are delivered one at a time in FIFO order, failed bounceable
messages bounce, and contract state can be kept in memory, pebble or leveldb.`,
	Version:       "0.1.0-dev",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. It is called by main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "conf", "", "configuration file path (toml, yaml or json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "override log.format (json or console)")
}

// loadConfig reads the configuration file and environment, then applies the
// global flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	return cfg, nil
}
