// Package cli implements the docrag command line.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"docrag/config"
	"docrag/internal/logging"
)

var (
	cfgFile  string
	logLevel string
	cfg      *config.Config
	logger   *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "docrag",
	Short: "Index document folders and retrieve passages with hybrid search",
	Long: `docrag builds a persistent semantic index over a folder of documents,
appends new files to it incrementally, and answers queries by fusing dense
vector similarity with BM25 lexical scores.

Example usage:
  docrag build ./manuals --out ./index         # Full build
  docrag append --store ./index ./manuals/new  # Add new or changed files
  docrag query --store ./index -q "max pressure"`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// API keys may live in .env; a missing file is fine.
		_ = godotenv.Load()

		var err error
		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			wd, wdErr := os.Getwd()
			if wdErr != nil {
				return fmt.Errorf("failed to get working directory: %w", wdErr)
			}
			cfg, err = config.LoadFromDir(wd)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		logger = logging.Setup(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
		runtime.GOMAXPROCS(cfg.Index.Threads())
		return nil
	},
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./docrag.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

// GetConfig returns the configuration loaded for the running command.
func GetConfig() *config.Config {
	return cfg
}
