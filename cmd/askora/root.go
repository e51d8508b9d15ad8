// cmd/askora/root.go
package main

import (
	"fmt"

	"askora/internal/common/config"
	"askora/internal/common/logger"

	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "askora",
	Short: "Askora answers questions from web search, internal knowledge and an LLM",
	Long: `Askora classifies a question, gathers sources from the configured search
providers, and answers with an LLM when one is available or with an
extractive summary when it is not. It runs as an HTTP service, as a set of
Camunda job workers, or one question at a time from the command line.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults to configs/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if cfgFile != "" {
		cfg, err = config.LoadFromFile(cfgFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}

// newLogger returns the service logger and a func that flushes it.
func newLogger(cfg *config.Config) (logger.Logger, func()) {
	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.NewZapAdapter(zapLog).
		WithFields(map[string]interface{}{"service": cfg.Observability.ServiceName})
	return log, func() { _ = zapLog.Sync() }
}
