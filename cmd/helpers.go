package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/ziadkadry99/prompted/internal/config"
	"github.com/ziadkadry99/prompted/internal/export"
	"github.com/ziadkadry99/prompted/internal/gateway"
	"github.com/ziadkadry99/prompted/internal/logging"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `prompted init` to create a config file", err)
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// newLogger builds the stderr logger used by the non-interactive commands.
func newLogger(cfg *config.Config) *zap.Logger {
	return logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: logging.Format(cfg.Log.Format),
	})
}

// newGateway creates the API client for the configured server.
func newGateway(cfg *config.Config, logger *zap.Logger) *gateway.Client {
	return gateway.New(gateway.Config{
		BaseURL:  cfg.Client.BaseURL,
		Timeout:  time.Duration(cfg.Client.TimeoutSeconds) * time.Second,
		RetryGET: cfg.Client.RetryGet,
	}, logger)
}

// exportPath is the timestamped archive name inside dir.
func exportPath(dir string, now time.Time) string {
	return filepath.Join(dir, export.ArchiveName(now))
}
