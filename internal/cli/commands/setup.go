// Package commands implements the polarbr subcommands.
package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/censolab/polarbr/internal/cli/config"
	"github.com/censolab/polarbr/internal/state"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg    *config.Config
	Logger *slog.Logger
}

// NewCommandContext resolves config and logger for a command invocation.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	return &CommandContext{
		Cfg:    getConfig(),
		Logger: config.GetLogger(cmd.Context()),
	}
}

// getConfig returns the current configuration, falling back to environment
// variables with defaults when no config was loaded.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}

	cfg := &config.Config{
		RawDir:       getEnvOrDefault("POLARBR_RAW_DIR", config.DefaultRawDir),
		ProcessedDir: getEnvOrDefault("POLARBR_PROCESSED_DIR", config.DefaultProcessedDir),
		OutputDir:    getEnvOrDefault("POLARBR_OUTPUT_DIR", config.DefaultOutputDir),
		StatePath:    getEnvOrDefault("POLARBR_STATE_PATH", config.DefaultStateFile),
		Database:     getEnvOrDefault("POLARBR_DATABASE", config.DefaultDatabase),
		IdeologyPath: getEnvOrDefault("POLARBR_IDEOLOGY_PATH", config.DefaultIdeology),
		Years:        config.DefaultYears,
		Alpha:        config.DefaultAlpha,
		Bootstrap:    config.DefaultBootstrap,
		Seed:         config.DefaultSeed,
		OutputFormat: getEnvOrDefault("POLARBR_OUTPUT", config.DefaultOutput),
	}
	if v, err := strconv.ParseFloat(os.Getenv("POLARBR_ALPHA"), 64); err == nil {
		cfg.Alpha = v
	}
	return cfg
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// openStateStore opens (creating if needed) the run state database.
func openStateStore(cfg *config.Config) (*state.SQLiteStore, error) {
	stateDir := filepath.Dir(cfg.StatePath)
	if stateDir != "." && stateDir != "" {
		if err := os.MkdirAll(stateDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	store := state.NewSQLiteStore()
	if err := store.Open(cfg.StatePath); err != nil {
		return nil, err
	}
	if err := store.InitSchema(); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}
