package commands

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cyber-boost/tusktsk/internal/cli/config"
	"github.com/cyber-boost/tusktsk/internal/cli/output"
	"github.com/cyber-boost/tusktsk/internal/engine"
	"github.com/cyber-boost/tusktsk/pkg/binary"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Engine   *engine.Engine
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with engine and renderer.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	eng, err := createEngine(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	cleanup := func() {
		if err := eng.Close(); err != nil {
			logger.Warn("failed to close engine", "error", err)
		}
	}

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Engine:   eng,
		Renderer: r,
	}, cleanup, nil
}

// NewCommandContextWithoutEngine creates a CommandContext without an engine.
// Useful for commands that work on single files and never touch the state store.
func NewCommandContextWithoutEngine(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// LoadOptions returns engine load options for path, offering the artifact
// the project build would have written for it.
func (c *CommandContext) LoadOptions(path string) engine.LoadOptions {
	opts := engine.LoadOptions{
		Analyzer: c.Cfg.Analyzer.Options(),
		Compile:  c.Cfg.Compile.Options(),
		Logger:   c.Logger,
	}
	if abs, err := filepath.Abs(path); err == nil {
		if rel, err := filepath.Rel(c.Cfg.SourceDir, abs); err == nil && filepath.IsLocal(rel) {
			opts.Artifacts = []string{filepath.Join(c.Cfg.OutDir, rel+"b")}
		}
	}
	return opts
}

// Helper functions shared across commands

// getConfig returns the current configuration.
// It uses config.GetCurrentConfig() if available, otherwise falls back to environment variables.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}

	sourceDir := getEnvOrDefault("TUSK_SOURCE_DIR", config.DefaultSourceDir)
	algorithm, err := binary.ParseAlgorithm(getEnvOrDefault("TUSK_COMPILE__ALGORITHM", "zstd"))
	if err != nil {
		algorithm = binary.AlgorithmZstd
	}

	return &config.Config{
		SourceDir:    sourceDir,
		OutDir:       getEnvOrDefault("TUSK_OUT_DIR", sourceDir),
		StatePath:    getEnvOrDefault("TUSK_STATE_PATH", config.DefaultStateFile),
		Verbose:      os.Getenv("TUSK_VERBOSE") == "true",
		OutputFormat: os.Getenv("TUSK_OUTPUT"),
		Analyzer:     config.AnalyzerConfig{WarnUnused: true},
		Compile: config.CompileConfig{
			Algorithm: algorithm,
			Threshold: binary.DefaultThreshold,
		},
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func createEngine(cfg *config.Config, logger *slog.Logger) (*engine.Engine, error) {
	// Ensure state directory exists
	if cfg.StatePath != ":memory:" {
		stateDir := filepath.Dir(cfg.StatePath)
		if stateDir != "." && stateDir != "" {
			if err := os.MkdirAll(stateDir, 0750); err != nil {
				return nil, err
			}
		}
	}

	engineCfg := engine.Config{
		SourceDir: cfg.SourceDir,
		OutDir:    cfg.OutDir,
		StatePath: cfg.StatePath,
		Analyzer:  cfg.Analyzer.Options(),
		Compile:   cfg.Compile.Options(),
		Workers:   cfg.Build.Workers,
		Debounce:  cfg.Watch.Debounce,
		Logger:    logger,
	}

	return engine.New(engineCfg)
}
