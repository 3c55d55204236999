package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	sharedcfg "github.com/cyber-boost/tusktsk/internal/config"
)

// loggerKey is used to store logger in context.
type loggerKey struct{}

// EnvPrefix prefixes environment variables read as configuration.
// A double underscore separates nested keys: TUSK_COMPILE__ALGORITHM.
const EnvPrefix = "TUSK_"

// Package-level koanf instance and config file tracking
var (
	k              = koanf.New(".")
	configFileUsed string
	currentConfig  *Config // Stores the loaded config for access by commands
)

// flagKeys maps command-line flag names to config keys. Flags missing
// here are command options and never reach koanf.
var flagKeys = map[string]string{
	"source-dir":  "source_dir",
	"out-dir":     "out_dir",
	"state":       "state_path",
	"verbose":     "verbose",
	"output":      "output",
	"cross-file":  "analyzer.cross_file_checks",
	"warn-unused": "analyzer.warn_unused",
	"strict":      "analyzer.strict_coercion",
	"disable":     "analyzer.disabled",
	"algorithm":   "compile.algorithm",
	"threshold":   "compile.threshold",
	"level":       "compile.level",
	"workers":     "build.workers",
	"debounce":    "watch.debounce",
}

// pathFlags are resolved against the working directory rather than the
// project root.
var pathFlags = []string{"source-dir", "out-dir", "state"}

// inferProjectRoot determines the project root.
// Priority:
//  1. Directory of an explicit --config file
//  2. Nearest ancestor of the working directory holding tusk.yaml
//  3. Current working directory
func inferProjectRoot(cfgFile string) string {
	if cfgFile != "" {
		if abs, err := filepath.Abs(cfgFile); err == nil {
			return filepath.Dir(abs)
		}
	}

	cwd, err := os.Getwd()
	if err != nil || cwd == "" {
		return "."
	}
	if root := sharedcfg.FindProjectRoot(cwd); root != "" {
		return root
	}
	return cwd
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty, in-memory or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	currentConfig = nil
}

// defaults are the lowest configuration layer.
func defaults() map[string]any {
	return map[string]any{
		"source_dir":                 DefaultSourceDir,
		"out_dir":                    "",
		"state_path":                 DefaultStateFile,
		"verbose":                    false,
		"output":                     DefaultOutput,
		"analyzer.cross_file_checks": false,
		"analyzer.warn_unused":       true,
		"analyzer.strict_coercion":   false,
		"analyzer.disabled":          []string{},
		"compile.algorithm":          sharedcfg.DefaultAlgorithm.String(),
		"compile.threshold":          sharedcfg.DefaultThreshold,
		"compile.level":              0,
		"build.workers":              0,
		"watch.debounce":             sharedcfg.DefaultDebounce,
	}
}

// Keys returns every configuration key with its default value, sorted.
func Keys() []KeyDefault {
	d := defaults()
	keys := make([]KeyDefault, 0, len(d))
	for key, def := range d {
		keys = append(keys, KeyDefault{Key: key, Default: def})
	}
	slices.SortFunc(keys, func(a, b KeyDefault) int { return strings.Compare(a.Key, b.Key) })
	return keys
}

// KeyDefault is a configuration key and its default.
type KeyDefault struct {
	Key     string
	Default any
}

// EnvVar returns the environment variable read for key:
// compile.algorithm -> TUSK_COMPILE__ALGORITHM.
func EnvVar(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "__"))
}

func envKey(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(name, EnvPrefix)), "__", ".")
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	// Reset koanf for fresh load
	k = koanf.New(".")
	configFileUsed = ""

	projectRoot := inferProjectRoot(cfgFile)

	// Paths given as flags are relative to where the user typed them.
	flagPaths := make(map[string]string)
	if flags != nil {
		for _, name := range pathFlags {
			if f := flags.Lookup(name); f != nil && f.Changed {
				flagPaths[name] = absPath(f.Value.String())
			}
		}
	}

	// 1. Load defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Find and load config file
	if cfgFile == "" {
		cfgFile = sharedcfg.FindConfigFile(projectRoot)
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
		configFileUsed = cfgFile
	}

	// 3. Load environment variables
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Load flags (highest priority - overrides env vars and config file)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			// Only load flags that were explicitly set
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal into Config struct
	cfg, err := unmarshal()
	if err != nil {
		return nil, err
	}

	// 6. Resolve paths: flags against the working directory, everything
	// else against the project root.
	cfg.ProjectRoot = projectRoot
	cfg.SourceDir = pick(flagPaths["source-dir"], resolvePathRelativeTo(cfg.SourceDir, projectRoot))
	cfg.OutDir = pick(flagPaths["out-dir"], resolvePathRelativeTo(cfg.OutDir, projectRoot))
	cfg.StatePath = pick(flagPaths["state"], resolvePathRelativeTo(cfg.StatePath, projectRoot))
	if cfg.OutDir == "" {
		cfg.OutDir = cfg.SourceDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Store config for access by commands
	currentConfig = cfg
	return cfg, nil
}

func unmarshal() (*Config, error) {
	var cfg Config
	err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
				mapstructure.TextUnmarshallerHookFunc(),
			),
			Result:           &cfg,
			WeaklyTypedInput: true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	return &cfg, nil
}

func absPath(p string) string {
	if p == ":memory:" {
		return p
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

func pick(preferred, fallback string) string {
	if preferred != "" {
		return preferred
	}
	return fallback
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the currently loaded configuration.
// This is available after LoadConfig is called.
func GetCurrentConfig() *Config {
	return currentConfig
}

// WithLogger returns a context carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
			return l
		}
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}
