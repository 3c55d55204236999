// Package config loads the tusk CLI configuration.
//
// Values are layered with koanf: built-in defaults, then tusk.yaml (found
// by walking up from the working directory), then TUSK_ environment
// variables, then explicitly set command-line flags.
package config

import (
	"time"

	sharedcfg "github.com/cyber-boost/tusktsk/internal/config"
	"github.com/cyber-boost/tusktsk/pkg/analyzer"
	"github.com/cyber-boost/tusktsk/pkg/binary"
)

// Config holds all CLI configuration options.
type Config struct {
	SourceDir    string         `koanf:"source_dir"`
	OutDir       string         `koanf:"out_dir"`
	StatePath    string         `koanf:"state_path"`
	Verbose      bool           `koanf:"verbose"`
	OutputFormat string         `koanf:"output"`
	Analyzer     AnalyzerConfig `koanf:"analyzer"`
	Compile      CompileConfig  `koanf:"compile"`
	Build        BuildConfig    `koanf:"build"`
	Watch        WatchConfig    `koanf:"watch"`

	// ProjectRoot is the directory relative paths were resolved against.
	ProjectRoot string `koanf:"-"`
}

// AnalyzerConfig mirrors analyzer.Options.
type AnalyzerConfig struct {
	CrossFileChecks bool     `koanf:"cross_file_checks"`
	WarnUnused      bool     `koanf:"warn_unused"`
	StrictCoercion  bool     `koanf:"strict_coercion"`
	Disabled        []string `koanf:"disabled"`
}

// Options converts the section to analyzer options.
func (c AnalyzerConfig) Options() analyzer.Options {
	return analyzer.Options{
		CrossFileChecks: c.CrossFileChecks,
		WarnUnused:      c.WarnUnused,
		StrictCoercion:  c.StrictCoercion,
		Disabled:        c.Disabled,
	}
}

// CompileConfig holds artifact compression settings.
type CompileConfig struct {
	Algorithm binary.Algorithm `koanf:"algorithm"`
	Threshold int              `koanf:"threshold"`
	Level     int              `koanf:"level"`
}

// Options converts the section to compile options.
func (c CompileConfig) Options() []binary.Option {
	return []binary.Option{
		binary.WithAlgorithm(c.Algorithm),
		binary.WithThreshold(c.Threshold),
		binary.WithLevel(c.Level),
	}
}

// BuildConfig holds project build settings.
type BuildConfig struct {
	// Workers caps parallel compiles. Zero uses GOMAXPROCS.
	Workers int `koanf:"workers"`
}

// WatchConfig holds watch mode settings.
type WatchConfig struct {
	Debounce time.Duration `koanf:"debounce"`
}

// Default configuration values - uses shared defaults from internal/config
const (
	DefaultSourceDir = sharedcfg.DefaultSourceDir
	DefaultStateFile = sharedcfg.DefaultStateFile
	DefaultOutput    = sharedcfg.DefaultOutput
)
