package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyber-boost/tusktsk/pkg/binary"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "tusk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func testFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("source-dir", "", "")
	flags.String("out-dir", "", "")
	flags.String("state", "", "")
	flags.String("algorithm", "", "")
	flags.Int("workers", 0, "")
	flags.Duration("debounce", 0, "")
	flags.StringSlice("disable", nil, "")
	flags.Bool("force", false, "")
	return flags
}

// TestLoadConfig_Defaults tests the values used without any config source.
func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "")

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.ProjectRoot)
	assert.Equal(t, dir, cfg.SourceDir)
	assert.Equal(t, dir, cfg.OutDir, "out dir defaults to the source dir")
	assert.Equal(t, filepath.Join(dir, DefaultStateFile), cfg.StatePath)
	assert.Equal(t, DefaultOutput, cfg.OutputFormat)
	assert.True(t, cfg.Analyzer.WarnUnused)
	assert.False(t, cfg.Analyzer.StrictCoercion)
	assert.Equal(t, binary.AlgorithmZstd, cfg.Compile.Algorithm)
	assert.Equal(t, binary.DefaultThreshold, cfg.Compile.Threshold)
	assert.Equal(t, 100*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, cfgPath, GetConfigFileUsed())
	assert.Same(t, cfg, GetCurrentConfig())
}

// TestLoadConfig_File tests decoding of every section of tusk.yaml.
func TestLoadConfig_File(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, `source_dir: conf
out_dir: /var/lib/tusk
state_path: ":memory:"
output: json
analyzer:
  strict_coercion: true
  warn_unused: false
  disabled: [duplicate-key]
compile:
  algorithm: lz4
  threshold: 64
build:
  workers: 3
watch:
  debounce: 2s
`)

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "conf"), cfg.SourceDir)
	assert.Equal(t, "/var/lib/tusk", cfg.OutDir)
	assert.Equal(t, ":memory:", cfg.StatePath)
	assert.Equal(t, "json", cfg.OutputFormat)
	assert.True(t, cfg.Analyzer.StrictCoercion)
	assert.False(t, cfg.Analyzer.WarnUnused)
	assert.Equal(t, []string{"duplicate-key"}, cfg.Analyzer.Disabled)
	assert.Equal(t, binary.AlgorithmLZ4, cfg.Compile.Algorithm)
	assert.Equal(t, 64, cfg.Compile.Threshold)
	assert.Equal(t, 3, cfg.Build.Workers)
	assert.Equal(t, 2*time.Second, cfg.Watch.Debounce)

	opts := cfg.Analyzer.Options()
	assert.True(t, opts.StrictCoercion)
	assert.True(t, opts.IsDisabled("duplicate-key"))
	assert.Len(t, cfg.Compile.Options(), 3)
}

// TestLoadConfig_Env tests TUSK_ environment variables, including nested
// keys.
func TestLoadConfig_Env(t *testing.T) {
	ResetConfig()
	cfgPath := writeConfig(t, t.TempDir(), "compile:\n  algorithm: gzip\n")

	t.Setenv("TUSK_COMPILE__ALGORITHM", "none")
	t.Setenv("TUSK_BUILD__WORKERS", "7")
	t.Setenv("TUSK_ANALYZER__DISABLED", "unused-variable,duplicate-key")

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	assert.Equal(t, binary.AlgorithmNone, cfg.Compile.Algorithm)
	assert.Equal(t, 7, cfg.Build.Workers)
	assert.Equal(t, []string{"unused-variable", "duplicate-key"}, cfg.Analyzer.Disabled)
}

func TestEnvVar(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"source_dir", "TUSK_SOURCE_DIR"},
		{"compile.algorithm", "TUSK_COMPILE__ALGORITHM"},
		{"analyzer.cross_file_checks", "TUSK_ANALYZER__CROSS_FILE_CHECKS"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, EnvVar(tt.key))
			assert.Equal(t, tt.key, envKey(tt.want))
		})
	}
}

func TestKeys_CoverFlags(t *testing.T) {
	known := make(map[string]bool)
	var names []string
	for _, kd := range Keys() {
		known[kd.Key] = true
		names = append(names, kd.Key)
	}
	assert.IsIncreasing(t, names)
	for flag, key := range flagKeys {
		assert.True(t, known[key], "flag %s maps to unknown key %s", flag, key)
	}
}

// TestLoadConfig_FlagPrecedence tests that flags override env vars and config file.
func TestLoadConfig_FlagPrecedence(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "compile:\n  algorithm: gzip\nbuild:\n  workers: 2\n")
	t.Setenv("TUSK_BUILD__WORKERS", "4")

	flags := testFlags()
	require.NoError(t, flags.Set("algorithm", "lz4"))
	require.NoError(t, flags.Set("workers", "8"))
	require.NoError(t, flags.Set("debounce", "1s"))
	require.NoError(t, flags.Set("disable", "unused-variable"))
	require.NoError(t, flags.Set("force", "true"))

	cfg, err := LoadConfig(cfgPath, flags)
	require.NoError(t, err)

	assert.Equal(t, binary.AlgorithmLZ4, cfg.Compile.Algorithm, "flag value should override config file")
	assert.Equal(t, 8, cfg.Build.Workers, "flag value should override env var")
	assert.Equal(t, time.Second, cfg.Watch.Debounce)
	assert.Equal(t, []string{"unused-variable"}, cfg.Analyzer.Disabled)
}

// TestLoadConfig_PathFlags tests that path flags resolve against the working
// directory, not the project root.
func TestLoadConfig_PathFlags(t *testing.T) {
	ResetConfig()
	cfgPath := writeConfig(t, t.TempDir(), "source_dir: conf\n")

	flags := testFlags()
	require.NoError(t, flags.Set("out-dir", "build"))
	require.NoError(t, flags.Set("state", ":memory:"))

	cfg, err := LoadConfig(cfgPath, flags)
	require.NoError(t, err)

	cwd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cwd, "build"), cfg.OutDir)
	assert.Equal(t, ":memory:", cfg.StatePath)
}

// TestLoadConfig_Errors tests rejection of bad files and values.
func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		errSubstr string
	}{
		{"bad yaml", "source_dir: [\n", "error reading config file"},
		{"unknown algorithm", "compile:\n  algorithm: brotli\n", "unable to decode config"},
		{"unknown output", "output: yaml\n", "unknown output mode"},
		{"negative workers", "build:\n  workers: -1\n", "build.workers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ResetConfig()
			cfgPath := writeConfig(t, t.TempDir(), tt.content)

			_, err := LoadConfig(cfgPath, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

// TestConfig_Validate tests the Config.Validate method.
func TestConfig_Validate(t *testing.T) {
	valid := Config{SourceDir: ".", OutputFormat: "auto", Compile: CompileConfig{Algorithm: binary.AlgorithmZstd}}
	assert.NoError(t, valid.Validate())

	missing := valid
	missing.SourceDir = ""
	assert.ErrorContains(t, missing.Validate(), "source_dir is required")

	badDebounce := valid
	badDebounce.Watch.Debounce = -time.Second
	assert.ErrorContains(t, badDebounce.Validate(), "watch.debounce")
}

// TestConfig_ValidateDirectories tests the source directory check.
func TestConfig_ValidateDirectories(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, (&Config{SourceDir: dir}).ValidateDirectories())
	assert.ErrorContains(t, (&Config{SourceDir: filepath.Join(dir, "nope")}).ValidateDirectories(), "does not exist")

	file := filepath.Join(dir, "app.tsk")
	require.NoError(t, os.WriteFile(file, nil, 0600))
	assert.ErrorContains(t, (&Config{SourceDir: file}).ValidateDirectories(), "not a directory")
}

func TestGetLogger(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()), "falls back to a discard logger")

	logger := GetLogger(context.Background())
	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, GetLogger(ctx))
}
