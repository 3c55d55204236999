package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyber-boost/tusktsk/internal/cli/config"
	"github.com/cyber-boost/tusktsk/pkg/binary"
)

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{NewTokensCommand(), "tokens <file>", []string{"skip-newlines"}},
		{NewParseCommand(), "parse <file>", nil},
		{NewCheckCommand(), "check [files...]", []string{"strict", "cross-file", "warn-unused", "disable"}},
		{NewCompileCommand(), "compile <file>", []string{"out", "algorithm", "threshold", "level", "strict"}},
		{NewBuildCommand(), "build", []string{"force", "workers", "algorithm", "threshold", "level", "cross-file"}},
		{NewLoadCommand(), "load <file>", []string{"strict"}},
		{NewGetCommand(), "get <file> <path>", []string{"cascade"}},
		{NewInspectCommand(), "inspect <artifact>", nil},
		{NewFmtCommand(), "fmt [files...]", []string{"write", "check"}},
		{NewWatchCommand(), "watch", []string{"debounce", "workers", "algorithm"}},
		{NewHistoryCommand(), "history [build-id]", []string{"limit", "artifacts"}},
		{NewDirectivesCommand(), "directives", nil},
		{NewREPLCommand(), "repl [file]", []string{"strict"}},
		{NewDoctorCommand(), "doctor", []string{"format"}},
		{NewLSPCommand("dev"), "lsp", []string{"cross-file"}},
	}

	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short, "Short should not be empty")
			for _, flag := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(flag), "flag %q should exist", flag)
			}
		})
	}
}

func TestAlgorithmNames(t *testing.T) {
	assert.Equal(t, []string{"none", "gzip", "lz4", "zstd"}, algorithmNames())
}

// setupProject writes files into a temp source dir and points the
// environment based configuration at it.
func setupProject(t *testing.T, files map[string]string, mode string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}

	config.ResetConfig()
	t.Setenv("TUSK_SOURCE_DIR", dir)
	t.Setenv("TUSK_OUT_DIR", dir)
	t.Setenv("TUSK_STATE_PATH", ":memory:")
	t.Setenv("TUSK_OUTPUT", mode)
	t.Chdir(dir)
	return dir
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

const appSource = `[app]
name: "demo"
port: 8080
`

func TestCheckCommand(t *testing.T) {
	setupProject(t, map[string]string{
		"ok.tsk":  appSource,
		"bad.tsk": "value: $missing\n",
	}, "json")

	out, err := execute(t, NewCheckCommand(), "ok.tsk")
	require.NoError(t, err)

	var summary checkSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 0, summary.Errors)
	require.Len(t, summary.Files, 1)
	assert.Equal(t, "ok.tsk", summary.Files[0].Path)

	_, err = execute(t, NewCheckCommand(), "bad.tsk")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCheckFailed)
}

func TestCheckCommand_Project(t *testing.T) {
	setupProject(t, map[string]string{
		"peanu.tsk":      appSource,
		"conf/db.tsk":    "port: 5432\n",
		"conf/cache.tsk": "ttl: 60\n",
	}, "json")

	out, err := execute(t, NewCheckCommand())
	require.NoError(t, err)

	var summary checkSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Len(t, summary.Files, 3)
}

func TestCompileCommand(t *testing.T) {
	dir := setupProject(t, map[string]string{"ok.tsk": appSource}, "json")

	out, err := execute(t, NewCompileCommand(), "ok.tsk", "--out", "build/ok.tskb", "--algorithm", "none")
	require.NoError(t, err)

	var result compileJSON
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "build/ok.tskb", result.Artifact)
	assert.False(t, result.Compressed)

	data, err := os.ReadFile(filepath.Join(dir, "build", "ok.tskb"))
	require.NoError(t, err)
	h, err := binary.ReadHeader(data)
	require.NoError(t, err)
	assert.Equal(t, binary.Version, h.Version)
	assert.Equal(t, result.Size, len(data))
}

func TestCompileCommand_RefusesErrors(t *testing.T) {
	dir := setupProject(t, map[string]string{"bad.tsk": "value: $missing\n"}, "json")

	_, err := execute(t, NewCompileCommand(), "bad.tsk")
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "bad.tskb"))
	assert.True(t, os.IsNotExist(statErr), "no artifact should be written")
}

func TestLoadCommand(t *testing.T) {
	setupProject(t, map[string]string{"ok.tsk": appSource}, "json")

	out, err := execute(t, NewLoadCommand(), "ok.tsk")
	require.NoError(t, err)

	var tree map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &tree))
	app, ok := tree["app"].(map[string]any)
	require.True(t, ok, "app should be an object: %v", tree)
	assert.Equal(t, "demo", app["name"])
	assert.InDelta(t, 8080, app["port"], 0)
}

func TestGetCommand(t *testing.T) {
	setupProject(t, map[string]string{"ok.tsk": appSource}, "text")

	out, err := execute(t, NewGetCommand(), "ok.tsk", "app.port")
	require.NoError(t, err)
	assert.Equal(t, "8080\n", out)

	_, err = execute(t, NewGetCommand(), "ok.tsk", "app.missing")
	assert.Error(t, err)
}

func TestGetCommand_Cascade(t *testing.T) {
	setupProject(t, map[string]string{
		"peanu.tsk":         "[app]\nname: \"root\"\nregion: \"eu\"\n",
		"svc/api/peanu.tsk": "[app]\nname: \"api\"\n",
	}, "text")

	out, err := execute(t, NewGetCommand(), filepath.Join("svc", "api", "peanu.tsk"), "app.name", "--cascade")
	require.NoError(t, err)
	assert.Equal(t, "api\n", out)
}

func TestFmtCommand(t *testing.T) {
	dir := setupProject(t, map[string]string{"messy.tsk": "name = \"tusk\"\n"}, "text")

	_, err := execute(t, NewFmtCommand(), "--check", "messy.tsk")
	assert.ErrorIs(t, err, ErrCheckFailed)

	_, err = execute(t, NewFmtCommand(), "-w", "messy.tsk")
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(dir, "messy.tsk"))
	require.NoError(t, err)
	assert.Equal(t, "name: \"tusk\"\n", string(content))

	_, err = execute(t, NewFmtCommand(), "--check")
	assert.NoError(t, err)
}

func TestFmtCommand_PrintNeedsOneFile(t *testing.T) {
	setupProject(t, map[string]string{"a.tsk": "a: 1\n", "b.tsk": "b: 2\n"}, "text")

	_, err := execute(t, NewFmtCommand())
	assert.Error(t, err)
}
