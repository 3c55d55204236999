package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyber-boost/tusktsk/internal/cli/config"
	"github.com/cyber-boost/tusktsk/internal/cli/testutil"
)

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(config.ResetConfig)
	cfgFile = ""

	cmd := NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := NewRootCmd()

	want := []string{
		"tokens", "parse", "check", "fmt", "compile", "inspect", "load", "get",
		"directives", "repl", "init", "build", "watch", "dag", "history",
		"doctor", "lsp", "version", "completion",
	}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}

	check, _, err := root.Find([]string{"check"})
	require.NoError(t, err)
	assert.Equal(t, GroupLanguage, check.GroupID)
	build, _, err := root.Find([]string{"build"})
	require.NoError(t, err)
	assert.Equal(t, GroupProject, build.GroupID)

	for _, flag := range []string{"config", "source-dir", "out-dir", "state", "verbose", "output"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), "persistent flag %q should exist", flag)
	}
}

func TestRootCommand_Check(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	t.Chdir(dir)

	out, err := runRoot(t, "check", "-o", "json")
	require.NoError(t, err)

	var summary struct {
		Files  []struct{ Path string } `json:"files"`
		Errors int                     `json:"errors"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Len(t, summary.Files, 3)
	assert.Equal(t, 0, summary.Errors)
}

func TestRootCommand_BuildCaches(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	t.Chdir(dir)

	type buildOutput struct {
		Compiled int `json:"compiled"`
		Cached   int `json:"cached"`
		Failed   int `json:"failed"`
	}

	out, err := runRoot(t, "build", "-o", "json")
	require.NoError(t, err)
	var first buildOutput
	require.NoError(t, json.Unmarshal([]byte(out), &first))
	assert.Equal(t, buildOutput{Compiled: 3}, first)

	_, err = os.Stat(filepath.Join(dir, "peanu.tskb"))
	require.NoError(t, err, "artifact should be written next to the source")

	out, err = runRoot(t, "build", "-o", "json")
	require.NoError(t, err)
	var second buildOutput
	require.NoError(t, json.Unmarshal([]byte(out), &second))
	assert.Equal(t, buildOutput{Cached: 3}, second)
}

func TestRootCommand_Get(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	t.Chdir(dir)

	out, err := runRoot(t, "get", "peanu.tsk", "app.name", "-o", "text")
	require.NoError(t, err)
	assert.Equal(t, "demo\n", out)
}

func TestRootCommand_FlagOverridesFile(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	t.Chdir(dir)

	_, err := runRoot(t, "check", "-o", "json", "--strict")
	require.NoError(t, err)

	cfg := config.GetCurrentConfig()
	require.NotNil(t, cfg)
	assert.True(t, cfg.Analyzer.StrictCoercion)
	assert.Equal(t, "none", cfg.Compile.Algorithm.String())
}

func TestCompletionCommand(t *testing.T) {
	out, err := runRoot(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "tusk")

	_, err = runRoot(t, "completion", "tcsh")
	assert.Error(t, err)
}
