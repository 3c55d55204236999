package hierarchy_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyber-boost/tusktsk/internal/engine"
	"github.com/cyber-boost/tusktsk/internal/hierarchy"
	"github.com/cyber-boost/tusktsk/pkg/analyzer"
	"github.com/cyber-boost/tusktsk/pkg/binary"
	"github.com/cyber-boost/tusktsk/pkg/parser"
	"github.com/cyber-boost/tusktsk/pkg/value"
)

func compile(t *testing.T, src string) []byte {
	t.Helper()
	cfg, errs := parser.Parse(src)
	require.NoError(t, errs.Err())
	data, err := binary.Compile(cfg, analyzer.Analyze(cfg, analyzer.Options{}))
	require.NoError(t, err)
	return data
}

// setup builds root/peanu.tsk, root/a/peanu.tskb and root/a/b/peanu.tsk
// and returns root and root/a/b/c.
func setup(t *testing.T) (string, string) {
	t.Helper()
	root := t.TempDir()
	leaf := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(leaf, 0o755))

	write := func(rel string, data []byte) {
		require.NoError(t, os.WriteFile(filepath.Join(root, rel), data, 0o644))
	}
	write("peanu.tsk", []byte("[db]\nhost: \"root\"\nport: 1\nopts: {ssl: true, pool: 5}\n[app]\nname: \"root\"\n"))
	write(filepath.Join("a", "peanu.tskb"), compile(t, "[db]\nopts: {pool: 10}\n"))
	write(filepath.Join("a", "b", "peanu.tsk"), []byte("[db]\nport: 2\n"))
	return root, leaf
}

func loader() hierarchy.Loader {
	return hierarchy.LoaderFunc(func(ctx context.Context, path string) (*value.Tree, error) {
		return engine.LoadFile(ctx, path, engine.LoadOptions{})
	})
}

func TestDiscoverUntil(t *testing.T) {
	root, leaf := setup(t)

	levels, err := hierarchy.DiscoverUntil(leaf, root)
	require.NoError(t, err)
	require.Len(t, levels, 3)

	assert.Equal(t, root, levels[0].Dir)
	assert.Equal(t, filepath.Join(root, "peanu.tsk"), levels[0].Path())
	assert.Empty(t, levels[1].Source)
	assert.Equal(t, filepath.Join(root, "a", "peanu.tskb"), levels[1].Path())
	assert.Equal(t, filepath.Join(root, "a", "b"), levels[2].Dir)

	levels, err = hierarchy.DiscoverUntil(filepath.Join(root, "a"), filepath.Join(root, "a"))
	require.NoError(t, err)
	require.Len(t, levels, 1, "nothing above the stop directory")
}

func TestLevel_PrefersSource(t *testing.T) {
	l := hierarchy.Level{Source: "x/peanu.tsk", Binary: "x/peanu.tskb"}
	assert.Equal(t, "x/peanu.tsk", l.Path())
}

func TestLoadLevels_NearestWins(t *testing.T) {
	root, leaf := setup(t)
	levels, err := hierarchy.DiscoverUntil(leaf, root)
	require.NoError(t, err)

	tree, err := hierarchy.LoadLevels(context.Background(), levels, loader())
	require.NoError(t, err)

	for path, want := range map[string]*value.Value{
		"db.host":      value.String("root"),
		"db.port":      value.Int(2),
		"db.opts.ssl":  value.Bool(true),
		"db.opts.pool": value.Int(10),
		"app.name":     value.String("root"),
	} {
		got, ok := tree.Get(path)
		require.True(t, ok, path)
		assert.True(t, value.Equal(want, got), "%s = %s", path, got)
	}
}

func TestLoad(t *testing.T) {
	_, leaf := setup(t)

	tree, err := hierarchy.Load(context.Background(), leaf, loader())
	require.NoError(t, err)
	port, ok := tree.Get("db.port")
	require.True(t, ok)
	assert.Equal(t, int64(2), port.Int)
}

func TestLoadLevels_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := hierarchy.LoadLevels(ctx, nil, loader())
	assert.ErrorIs(t, err, hierarchy.ErrNoConfig)

	boom := errors.New("boom")
	failing := hierarchy.LoaderFunc(func(context.Context, string) (*value.Tree, error) {
		return nil, boom
	})
	_, err = hierarchy.LoadLevels(ctx, []hierarchy.Level{{Source: "peanu.tsk"}}, failing)
	assert.ErrorIs(t, err, boom)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = hierarchy.LoadLevels(cancelled, []hierarchy.Level{{Source: "peanu.tsk"}}, loader())
	assert.ErrorIs(t, err, context.Canceled)
}
