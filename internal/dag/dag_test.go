package dag

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestGraph builds: app -> db -> base, app -> cache -> base, tools.
func newTestGraph(t *testing.T) *Graph[string] {
	t.Helper()
	g := NewGraph[string]()
	for _, id := range []string{"app", "db", "cache", "base", "tools"} {
		g.AddNode(id, id+".tsk")
	}
	require.NoError(t, g.AddDependency("app", "db"))
	require.NoError(t, g.AddDependency("app", "cache"))
	require.NoError(t, g.AddDependency("db", "base"))
	require.NoError(t, g.AddDependency("cache", "base"))
	return g
}

func TestGraph_Basics(t *testing.T) {
	g := newTestGraph(t)

	assert.Equal(t, 5, g.Len())
	assert.Equal(t, 4, g.EdgeCount())
	assert.Equal(t, []string{"cache", "db"}, g.Dependencies("app"))
	assert.Equal(t, []string{"cache", "db"}, g.Dependents("base"))
	assert.Equal(t, []string{"base", "tools"}, g.Roots())

	require.NoError(t, g.AddDependency("app", "db"), "duplicate edges are ignored")
	assert.Equal(t, 4, g.EdgeCount())

	g.AddNode("db", "renamed.tsk")
	n, ok := g.Node("db")
	require.True(t, ok)
	assert.Equal(t, "renamed.tsk", n.Data)
	assert.Equal(t, []string{"base"}, g.Dependencies("db"), "replacing data keeps edges")
}

func TestGraph_AddDependency_Errors(t *testing.T) {
	g := NewGraph[int]()
	g.AddNode("a", 1)

	assert.Error(t, g.AddDependency("a", "missing"))
	assert.Error(t, g.AddDependency("missing", "a"))

	err := g.AddDependency("a", "a")
	assert.True(t, errors.Is(err, ErrCycle))
}

func TestGraph_FindCycle(t *testing.T) {
	g := newTestGraph(t)
	assert.Nil(t, g.FindCycle())

	require.NoError(t, g.AddDependency("base", "app"))
	cycle := g.FindCycle()
	require.NotNil(t, cycle)
	assert.Equal(t, []string{"app", "cache", "base", "app"}, cycle.Path)
	assert.Equal(t, "include cycle: app -> cache -> base -> app", cycle.Error())

	_, err := g.TopologicalSort()
	assert.True(t, errors.Is(err, ErrCycle))
	_, err = g.Levels()
	var ce *CycleError
	assert.True(t, errors.As(err, &ce))
}

func TestGraph_TopologicalSort(t *testing.T) {
	g := newTestGraph(t)

	nodes, err := g.TopologicalSort()
	require.NoError(t, err)

	pos := make(map[string]int)
	for i, n := range nodes {
		pos[n.ID] = i
	}
	require.Len(t, pos, 5)
	for _, id := range g.IDs() {
		for _, dep := range g.Dependencies(id) {
			assert.Less(t, pos[dep], pos[id], "%s before %s", dep, id)
		}
	}
}

func TestGraph_Levels(t *testing.T) {
	g := newTestGraph(t)

	levels, err := g.Levels()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"base", "tools"},
		{"cache", "db"},
		{"app"},
	}, levels)
}

func TestGraph_AffectedAndUpstream(t *testing.T) {
	g := newTestGraph(t)

	assert.Equal(t, []string{"app", "base", "cache", "db"}, g.Affected([]string{"base"}))
	assert.Equal(t, []string{"app", "cache"}, g.Affected([]string{"cache", "unknown"}))
	assert.Empty(t, g.Affected(nil))

	assert.Equal(t, []string{"base", "cache", "db"}, g.Upstream("app"))
	assert.Empty(t, g.Upstream("tools"))
}
