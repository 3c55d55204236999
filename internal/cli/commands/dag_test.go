package commands

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyber-boost/tusktsk/internal/cli/output"
	"github.com/cyber-boost/tusktsk/internal/cli/testutil"
	"github.com/cyber-boost/tusktsk/internal/engine"
)

func TestNewDAGCommand(t *testing.T) {
	cmd := NewDAGCommand()

	if cmd.Use != "dag" {
		t.Errorf("Use = %q, want %q", cmd.Use, "dag")
	}

	if cmd.Short == "" {
		t.Error("Short should not be empty")
	}

	if cmd.Long == "" {
		t.Error("Long should not be empty")
	}

	if cmd.Example == "" {
		t.Error("Example should not be empty")
	}
}

// fakeGraph: app.tsk includes db.tsk and cache.tsk.
type fakeGraph struct{}

func (fakeGraph) Dependencies(id string) []string {
	if id == "app.tsk" {
		return []string{"cache.tsk", "db.tsk"}
	}
	return nil
}

func (fakeGraph) Dependents(id string) []string {
	if id == "db.tsk" || id == "cache.tsk" {
		return []string{"app.tsk"}
	}
	return nil
}

func (fakeGraph) Len() int       { return 3 }
func (fakeGraph) EdgeCount() int { return 2 }

var fakeLevels = [][]string{{"cache.tsk", "db.tsk"}, {"app.tsk"}}

func TestDAGMarkdown(t *testing.T) {
	tr := testutil.NewTestRenderer(output.ModeMarkdown, false)
	discovery := &engine.DiscoveryResult{Errors: []engine.DiscoveryError{
		{Path: "app.tsk", Type: "include", Message: "missing.tsk not found"},
	}}

	require.NoError(t, dagMarkdown(tr.Renderer, fakeGraph{}, fakeLevels, discovery))

	out := tr.Output()
	testutil.AssertNoANSI(t, out)
	assert.Contains(t, out, "# Include Graph")
	assert.Contains(t, out, "## Level 0 (Leaves)")
	assert.Contains(t, out, "- app.tsk\n  - includes: cache.tsk, db.tsk")
	assert.Contains(t, out, "  - included by: app.tsk")
	assert.Contains(t, out, "- app.tsk (include): missing.tsk not found")
	assert.Contains(t, out, "- **Total Includes**: 2")
}

func TestDAGJSON(t *testing.T) {
	tr := testutil.NewTestRenderer(output.ModeJSON, false)

	require.NoError(t, dagJSON(tr.Renderer, fakeGraph{}, fakeLevels, &engine.DiscoveryResult{}))

	var got DAGOutput
	require.NoError(t, json.Unmarshal(tr.Out.Bytes(), &got))
	assert.Equal(t, 3, got.TotalFiles)
	assert.Equal(t, 2, got.TotalEdges)
	assert.Empty(t, got.Problems)
	require.Len(t, got.Levels, 2)
	assert.Equal(t, DAGNode{Path: "app.tsk", DependsOn: []string{"cache.tsk", "db.tsk"}, UsedBy: []string{}}, got.Levels[1].Files[0])
}
