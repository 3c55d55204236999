package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRenderer(mode Mode, isTTY bool) (*Renderer, *bytes.Buffer, *bytes.Buffer) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return NewRendererWithTTY(out, errOut, isTTY, mode), out, errOut
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeAuto, false},
		{"auto", ModeAuto, false},
		{"TEXT", ModeText, false},
		{" markdown ", ModeMarkdown, false},
		{"json", ModeJSON, false},
		{"yaml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEffectiveMode(t *testing.T) {
	tests := []struct {
		mode  Mode
		isTTY bool
		want  Mode
	}{
		{ModeAuto, true, ModeText},
		{ModeAuto, false, ModeMarkdown},
		{"", false, ModeMarkdown},
		{ModeJSON, true, ModeJSON},
		{ModeText, false, ModeText},
		{ModeMarkdown, true, ModeMarkdown},
	}

	for _, tt := range tests {
		r, _, _ := newTestRenderer(tt.mode, tt.isTTY)
		assert.Equal(t, tt.want, r.EffectiveMode(), "mode=%q tty=%v", tt.mode, tt.isTTY)
	}
}

func TestRenderer_Markdown(t *testing.T) {
	r, out, errOut := newTestRenderer(ModeAuto, false)

	r.Header(1, "Build")
	r.StatusLine("app.tsk", "compiled", "zstd")
	r.Success("done")
	r.Error("boom")

	assert.Equal(t, "# Build\n\n- app.tsk: `compiled` (zstd)\ndone\n", out.String())
	assert.Equal(t, "Error: boom\n", errOut.String())
}

func TestRenderer_TextWithoutColor(t *testing.T) {
	r, out, _ := newTestRenderer(ModeText, false)

	r.Success("done")
	r.StatusLine("app.tsk", "failed", "")

	assert.Contains(t, out.String(), "✓ done\n")
	assert.Contains(t, out.String(), "failed")
	assert.Contains(t, out.String(), "app.tsk")
	assert.NotContains(t, out.String(), "\x1b[", "no escape codes without a terminal")
}

func TestRenderer_JSON(t *testing.T) {
	r, out, _ := newTestRenderer(ModeJSON, false)

	require.NoError(t, r.JSON(map[string]int{"files": 2}))
	assert.JSONEq(t, `{"files": 2}`, out.String())
}

func TestRenderer_Table(t *testing.T) {
	r, out, _ := newTestRenderer(ModeMarkdown, false)

	r.Table([]string{"Field", "Value"}, [][]string{{"version", "1"}})

	got := strings.ToLower(out.String())
	assert.Contains(t, got, "| field | value |")
	assert.Contains(t, got, "| version | 1 |")
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "## Files", FormatHeader(2, "Files"))
	assert.Equal(t, "# Files", FormatHeader(0, "Files"))
	assert.Equal(t, "- **Files**: 3", FormatKeyValue("Files", "3"))
	assert.Equal(t, "```tusk\na: 1\n```", FormatCode("tusk", "a: 1\n"))
}
