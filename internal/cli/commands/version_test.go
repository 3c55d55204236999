package commands

import (
	"bytes"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	for _, version := range []string{"0.1.0", "dev"} {
		t.Run(version, func(t *testing.T) {
			cmd := NewVersionCommand(version)
			var buf bytes.Buffer
			cmd.SetOut(&buf)
			cmd.SetArgs(nil)
			require.NoError(t, cmd.Execute())

			lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
			require.Len(t, lines, 2)
			assert.Equal(t, "tusk v"+version, lines[0])
			assert.True(t, strings.HasPrefix(lines[1], "Artifact format .tskb v1, "), lines[1])
			assert.Contains(t, lines[1], runtime.GOOS+"/"+runtime.GOARCH)
		})
	}
}
