package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyber-boost/tusktsk/pkg/core"
	"github.com/cyber-boost/tusktsk/pkg/parser"
	"github.com/cyber-boost/tusktsk/pkg/value"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:  "normalizes assignments",
			input: "$env: \"prod\"\nname = \"tusk\"\nsum:1+2*3\n@import   \"base.tsk\"\n",
			expected: `$env = "prod"
name: "tusk"
sum: 1 + 2 * 3
@import "base.tsk"
`,
		},
		{
			name: "sections and comments",
			input: `# header
app: "x"
[server]
host: "h"   # the host
db {
pool: 5
}
after: 1
# about cache
[cache]
ttl: 5
`,
			expected: `# header
app: "x"

[server]
host: "h" # the host

db {
  pool: 5
}

after: 1

# about cache
[cache]
ttl: 5
`,
		},
		{
			name:  "angle block",
			input: "db >\nhost: \"x\"\n<\n",
			expected: `db >
  host: "x"
<
`,
		},
		{
			name:  "header comment",
			input: "[server]   #main\nport: 1\n",
			expected: `[server] # main
port: 1
`,
		},
		{
			name:  "long array breaks",
			input: `hosts: ["alpha.example.com", "beta.example.com", "gamma.example.com", "delta.example.com"]`,
			expected: `hosts: [
  "alpha.example.com",
  "beta.example.com",
  "gamma.example.com",
  "delta.example.com"
]
`,
		},
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Source(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

var fixedPointInputs = []string{
	"a:1\nb : [1,2 ,3]\nc={x:1,y:\"two\"}\n",
	`# top
$base = "/srv"
[paths]
root: $base + "/root"   # trailing
logs: $base + "/logs"
# before nested
nested {
  deep >
    k: 1
  <
  # end of nested
}
# before next
[limits]
ports: 8000-9000
ratio: -0.5
enabled: !false && true
pick: enabled ? "on" : "off"
point: origin {x: 0, y: -1}
first: paths.root[0]
shout: paths.root.upper()
env: @env("HOME", "/tmp")
peer: @other.tsk.get("k")
greeting: "hi ${base}"
servers: [{name: "alpha-primary.example.com", port: 8080}, {name: "beta-secondary.example.com", port: 8081}]
`,
	"[a]\n# only a comment\n[b]\nx: 1\n",
}

func TestFormat_FixedPoint(t *testing.T) {
	for _, src := range fixedPointInputs {
		once, err := Source(src)
		require.NoError(t, err)
		twice, err := Source(once)
		require.NoError(t, err)
		assert.Equal(t, once, twice)
	}
}

func TestFormat_PreservesValues(t *testing.T) {
	for _, src := range fixedPointInputs {
		cfg, errs := parser.Parse(src)
		require.NoError(t, errs.Err())
		formatted, errs := parser.Parse(Format(cfg))
		require.NoError(t, errs.Err())

		assert.True(t, value.FromAST(cfg).Equal(value.FromAST(formatted)), "formatting changed values of:\n%s", src)
	}
}

func TestSource_SyntaxError(t *testing.T) {
	_, err := Source("a: [1,\n")
	assert.Error(t, err)
}

func TestFormat_Nil(t *testing.T) {
	assert.Equal(t, "", Format(nil))
	assert.Equal(t, "", Format(&core.Configuration{}))
}
