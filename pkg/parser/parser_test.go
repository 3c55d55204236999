package parser_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/cyber-boost/tusktsk/pkg/core"
	"github.com/cyber-boost/tusktsk/pkg/parser"
	"github.com/cyber-boost/tusktsk/pkg/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tree renders an expression with every operator parenthesized so tests
// can assert on grouping.
func tree(e core.Expr) string {
	switch e := e.(type) {
	case *core.BinaryOp:
		return fmt.Sprintf("(%s %s %s)", tree(e.Left), e.Op, tree(e.Right))
	case *core.UnaryOp:
		return fmt.Sprintf("(%s%s)", e.Op, tree(e.Operand))
	case *core.Ternary:
		return fmt.Sprintf("(%s ? %s : %s)", tree(e.Cond), tree(e.Then), tree(e.Else))
	case *core.Grouping:
		return tree(e.Inner)
	default:
		return core.FormatExpr(e)
	}
}

func mustParseExpr(t *testing.T, src string) core.Expr {
	t.Helper()
	expr, errs := parser.ParseExpr(src)
	require.NoError(t, errs.Err())
	require.NotNil(t, expr)
	return expr
}

func mustParse(t *testing.T, src string) *core.Configuration {
	t.Helper()
	cfg, errs := parser.Parse(src)
	require.NoError(t, errs.Err())
	return cfg
}

// ---------- Expression Tests ----------

func TestParseExpr_Precedence(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1 + 2 * 3", "(1 + (2 * 3))"},
		{"(1 + 2) * 3", "((1 + 2) * 3)"},
		{"1 - 2 - 3", "((1 - 2) - 3)"},
		{"a || b && c", "(a || (b && c))"},
		{"a == b < c", "(a == (b < c))"},
		{"!a && b", "((!a) && b)"},
		{"-x * 2", "((-x) * 2)"},
		{"a ? b : c ? d : e", "(a ? b : (c ? d : e))"},
		{"a > 1 ? \"big\" : \"small\"", `((a > 1) ? "big" : "small")`},
		{"$base + \"/api\"", `($base + "/api")`},
		{"x % 2 == 0", "((x % 2) == 0)"},
		{"-a.b", "(-a.b)"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, tree(mustParseExpr(t, tt.input)))
		})
	}
}

func TestParseExpr_Literals(t *testing.T) {
	tests := []struct {
		input string
		typ   core.TuskType
		value any
	}{
		{"42", core.TypeInteger, int64(42)},
		{"3000000000", core.TypeLong, int64(3000000000)},
		{"99999999999999999999", core.TypeDouble, float64(1e20)},
		{"1.5", core.TypeDouble, 1.5},
		{"2e3", core.TypeDouble, 2000.0},
		{`"text"`, core.TypeString, "text"},
		{`'single'`, core.TypeString, "single"},
		{"true", core.TypeBoolean, true},
		{"false", core.TypeBoolean, false},
		{"null", core.TypeNull, nil},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			lit, ok := mustParseExpr(t, tt.input).(*core.Literal)
			require.True(t, ok, "expected a literal")
			assert.Equal(t, tt.typ, lit.Type)
			assert.Equal(t, tt.value, lit.Value)
		})
	}
}

func TestParseExpr_Range(t *testing.T) {
	r, ok := mustParseExpr(t, "8000-9000").(*core.Range)
	require.True(t, ok, "expected a range")
	assert.Equal(t, int64(8000), r.Min)
	assert.Equal(t, int64(9000), r.Max)
	assert.Equal(t, token.Position{Line: 1, Column: 1, Offset: 0}, r.ValuePos)

	sub, ok := mustParseExpr(t, "8000 - 9000").(*core.BinaryOp)
	require.True(t, ok, "spaced minus is subtraction")
	assert.Equal(t, core.OpSub, sub.Op)

	neg, ok := mustParseExpr(t, "-1-5").(*core.UnaryOp)
	require.True(t, ok)
	assert.IsType(t, &core.Range{}, neg.Operand)
}

func TestParseExpr_Directives(t *testing.T) {
	t.Run("call with arguments", func(t *testing.T) {
		d, ok := mustParseExpr(t, `@env("HOME", "/tmp")`).(*core.DirectiveCall)
		require.True(t, ok)
		assert.Equal(t, "env", d.Name)
		require.Len(t, d.Args, 2)
		assert.Equal(t, `"/tmp"`, core.FormatExpr(d.Args[1]))
	})

	t.Run("bare directive has no arguments", func(t *testing.T) {
		d, ok := mustParseExpr(t, "@uuid").(*core.DirectiveCall)
		require.True(t, ok)
		assert.Equal(t, "uuid", d.Name)
		assert.Empty(t, d.Args)
	})

	t.Run("nested composite arguments", func(t *testing.T) {
		d, ok := mustParseExpr(t, `@cache("5m", @query("SELECT 1, 2"))`).(*core.DirectiveCall)
		require.True(t, ok)
		require.Len(t, d.Args, 2)
		inner, ok := d.Args[1].(*core.DirectiveCall)
		require.True(t, ok)
		assert.Equal(t, "query", inner.Name)
		require.Len(t, inner.Args, 1)
	})

	t.Run("cross-file call", func(t *testing.T) {
		c, ok := mustParseExpr(t, `@config.tsk.get("db.host")`).(*core.CrossFileCall)
		require.True(t, ok)
		assert.Equal(t, "config.tsk", c.File)
		assert.Equal(t, "get", c.Method)
		require.Len(t, c.Args, 1)
	})

	t.Run("namespaced directive", func(t *testing.T) {
		for src, name := range map[string]string{
			`@protection.encrypt("x")`: "protection.encrypt",
			"@request.method":          "request.method",
			"@license.check":           "license.check",
		} {
			d, ok := mustParseExpr(t, src).(*core.DirectiveCall)
			require.True(t, ok, src)
			assert.Equal(t, name, d.Name)
		}
	})

	t.Run("spaced dot is property access", func(t *testing.T) {
		p, ok := mustParseExpr(t, `@request .body`).(*core.PropertyAccess)
		require.True(t, ok)
		assert.Equal(t, "body", p.Property)
		assert.IsType(t, &core.DirectiveCall{}, p.Object)
	})
}

func TestParseExpr_NestedComposite(t *testing.T) {
	obj, ok := mustParseExpr(t, `{a: "x,y", b: [1,2]}`).(*core.Object)
	require.True(t, ok)
	require.Len(t, obj.Fields, 2)

	assert.Equal(t, "a", obj.Fields[0].Key)
	lit, ok := obj.Fields[0].Value.(*core.Literal)
	require.True(t, ok)
	assert.Equal(t, "x,y", lit.Value)

	assert.Equal(t, "b", obj.Fields[1].Key)
	arr, ok := obj.Fields[1].Value.(*core.Array)
	require.True(t, ok)
	assert.Len(t, arr.Elements, 2)
}

func TestParseExpr_Composites(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty array", "[]", "[]"},
		{"empty object", "{}", "{}"},
		{"trailing comma", "[1, 2,]", "[1, 2]"},
		{"newline separated", "[\n  1\n  2\n]", "[1, 2]"},
		{"comments inside", "[\n  1, # one\n  2 # two\n]", "[1, 2]"},
		{"object newline separated", "{\n  host: \"h\"\n  port = 80\n}", `{host: "h", port: 80}`},
		{"quoted keys", `{"content-type": "json", 'x y': 1}`, `{content-type: "json", "x y": 1}`},
		{"named object", `server {port: 80}`, `server {port: 80}`},
		{"deep nesting", `[[1, [2, {a: [3]}]], "]"]`, `[[1, [2, {a: [3]}]], "]"]`},
		{"brackets inside strings", `["a]", "{b", "(c"]`, `["a]", "{b", "(c"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, core.FormatExpr(mustParseExpr(t, tt.input)))
		})
	}
}

func TestParseExpr_Postfix(t *testing.T) {
	m, ok := mustParseExpr(t, "a.b[0].c(1)").(*core.MethodCall)
	require.True(t, ok)
	assert.Equal(t, "c", m.Method)
	require.Len(t, m.Args, 1)

	idx, ok := m.Receiver.(*core.IndexAccess)
	require.True(t, ok)
	prop, ok := idx.Object.(*core.PropertyAccess)
	require.True(t, ok)
	assert.Equal(t, "b", prop.Property)
	ref, ok := prop.Object.(*core.VariableRef)
	require.True(t, ok)
	assert.Equal(t, "a", ref.Name)
	assert.False(t, ref.Global)
}

func TestParseExpr_Template(t *testing.T) {
	tmpl, ok := mustParseExpr(t, `"hello ${name}, ${ user }"`).(*core.TemplateString)
	require.True(t, ok)
	assert.Equal(t, "hello ${name}, ${ user }", tmpl.Raw)
	assert.Equal(t, []core.TemplateSlot{
		{Name: "name", Offset: 6},
		{Name: "user", Offset: 15},
	}, tmpl.Slots)
}

func TestParseExpr_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		msg   string
	}{
		{"dangling operator", "1 +", "expected a value, found end of file"},
		{"unterminated array", "[1, 2", "unterminated array literal"},
		{"unterminated object", "{a: 1", "unterminated object literal"},
		{"missing colon", "{a 1}", "expected ':' after object key"},
		{"bad separator", "[1 2]", "unexpected number 2, expected ',' or ']'"},
		{"unterminated slot", `"${name"`, "unterminated template slot"},
		{"malformed number", "30s", `invalid number literal "30s"`},
		{"trailing tokens", "1 2", "expected end of statement, found number 2"},
		{"missing ternary colon", "a ? b", "expected ':' in conditional expression"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errs := parser.ParseExpr(tt.input)
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0].Message, tt.msg)
		})
	}
}

func TestParseExpr_UnterminatedReportedAtOpen(t *testing.T) {
	_, errs := parser.ParseExpr("[1,\n 2,\n 3")
	require.Len(t, errs, 1)
	assert.Equal(t, 1, errs[0].Pos.Line)
	assert.Equal(t, 1, errs[0].Pos.Column)
}

// ---------- Statement Tests ----------

const sampleConfig = `# app config
$env = "prod"
name: "tusk"
@include "extra.tsk"

[server]
host: "localhost"
ports: 8000-9000

database {
  driver = "postgres"
  pool >
    max: 10
  <
}

[cache.redis]
ttl: "5m"
`

func TestParse_Structure(t *testing.T) {
	cfg := mustParse(t, sampleConfig)
	require.Len(t, cfg.Statements, 6)

	comment, ok := cfg.Statements[0].(*core.Comment)
	require.True(t, ok)
	assert.Equal(t, "app config", comment.Text)

	global, ok := cfg.Statements[1].(*core.GlobalVariableDecl)
	require.True(t, ok)
	assert.Equal(t, "env", global.Name)

	name, ok := cfg.Statements[2].(*core.Assignment)
	require.True(t, ok)
	assert.Equal(t, "name", name.Key)

	inc, ok := cfg.Statements[3].(*core.Include)
	require.True(t, ok)
	assert.False(t, inc.Import)
	assert.Equal(t, `"extra.tsk"`, core.FormatExpr(inc.Path))

	server, ok := cfg.Statements[4].(*core.Section)
	require.True(t, ok)
	assert.Equal(t, "server", server.Name)
	assert.Equal(t, core.DialectBracket, server.Dialect)
	require.Len(t, server.Body, 3)

	ports, ok := server.Body[1].(*core.Assignment)
	require.True(t, ok)
	assert.IsType(t, &core.Range{}, ports.Value)

	db, ok := server.Body[2].(*core.Section)
	require.True(t, ok)
	assert.Equal(t, "database", db.Name)
	assert.Equal(t, core.DialectBrace, db.Dialect)
	require.Len(t, db.Body, 2)

	pool, ok := db.Body[1].(*core.Section)
	require.True(t, ok)
	assert.Equal(t, core.DialectAngle, pool.Dialect)
	require.Len(t, pool.Body, 1)

	redis, ok := cfg.Statements[5].(*core.Section)
	require.True(t, ok)
	assert.Equal(t, "cache.redis", redis.Name)
	assert.Equal(t, token.Position{Line: 17, Column: 1, Offset: strings.Index(sampleConfig, "[cache")}, redis.NamePos)
}

func TestParse_Statements(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, cfg *core.Configuration)
	}{
		{
			name:  "semicolons separate statements",
			input: "a: 1; b = 2;",
			check: func(t *testing.T, cfg *core.Configuration) {
				assert.Len(t, cfg.Statements, 2)
			},
		},
		{
			name:  "one-line brace block",
			input: "server { port: 8080 }",
			check: func(t *testing.T, cfg *core.Configuration) {
				require.Len(t, cfg.Statements, 1)
				s := cfg.Statements[0].(*core.Section)
				assert.Equal(t, core.DialectBrace, s.Dialect)
				assert.Len(t, s.Body, 1)
			},
		},
		{
			name:  "quoted key",
			input: `"content-type": "json"`,
			check: func(t *testing.T, cfg *core.Configuration) {
				require.Len(t, cfg.Statements, 1)
				assert.Equal(t, "content-type", cfg.Statements[0].(*core.Assignment).Key)
			},
		},
		{
			name:  "global with colon",
			input: "$port: 80",
			check: func(t *testing.T, cfg *core.Configuration) {
				require.Len(t, cfg.Statements, 1)
				assert.Equal(t, "port", cfg.Statements[0].(*core.GlobalVariableDecl).Name)
			},
		},
		{
			name:  "parenthesized import",
			input: `@import("shared.tsk")`,
			check: func(t *testing.T, cfg *core.Configuration) {
				require.Len(t, cfg.Statements, 1)
				assert.True(t, cfg.Statements[0].(*core.Include).Import)
			},
		},
		{
			name:  "multi-line value",
			input: "hosts: [\n  \"a\",\n  \"b\"\n]\nnext: 1",
			check: func(t *testing.T, cfg *core.Configuration) {
				require.Len(t, cfg.Statements, 2)
				arr := cfg.Statements[0].(*core.Assignment).Value.(*core.Array)
				assert.Len(t, arr.Elements, 2)
			},
		},
		{
			name:  "repeated section headers",
			input: "[a]\nx: 1\n[a]\ny: 2",
			check: func(t *testing.T, cfg *core.Configuration) {
				assert.Len(t, cfg.Statements, 2)
			},
		},
		{
			name:  "trailing comment after value",
			input: "a: 1 # one\nb: 2",
			check: func(t *testing.T, cfg *core.Configuration) {
				require.Len(t, cfg.Statements, 3)
				assert.IsType(t, &core.Comment{}, cfg.Statements[1])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, mustParse(t, tt.input))
		})
	}
}

func TestParse_Recovery(t *testing.T) {
	src := "a: 1\nb: = 2\nc: 3\nlist: [1, 2 3,\n  4]\nd: true\n"
	cfg, errs := parser.Parse(src)

	require.Len(t, errs, 2)
	assert.Equal(t, "parse error at line 2, column 4: expected a value, found '='", errs[0].Error())
	assert.Equal(t, 4, errs[1].Pos.Line)

	var keys []string
	for _, stmt := range cfg.Statements {
		keys = append(keys, stmt.(*core.Assignment).Key)
	}
	assert.Equal(t, []string{"a", "c", "d"}, keys)
}

func TestParse_UnclosedCompositeResumesOnNextLine(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		msg    string
		column int
		keys   []string
	}{
		{"array", "a: [1, 2\nb: 3\n", "unterminated array", 4, []string{"b"}},
		{"nested array", "a: [1, [2\nb: 3\n", "unterminated array", 8, []string{"b"}},
		{"array before string key", "a: [1,\n\"b\": 3\n", "unterminated array", 4, []string{"b"}},
		{"arguments", "a: @env(\"X\"\nb = 3\n", "unterminated argument list", 8, []string{"b"}},
		{"object before global", "a: {x: 1\n$g = 2\nb: 3\n", "unterminated object", 4, []string{"$g", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, errs := parser.Parse(tt.input)
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0].Message, tt.msg)
			assert.Equal(t, 1, errs[0].Pos.Line)
			assert.Equal(t, tt.column, errs[0].Pos.Column)

			var keys []string
			for _, stmt := range cfg.Statements {
				switch s := stmt.(type) {
				case *core.Assignment:
					keys = append(keys, s.Key)
				case *core.GlobalVariableDecl:
					keys = append(keys, "$"+s.Name)
				}
			}
			assert.Equal(t, tt.keys, keys)
		})
	}
}

func TestParse_BlockErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		msg   string
		line  int
	}{
		{"unclosed brace", "server {\n  port: 1\n", `section "server" is never closed`, 1},
		{"unclosed angle", "a: 1\ndb >\n  x: 1\n", `section "db" is never closed`, 2},
		{"unmatched close", "a: 1\n}\n", "'}' does not close any open section", 2},
		{"mismatched close", "db >\n  x: 1\n}\n", `'}' cannot close angle section "db"`, 3},
		{"header inside block", "a {\n[b]\n}\n", "section header [b] inside a brace block", 2},
		{"directive statement", "@env(\"X\")\n", "directive @env cannot be used as a statement", 1},
		{"missing include path", "@include\n", "@include requires a path", 1},
		{"stray token", "= 1\n", "unexpected '=' at start of statement", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errs := parser.Parse(tt.input)
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0].Message, tt.msg)
			assert.Equal(t, tt.line, errs[0].Pos.Line)
		})
	}
}

func TestParse_ErrorListDiagnostics(t *testing.T) {
	_, errs := parser.Parse("a: ~\nb: @\n")
	require.Len(t, errs, 2)

	diags := errs.Diagnostics()
	require.Len(t, diags, 2)
	for _, d := range diags {
		assert.Equal(t, parser.CodeSyntax, d.Code)
		assert.True(t, d.IsError())
	}
	assert.Contains(t, errs.Error(), "2 parse errors")
}

func TestParse_EmptyInput(t *testing.T) {
	cfg, errs := parser.Parse("")
	assert.NoError(t, errs.Err())
	assert.Empty(t, cfg.Statements)
}
