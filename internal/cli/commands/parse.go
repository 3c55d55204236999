package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cyber-boost/tusktsk/internal/cli/output"
	"github.com/cyber-boost/tusktsk/pkg/analyzer"
	"github.com/cyber-boost/tusktsk/pkg/core"
)

// NewParseCommand creates the parse command.
func NewParseCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Print the syntax tree of a file",
		Long: `Parse a file and print its statements as YAML (or JSON with -o json).

Each statement carries its position; values are printed in canonical
source form together with their inferred type.`,
		Example: `  # Show the tree
  tusk parse app.tsk

  # As JSON
  tusk parse app.tsk -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, args[0])
		},
	}

	return cmd
}

// astNode is the exported outline of one statement.
type astNode struct {
	Kind    string    `json:"kind" yaml:"kind"`
	Name    string    `json:"name,omitempty" yaml:"name,omitempty"`
	Dialect string    `json:"dialect,omitempty" yaml:"dialect,omitempty"`
	Value   string    `json:"value,omitempty" yaml:"value,omitempty"`
	Type    string    `json:"type,omitempty" yaml:"type,omitempty"`
	Line    int       `json:"line" yaml:"line"`
	Column  int       `json:"column" yaml:"column"`
	Body    []astNode `json:"body,omitempty" yaml:"body,omitempty"`
}

func runParse(cmd *cobra.Command, path string) error {
	cmdCtx := NewCommandContextWithoutEngine(cmd)
	r := cmdCtx.Renderer

	cfg, res, diags, err := analyzeFile(path, analyzer.Options{})
	if err != nil {
		return err
	}
	if syntax := syntaxErrors(diags); len(syntax) > 0 {
		renderDiagnostics(r, path, syntax)
		return fmt.Errorf("%w: %s does not parse", ErrCheckFailed, path)
	}

	nodes := outline(cfg.Statements, res)
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(nodes)
	}

	enc := yaml.NewEncoder(r.Writer())
	enc.SetIndent(2)
	if err := enc.Encode(nodes); err != nil {
		return fmt.Errorf("failed to encode tree: %w", err)
	}
	return enc.Close()
}

func outline(stmts []core.Stmt, res *analyzer.Result) []astNode {
	nodes := make([]astNode, 0, len(stmts))
	for _, stmt := range stmts {
		pos := stmt.Pos()
		n := astNode{Line: pos.Line, Column: pos.Column}
		switch s := stmt.(type) {
		case *core.Section:
			n.Kind = "section"
			n.Name = s.Name
			n.Dialect = s.Dialect.String()
			n.Body = outline(s.Body, res)
		case *core.GlobalVariableDecl:
			n.Kind = "global"
			n.Name = "$" + s.Name
			n.Value = core.FormatExpr(s.Value)
			n.Type = res.TypeOf(s.Value).String()
		case *core.Assignment:
			n.Kind = "assignment"
			n.Name = s.Key
			n.Value = core.FormatExpr(s.Value)
			n.Type = res.TypeOf(s.Value).String()
		case *core.Include:
			n.Kind = "include"
			if s.Import {
				n.Kind = "import"
			}
			if s.Path != nil {
				n.Value = core.FormatExpr(s.Path)
			}
		case *core.Comment:
			n.Kind = "comment"
			n.Value = s.Text
		}
		nodes = append(nodes, n)
	}
	return nodes
}
