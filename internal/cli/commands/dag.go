package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cyber-boost/tusktsk/internal/cli/output"
	"github.com/cyber-boost/tusktsk/internal/engine"
)

// GraphQuerier provides read-only access to DAG structure.
type GraphQuerier interface {
	Dependencies(string) []string
	Dependents(string) []string
	Len() int
	EdgeCount() int
}

// NewDAGCommand creates the dag command.
func NewDAGCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "dag",
		Aliases: []string{"graph"},
		Short:   "Show the include graph",
		Long: `Display the include graph of the source tree.

Files are grouped by build level: a file only includes (or calls into)
files from earlier levels, and files within a level compile in parallel.
Missing includes and parse errors found during discovery are listed
after the graph.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format (agent-friendly)`,
		Example: `  # Show the graph
  tusk dag

  # Output as JSON
  tusk dag --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDAG(cmd)
		},
	}

	return cmd
}

// DAGNode is one file in the JSON graph.
type DAGNode struct {
	Path      string   `json:"path"`
	DependsOn []string `json:"depends_on"`
	UsedBy    []string `json:"used_by"`
}

// DAGLevel is one build level in the JSON graph.
type DAGLevel struct {
	Level int       `json:"level"`
	Files []DAGNode `json:"files"`
}

// DAGOutput is the JSON shape of the dag command.
type DAGOutput struct {
	Levels     []DAGLevel              `json:"levels"`
	TotalFiles int                     `json:"total_files"`
	TotalEdges int                     `json:"total_edges"`
	Problems   []engine.DiscoveryError `json:"problems"`
}

func runDAG(cmd *cobra.Command) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	eng := cmdCtx.Engine
	r := cmdCtx.Renderer

	discovery, err := eng.Discover()
	if err != nil {
		return fmt.Errorf("failed to discover sources: %w", err)
	}

	graph := eng.Graph()
	levels, err := graph.Levels()
	if err != nil {
		return fmt.Errorf("failed to get build levels: %w", err)
	}

	effectiveMode := r.EffectiveMode()
	switch effectiveMode {
	case output.ModeJSON:
		return dagJSON(r, graph, levels, discovery)
	case output.ModeMarkdown:
		return dagMarkdown(r, graph, levels, discovery)
	default:
		return dagText(r, graph, levels, discovery)
	}
}

// dagText outputs the graph in styled text format.
func dagText(r *output.Renderer, graph GraphQuerier, levels [][]string, discovery *engine.DiscoveryResult) error {
	styles := r.Styles()

	r.Header(1, "Include Graph")

	for i, level := range levels {
		r.Println(styles.Header2.Render(fmt.Sprintf("Level %d:", i)))
		for _, file := range level {
			deps := graph.Dependencies(file)
			children := graph.Dependents(file)

			r.Printf("  %s\n", styles.Path.Render(file))
			if len(deps) > 0 {
				r.Printf("    %s %s\n", styles.Muted.Render("includes:"), strings.Join(deps, ", "))
			}
			if len(children) > 0 {
				r.Printf("    %s %s\n", styles.Muted.Render("included by:"), strings.Join(children, ", "))
			}
		}
		r.Println("")
	}

	for _, e := range discovery.Errors {
		r.Warning(fmt.Sprintf("%s (%s): %s", e.Path, e.Type, e.Message))
	}

	r.Println(styles.Muted.Render(fmt.Sprintf("Total: %d files, %d includes", graph.Len(), graph.EdgeCount())))

	return nil
}

// dagMarkdown outputs the graph in markdown format.
func dagMarkdown(r *output.Renderer, graph GraphQuerier, levels [][]string, discovery *engine.DiscoveryResult) error {
	r.Println(output.FormatHeader(1, "Include Graph"))
	r.Println("")

	for i, level := range levels {
		levelName := fmt.Sprintf("Level %d", i)
		if i == 0 {
			levelName = "Level 0 (Leaves)"
		}
		r.Println(output.FormatHeader(2, levelName))

		for _, file := range level {
			deps := graph.Dependencies(file)
			children := graph.Dependents(file)

			r.Printf("- %s\n", file)
			if len(deps) > 0 {
				r.Printf("  - includes: %s\n", strings.Join(deps, ", "))
			}
			if len(children) > 0 {
				r.Printf("  - included by: %s\n", strings.Join(children, ", "))
			}
		}
		r.Println("")
	}

	if len(discovery.Errors) > 0 {
		r.Println(output.FormatHeader(2, "Problems"))
		for _, e := range discovery.Errors {
			r.Printf("- %s (%s): %s\n", e.Path, e.Type, e.Message)
		}
		r.Println("")
	}

	r.Println(output.FormatHeader(2, "Summary"))
	r.Println(output.FormatKeyValue("Total Files", fmt.Sprintf("%d", graph.Len())))
	r.Println(output.FormatKeyValue("Total Includes", fmt.Sprintf("%d", graph.EdgeCount())))

	return nil
}

// dagJSON outputs the graph in JSON format.
func dagJSON(r *output.Renderer, graph GraphQuerier, levels [][]string, discovery *engine.DiscoveryResult) error {
	dagOutput := DAGOutput{
		Levels:     make([]DAGLevel, 0, len(levels)),
		TotalFiles: graph.Len(),
		TotalEdges: graph.EdgeCount(),
		Problems:   discovery.Errors,
	}
	if dagOutput.Problems == nil {
		dagOutput.Problems = []engine.DiscoveryError{}
	}

	for i, level := range levels {
		dagLevel := DAGLevel{
			Level: i,
			Files: make([]DAGNode, 0, len(level)),
		}

		for _, file := range level {
			dagLevel.Files = append(dagLevel.Files, DAGNode{
				Path:      file,
				DependsOn: nonNil(graph.Dependencies(file)),
				UsedBy:    nonNil(graph.Dependents(file)),
			})
		}

		dagOutput.Levels = append(dagOutput.Levels, dagLevel)
	}

	return r.JSON(dagOutput)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
