package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cyber-boost/tusktsk/internal/cli/output"
	"github.com/cyber-boost/tusktsk/internal/engine"
)

// NewLoadCommand creates the load command.
func NewLoadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load <file>",
		Short: "Print the value tree of a source or artifact",
		Long: `Load a .tsk source or .tskb artifact and print its value tree.

A source is served from its artifact when the artifact is at least as new;
otherwise it is parsed, analyzed and compiled in memory. Output is YAML,
or JSON with -o json.`,
		Example: `  tusk load app.tsk
  tusk load build/app.tskb -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(cmd, args[0])
		},
	}

	addAnalyzerFlags(cmd)

	return cmd
}

func runLoad(cmd *cobra.Command, path string) error {
	cmdCtx := NewCommandContextWithoutEngine(cmd)

	tree, err := engine.LoadFile(cmd.Context(), path, cmdCtx.LoadOptions(path))
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return printValue(cmdCtx.Renderer, tree)
}

// printValue writes v as JSON in JSON mode and as YAML otherwise.
func printValue(r *output.Renderer, v any) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(v)
	}
	enc := yaml.NewEncoder(r.Writer())
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode value: %w", err)
	}
	return enc.Close()
}
