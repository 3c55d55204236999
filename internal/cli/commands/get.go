package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cyber-boost/tusktsk/internal/cli/output"
	"github.com/cyber-boost/tusktsk/internal/engine"
	"github.com/cyber-boost/tusktsk/internal/hierarchy"
	"github.com/cyber-boost/tusktsk/pkg/value"
)

// NewGetCommand creates the get command.
func NewGetCommand() *cobra.Command {
	var cascade bool

	cmd := &cobra.Command{
		Use:   "get <file> <path>",
		Short: "Print one value from a configuration",
		Long: `Load a configuration and print the value at a dotted path.

With --cascade the file is layered over every peanu.tsk (or peanu.tskb)
found from the filesystem root down to the file's directory, nearest
winning. The file argument may then also be a directory.`,
		Example: `  tusk get app.tsk server.port
  tusk get app.tsk '$env'

  # Resolve against the directory hierarchy
  tusk get services/api/app.tsk database.host --cascade
  tusk get services/api database.host --cascade`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(cmd, args[0], args[1], cascade)
		},
	}

	cmd.Flags().BoolVar(&cascade, "cascade", false, "Merge peanu files from parent directories")

	return cmd
}

func runGet(cmd *cobra.Command, path, key string, cascade bool) error {
	cmdCtx := NewCommandContextWithoutEngine(cmd)
	ctx := cmd.Context()

	var (
		tree *value.Tree
		err  error
	)
	if cascade {
		tree, err = loadCascade(ctx, cmdCtx, path)
	} else {
		tree, err = engine.LoadFile(ctx, path, cmdCtx.LoadOptions(path))
	}
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}

	v, err := tree.Lookup(key)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	switch {
	case r.EffectiveMode() == output.ModeJSON:
		return r.JSON(v)
	case v.Kind == value.KindObject || v.Kind == value.KindArray:
		return printValue(r, v)
	default:
		r.Println(v.String())
		return nil
	}
}

// loadCascade merges the hierarchy above path with path itself on top.
func loadCascade(ctx context.Context, cmdCtx *CommandContext, path string) (*value.Tree, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	dir := path
	if !info.IsDir() {
		dir = filepath.Dir(path)
	}

	levels, err := hierarchy.Discover(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() && !isLevelFile(levels, path) {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, err
		}
		levels = append(levels, hierarchy.Level{Dir: filepath.Dir(abs), Source: abs})
	}

	loader := hierarchy.LoaderFunc(func(ctx context.Context, p string) (*value.Tree, error) {
		return engine.LoadFile(ctx, p, cmdCtx.LoadOptions(p))
	})
	cmdCtx.Logger.Debug("cascading configuration", "levels", len(levels))
	return hierarchy.LoadLevels(ctx, levels, loader)
}

func isLevelFile(levels []hierarchy.Level, path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	for _, l := range levels {
		if l.Source == abs || l.Binary == abs {
			return true
		}
	}
	return false
}
