package commands

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cyber-boost/tusktsk/internal/engine"
	"github.com/cyber-boost/tusktsk/pkg/format"
)

// FmtOptions holds options for the fmt command.
type FmtOptions struct {
	Write bool
	Check bool
}

// NewFmtCommand creates the fmt command.
func NewFmtCommand() *cobra.Command {
	opts := &FmtOptions{}

	cmd := &cobra.Command{
		Use:   "fmt [files...]",
		Short: "Format configuration files",
		Long: `Print configuration files in canonical style.

Without --write a single file is printed to stdout. With --write every
file that changes is rewritten in place. With --check nothing is written
and the command fails if any file is not formatted. Without arguments all
.tsk files under the source directory are processed.`,
		Example: `  tusk fmt app.tsk
  tusk fmt --write
  tusk fmt --check`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFmt(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Write, "write", "w", false, "Rewrite files in place")
	cmd.Flags().BoolVar(&opts.Check, "check", false, "Fail if any file needs formatting")
	cmd.MarkFlagsMutuallyExclusive("write", "check")

	return cmd
}

func runFmt(cmd *cobra.Command, args []string, opts *FmtOptions) error {
	cmdCtx := NewCommandContextWithoutEngine(cmd)
	r := cmdCtx.Renderer

	paths := args
	if len(paths) == 0 {
		var err error
		if paths, err = sourceFiles(cmdCtx.Cfg.SourceDir); err != nil {
			return err
		}
	}
	if !opts.Write && !opts.Check && len(paths) != 1 {
		return fmt.Errorf("printing needs exactly one file; use --write or --check for %d files", len(paths))
	}

	var unformatted []string
	for _, path := range paths {
		src, err := os.ReadFile(path) //nolint:gosec // user-supplied path is the point
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		out, err := format.Source(string(src))
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		switch {
		case opts.Check:
			if out != string(src) {
				unformatted = append(unformatted, path)
			}
		case opts.Write:
			if out == string(src) {
				continue
			}
			info, err := os.Stat(path)
			if err != nil {
				return err
			}
			if err := os.WriteFile(path, []byte(out), info.Mode().Perm()); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
			cmdCtx.Logger.Debug("formatted", "path", path)
			r.Println(path)
		default:
			r.Printf("%s", out)
		}
	}

	if len(unformatted) > 0 {
		for _, p := range unformatted {
			r.Println(p)
		}
		return fmt.Errorf("%w: %d file(s) need formatting", ErrCheckFailed, len(unformatted))
	}
	return nil
}

// sourceFiles lists the .tsk files under dir, skipping hidden directories.
func sourceFiles(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(path, engine.SourceExt) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	return paths, nil
}
