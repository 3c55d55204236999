package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cyber-boost/tusktsk/internal/cli/output"
)

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [files...]",
		Short: "Parse and analyze configuration files",
		Long: `Parse and analyze configuration files and report diagnostics.

Without arguments every .tsk file under the source directory is checked,
with includes and cross-file references resolved against the tree.
The command exits non-zero when any error is found; warnings never fail.`,
		Example: `  # Check the whole project
  tusk check

  # Check single files with strict coercion
  tusk check app.tsk db.tsk --strict

  # Machine-readable diagnostics
  tusk check -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return runCheckProject(cmd)
			}
			return runCheckFiles(cmd, args)
		},
	}

	addAnalyzerFlags(cmd)

	return cmd
}

type checkSummary struct {
	Files    []fileDiagnostics `json:"files"`
	Errors   int               `json:"errors"`
	Warnings int               `json:"warnings"`
}

func (s *checkSummary) add(fd fileDiagnostics) {
	s.Files = append(s.Files, fd)
	s.Errors += fd.Errors
	s.Warnings += fd.Warnings
}

func runCheckProject(cmd *cobra.Command) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := cmdCtx.Engine.Check(cmd.Context())
	if err != nil {
		return fmt.Errorf("check failed: %w", err)
	}

	summary := &checkSummary{Files: []fileDiagnostics{}}
	for _, f := range result.Files {
		summary.add(newFileDiagnostics(f.Path, f.Diagnostics))
	}
	return renderCheck(cmdCtx.Renderer, summary)
}

func runCheckFiles(cmd *cobra.Command, paths []string) error {
	cmdCtx := NewCommandContextWithoutEngine(cmd)
	opts := cmdCtx.Cfg.Analyzer.Options()

	summary := &checkSummary{Files: []fileDiagnostics{}}
	for _, path := range paths {
		_, _, diags, err := analyzeFile(path, opts)
		if err != nil {
			return err
		}
		summary.add(newFileDiagnostics(path, diags))
	}
	return renderCheck(cmdCtx.Renderer, summary)
}

func renderCheck(r *output.Renderer, s *checkSummary) error {
	if r.EffectiveMode() == output.ModeJSON {
		if err := r.JSON(s); err != nil {
			return err
		}
	} else {
		for _, f := range s.Files {
			renderDiagnostics(r, f.Path, f.Diagnostics)
		}
		msg := fmt.Sprintf("%d file(s) checked: %d error(s), %d warning(s)", len(s.Files), s.Errors, s.Warnings)
		switch {
		case s.Errors > 0:
			r.Error(msg)
		case s.Warnings > 0:
			r.Warning(msg)
		default:
			r.Success(msg)
		}
	}

	if s.Errors > 0 {
		return fmt.Errorf("%w: %d error(s)", ErrCheckFailed, s.Errors)
	}
	return nil
}
