package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cyber-boost/tusktsk/internal/cli/output"
	"github.com/cyber-boost/tusktsk/pkg/binary"
)

// NewCompileCommand creates the compile command.
func NewCompileCommand() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "compile <file>",
		Short: "Compile one file to a binary artifact",
		Long: `Parse, analyze and compile a single file to the .tskb binary format.

Compilation is refused when analysis reports any error. Warnings are
printed but do not block the artifact. Use 'tusk build' to compile a whole
source tree with caching.`,
		Example: `  # Writes app.tskb next to app.tsk
  tusk compile app.tsk

  # Uncompressed, to a chosen path
  tusk compile app.tsk --algorithm none --out dist/app.tskb`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd, args[0], outPath)
		},
	}

	cmd.Flags().StringVar(&outPath, "out", "", "Artifact path (default: source path with .tskb extension)")
	addAnalyzerFlags(cmd)
	addCompileFlags(cmd)

	return cmd
}

type compileJSON struct {
	Source     string            `json:"source"`
	Artifact   string            `json:"artifact"`
	Size       int               `json:"size"`
	Compressed bool              `json:"compressed"`
	Algorithm  string            `json:"algorithm"`
	Warnings   []fileDiagnostics `json:"warnings,omitempty"`
}

func runCompile(cmd *cobra.Command, path, outPath string) error {
	cmdCtx := NewCommandContextWithoutEngine(cmd)
	r := cmdCtx.Renderer

	cfg, res, diags, err := analyzeFile(path, cmdCtx.Cfg.Analyzer.Options())
	if err != nil {
		return err
	}
	if syntax := syntaxErrors(diags); len(syntax) > 0 {
		renderDiagnostics(r, path, syntax)
		return fmt.Errorf("%w: %s does not parse", ErrCheckFailed, path)
	}

	data, err := binary.Compile(cfg, res, cmdCtx.Cfg.Compile.Options()...)
	if err != nil {
		var refused *binary.RefusedError
		if errors.As(err, &refused) {
			renderDiagnostics(r, path, refused.Errors)
		}
		return fmt.Errorf("failed to compile %s: %w", path, err)
	}

	if outPath == "" {
		outPath = strings.TrimSuffix(path, filepath.Ext(path)) + binary.Extension
	}
	if dir := filepath.Dir(outPath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil { //nolint:gosec // artifacts are world readable like sources
		return fmt.Errorf("failed to write artifact: %w", err)
	}

	h, err := binary.ReadHeader(data)
	if err != nil {
		return err
	}
	alg := "none"
	if h.Compressed {
		alg = h.Algorithm.String()
	}
	cmdCtx.Logger.Debug("compiled", "source", path, "artifact", outPath, "size", len(data), "algorithm", alg)

	if r.EffectiveMode() == output.ModeJSON {
		out := compileJSON{
			Source:     path,
			Artifact:   outPath,
			Size:       len(data),
			Compressed: h.Compressed,
			Algorithm:  alg,
		}
		if len(res.Warnings) > 0 {
			out.Warnings = []fileDiagnostics{newFileDiagnostics(path, res.Warnings)}
		}
		return r.JSON(out)
	}

	renderDiagnostics(r, path, res.Warnings)
	r.Success(fmt.Sprintf("%s -> %s (%d bytes, %s)", path, outPath, len(data), alg))
	return nil
}
