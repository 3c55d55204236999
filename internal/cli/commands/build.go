package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cyber-boost/tusktsk/internal/cli/output"
	"github.com/cyber-boost/tusktsk/internal/engine"
)

// NewBuildCommand creates the build command.
func NewBuildCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Compile every file in the source tree",
		Long: `Compile every .tsk file under the source directory to .tskb artifacts.

Files are compiled in include order, independent files in parallel.
A file whose source is unchanged since its last successful build is
skipped unless --force is given. Every build is recorded in the state
database (see 'tusk history').`,
		Example: `  # Incremental build
  tusk build

  # Rebuild everything with lz4 and 8 workers
  tusk build --force --algorithm lz4 --workers 8`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Recompile files with a current artifact")
	cmd.Flags().Int("workers", 0, "Files compiled in parallel (0 uses GOMAXPROCS)")
	addAnalyzerFlags(cmd)
	addCompileFlags(cmd)

	return cmd
}

type fileBuildJSON struct {
	Path      string            `json:"path"`
	Status    string            `json:"status"`
	Artifact  string            `json:"artifact,omitempty"`
	Size      int               `json:"size,omitempty"`
	Algorithm string            `json:"algorithm,omitempty"`
	Error     string            `json:"error,omitempty"`
	Diags     []fileDiagnostics `json:"diagnostics,omitempty"`
}

type buildJSON struct {
	BuildID    string          `json:"build_id"`
	Compiled   int             `json:"compiled"`
	Cached     int             `json:"cached"`
	Failed     int             `json:"failed"`
	DurationMS int64           `json:"duration_ms"`
	Files      []fileBuildJSON `json:"files"`
}

func runBuild(cmd *cobra.Command, force bool) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := cmdCtx.Engine.Build(cmd.Context(), engine.BuildOptions{Force: force})
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	if err := renderBuild(cmdCtx.Renderer, result, cmdCtx.Cfg.Verbose); err != nil {
		return err
	}
	if !result.OK() {
		return fmt.Errorf("%w: %d file(s) failed to build", ErrCheckFailed, result.Failed)
	}
	return nil
}

func renderBuild(r *output.Renderer, result *engine.BuildResult, verbose bool) error {
	if r.EffectiveMode() == output.ModeJSON {
		out := buildJSON{
			BuildID:    result.BuildID,
			Compiled:   result.Compiled,
			Cached:     result.Cached,
			Failed:     result.Failed,
			DurationMS: result.Duration.Milliseconds(),
			Files:      make([]fileBuildJSON, 0, len(result.Files)),
		}
		for _, f := range result.Files {
			fj := fileBuildJSON{
				Path:     f.Path,
				Status:   string(f.Status),
				Artifact: f.Artifact,
				Size:     f.Size,
			}
			if f.Status == engine.FileCompiled {
				fj.Algorithm = f.Algorithm.String()
			}
			if f.Err != nil {
				fj.Error = f.Err.Error()
			}
			if f.Report != nil && len(f.Report.Diagnostics) > 0 {
				fj.Diags = []fileDiagnostics{newFileDiagnostics(f.Path, f.Report.Diagnostics)}
			}
			out.Files = append(out.Files, fj)
		}
		return r.JSON(out)
	}

	r.Header(1, "Build "+shortID(result.BuildID))
	for _, f := range result.Files {
		switch f.Status {
		case engine.FileCached:
			if verbose {
				r.StatusLine(f.Path, string(f.Status), "")
			}
		case engine.FileFailed:
			r.StatusLine(f.Path, string(f.Status), errString(f.Err))
			if f.Report != nil {
				renderDiagnostics(r, f.Path, f.Report.Diagnostics)
			}
		default:
			r.StatusLine(f.Path, string(f.Status), fmt.Sprintf("%d bytes, %s", f.Size, f.Algorithm))
		}
	}
	r.Println("")

	if result.OK() {
		r.Success(result.Summary())
	} else {
		r.Error(result.Summary())
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Millisecond).String()
}
