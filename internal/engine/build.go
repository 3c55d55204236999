package engine

// build.go - cached, parallel compilation of the source tree

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cyber-boost/tusktsk/internal/state"
	"github.com/cyber-boost/tusktsk/pkg/binary"
	"github.com/cyber-boost/tusktsk/pkg/core"
)

// BuildOptions configures a build.
type BuildOptions struct {
	// Force recompiles files whose cached artifact is still current
	Force bool
	// Changed limits the build to these source-relative paths and every
	// file that includes them, directly or not. Nil builds everything.
	Changed []string
}

// FileStatus is the outcome of building one file.
type FileStatus string

// File statuses.
const (
	FileCompiled FileStatus = "compiled"
	FileCached   FileStatus = "cached"
	FileFailed   FileStatus = "failed"
)

// FileBuild is the build outcome for one file.
type FileBuild struct {
	Path      string
	Status    FileStatus
	Artifact  string
	Size      int
	Algorithm binary.Algorithm
	// Report is nil for cached files.
	Report *FileReport
	// Err explains a failed file. It wraps binary.ErrRefused when analysis
	// blocked compilation.
	Err error

	hash string
}

// BuildResult summarizes one build.
type BuildResult struct {
	BuildID  string
	Files    []*FileBuild
	Compiled int
	Cached   int
	Failed   int
	Duration time.Duration
}

// OK reports whether every file built.
func (r *BuildResult) OK() bool {
	return r.Failed == 0
}

// Summary returns a human-readable summary.
func (r *BuildResult) Summary() string {
	return fmt.Sprintf("Files: %d (%d compiled, %d cached, %d failed) | Duration: %s",
		len(r.Files), r.Compiled, r.Cached, r.Failed, r.Duration.Round(time.Millisecond))
}

// Build compiles the source tree into the out dir. Files run level by
// level in include order, each level in parallel. A file whose source hash
// matches its recorded artifact is skipped unless opts.Force is set.
// Analysis failures are reported per file; only I/O, store and
// cancellation errors abort the build.
func (e *Engine) Build(ctx context.Context, opts BuildOptions) (*BuildResult, error) {
	start := time.Now()
	if _, err := e.Discover(); err != nil {
		return nil, err
	}

	graph := e.Graph()
	levels, err := graph.Levels()
	if err != nil {
		return nil, fmt.Errorf("failed to order files: %w", err)
	}

	var only map[string]bool
	if opts.Changed != nil {
		only = make(map[string]bool)
		for _, p := range graph.Affected(opts.Changed) {
			only[p] = true
		}
	}

	build, err := e.store.StartBuild(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start build: %w", err)
	}
	e.logger.Info("starting build", "build_id", build.ID, "force", opts.Force)

	result := &BuildResult{BuildID: build.ID}
	var mu sync.Mutex

	for _, level := range levels {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.workers)
		for _, id := range level {
			if only != nil && !only[id] {
				continue
			}
			node, _ := graph.Node(id)
			g.Go(func() error {
				fb, err := e.buildFile(gctx, node.Data, opts.Force)
				if err != nil {
					return err
				}
				mu.Lock()
				result.Files = append(result.Files, fb)
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			e.abort(build.ID, result)
			return nil, fmt.Errorf("build failed: %w", err)
		}
	}

	if err := e.record(ctx, build.ID, result); err != nil {
		e.abort(build.ID, result)
		return nil, err
	}

	status := state.BuildStatusSucceeded
	if !result.OK() {
		status = state.BuildStatusFailed
	}
	if err := e.store.FinishBuild(ctx, build.ID, status, len(result.Files), result.Failed); err != nil {
		return nil, fmt.Errorf("failed to finish build: %w", err)
	}

	result.Duration = time.Since(start)
	e.logger.Info("build completed",
		"build_id", build.ID,
		"compiled", result.Compiled,
		"cached", result.Cached,
		"failed", result.Failed,
		"duration_ms", result.Duration.Milliseconds())
	return result, nil
}

// buildFile compiles one file unless its artifact is current.
func (e *Engine) buildFile(ctx context.Context, f *File, force bool) (*FileBuild, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := e.ArtifactPath(f.Path)
	fb := &FileBuild{Path: f.Path, Artifact: out, hash: f.Hash}

	if !force {
		fresh, err := e.isCached(ctx, f, out)
		if err != nil {
			return nil, err
		}
		if fresh {
			e.logger.Debug("artifact is current", "file", f.Path)
			fb.Status = FileCached
			return fb, nil
		}
	}

	fb.Report = e.checkFile(f)
	data, err := e.compileFile(f, fb.Report)
	if err != nil {
		if !errors.Is(err, binary.ErrRefused) {
			return nil, fmt.Errorf("failed to compile %s: %w", f.Path, err)
		}
		e.logger.Debug("compilation refused", "file", f.Path, "errors", fb.Report.Errors)
		fb.Status = FileFailed
		fb.Err = err
		return fb, nil
	}

	if err := writeFileAtomic(out, data); err != nil {
		return nil, fmt.Errorf("failed to write artifact for %s: %w", f.Path, err)
	}
	e.logger.Debug("compiled", "file", f.Path, "artifact", out, "size", len(data))
	fb.Status = FileCompiled
	fb.Size = len(data)
	if h, err := binary.ReadHeader(data); err == nil {
		fb.Algorithm = h.Algorithm
	}
	return fb, nil
}

// compileFile refuses a file with syntax errors even when the recovered
// tree analyzed cleanly.
func (e *Engine) compileFile(f *File, report *FileReport) ([]byte, error) {
	if f.HasParseErrors() {
		var syntax []core.Diagnostic
		for _, d := range f.Problems {
			if d.IsError() {
				syntax = append(syntax, d)
			}
		}
		return nil, &binary.RefusedError{Reason: "source has syntax errors", Errors: syntax}
	}
	return binary.Compile(f.Config, report.Analysis, e.compile...)
}

func (e *Engine) isCached(ctx context.Context, f *File, out string) (bool, error) {
	a, err := e.store.GetArtifact(ctx, f.Path)
	if errors.Is(err, state.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read artifact cache: %w", err)
	}
	if a.SourceHash != f.Hash || a.ArtifactPath != out {
		return false, nil
	}
	info, err := os.Stat(out)
	if err != nil || info.Size() != a.Size {
		return false, nil
	}
	return true, nil
}

// record persists artifacts and diagnostics in path order and fills in
// the result counters.
func (e *Engine) record(ctx context.Context, buildID string, result *BuildResult) error {
	sortFileBuilds(result.Files)
	for _, fb := range result.Files {
		switch fb.Status {
		case FileCached:
			result.Cached++
		case FileFailed:
			result.Failed++
		case FileCompiled:
			result.Compiled++
			if err := e.store.RecordArtifact(ctx, &state.Artifact{
				SourcePath:   fb.Path,
				SourceHash:   fb.hash,
				ArtifactPath: fb.Artifact,
				Size:         int64(fb.Size),
				Algorithm:    fb.Algorithm.String(),
				CompiledAt:   time.Now(),
			}); err != nil {
				return fmt.Errorf("failed to record artifact: %w", err)
			}
		}
		if fb.Report != nil && len(fb.Report.Diagnostics) > 0 {
			if err := e.store.SaveDiagnostics(ctx, buildID, fb.Path, fb.Report.Diagnostics); err != nil {
				return fmt.Errorf("failed to save diagnostics: %w", err)
			}
		}
	}
	return nil
}

// abort marks a build failed after a fatal error. The store error, if
// any, is logged since the caller is already returning one.
func (e *Engine) abort(buildID string, result *BuildResult) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.store.FinishBuild(ctx, buildID, state.BuildStatusFailed, len(result.Files), result.Failed); err != nil {
		e.logger.Error("failed to mark build failed", "build_id", buildID, "error", err)
	}
}

// ArtifactPath maps a source-relative path to its artifact in the out dir.
func (e *Engine) ArtifactPath(rel string) string {
	name := strings.TrimSuffix(rel, SourceExt) + binary.Extension
	return filepath.Join(e.outDir, filepath.FromSlash(name))
}

// writeFileAtomic writes through a temp file in the target directory so
// readers never see a partial artifact.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tskb-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil { //nolint:gosec // artifacts are world readable like sources
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func sortFileBuilds(files []*FileBuild) {
	slices.SortFunc(files, func(a, b *FileBuild) int {
		return strings.Compare(a.Path, b.Path)
	})
}
