package engine

import (
	"context"
	"fmt"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cyber-boost/tusktsk/pkg/analyzer"
	"github.com/cyber-boost/tusktsk/pkg/core"
)

// FileReport is the check outcome for one file.
type FileReport struct {
	Path        string
	Diagnostics []core.Diagnostic
	Errors      int
	Warnings    int

	// Analysis covers whatever the parser recovered, even when the file
	// has syntax errors.
	Analysis *analyzer.Result
}

// OK reports whether the file has no errors.
func (r *FileReport) OK() bool {
	return r.Errors == 0
}

// CheckResult collects the reports of a check run, ordered by path.
type CheckResult struct {
	Files    []*FileReport
	Duration time.Duration
}

// Errors returns the total error count.
func (r *CheckResult) Errors() int {
	n := 0
	for _, f := range r.Files {
		n += f.Errors
	}
	return n
}

// Warnings returns the total warning count.
func (r *CheckResult) Warnings() int {
	n := 0
	for _, f := range r.Files {
		n += f.Warnings
	}
	return n
}

// HasErrors reports whether any file has errors.
func (r *CheckResult) HasErrors() bool {
	return r.Errors() > 0
}

// Check discovers the tree, then parses and analyzes every file in
// parallel.
func (e *Engine) Check(ctx context.Context) (*CheckResult, error) {
	start := time.Now()
	if _, err := e.Discover(); err != nil {
		return nil, err
	}

	files := e.Files()
	paths := sortedKeys(files)
	reports := make([]*FileReport, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			reports[i] = e.checkFile(files[p])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("check cancelled: %w", err)
	}

	result := &CheckResult{Files: reports, Duration: time.Since(start)}
	e.logger.Info("check completed",
		"files", len(reports),
		"errors", result.Errors(),
		"warnings", result.Warnings(),
		"duration_ms", result.Duration.Milliseconds())
	return result, nil
}

// checkFile analyzes a discovered file. A file with syntax errors is
// analyzed as far as the parser recovered it, so later problems in the
// same file are still reported.
func (e *Engine) checkFile(f *File) *FileReport {
	report := &FileReport{Path: f.Path}
	report.Analysis = analyzer.Analyze(f.Config, e.analyzer)
	diags := append(slices.Clone(f.Problems), report.Analysis.Diagnostics()...)
	sortDiagnostics(diags)

	for _, d := range diags {
		if d.IsError() {
			report.Errors++
		} else {
			report.Warnings++
		}
	}
	report.Diagnostics = diags
	return report
}

func sortDiagnostics(diags []core.Diagnostic) {
	slices.SortStableFunc(diags, func(a, b core.Diagnostic) int {
		if a.Pos.Line != b.Pos.Line {
			return a.Pos.Line - b.Pos.Line
		}
		return a.Pos.Column - b.Pos.Column
	})
}
