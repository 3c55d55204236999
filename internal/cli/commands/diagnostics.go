package commands

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/cyber-boost/tusktsk/internal/cli/output"
	"github.com/cyber-boost/tusktsk/pkg/analyzer"
	"github.com/cyber-boost/tusktsk/pkg/core"
	"github.com/cyber-boost/tusktsk/pkg/parser"
)

// ErrCheckFailed is returned when a command found error diagnostics. The
// diagnostics themselves have already been printed.
var ErrCheckFailed = errors.New("check failed")

// fileDiagnostics is the JSON shape of one file's diagnostics.
type fileDiagnostics struct {
	Path        string            `json:"path"`
	Errors      int               `json:"errors"`
	Warnings    int               `json:"warnings"`
	Diagnostics []core.Diagnostic `json:"diagnostics"`
}

func newFileDiagnostics(path string, diags []core.Diagnostic) fileDiagnostics {
	fd := fileDiagnostics{Path: path, Diagnostics: diags}
	if fd.Diagnostics == nil {
		fd.Diagnostics = []core.Diagnostic{}
	}
	for _, d := range diags {
		if d.IsError() {
			fd.Errors++
		} else {
			fd.Warnings++
		}
	}
	return fd
}

// renderDiagnostics prints diagnostics for one file in text or markdown.
func renderDiagnostics(r *output.Renderer, path string, diags []core.Diagnostic) {
	styles := r.Styles()
	for _, d := range diags {
		loc := fmt.Sprintf("%s:%d:%d", path, d.Pos.Line, d.Pos.Column)
		if r.EffectiveMode() == output.ModeMarkdown {
			r.Printf("- `%s` **%s** %s [%s]\n", loc, d.Severity, d.Message, d.Code)
			continue
		}
		sev := styles.Warning.Render(d.Severity.String())
		if d.IsError() {
			sev = styles.Error.Render(d.Severity.String())
		}
		r.Printf("%s: %s: %s %s\n", styles.Path.Render(loc), sev, d.Message, styles.Muted.Render("["+d.Code+"]"))
	}
}

// analyzeFile reads, parses and analyzes one source file. The analyzer
// also runs over a tree recovered from syntax errors, so diags carries
// both kinds in source order.
func analyzeFile(path string, opts analyzer.Options) (*core.Configuration, *analyzer.Result, []core.Diagnostic, error) {
	src, err := os.ReadFile(path) //nolint:gosec // user-supplied path is the point
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	cfg, errs := parser.Parse(string(src))
	res := analyzer.Analyze(cfg, opts)
	diags := append(errs.Diagnostics(), res.Diagnostics()...)
	slices.SortStableFunc(diags, func(a, b core.Diagnostic) int {
		if a.Pos.Line != b.Pos.Line {
			return a.Pos.Line - b.Pos.Line
		}
		return a.Pos.Column - b.Pos.Column
	})
	return cfg, res, diags, nil
}

// syntaxErrors returns the parse errors among diags.
func syntaxErrors(diags []core.Diagnostic) []core.Diagnostic {
	var out []core.Diagnostic
	for _, d := range diags {
		if d.Code == parser.CodeSyntax {
			out = append(out, d)
		}
	}
	return out
}
