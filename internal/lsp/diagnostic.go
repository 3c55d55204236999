package lsp

import (
	"slices"

	"github.com/cyber-boost/tusktsk/pkg/analyzer"
	"github.com/cyber-boost/tusktsk/pkg/core"
	"github.com/cyber-boost/tusktsk/pkg/parser"
)

// diagnosticSource names this server in published diagnostics.
const diagnosticSource = "tusk"

// analysis is a parsed and analyzed document version.
type analysis struct {
	version int
	config  *core.Configuration
	// result covers the tree the parser recovered, even past syntax errors.
	result      *analyzer.Result
	diagnostics []core.Diagnostic
}

// analyze parses and analyzes doc, reusing the previous run for the same
// version.
func (s *Server) analyze(doc *Document) *analysis {
	s.analysesMu.Lock()
	defer s.analysesMu.Unlock()

	if a, ok := s.analyses[doc.URI]; ok && a.version == doc.Version {
		return a
	}

	cfg, errs := parser.Parse(doc.Content)
	a := &analysis{version: doc.Version, config: cfg}
	a.result = analyzer.Analyze(cfg, s.analyzer)
	a.diagnostics = append(errs.Diagnostics(), a.result.Diagnostics()...)
	slices.SortStableFunc(a.diagnostics, func(x, y core.Diagnostic) int {
		if x.Pos.Line != y.Pos.Line {
			return x.Pos.Line - y.Pos.Line
		}
		return x.Pos.Column - y.Pos.Column
	})
	s.analyses[doc.URI] = a
	return a
}

func (s *Server) forget(uri string) {
	s.analysesMu.Lock()
	defer s.analysesMu.Unlock()
	delete(s.analyses, uri)
}

// publishDiagnostics analyzes the document and publishes its findings.
func (s *Server) publishDiagnostics(doc *Document) {
	a := s.analyze(doc)

	diagnostics := make([]Diagnostic, 0, len(a.diagnostics))
	for _, d := range a.diagnostics {
		diagnostics = append(diagnostics, toLSPDiagnostic(doc, d))
	}

	version := doc.Version
	s.sendNotification("textDocument/publishDiagnostics", &PublishDiagnosticsParams{
		URI:         doc.URI,
		Version:     &version,
		Diagnostics: diagnostics,
	})
}

// toLSPDiagnostic converts a diagnostic, spanning the word at its position
// or a single character when there is none.
func toLSPDiagnostic(doc *Document, d core.Diagnostic) Diagnostic {
	offset := 0
	if d.Pos.IsValid() && d.Pos.Line-1 < len(doc.Lines) {
		offset = min(doc.Lines[d.Pos.Line-1]+max(d.Pos.Column-1, 0), len(doc.Content))
	}

	_, start, end := doc.WordAt(offset)
	if start != offset || end == offset {
		start = offset
		end = offset
		if end < len(doc.Content) && doc.Content[end] != '\n' {
			end++
		}
	}

	return Diagnostic{
		Range: Range{
			Start: doc.OffsetToPosition(start),
			End:   doc.OffsetToPosition(end),
		},
		Severity: toLSPSeverity(d.Severity),
		Code:     d.Code,
		Source:   diagnosticSource,
		Message:  d.Message,
	}
}

func toLSPSeverity(s core.Severity) DiagnosticSeverity {
	switch s {
	case core.SeverityError:
		return DiagnosticSeverityError
	case core.SeverityWarning:
		return DiagnosticSeverityWarning
	case core.SeverityInfo:
		return DiagnosticSeverityInformation
	default:
		return DiagnosticSeverityHint
	}
}
