package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/cyber-boost/tusktsk/internal/engine"
	"github.com/cyber-boost/tusktsk/pkg/analyzer"
	"github.com/cyber-boost/tusktsk/pkg/parser"
)

type diagnosticDoc struct {
	code        string
	severity    string
	description string
}

var diagnosticDocs = []diagnosticDoc{
	{parser.CodeSyntax, "error", "The source does not parse; analysis is skipped for the file"},
	{analyzer.CodeUndefinedVariable, "error", "A $variable or section key is used before it is declared"},
	{analyzer.CodeTypeMismatch, "error", "Operand types do not fit the operator"},
	{analyzer.CodeDirectiveArity, "error", "A known directive is called with the wrong number of arguments"},
	{analyzer.CodeDirectiveType, "error", "A known directive argument has the wrong type"},
	{analyzer.CodeCrossFileArity, "error", "A cross-file method is called with the wrong number of arguments"},
	{analyzer.CodeInvalidIdentifier, "error", "A string template slot does not name a valid identifier"},
	{analyzer.CodeInvalidRange, "error", "A range has its minimum above its maximum"},
	{analyzer.CodeInvalidInclude, "error", "An include path is missing, empty or not a string literal"},
	{analyzer.CodeDuplicateSection, "warning", "A section is declared twice and its bodies are merged"},
	{analyzer.CodeDuplicateKey, "warning", "A key is assigned twice in the same scope"},
	{analyzer.CodeRedefinition, "warning", "A global is declared again"},
	{analyzer.CodeMixedArray, "warning", "An array mixes element types"},
	{analyzer.CodeUnknownDirective, "warning", "A directive name is not in the library below"},
	{analyzer.CodeCrossFileMethod, "warning", "A cross-file call uses a method other than get, set or exists"},
	{analyzer.CodeCrossFile, "warning", "A cross-file reference cannot be verified until runtime"},
	{analyzer.CodeUnusedVariable, "warning", "A variable or section key is declared but never read"},
	{analyzer.CodeNotBoolean, "warning", "A condition is not a boolean (an error with --strict)"},
	{analyzer.CodeUnresolvedType, "warning", "Conditional branches have different types"},
	{engine.CodeMissingInclude, "warning", "An include or cross-file target does not exist in the source tree"},
}

// generateDirectiveDocs writes the directive library and diagnostic code
// reference.
func generateDirectiveDocs(outDir string) error {
	log.Printf("Generating directive docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := generateDirectivesPage(outDir); err != nil {
		return fmt.Errorf("failed to generate directives page: %w", err)
	}
	log.Printf("  Generated directives.md")

	if err := generateDiagnosticsPage(outDir); err != nil {
		return fmt.Errorf("failed to generate diagnostics page: %w", err)
	}
	log.Printf("  Generated diagnostics.md")

	return nil
}

func generateDirectivesPage(outDir string) error {
	w := NewMarkdownWriter()
	w.Frontmatter("Directives", "The @directive library checked by the analyzer")
	w.GeneratedMarker()

	w.Header(1, "Directives")
	w.Paragraph("Calls to these directives are checked for argument count and types. Calls to any other name are accepted with an unknown-directive warning.")

	byCategory := make(map[string][]analyzer.Directive)
	for _, d := range analyzer.Directives() {
		byCategory[d.Category] = append(byCategory[d.Category], d)
	}
	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	slices.Sort(categories)

	title := cases.Title(language.English)
	for _, c := range categories {
		w.Header(2, title.String(c))
		var rows [][]string
		for _, d := range byCategory[c] {
			rows = append(rows, []string{InlineCode(d.Signature()), cleanDescription(d.Summary)})
		}
		w.Table([]string{"Signature", "Description"}, rows)
	}

	w.Header(2, "Cross-file")
	w.Paragraph("Another file's values are reached with `@name.tsk.method(...)`, resolved relative to the calling file:")
	var methods []string
	for _, m := range analyzer.CrossFileMethods() {
		methods = append(methods, InlineCode(m))
	}
	w.BulletList(methods)

	return os.WriteFile(filepath.Join(outDir, "directives.md"), w.Bytes(), 0600)
}

func generateDiagnosticsPage(outDir string) error {
	w := NewMarkdownWriter()
	w.Frontmatter("Diagnostics", "Codes reported by tusk check")
	w.GeneratedMarker()

	w.Header(1, "Diagnostics")
	w.Paragraph("Errors stop compilation. Warnings can be silenced with `--disable <code>` or `analyzer.disabled` in tusk.yaml.")

	rows := make([][]string, 0, len(diagnosticDocs))
	for _, d := range diagnosticDocs {
		rows = append(rows, []string{InlineCode(d.code), d.severity, d.description})
	}
	w.Table([]string{"Code", "Severity", "Meaning"}, rows)

	return os.WriteFile(filepath.Join(outDir, "diagnostics.md"), w.Bytes(), 0600)
}
