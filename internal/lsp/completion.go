package lsp

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/cyber-boost/tusktsk/pkg/analyzer"
	"github.com/cyber-boost/tusktsk/pkg/format"
)

// CompletionContextType describes what kind of completion context we're in.
type CompletionContextType int

// Completion context type constants.
const (
	ContextUnknown   CompletionContextType = iota
	ContextDirective                       // After "@"
	ContextCrossFile                       // After "@file.tsk."
	ContextGlobal                          // After "$"
)

var (
	crossFileRe = regexp.MustCompile(`@[A-Za-z_][\w-]*(?:\.[A-Za-z_][\w-]*)*\.tsk\.[A-Za-z_]*$`)
	directiveRe = regexp.MustCompile(`@[A-Za-z_]?[\w-]*$`)
	globalRe    = regexp.MustCompile(`\$[A-Za-z_]?[\w-]*$`)
)

// keywords are the statement directives offered alongside expression
// directives.
var keywords = []CompletionItem{
	{Label: "include", Kind: CompletionItemKindKeyword, Detail: `@include "path.tsk"`, Documentation: "merge another file into this one"},
	{Label: "import", Kind: CompletionItemKindKeyword, Detail: `@import "path.tsk"`, Documentation: "import another file"},
}

// detectContext classifies the text before the cursor on its line.
func detectContext(before string) CompletionContextType {
	switch {
	case crossFileRe.MatchString(before):
		return ContextCrossFile
	case directiveRe.MatchString(before):
		return ContextDirective
	case globalRe.MatchString(before):
		return ContextGlobal
	}
	return ContextUnknown
}

// getCompletions returns completion items for the given position.
func (s *Server) getCompletions(params CompletionParams) []CompletionItem {
	doc := s.documents.Get(params.TextDocument.URI)
	if doc == nil {
		return nil
	}

	before := doc.GetTextBefore(params.Position)
	if i := strings.LastIndexByte(before, '\n'); i >= 0 {
		before = before[i+1:]
	}

	switch detectContext(before) {
	case ContextCrossFile:
		return crossFileCompletions()
	case ContextDirective:
		return directiveCompletions()
	case ContextGlobal:
		return s.globalCompletions(doc)
	}
	return nil
}

func directiveCompletions() []CompletionItem {
	items := slices.Clone(keywords)
	for _, d := range analyzer.Directives() {
		items = append(items, CompletionItem{
			Label:         d.Name,
			Kind:          CompletionItemKindFunction,
			Detail:        d.Signature(),
			Documentation: d.Summary,
			SortText:      d.Category + "/" + d.Name,
		})
	}
	return items
}

func crossFileCompletions() []CompletionItem {
	methods := analyzer.CrossFileMethods()
	items := make([]CompletionItem, 0, len(methods))
	for _, m := range methods {
		items = append(items, CompletionItem{Label: m, Kind: CompletionItemKindMethod})
	}
	return items
}

// globalCompletions offers the document's globals and top-level keys.
func (s *Server) globalCompletions(doc *Document) []CompletionItem {
	a := s.analyze(doc)

	names := make([]string, 0, len(a.result.Globals))
	for name := range a.result.Globals {
		names = append(names, name)
	}
	slices.Sort(names)

	items := make([]CompletionItem, 0, len(names))
	for _, name := range names {
		info := a.result.Globals[name]
		items = append(items, CompletionItem{
			Label:  name,
			Kind:   CompletionItemKindVariable,
			Detail: fmt.Sprintf("%s (line %d)", info.Type, info.Line),
		})
	}
	return items
}

// getHover describes the directive or variable under the cursor.
func (s *Server) getHover(params HoverParams) *Hover {
	doc := s.documents.Get(params.TextDocument.URI)
	if doc == nil {
		return nil
	}

	word, rng := doc.GetWordAtPosition(params.Position)
	if word == "" {
		return nil
	}

	var text string
	switch {
	case strings.HasPrefix(word, "@"):
		d, ok := analyzer.LookupDirective(word[1:])
		if !ok {
			return nil
		}
		text = fmt.Sprintf("```tusk\n%s\n```\n%s", d.Signature(), d.Summary)
	default:
		a := s.analyze(doc)
		info, ok := a.result.Globals[strings.TrimPrefix(word, "$")]
		if !ok {
			return nil
		}
		text = fmt.Sprintf("`%s`: %s, declared on line %d", info.Name, info.Type, info.Line)
	}

	return &Hover{
		Contents: MarkupContent{Kind: MarkupKindMarkdown, Value: text},
		Range:    &rng,
	}
}

// getFormatting returns a whole-document edit, no edits when the document
// is already formatted, or nil when it does not parse.
func (s *Server) getFormatting(uri string) []TextEdit {
	doc := s.documents.Get(uri)
	if doc == nil {
		return nil
	}

	out, err := format.Source(doc.Content)
	if err != nil {
		s.logger.Debug("not formatting document with syntax errors", "uri", uri)
		return nil
	}
	if out == doc.Content {
		return []TextEdit{}
	}
	return []TextEdit{{
		Range: Range{
			Start: Position{},
			End:   doc.OffsetToPosition(len(doc.Content)),
		},
		NewText: out,
	}}
}
