package main

import (
	"bytes"
	"log"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cyber-boost/tusktsk/internal/cli/output"
)

// MarkdownWriter builds one generated page. Tables and headings go through
// the CLI renderer in Markdown mode so pages match `tusk -o markdown`.
type MarkdownWriter struct {
	buf bytes.Buffer
	r   *output.Renderer
}

// NewMarkdownWriter creates an empty page.
func NewMarkdownWriter() *MarkdownWriter {
	w := &MarkdownWriter{}
	w.r = output.NewRendererWithTTY(&w.buf, &w.buf, false, output.ModeMarkdown)
	return w
}

// Frontmatter writes the YAML header used by the docs site.
func (w *MarkdownWriter) Frontmatter(title, description string) {
	meta, err := yaml.Marshal(map[string]string{"title": title, "description": description})
	if err != nil {
		log.Fatalf("failed to marshal frontmatter: %v", err)
	}
	w.buf.WriteString("---\n")
	w.buf.Write(meta)
	w.buf.WriteString("---\n\n")
}

// GeneratedMarker notes that the page must not be edited by hand.
func (w *MarkdownWriter) GeneratedMarker() {
	w.buf.WriteString("<!-- Code generated by scripts/gendocs. DO NOT EDIT. -->\n\n")
}

func (w *MarkdownWriter) Header(level int, text string) {
	w.r.Header(level, text)
}

func (w *MarkdownWriter) Paragraph(text string) {
	w.buf.WriteString(strings.TrimSpace(text))
	w.buf.WriteString("\n\n")
}

func (w *MarkdownWriter) CodeBlock(lang, code string) {
	w.buf.WriteString(output.FormatCode(lang, code))
	w.buf.WriteString("\n\n")
}

func (w *MarkdownWriter) BulletList(items []string) {
	for _, item := range items {
		w.buf.WriteString("- " + item + "\n")
	}
	w.buf.WriteString("\n")
}

func (w *MarkdownWriter) Table(headers []string, rows [][]string) {
	w.r.Table(headers, rows)
	w.buf.WriteString("\n")
}

// Bytes returns the page content.
func (w *MarkdownWriter) Bytes() []byte {
	return w.buf.Bytes()
}

// InlineCode wraps s in backticks.
func InlineCode(s string) string {
	return "`" + s + "`"
}

// cleanDescription flattens a help string into one table-safe line.
func cleanDescription(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.TrimSuffix(s, ".")
}
