// Package format prints configurations in canonical style.
package format

import (
	"bytes"
	"strings"
)

const (
	indentSize = 2
	// maxWidth is the column after which arrays and objects are broken
	// across lines.
	maxWidth = 80
)

// Printer handles formatting with indentation tracking.
type Printer struct {
	output      *bytes.Buffer
	depth       int
	col         int
	atLineStart bool
	blank       bool
}

func newPrinter() *Printer {
	return &Printer{
		output:      &bytes.Buffer{},
		atLineStart: true,
		blank:       true,
	}
}

// String returns the formatted output.
func (p *Printer) String() string {
	out := strings.TrimRight(p.output.String(), "\n")
	if out == "" {
		return ""
	}
	return out + "\n"
}

func (p *Printer) write(s string) {
	if p.atLineStart && len(s) > 0 && s[0] != '\n' {
		p.writeIndent()
	}
	p.output.WriteString(s)
	p.col += len(s)
	p.atLineStart = false
	p.blank = false
}

func (p *Printer) writeln() {
	p.output.WriteByte('\n')
	p.col = 0
	p.atLineStart = true
}

// newline ends the current line unless it is already empty.
func (p *Printer) newline() {
	if !p.atLineStart {
		p.writeln()
	}
}

// blankLine leaves exactly one empty line before the next write. It is a
// no-op at the start of the output.
func (p *Printer) blankLine() {
	p.newline()
	if !p.blank {
		p.writeln()
		p.blank = true
	}
}

func (p *Printer) writeIndent() {
	for i := 0; i < p.depth*indentSize; i++ {
		p.output.WriteByte(' ')
	}
	p.col = p.depth * indentSize
	p.atLineStart = false
}

// column is where the next write lands.
func (p *Printer) column() int {
	if p.atLineStart {
		return p.depth * indentSize
	}
	return p.col
}

func (p *Printer) indent() {
	p.depth++
}

func (p *Printer) dedent() {
	if p.depth > 0 {
		p.depth--
	}
}

func (p *Printer) space() {
	p.write(" ")
}

// formatList prints count items with sep between them. multiline puts
// each item on its own line.
func (p *Printer) formatList(count int, format func(i int), sep string, multiline bool) {
	for i := 0; i < count; i++ {
		format(i)
		if i < count-1 {
			p.write(sep)
			if multiline {
				p.writeln()
			} else {
				p.space()
			}
		}
	}
}
