package format

import (
	"strings"

	"github.com/cyber-boost/tusktsk/pkg/core"
)

func (p *Printer) formatConfiguration(cfg *core.Configuration) {
	p.formatBody(cfg.Statements, false)
	p.newline()
}

// formatBody prints one container's statements. Sections are set off by
// blank lines, and a run of own-line comments directly above a section
// stays attached to it. detachTail moves such a run at the end of a
// bracket section's body next to the header that follows.
func (p *Printer) formatBody(stmts []core.Stmt, detachTail bool) {
	blank := p.blankLines(stmts, detachTail)

	for i, stmt := range stmts {
		if c, ok := stmt.(*core.Comment); ok && p.trailing(stmts, i) {
			p.space()
			p.write(commentText(c))
			continue
		}

		if blank[i] {
			p.blankLine()
		} else {
			p.newline()
		}

		var next []core.Stmt
		if i+1 < len(stmts) {
			next = stmts[i+1:]
		}
		p.formatStmt(stmt, next)
	}
}

// blankLines decides which statements get an empty line above them.
func (p *Printer) blankLines(stmts []core.Stmt, detachTail bool) []bool {
	blank := make([]bool, len(stmts))
	for i, stmt := range stmts {
		if i == 0 {
			continue
		}
		if s, ok := stmt.(*core.Section); ok {
			if prev, ok := stmts[i-1].(*core.Section); ok && s.Dialect == core.DialectBracket &&
				prev.Dialect == core.DialectBracket && p.tailRun(prev.Body) > 0 {
				continue
			}
			if j := p.commentRunStart(stmts, i); j > 0 {
				blank[j] = true
			}
			continue
		}
		if prev, ok := stmts[i-1].(*core.Section); ok && prev.Dialect != core.DialectBracket {
			blank[i] = true
		}
	}
	if detachTail {
		if j := p.tailRun(stmts); j > 0 {
			blank[j] = true
		}
	}
	return blank
}

// tailRun returns where the own-line comments ending stmts begin, or 0
// when there are none or nothing precedes them.
func (p *Printer) tailRun(stmts []core.Stmt) int {
	j := p.commentRunStart(stmts, len(stmts))
	if j == len(stmts) {
		return 0
	}
	return j
}

func (p *Printer) commentRunStart(stmts []core.Stmt, i int) int {
	j := i
	for j > 0 && p.ownLineComment(stmts, j-1) {
		j--
	}
	return j
}

func (p *Printer) ownLineComment(stmts []core.Stmt, i int) bool {
	_, ok := stmts[i].(*core.Comment)
	return ok && !p.trailing(stmts, i)
}

// trailing reports whether comment i shares a line with the statement
// before it and can stay there.
func (p *Printer) trailing(stmts []core.Stmt, i int) bool {
	c, ok := stmts[i].(*core.Comment)
	if !ok || i == 0 {
		return false
	}
	prev := stmts[i-1]
	switch prev.(type) {
	case *core.Comment, *core.Section:
		return false
	}
	return c.HashPos.Line == prev.Pos().Line && p.singleLine(prev)
}

// singleLine reports whether stmt prints on one line at the current depth.
func (p *Printer) singleLine(stmt core.Stmt) bool {
	var head string
	var v core.Expr
	switch s := stmt.(type) {
	case *core.Assignment:
		head, v = core.FormatKey(s.Key)+": ", s.Value
	case *core.GlobalVariableDecl:
		head, v = "$"+s.Name+" = ", s.Value
	default:
		return true
	}
	return p.depth*indentSize+len(head)+len(core.FormatExpr(v)) <= maxWidth || !breakable(v)
}

func (p *Printer) formatStmt(stmt core.Stmt, next []core.Stmt) {
	switch s := stmt.(type) {
	case *core.Section:
		p.formatSection(s, len(next) > 0)

	case *core.Assignment:
		p.write(core.FormatKey(s.Key))
		p.write(": ")
		p.value(s.Value)

	case *core.GlobalVariableDecl:
		p.write("$" + s.Name)
		p.write(" = ")
		p.value(s.Value)

	case *core.Include:
		if s.Import {
			p.write("@import")
		} else {
			p.write("@include")
		}
		if s.Path != nil {
			p.space()
			p.value(s.Path)
		}

	case *core.Comment:
		p.write(commentText(s))
	}
}

func (p *Printer) formatSection(s *core.Section, hasNext bool) {
	body := s.Body
	var headerComment *core.Comment
	if len(body) > 0 {
		if c, ok := body[0].(*core.Comment); ok && c.HashPos.Line == s.NamePos.Line {
			headerComment = c
			body = body[1:]
		}
	}

	switch s.Dialect {
	case core.DialectBracket:
		p.write("[" + s.Name + "]")
		p.headerComment(headerComment)
		p.formatBody(body, hasNext)

	case core.DialectBrace:
		p.write(s.Name + " {")
		p.headerComment(headerComment)
		p.indent()
		p.formatBody(body, false)
		p.dedent()
		p.newline()
		p.write("}")

	case core.DialectAngle:
		p.write(s.Name + " >")
		p.headerComment(headerComment)
		p.indent()
		p.formatBody(body, false)
		p.dedent()
		p.newline()
		p.write("<")
	}
}

func (p *Printer) headerComment(c *core.Comment) {
	if c != nil {
		p.space()
		p.write(commentText(c))
	}
}

func commentText(c *core.Comment) string {
	if c.Text == "" {
		return "#"
	}
	return "# " + strings.TrimSpace(c.Text)
}
