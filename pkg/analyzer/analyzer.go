// Package analyzer type-checks a parsed configuration and resolves its
// variable references.
//
// The analyzer is read-only over the tree. Everything it learns goes into
// a fresh Result, so calling Analyze repeatedly on the same tree yields
// identical diagnostics.
//
// # Scopes
//
// Top-level keys and `$name` declarations are globals. Keys inside a
// section live in that section's table, keyed by the dotted section path
// (`server`, `server.database`). A bare name resolves against the current
// section, then enclosing sections, then globals. `$name` resolves against
// globals only. `a.b` falls back to key `b` of section `a` when `a` is not
// a variable. Resolution is single pass: a name must be declared before it
// is used.
package analyzer

import (
	"fmt"

	"github.com/cyber-boost/tusktsk/pkg/core"
	"github.com/cyber-boost/tusktsk/pkg/token"
)

// Analyzer performs semantic analysis on configurations.
type Analyzer struct {
	opts Options

	res   *Result
	root  *scope
	scope *scope
	decls []*VariableInfo // declaration order, for the unused pass
}

// New creates an analyzer with the given options.
func New(opts Options) *Analyzer {
	return &Analyzer{opts: opts}
}

// Analyze runs the analyzer with opts over cfg.
func Analyze(cfg *core.Configuration, opts Options) *Result {
	return New(opts).Analyze(cfg)
}

// Options returns the options the analyzer was created with.
func (a *Analyzer) Options() Options {
	return a.opts
}

// Analyze checks cfg and returns everything found. State from earlier
// calls is discarded.
func (a *Analyzer) Analyze(cfg *core.Configuration) *Result {
	a.res = newResult()
	a.root = &scope{vars: a.res.Globals}
	a.scope = a.root
	a.decls = nil

	if cfg != nil {
		a.statements(cfg.Statements)
	}
	if a.opts.WarnUnused {
		a.reportUnused()
	}

	res := a.res
	a.res, a.root, a.scope, a.decls = nil, nil, nil, nil
	return res
}

// ---------- Statements ----------

func (a *Analyzer) statements(stmts []core.Stmt) {
	for _, stmt := range stmts {
		a.statement(stmt)
	}
}

func (a *Analyzer) statement(stmt core.Stmt) {
	switch s := stmt.(type) {
	case *core.Section:
		a.section(s)

	case *core.GlobalVariableDecl:
		t := a.expr(s.Value)
		a.declare(a.root, s.Name, t, s.NamePos)

	case *core.Assignment:
		t := a.expr(s.Value)
		a.declare(a.scope, s.Key, t, s.KeyPos)

	case *core.Include:
		a.include(s)

	case *core.Comment:
	}
}

// section enters a section scope, analyzes its body and leaves it.
// Bracket sections always hang off the root; brace and angle blocks nest
// in the current scope.
func (a *Analyzer) section(s *core.Section) {
	parent := a.scope
	if s.Dialect == core.DialectBracket {
		parent = a.root
	}
	path := parent.qualify(s.Name)

	vars, seen := a.res.Sections[path]
	if seen {
		a.warnf(s.NamePos, CodeDuplicateSection, "section %q is declared more than once; keys are merged", path)
	} else {
		vars = make(map[string]*VariableInfo)
		a.res.Sections[path] = vars
	}

	saved := a.scope
	a.scope = parent.child(path, vars)
	a.statements(s.Body)
	a.scope = saved
}

// declare records a key or global. Redeclaring keeps the first entry, so
// its used flag survives; the type and position follow the last write.
func (a *Analyzer) declare(s *scope, name string, t core.TuskType, pos token.Position) {
	if info, ok := s.vars[name]; ok {
		if s.isRoot() {
			a.warnf(pos, CodeRedefinition, "global %q redefined (first declared on line %d)", name, info.Line)
		} else {
			a.warnf(pos, CodeDuplicateKey, "duplicate key %q in section %q", name, s.section)
		}
		info.Type = t
		info.Line = pos.Line
		info.Pos = pos
		return
	}

	info := &VariableInfo{
		Name:    name,
		Type:    t,
		Line:    pos.Line,
		Pos:     pos,
		Global:  s.isRoot(),
		Section: s.section,
	}
	s.vars[name] = info
	a.decls = append(a.decls, info)
}

// include validates an include path: a non-empty string literal.
func (a *Analyzer) include(s *core.Include) {
	keyword := "include"
	if s.Import {
		keyword = "import"
	}
	if s.Path == nil {
		a.errorf(s.AtPos, CodeInvalidInclude, "@%s requires a path", keyword)
		return
	}

	t := a.expr(s.Path)
	lit, ok := s.Path.(*core.Literal)
	switch {
	case !ok || t != core.TypeString:
		a.errorf(s.Path.Pos(), CodeInvalidInclude, "@%s path must be a string literal, got %s", keyword, describeExpr(s.Path, t))
	case lit.Value == "":
		a.errorf(s.Path.Pos(), CodeInvalidInclude, "@%s path is empty", keyword)
	}
}

func (a *Analyzer) reportUnused() {
	for _, info := range a.decls {
		if info.Used {
			continue
		}
		if info.Global {
			a.warnf(info.Pos, CodeUnusedVariable, "%q is declared but never used", info.Name)
		} else {
			a.warnf(info.Pos, CodeUnusedVariable, "%q in section %q is declared but never used", info.Name, info.Section)
		}
	}
}

// ---------- Diagnostics ----------

func (a *Analyzer) errorf(pos token.Position, code, format string, args ...any) {
	a.res.Errors = append(a.res.Errors, core.Diagnostic{
		Code:     code,
		Severity: core.SeverityError,
		Message:  fmt.Sprintf(format, args...),
		Pos:      pos,
	})
}

func (a *Analyzer) warnf(pos token.Position, code, format string, args ...any) {
	if a.opts.IsDisabled(code) {
		return
	}
	a.res.Warnings = append(a.res.Warnings, core.Diagnostic{
		Code:     code,
		Severity: core.SeverityWarning,
		Message:  fmt.Sprintf(format, args...),
		Pos:      pos,
	})
}

// coercion reports a value of uncertain truthiness: a warning normally,
// an error under strict coercion.
func (a *Analyzer) coercion(pos token.Position, format string, args ...any) {
	if a.opts.StrictCoercion {
		a.errorf(pos, CodeNotBoolean, format, args...)
		return
	}
	a.warnf(pos, CodeNotBoolean, format, args...)
}

// describeExpr names an expression for messages.
func describeExpr(e core.Expr, t core.TuskType) string {
	switch e.(type) {
	case *core.TemplateString:
		return "a template"
	case *core.DirectiveCall, *core.CrossFileCall:
		return "a directive"
	case *core.VariableRef:
		return "a variable"
	}
	return t.String()
}
