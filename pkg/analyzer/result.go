package analyzer

import (
	"slices"

	"github.com/cyber-boost/tusktsk/pkg/core"
	"github.com/cyber-boost/tusktsk/pkg/token"
)

// Diagnostic codes.
const (
	// Warnings
	CodeDuplicateSection = "duplicate-section"
	CodeDuplicateKey     = "duplicate-key"
	CodeRedefinition     = "redefinition"
	CodeMixedArray       = "mixed-array"
	CodeUnknownDirective = "unknown-directive"
	CodeCrossFile        = "cross-file"
	CodeUnusedVariable   = "unused-variable"
	CodeNotBoolean       = "not-boolean"
	CodeUnresolvedType   = "unresolved-type"
	CodeCrossFileMethod  = "crossfile-method"

	// Errors
	CodeUndefinedVariable = "undefined-variable"
	CodeTypeMismatch      = "type-mismatch"
	CodeDirectiveArity    = "directive-arity"
	CodeDirectiveType     = "directive-type"
	CodeCrossFileArity    = "crossfile-arity"
	CodeInvalidIdentifier = "invalid-identifier"
	CodeInvalidRange      = "invalid-range"
	CodeInvalidInclude    = "invalid-include"
)

// VariableInfo describes a declared variable.
type VariableInfo struct {
	Name    string
	Type    core.TuskType
	Line    int
	Pos     token.Position
	Global  bool
	Section string // "" for globals
	Used    bool
}

// Result is the outcome of analyzing one configuration.
type Result struct {
	Errors   []core.Diagnostic
	Warnings []core.Diagnostic

	// Globals holds `$name` declarations and top-level keys.
	Globals map[string]*VariableInfo
	// Sections maps a dotted section path to the keys declared in it.
	Sections map[string]map[string]*VariableInfo
	// Types records the inferred type of every analyzed expression.
	Types map[core.Expr]core.TuskType
}

func newResult() *Result {
	return &Result{
		Globals:  make(map[string]*VariableInfo),
		Sections: make(map[string]map[string]*VariableInfo),
		Types:    make(map[core.Expr]core.TuskType),
	}
}

// HasErrors reports whether any hard error was found.
func (r *Result) HasErrors() bool {
	return r != nil && len(r.Errors) > 0
}

// TypeOf returns the inferred type of e, or TypeUnknown.
func (r *Result) TypeOf(e core.Expr) core.TuskType {
	if r == nil {
		return core.TypeUnknown
	}
	return r.Types[e]
}

// Diagnostics returns errors and warnings together, ordered by position.
func (r *Result) Diagnostics() []core.Diagnostic {
	if r == nil {
		return nil
	}
	all := make([]core.Diagnostic, 0, len(r.Errors)+len(r.Warnings))
	all = append(all, r.Errors...)
	all = append(all, r.Warnings...)
	slices.SortStableFunc(all, func(a, b core.Diagnostic) int {
		if a.Pos.Line != b.Pos.Line {
			return a.Pos.Line - b.Pos.Line
		}
		return a.Pos.Column - b.Pos.Column
	})
	return all
}
