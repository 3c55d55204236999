package parser

import (
	"fmt"
	"strings"

	"github.com/cyber-boost/tusktsk/pkg/core"
	"github.com/cyber-boost/tusktsk/pkg/token"
)

// CodeSyntax is the diagnostic code used for parse errors.
const CodeSyntax = "syntax"

// ParseError represents a parsing error with position information.
type ParseError struct {
	Pos     token.Position
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// Diagnostic converts the error into a core diagnostic.
func (e *ParseError) Diagnostic() core.Diagnostic {
	return core.Diagnostic{
		Code:     CodeSyntax,
		Severity: core.SeverityError,
		Message:  e.Message,
		Pos:      e.Pos,
	}
}

// ErrorList is the ordered list of syntax errors recorded while parsing.
type ErrorList []*ParseError

func (l ErrorList) Error() string {
	switch len(l) {
	case 0:
		return "no errors"
	case 1:
		return l[0].Error()
	}
	msgs := make([]string, len(l))
	for i, e := range l {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("%d parse errors:\n  %s", len(l), strings.Join(msgs, "\n  "))
}

// Err returns the list as an error, or nil when it is empty.
func (l ErrorList) Err() error {
	if len(l) == 0 {
		return nil
	}
	return l
}

// Diagnostics converts every error into a core diagnostic.
func (l ErrorList) Diagnostics() []core.Diagnostic {
	diags := make([]core.Diagnostic, len(l))
	for i, e := range l {
		diags[i] = e.Diagnostic()
	}
	return diags
}

// Common error messages
const (
	ErrUnexpectedToken     = "unexpected %s, expected %s"
	ErrUnterminatedString  = "unterminated string literal"
	ErrInvalidNumber       = "invalid number literal %q"
	ErrUnexpectedChar      = "unexpected character %q"
	ErrExpectedValue       = "expected a value, found %s"
	ErrExpectedStatement   = "unexpected %s at start of statement"
	ErrExpectedEnd         = "expected end of statement, found %s"
	ErrUnterminated        = "unterminated %s literal"
	ErrUnterminatedSlot    = "unterminated template slot"
	ErrUnclosedSection     = "section %q is never closed"
	ErrUnmatchedClose      = "%s does not close any open section"
	ErrMismatchedClose     = "%s cannot close %s section %q"
	ErrHeaderInBlock       = "section header [%s] inside a %s block"
	ErrMissingIncludePath  = "@%s requires a path"
	ErrDirectiveStatement  = "directive @%s cannot be used as a statement"
	ErrExpectedPropertyKey = "expected property name after '.', found %s"
	ErrExpectedObjectKey   = "expected object key, found %s"
)
