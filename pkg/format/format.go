package format

import (
	"fmt"

	"github.com/cyber-boost/tusktsk/pkg/core"
	"github.com/cyber-boost/tusktsk/pkg/parser"
)

// Format prints a parsed configuration in canonical style: two-space
// indentation inside brace and angle blocks, `key: value` assignments,
// `$name = value` globals and comments kept in place.
func Format(cfg *core.Configuration) string {
	if cfg == nil {
		return ""
	}
	p := newPrinter()
	p.formatConfiguration(cfg)
	return p.String()
}

// Source parses and formats src. Files with syntax errors are not
// formatted.
func Source(src string) (string, error) {
	cfg, errs := parser.Parse(src)
	if err := errs.Err(); err != nil {
		return "", fmt.Errorf("failed to parse: %w", err)
	}
	return Format(cfg), nil
}
