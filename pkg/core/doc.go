// Package core defines the shared language of the tusk toolchain.
//
// This package contains:
//   - The AST (a closed set of statement and expression variants)
//   - The flat TuskType tag used for compatibility checks
//   - Operators and their precedence
//   - Diagnostics and severities shared by the analyzer, CLI and LSP
//
// The Golden Rule: pkg/core imports ONLY pkg/token and stdlib.
// All other packages depend on core, not the reverse.
package core
