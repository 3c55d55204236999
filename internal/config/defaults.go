// Package config holds project-level defaults shared by the CLI and the
// language server.
package config

import "github.com/cyber-boost/tusktsk/pkg/binary"

// Default configuration values.
const (
	DefaultSourceDir = "."
	DefaultStateFile = ".tusk/state.db"
	DefaultOutput    = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultDebounce  = "100ms"
)

// DefaultAlgorithm is the compression used for artifacts unless configured.
var DefaultAlgorithm = binary.AlgorithmZstd

// DefaultThreshold is the payload size below which artifacts are stored raw.
const DefaultThreshold = binary.DefaultThreshold
