// Package engine runs project-wide pipelines over a tree of configuration
// files: discovery, checking, cached builds, loading and watch mode.
package engine

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/cyber-boost/tusktsk/internal/dag"
	"github.com/cyber-boost/tusktsk/internal/state"
	"github.com/cyber-boost/tusktsk/pkg/analyzer"
	"github.com/cyber-boost/tusktsk/pkg/binary"
)

// DefaultDebounce is how long watch mode waits for writes to settle.
const DefaultDebounce = 100 * time.Millisecond

// Engine orchestrates checks and builds for one source tree.
type Engine struct {
	// Structured logger
	logger *slog.Logger

	store     state.Store
	ownsStore bool
	sourceDir string
	outDir    string
	analyzer  analyzer.Options
	compile   []binary.Option
	workers   int
	debounce  time.Duration

	mu    sync.RWMutex
	graph *dag.Graph[*File]
	files map[string]*File
}

// Config holds engine configuration.
type Config struct {
	// SourceDir is the root of the `.tsk` tree
	SourceDir string
	// OutDir receives compiled artifacts (defaults to SourceDir)
	OutDir string
	// StatePath is the path to the SQLite state database (":memory:" allowed)
	StatePath string
	// Store replaces the store opened from StatePath when set
	Store state.Store
	// Analyzer holds the analyzer options used by every pipeline
	Analyzer analyzer.Options
	// Compile holds the options passed to the binary compiler
	Compile []binary.Option
	// Workers caps parallel file processing (defaults to GOMAXPROCS)
	Workers int
	// Debounce is the watch mode settle time (defaults to DefaultDebounce)
	Debounce time.Duration
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// New creates an engine and opens its state store.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.SourceDir == "" {
		return nil, fmt.Errorf("source directory is required")
	}

	logger.Debug("initializing engine", "source_dir", cfg.SourceDir, "out_dir", cfg.OutDir)

	store, owns := cfg.Store, false
	if store == nil {
		path := cfg.StatePath
		if path == "" {
			path = ":memory:"
		}
		s, err := state.Open(path, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open state store: %w", err)
		}
		store, owns = s, true
	}

	outDir := cfg.OutDir
	if outDir == "" {
		outDir = cfg.SourceDir
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &Engine{
		logger:    logger,
		store:     store,
		ownsStore: owns,
		sourceDir: cfg.SourceDir,
		outDir:    outDir,
		analyzer:  cfg.Analyzer,
		compile:   cfg.Compile,
		workers:   workers,
		debounce:  debounce,
		graph:     dag.NewGraph[*File](),
		files:     make(map[string]*File),
	}, nil
}

// Close releases the state store if the engine opened it.
func (e *Engine) Close() error {
	e.logger.Debug("closing engine")

	if e.store != nil && e.ownsStore {
		if err := e.store.Close(); err != nil {
			return fmt.Errorf("errors closing engine: %w", err)
		}
	}
	return nil
}

// --- Getters (public accessors) ---

// Graph returns the include graph from the last discovery.
func (e *Engine) Graph() *dag.Graph[*File] {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.graph
}

// Files returns the files from the last discovery keyed by relative path.
func (e *Engine) Files() map[string]*File {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]*File, len(e.files))
	for k, v := range e.files {
		out[k] = v
	}
	return out
}

// Store returns the state store.
func (e *Engine) Store() state.Store {
	return e.store
}

// SourceDir returns the root of the source tree.
func (e *Engine) SourceDir() string {
	return e.sourceDir
}

// OutDir returns the artifact directory.
func (e *Engine) OutDir() string {
	return e.outDir
}
