package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/cyber-boost/tusktsk/pkg/analyzer"
	"github.com/cyber-boost/tusktsk/pkg/binary"
	"github.com/cyber-boost/tusktsk/pkg/parser"
	"github.com/cyber-boost/tusktsk/pkg/value"
)

// LoadOptions configures LoadFile.
type LoadOptions struct {
	Analyzer analyzer.Options
	Compile  []binary.Option
	// Artifacts lists candidate artifacts for a source, checked in order.
	// The sibling `<path>b` is always tried last.
	Artifacts []string
	Logger    *slog.Logger
}

// LoadFile returns the value tree of a source or artifact. An artifact
// path is decoded directly. A source is served from the first candidate
// artifact at least as new as itself; otherwise, or when that artifact
// does not decode, the source is parsed, analyzed and compiled in memory
// so the result always passes the same checks as a built artifact.
func LoadFile(ctx context.Context, path string, opts LoadOptions) (*value.Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if strings.HasSuffix(path, binary.Extension) {
		return loadArtifact(path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat source: %w", err)
	}

	candidates := append(append([]string(nil), opts.Artifacts...), path+"b")
	for _, c := range candidates {
		ai, err := os.Stat(c)
		if err != nil || ai.ModTime().Before(info.ModTime()) {
			continue
		}
		tree, err := loadArtifact(c)
		if err != nil {
			logger.Warn("ignoring unreadable artifact", "artifact", c, "error", err)
			continue
		}
		logger.Debug("loaded artifact", "source", path, "artifact", c)
		return tree, nil
	}

	src, err := os.ReadFile(path) //nolint:gosec // caller chooses the file to load
	if err != nil {
		return nil, fmt.Errorf("failed to read source: %w", err)
	}
	logger.Debug("compiling in memory", "source", path)
	return compileSource(string(src), opts)
}

// Load is LoadFile with the engine's analyzer and compile options. Sources
// inside the source dir also consider their artifact in the out dir.
func (e *Engine) Load(ctx context.Context, path string) (*value.Tree, error) {
	opts := LoadOptions{
		Analyzer: e.analyzer,
		Compile:  e.compile,
		Logger:   e.logger,
	}
	if rel, ok := e.relative(path); ok {
		opts.Artifacts = []string{e.ArtifactPath(rel)}
	}
	return LoadFile(ctx, path, opts)
}

// relative returns path relative to the source dir when it lies inside.
func (e *Engine) relative(path string) (string, bool) {
	absSrc, err := filepath.Abs(e.sourceDir)
	if err != nil {
		return "", false
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(absSrc, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func loadArtifact(path string) (*value.Tree, error) {
	data, err := os.ReadFile(path) //nolint:gosec // caller chooses the file to load
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}
	tree, err := binary.Load(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return tree, nil
}

func compileSource(src string, opts LoadOptions) (*value.Tree, error) {
	cfg, errs := parser.Parse(src)
	if err := errs.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse: %w", err)
	}
	res := analyzer.Analyze(cfg, opts.Analyzer)
	data, err := binary.Compile(cfg, res, opts.Compile...)
	if err != nil {
		return nil, err
	}
	return binary.Load(data)
}
