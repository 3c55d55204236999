package engine

// discovery.go - finding source files and building the include graph

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/cyber-boost/tusktsk/internal/dag"
	"github.com/cyber-boost/tusktsk/pkg/core"
	"github.com/cyber-boost/tusktsk/pkg/parser"
	"github.com/cyber-boost/tusktsk/pkg/token"
)

// SourceExt is the extension of configuration sources.
const SourceExt = ".tsk"

// CodeMissingInclude marks an include or cross-file reference to a file
// that does not exist.
const CodeMissingInclude = "missing-include"

// File is one discovered source file.
type File struct {
	// Path is relative to the source dir, slash separated
	Path string
	// Abs is the path on disk
	Abs     string
	Hash    string
	ModTime time.Time
	Source  string
	Config  *core.Configuration
	// Problems holds parse errors and missing-include warnings
	Problems []core.Diagnostic
	// Deps are the discovered files this one includes or calls into
	Deps []string
}

// HasParseErrors reports whether the file failed to parse cleanly.
func (f *File) HasParseErrors() bool {
	for _, d := range f.Problems {
		if d.IsError() {
			return true
		}
	}
	return false
}

// DiscoveryResult contains statistics about the discovery run.
type DiscoveryResult struct {
	Files       int
	Edges       int
	ParseErrors int

	// Errors (non-fatal)
	Errors []DiscoveryError

	Duration time.Duration
}

// DiscoveryError represents a non-fatal error during discovery.
type DiscoveryError struct {
	Path    string
	Type    string // "read", "parse", "include"
	Message string
}

// HasErrors returns true if any errors occurred.
func (r *DiscoveryResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// Summary returns a human-readable summary.
func (r *DiscoveryResult) Summary() string {
	return fmt.Sprintf("Files: %d (%d with parse errors) | Includes: %d | Duration: %s",
		r.Files, r.ParseErrors, r.Edges, r.Duration.Round(time.Millisecond))
}

// Discover walks the source dir for `.tsk` files, parses each one and
// rebuilds the include graph. Hidden directories are skipped. An include
// cycle fails discovery with an error wrapping dag.ErrCycle.
func (e *Engine) Discover() (*DiscoveryResult, error) {
	start := time.Now()
	result := &DiscoveryResult{}

	e.logger.Info("starting discovery", "source_dir", e.sourceDir)

	paths, err := e.walkSources()
	if err != nil {
		return result, fmt.Errorf("failed to walk source dir: %w", err)
	}

	files := make(map[string]*File, len(paths))
	for _, rel := range paths {
		f, err := e.readFile(rel)
		if err != nil {
			result.Errors = append(result.Errors, DiscoveryError{Path: rel, Type: "read", Message: err.Error()})
			continue
		}
		if f.HasParseErrors() {
			result.ParseErrors++
			result.Errors = append(result.Errors, DiscoveryError{Path: rel, Type: "parse", Message: f.Problems[0].String()})
		}
		files[rel] = f
	}

	graph := dag.NewGraph[*File]()
	for rel, f := range files {
		graph.AddNode(rel, f)
	}
	for _, rel := range sortedKeys(files) {
		f := files[rel]
		for _, ref := range references(f.Config) {
			dep := resolveRef(rel, ref.path)
			if _, ok := files[dep]; ok {
				if err := graph.AddDependency(rel, dep); err != nil {
					return result, fmt.Errorf("failed to add include %s -> %s: %w", rel, dep, err)
				}
				if !slices.Contains(f.Deps, dep) {
					f.Deps = append(f.Deps, dep)
				}
				continue
			}
			if e.existsOutside(rel, ref.path) {
				continue
			}
			msg := fmt.Sprintf("%q not found", ref.path)
			f.Problems = append(f.Problems, core.Diagnostic{
				Code:     CodeMissingInclude,
				Severity: core.SeverityWarning,
				Message:  msg,
				Pos:      ref.pos,
			})
			result.Errors = append(result.Errors, DiscoveryError{Path: rel, Type: "include", Message: msg})
		}
	}

	if cycle := graph.FindCycle(); cycle != nil {
		return result, fmt.Errorf("include graph: %w", cycle)
	}

	e.mu.Lock()
	e.graph = graph
	e.files = files
	e.mu.Unlock()

	result.Files = len(files)
	result.Edges = graph.EdgeCount()
	result.Duration = time.Since(start)

	e.logger.Info("discovery completed",
		"files", result.Files,
		"includes", result.Edges,
		"parse_errors", result.ParseErrors,
		"duration_ms", result.Duration.Milliseconds())

	return result, nil
}

// walkSources returns relative slash paths of every source file, sorted.
func (e *Engine) walkSources() ([]string, error) {
	var out []string
	err := filepath.WalkDir(e.sourceDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != e.sourceDir && isHidden(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(p) != SourceExt || isHidden(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(e.sourceDir, p)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	slices.Sort(out)
	return out, err
}

func (e *Engine) readFile(rel string) (*File, error) {
	abs := filepath.Join(e.sourceDir, filepath.FromSlash(rel))
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs) //nolint:gosec // paths come from walking the source dir
	if err != nil {
		return nil, err
	}

	cfg, errs := parser.Parse(string(data))
	return &File{
		Path:     rel,
		Abs:      abs,
		Hash:     hashSource(data),
		ModTime:  info.ModTime(),
		Source:   string(data),
		Config:   cfg,
		Problems: errs.Diagnostics(),
	}, nil
}

// existsOutside reports whether a reference points at a file outside the
// source tree that exists on disk.
func (e *Engine) existsOutside(from, ref string) bool {
	if filepath.IsAbs(ref) {
		_, err := os.Stat(ref)
		return err == nil
	}
	p := filepath.Join(e.sourceDir, filepath.FromSlash(path.Dir(from)), filepath.FromSlash(ref))
	_, err := os.Stat(p)
	return err == nil
}

type reference struct {
	path string
	pos  token.Position
}

// references collects include paths and cross-file targets in source order.
func references(cfg *core.Configuration) []reference {
	if cfg == nil {
		return nil
	}
	var out []reference
	core.Walk(cfg, func(n core.Node) bool {
		switch n := n.(type) {
		case *core.Include:
			if lit, ok := n.Path.(*core.Literal); ok {
				if s, ok := lit.Value.(string); ok && s != "" {
					out = append(out, reference{path: s, pos: n.AtPos})
				}
			}
		case *core.CrossFileCall:
			name := n.File
			if !strings.HasSuffix(name, SourceExt) {
				name += SourceExt
			}
			out = append(out, reference{path: name, pos: n.AtPos})
		}
		return true
	})
	return out
}

// resolveRef turns a reference made from file from into a source-relative
// slash path.
func resolveRef(from, ref string) string {
	ref = filepath.ToSlash(ref)
	if strings.HasSuffix(ref, ".tskb") {
		ref = strings.TrimSuffix(ref, "b")
	}
	return path.Clean(path.Join(path.Dir(from), ref))
}

func hashSource(data []byte) string {
	return fmt.Sprintf("%016x", xxh3.Hash(data))
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
