// Package hierarchy cascades the peanu configuration files found between a
// directory and the filesystem root.
package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/cyber-boost/tusktsk/pkg/value"
)

// File names looked up in every directory.
const (
	SourceName = "peanu.tsk"
	BinaryName = "peanu.tskb"
)

// ErrNoConfig is returned by Load when no level has a configuration file.
var ErrNoConfig = errors.New("no peanu configuration found")

// Level is one directory holding a configuration file.
type Level struct {
	Dir string
	// Source and Binary are empty when the file is absent.
	Source string
	Binary string
}

// Path is the file to load. A source wins so the loader can decide whether
// its artifact is still fresh.
func (l Level) Path() string {
	if l.Source != "" {
		return l.Source
	}
	return l.Binary
}

// Loader loads one configuration file.
type Loader interface {
	Load(ctx context.Context, path string) (*value.Tree, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, path string) (*value.Tree, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context, path string) (*value.Tree, error) {
	return f(ctx, path)
}

// Discover walks from dir up to the filesystem root and returns every
// level with a configuration file, root first.
func Discover(dir string) ([]Level, error) {
	return DiscoverUntil(dir, "")
}

// DiscoverUntil is Discover stopping after stop when it is an ancestor
// of dir.
func DiscoverUntil(dir, stop string) ([]Level, error) {
	cur, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	if stop != "" {
		if stop, err = filepath.Abs(stop); err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", stop, err)
		}
	}

	var levels []Level
	for {
		l := Level{Dir: cur}
		if isFile(filepath.Join(cur, SourceName)) {
			l.Source = filepath.Join(cur, SourceName)
		}
		if isFile(filepath.Join(cur, BinaryName)) {
			l.Binary = filepath.Join(cur, BinaryName)
		}
		if l.Path() != "" {
			levels = append(levels, l)
		}

		parent := filepath.Dir(cur)
		if parent == cur || cur == stop {
			break
		}
		cur = parent
	}
	slices.Reverse(levels)
	return levels, nil
}

// Load discovers the levels above dir and merges them, nearest winning.
func Load(ctx context.Context, dir string, loader Loader) (*value.Tree, error) {
	levels, err := Discover(dir)
	if err != nil {
		return nil, err
	}
	return LoadLevels(ctx, levels, loader)
}

// LoadLevels loads levels in order and deep-merges each onto the last.
func LoadLevels(ctx context.Context, levels []Level, loader Loader) (*value.Tree, error) {
	if len(levels) == 0 {
		return nil, ErrNoConfig
	}
	var merged *value.Tree
	for _, l := range levels {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tree, err := loader.Load(ctx, l.Path())
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", l.Path(), err)
		}
		merged = value.MergeTrees(merged, tree)
	}
	return merged, nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
