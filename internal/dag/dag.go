// Package dag models the include graph between configuration files. It
// supports cycle detection, dependency ordering and change propagation.
package dag

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrCycle is wrapped by every error reporting an include cycle.
var ErrCycle = errors.New("include cycle")

// CycleError describes one cycle. Path starts and ends with the same file.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s: %s", ErrCycle, strings.Join(e.Path, " -> "))
}

// Unwrap returns ErrCycle.
func (e *CycleError) Unwrap() error {
	return ErrCycle
}

// Node is one file in the graph.
type Node[T any] struct {
	ID   string
	Data T
}

// Graph is a directed graph of files. An edge from a file to another means
// the first depends on (includes or calls into) the second.
type Graph[T any] struct {
	nodes      map[string]*Node[T]
	deps       map[string][]string // file -> files it depends on
	dependents map[string][]string // file -> files depending on it
}

// NewGraph creates an empty graph.
func NewGraph[T any]() *Graph[T] {
	return &Graph[T]{
		nodes:      make(map[string]*Node[T]),
		deps:       make(map[string][]string),
		dependents: make(map[string][]string),
	}
}

// AddNode adds a file, replacing the data of an existing one.
func (g *Graph[T]) AddNode(id string, data T) {
	if n, ok := g.nodes[id]; ok {
		n.Data = data
		return
	}
	g.nodes[id] = &Node[T]{ID: id, Data: data}
}

// AddDependency records that id depends on dep. Both must exist.
func (g *Graph[T]) AddDependency(id, dep string) error {
	if _, ok := g.nodes[id]; !ok {
		return fmt.Errorf("node %q does not exist", id)
	}
	if _, ok := g.nodes[dep]; !ok {
		return fmt.Errorf("node %q does not exist", dep)
	}
	if id == dep {
		return &CycleError{Path: []string{id, id}}
	}

	if !slices.Contains(g.deps[id], dep) {
		g.deps[id] = append(g.deps[id], dep)
		g.dependents[dep] = append(g.dependents[dep], id)
	}
	return nil
}

// Node returns a node by ID.
func (g *Graph[T]) Node(id string) (*Node[T], bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Dependencies returns the files id depends on directly, sorted.
func (g *Graph[T]) Dependencies(id string) []string {
	return sorted(g.deps[id])
}

// Dependents returns the files depending directly on id, sorted.
func (g *Graph[T]) Dependents(id string) []string {
	return sorted(g.dependents[id])
}

// IDs returns every node ID, sorted.
func (g *Graph[T]) IDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Len returns the number of nodes.
func (g *Graph[T]) Len() int {
	return len(g.nodes)
}

// EdgeCount returns the number of dependency edges.
func (g *Graph[T]) EdgeCount() int {
	n := 0
	for _, deps := range g.deps {
		n += len(deps)
	}
	return n
}

// FindCycle returns a cycle if there is one. The search visits nodes in
// sorted order so the reported cycle is stable.
func (g *Graph[T]) FindCycle() *CycleError {
	const (
		unvisited = iota
		active
		done
	)
	state := make(map[string]int, len(g.nodes))
	var stack []string

	var visit func(id string) *CycleError
	visit = func(id string) *CycleError {
		state[id] = active
		stack = append(stack, id)
		for _, dep := range g.Dependencies(id) {
			switch state[dep] {
			case active:
				start := slices.Index(stack, dep)
				path := append(slices.Clone(stack[start:]), dep)
				return &CycleError{Path: path}
			case unvisited:
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[id] = done
		return nil
	}

	for _, id := range g.IDs() {
		if state[id] == unvisited {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}

// TopologicalSort returns the files with every dependency before the
// files that depend on it.
func (g *Graph[T]) TopologicalSort() ([]*Node[T], error) {
	if err := g.FindCycle(); err != nil {
		return nil, err
	}

	visited := make(map[string]bool, len(g.nodes))
	out := make([]*Node[T], 0, len(g.nodes))

	var visit func(id string)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, dep := range g.Dependencies(id) {
			visit(dep)
		}
		out = append(out, g.nodes[id])
	}
	for _, id := range g.IDs() {
		visit(id)
	}
	return out, nil
}

// Levels groups files so that every file's dependencies sit in earlier
// levels. Files within a level are independent of each other.
func (g *Graph[T]) Levels() ([][]string, error) {
	if err := g.FindCycle(); err != nil {
		return nil, err
	}

	level := make(map[string]int, len(g.nodes))
	var depth func(id string) int
	depth = func(id string) int {
		if l, ok := level[id]; ok {
			return l
		}
		l := 0
		for _, dep := range g.deps[id] {
			l = max(l, depth(dep)+1)
		}
		level[id] = l
		return l
	}

	var levels [][]string
	for _, id := range g.IDs() {
		l := depth(id)
		for len(levels) <= l {
			levels = append(levels, nil)
		}
		levels[l] = append(levels[l], id)
	}
	return levels, nil
}

// Affected returns the changed files plus every file that depends on them,
// directly or not, sorted. Unknown IDs are ignored.
func (g *Graph[T]) Affected(changed []string) []string {
	seen := make(map[string]bool)
	var mark func(id string)
	mark = func(id string) {
		if seen[id] {
			return
		}
		seen[id] = true
		for _, d := range g.dependents[id] {
			mark(d)
		}
	}
	for _, id := range changed {
		if _, ok := g.nodes[id]; ok {
			mark(id)
		}
	}
	return keys(seen)
}

// Upstream returns every file id depends on, directly or not, sorted.
func (g *Graph[T]) Upstream(id string) []string {
	seen := make(map[string]bool)
	var mark func(id string)
	mark = func(id string) {
		for _, dep := range g.deps[id] {
			if !seen[dep] {
				seen[dep] = true
				mark(dep)
			}
		}
	}
	mark(id)
	return keys(seen)
}

// Roots returns files that depend on nothing.
func (g *Graph[T]) Roots() []string {
	var out []string
	for _, id := range g.IDs() {
		if len(g.deps[id]) == 0 {
			out = append(out, id)
		}
	}
	return out
}

func sorted(s []string) []string {
	out := slices.Clone(s)
	slices.Sort(out)
	return out
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
