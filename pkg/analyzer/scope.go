package analyzer

import "strings"

// scope is one level of name visibility: a section, or the global root.
// Lookups walk outward through enclosing sections to the root.
type scope struct {
	parent  *scope
	section string                   // dotted section path, "" for the root
	vars    map[string]*VariableInfo // shared with Result.Sections / Result.Globals
}

// child creates a nested section scope.
func (s *scope) child(section string, vars map[string]*VariableInfo) *scope {
	return &scope{parent: s, section: section, vars: vars}
}

// isRoot reports whether s is the global scope.
func (s *scope) isRoot() bool {
	return s.parent == nil
}

// lookup resolves a bare name: current section, then enclosing sections,
// then globals.
func (s *scope) lookup(name string) (*VariableInfo, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if info, ok := cur.vars[name]; ok {
			return info, true
		}
	}
	return nil, false
}

// qualify joins a section name onto the scope's path.
func (s *scope) qualify(name string) string {
	if s.section == "" {
		return name
	}
	return s.section + "." + name
}

// lookupSection resolves a possibly relative section name against the
// scope chain and returns the section's variables and absolute path.
func (a *Analyzer) lookupSection(name string) (map[string]*VariableInfo, string, bool) {
	for cur := a.scope; cur != nil; cur = cur.parent {
		path := cur.qualify(name)
		if vars, ok := a.res.Sections[path]; ok {
			return vars, path, true
		}
	}
	return nil, "", false
}

// resolveSectionKey resolves a dotted path such as server.port against
// declared sections, preferring the longest section prefix. It returns the
// variable, the section path and the index of the key within parts.
func (a *Analyzer) resolveSectionKey(parts []string) (*VariableInfo, string, int, bool) {
	for i := len(parts) - 1; i >= 1; i-- {
		vars, path, ok := a.lookupSection(strings.Join(parts[:i], "."))
		if !ok {
			continue
		}
		return vars[parts[i]], path, i, true
	}
	return nil, "", 0, false
}
