package recursion

import (
	"sort"

	"github.com/orizon-lang/treeopt/internal/tree"
)

// Registry holds the modules of one optimization session keyed by their
// normalized path. Every session owns its own registry.
type Registry struct {
	modules map[string]*tree.Module
	order   []string
	failed  map[string]error

	// dependencies maps an importing module's path to the paths it imports
	dependencies map[string][]string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		modules:      make(map[string]*tree.Module),
		order:        []string{},
		failed:       make(map[string]error),
		dependencies: make(map[string][]string),
	}
}

// Register adds m under path. It reports false, leaving the registry
// unchanged, if path is already taken.
func (r *Registry) Register(path string, m *tree.Module) bool {
	if _, ok := r.modules[path]; ok {
		return false
	}
	r.modules[path] = m
	r.order = append(r.order, path)
	return true
}

// Lookup returns the module registered under path
func (r *Registry) Lookup(path string) (*tree.Module, bool) {
	m, ok := r.modules[path]
	return m, ok
}

// Known reports whether path was registered or failed to build
func (r *Registry) Known(path string) bool {
	if _, ok := r.modules[path]; ok {
		return true
	}
	_, ok := r.failed[path]
	return ok
}

// MarkFailed records that the module at path could not be built
func (r *Registry) MarkFailed(path string, err error) {
	r.failed[path] = err
}

// Failed returns the paths that failed to build, sorted, with their errors
func (r *Registry) Failed() ([]string, map[string]error) {
	paths := make([]string, 0, len(r.failed))
	for p := range r.failed {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, r.failed
}

// Modules returns the registered modules in registration order
func (r *Registry) Modules() []*tree.Module {
	modules := make([]*tree.Module, len(r.order))
	for i, p := range r.order {
		modules[i] = r.modules[p]
	}
	return modules
}

// Paths returns the registered paths in registration order
func (r *Registry) Paths() []string {
	return append([]string(nil), r.order...)
}

// Len returns the number of registered modules
func (r *Registry) Len() int { return len(r.order) }

// AddDependency records that the module at from imports the module at to
func (r *Registry) AddDependency(from, to string) {
	for _, dep := range r.dependencies[from] {
		if dep == to {
			return
		}
	}
	r.dependencies[from] = append(r.dependencies[from], to)
}

// Dependencies returns the paths the module at path imports, in the order
// they were first seen
func (r *Registry) Dependencies(path string) []string {
	return r.dependencies[path]
}

// Cycles returns the import cycles among registered modules. Each cycle
// lists its paths starting and ending with the same path.
func (r *Registry) Cycles() [][]string {
	var cycles [][]string
	visited := make(map[string]bool)
	onStack := make(map[string]bool)

	var visit func(p string, path []string)
	visit = func(p string, path []string) {
		visited[p] = true
		onStack[p] = true
		path = append(path, p)

		for _, dep := range r.dependencies[p] {
			if !visited[dep] {
				visit(dep, path)
			} else if onStack[dep] {
				// Close the cycle at the first occurrence of dep.
				for i, q := range path {
					if q == dep {
						cycle := append(append([]string(nil), path[i:]...), dep)
						cycles = append(cycles, cycle)
						break
					}
				}
			}
		}

		onStack[p] = false
	}

	for _, p := range r.order {
		if !visited[p] {
			visit(p, nil)
		}
	}
	return cycles
}
