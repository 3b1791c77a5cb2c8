package tree

import (
	"sort"

	"github.com/orizon-lang/treeopt/internal/position"
)

// Variable is a resolved binding, distinct from its textual name
type Variable struct {
	Name  string
	Owner NodeID // module or function node providing the binding

	module   bool
	assigned bool
}

// IsModuleVariable reports whether the binding lives at module level
func (v *Variable) IsModuleVariable() bool { return v.module }

// IsAssigned reports whether the module binds the name itself, by
// assignment, definition, import or a global declaration in a function.
// An unassigned module variable falls through to the builtin of that name.
func (v *Variable) IsAssigned() bool { return v.assigned }

// MarkAssigned records a binding of the variable within its module
func (v *Variable) MarkAssigned() { v.assigned = true }

// NewLocalVariable creates a variable owned by a function scope
func NewLocalVariable(name string, owner NodeID) *Variable {
	return &Variable{Name: name, Owner: owner}
}

// Module is one compilation unit and its tree
type Module struct {
	Name     string // module name without package
	Package  string // dotted package name, empty for top-level modules
	Filename string // absolute source filename
	Tree     *Tree

	variables map[string]*Variable
}

// NewModule creates a module with an empty root node
func NewModule(name, pkg, filename string) *Module {
	m := &Module{
		Name:      name,
		Package:   pkg,
		Filename:  filename,
		Tree:      newTree(),
		variables: make(map[string]*Variable),
	}
	m.Tree.module = m
	m.Tree.root = m.Tree.add(node{
		kind: KindModule,
		pos:  position.Position{Filename: filename, Line: 1, Column: 1},
		name: name,
	})
	return m
}

// Root returns the module node
func (m *Module) Root() NodeID { return m.Tree.root }

// FullName returns the dotted name of the module including its package
func (m *Module) FullName() string {
	if m.Package == "" {
		return m.Name
	}
	return m.Package + "." + m.Name
}

// VariableForReference returns the module variable for name, creating it
// on first use
func (m *Module) VariableForReference(name string) *Variable {
	if v, ok := m.variables[name]; ok {
		return v
	}
	v := &Variable{Name: name, Owner: m.Tree.root, module: true}
	m.variables[name] = v
	return v
}

// LookupVariable returns the module variable for name if one exists
func (m *Module) LookupVariable(name string) (*Variable, bool) {
	v, ok := m.variables[name]
	return v, ok
}

// Variables returns the module variables sorted by name
func (m *Module) Variables() []*Variable {
	vars := make([]*Variable, 0, len(m.variables))
	for _, v := range m.variables {
		vars = append(vars, v)
	}
	sort.Slice(vars, func(i, j int) bool { return vars[i].Name < vars[j].Name })
	return vars
}
