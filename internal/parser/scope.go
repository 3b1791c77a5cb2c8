package parser

import (
	"github.com/orizon-lang/treeopt/internal/tree"
)

// scope collects the bindings and references of the module or of one
// function while it is parsed. References are bound once the whole file is
// read, because a later assignment makes a name local to the entire
// function.
type scope struct {
	node     tree.NodeID
	parent   *scope
	function bool

	params   map[string]bool
	assigned map[string]bool
	globals  map[string]bool
	refs     []tree.NodeID
	children []*scope

	locals map[string]*tree.Variable
}

func newScope(node tree.NodeID, parent *scope, function bool) *scope {
	s := &scope{
		node:     node,
		parent:   parent,
		function: function,
		params:   make(map[string]bool),
		assigned: make(map[string]bool),
		globals:  make(map[string]bool),
		locals:   make(map[string]*tree.Variable),
	}
	if parent != nil {
		parent.children = append(parent.children, s)
	}
	return s
}

// isLocal reports whether name is bound in this function
func (s *scope) isLocal(name string) bool {
	if !s.function || s.globals[name] {
		return false
	}
	return s.params[name] || s.assigned[name]
}

func (s *scope) local(name string) *tree.Variable {
	if v, ok := s.locals[name]; ok {
		return v
	}
	v := tree.NewLocalVariable(name, s.node)
	s.locals[name] = v
	return v
}

// resolve binds every reference of s and its nested scopes
func (s *scope) resolve(m *tree.Module) {
	if !s.function {
		for name := range s.assigned {
			m.VariableForReference(name).MarkAssigned()
		}
	} else {
		for name := range s.globals {
			if s.assigned[name] {
				m.VariableForReference(name).MarkAssigned()
			}
		}
	}

	for _, ref := range s.refs {
		m.Tree.SetVariable(ref, s.lookup(m, m.Tree.Name(ref)))
	}
	for _, child := range s.children {
		child.resolve(m)
	}
}

// lookup finds the binding of name as seen from s: the innermost function
// binding it, unless declared global there, and the module otherwise
func (s *scope) lookup(m *tree.Module, name string) *tree.Variable {
	for sc := s; sc != nil && sc.function; sc = sc.parent {
		if sc.globals[name] {
			break
		}
		if sc.isLocal(name) {
			return sc.local(name)
		}
	}
	return m.VariableForReference(name)
}
