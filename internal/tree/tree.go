// Package tree implements the mutable program tree the optimization passes
// rewrite.
//
// Nodes live in an arena owned by a Tree and are addressed by stable NodeID
// indices. Parent links are plain indices maintained by the tree: replacing a
// node rewrites one slot of its parent and re-derives the parent links of the
// replacement subtree, so no pass can leave a stale parent behind. Replaced
// nodes stay in the arena but are marked dead and are never visited again.
package tree

import (
	"fmt"

	"github.com/orizon-lang/treeopt/internal/errors"
	"github.com/orizon-lang/treeopt/internal/position"
	"github.com/orizon-lang/treeopt/internal/value"
)

// NodeID addresses a node within its Tree
type NodeID int32

// NoNode marks an absent optional slot
const NoNode NodeID = -1

// ImportedModule is one module an import refers to, already resolved
type ImportedModule struct {
	Name     string // module name as resolved
	Package  string // package of the module, empty for top-level modules
	Filename string // file the module is built from, empty if not found
}

// Keyword is a named call argument
type Keyword struct {
	Name  string
	Value NodeID
}

type node struct {
	kind     Kind
	pos      position.Position
	parent   NodeID
	children []NodeID
	name     string
	value    value.Value
	variable *Variable
	keywords []string
	star     bool
	dstar    bool
	names    []string
	imports  []ImportedModule
	dead     bool
}

// Tree is the node arena of one module
type Tree struct {
	nodes  []node
	root   NodeID
	module *Module
}

func newTree() *Tree {
	return &Tree{root: NoNode}
}

// Root returns the module node
func (t *Tree) Root() NodeID { return t.root }

// Module returns the module owning this tree
func (t *Tree) Module() *Module { return t.module }

// Len returns the number of nodes ever allocated, dead ones included
func (t *Tree) Len() int { return len(t.nodes) }

func (t *Tree) add(n node) NodeID {
	n.parent = NoNode
	t.nodes = append(t.nodes, n)
	return NodeID(len(t.nodes) - 1)
}

func (t *Tree) at(id NodeID) *node {
	if id < 0 || int(id) >= len(t.nodes) {
		panic(fmt.Sprintf("tree: node %d out of range", id))
	}
	return &t.nodes[id]
}

// Kind returns the kind of id
func (t *Tree) Kind(id NodeID) Kind { return t.at(id).kind }

// Pos returns the source position of id
func (t *Tree) Pos(id NodeID) position.Position { return t.at(id).pos }

// Parent returns the enclosing node of id, NoNode for the root and dead nodes
func (t *Tree) Parent(id NodeID) NodeID { return t.at(id).parent }

// Alive reports whether id is still part of the tree
func (t *Tree) Alive(id NodeID) bool { return !t.at(id).dead }

// Children returns the child slots of id. Absent optional slots hold NoNode.
// The slice is owned by the tree and must not be modified.
func (t *Tree) Children(id NodeID) []NodeID { return t.at(id).children }

// Child returns slot i of id, NoNode when i is out of range
func (t *Tree) Child(id NodeID, i int) NodeID {
	children := t.at(id).children
	if i < 0 || i >= len(children) {
		return NoNode
	}
	return children[i]
}

// Name returns the name payload: variable, attribute or function name
func (t *Tree) Name(id NodeID) string { return t.at(id).name }

// Names returns the name list of import, global and function nodes
func (t *Tree) Names(id NodeID) []string { return t.at(id).names }

// Value returns the literal held by a constant node
func (t *Tree) Value(id NodeID) value.Value { return t.at(id).value }

// Variable returns the resolved variable of a reference node
func (t *Tree) Variable(id NodeID) *Variable { return t.at(id).variable }

// SetVariable binds a reference node to its variable
func (t *Tree) SetVariable(id NodeID, v *Variable) { t.at(id).variable = v }

// Imports returns the resolved modules of an import statement or a
// builtin import node
func (t *Tree) Imports(id NodeID) []ImportedModule { return t.at(id).imports }

// IsConstant reports whether id is a literal constant node
func (t *Tree) IsConstant(id NodeID) bool {
	return id != NoNode && t.at(id).kind == KindConstant
}

// AppendChild adds child as the last slot of parent
func (t *Tree) AppendChild(parent, child NodeID) {
	p := t.at(parent)
	p.children = append(p.children, child)
	if child != NoNode {
		t.at(child).parent = parent
	}
}

// Replace substitutes repl for old in old's parent slot. When repl is a
// statement and old sat in an expression statement, the wrapper is dropped
// as well so repl becomes the statement itself. Parent links of the whole
// replacement subtree are re-derived, and old (plus a dropped wrapper) is
// marked dead. Replacing a node without a parent is a structural defect.
func (t *Tree) Replace(old, repl NodeID) error {
	if old == repl {
		return nil
	}

	parent := t.at(old).parent
	if parent == NoNode || t.at(old).dead {
		return errors.NewStandardError(errors.CategoryInternal, "REPLACE_DETACHED",
			fmt.Sprintf("cannot replace detached %s node", t.Kind(old)),
			map[string]interface{}{"node": old, "at": t.Pos(old).String()})
	}

	if err := t.swapChild(parent, old, repl); err != nil {
		return err
	}
	t.kill(old)

	if t.Kind(repl).IsStatement() && t.Kind(parent) == KindStatementExpression {
		wrapper := parent
		parent = t.at(wrapper).parent
		if parent == NoNode {
			return errors.NewStandardError(errors.CategoryInternal, "REPLACE_DETACHED",
				"expression statement wrapper has no parent",
				map[string]interface{}{"node": wrapper})
		}
		if err := t.swapChild(parent, wrapper, repl); err != nil {
			return err
		}
		t.kill(wrapper)
	}

	t.at(repl).parent = parent
	t.Link(repl)
	return nil
}

func (t *Tree) swapChild(parent, old, repl NodeID) error {
	children := t.at(parent).children
	for i, c := range children {
		if c == old {
			children[i] = repl
			return nil
		}
	}
	return errors.NewStandardError(errors.CategoryInternal, "STALE_PARENT",
		fmt.Sprintf("%s node is not a child of its parent %s", t.Kind(old), t.Kind(parent)),
		map[string]interface{}{"node": old, "parent": parent})
}

func (t *Tree) kill(id NodeID) {
	n := t.at(id)
	n.dead = true
	n.parent = NoNode
}

// Link re-derives the parent links of every node below id
func (t *Tree) Link(id NodeID) {
	for _, c := range t.at(id).children {
		if c == NoNode {
			continue
		}
		t.at(c).parent = id
		t.at(c).dead = false
		t.Link(c)
	}
}

// Walk visits every live node reachable from the root in post-order:
// children before their parent, siblings left to right. fn may replace
// the node it is given; nodes that die during the walk are not visited,
// and replacements are not visited in the same walk.
func (t *Tree) Walk(fn func(id NodeID)) {
	if t.root != NoNode {
		t.walk(t.root, fn)
	}
}

func (t *Tree) walk(id NodeID, fn func(id NodeID)) {
	for i := 0; i < len(t.at(id).children); i++ {
		if c := t.at(id).children[i]; c != NoNode {
			t.walk(c, fn)
		}
	}
	if !t.at(id).dead {
		fn(id)
	}
}

// Count returns the number of live nodes reachable from the root
func (t *Tree) Count() int {
	n := 0
	t.Walk(func(NodeID) { n++ })
	return n
}

// Verify checks that every reachable node's parent link matches the
// shape of the tree
func (t *Tree) Verify() error {
	if t.root == NoNode {
		return nil
	}
	if p := t.at(t.root).parent; p != NoNode {
		return fmt.Errorf("root node has parent %d", p)
	}

	var verify func(id NodeID) error
	verify = func(id NodeID) error {
		for _, c := range t.at(id).children {
			if c == NoNode {
				continue
			}
			n := t.at(c)
			if n.dead {
				return fmt.Errorf("%s node %d under %s node %d is dead", n.kind, c, t.Kind(id), id)
			}
			if n.parent != id {
				return fmt.Errorf("%s node %d has parent %d, expected %d", n.kind, c, n.parent, id)
			}
			if err := verify(c); err != nil {
				return err
			}
		}
		return nil
	}
	return verify(t.root)
}

// EnclosingScope returns the nearest function or module node containing id
func (t *Tree) EnclosingScope(id NodeID) NodeID {
	for p := t.at(id).parent; p != NoNode; p = t.at(p).parent {
		if t.Kind(p).IsScope() {
			return p
		}
	}
	return t.root
}

// ===== Calls =====

// CallCalled returns the called expression of a call node
func (t *Tree) CallCalled(id NodeID) NodeID { return t.at(id).children[0] }

// CallPositional returns the positional arguments of a call node
func (t *Tree) CallPositional(id NodeID) []NodeID {
	n := t.at(id)
	end := len(n.children) - len(n.keywords)
	if n.star {
		end--
	}
	if n.dstar {
		end--
	}
	return n.children[1:end]
}

// CallKeywords returns the keyword arguments of a call node
func (t *Tree) CallKeywords(id NodeID) []Keyword {
	n := t.at(id)
	start := len(n.children) - len(n.keywords)
	if n.star {
		start--
	}
	if n.dstar {
		start--
	}

	kws := make([]Keyword, len(n.keywords))
	for i, name := range n.keywords {
		kws[i] = Keyword{Name: name, Value: n.children[start+i]}
	}
	return kws
}

// CallStarArgs returns the *args and **kwargs expressions, NoNode if absent
func (t *Tree) CallStarArgs(id NodeID) (star, dstar NodeID) {
	n := t.at(id)
	star, dstar = NoNode, NoNode
	last := len(n.children) - 1
	if n.dstar {
		dstar = n.children[last]
		last--
	}
	if n.star {
		star = n.children[last]
	}
	return star, dstar
}

// HasOnlyPositionalArguments reports whether a call passes neither keyword
// nor star arguments
func (t *Tree) HasOnlyPositionalArguments(id NodeID) bool {
	n := t.at(id)
	return len(n.keywords) == 0 && !n.star && !n.dstar
}

// IsEmptyCall reports whether a call passes no arguments at all
func (t *Tree) IsEmptyCall(id NodeID) bool {
	return len(t.at(id).children) == 1
}
