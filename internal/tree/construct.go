package tree

import (
	"github.com/orizon-lang/treeopt/internal/position"
	"github.com/orizon-lang/treeopt/internal/value"
)

// Node constructors. They never touch the parent links of the children
// they are given: a handler may build a candidate replacement from existing
// nodes and still decline. Links are derived by Replace, AppendChild or Link.

// NewConstant creates a literal constant node
func (t *Tree) NewConstant(pos position.Position, v value.Value) NodeID {
	return t.add(node{kind: KindConstant, pos: pos, value: v})
}

// NewVariableRef creates a reference to name, bound to v when v is non-nil
func (t *Tree) NewVariableRef(pos position.Position, name string, v *Variable) NodeID {
	return t.add(node{kind: KindVariableRef, pos: pos, name: name, variable: v})
}

// NewAttributeLookup creates expr.attribute
func (t *Tree) NewAttributeLookup(pos position.Position, expr NodeID, attribute string) NodeID {
	return t.add(node{kind: KindAttributeLookup, pos: pos, name: attribute, children: []NodeID{expr}})
}

// NewCall creates a call node. star and dstar may be NoNode.
func (t *Tree) NewCall(pos position.Position, called NodeID, positional []NodeID, keywords []Keyword, star, dstar NodeID) NodeID {
	children := make([]NodeID, 0, 1+len(positional)+len(keywords)+2)
	children = append(children, called)
	children = append(children, positional...)

	names := make([]string, len(keywords))
	for i, kw := range keywords {
		names[i] = kw.Name
		children = append(children, kw.Value)
	}

	n := node{kind: KindCall, pos: pos, keywords: names}
	if star != NoNode {
		n.star = true
		children = append(children, star)
	}
	if dstar != NoNode {
		n.dstar = true
		children = append(children, dstar)
	}
	n.children = children
	return t.add(n)
}

// NewSequence creates a tuple or list display
func (t *Tree) NewSequence(kind Kind, pos position.Position, items []NodeID) NodeID {
	if kind != KindMakeTuple && kind != KindMakeList {
		panic("tree: NewSequence needs a tuple or list kind")
	}
	return t.add(node{kind: kind, pos: pos, children: append([]NodeID(nil), items...)})
}

// NewBuiltin creates a specialized builtin operation node. Operand slots
// are positional per kind; absent optional operands are NoNode.
func (t *Tree) NewBuiltin(kind Kind, pos position.Position, operands ...NodeID) NodeID {
	if !kind.IsBuiltin() || kind == KindBuiltinImport {
		panic("tree: NewBuiltin needs a builtin operation kind, got " + kind.String())
	}
	return t.add(node{kind: kind, pos: pos, children: append([]NodeID(nil), operands...)})
}

// NewBuiltinImport creates a direct import of an already resolved module
func (t *Tree) NewBuiltinImport(pos position.Position, m ImportedModule) NodeID {
	return t.add(node{kind: KindBuiltinImport, pos: pos, imports: []ImportedModule{m}})
}

// NewExec creates an exec statement; globals and locals may be NoNode
func (t *Tree) NewExec(pos position.Position, source, globals, locals NodeID) NodeID {
	return t.add(node{kind: KindExec, pos: pos, children: []NodeID{source, globals, locals}})
}

// NewStatementExpression wraps an expression evaluated for its effect
func (t *Tree) NewStatementExpression(pos position.Position, expr NodeID) NodeID {
	return t.add(node{kind: KindStatementExpression, pos: pos, children: []NodeID{expr}})
}

// NewAssign creates target = value; target is a variable reference
func (t *Tree) NewAssign(pos position.Position, target, val NodeID) NodeID {
	return t.add(node{kind: KindAssign, pos: pos, children: []NodeID{target, val}})
}

// NewImport creates an import or import-from statement. names holds the
// source text of each imported item, imports the modules it resolved to.
func (t *Tree) NewImport(kind Kind, pos position.Position, names []string, imports []ImportedModule) NodeID {
	if kind != KindImport && kind != KindImportFrom {
		panic("tree: NewImport needs an import kind")
	}
	return t.add(node{kind: kind, pos: pos, names: names, imports: imports})
}

// NewGlobal creates a global declaration
func (t *Tree) NewGlobal(pos position.Position, names []string) NodeID {
	return t.add(node{kind: KindGlobal, pos: pos, names: names})
}

// NewPass creates a pass statement
func (t *Tree) NewPass(pos position.Position) NodeID {
	return t.add(node{kind: KindPass, pos: pos})
}

// NewReturn creates a return statement; val may be NoNode
func (t *Tree) NewReturn(pos position.Position, val NodeID) NodeID {
	return t.add(node{kind: KindReturn, pos: pos, children: []NodeID{val}})
}

// NewFunction creates a function definition with an empty body
func (t *Tree) NewFunction(pos position.Position, name string, params []string) NodeID {
	return t.add(node{kind: KindFunction, pos: pos, name: name, names: params})
}
