package optimize

import (
	"fmt"

	"github.com/orizon-lang/treeopt/internal/errors"
	"github.com/orizon-lang/treeopt/internal/tree"
)

// Rewrite is a handler's verdict on a node: either no rewrite or a
// replacement node. Declining is an ordinary outcome, not a failure.
type Rewrite struct {
	node tree.NodeID
}

// NoRewrite leaves the node unchanged
func NoRewrite() Rewrite { return Rewrite{node: tree.NoNode} }

// ReplaceWith substitutes id for the visited node
func ReplaceWith(id tree.NodeID) Rewrite { return Rewrite{node: id} }

// Replacement returns the replacement node, if any
func (r Rewrite) Replacement() (tree.NodeID, bool) {
	return r.node, r.node != tree.NoNode
}

// Handler computes the rewrite of one node. Handlers decline by returning
// NoRewrite; they report broken invariants with errors.Defect.
type Handler func(t *tree.Tree, id tree.NodeID) Rewrite

// KeyFunc computes the dispatch key of a node, false if it has none
type KeyFunc[K comparable] func(t *tree.Tree, id tree.NodeID) (K, bool)

// Visitor applies a dispatch table to every node of a module tree. The
// table is built once and only read while the visitor runs.
type Visitor[K comparable] struct {
	name  string
	key   KeyFunc[K]
	table map[K]Handler
	stats *Stats
}

// NewVisitor creates a dispatching visitor
func NewVisitor[K comparable](name string, key KeyFunc[K], table map[K]Handler) *Visitor[K] {
	return &Visitor[K]{
		name:  name,
		key:   key,
		table: table,
		stats: &Stats{PassName: name},
	}
}

// Name returns the pass name
func (v *Visitor[K]) Name() string { return v.name }

// Stats returns the counters accumulated over every Apply
func (v *Visitor[K]) Stats() *Stats { return v.stats }

// Handles reports whether the table has an entry for key
func (v *Visitor[K]) Handles(key K) bool {
	_, ok := v.table[key]
	return ok
}

// Apply visits every node of m in post-order and substitutes handler
// results. A defect raised by a handler or a structural failure of a
// replacement stops the walk and is returned.
func (v *Visitor[K]) Apply(m *tree.Module) (signals Signals, err error) {
	defer errors.Recover(&err)

	t := m.Tree
	t.Walk(func(id tree.NodeID) {
		v.stats.NodesVisited++

		key, ok := v.key(t, id)
		if !ok {
			return
		}
		handler, ok := v.table[key]
		if !ok {
			return
		}

		repl, ok := handler(t, id).Replacement()
		if !ok {
			return
		}
		if rerr := t.Replace(id, repl); rerr != nil {
			panic(rerr)
		}

		v.stats.NodesTransformed++
		switch kind := t.Kind(repl); {
		case kind == tree.KindConstant:
			v.stats.ConstantsFolded++
			signals.Add(SignalNewConstant)
		case kind.IsBuiltin():
			v.stats.BuiltinsSpecialized++
			signals.Add(SignalNewBuiltin)
		default:
			signals.Add(SignalNewStatement)
		}
	})

	if err == nil {
		err = verifyAfter(v.name, m)
	}
	return signals, err
}

// verifyAfter checks the parent invariant after a pass when the build
// enables it for testing
func verifyAfter(pass string, m *tree.Module) error {
	if !VerifyTrees {
		return nil
	}
	if err := m.Tree.Verify(); err != nil {
		return errors.NewStandardError(errors.CategoryInternal, "TREE_INVARIANT",
			fmt.Sprintf("%s left %s inconsistent: %v", pass, m.FullName(), err), nil)
	}
	return nil
}

// VerifyTrees makes every dispatching pass check the parent links of the
// module it rewrote. Tests turn it on.
var VerifyTrees = false
