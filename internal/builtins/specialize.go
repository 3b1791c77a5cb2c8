// Package builtins replaces calls of well-known global functions with
// dedicated node kinds the later passes can reason about.
//
// Only calls whose callee is a module-level name the module never binds
// itself are considered, so a module defining its own range or type keeps
// its generic calls. Specialization looks at the shape of a call, its arity
// and, for __import__, one literal argument; it never evaluates anything.
package builtins

import (
	"fmt"
	"strings"

	"github.com/orizon-lang/treeopt/internal/dialect"
	"github.com/orizon-lang/treeopt/internal/errors"
	"github.com/orizon-lang/treeopt/internal/optimize"
	"github.com/orizon-lang/treeopt/internal/tree"
	"github.com/orizon-lang/treeopt/internal/value"
)

// PassName is the name the specialization pass reports
const PassName = "ReplaceBuiltins"

// ModuleFinder resolves a module name relative to a parent package
type ModuleFinder interface {
	FindModule(name, parentPackage string) (tree.ImportedModule, error)
}

// Options selects optional rewrites
type Options struct {
	// EnableLen adds len() to the table. The rewrite is unsafe as long as
	// writes to module variables from other modules go undetected: such a
	// write can rebind len after this pass proved it unshadowed.
	EnableLen bool
}

// Specializer is the builtin specialization pass
type Specializer struct {
	*optimize.Visitor[string]

	finder  ModuleFinder
	dialect *dialect.Dialect
}

// New creates the specialization pass. finder resolves literal
// __import__ arguments; d decides which version dependent builtins exist.
func New(finder ModuleFinder, d *dialect.Dialect, opts Options) *Specializer {
	s := &Specializer{finder: finder, dialect: d}

	table := map[string]optimize.Handler{
		"globals":    s.globals,
		"locals":     s.locals,
		"dir":        s.dir,
		"vars":       s.vars,
		"eval":       s.eval,
		"__import__": s.importModule,
		"chr":        s.chr,
		"ord":        s.ord,
		"type":       s.typeCall,
		"range":      s.rangeCall,
	}
	if d.HasExecfile() {
		table["execfile"] = s.execfile
	}
	if opts.EnableLen {
		table["len"] = s.lenCall
	}

	s.Visitor = optimize.NewVisitor(PassName, DispatchKey, table)
	return s
}

// DispatchKey returns the builtin name a call refers to. The call must pass
// positional arguments only, and its callee must be a module variable the
// module does not bind, i.e. the builtin itself.
func DispatchKey(t *tree.Tree, id tree.NodeID) (string, bool) {
	if t.Kind(id) != tree.KindCall || !t.HasOnlyPositionalArguments(id) {
		return "", false
	}

	called := t.CallCalled(id)
	if t.Kind(called) != tree.KindVariableRef {
		return "", false
	}

	v := t.Variable(called)
	if v == nil || !v.IsModuleVariable() || v.IsAssigned() {
		return "", false
	}
	return v.Name, true
}

func (s *Specializer) globals(t *tree.Tree, id tree.NodeID) optimize.Rewrite {
	if !t.IsEmptyCall(id) {
		return optimize.NoRewrite()
	}
	return optimize.ReplaceWith(t.NewBuiltin(tree.KindBuiltinGlobals, t.Pos(id)))
}

func (s *Specializer) locals(t *tree.Tree, id tree.NodeID) optimize.Rewrite {
	if !t.IsEmptyCall(id) {
		return optimize.NoRewrite()
	}
	return optimize.ReplaceWith(pickLocals(t, id))
}

// pickLocals reads the module globals at module level, where the two
// scopes coincide, and the local scope anywhere else
func pickLocals(t *tree.Tree, id tree.NodeID) tree.NodeID {
	if t.Kind(t.EnclosingScope(id)) == tree.KindModule {
		return t.NewBuiltin(tree.KindBuiltinGlobals, t.Pos(id))
	}
	return t.NewBuiltin(tree.KindBuiltinLocals, t.Pos(id))
}

func (s *Specializer) dir(t *tree.Tree, id tree.NodeID) optimize.Rewrite {
	// Only the scope listing form; dir(obj) stays a call for now.
	if !t.IsEmptyCall(id) {
		return optimize.NoRewrite()
	}
	return optimize.ReplaceWith(t.NewBuiltin(tree.KindBuiltinDir, t.Pos(id)))
}

func (s *Specializer) vars(t *tree.Tree, id tree.NodeID) optimize.Rewrite {
	args := t.CallPositional(id)

	switch len(args) {
	case 0:
		return optimize.ReplaceWith(pickLocals(t, id))
	case 1:
		return optimize.ReplaceWith(t.NewBuiltin(tree.KindBuiltinVars, t.Pos(id), args[0]))
	default:
		errors.Defect("VARS_ARITY", fmt.Sprintf("vars() called with %d arguments", len(args)),
			map[string]interface{}{"at": t.Pos(id).String()})
		return optimize.NoRewrite()
	}
}

func (s *Specializer) eval(t *tree.Tree, id tree.NodeID) optimize.Rewrite {
	args := t.CallPositional(id)
	if len(args) < 1 || len(args) > 3 {
		return optimize.NoRewrite()
	}

	source, globals, locals := splitScopeArgs(args)
	return optimize.ReplaceWith(t.NewBuiltin(tree.KindBuiltinEval, t.Pos(id), source, globals, locals))
}

// splitScopeArgs splits (source[, globals[, locals]]), leaving absent
// scope arguments unset
func splitScopeArgs(args []tree.NodeID) (source, globals, locals tree.NodeID) {
	source, globals, locals = args[0], tree.NoNode, tree.NoNode
	if len(args) > 1 {
		globals = args[1]
	}
	if len(args) > 2 {
		locals = args[2]
	}
	return source, globals, locals
}

// execfile turns execfile(name[, g[, l]]) used as a statement into
// exec open(name, "rU").read() [in g[, l]]. The result of execfile is
// None, so only statement position can drop the call.
func (s *Specializer) execfile(t *tree.Tree, id tree.NodeID) optimize.Rewrite {
	if parent := t.Parent(id); parent == tree.NoNode || t.Kind(parent) != tree.KindStatementExpression {
		return optimize.NoRewrite()
	}

	args := t.CallPositional(id)
	if len(args) < 1 || len(args) > 3 {
		return optimize.NoRewrite()
	}

	pos := t.Pos(id)
	filename, globals, locals := splitScopeArgs(args)

	open := t.NewBuiltin(tree.KindBuiltinOpen, pos,
		filename,
		t.NewConstant(pos, value.Str("rU")),
		tree.NoNode,
	)
	read := t.NewCall(pos, t.NewAttributeLookup(pos, open, "read"), nil, nil, tree.NoNode, tree.NoNode)

	return optimize.ReplaceWith(t.NewExec(pos, read, globals, locals))
}

// importModule resolves __import__("name") for a literal, single segment
// name. Dotted names are left alone.
func (s *Specializer) importModule(t *tree.Tree, id tree.NodeID) optimize.Rewrite {
	args := t.CallPositional(id)
	if len(args) != 1 || !t.IsConstant(args[0]) {
		return optimize.NoRewrite()
	}

	name, ok := t.Value(args[0]).(value.Str)
	if !ok || strings.Contains(string(name), ".") {
		return optimize.NoRewrite()
	}
	if s.finder == nil {
		return optimize.NoRewrite()
	}

	resolved, err := s.finder.FindModule(string(name), t.Module().Package)
	if err != nil || resolved.Filename == "" {
		// The import fails at run time; leave the call to raise there.
		return optimize.NoRewrite()
	}

	return optimize.ReplaceWith(t.NewBuiltinImport(t.Pos(id), resolved))
}

func (s *Specializer) chr(t *tree.Tree, id tree.NodeID) optimize.Rewrite {
	return s.unary(t, id, tree.KindBuiltinChr)
}

func (s *Specializer) ord(t *tree.Tree, id tree.NodeID) optimize.Rewrite {
	return s.unary(t, id, tree.KindBuiltinOrd)
}

func (s *Specializer) lenCall(t *tree.Tree, id tree.NodeID) optimize.Rewrite {
	return s.unary(t, id, tree.KindBuiltinLen)
}

func (s *Specializer) unary(t *tree.Tree, id tree.NodeID, kind tree.Kind) optimize.Rewrite {
	args := t.CallPositional(id)
	if len(args) != 1 {
		return optimize.NoRewrite()
	}
	return optimize.ReplaceWith(t.NewBuiltin(kind, t.Pos(id), args[0]))
}

func (s *Specializer) typeCall(t *tree.Tree, id tree.NodeID) optimize.Rewrite {
	args := t.CallPositional(id)

	switch len(args) {
	case 1:
		return optimize.ReplaceWith(t.NewBuiltin(tree.KindBuiltinType1, t.Pos(id), args[0]))
	case 3:
		return optimize.ReplaceWith(t.NewBuiltin(tree.KindBuiltinType3, t.Pos(id), args[0], args[1], args[2]))
	default:
		return optimize.NoRewrite()
	}
}

// rangeCall keeps absent high and step arguments absent; range(n) and
// range(0, n) are different shapes for precomputation.
func (s *Specializer) rangeCall(t *tree.Tree, id tree.NodeID) optimize.Rewrite {
	args := t.CallPositional(id)
	if len(args) < 1 || len(args) > 3 {
		return optimize.NoRewrite()
	}

	low, high, step := splitScopeArgs(args)
	return optimize.ReplaceWith(t.NewBuiltin(tree.KindBuiltinRange, t.Pos(id), low, high, step))
}
