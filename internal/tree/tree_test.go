package tree

import (
	"strings"
	"testing"

	"github.com/orizon-lang/treeopt/internal/errors"
	"github.com/orizon-lang/treeopt/internal/position"
	"github.com/orizon-lang/treeopt/internal/value"
)

func testPos(line int) position.Position {
	return position.Position{Filename: "test.py", Line: line, Column: 1}
}

// appendStatement adds stmt to the module body and links its subtree
func appendStatement(m *Module, stmt NodeID) {
	m.Tree.AppendChild(m.Root(), stmt)
	m.Tree.Link(stmt)
}

func newCallStatement(m *Module, line int, name string, args ...NodeID) (stmt, call NodeID) {
	t := m.Tree
	callee := t.NewVariableRef(testPos(line), name, m.VariableForReference(name))
	call = t.NewCall(testPos(line), callee, args, nil, NoNode, NoNode)
	stmt = t.NewStatementExpression(testPos(line), call)
	appendStatement(m, stmt)
	return stmt, call
}

func TestReplaceExpression(t *testing.T) {
	m := NewModule("main", "", "/src/main.py")
	tr := m.Tree

	arg := tr.NewConstant(testPos(1), value.Int(5))
	stmt, call := newCallStatement(m, 1, "range", arg)

	repl := tr.NewBuiltin(KindBuiltinRange, tr.Pos(call), arg, NoNode, NoNode)
	if err := tr.Replace(call, repl); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	if got := tr.Child(stmt, 0); got != repl {
		t.Errorf("statement child = %d, want %d", got, repl)
	}
	if tr.Parent(repl) != stmt || tr.Parent(arg) != repl {
		t.Error("parent links not re-derived for the replacement subtree")
	}
	if tr.Alive(call) {
		t.Error("replaced node should be dead")
	}
	if tr.Pos(repl) != testPos(1) {
		t.Errorf("position lost: %v", tr.Pos(repl))
	}
	if err := tr.Verify(); err != nil {
		t.Errorf("Verify() = %v", err)
	}
	if got := FormatNode(tr, stmt); got != "builtin_range(5)" {
		t.Errorf("FormatNode() = %q", got)
	}
}

func TestReplaceCollapsesExpressionStatement(t *testing.T) {
	m := NewModule("main", "", "/src/main.py")
	tr := m.Tree

	file := tr.NewConstant(testPos(2), value.Str("other.py"))
	stmt, call := newCallStatement(m, 2, "execfile", file)

	exec := tr.NewExec(testPos(2), file, NoNode, NoNode)
	if err := tr.Replace(call, exec); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	body := tr.Children(m.Root())
	if len(body) != 1 || body[0] != exec {
		t.Fatalf("module body = %v, want [%d]", body, exec)
	}
	if tr.Alive(stmt) {
		t.Error("expression statement wrapper should be dead")
	}
	if tr.Parent(exec) != m.Root() {
		t.Error("exec statement should hang directly off the module")
	}
	tr.Walk(func(id NodeID) {
		if tr.Kind(id) == KindStatementExpression {
			t.Errorf("residual expression statement %d", id)
		}
	})
	if err := tr.Verify(); err != nil {
		t.Errorf("Verify() = %v", err)
	}
}

func TestReplaceDetachedIsDefect(t *testing.T) {
	m := NewModule("main", "", "/src/main.py")
	tr := m.Tree

	err := tr.Replace(m.Root(), tr.NewPass(testPos(1)))
	if !errors.IsDefect(err) {
		t.Fatalf("Replace(root) = %v, want an internal defect", err)
	}

	orphan := tr.NewConstant(testPos(1), value.None{})
	if err := tr.Replace(orphan, tr.NewPass(testPos(1))); !errors.IsDefect(err) {
		t.Errorf("Replace(orphan) = %v, want an internal defect", err)
	}
}

func TestWalkOrderAndDeadNodes(t *testing.T) {
	m := NewModule("main", "", "/src/main.py")
	tr := m.Tree

	a := tr.NewConstant(testPos(1), value.Int(1))
	b := tr.NewConstant(testPos(1), value.Int(2))
	_, call := newCallStatement(m, 1, "f", a, b)

	var kinds []string
	tr.Walk(func(id NodeID) {
		kinds = append(kinds, tr.Kind(id).String())
		if id == a {
			folded := tr.NewConstant(tr.Pos(a), value.Int(10))
			if err := tr.Replace(a, folded); err != nil {
				t.Fatal(err)
			}
		}
	})

	want := "VariableRef Constant Constant Call StatementExpression Module"
	if got := strings.Join(kinds, " "); got != want {
		t.Errorf("walk order = %s, want %s", got, want)
	}
	if got := FormatNode(tr, call); got != "f(10, 2)" {
		t.Errorf("after walk: %s", got)
	}
}

func TestCallAccessors(t *testing.T) {
	m := NewModule("main", "", "/src/main.py")
	tr := m.Tree

	p := tr.NewConstant(testPos(1), value.Int(1))
	kw := tr.NewConstant(testPos(1), value.Str("v"))
	star := tr.NewVariableRef(testPos(1), "args", nil)
	dstar := tr.NewVariableRef(testPos(1), "kwargs", nil)
	callee := tr.NewVariableRef(testPos(1), "f", nil)
	call := tr.NewCall(testPos(1), callee, []NodeID{p}, []Keyword{{Name: "k", Value: kw}}, star, dstar)

	if pos := tr.CallPositional(call); len(pos) != 1 || pos[0] != p {
		t.Errorf("CallPositional() = %v", pos)
	}
	if kws := tr.CallKeywords(call); len(kws) != 1 || kws[0].Name != "k" || kws[0].Value != kw {
		t.Errorf("CallKeywords() = %v", kws)
	}
	if s, d := tr.CallStarArgs(call); s != star || d != dstar {
		t.Errorf("CallStarArgs() = %d, %d", s, d)
	}
	if tr.HasOnlyPositionalArguments(call) {
		t.Error("call with keywords reported as positional-only")
	}
	if got := FormatNode(tr, call); got != "f(1, k='v', *args, **kwargs)" {
		t.Errorf("FormatNode() = %q", got)
	}

	empty := tr.NewCall(testPos(2), callee, nil, nil, NoNode, NoNode)
	if !tr.IsEmptyCall(empty) || !tr.HasOnlyPositionalArguments(empty) {
		t.Error("empty call misclassified")
	}
}

func TestEnclosingScope(t *testing.T) {
	m := NewModule("main", "", "/src/main.py")
	tr := m.Tree

	fn := tr.NewFunction(testPos(1), "f", nil)
	callee := tr.NewVariableRef(testPos(2), "locals", nil)
	call := tr.NewCall(testPos(2), callee, nil, nil, NoNode, NoNode)
	ret := tr.NewReturn(testPos(2), call)
	tr.AppendChild(fn, ret)
	appendStatement(m, fn)

	if got := tr.EnclosingScope(call); got != fn {
		t.Errorf("EnclosingScope() = %d, want function %d", got, fn)
	}
	if got := tr.EnclosingScope(fn); got != m.Root() {
		t.Errorf("EnclosingScope(function) = %d, want module", got)
	}
}

func TestModuleVariables(t *testing.T) {
	m := NewModule("util", "pkg", "/src/pkg/util.py")

	if m.FullName() != "pkg.util" {
		t.Errorf("FullName() = %s", m.FullName())
	}

	v := m.VariableForReference("range")
	if !v.IsModuleVariable() || v.IsAssigned() {
		t.Error("fresh module variable should be module level and unassigned")
	}
	if m.VariableForReference("range") != v {
		t.Error("VariableForReference must return the same binding")
	}
	v.MarkAssigned()
	if got, ok := m.LookupVariable("range"); !ok || !got.IsAssigned() {
		t.Error("assignment not recorded")
	}

	if l := NewLocalVariable("x", m.Root()); l.IsModuleVariable() {
		t.Error("local variable reported as module variable")
	}
}
