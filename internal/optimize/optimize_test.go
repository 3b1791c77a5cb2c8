package optimize

import (
	"bytes"
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/orizon-lang/treeopt/internal/cli"
	"github.com/orizon-lang/treeopt/internal/errors"
	"github.com/orizon-lang/treeopt/internal/position"
	"github.com/orizon-lang/treeopt/internal/tree"
	"github.com/orizon-lang/treeopt/internal/value"
)

func init() {
	VerifyTrees = true
}

var here = position.Position{Filename: "main.py", Line: 1, Column: 1}

// intModule builds a module with one expression statement per literal
func intModule(name string, ints ...int64) *tree.Module {
	m := tree.NewModule(name, "", "/src/"+name+".py")
	for _, i := range ints {
		stmt := m.Tree.NewStatementExpression(here, m.Tree.NewConstant(here, value.Int(i)))
		m.Tree.AppendChild(m.Root(), stmt)
		m.Tree.Link(stmt)
	}
	return m
}

func constantKey(t *tree.Tree, id tree.NodeID) (value.Kind, bool) {
	if !t.IsConstant(id) {
		return 0, false
	}
	return t.Value(id).Kind(), true
}

// halving replaces every even integer constant by its half
func halving(t *tree.Tree, id tree.NodeID) Rewrite {
	i := t.Value(id).(value.Int)
	if i == 0 || i%2 != 0 {
		return NoRewrite()
	}
	return ReplaceWith(t.NewConstant(t.Pos(id), i/2))
}

func newHalvingVisitor() *Visitor[value.Kind] {
	return NewVisitor("Halve", constantKey, map[value.Kind]Handler{value.KindInt: halving})
}

func TestSignals(t *testing.T) {
	var s Signals
	if s.Changed() || s.String() != "none" {
		t.Errorf("zero Signals = %s", s)
	}

	s.Add(SignalNewConstant)
	var other Signals
	other.Add(SignalNewCode)
	s.Merge(other)

	if !s.Has(SignalNewConstant) || !s.Has(SignalNewCode) || s.Has(SignalNewBuiltin) {
		t.Errorf("Has() mismatch for %s", s)
	}
	if got := s.String(); got != "new_constant,new_code" {
		t.Errorf("String() = %s", got)
	}
}

func TestRewriteVerdicts(t *testing.T) {
	if _, ok := NoRewrite().Replacement(); ok {
		t.Error("NoRewrite reported a replacement")
	}
	if id, ok := ReplaceWith(3).Replacement(); !ok || id != 3 {
		t.Errorf("ReplaceWith(3).Replacement() = %d, %v", id, ok)
	}
}

func TestVisitorApply(t *testing.T) {
	m := intModule("main", 8, 3, 0)
	v := newHalvingVisitor()

	if !v.Handles(value.KindInt) || v.Handles(value.KindStr) {
		t.Error("Handles() does not reflect the table")
	}

	signals, err := v.Apply(m)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if !signals.Has(SignalNewConstant) {
		t.Errorf("signals = %s, want new_constant", signals)
	}
	// Replacements are not revisited within one application.
	if got := tree.Format(m); got != "4\n3\n0\n" {
		t.Errorf("after one application:\n%s", got)
	}

	stats := v.Stats()
	if stats.NodesTransformed != 1 || stats.ConstantsFolded != 1 {
		t.Errorf("stats = %s", stats)
	}
}

func TestVisitorDefect(t *testing.T) {
	m := intModule("main", 1)
	v := NewVisitor("Broken", constantKey, map[value.Kind]Handler{
		value.KindInt: func(t *tree.Tree, id tree.NodeID) Rewrite {
			errors.Defect("BROKEN_RULE", "rule contradicts itself", nil)
			return NoRewrite()
		},
	})

	_, err := v.Apply(m)
	if !errors.Is(err, errors.CategoryInternal, "BROKEN_RULE") {
		t.Errorf("Apply() = %v, want BROKEN_RULE defect", err)
	}
}

func TestVisitorForeignPanicPropagates(t *testing.T) {
	m := intModule("main", 1)
	v := NewVisitor("Crash", constantKey, map[value.Kind]Handler{
		value.KindInt: func(t *tree.Tree, id tree.NodeID) Rewrite { panic("boom") },
	})

	defer func() {
		if r := recover(); r != "boom" {
			t.Errorf("recovered %v, want boom", r)
		}
	}()
	v.Apply(m)
	t.Error("Apply() returned after a foreign panic")
}

type moduleList []*tree.Module

func (l *moduleList) Modules() []*tree.Module { return *l }

// discoverer adds one module to the set the first time it sees entry
type discoverer struct {
	set   *moduleList
	added bool
	seen  []string
}

func (d *discoverer) Name() string { return "Discover" }

func (d *discoverer) Apply(m *tree.Module) (Signals, error) {
	d.seen = append(d.seen, m.Name)
	var s Signals
	if !d.added {
		d.added = true
		*d.set = append(*d.set, intModule("found", 2))
		s.Add(SignalNewCode)
	}
	return s, nil
}

func TestPipelineFixedPoint(t *testing.T) {
	var logs bytes.Buffer
	set := &moduleList{}
	disc := &discoverer{set: set}

	p := NewPipeline(10, cli.NewLoggerTo(&logs, true, false))
	p.AddPass(newHalvingVisitor())
	p.AddPass(disc)

	entry := intModule("main", 16)
	result, err := p.Optimize(context.Background(), entry, set)
	if err != nil {
		t.Fatalf("Optimize() error = %v", err)
	}

	// 16 -> 8 -> 4 -> 2 -> 1, then a quiet round.
	if result.Rounds != 5 {
		t.Errorf("Rounds = %d, want 5", result.Rounds)
	}
	if result.Modules != 2 {
		t.Errorf("Modules = %d, want 2", result.Modules)
	}
	if got := tree.Format(entry); got != "1\n" {
		t.Errorf("entry = %q", got)
	}
	if got := tree.Format((*set)[0]); got != "1\n" {
		t.Errorf("discovered module = %q", got)
	}
	// The module found in round one is processed in round one.
	if got := strings.Join(disc.seen[:2], " "); got != "main found" {
		t.Errorf("first round order = %s", got)
	}
	if len(result.Passes) != 2 || result.Passes[0].PassName != "Halve" || result.Passes[1].Applications != 10 {
		t.Errorf("pass stats = %+v", result.Passes)
	}
	if !strings.Contains(logs.String(), "fixed point reached after 5 rounds") {
		t.Errorf("missing fixed point log line in %q", logs.String())
	}
}

func TestPipelineMaxRounds(t *testing.T) {
	p := NewPipeline(2, nil)
	p.AddPass(newHalvingVisitor())

	result, err := p.Optimize(context.Background(), intModule("main", 64), nil)
	if !stderrors.Is(err, ErrNoFixedPoint) {
		t.Fatalf("Optimize() error = %v, want ErrNoFixedPoint", err)
	}
	if result.Rounds != 2 {
		t.Errorf("Rounds = %d, want 2", result.Rounds)
	}
}

func TestPipelineCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPipeline(0, nil)
	p.AddPass(newHalvingVisitor())
	if _, err := p.Optimize(ctx, intModule("main", 2), nil); !stderrors.Is(err, context.Canceled) {
		t.Errorf("Optimize() error = %v, want context.Canceled", err)
	}
}

func TestPipelinePassError(t *testing.T) {
	p := NewPipeline(0, nil)
	p.AddPass(NewVisitor("Broken", constantKey, map[value.Kind]Handler{
		value.KindInt: func(t *tree.Tree, id tree.NodeID) Rewrite {
			errors.Defect("BROKEN_RULE", "rule contradicts itself", nil)
			return NoRewrite()
		},
	}))

	_, err := p.Optimize(context.Background(), intModule("main", 1), nil)
	if !errors.IsDefect(err) || !strings.Contains(err.Error(), "Broken failed on main") {
		t.Errorf("Optimize() error = %v", err)
	}
}
