// Package precompute folds specialized builtin operations into literal
// constants when their operands are statically known.
//
// Every rule declines silently when an operand is not a suitable literal,
// when the operation would raise at run time, or when the result would be
// too large; the node then stays for the runtime to evaluate, errors
// included. Only a rule contradicting itself is reported, as a defect.
package precompute

import (
	"fmt"
	"math/big"
	"unicode/utf8"

	"github.com/orizon-lang/treeopt/internal/builtins"
	"github.com/orizon-lang/treeopt/internal/dialect"
	"github.com/orizon-lang/treeopt/internal/errors"
	"github.com/orizon-lang/treeopt/internal/optimize"
	"github.com/orizon-lang/treeopt/internal/tree"
	"github.com/orizon-lang/treeopt/internal/value"
)

// PassName is the name the precomputation pass reports
const PassName = "PrecomputeBuiltins"

// MaxRangeLength bounds the length of range() results folded into
// constants
const MaxRangeLength = 256

// Precomputer is the constant precomputation pass
type Precomputer struct {
	*optimize.Visitor[tree.Kind]

	dialect *dialect.Dialect
	names   map[string]bool
}

// New creates the precomputation pass for dialect d
func New(d *dialect.Dialect) *Precomputer {
	p := &Precomputer{dialect: d, names: builtins.Names}

	table := map[tree.Kind]optimize.Handler{
		tree.KindBuiltinChr:   p.chr,
		tree.KindBuiltinOrd:   p.ord,
		tree.KindBuiltinType1: p.type1,
		tree.KindBuiltinLen:   p.length,
		tree.KindBuiltinRange: p.rangeCall,
	}

	p.Visitor = optimize.NewVisitor(PassName, dispatchKey, table)
	return p
}

func dispatchKey(t *tree.Tree, id tree.NodeID) (tree.Kind, bool) {
	kind := t.Kind(id)
	return kind, kind.IsBuiltin()
}

// constantOperand returns the literal in operand slot i, if it is one
func constantOperand(t *tree.Tree, id tree.NodeID, i int) (value.Value, bool) {
	operand := t.Child(id, i)
	if !t.IsConstant(operand) {
		return nil, false
	}
	return t.Value(operand), true
}

func (p *Precomputer) chr(t *tree.Tree, id tree.NodeID) optimize.Rewrite {
	v, ok := constantOperand(t, id, 0)
	if !ok {
		return optimize.NoRewrite()
	}

	var code int64
	switch x := v.(type) {
	case value.Int:
		code = int64(x)
	case value.Bool:
		code, _ = value.AsInt(x)
	default:
		// chr() of a non-integer raises TypeError at run time.
		return optimize.NoRewrite()
	}

	s, ok := p.dialect.Chr(code)
	if !ok {
		return optimize.NoRewrite()
	}
	return optimize.ReplaceWith(t.NewConstant(t.Pos(id), value.Str(s)))
}

func (p *Precomputer) ord(t *tree.Tree, id tree.NodeID) optimize.Rewrite {
	v, ok := constantOperand(t, id, 0)
	if !ok {
		return optimize.NoRewrite()
	}

	s, ok := v.(value.Str)
	if !ok {
		return optimize.NoRewrite()
	}

	var code int64
	if p.dialect.MaxChr() == 0xFF {
		if len(s) != 1 {
			return optimize.NoRewrite()
		}
		code = int64(s[0])
	} else {
		r, size := utf8.DecodeRuneInString(string(s))
		if r == utf8.RuneError || size != len(s) {
			return optimize.NoRewrite()
		}
		code = int64(r)
	}
	return optimize.ReplaceWith(t.NewConstant(t.Pos(id), value.Int(code)))
}

// type1 replaces type(<literal>) with a reference to the builtin type name,
// bound to the module variable of that name
func (p *Precomputer) type1(t *tree.Tree, id tree.NodeID) optimize.Rewrite {
	v, ok := constantOperand(t, id, 0)
	if !ok {
		return optimize.NoRewrite()
	}

	name, ok := value.TypeName(v)
	if !ok {
		return optimize.NoRewrite()
	}
	if !p.names[name] {
		errors.Defect("UNKNOWN_TYPE_NAME", fmt.Sprintf("type name %q is not a builtin", name),
			map[string]interface{}{"at": t.Pos(id).String()})
	}

	variable := t.Module().VariableForReference(name)
	if variable.IsAssigned() {
		// The module rebinds the type name, a reference would not reach the builtin.
		return optimize.NoRewrite()
	}
	return optimize.ReplaceWith(t.NewVariableRef(t.Pos(id), name, variable))
}

func (p *Precomputer) length(t *tree.Tree, id tree.NodeID) optimize.Rewrite {
	v, ok := constantOperand(t, id, 0)
	if !ok || !value.IsIterable(v) {
		return optimize.NoRewrite()
	}

	n, _ := value.Len(v)
	if s, isStr := v.(value.Str); isStr && p.dialect.MaxChr() != 0xFF {
		if !utf8.ValidString(string(s)) {
			return optimize.NoRewrite()
		}
		n = utf8.RuneCountInString(string(s))
	}
	return optimize.ReplaceWith(t.NewConstant(t.Pos(id), value.Int(n)))
}

// rangeOperand returns the integer value of a numeric literal operand.
// Floats are truncated toward zero.
func rangeOperand(t *tree.Tree, id tree.NodeID, i int) (int64, bool) {
	v, ok := constantOperand(t, id, i)
	if !ok || !value.IsNumber(v) {
		return 0, false
	}
	return value.AsInt(v)
}

// floatSpanExceeds reports whether stop - start, taken before the operands
// are truncated, is above the ceiling. Only float operands can differ.
func floatSpanExceeds(t *tree.Tree, id tree.NodeID) bool {
	low, _ := constantOperand(t, id, 0)
	high, _ := constantOperand(t, id, 1)
	_, lowFloat := low.(value.Float)
	_, highFloat := high.(value.Float)
	if !lowFloat && !highFloat {
		return false
	}
	return asFloat(high)-asFloat(low) > MaxRangeLength
}

func asFloat(v value.Value) float64 {
	if f, ok := v.(value.Float); ok {
		return float64(f)
	}
	n, _ := value.AsInt(v)
	return float64(n)
}

func (p *Precomputer) rangeCall(t *tree.Tree, id tree.NodeID) optimize.Rewrite {
	if !p.dialect.RangeIsList() {
		return optimize.NoRewrite()
	}

	high, step := t.Child(id, 1), t.Child(id, 2)
	var items []int64

	switch {
	case high == tree.NoNode && step == tree.NoNode:
		n, ok := rangeOperand(t, id, 0)
		// Negative lengths produce the empty list, so only the upper end is checked.
		if !ok || n > MaxRangeLength {
			return optimize.NoRewrite()
		}
		items = materialize(0, n, 1, MaxRangeLength)

	case step == tree.NoNode:
		low, ok1 := rangeOperand(t, id, 0)
		high, ok2 := rangeOperand(t, id, 1)
		if !ok1 || !ok2 {
			return optimize.NoRewrite()
		}
		distance := new(big.Int).Sub(big.NewInt(high), big.NewInt(low))
		if distance.Cmp(big.NewInt(MaxRangeLength)) > 0 || floatSpanExceeds(t, id) {
			return optimize.NoRewrite()
		}
		items = materialize(low, high, 1, MaxRangeLength)

	default:
		low, ok1 := rangeOperand(t, id, 0)
		high, ok2 := rangeOperand(t, id, 1)
		step, ok3 := rangeOperand(t, id, 2)
		if !ok1 || !ok2 || !ok3 {
			return optimize.NoRewrite()
		}
		if step == 0 {
			// range() raises ValueError for a zero step; leave it to the runtime.
			return optimize.NoRewrite()
		}

		count := RangeLength(low, high, step)
		items = materialize(low, high, step, MaxRangeLength+1)
		checkRangeLength(t, id, count, len(items))

		if count.Cmp(big.NewInt(MaxRangeLength)) > 0 {
			return optimize.NoRewrite()
		}
	}

	return optimize.ReplaceWith(t.NewConstant(t.Pos(id), value.IntList(items)))
}

// RangeLength computes the number of elements of range(low, high, step)
// for a non-zero step: the ceiling of the signed distance divided by step,
// or zero when the step points away from high.
func RangeLength(low, high, step int64) *big.Int {
	distance := new(big.Int).Sub(big.NewInt(high), big.NewInt(low))
	s := big.NewInt(step)

	if distance.Sign() == 0 || distance.Sign() != s.Sign() {
		return new(big.Int)
	}

	distance.Abs(distance)
	s.Abs(s)
	count := distance.Add(distance, s)
	count.Sub(count, big.NewInt(1))
	return count.Quo(count, s)
}

// checkRangeLength compares the computed length with a materialization
// capped at MaxRangeLength+1 elements
func checkRangeLength(t *tree.Tree, id tree.NodeID, count *big.Int, materialized int) {
	capped := count
	if limit := big.NewInt(MaxRangeLength + 1); count.Cmp(limit) > 0 {
		capped = limit
	}
	if capped.Cmp(big.NewInt(int64(materialized))) != 0 {
		errors.Defect("RANGE_LENGTH_MISMATCH",
			fmt.Sprintf("computed range length %s, materialized %d", count, materialized),
			map[string]interface{}{"at": t.Pos(id).String()})
	}
}

// materialize lists range(low, high, step), stopping after limit elements
func materialize(low, high, step int64, limit int) []int64 {
	items := make([]int64, 0)
	for v := low; len(items) < limit; v += step {
		if step > 0 && v >= high || step < 0 && v <= high {
			break
		}
		items = append(items, v)

		// The next element would leave the int64 range, and so the range.
		if step > 0 && v > maxInt64-step || step < 0 && v < minInt64-step {
			break
		}
	}
	return items
}

const (
	maxInt64 = 1<<63 - 1
	minInt64 = -1 << 63
)
