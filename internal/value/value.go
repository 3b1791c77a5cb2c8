// Package value defines the literal constants a tree may hold.
//
// The set of kinds is closed: None, Bool, Int, Float, Str, Tuple and List.
// Values are immutable once placed in a constant node; containers are never
// modified after construction.
package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies the literal kind of a value
type Kind int

const (
	KindNone Kind = iota
	KindBool
	KindInt
	KindFloat
	KindStr
	KindTuple
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindStr:
		return "str"
	case KindTuple:
		return "tuple"
	case KindList:
		return "list"
	default:
		return "unknown"
	}
}

// Value is a literal constant
type Value interface {
	Kind() Kind
	// String returns the source-language representation of the value
	String() string
}

type (
	None  struct{}
	Bool  bool
	Int   int64
	Float float64
	Str   string
	Tuple []Value
	List  []Value
)

func (None) Kind() Kind  { return KindNone }
func (Bool) Kind() Kind  { return KindBool }
func (Int) Kind() Kind   { return KindInt }
func (Float) Kind() Kind { return KindFloat }
func (Str) Kind() Kind   { return KindStr }
func (Tuple) Kind() Kind { return KindTuple }
func (List) Kind() Kind  { return KindList }

func (None) String() string { return "None" }

func (b Bool) String() string {
	if b {
		return "True"
	}
	return "False"
}

func (i Int) String() string { return strconv.FormatInt(int64(i), 10) }

func (f Float) String() string {
	v := float64(f)
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	case math.IsNaN(v):
		return "nan"
	}

	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEn") {
		s += ".0"
	}
	return s
}

func (s Str) String() string { return quote(string(s)) }

func (t Tuple) String() string {
	if len(t) == 1 {
		return "(" + t[0].String() + ",)"
	}
	return "(" + join(t) + ")"
}

func (l List) String() string { return "[" + join(l) + "]" }

func join(items []Value) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = item.String()
	}
	return strings.Join(parts, ", ")
}

// quote renders a byte string the way the source language's repr does
func quote(s string) string {
	delim := byte('\'')
	if strings.IndexByte(s, '\'') >= 0 && strings.IndexByte(s, '"') < 0 {
		delim = '"'
	}

	var b strings.Builder
	b.WriteByte(delim)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == delim || c == '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\r':
			b.WriteString(`\r`)
		case c == '\t':
			b.WriteString(`\t`)
		case c < 0x20 || c >= 0x7f:
			fmt.Fprintf(&b, `\x%02x`, c)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte(delim)
	return b.String()
}

// IsNumber reports whether v is a numeric literal (bool counts as a number)
func IsNumber(v Value) bool {
	switch v.Kind() {
	case KindBool, KindInt, KindFloat:
		return true
	}
	return false
}

// IsIterable reports whether v has a statically known length
func IsIterable(v Value) bool {
	switch v.Kind() {
	case KindStr, KindTuple, KindList:
		return true
	}
	return false
}

// Len returns the element count of an iterable value
func Len(v Value) (int, bool) {
	switch x := v.(type) {
	case Str:
		return len(x), true
	case Tuple:
		return len(x), true
	case List:
		return len(x), true
	}
	return 0, false
}

// TypeName returns the name of the built-in type of v. None has no
// built-in name and reports false.
func TypeName(v Value) (string, bool) {
	switch v.Kind() {
	case KindBool:
		return "bool", true
	case KindInt:
		return "int", true
	case KindFloat:
		return "float", true
	case KindStr:
		return "str", true
	case KindTuple:
		return "tuple", true
	case KindList:
		return "list", true
	}
	return "", false
}

// AsInt converts a numeric value to an integer, truncating floats toward
// zero. Non-numeric values, NaN, infinities and floats outside the int64
// range report false.
func AsInt(v Value) (int64, bool) {
	switch x := v.(type) {
	case Bool:
		if x {
			return 1, true
		}
		return 0, true
	case Int:
		return int64(x), true
	case Float:
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		t := math.Trunc(f)
		if t < math.MinInt64 || t >= math.MaxInt64 {
			return 0, false
		}
		return int64(t), true
	}
	return 0, false
}

// Equal compares two values structurally. Kinds must match exactly, so
// Int(1) and Bool(true) are different constants.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}

	switch x := a.(type) {
	case Tuple:
		return equalItems(x, b.(Tuple))
	case List:
		return equalItems(x, b.(List))
	case Float:
		y := b.(Float)
		return x == y || (math.IsNaN(float64(x)) && math.IsNaN(float64(y)))
	default:
		return a == b
	}
}

func equalItems(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// IntList builds a list of integers
func IntList(items []int64) List {
	l := make(List, len(items))
	for i, v := range items {
		l[i] = Int(v)
	}
	return l
}
