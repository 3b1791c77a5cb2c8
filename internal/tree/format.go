package tree

import (
	"fmt"
	"strings"
)

var builtinNames = map[Kind]string{
	KindBuiltinGlobals: "builtin_globals",
	KindBuiltinLocals:  "builtin_locals",
	KindBuiltinDir:     "builtin_dir",
	KindBuiltinVars:    "builtin_vars",
	KindBuiltinEval:    "builtin_eval",
	KindBuiltinOpen:    "builtin_open",
	KindBuiltinChr:     "builtin_chr",
	KindBuiltinOrd:     "builtin_ord",
	KindBuiltinType1:   "builtin_type1",
	KindBuiltinType3:   "builtin_type3",
	KindBuiltinRange:   "builtin_range",
	KindBuiltinLen:     "builtin_len",
}

// Format renders the module tree as pseudo-source, one statement per line.
// Specialized operations print as builtin_<op>(...).
func Format(m *Module) string {
	var b strings.Builder
	f := formatter{t: m.Tree, b: &b}
	for _, stmt := range m.Tree.Children(m.Tree.Root()) {
		f.statement(stmt, 0)
	}
	return b.String()
}

// FormatNode renders a single expression or statement
func FormatNode(t *Tree, id NodeID) string {
	var b strings.Builder
	f := formatter{t: t, b: &b}
	if t.Kind(id).IsStatement() {
		f.statement(id, 0)
		return strings.TrimSuffix(b.String(), "\n")
	}
	f.expr(id)
	return b.String()
}

type formatter struct {
	t *Tree
	b *strings.Builder
}

func (f *formatter) line(indent int, format string, args ...interface{}) {
	f.b.WriteString(strings.Repeat("    ", indent))
	fmt.Fprintf(f.b, format, args...)
	f.b.WriteByte('\n')
}

func (f *formatter) statement(id NodeID, indent int) {
	t := f.t
	switch t.Kind(id) {
	case KindFunction:
		f.line(indent, "def %s(%s):", t.Name(id), strings.Join(t.Names(id), ", "))
		body := t.Children(id)
		if len(body) == 0 {
			f.line(indent+1, "pass")
		}
		for _, stmt := range body {
			f.statement(stmt, indent+1)
		}
	case KindStatementExpression:
		f.line(indent, "%s", f.exprString(t.Child(id, 0)))
	case KindAssign:
		f.line(indent, "%s = %s", f.exprString(t.Child(id, 0)), f.exprString(t.Child(id, 1)))
	case KindImport:
		f.line(indent, "import %s", strings.Join(t.Names(id), ", "))
	case KindImportFrom:
		module := ""
		if imports := t.Imports(id); len(imports) > 0 {
			module = imports[0].Name
			if imports[0].Package != "" {
				module = imports[0].Package + "." + module
			}
		}
		f.line(indent, "from %s import %s", module, strings.Join(t.Names(id), ", "))
	case KindGlobal:
		f.line(indent, "global %s", strings.Join(t.Names(id), ", "))
	case KindPass:
		f.line(indent, "pass")
	case KindReturn:
		if v := t.Child(id, 0); v != NoNode {
			f.line(indent, "return %s", f.exprString(v))
		} else {
			f.line(indent, "return")
		}
	case KindExec:
		s := "exec " + f.exprString(t.Child(id, 0))
		if g := t.Child(id, 1); g != NoNode {
			s += " in " + f.exprString(g)
			if l := t.Child(id, 2); l != NoNode {
				s += ", " + f.exprString(l)
			}
		}
		f.line(indent, "%s", s)
	default:
		f.line(indent, "%s", f.exprString(id))
	}
}

func (f *formatter) exprString(id NodeID) string {
	var b strings.Builder
	sub := formatter{t: f.t, b: &b}
	sub.expr(id)
	return b.String()
}

func (f *formatter) expr(id NodeID) {
	t := f.t
	if id == NoNode {
		f.b.WriteString("<absent>")
		return
	}

	switch kind := t.Kind(id); kind {
	case KindConstant:
		f.b.WriteString(t.Value(id).String())
	case KindVariableRef:
		f.b.WriteString(t.Name(id))
	case KindAttributeLookup:
		f.expr(t.Child(id, 0))
		f.b.WriteString("." + t.Name(id))
	case KindMakeTuple:
		items := t.Children(id)
		f.b.WriteByte('(')
		f.list(items)
		if len(items) == 1 {
			f.b.WriteByte(',')
		}
		f.b.WriteByte(')')
	case KindMakeList:
		f.b.WriteByte('[')
		f.list(t.Children(id))
		f.b.WriteByte(']')
	case KindCall:
		f.expr(t.CallCalled(id))
		f.b.WriteByte('(')
		var parts []string
		for _, arg := range t.CallPositional(id) {
			parts = append(parts, f.exprString(arg))
		}
		for _, kw := range t.CallKeywords(id) {
			parts = append(parts, kw.Name+"="+f.exprString(kw.Value))
		}
		star, dstar := t.CallStarArgs(id)
		if star != NoNode {
			parts = append(parts, "*"+f.exprString(star))
		}
		if dstar != NoNode {
			parts = append(parts, "**"+f.exprString(dstar))
		}
		f.b.WriteString(strings.Join(parts, ", "))
		f.b.WriteByte(')')
	case KindBuiltinImport:
		m := t.Imports(id)[0]
		name := m.Name
		if m.Package != "" {
			name = m.Package + "." + name
		}
		fmt.Fprintf(f.b, "builtin_import(%q)", name)
	default:
		if name, ok := builtinNames[kind]; ok {
			f.b.WriteString(name + "(")
			var present []NodeID
			for _, c := range t.Children(id) {
				if c != NoNode {
					present = append(present, c)
				}
			}
			f.list(present)
			f.b.WriteByte(')')
			return
		}
		fmt.Fprintf(f.b, "<%s>", kind)
	}
}

func (f *formatter) list(items []NodeID) {
	for i, item := range items {
		if i > 0 {
			f.b.WriteString(", ")
		}
		f.expr(item)
	}
}
