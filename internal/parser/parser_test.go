package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/orizon-lang/treeopt/internal/errors"
	"github.com/orizon-lang/treeopt/internal/tree"
	"github.com/orizon-lang/treeopt/internal/value"
)

type mapFinder map[string]tree.ImportedModule

func (f mapFinder) FindModule(name, parentPackage string) (tree.ImportedModule, error) {
	if parentPackage != "" {
		if m, ok := f[parentPackage+"."+name]; ok {
			return m, nil
		}
	}
	if m, ok := f[name]; ok {
		return m, nil
	}
	return tree.ImportedModule{}, errors.ModuleNotFound(name, parentPackage)
}

func parse(t *testing.T, src string) *tree.Module {
	t.Helper()
	m, err := ParseModule("/src/main.py", "", src, nil)
	if err != nil {
		t.Fatalf("ParseModule() error = %v", err)
	}
	if err := m.Tree.Verify(); err != nil {
		t.Fatalf("Verify() = %v", err)
	}
	return m
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"expression", "f(1, 'a', None, True)", "f(1, 'a', None, True)"},
		{"assignment", "x = chr(ord('a'))", "x = chr(ord('a'))"},
		{"negative literals", "y = range(10, -2, -3)", "y = range(10, -2, -3)"},
		{"constant tuple", "t = 1, 2.5, 'x'", "t = (1, 2.5, 'x')"},
		{"tuple display", "t = (a, 1)", "t = (a, 1)"},
		{"empty tuple", "t = ()", "t = ()"},
		{"one tuple", "t = (1,)", "t = (1,)"},
		{"list", "l = [1, a,]", "l = [1, a]"},
		{"attributes", "os.path.join(a, b)", "os.path.join(a, b)"},
		{"keywords and stars", "f(1, k=2, *a, **kw)", "f(1, k=2, *a, **kw)"},
		{"string concatenation", `s = 'a' "b"`, "s = 'ab'"},
		{"semicolons", "pass; pass;", "pass\npass"},
		{"global", "global a, b", "global a, b"},
		{"exec", "exec code in g, l", "exec code in g, l"},
		{"exec plain", "exec 'x = 1'", "exec 'x = 1'"},
		{"import", "import os, a.b as c", "import os, a.b as c"},
		{"from import", "from os import path as p, sep", "from os import path as p, sep"},
		{"from import parenthesized", "from os import (path,\n  sep,)", "from os import path, sep"},
		{"star import", "from os import *", "from os import *"},
		{"function", "def f(a, b):\n    return a\n", "def f(a, b):\n    return a"},
		{"one line function", "def f(): pass", "def f():\n    pass"},
		{"nested function", "def f():\n  def g(x):\n    return\n  return g\n", "def f():\n    def g(x):\n        return\n    return g"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := parse(t, tt.src)
			if got := strings.TrimSuffix(tree.Format(m), "\n"); got != tt.want {
				t.Errorf("Format() =\n%s\nwant:\n%s", got, tt.want)
			}
		})
	}
}

func TestParseSyntaxErrors(t *testing.T) {
	tests := []struct {
		src     string
		line    int
		message string
	}{
		{"x = ", 1, "unexpected NEWLINE"},
		{"if x:\n    pass", 1, `unsupported statement "if"`},
		{"x = a + 1", 1, "unexpected character '+'"},
		{"return 1", 1, "'return' outside function"},
		{"def f():\nreturn", 2, "expected an indented block"},
		{"  x = 1", 1, "unexpected indent"},
		{"1 = x", 1, "can't assign to literal"},
		{"f(a=1, 2)", 1, "non-keyword arg after keyword arg"},
		{"f(a=1, a=2)", 1, `keyword argument "a" repeated`},
		{"def f(a, a): pass", 1, `duplicate argument "a"`},
		{"a = b = 1", 1, "chained assignment"},
		{"x = -f()", 1, "unary minus"},
		{"x[1]", 1, "subscripts are not supported"},
		{"from . import x", 1, "relative import beyond top-level package"},
		{"x = 'abc", 1, "unterminated string literal"},
		{"x = 99999999999999999999", 1, "invalid integer literal"},
		{"f(1\nx = 2", 2, "expected RPAREN"},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := ParseModule("/src/main.py", "", tt.src, nil)
			if !errors.Is(err, errors.CategorySyntax, "INVALID_SYNTAX") {
				t.Fatalf("ParseModule() error = %v, want a syntax error", err)
			}
			if !strings.Contains(err.Error(), tt.message) {
				t.Errorf("error %q does not mention %q", err, tt.message)
			}
			se := err.(*errors.StandardError)
			if se.Context["line"] != tt.line {
				t.Errorf("line = %v, want %d", se.Context["line"], tt.line)
			}
		})
	}
}

func TestVariableResolution(t *testing.T) {
	src := `
import os
x = range(3)
def f(a):
    global g
    g = a
    y = len(a)
    return y, x, chr
def h():
    chr = 1
    def inner():
        return chr
`
	m := parse(t, src)

	assigned := map[string]bool{}
	for _, v := range m.Variables() {
		assigned[v.Name] = v.IsAssigned()
	}
	for name, want := range map[string]bool{"os": true, "x": true, "f": true, "h": true, "g": true, "range": false, "len": false, "chr": false} {
		if got, ok := assigned[name]; !ok || got != want {
			t.Errorf("module variable %s: assigned = %v (present %v), want %v", name, got, ok, want)
		}
	}
	if _, ok := assigned["a"]; ok {
		t.Error("parameter leaked into module scope")
	}
	if _, ok := assigned["y"]; ok {
		t.Error("function local leaked into module scope")
	}

	tr := m.Tree
	refs := map[string][]*tree.Variable{}
	tr.Walk(func(id tree.NodeID) {
		if tr.Kind(id) == tree.KindVariableRef {
			if tr.Variable(id) == nil {
				t.Errorf("unbound reference %s at %s", tr.Name(id), tr.Pos(id))
			}
			refs[tr.Name(id)] = append(refs[tr.Name(id)], tr.Variable(id))
		}
	})

	for _, v := range refs["a"] {
		if v.IsModuleVariable() {
			t.Error("parameter reference bound to the module")
		}
	}
	for _, v := range refs["g"] {
		if !v.IsModuleVariable() {
			t.Error("global declaration ignored")
		}
	}
	// chr is module level inside f, local to h inside h and inner.
	var moduleChr, localChr int
	for _, v := range refs["chr"] {
		if v.IsModuleVariable() {
			moduleChr++
		} else {
			localChr++
		}
	}
	if moduleChr != 1 || localChr != 2 {
		t.Errorf("chr bindings: module %d, local %d; want 1 and 2", moduleChr, localChr)
	}
	if refs["chr"][1] != refs["chr"][2] {
		t.Error("closure reference does not share the enclosing binding")
	}
}

func TestStarImportShadowsBuiltins(t *testing.T) {
	m := parse(t, "from os import *\nrange(3)")
	v, ok := m.LookupVariable("range")
	if !ok || !v.IsAssigned() {
		t.Error("star import must count as binding every builtin name")
	}
}

func TestImportResolution(t *testing.T) {
	finder := mapFinder{
		"os":       {Name: "os", Filename: "/lib/os.py"},
		"pkg":      {Name: "pkg", Filename: "/src/pkg/__init__.py"},
		"pkg.util": {Name: "util", Package: "pkg", Filename: "/src/pkg/util.py"},
		"pkg.sub":  {Name: "sub", Package: "pkg", Filename: "/src/pkg/sub/__init__.py"},
	}

	src := "import os, missing.mod\nfrom pkg import util, VALUE\nfrom . import sub\n"
	m, err := ParseModule("/src/pkg/main.py", "pkg", src, finder)
	if err != nil {
		t.Fatal(err)
	}

	body := m.Tree.Children(m.Root())
	imports := m.Tree.Imports(body[0])
	if len(imports) != 2 || imports[0].Filename != "/lib/os.py" {
		t.Errorf("import os: %+v", imports)
	}
	if imports[1] != (tree.ImportedModule{Name: "mod", Package: "missing"}) {
		t.Errorf("unresolved import = %+v", imports[1])
	}

	from := m.Tree.Imports(body[1])
	if len(from) != 2 || from[0].Filename != "/src/pkg/__init__.py" || from[1].Filename != "/src/pkg/util.py" {
		t.Errorf("from pkg import: %+v", from)
	}

	relative := m.Tree.Imports(body[2])
	if len(relative) != 2 || relative[1].Filename != "/src/pkg/sub/__init__.py" {
		t.Errorf("from . import sub: %+v", relative)
	}
}

func TestPackageInitImportContext(t *testing.T) {
	finder := mapFinder{
		"pkg.util": {Name: "util", Package: "pkg", Filename: "/src/pkg/util.py"},
	}
	m, err := ParseModule("/src/pkg/__init__.py", "", "import util\n", finder)
	if err != nil {
		t.Fatal(err)
	}
	if m.Name != "pkg" {
		t.Errorf("module name = %s, want pkg", m.Name)
	}
	imports := m.Tree.Imports(m.Tree.Children(m.Root())[0])
	if imports[0].Filename != "/src/pkg/util.py" {
		t.Errorf("package initializer import = %+v", imports[0])
	}
}

func TestPositions(t *testing.T) {
	m := parse(t, "\n\nx = chr(65)\n")
	tr := m.Tree
	assign := tr.Children(m.Root())[0]
	call := tr.Child(assign, 1)

	if pos := tr.Pos(call); pos.Line != 3 || pos.Column != 5 || pos.Filename != "/src/main.py" {
		t.Errorf("call position = %+v", pos)
	}
	arg := tr.CallPositional(call)[0]
	if !value.Equal(tr.Value(arg), value.Int(65)) || tr.Pos(arg).Column != 9 {
		t.Errorf("argument = %s at %s", tr.Value(arg), tr.Pos(arg))
	}
}

func TestBuildModule(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "prog.py")
	if err := os.WriteFile(file, []byte("x = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := NewBuilder(nil).BuildModule(file, "")
	if err != nil {
		t.Fatalf("BuildModule() error = %v", err)
	}
	if m.Name != "prog" || m.Filename != file {
		t.Errorf("module = %s from %s", m.Name, m.Filename)
	}

	if _, err := NewBuilder(nil).BuildModule(filepath.Join(dir, "missing.py"), ""); err == nil {
		t.Error("BuildModule() of a missing file succeeded")
	}
}
