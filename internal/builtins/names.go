package builtins

// Names is the set of names the runtime provides as builtins. A module
// variable that the module never binds resolves to one of these.
var Names = makeSet(
	"ArithmeticError", "AssertionError", "AttributeError", "BaseException",
	"BufferError", "BytesWarning", "DeprecationWarning", "EOFError", "Ellipsis",
	"EnvironmentError", "Exception", "False", "FloatingPointError", "FutureWarning",
	"GeneratorExit", "IOError", "ImportError", "ImportWarning", "IndentationError",
	"IndexError", "KeyError", "KeyboardInterrupt", "LookupError", "MemoryError",
	"NameError", "None", "NotImplemented", "NotImplementedError", "OSError",
	"OverflowError", "PendingDeprecationWarning", "ReferenceError", "RuntimeError",
	"RuntimeWarning", "StandardError", "StopIteration", "SyntaxError",
	"SyntaxWarning", "SystemError", "SystemExit", "TabError", "True", "TypeError",
	"UnboundLocalError", "UnicodeDecodeError", "UnicodeEncodeError", "UnicodeError",
	"UnicodeTranslateError", "UnicodeWarning", "UserWarning", "ValueError",
	"Warning", "ZeroDivisionError", "__debug__", "__doc__", "__import__",
	"__name__", "__package__", "abs", "all", "any", "apply", "basestring", "bin",
	"bool", "buffer", "bytearray", "bytes", "callable", "chr", "classmethod",
	"cmp", "coerce", "compile", "complex", "copyright", "credits", "delattr",
	"dict", "dir", "divmod", "enumerate", "eval", "execfile", "exit", "file",
	"filter", "float", "format", "frozenset", "getattr", "globals", "hasattr",
	"hash", "help", "hex", "id", "input", "int", "intern", "isinstance",
	"issubclass", "iter", "len", "license", "list", "locals", "long", "map", "max",
	"memoryview", "min", "next", "object", "oct", "open", "ord", "pow", "print",
	"property", "quit", "range", "raw_input", "reduce", "reload", "repr",
	"reversed", "round", "set", "setattr", "slice", "sorted", "staticmethod", "str",
	"sum", "super", "tuple", "type", "unichr", "unicode", "vars", "xrange", "zip",
)

func makeSet(names ...string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, name := range names {
		set[name] = true
	}
	return set
}
