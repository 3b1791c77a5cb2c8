package tree

// Kind is the discriminant of a node. The set is closed: generic calls keep
// KindCall, and every specialized builtin operation has its own kind.
type Kind uint8

const (
	KindModule Kind = iota
	KindFunction

	// Statements
	KindStatementExpression
	KindAssign
	KindImport
	KindImportFrom
	KindGlobal
	KindPass
	KindReturn
	KindExec

	// Expressions
	KindCall
	KindVariableRef
	KindConstant
	KindAttributeLookup
	KindMakeTuple
	KindMakeList

	// Specialized builtin operations
	KindBuiltinGlobals
	KindBuiltinLocals
	KindBuiltinDir
	KindBuiltinVars
	KindBuiltinEval
	KindBuiltinOpen
	KindBuiltinChr
	KindBuiltinOrd
	KindBuiltinType1
	KindBuiltinType3
	KindBuiltinRange
	KindBuiltinLen
	KindBuiltinImport

	kindCount
)

var kindNames = [kindCount]string{
	KindModule:              "Module",
	KindFunction:            "Function",
	KindStatementExpression: "StatementExpression",
	KindAssign:              "Assign",
	KindImport:              "Import",
	KindImportFrom:          "ImportFrom",
	KindGlobal:              "Global",
	KindPass:                "Pass",
	KindReturn:              "Return",
	KindExec:                "Exec",
	KindCall:                "Call",
	KindVariableRef:         "VariableRef",
	KindConstant:            "Constant",
	KindAttributeLookup:     "AttributeLookup",
	KindMakeTuple:           "MakeTuple",
	KindMakeList:            "MakeList",
	KindBuiltinGlobals:      "BuiltinGlobals",
	KindBuiltinLocals:       "BuiltinLocals",
	KindBuiltinDir:          "BuiltinDir",
	KindBuiltinVars:         "BuiltinVars",
	KindBuiltinEval:         "BuiltinEval",
	KindBuiltinOpen:         "BuiltinOpen",
	KindBuiltinChr:          "BuiltinChr",
	KindBuiltinOrd:          "BuiltinOrd",
	KindBuiltinType1:        "BuiltinType1",
	KindBuiltinType3:        "BuiltinType3",
	KindBuiltinRange:        "BuiltinRange",
	KindBuiltinLen:          "BuiltinLen",
	KindBuiltinImport:       "BuiltinImport",
}

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return "Unknown"
}

// IsStatement reports whether nodes of this kind occupy statement slots
func (k Kind) IsStatement() bool {
	switch k {
	case KindFunction, KindStatementExpression, KindAssign, KindImport, KindImportFrom,
		KindGlobal, KindPass, KindReturn, KindExec:
		return true
	}
	return false
}

// IsBuiltin reports whether k is a specialized builtin operation
func (k Kind) IsBuiltin() bool {
	return k >= KindBuiltinGlobals && k < kindCount
}

// IsScope reports whether nodes of this kind provide variables
func (k Kind) IsScope() bool {
	return k == KindModule || k == KindFunction
}
