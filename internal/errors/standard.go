// Package errors provides standardized error messaging for treeopt
package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	// CategoryInternal marks a broken invariant of the rewrite engine itself.
	CategoryInternal ErrorCategory = "INTERNAL"
	CategoryImport   ErrorCategory = "IMPORT"
	CategoryConfig   ErrorCategory = "CONFIG"
	CategorySyntax   ErrorCategory = "SYNTAX"
)

// StandardError provides a consistent error format
type StandardError struct {
	Category ErrorCategory
	Code     string
	Message  string
	Context  map[string]interface{}
	Caller   string
}

// Error implements the error interface
func (e *StandardError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s:%s] %s", e.Category, e.Code, e.Message)

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		fmt.Fprintf(&b, " {%s}", strings.Join(parts, ", "))
	}

	if e.Caller != "" {
		fmt.Fprintf(&b, " (caller: %s)", e.Caller)
	}
	return b.String()
}

// NewStandardError creates a new standardized error
func NewStandardError(category ErrorCategory, code, message string, context map[string]interface{}) *StandardError {
	return &StandardError{
		Category: category,
		Code:     code,
		Message:  message,
		Context:  context,
		Caller:   callerName(2),
	}
}

func callerName(skip int) string {
	pc, _, _, ok := runtime.Caller(skip)
	if !ok {
		return "unknown"
	}
	if fn := runtime.FuncForPC(pc); fn != nil {
		return fn.Name()
	}
	return "unknown"
}

// Defect aborts the current pass with an internal consistency failure.
// It must only be used for conditions that prove a rewrite rule wrong,
// never for user programs that merely fail a precondition.
func Defect(code, message string, context map[string]interface{}) {
	panic(&StandardError{
		Category: CategoryInternal,
		Code:     code,
		Message:  message,
		Context:  context,
		Caller:   callerName(2),
	})
}

// Recover turns a panic raised by Defect into an error stored in *errp.
// Any other panic is re-raised. Use as: defer errors.Recover(&err).
func Recover(errp *error) {
	r := recover()
	if r == nil {
		return
	}

	if se, ok := r.(*StandardError); ok && se.Category == CategoryInternal {
		*errp = se
		return
	}
	panic(r)
}

// IsDefect reports whether err wraps an internal consistency failure
func IsDefect(err error) bool {
	var se *StandardError
	return stderrors.As(err, &se) && se.Category == CategoryInternal
}

// Is reports whether err wraps a StandardError of the given category and code
func Is(err error, category ErrorCategory, code string) bool {
	var se *StandardError
	return stderrors.As(err, &se) && se.Category == category && se.Code == code
}

// Common error constructors

func SyntaxError(filename string, line, column int, message string) *StandardError {
	return NewStandardError(CategorySyntax, "INVALID_SYNTAX",
		fmt.Sprintf("%s:%d:%d: %s", filename, line, column, message),
		map[string]interface{}{"file": filename, "line": line, "column": column})
}

func ModuleNotFound(name, parentPackage string) *StandardError {
	return NewStandardError(CategoryImport, "MODULE_NOT_FOUND",
		fmt.Sprintf("No module named %s", name),
		map[string]interface{}{"module": name, "package": parentPackage})
}

func InvalidConfig(field string, value interface{}, reason string) *StandardError {
	return NewStandardError(CategoryConfig, "INVALID_CONFIG",
		fmt.Sprintf("Invalid value for %s: %s", field, reason),
		map[string]interface{}{"field": field, "value": value})
}
