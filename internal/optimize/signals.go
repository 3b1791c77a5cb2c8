// Package optimize provides the machinery the rewrite passes share: the
// dispatch visitor that substitutes handler results into the tree, the
// change signals passes report, and the pipeline that drives all passes
// over every module until a round reports no change.
package optimize

import "strings"

// Signal classifies a change a pass made to a tree
type Signal uint8

const (
	// SignalNewConstant is raised when a literal constant replaced a node
	SignalNewConstant Signal = 1 << iota
	// SignalNewBuiltin is raised when a specialized builtin node replaced a call
	SignalNewBuiltin
	// SignalNewStatement is raised when a statement-shaped node replaced a node
	SignalNewStatement
	// SignalNewCode is raised when module recursion added a module
	SignalNewCode
)

var signalNames = []struct {
	s    Signal
	name string
}{
	{SignalNewConstant, "new_constant"},
	{SignalNewBuiltin, "new_builtin"},
	{SignalNewStatement, "new_statement"},
	{SignalNewCode, "new_code"},
}

// Signals is the set of changes one pass application made
type Signals Signal

// Add records s
func (ss *Signals) Add(s Signal) { *ss |= Signals(s) }

// Merge records every signal of other
func (ss *Signals) Merge(other Signals) { *ss |= other }

// Has reports whether s was raised
func (ss Signals) Has(s Signal) bool { return ss&Signals(s) != 0 }

// Changed reports whether any change was made
func (ss Signals) Changed() bool { return ss != 0 }

func (ss Signals) String() string {
	var names []string
	for _, sn := range signalNames {
		if ss.Has(sn.s) {
			names = append(names, sn.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ",")
}
