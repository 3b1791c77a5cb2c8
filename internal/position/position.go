// Package position provides source provenance for tree nodes.
// Every node of an optimized tree carries the position it was parsed from,
// and every rewrite copies the position of the node it replaces.
package position

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Position represents a single point in source code
type Position struct {
	Filename string // Source file name
	Line     int    // 1-based line number
	Column   int    // 1-based column number
}

// IsValid returns true if the position points into a file
func (p Position) IsValid() bool {
	return p.Line > 0 && p.Column > 0
}

// String returns a string representation of the position
func (p Position) String() string {
	if p.Filename != "" {
		return fmt.Sprintf("%s:%d:%d", filepath.Base(p.Filename), p.Line, p.Column)
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Before returns true if this position comes before other
func (p Position) Before(other Position) bool {
	if p.Filename != other.Filename {
		return p.Filename < other.Filename
	}
	if p.Line != other.Line {
		return p.Line < other.Line
	}
	return p.Column < other.Column
}

// SourceFile keeps the lines of a source file for diagnostics
type SourceFile struct {
	Filename string   // File path
	Lines    []string // Lines of source code
}

// NewSourceFile creates a new source file from content
func NewSourceFile(filename, content string) *SourceFile {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return &SourceFile{
		Filename: filename,
		Lines:    strings.Split(content, "\n"),
	}
}

// GetLine returns the specified line (1-based) or empty string if invalid
func (sf *SourceFile) GetLine(lineNum int) string {
	if lineNum < 1 || lineNum > len(sf.Lines) {
		return ""
	}
	return sf.Lines[lineNum-1]
}

// Excerpt renders the line of pos with a caret under its column
func (sf *SourceFile) Excerpt(pos Position) string {
	line := sf.GetLine(pos.Line)
	if line == "" {
		return ""
	}

	col := pos.Column
	if col < 1 {
		col = 1
	}
	if col > len(line)+1 {
		col = len(line) + 1
	}

	return line + "\n" + strings.Repeat(" ", col-1) + "^"
}
