package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/orizon-lang/treeopt/internal/importing"
	"github.com/orizon-lang/treeopt/internal/lexer"
	"github.com/orizon-lang/treeopt/internal/tree"
)

// ModuleFinder resolves a module name relative to a parent package
type ModuleFinder interface {
	FindModule(name, parentPackage string) (tree.ImportedModule, error)
}

// Builder reads and parses module files
type Builder struct {
	finder ModuleFinder
}

// NewBuilder creates a builder resolving imports through finder
func NewBuilder(finder ModuleFinder) *Builder {
	return &Builder{finder: finder}
}

// BuildModule reads filename and builds the tree of the module it holds.
// pkg is the dotted package the module belongs to, empty at top level.
func (b *Builder) BuildModule(filename, pkg string) (*tree.Module, error) {
	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read module %s: %w", filename, err)
	}
	return ParseModule(filename, pkg, string(src), b.finder)
}

// ParseModule builds a module tree from source text
func ParseModule(filename, pkg, src string, finder ModuleFinder) (*tree.Module, error) {
	m := tree.NewModule(ModuleName(filename), pkg, filename)

	p := NewParser(lexer.New(src), m, finder)
	if importing.IsPackageInit(filename) {
		// Code of a package initializer imports relative to the package itself.
		p.SetImportContext(m.FullName())
	}
	if err := p.Parse(); err != nil {
		return nil, err
	}
	return m, nil
}

// ModuleName derives the module name from its file: the base name without
// suffix, or the directory name for a package initializer
func ModuleName(filename string) string {
	if importing.IsPackageInit(filename) {
		return filepath.Base(filepath.Dir(filename))
	}
	return strings.TrimSuffix(filepath.Base(filename), importing.SourceSuffix)
}
