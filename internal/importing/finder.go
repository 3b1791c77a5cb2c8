// Package importing locates the source files of imported modules.
package importing

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/orizon-lang/treeopt/internal/errors"
	"github.com/orizon-lang/treeopt/internal/tree"
)

// SourceSuffix is the filename suffix of source modules
const SourceSuffix = ".py"

// PackageInit is the file that makes a directory a package
const PackageInit = "__init__" + SourceSuffix

// Finder resolves module names to files. Lookups are deterministic: the
// directory of the main program comes first, then SearchPaths in order.
type Finder struct {
	MainDir     string
	SearchPaths []string
}

// NewFinder creates a finder rooted at the directory of the main program
func NewFinder(mainDir string, searchPaths []string) *Finder {
	return &Finder{
		MainDir:     mainDir,
		SearchPaths: append([]string(nil), searchPaths...),
	}
}

// roots returns the directories searched for top-level modules
func (f *Finder) roots() []string {
	roots := make([]string, 0, len(f.SearchPaths)+1)
	if f.MainDir != "" {
		roots = append(roots, f.MainDir)
	}
	return append(roots, f.SearchPaths...)
}

// FindModule resolves name as imported from a module of parentPackage.
// Inside a package the name is tried relative to the package first, then
// as a top-level name. Dotted names resolve segment by segment, each
// segment but the last being a package directory.
func (f *Finder) FindModule(name, parentPackage string) (tree.ImportedModule, error) {
	if name == "" {
		return tree.ImportedModule{}, errors.ModuleNotFound(name, parentPackage)
	}

	if parentPackage != "" {
		if m, ok := f.find(parentPackage + "." + name); ok {
			return m, nil
		}
	}
	if m, ok := f.find(name); ok {
		return m, nil
	}
	return tree.ImportedModule{}, errors.ModuleNotFound(name, parentPackage)
}

func (f *Finder) find(dotted string) (tree.ImportedModule, bool) {
	segments := strings.Split(dotted, ".")
	for _, root := range f.roots() {
		if filename, ok := findSegments(root, segments); ok {
			last := len(segments) - 1
			return tree.ImportedModule{
				Name:     segments[last],
				Package:  strings.Join(segments[:last], "."),
				Filename: filename,
			}, true
		}
	}
	return tree.ImportedModule{}, false
}

// findSegments walks the package directories below root
func findSegments(root string, segments []string) (string, bool) {
	dir := root
	for _, seg := range segments[:len(segments)-1] {
		if seg == "" {
			return "", false
		}
		dir = filepath.Join(dir, seg)
		if !isFile(filepath.Join(dir, PackageInit)) {
			return "", false
		}
	}
	return findInDir(dir, segments[len(segments)-1])
}

// findInDir looks for name as a package directory, then as a module file
func findInDir(dir, name string) (string, bool) {
	if name == "" {
		return "", false
	}
	if init := filepath.Join(dir, name, PackageInit); isFile(init) {
		return init, true
	}
	if file := filepath.Join(dir, name+SourceSuffix); isFile(file) {
		return file, true
	}
	return "", false
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// IsPackageInit reports whether filename is the initializer of a package
func IsPackageInit(filename string) bool {
	return filepath.Base(filename) == PackageInit
}
