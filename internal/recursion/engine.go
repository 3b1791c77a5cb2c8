// Package recursion grows the set of modules an optimization session works
// on. Visiting a module registers it; visiting its imports builds the trees
// of the modules they name, which the pipeline then optimizes like the
// entry module. Modules are identified by normalized path, so a module
// imported from many places, or through an import cycle, is built once.
package recursion

import (
	"path/filepath"
	"strings"

	"github.com/orizon-lang/treeopt/internal/cli"
	"github.com/orizon-lang/treeopt/internal/importing"
	"github.com/orizon-lang/treeopt/internal/optimize"
	"github.com/orizon-lang/treeopt/internal/tree"
)

// PassName is the name the recursion engine reports
const PassName = "ModuleRecursion"

// Resolver resolves a module name relative to a parent package
type Resolver interface {
	FindModule(name, parentPackage string) (tree.ImportedModule, error)
}

// Builder builds the tree of the module in filename
type Builder interface {
	BuildModule(filename, pkg string) (*tree.Module, error)
}

// Normalizer maps a filename to its registry key. It must give distinct
// keys to distinct files of one session.
type Normalizer func(filename string) string

// Options configure which imports are followed
type Options struct {
	// FollowStdlib allows recursion into files below StdlibRoot
	FollowStdlib bool
	StdlibRoot   string
}

// Engine is the module recursion pass
type Engine struct {
	registry  *Registry
	resolver  Resolver
	builder   Builder
	normalize Normalizer
	opts      Options
	logger    *cli.Logger
	stats     *optimize.Stats
}

// New creates a recursion engine filling registry. Options are read once,
// here.
func New(registry *Registry, resolver Resolver, builder Builder, normalize Normalizer, opts Options, logger *cli.Logger) *Engine {
	if opts.StdlibRoot != "" {
		opts.StdlibRoot = filepath.Clean(opts.StdlibRoot)
	}
	return &Engine{
		registry:  registry,
		resolver:  resolver,
		builder:   builder,
		normalize: normalize,
		opts:      opts,
		logger:    logger,
		stats:     &optimize.Stats{PassName: PassName},
	}
}

// Name returns the pass name
func (e *Engine) Name() string { return PassName }

// Stats returns the counters accumulated over every Apply
func (e *Engine) Stats() *optimize.Stats { return e.stats }

// Registry returns the registry the engine fills
func (e *Engine) Registry() *Registry { return e.registry }

// Apply discovers the modules m refers to and builds those not yet known.
// It signals new code once per module added to the registry.
func (e *Engine) Apply(m *tree.Module) (optimize.Signals, error) {
	var signals optimize.Signals
	from := e.normalize(m.Filename)

	// The module node is the root, visited last by Walk; registering it
	// first keeps the registry in discovery order.
	e.considerModule(m, from, &signals)

	t := m.Tree
	t.Walk(func(id tree.NodeID) {
		e.stats.NodesVisited++

		switch t.Kind(id) {
		case tree.KindImport, tree.KindImportFrom, tree.KindBuiltinImport:
			for _, imp := range t.Imports(id) {
				e.consider(from, imp.Filename, imp.Package, &signals)
			}
		}
	})
	return signals, nil
}

// considerModule registers m itself and the package it belongs to
func (e *Engine) considerModule(m *tree.Module, path string, signals *optimize.Signals) {
	if !e.registry.Known(path) {
		e.registry.Register(path, m)
	}
	if m.Package == "" {
		return
	}

	pkg, err := e.resolver.FindModule(m.Package, "")
	if err != nil {
		if !e.registry.Known(m.Package) {
			e.logger.Warn("cannot resolve package %s of %s: %v", m.Package, path, err)
			e.registry.MarkFailed(m.Package, err)
		}
		return
	}
	e.consider(path, pkg.Filename, pkg.Package, signals)
}

// consider builds the module in filename unless it is filtered out or
// already known
func (e *Engine) consider(from, filename, pkg string, signals *optimize.Signals) {
	if !e.eligible(filename) {
		return
	}

	path := e.normalize(filename)
	e.registry.AddDependency(from, path)
	if e.registry.Known(path) {
		return
	}

	e.logger.Info("recurse to import %s", path)
	m, err := e.builder.BuildModule(filename, pkg)
	if err != nil {
		e.logger.Warn("cannot build imported module %s: %v", path, err)
		e.registry.MarkFailed(path, err)
		return
	}

	e.registry.Register(path, m)
	e.stats.ModulesAdded++
	signals.Add(optimize.SignalNewCode)
}

// eligible reports whether recursion may follow an import into filename:
// it must be a source file, and outside the standard library unless
// following it is allowed
func (e *Engine) eligible(filename string) bool {
	if !strings.HasSuffix(filename, importing.SourceSuffix) {
		return false
	}
	return e.opts.FollowStdlib || !e.inStdlib(filename)
}

func (e *Engine) inStdlib(filename string) bool {
	root := e.opts.StdlibRoot
	if root == "" {
		return false
	}
	filename = filepath.Clean(filename)
	return filename == root || strings.HasPrefix(filename, root+string(filepath.Separator))
}
