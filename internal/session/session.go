// Package session runs one whole-program optimization: it builds the main
// module, then drives builtin specialization, constant precomputation and
// module recursion over every module reached until a fixed point.
package session

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/orizon-lang/treeopt/internal/builtins"
	"github.com/orizon-lang/treeopt/internal/cli"
	"github.com/orizon-lang/treeopt/internal/dialect"
	"github.com/orizon-lang/treeopt/internal/importing"
	"github.com/orizon-lang/treeopt/internal/optimize"
	"github.com/orizon-lang/treeopt/internal/parser"
	"github.com/orizon-lang/treeopt/internal/precompute"
	"github.com/orizon-lang/treeopt/internal/recursion"
	"github.com/orizon-lang/treeopt/internal/tree"
)

// Session holds the state of one optimization run
type Session struct {
	config  *cli.Config
	dialect *dialect.Dialect
	logger  *cli.Logger

	mainFile string
	finder   *importing.Finder
	builder  *parser.Builder
	registry *recursion.Registry
	entry    *tree.Module
}

// FailedModule is an imported module whose tree could not be built
type FailedModule struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// Report summarizes a finished run
type Report struct {
	Entry           string            `json:"entry"`
	LanguageVersion string            `json:"language_version"`
	Rounds          int               `json:"rounds"`
	Modules         []string          `json:"modules"`
	Failed          []FailedModule    `json:"failed,omitempty"`
	Cycles          [][]string        `json:"cycles,omitempty"`
	Passes          []*optimize.Stats `json:"passes"`
}

// New creates a session optimizing the program whose main module is in
// mainFile. The configuration is read once, here.
func New(config *cli.Config, mainFile string, logger *cli.Logger) (*Session, error) {
	d, err := dialect.Parse(config.LanguageVersion)
	if err != nil {
		return nil, err
	}

	mainFile, err = filepath.Abs(mainFile)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", mainFile, err)
	}

	// The standard library stays resolvable when recursion does not follow
	// it, so its imports keep their filenames.
	searchPaths := append(append([]string(nil), config.SearchPaths...), config.StdlibRoot)
	finder := importing.NewFinder(filepath.Dir(mainFile), searchPaths)

	return &Session{
		config:   config,
		dialect:  d,
		logger:   logger,
		mainFile: mainFile,
		finder:   finder,
		builder:  parser.NewBuilder(finder),
		registry: recursion.NewRegistry(),
	}, nil
}

// Run builds the main module and optimizes the whole program. The report
// is returned together with any error that stopped the run early.
func (s *Session) Run(ctx context.Context) (*Report, error) {
	entry, err := s.builder.BuildModule(s.mainFile, "")
	if err != nil {
		return nil, err
	}
	s.entry = entry

	pipeline := optimize.NewPipeline(s.config.MaxRounds, s.logger)
	pipeline.AddPass(builtins.New(s.finder, s.dialect, builtins.Options{EnableLen: s.config.EnableLenSpecialization}))
	pipeline.AddPass(precompute.New(s.dialect))
	pipeline.AddPass(recursion.New(
		s.registry,
		s.finder,
		s.builder,
		importing.Relpath(s.config.WorkDir),
		recursion.Options{FollowStdlib: s.config.FollowStdlib, StdlibRoot: s.config.StdlibRoot},
		s.logger,
	))

	s.logger.Debug("optimizing %s as %s", s.mainFile, s.dialect)
	result, err := pipeline.Optimize(ctx, entry, s.registry)
	return s.report(result), err
}

func (s *Session) report(result *optimize.Result) *Report {
	r := &Report{
		Entry:           s.mainFile,
		LanguageVersion: s.dialect.String(),
		Modules:         s.registry.Paths(),
		Cycles:          s.registry.Cycles(),
	}
	if result != nil {
		r.Rounds = result.Rounds
		r.Passes = result.Passes
	}

	paths, errs := s.registry.Failed()
	for _, p := range paths {
		r.Failed = append(r.Failed, FailedModule{Path: p, Error: errs[p].Error()})
	}
	return r
}

// Entry returns the main module, nil before Run built it
func (s *Session) Entry() *tree.Module { return s.entry }

// Registry returns the modules reached so far
func (s *Session) Registry() *recursion.Registry { return s.registry }

// Files returns the source files the run read, main module first
func (s *Session) Files() []string {
	files := []string{s.mainFile}
	for _, m := range s.registry.Modules() {
		if m.Filename != s.mainFile {
			files = append(files, m.Filename)
		}
	}
	return files
}

// Dump writes the tree of every module, in registration order
func (s *Session) Dump(w io.Writer) {
	paths := s.registry.Paths()
	for i, m := range s.registry.Modules() {
		fmt.Fprintf(w, "# %s\n", paths[i])
		fmt.Fprint(w, tree.Format(m))
	}
}

// WriteText prints r in human-readable form
func (r *Report) WriteText(w io.Writer) {
	fmt.Fprintf(w, "entry: %s (language %s)\n", r.Entry, r.LanguageVersion)
	fmt.Fprintf(w, "rounds: %d\n", r.Rounds)
	fmt.Fprintf(w, "modules: %d\n", len(r.Modules))
	for _, m := range r.Modules {
		fmt.Fprintf(w, "  %s\n", m)
	}
	if len(r.Failed) > 0 {
		fmt.Fprintf(w, "failed: %d\n", len(r.Failed))
		for _, f := range r.Failed {
			fmt.Fprintf(w, "  %s: %s\n", f.Path, f.Error)
		}
	}
	for _, c := range r.Cycles {
		fmt.Fprintf(w, "import cycle: %v\n", c)
	}
	for _, p := range r.Passes {
		fmt.Fprintf(w, "%s\n", p)
	}
}
