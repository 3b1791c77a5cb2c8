package optimize

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/orizon-lang/treeopt/internal/cli"
	"github.com/orizon-lang/treeopt/internal/tree"
)

// Pass is one rewrite of a module tree. Apply reports which kinds of change
// it made; an empty set means the module was left as it was.
type Pass interface {
	// Name returns a human-readable name for this pass
	Name() string

	// Apply performs the rewrite on one module
	Apply(m *tree.Module) (Signals, error)
}

// ModuleSet supplies the modules discovered so far. The set may grow while
// a round runs; modules are returned in discovery order.
type ModuleSet interface {
	Modules() []*tree.Module
}

// Stats tracks statistics of one pass across all rounds
type Stats struct {
	PassName            string        `json:"pass"`
	Applications        int           `json:"applications"`
	NodesVisited        int           `json:"nodes_visited"`
	NodesTransformed    int           `json:"nodes_transformed"`
	ConstantsFolded     int           `json:"constants_folded"`
	BuiltinsSpecialized int           `json:"builtins_specialized"`
	ModulesAdded        int           `json:"modules_added"`
	ExecutionTime       time.Duration `json:"execution_time_ns"`
}

// String returns a human-readable representation of optimization statistics
func (s *Stats) String() string {
	return fmt.Sprintf("Pass: %s, Applied: %d, Visited: %d, Transformed: %d, Constants: %d, Builtins: %d, Modules: %d, Time: %s",
		s.PassName, s.Applications, s.NodesVisited, s.NodesTransformed, s.ConstantsFolded,
		s.BuiltinsSpecialized, s.ModulesAdded, s.ExecutionTime)
}

// statsProvider is implemented by passes that keep their own counters
type statsProvider interface {
	Stats() *Stats
}

// Result summarizes one Optimize run
type Result struct {
	Rounds  int      `json:"rounds"`
	Modules int      `json:"modules"`
	Passes  []*Stats `json:"passes"`
}

// ErrNoFixedPoint is returned when MaxRounds rounds all reported changes
var ErrNoFixedPoint = errors.New("optimization did not reach a fixed point")

// Pipeline drives an ordered list of passes over every module until one
// full round produces no change signal
type Pipeline struct {
	passes    []Pass
	maxRounds int
	logger    *cli.Logger
}

// NewPipeline creates a pipeline. maxRounds of 0 leaves the loop unbounded.
func NewPipeline(maxRounds int, logger *cli.Logger) *Pipeline {
	return &Pipeline{
		passes:    make([]Pass, 0),
		maxRounds: maxRounds,
		logger:    logger,
	}
}

// AddPass appends a pass to the pipeline
func (p *Pipeline) AddPass(pass Pass) {
	p.passes = append(p.passes, pass)
}

// Passes returns the registered passes in order
func (p *Pipeline) Passes() []Pass {
	return p.passes
}

// Optimize runs rounds over entry followed by every other module of set.
// Modules added during a round are processed in the same round. It stops at
// the first round without signals, on the first pass error, when ctx is done,
// or with ErrNoFixedPoint after maxRounds rounds.
func (p *Pipeline) Optimize(ctx context.Context, entry *tree.Module, set ModuleSet) (*Result, error) {
	if entry == nil {
		return nil, fmt.Errorf("cannot optimize nil module")
	}

	result := &Result{}
	stats := make([]*Stats, len(p.passes))
	for i, pass := range p.passes {
		if sp, ok := pass.(statsProvider); ok {
			stats[i] = sp.Stats()
		} else {
			stats[i] = &Stats{PassName: pass.Name()}
		}
	}
	result.Passes = stats

	for {
		if p.maxRounds > 0 && result.Rounds >= p.maxRounds {
			return result, fmt.Errorf("%w after %d rounds", ErrNoFixedPoint, result.Rounds)
		}
		result.Rounds++

		var round Signals
		seen := make(map[*tree.Module]bool)
		for i := 0; ; i++ {
			if err := ctx.Err(); err != nil {
				return result, err
			}

			m := p.moduleAt(entry, set, i)
			if m == nil {
				break
			}
			if seen[m] {
				continue
			}
			seen[m] = true

			for j, pass := range p.passes {
				start := time.Now()
				signals, err := pass.Apply(m)
				stats[j].Applications++
				stats[j].ExecutionTime += time.Since(start)
				if err != nil {
					return result, fmt.Errorf("optimization pass %s failed on %s: %w", pass.Name(), m.FullName(), err)
				}
				if signals.Changed() {
					p.logger.Debug("round %d: %s on %s: %s", result.Rounds, pass.Name(), m.FullName(), signals)
				}
				round.Merge(signals)
			}
		}

		result.Modules = len(seen)
		if !round.Changed() {
			p.logger.Info("fixed point reached after %d rounds over %d modules", result.Rounds, result.Modules)
			return result, nil
		}
	}
}

// moduleAt returns the i-th module of a round: the entry first, then the
// set in discovery order. The set is re-read each step so modules added by
// the current round are picked up.
func (p *Pipeline) moduleAt(entry *tree.Module, set ModuleSet, i int) *tree.Module {
	if i == 0 {
		return entry
	}
	if set == nil {
		return nil
	}
	modules := set.Modules()
	if i-1 >= len(modules) {
		return nil
	}
	return modules[i-1]
}
