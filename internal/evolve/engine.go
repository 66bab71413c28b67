package evolve

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"sort"
	"sync"

	"github.com/grt43/genetic-ode/internal/expr"
)

// Evaluator scores an expression tree. Implementations must be
// deterministic and safe for concurrent calls.
type Evaluator interface {
	Evaluate(root *expr.Node) (fitness, sse float64)
}

// Config holds every tunable of a run.
type Config struct {
	PopulationSize int
	Generations    int
	MaxDepth       int
	CrossoverRate  float64
	MutationRate   float64
	TournamentSize int
	EliteCount     int
	Seed           int64
	TargetFitness  float64 // early stop when best fitness reaches this; 0 disables
	Workers        int     // parallel fitness workers; 0 means GOMAXPROCS
	ConstMin       float64
	ConstMax       float64
	Ops            []expr.Op
}

// DefaultConfig returns the tuning used by the demo runs.
func DefaultConfig() Config {
	return Config{
		PopulationSize: 300,
		Generations:    100,
		MaxDepth:       6,
		CrossoverRate:  0.9,
		MutationRate:   0.15,
		TournamentSize: 5,
		EliteCount:     3,
		ConstMin:       -10,
		ConstMax:       10,
		Ops:            expr.DefaultOps(),
	}
}

func (c Config) validate() error {
	if c.PopulationSize < 1 {
		return fmt.Errorf("population size must be positive, got %d", c.PopulationSize)
	}
	if c.Generations < 1 {
		return fmt.Errorf("generations must be positive, got %d", c.Generations)
	}
	if c.MaxDepth < 1 {
		return fmt.Errorf("max depth must be positive, got %d", c.MaxDepth)
	}
	if c.CrossoverRate < 0 || c.CrossoverRate > 1 {
		return fmt.Errorf("crossover rate must be in [0, 1], got %f", c.CrossoverRate)
	}
	if c.MutationRate < 0 || c.MutationRate > 1 {
		return fmt.Errorf("mutation rate must be in [0, 1], got %f", c.MutationRate)
	}
	if c.TournamentSize < 1 {
		return fmt.Errorf("tournament size must be positive, got %d", c.TournamentSize)
	}
	if c.EliteCount < 0 || c.EliteCount >= c.PopulationSize {
		return fmt.Errorf("elite count must be in [0, population), got %d", c.EliteCount)
	}
	if c.ConstMin >= c.ConstMax {
		return fmt.Errorf("constant range [%f, %f) is empty", c.ConstMin, c.ConstMax)
	}
	if len(c.Ops) == 0 {
		return fmt.Errorf("operator set is empty")
	}
	return nil
}

// Stats summarizes one generation after its fitness barrier.
type Stats struct {
	Generation  int
	BestFitness float64
	MeanFitness float64
	BestError   float64
	BestExpr    string
	Evals       int
}

// Observer receives per-generation stats; used for logging, the live TUI
// and the run archive.
type Observer interface {
	OnGeneration(s Stats)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(s Stats)

func (f ObserverFunc) OnGeneration(s Stats) { f(s) }

// Result is the outcome of a run.
type Result struct {
	Best        *Genome // clone of the best genome ever seen
	FoundAt     int     // generation the best genome first appeared in
	Generations int     // replacement cycles actually run
	Evals       int     // total fitness evaluations
	History     []Stats
}

// Engine runs a single evolutionary search. Not safe for concurrent use;
// parallelism happens inside fitness evaluation only.
type Engine struct {
	cfg       Config
	eval      Evaluator
	rng       *rand.Rand
	pop       []*Genome
	observers []Observer
}

// New validates cfg and prepares an engine. The only fatal errors of the
// whole run surface here and from an invalid dataset; everything later is
// absorbed into the fitness landscape.
func New(cfg Config, eval Evaluator) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("evolve: %w", err)
	}
	return &Engine{
		cfg:  cfg,
		eval: eval,
		rng:  rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// AddObserver registers o for per-generation stats.
func (e *Engine) AddObserver(o Observer) { e.observers = append(e.observers, o) }

// Run executes the evolutionary loop until the generation budget, early
// convergence, or context cancellation. On cancellation the partial
// result is returned together with ctx.Err().
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	e.pop = make([]*Genome, e.cfg.PopulationSize)
	for i := range e.pop {
		e.pop[i] = &Genome{
			Root:  expr.Generate(e.rng, e.cfg.Ops, e.cfg.MaxDepth, e.cfg.ConstMin, e.cfg.ConstMax),
			Birth: 0,
		}
		e.pop[i].invalidate(0)
	}

	res := &Result{}
	evals := e.evaluateAll()
	res.Evals += evals
	e.track(res, 0)
	e.record(res, 0, evals)

	for gen := 1; gen <= e.cfg.Generations; gen++ {
		if e.converged(res) {
			break
		}
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		default:
		}

		e.pop = e.nextGeneration(gen)
		evals = e.evaluateAll()
		res.Evals += evals
		res.Generations = gen
		e.track(res, gen)
		e.record(res, gen, evals)
	}

	return res, nil
}

// evaluateAll scores every genome without a cached fitness, fanning the
// work out across workers and waiting for all of them before selection
// may run. Returns the number of evaluations performed.
func (e *Engine) evaluateAll() int {
	n := len(e.pop)
	pending := 0
	for _, g := range e.pop {
		if !g.Evaluated {
			pending++
		}
	}
	if pending == 0 {
		return 0
	}

	workers := e.cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > n {
		workers = n
	}

	chunk := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := start + chunk
		if end > n {
			end = n
		}
		if start >= end {
			break
		}
		wg.Add(1)
		go func(s, t int) {
			defer wg.Done()
			for i := s; i < t; i++ {
				g := e.pop[i]
				if g.Evaluated {
					continue
				}
				g.Fitness, g.Err = e.eval.Evaluate(g.Root)
				g.Evaluated = true
			}
		}(start, end)
	}
	wg.Wait()
	return pending
}

// track updates the best-ever genome in res from the current population.
func (e *Engine) track(res *Result, gen int) {
	for _, g := range e.pop {
		if res.Best == nil || g.Fitness > res.Best.Fitness {
			res.Best = g.Clone()
			res.FoundAt = gen
		}
	}
}

func (e *Engine) record(res *Result, gen, evals int) {
	var sum float64
	best := e.pop[0]
	for _, g := range e.pop {
		sum += g.Fitness
		if g.Fitness > best.Fitness {
			best = g
		}
	}
	s := Stats{
		Generation:  gen,
		BestFitness: best.Fitness,
		MeanFitness: sum / float64(len(e.pop)),
		BestError:   best.Err,
		BestExpr:    best.Root.String(),
		Evals:       evals,
	}
	res.History = append(res.History, s)
	for _, o := range e.observers {
		o.OnGeneration(s)
	}
}

func (e *Engine) converged(res *Result) bool {
	return e.cfg.TargetFitness > 0 && res.Best != nil && res.Best.Fitness >= e.cfg.TargetFitness
}

// eliteIndices returns the indices of the top-fitness genomes, ties
// broken by position for reproducibility.
func (e *Engine) eliteIndices() []int {
	idx := make([]int, len(e.pop))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return e.pop[idx[a]].Fitness > e.pop[idx[b]].Fitness
	})
	return idx[:e.cfg.EliteCount]
}
