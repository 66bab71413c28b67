package evolve

import (
	"context"
	"math"
	"testing"

	"github.com/grt43/genetic-ode/internal/dataset"
	"github.com/grt43/genetic-ode/internal/fitness"
)

func quadraticEvaluator(t *testing.T) *fitness.Evaluator {
	t.Helper()
	ds, err := dataset.New([]float64{0, 1, 2, 3}, []float64{0, 1, 4, 9})
	if err != nil {
		t.Fatalf("dataset: %v", err)
	}
	return fitness.New(ds, 8)
}

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.PopulationSize = 40
	cfg.Generations = 10
	cfg.MaxDepth = 4
	cfg.Seed = 1
	cfg.Workers = 2
	return cfg
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	eval := quadraticEvaluator(t)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero population", func(c *Config) { c.PopulationSize = 0 }},
		{"zero generations", func(c *Config) { c.Generations = 0 }},
		{"zero max depth", func(c *Config) { c.MaxDepth = 0 }},
		{"crossover rate above one", func(c *Config) { c.CrossoverRate = 1.5 }},
		{"negative mutation rate", func(c *Config) { c.MutationRate = -0.1 }},
		{"zero tournament", func(c *Config) { c.TournamentSize = 0 }},
		{"elites not below population", func(c *Config) { c.EliteCount = 40 }},
		{"empty const range", func(c *Config) { c.ConstMin = 5; c.ConstMax = 5 }},
		{"empty operator set", func(c *Config) { c.Ops = nil }},
	}

	for _, tt := range tests {
		cfg := smallConfig()
		tt.mutate(&cfg)
		if _, err := New(cfg, eval); err == nil {
			t.Errorf("%s: expected config error", tt.name)
		}
	}
}

func TestPopulationSizeInvariant(t *testing.T) {
	cfg := smallConfig()
	e, err := New(cfg, quadraticEvaluator(t))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	sizes := make([]int, 0, cfg.Generations+1)
	e.AddObserver(ObserverFunc(func(s Stats) {
		sizes = append(sizes, len(e.pop))
	}))

	if _, err := e.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(sizes) != cfg.Generations+1 {
		t.Fatalf("expected %d generations observed, got %d", cfg.Generations+1, len(sizes))
	}
	for gen, n := range sizes {
		if n != cfg.PopulationSize {
			t.Errorf("generation %d: population size %d, want %d", gen, n, cfg.PopulationSize)
		}
	}
}

func TestRunDeterministicUnderFixedSeed(t *testing.T) {
	run := func() *Result {
		e, err := New(smallConfig(), quadraticEvaluator(t))
		if err != nil {
			t.Fatalf("new engine: %v", err)
		}
		res, err := e.Run(context.Background())
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		return res
	}

	r1 := run()
	r2 := run()

	if r1.Best.Root.String() != r2.Best.Root.String() {
		t.Errorf("best expressions differ: %s vs %s", r1.Best.Root, r2.Best.Root)
	}
	if r1.Best.Fitness != r2.Best.Fitness || r1.FoundAt != r2.FoundAt {
		t.Errorf("results differ: (%g, %d) vs (%g, %d)",
			r1.Best.Fitness, r1.FoundAt, r2.Best.Fitness, r2.FoundAt)
	}
	if len(r1.History) != len(r2.History) {
		t.Fatalf("history lengths differ: %d vs %d", len(r1.History), len(r2.History))
	}
	for i := range r1.History {
		if r1.History[i] != r2.History[i] {
			t.Errorf("generation %d stats differ: %+v vs %+v", i, r1.History[i], r2.History[i])
		}
	}
}

func TestBestTrackingIsMonotone(t *testing.T) {
	e, err := New(smallConfig(), quadraticEvaluator(t))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	res, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if res.Best == nil {
		t.Fatal("no best genome tracked")
	}
	for _, s := range res.History {
		if s.BestFitness > res.Best.Fitness {
			t.Errorf("generation %d best %g exceeds tracked best %g",
				s.Generation, s.BestFitness, res.Best.Fitness)
		}
	}
	if res.Best.Fitness <= 0 || res.Best.Fitness > 1 {
		t.Errorf("best fitness %g outside (0, 1]", res.Best.Fitness)
	}
}

func TestRunHonorsContextCancel(t *testing.T) {
	cfg := smallConfig()
	cfg.Generations = 1000
	e, err := New(cfg, quadraticEvaluator(t))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.AddObserver(ObserverFunc(func(s Stats) {
		if s.Generation == 3 {
			cancel()
		}
	}))

	res, err := e.Run(ctx)
	if err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if res == nil || res.Best == nil {
		t.Fatal("expected partial result on cancellation")
	}
	if res.Generations >= 1000 {
		t.Error("run did not stop early")
	}
}

func TestEarlyStopOnTargetFitness(t *testing.T) {
	cfg := smallConfig()
	cfg.Generations = 500
	cfg.TargetFitness = 1e-9 // any evaluated population trips this immediately
	e, err := New(cfg, quadraticEvaluator(t))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	res, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Generations != 0 {
		t.Errorf("expected stop after generation 0, ran %d", res.Generations)
	}
}

func TestEvalCountMatchesHistory(t *testing.T) {
	e, err := New(smallConfig(), quadraticEvaluator(t))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	res, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	total := 0
	for _, s := range res.History {
		total += s.Evals
	}
	if total != res.Evals {
		t.Errorf("total evals %d != sum of history %d", res.Evals, total)
	}
	if res.History[0].Evals != e.cfg.PopulationSize {
		t.Errorf("generation 0 should evaluate the whole population, got %d", res.History[0].Evals)
	}
	if math.IsNaN(res.History[0].MeanFitness) {
		t.Error("mean fitness is NaN")
	}
}
