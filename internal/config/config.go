// Package config loads and saves run configuration as YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/grt43/genetic-ode/internal/evolve"
	"github.com/grt43/genetic-ode/internal/expr"
	"github.com/grt43/genetic-ode/internal/integrators"
)

const (
	DefaultPopulation    = 300
	DefaultGenerations   = 100
	DefaultMaxDepth      = 6
	DefaultCrossoverRate = 0.9
	DefaultMutationRate  = 0.15
	DefaultTournament    = 5
	DefaultElites        = 3
	DefaultConstMin      = -10.0
	DefaultConstMax      = 10.0
)

// Config mirrors evolve.Config in YAML form, plus the dataset samples and
// the integrator tuning, so one file describes a complete run.
type Config struct {
	Population     int      `yaml:"population"`
	Generations    int      `yaml:"generations"`
	MaxDepth       int      `yaml:"max_depth"`
	CrossoverRate  float64  `yaml:"crossover_rate"`
	MutationRate   float64  `yaml:"mutation_rate"`
	TournamentSize int      `yaml:"tournament_size"`
	Elites         int      `yaml:"elites"`
	Substeps       int      `yaml:"substeps"`
	Seed           int64    `yaml:"seed"`
	TargetFitness  float64  `yaml:"target_fitness"`
	Workers        int      `yaml:"workers"`
	ConstMin       float64  `yaml:"const_min"`
	ConstMax       float64  `yaml:"const_max"`
	Operators      []string `yaml:"operators"`

	TimeData     []float64 `yaml:"time_data"`
	PositionData []float64 `yaml:"position_data"`
}

func DefaultConfig() *Config {
	ops := expr.DefaultOps()
	names := make([]string, len(ops))
	for i, op := range ops {
		names[i] = op.String()
	}
	return &Config{
		Population:     DefaultPopulation,
		Generations:    DefaultGenerations,
		MaxDepth:       DefaultMaxDepth,
		CrossoverRate:  DefaultCrossoverRate,
		MutationRate:   DefaultMutationRate,
		TournamentSize: DefaultTournament,
		Elites:         DefaultElites,
		Substeps:       integrators.DefaultSubsteps,
		ConstMin:       DefaultConstMin,
		ConstMax:       DefaultConstMax,
		Operators:      names,
	}
}

// Load reads path on top of the defaults, so partial files are fine.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// EngineConfig resolves the configured operator names into an
// evolve.Config. Numeric bounds are checked later by evolve.New.
func (c *Config) EngineConfig() (evolve.Config, error) {
	ops := make([]expr.Op, 0, len(c.Operators))
	for _, name := range c.Operators {
		op, err := expr.OpByName(name)
		if err != nil {
			return evolve.Config{}, err
		}
		ops = append(ops, op)
	}
	return evolve.Config{
		PopulationSize: c.Population,
		Generations:    c.Generations,
		MaxDepth:       c.MaxDepth,
		CrossoverRate:  c.CrossoverRate,
		MutationRate:   c.MutationRate,
		TournamentSize: c.TournamentSize,
		EliteCount:     c.Elites,
		Seed:           c.Seed,
		TargetFitness:  c.TargetFitness,
		Workers:        c.Workers,
		ConstMin:       c.ConstMin,
		ConstMax:       c.ConstMax,
		Ops:            ops,
	}, nil
}
