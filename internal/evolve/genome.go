package evolve

import (
	"math"

	"github.com/grt43/genetic-ode/internal/expr"
)

// Genome is one candidate: an exclusively owned expression tree plus its
// cached score. Fitness is valid only when Evaluated is true; elites and
// untouched clones keep their cache, offspring are re-scored.
type Genome struct {
	Root      *expr.Node
	Fitness   float64
	Err       float64
	Evaluated bool
	Birth     int
}

// Clone deep-copies the genome, cached score included.
func (g *Genome) Clone() *Genome {
	return &Genome{
		Root:      g.Root.Clone(),
		Fitness:   g.Fitness,
		Err:       g.Err,
		Evaluated: g.Evaluated,
		Birth:     g.Birth,
	}
}

// invalidate marks the genome's tree as changed in generation gen,
// discarding the cached score.
func (g *Genome) invalidate(gen int) {
	g.Fitness = 0
	g.Err = math.Inf(1)
	g.Evaluated = false
	g.Birth = gen
}
