package evolve

import "github.com/grt43/genetic-ode/internal/expr"

// nextGeneration builds the replacement population for generation gen:
// elites cloned unchanged, then offspring from tournament selection with
// crossover and mutation until the population is full again.
func (e *Engine) nextGeneration(gen int) []*Genome {
	n := len(e.pop)
	next := make([]*Genome, 0, n)

	for _, i := range e.eliteIndices() {
		next = append(next, e.pop[i].Clone())
	}

	for len(next) < n {
		if e.rng.Float64() < e.cfg.CrossoverRate {
			p1 := e.tournament()
			p2 := e.tournament()
			c1, c2 := e.crossover(p1, p2, gen)
			e.maybeMutate(c1, gen)
			next = append(next, c1)
			if len(next) < n {
				e.maybeMutate(c2, gen)
				next = append(next, c2)
			}
		} else {
			c := e.tournament().Clone()
			e.maybeMutate(c, gen)
			next = append(next, c)
		}
	}
	return next
}

// tournament samples TournamentSize genomes uniformly with replacement
// and returns the fittest. This is the only path by which fitness shapes
// reproduction; zero-fitness genomes stay selectable when a tournament
// happens to contain nothing better.
func (e *Engine) tournament() *Genome {
	best := e.pop[e.rng.Intn(len(e.pop))]
	for i := 1; i < e.cfg.TournamentSize; i++ {
		c := e.pop[e.rng.Intn(len(e.pop))]
		if c.Fitness > best.Fitness {
			best = c
		}
	}
	return best
}

// crossover clones both parents and swaps uniformly chosen subtrees. A
// child whose depth would exceed MaxDepth is discarded and replaced by a
// clone of its own parent; trees are never truncated, since truncation
// could break arity.
func (e *Engine) crossover(p1, p2 *Genome, gen int) (*Genome, *Genome) {
	c1 := p1.Clone()
	c2 := p2.Clone()

	pos1 := c1.Root.Positions()
	pos2 := c2.Root.Positions()
	a := pos1[e.rng.Intn(len(pos1))]
	b := pos2[e.rng.Intn(len(pos2))]
	*a.N, *b.N = *b.N, *a.N

	if c1.Root.Depth() > e.cfg.MaxDepth {
		c1 = p1.Clone()
	} else {
		c1.invalidate(gen)
	}
	if c2.Root.Depth() > e.cfg.MaxDepth {
		c2 = p2.Clone()
	} else {
		c2.invalidate(gen)
	}
	return c1, c2
}

// maybeMutate replaces a uniformly chosen subtree of g with a fresh
// random subtree, generated within the depth budget remaining below the
// chosen node, with probability MutationRate.
func (e *Engine) maybeMutate(g *Genome, gen int) {
	if e.rng.Float64() >= e.cfg.MutationRate {
		return
	}
	pos := g.Root.Positions()
	p := pos[e.rng.Intn(len(pos))]
	sub := expr.Generate(e.rng, e.cfg.Ops, e.cfg.MaxDepth-p.Depth, e.cfg.ConstMin, e.cfg.ConstMax)
	*p.N = *sub
	g.invalidate(gen)
}
