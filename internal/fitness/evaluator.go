// Package fitness scores candidate expressions by how well their induced
// ODE reproduces the observed trajectory.
package fitness

import (
	"math"

	"github.com/grt43/genetic-ode/internal/dataset"
	"github.com/grt43/genetic-ode/internal/expr"
	"github.com/grt43/genetic-ode/internal/integrators"
)

// Evaluator integrates a candidate against a fixed dataset and maps the
// sum of squared residuals to a fitness in (0, 1]. A failed integration
// scores exactly 0, so pathological genomes are strongly disfavored but
// stay selectable. Evaluation is deterministic and safe for concurrent
// use: the dataset is read-only and each call carries its own state.
type Evaluator struct {
	ds *dataset.Dataset
	rk *integrators.RK4
}

// New builds an evaluator over ds using substeps RK4 steps per sample
// interval.
func New(ds *dataset.Dataset, substeps int) *Evaluator {
	return &Evaluator{ds: ds, rk: integrators.NewRK4(substeps)}
}

// Evaluate returns the fitness of root and its trajectory error (sum of
// squared residuals). On integration failure the error is +Inf and the
// fitness 0.
func (e *Evaluator) Evaluate(root *expr.Node) (fit, sse float64) {
	res := e.rk.Simulate(root, e.ds)
	if !res.Complete() {
		return 0, math.Inf(1)
	}

	observed := e.ds.Positions()
	for i, p := range res.Positions {
		r := p - observed[i]
		sse += r * r
	}
	if math.IsNaN(sse) || math.IsInf(sse, 0) {
		return 0, math.Inf(1)
	}
	return 1 / (1 + sse), sse
}

// Predict returns the integrated trajectory for root, for rendering a
// result against the observations.
func (e *Evaluator) Predict(root *expr.Node) integrators.Result {
	return e.rk.Simulate(root, e.ds)
}

// Dataset returns the dataset being fit.
func (e *Evaluator) Dataset() *dataset.Dataset { return e.ds }
