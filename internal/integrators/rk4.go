// Package integrators numerically simulates the ODE induced by a
// candidate expression against a dataset's time grid.
package integrators

import (
	"math"

	"github.com/grt43/genetic-ode/internal/dataset"
	"github.com/grt43/genetic-ode/internal/expr"
)

// DefaultSubsteps is the number of RK4 steps taken inside each sample
// interval when none is configured.
const DefaultSubsteps = 10

// Result is a predicted trajectory aligned with the dataset's sample
// times. BrokeAt is the index of the first sample that could not be
// reached (a domain error or non-finite state during integration), or -1
// when every sample was predicted.
type Result struct {
	Positions []float64
	BrokeAt   int
}

// Complete reports whether integration covered every sample.
func (r Result) Complete() bool { return r.BrokeAt < 0 }

// RK4 integrates x' = f(x, t) with the classic fixed-step fourth-order
// Runge-Kutta scheme. Each interval between consecutive sample times is
// subdivided into Substeps steps, so predictions land exactly on the
// observed sample times without interpolation.
type RK4 struct {
	Substeps int
}

// NewRK4 returns an integrator with the given substep count; values
// below 1 fall back to DefaultSubsteps.
func NewRK4(substeps int) *RK4 {
	if substeps < 1 {
		substeps = DefaultSubsteps
	}
	return &RK4{Substeps: substeps}
}

// Simulate integrates the candidate f from the dataset's initial
// condition across its full time grid. It never returns an error: a
// genome that leaves the numeric domain yields a partial Result instead.
func (rk *RK4) Simulate(f *expr.Node, ds *dataset.Dataset) Result {
	times := ds.Times()
	out := make([]float64, 1, len(times))
	out[0] = ds.X0()

	x := ds.X0()
	for i := 1; i < len(times); i++ {
		h := (times[i] - times[i-1]) / float64(rk.Substeps)
		t := times[i-1]
		for s := 0; s < rk.Substeps; s++ {
			next, err := rk.step(f, x, t, h)
			if err != nil || math.IsNaN(next) || math.IsInf(next, 0) {
				return Result{Positions: out, BrokeAt: i}
			}
			x = next
			t += h
		}
		out = append(out, x)
	}
	return Result{Positions: out, BrokeAt: -1}
}

func (rk *RK4) step(f *expr.Node, x, t, h float64) (float64, error) {
	k1, err := f.Eval(x, t)
	if err != nil {
		return 0, err
	}
	k2, err := f.Eval(x+0.5*h*k1, t+0.5*h)
	if err != nil {
		return 0, err
	}
	k3, err := f.Eval(x+0.5*h*k2, t+0.5*h)
	if err != nil {
		return 0, err
	}
	k4, err := f.Eval(x+h*k3, t+h)
	if err != nil {
		return 0, err
	}
	return x + h/6.0*(k1+2*k2+2*k3+k4), nil
}
