// Package dataset holds the observed trajectory a run fits against.
package dataset

import (
	"errors"
	"fmt"
)

// ErrInvalid is wrapped by every construction failure.
var ErrInvalid = errors.New("dataset: invalid data")

var (
	ErrLengthMismatch    = fmt.Errorf("time and position lengths differ: %w", ErrInvalid)
	ErrTooFewSamples     = fmt.Errorf("need at least two samples: %w", ErrInvalid)
	ErrNonIncreasingTime = fmt.Errorf("time must be strictly increasing: %w", ErrInvalid)
)

// Dataset is an immutable pair of sample sequences. The first sample is
// the initial condition of every integration. A Dataset is safe for
// unsynchronized concurrent reads.
type Dataset struct {
	times     []float64
	positions []float64
}

// New validates and copies the sample data.
func New(times, positions []float64) (*Dataset, error) {
	if len(times) != len(positions) {
		return nil, fmt.Errorf("%d times vs %d positions: %w", len(times), len(positions), ErrLengthMismatch)
	}
	if len(times) < 2 {
		return nil, fmt.Errorf("got %d: %w", len(times), ErrTooFewSamples)
	}
	for i := 1; i < len(times); i++ {
		if times[i] <= times[i-1] {
			return nil, fmt.Errorf("sample %d: %w", i, ErrNonIncreasingTime)
		}
	}

	d := &Dataset{
		times:     make([]float64, len(times)),
		positions: make([]float64, len(positions)),
	}
	copy(d.times, times)
	copy(d.positions, positions)
	return d, nil
}

// Times returns the sample times. Callers must not modify the slice.
func (d *Dataset) Times() []float64 { return d.times }

// Positions returns the observed positions. Callers must not modify the
// slice.
func (d *Dataset) Positions() []float64 { return d.positions }

// Len returns the number of samples.
func (d *Dataset) Len() int { return len(d.times) }

// T0 returns the initial time.
func (d *Dataset) T0() float64 { return d.times[0] }

// X0 returns the initial position.
func (d *Dataset) X0() float64 { return d.positions[0] }
