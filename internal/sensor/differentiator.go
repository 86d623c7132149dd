package sensor

import (
	"fmt"
	"math"
)

// DefaultCutoff is the differentiator's corner frequency in Hz.
const DefaultCutoff = 10.0

// Differentiator is a first-order practical differentiator discretised with
// the bilinear transform:
//
//	v[k] = (2*(x[k]-x[k-1]) + (2*tau-T)*v[k-1]) / (T + 2*tau)
//
// with tau = 1/(2*pi*fc). The output is in input units per second.
type Differentiator struct {
	tau, period float64

	prev    float64
	vel     float64
	started bool
}

func NewDifferentiator(cutoff, period float64) (*Differentiator, error) {
	if !(cutoff > 0) {
		return nil, fmt.Errorf("%w: cutoff %g Hz", ErrBadFilter, cutoff)
	}
	if !(period > 0) {
		return nil, fmt.Errorf("%w: period %g s", ErrBadFilter, period)
	}
	return &Differentiator{
		tau:    1 / (2 * math.Pi * cutoff),
		period: period,
	}, nil
}

// Update feeds the next sample and returns the filtered derivative. The
// first sample only primes the filter and yields zero.
func (d *Differentiator) Update(x float64) float64 {
	if !d.started {
		d.prev = x
		d.started = true
		return 0
	}
	d.vel = (2*(x-d.prev) + (2*d.tau-d.period)*d.vel) / (d.period + 2*d.tau)
	d.prev = x
	return d.vel
}

func (d *Differentiator) Value() float64 { return d.vel }

func (d *Differentiator) Reset() {
	d.prev = 0
	d.vel = 0
	d.started = false
}
