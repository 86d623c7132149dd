package metrics

import (
	"github.com/antioch-orontes/kneecontrol/internal/knee"
	"github.com/antioch-orontes/kneecontrol/internal/telemetry"
)

// Occupancy counts cycles spent in each gait state. Its Value is the stance
// fraction of all observed cycles.
type Occupancy struct {
	counts [len(knee.States)]int
	total  int
}

func NewOccupancy() *Occupancy { return &Occupancy{} }

func (o *Occupancy) Name() string { return "stance_fraction" }

func (o *Occupancy) Observe(f telemetry.Frame) {
	if !f.State.Valid() {
		return
	}
	o.counts[f.State]++
	o.total++
}

func (o *Occupancy) Value() float64 {
	if o.total == 0 {
		return 0
	}
	stance := 0
	for _, s := range knee.States {
		if s.Stance() {
			stance += o.counts[s]
		}
	}
	return float64(stance) / float64(o.total)
}

// Fraction returns the share of cycles spent in s.
func (o *Occupancy) Fraction(s knee.GaitState) float64 {
	if o.total == 0 || !s.Valid() {
		return 0
	}
	return float64(o.counts[s]) / float64(o.total)
}

func (o *Occupancy) Reset() {
	o.counts = [len(knee.States)]int{}
	o.total = 0
}

// Transitions counts state changes.
type Transitions struct {
	n int
}

func NewTransitions() *Transitions { return &Transitions{} }

func (t *Transitions) Name() string { return "transitions" }

func (t *Transitions) Observe(f telemetry.Frame) {
	if f.Transitioned {
		t.n++
	}
}

func (t *Transitions) Value() float64 { return float64(t.n) }

func (t *Transitions) Reset() { t.n = 0 }
