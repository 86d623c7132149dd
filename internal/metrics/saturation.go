package metrics

import (
	"math"

	"github.com/antioch-orontes/kneecontrol/internal/knee"
	"github.com/antioch-orontes/kneecontrol/internal/telemetry"
)

// Saturation is the fraction of actuating cycles whose command sits on the
// active state's bound.
type Saturation struct {
	name      string
	table     knee.Table
	saturated int
	samples   int
}

func NewSaturation(table knee.Table) *Saturation {
	return &Saturation{
		name:  "saturation",
		table: table,
	}
}

func (s *Saturation) Name() string {
	return s.name
}

func (s *Saturation) Observe(f telemetry.Frame) {
	if f.Transitioned || !f.State.Valid() {
		return
	}
	s.samples++
	if math.Abs(f.Percent) >= s.table[f.State].SaturationBound {
		s.saturated++
	}
}

func (s *Saturation) Value() float64 {
	if s.samples == 0 {
		return 0
	}
	return float64(s.saturated) / float64(s.samples)
}

func (s *Saturation) Reset() {
	s.saturated = 0
	s.samples = 0
}
