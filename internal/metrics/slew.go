package metrics

import (
	"math"

	"github.com/antioch-orontes/kneecontrol/internal/telemetry"
)

// Slew is the largest change in commanded duty between consecutive cycles.
type Slew struct {
	prev  float64
	max   float64
	first bool
}

func NewSlew() *Slew { return &Slew{first: true} }

func (s *Slew) Name() string { return "max_slew" }

func (s *Slew) Observe(f telemetry.Frame) {
	if s.first {
		s.prev = f.Percent
		s.first = false
		return
	}
	s.max = math.Max(s.max, math.Abs(f.Percent-s.prev))
	s.prev = f.Percent
}

func (s *Slew) Value() float64 { return s.max }

func (s *Slew) Reset() {
	s.prev = 0
	s.max = 0
	s.first = true
}

// TorqueTracking is the RMS error between desired and measured joint torque.
type TorqueTracking struct {
	sumSq   float64
	samples int
}

func NewTorqueTracking() *TorqueTracking { return &TorqueTracking{} }

func (t *TorqueTracking) Name() string { return "torque_rms_error" }

func (t *TorqueTracking) Observe(f telemetry.Frame) {
	e := f.DesiredTorque - f.MeasuredTorque
	t.sumSq += e * e
	t.samples++
}

func (t *TorqueTracking) Value() float64 {
	if t.samples == 0 {
		return 0
	}
	return math.Sqrt(t.sumSq / float64(t.samples))
}

func (t *TorqueTracking) Reset() {
	t.sumSq = 0
	t.samples = 0
}
