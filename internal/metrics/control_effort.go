package metrics

import (
	"math"

	"github.com/antioch-orontes/kneecontrol/internal/telemetry"
)

// ControlEffort is the mean absolute duty fraction over actuating cycles.
type ControlEffort struct {
	name    string
	sum     float64
	samples int
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{
		name: "control_effort",
	}
}

func (c *ControlEffort) Name() string {
	return c.name
}

func (c *ControlEffort) Observe(f telemetry.Frame) {
	if f.Transitioned {
		return
	}
	c.sum += math.Abs(f.Percent)
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ControlEffort) Reset() {
	c.sum = 0
	c.samples = 0
}
