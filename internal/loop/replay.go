package loop

import (
	"sort"

	"github.com/antioch-orontes/kneecontrol/internal/sensor"
	"github.com/antioch-orontes/kneecontrol/internal/telemetry"
)

const timeEpsilon = 1e-9

// Replay feeds recorded frames back as raw readings. Read returns the last
// frame at or before t and ErrSourceExhausted past the final frame.
type Replay struct {
	frames []telemetry.Frame
}

func NewReplay(frames []telemetry.Frame) *Replay {
	sorted := make([]telemetry.Frame, len(frames))
	copy(sorted, frames)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })
	return &Replay{frames: sorted}
}

func (r *Replay) Read(t float64) (sensor.Reading, error) {
	n := len(r.frames)
	if n == 0 || t > r.frames[n-1].Time+timeEpsilon {
		return sensor.Reading{}, ErrSourceExhausted
	}
	i := sort.Search(n, func(j int) bool { return r.frames[j].Time > t+timeEpsilon }) - 1
	if i < 0 {
		i = 0
	}
	f := r.frames[i]
	return sensor.Reading{Time: t, Angle: f.Angle, LoadCell1: f.LoadCell1, LoadCell2: f.LoadCell2}, nil
}
