package loop

import (
	"errors"
	"fmt"

	"github.com/antioch-orontes/kneecontrol/internal/knee"
	"github.com/antioch-orontes/kneecontrol/internal/sensor"
	"github.com/antioch-orontes/kneecontrol/internal/telemetry"
)

var (
	// ErrSourceExhausted is returned by a Source with no more readings.
	ErrSourceExhausted = errors.New("loop: source exhausted")

	ErrInvalidConfig = errors.New("loop: invalid config")
)

// Source produces the raw reading for loop time t.
type Source interface {
	Read(t float64) (sensor.Reading, error)
}

type Metric interface {
	Name() string
	Observe(f telemetry.Frame)
	Value() float64
	Reset()
}

type Observer interface {
	OnFrame(f telemetry.Frame)
}

type Config struct {
	Period      float64 // control period, s
	Duration    float64 // s
	Cutoff      float64 // differentiator corner, Hz
	Smoothing   float64 // current monitor smoothing
	MonitorGain float64 // A/V
	Drivetrain  knee.Drivetrain

	// Record keeps every frame in Result.Frames.
	Record bool
}

func DefaultConfig() Config {
	return Config{
		Period:      0.001,
		Duration:    10,
		Cutoff:      sensor.DefaultCutoff,
		Smoothing:   sensor.DefaultSmoothing,
		MonitorGain: sensor.DefaultMonitorGain,
		Drivetrain:  knee.DefaultDrivetrain(),
		Record:      true,
	}
}

func (c Config) Cycles() int {
	return int(c.Duration/c.Period + 0.5)
}

func (c Config) validate() error {
	if !(c.Period > 0) {
		return fmt.Errorf("%w: period must be positive, got %f", ErrInvalidConfig, c.Period)
	}
	if !(c.Duration > 0) {
		return fmt.Errorf("%w: duration must be positive, got %f", ErrInvalidConfig, c.Duration)
	}
	if !(c.MonitorGain > 0) {
		return fmt.Errorf("%w: monitor gain must be positive, got %f", ErrInvalidConfig, c.MonitorGain)
	}
	if !(c.Drivetrain.NmPerAmp() > 0) {
		return fmt.Errorf("%w: drivetrain produces no torque", ErrInvalidConfig)
	}
	return nil
}

// Transition records a state change.
type Transition struct {
	Cycle uint64         `json:"cycle"`
	Time  float64        `json:"time"`
	From  knee.GaitState `json:"from"`
	To    knee.GaitState `json:"to"`
}

type Result struct {
	Frames      []telemetry.Frame
	Transitions []Transition
	Metrics     map[string]float64
	Cycles      int
}

// States returns the sequence of states entered, in order.
func (r *Result) States() []knee.GaitState {
	out := make([]knee.GaitState, len(r.Transitions))
	for i, tr := range r.Transitions {
		out[i] = tr.To
	}
	return out
}

// RunError wraps a failure with the cycle it happened on.
type RunError struct {
	Cycle   uint64
	Time    float64
	Wrapped error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("cycle %d (t=%.4f): %v", e.Cycle, e.Time, e.Wrapped)
}

func (e *RunError) Unwrap() error {
	return e.Wrapped
}
