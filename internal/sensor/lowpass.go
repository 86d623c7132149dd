package sensor

import (
	"errors"
	"fmt"
)

var ErrBadFilter = errors.New("sensor: invalid filter parameter")

// Current monitor calibration of the reference motor driver.
const (
	DefaultSmoothing   = 0.85
	DefaultMonitorGain = 6.4 // A/V
)

// LowPass is an exponential smoother y = a*y + (1-a)*u.
type LowPass struct {
	a float64
	y float64
}

func NewLowPass(a float64) (*LowPass, error) {
	if a < 0 || a >= 1 {
		return nil, fmt.Errorf("%w: smoothing %g outside [0, 1)", ErrBadFilter, a)
	}
	return &LowPass{a: a}, nil
}

// Prime sets the filter output without smoothing, as done with the first
// reading before the control loop starts.
func (l *LowPass) Prime(u float64) { l.y = u }

func (l *LowPass) Update(u float64) float64 {
	l.y = l.a*l.y + (1-l.a)*u
	return l.y
}

func (l *LowPass) Value() float64 { return l.y }

// CurrentMonitor converts the driver's current-sense voltage to amps.
type CurrentMonitor struct {
	filter *LowPass
	gain   float64
}

func NewCurrentMonitor(smoothing, gain float64) (*CurrentMonitor, error) {
	lp, err := NewLowPass(smoothing)
	if err != nil {
		return nil, err
	}
	return &CurrentMonitor{filter: lp, gain: gain}, nil
}

// Update takes a sense voltage and returns the filtered current in amps.
func (m *CurrentMonitor) Update(volts float64) float64 {
	return m.gain * m.filter.Update(volts)
}

// UpdateAmps feeds a current already expressed in amps.
func (m *CurrentMonitor) UpdateAmps(amps float64) float64 {
	return m.Update(amps / m.gain)
}

// Prime loads the filter with a current in amps before the first Update.
func (m *CurrentMonitor) Prime(amps float64) {
	m.filter.Prime(amps / m.gain)
}

func (m *CurrentMonitor) Current() float64 { return m.gain * m.filter.Value() }
