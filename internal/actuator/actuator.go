// Package actuator provides sinks for the controller's direction-qualified
// drive commands.
package actuator

import (
	"fmt"
	"math"
)

type Direction int8

const (
	Extension Direction = -1
	Flexion   Direction = 1
)

func (d Direction) String() string {
	switch d {
	case Flexion:
		return "flexion"
	case Extension:
		return "extension"
	}
	return fmt.Sprintf("direction(%d)", int8(d))
}

// Command is one drive request.
type Command struct {
	Direction Direction
	Magnitude float64
}

// Signed returns the duty fraction with flexion positive.
func (c Command) Signed() float64 {
	return float64(c.Direction) * c.Magnitude
}

// Recorder keeps every command it receives.
type Recorder struct {
	Commands []Command
}

func NewRecorder() *Recorder {
	return &Recorder{Commands: make([]Command, 0)}
}

func (r *Recorder) Flex(m float64)   { r.Commands = append(r.Commands, Command{Flexion, m}) }
func (r *Recorder) Extend(m float64) { r.Commands = append(r.Commands, Command{Extension, m}) }

// Last returns the most recent command, if any.
func (r *Recorder) Last() (Command, bool) {
	if len(r.Commands) == 0 {
		return Command{}, false
	}
	return r.Commands[len(r.Commands)-1], true
}

func (r *Recorder) Reset() { r.Commands = r.Commands[:0] }

// Driver mirrors the reference H-bridge: a direction pin, a PWM duty cycle in
// percent and an inhibit line. While inhibited every command is held at zero
// duty. The motor current is modelled as the signed duty times the peak
// current the driver can source.
type Driver struct {
	peakCurrent float64
	inhibited   bool

	dir  Direction
	duty float64 // percent, 0..100
	n    uint64
}

func NewDriver(peakCurrent float64) *Driver {
	return &Driver{peakCurrent: peakCurrent, inhibited: true, dir: Extension}
}

// Enable releases the inhibit line.
func (d *Driver) Enable() { d.inhibited = false }

// Inhibit forces zero duty until Enable is called.
func (d *Driver) Inhibit() {
	d.inhibited = true
	d.duty = 0
}

func (d *Driver) Inhibited() bool { return d.inhibited }

func (d *Driver) Flex(m float64)   { d.set(Flexion, m) }
func (d *Driver) Extend(m float64) { d.set(Extension, m) }

func (d *Driver) set(dir Direction, m float64) {
	d.n++
	d.dir = dir
	if d.inhibited || math.IsNaN(m) {
		d.duty = 0
		return
	}
	d.duty = 100 * math.Min(math.Max(m, 0), 1)
}

func (d *Driver) Direction() Direction { return d.dir }

// Duty is the PWM duty cycle in percent.
func (d *Driver) Duty() float64 { return d.duty }

// Commands counts Flex and Extend calls.
func (d *Driver) Commands() uint64 { return d.n }

// Current is the modelled motor current in amps, flexion positive.
func (d *Driver) Current() float64 {
	return float64(d.dir) * d.duty / 100 * d.peakCurrent
}
