package knee

import "fmt"

// Actuator is the direction-qualified drive sink. Magnitudes are duty
// fractions in [0, 1].
type Actuator interface {
	Flex(magnitude float64)
	Extend(magnitude float64)
}

type noopActuator struct{}

func (noopActuator) Flex(float64)   {}
func (noopActuator) Extend(float64) {}

// Controller is the gait state machine. It owns all state that persists
// between cycles.
type Controller struct {
	table       Table
	converter   CurrentConverter
	limiter     RateLimiter
	actuator    Actuator
	peakCurrent float64
	initial     GaitState

	state     GaitState
	previous  float64 // rate limiter memory, kept across transitions
	impedance float64
	current   float64
	dwell     uint64
}

// Option configures a Controller.
type Option func(*Controller)

func WithActuator(a Actuator) Option {
	return func(c *Controller) {
		if a != nil {
			c.actuator = a
		}
	}
}

func WithTable(t Table) Option {
	return func(c *Controller) { c.table = t }
}

func WithCurrentConverter(cc CurrentConverter) Option {
	return func(c *Controller) {
		if cc != nil {
			c.converter = cc
		}
	}
}

func WithRateLimiter(rl RateLimiter) Option {
	return func(c *Controller) {
		if rl != nil {
			c.limiter = rl
		}
	}
}

func WithPeakCurrent(amps float64) Option {
	return func(c *Controller) { c.peakCurrent = amps }
}

// WithInitialState starts the machine somewhere other than IdleStance.
// Reset returns to the same state.
func WithInitialState(s GaitState) Option {
	return func(c *Controller) { c.initial = s }
}

// NewController builds a controller in IdleStance with the reference
// table, drivetrain and slew limiter unless overridden.
func NewController(opts ...Option) (*Controller, error) {
	c := &Controller{
		table:       DefaultTable(),
		converter:   DefaultDrivetrain(),
		limiter:     NewSlewLimiter(DefaultMaxSlew),
		actuator:    noopActuator{},
		peakCurrent: DefaultPeakCurrent,
		initial:     IdleStance,
	}
	for _, opt := range opts {
		opt(c)
	}

	if !c.initial.Valid() {
		return nil, fmt.Errorf("initial state: %w: %d", ErrUnknownState, uint8(c.initial))
	}
	if err := c.table.Validate(); err != nil {
		return nil, err
	}
	if !(c.peakCurrent > 0) {
		return nil, fmt.Errorf("knee: peak current must be positive, got %g", c.peakCurrent)
	}

	c.state = c.initial
	return c, nil
}

// Step runs one control cycle.
//
// If the active state's exit condition holds for x the machine moves to the
// successor and returns without driving the actuator; the returned Impedance
// and Percent are those of the previous cycle. Otherwise the state's
// impedance law is evaluated and one Flex or Extend call is issued.
//
// Non-finite readings propagate. A NaN command is stored as the rate
// limiter's memory, and the slew limiter then passes the next finite target
// through unlimited.
func (c *Controller) Step(x SensorSample) Output {
	row := c.table[c.state]

	if row.Exit.Met(x) {
		c.state = row.Next
		c.dwell = 0
		return Output{
			State:        c.state,
			Impedance:    c.impedance,
			Percent:      c.previous,
			Transitioned: true,
		}
	}

	c.impedance = Impedance(x.Angle, x.Velocity, row.Stiffness, row.Damping, row.Equilibrium)
	c.current = c.converter.Current(c.impedance, x.Angle)

	percent := Saturate(c.current/c.peakCurrent, row.SaturationBound)
	c.previous = c.limiter.Limit(c.previous, percent)

	// Zero current goes to the extension side.
	if c.current <= 0 {
		c.actuator.Extend(-c.previous)
	} else {
		c.actuator.Flex(c.previous)
	}
	c.dwell++

	return Output{
		State:     c.state,
		Impedance: c.impedance,
		Percent:   c.previous,
	}
}

// StepRaw is Step for callers holding the four readings separately.
func (c *Controller) StepRaw(angle, velocity, loadCell1, loadCell2 float64) Output {
	return c.Step(SensorSample{Angle: angle, Velocity: velocity, LoadCell1: loadCell1, LoadCell2: loadCell2})
}

func (c *Controller) State() GaitState { return c.state }

// Previous is the last commanded duty fraction.
func (c *Controller) Previous() float64 { return c.previous }

// DesiredCurrent is the motor current computed on the last actuating cycle.
func (c *Controller) DesiredCurrent() float64 { return c.current }

// Dwell counts actuating cycles spent in the current state.
func (c *Controller) Dwell() uint64 { return c.dwell }

// Params returns the row driving the current state.
func (c *Controller) Params() StateParameters { return c.table[c.state] }

// Table returns a copy of the controller's parameter table.
func (c *Controller) Table() Table { return c.table }

// Reset returns to the initial state and clears the command history.
func (c *Controller) Reset() {
	c.state = c.initial
	c.previous = 0
	c.impedance = 0
	c.current = 0
	c.dwell = 0
}
