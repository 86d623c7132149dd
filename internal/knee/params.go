package knee

import (
	"fmt"
	"math"
)

// Signal selects which live reading an exit condition compares.
type Signal uint8

const (
	SignalAngle Signal = iota
	SignalLoadDifference
	SignalLoadSum
)

func (s Signal) String() string {
	switch s {
	case SignalAngle:
		return "angle"
	case SignalLoadDifference:
		return "load_diff"
	case SignalLoadSum:
		return "load_sum"
	}
	return fmt.Sprintf("signal(%d)", uint8(s))
}

func (s Signal) read(x SensorSample) float64 {
	switch s {
	case SignalLoadDifference:
		return x.Difference()
	case SignalLoadSum:
		return x.Sum()
	}
	return x.Angle
}

// Condition is a single threshold test over one live reading. Both
// comparisons are inclusive.
type Condition struct {
	Signal    Signal
	AtLeast   bool
	Threshold float64
}

// AngleAtMost and friends build the conditions used by the default table.
func AngleAtMost(deg float64) Condition  { return Condition{Signal: SignalAngle, Threshold: deg} }
func AngleAtLeast(deg float64) Condition { return Condition{Signal: SignalAngle, AtLeast: true, Threshold: deg} }
func DiffAtMost(v float64) Condition     { return Condition{Signal: SignalLoadDifference, Threshold: v} }
func DiffAtLeast(v float64) Condition {
	return Condition{Signal: SignalLoadDifference, AtLeast: true, Threshold: v}
}

// Met evaluates the condition against a sample.
func (c Condition) Met(x SensorSample) bool {
	v := c.Signal.read(x)
	if c.AtLeast {
		return v >= c.Threshold
	}
	return v <= c.Threshold
}

func (c Condition) String() string {
	op := "<="
	if c.AtLeast {
		op = ">="
	}
	return fmt.Sprintf("%s %s %g", c.Signal, op, c.Threshold)
}

// StateParameters is the impedance law and exit rule of one gait state.
type StateParameters struct {
	Stiffness       float64
	Damping         float64
	Equilibrium     float64 // degrees
	SaturationBound float64 // duty fraction
	Exit            Condition
	Next            GaitState
}

// Table holds one row per gait state, indexed by GaitState.
type Table [numStates]StateParameters

// Row returns the parameters for s. s must be valid.
func (t *Table) Row(s GaitState) StateParameters {
	return t[s]
}

// Validate rejects tables whose rows could leave the controller outside the
// five states or produce an unbounded command.
func (t Table) Validate() error {
	for _, s := range States {
		row := t[s]
		if !row.Next.Valid() {
			return fmt.Errorf("%w: %s transitions to %w", ErrInvalidTable, s, ErrUnknownState)
		}
		if row.Next == s {
			return fmt.Errorf("%w: %s transitions to itself", ErrInvalidTable, s)
		}
		if row.Exit.Signal > SignalLoadSum {
			return fmt.Errorf("%w: %s exit reads unknown %s", ErrInvalidTable, s, row.Exit.Signal)
		}
		if !(row.SaturationBound > 0 && row.SaturationBound <= 1) {
			return fmt.Errorf("%w: %s saturation bound %g outside (0, 1]", ErrInvalidTable, s, row.SaturationBound)
		}
		for name, v := range map[string]float64{
			"stiffness":   row.Stiffness,
			"damping":     row.Damping,
			"equilibrium": row.Equilibrium,
			"threshold":   row.Exit.Threshold,
		} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: %s %s is not finite", ErrInvalidTable, s, name)
			}
		}
	}
	return nil
}

// Transition thresholds enforced by the default table.
const (
	HeelstrikeDiff  = 40.0 // IdleStance -> EarlyStance when diff <= this
	StanceFlexAngle = 10.0 // EarlyStance -> PreSwingStance when angle <= this
	ToeOffDiff      = 80.0 // PreSwingStance -> SwingFlexion when diff >= this
	SwingFlexAngle  = 40.0 // SwingFlexion -> SwingExtension when angle >= this
	SwingExtAngle   = 5.0  // SwingExtension -> IdleStance when angle <= this
)

const (
	StanceBound = 0.22
	SwingBound  = 0.15
)

// DefaultTable returns the calibrated gains for the reference knee.
func DefaultTable() Table {
	var t Table
	t[EarlyStance] = StateParameters{
		Stiffness: 1.50, Damping: 0.0005, Equilibrium: 10, SaturationBound: StanceBound,
		Exit: AngleAtMost(StanceFlexAngle), Next: PreSwingStance,
	}
	t[PreSwingStance] = StateParameters{
		Stiffness: 0.6, Damping: 0.001, Equilibrium: 8, SaturationBound: StanceBound,
		Exit: DiffAtLeast(ToeOffDiff), Next: SwingFlexion,
	}
	t[SwingFlexion] = StateParameters{
		Stiffness: 0.24, Damping: 0.005, Equilibrium: 40, SaturationBound: SwingBound,
		Exit: AngleAtLeast(SwingFlexAngle), Next: SwingExtension,
	}
	t[SwingExtension] = StateParameters{
		Stiffness: 0.22, Damping: 0.006, Equilibrium: 5, SaturationBound: SwingBound,
		Exit: AngleAtMost(SwingExtAngle), Next: IdleStance,
	}
	t[IdleStance] = StateParameters{
		Stiffness: 0.40, Damping: 0.006, Equilibrium: 5, SaturationBound: StanceBound,
		Exit: DiffAtMost(HeelstrikeDiff), Next: EarlyStance,
	}
	return t
}

// Window is an inclusive [Min, Max] range.
type Window struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

func (w Window) Contains(v float64) bool {
	return v >= w.Min && v <= w.Max
}

// Thresholds records the secondary load-sum, load-difference and angle
// window limits characterised for each transition. The controller does not
// enforce them; only the single condition in each Table row gates a
// transition. They are stored with each saved run for rig tuning.
type Thresholds struct {
	HeelstrikeSum    float64 `yaml:"heelstrike_sum" json:"heelstrike_sum"`
	HeelstrikeWindow Window  `yaml:"heelstrike_window" json:"heelstrike_window"`
	StanceFlexSum    float64 `yaml:"stanceflex_sum" json:"stanceflex_sum"`
	StanceFlexDiff   float64 `yaml:"stanceflex_diff" json:"stanceflex_diff"`
	ToeOffSum        float64 `yaml:"toeoff_sum" json:"toeoff_sum"`
	ToeOffWindow     Window  `yaml:"toeoff_window" json:"toeoff_window"`
	SwingFlexSum     float64 `yaml:"swingflex_sum" json:"swingflex_sum"`
	SwingFlexDiff    float64 `yaml:"swingflex_diff" json:"swingflex_diff"`
	SwingExtSum      float64 `yaml:"swingext_sum" json:"swingext_sum"`
	SwingExtDiff     float64 `yaml:"swingext_diff" json:"swingext_diff"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		HeelstrikeSum:    950,
		HeelstrikeWindow: Window{Min: 0, Max: 5},
		StanceFlexSum:    965,
		StanceFlexDiff:   25,
		ToeOffSum:        950,
		ToeOffWindow:     Window{Min: 0, Max: 10},
		SwingFlexSum:     950,
		SwingFlexDiff:    60,
		SwingExtSum:      925,
		SwingExtDiff:     50,
	}
}
