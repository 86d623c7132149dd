package knee

// CurrentConverter maps an impedance command at a given knee angle to the
// motor current that produces it.
type CurrentConverter interface {
	Current(impedance, angle float64) float64
}

// CurrentFunc adapts a plain function to CurrentConverter.
type CurrentFunc func(impedance, angle float64) float64

func (f CurrentFunc) Current(impedance, angle float64) float64 {
	return f(impedance, angle)
}

// Reference drivetrain calibration.
const (
	DefaultGearRatio      = 150.0
	DefaultTorqueConstant = 36.9 // mNm/A
	DefaultEfficiency     = 0.9
	DefaultPeakCurrent    = 20.0 // A
)

// Drivetrain converts joint torque (Nm) to motor current (A) through a
// gearbox with a fixed ratio and efficiency. The knee angle is ignored: the
// reference actuator drives the joint directly, with no linkage geometry.
type Drivetrain struct {
	GearRatio      float64 `yaml:"gear_ratio" json:"gear_ratio"`
	TorqueConstant float64 `yaml:"torque_constant" json:"torque_constant"` // mNm/A
	Efficiency     float64 `yaml:"efficiency" json:"efficiency"`
}

func DefaultDrivetrain() Drivetrain {
	return Drivetrain{
		GearRatio:      DefaultGearRatio,
		TorqueConstant: DefaultTorqueConstant,
		Efficiency:     DefaultEfficiency,
	}
}

// NmPerAmp is the joint torque produced by one amp of motor current.
func (d Drivetrain) NmPerAmp() float64 {
	return d.Efficiency * d.GearRatio * d.TorqueConstant / 1000
}

func (d Drivetrain) Current(impedance, angle float64) float64 {
	return impedance / d.NmPerAmp()
}

// Torque is the inverse of Current.
func (d Drivetrain) Torque(current float64) float64 {
	return current * d.NmPerAmp()
}
