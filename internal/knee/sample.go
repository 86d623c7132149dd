package knee

// SensorSample is the per-cycle input tuple.
type SensorSample struct {
	Angle     float64 // degrees
	Velocity  float64 // degrees per second
	LoadCell1 float64
	LoadCell2 float64
}

// Sum is the total axial load.
func (x SensorSample) Sum() float64 {
	return x.LoadCell1 + x.LoadCell2
}

// Difference is LoadCell2 - LoadCell1. It falls for heel-biased loads and
// rises for toe-biased loads.
func (x SensorSample) Difference() float64 {
	return x.LoadCell2 - x.LoadCell1
}

// Output is what the controller reports for one cycle.
type Output struct {
	State     GaitState
	Impedance float64
	Percent   float64

	// Transitioned is set when the cycle was spent switching state. Impedance
	// and Percent then repeat the previous command and no actuator was driven.
	Transitioned bool
}
