package knee

// Impedance is the virtual spring-damper law
//
//	stiffness*(angle-equilibrium) + damping*velocity
//
// Non-finite inputs propagate to the result.
func Impedance(angle, velocity, stiffness, damping, equilibrium float64) float64 {
	return stiffness*(angle-equilibrium) + damping*velocity
}
