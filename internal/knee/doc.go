// Package knee implements the finite-state impedance controller for a
// powered knee prosthesis.
//
// The controller is a five-state gait machine:
//
//   - [EarlyStance]: absorbs the heelstrike load
//   - [PreSwingStance]: holds the knee until toe-off
//   - [SwingFlexion]: lets the shank flex after toe-off
//   - [SwingExtension]: brings the shank back toward full extension
//   - [IdleStance]: rests near extension until the next heelstrike
//
// Each state owns a row of [StateParameters] (stiffness, damping,
// equilibrium angle, saturation bound and exit predicate). Every cycle the
// [Controller] either takes the active state's exit transition or runs the
// shared output pipeline:
//
//	impedance -> current -> percent -> saturate -> rate limit -> actuate
//
// # Usage
//
//	ctrl, _ := knee.NewController(knee.WithActuator(driver))
//	out := ctrl.Step(knee.SensorSample{Angle: 15, Velocity: 2, LoadCell1: 500, LoadCell2: 520})
//	// out.State, out.Impedance, out.Percent
//
// # Thread Safety
//
// Controller instances are NOT safe for concurrent use. A controller is owned
// by exactly one control loop and Step never blocks or allocates.
package knee
