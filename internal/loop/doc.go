// Package loop drives the knee controller at a fixed control period.
//
// Each cycle a [Runner] reads a raw acquisition from its [Source], derives
// angular velocity with the practical differentiator, steps the
// [knee.Controller], reads back the motor current through the current
// monitor and publishes one [telemetry.Frame] to its sinks, metrics and
// observers.
//
// # Usage
//
//	drv := actuator.NewDriver(knee.DefaultPeakCurrent)
//	ctrl, _ := knee.NewController(knee.WithActuator(drv))
//	r := loop.New(trace, ctrl, drv)
//	r.AddMetric(metrics.NewControlEffort())
//	result, _ := r.Run(ctx, loop.DefaultConfig())
//
// # Thread Safety
//
// A Runner and the controller it owns are NOT thread-safe. Use [Ensemble]
// to run several independently built runners in parallel.
package loop
