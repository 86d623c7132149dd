package loop

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/antioch-orontes/kneecontrol/internal/actuator"
	"github.com/antioch-orontes/kneecontrol/internal/knee"
	"github.com/antioch-orontes/kneecontrol/internal/sensor"
	"github.com/antioch-orontes/kneecontrol/internal/telemetry"
)

var log = logrus.WithFields(logrus.Fields{
	"pkg": "loop",
})

type Runner struct {
	source    Source
	ctrl      *knee.Controller
	driver    *actuator.Driver
	sinks     telemetry.Multi
	metrics   []Metric
	observers []Observer
}

// New wires a source to a controller. driver is the controller's actuator
// and may be nil, in which case no current is measured.
func New(source Source, ctrl *knee.Controller, driver *actuator.Driver) *Runner {
	return &Runner{
		source:    source,
		ctrl:      ctrl,
		driver:    driver,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
	}
}

func (r *Runner) AddSink(s telemetry.Sink)     { r.sinks = append(r.sinks, s) }
func (r *Runner) AddMetric(m Metric)           { r.metrics = append(r.metrics, m) }
func (r *Runner) AddObserver(o Observer)       { r.observers = append(r.observers, o) }
func (r *Runner) Controller() *knee.Controller { return r.ctrl }

// Session is a run in progress, advanced one cycle at a time.
type Session struct {
	r       *Runner
	cfg     Config
	diff    *sensor.Differentiator
	monitor *sensor.CurrentMonitor
	cycle   uint64
	limit   uint64

	transitions []Transition
}

// Start resets the metrics and prepares a session. The controller and
// driver keep whatever state they hold.
func (r *Runner) Start(cfg Config) (*Session, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	diff, err := sensor.NewDifferentiator(cfg.Cutoff, cfg.Period)
	if err != nil {
		return nil, err
	}
	monitor, err := sensor.NewCurrentMonitor(cfg.Smoothing, cfg.MonitorGain)
	if err != nil {
		return nil, err
	}
	for _, m := range r.metrics {
		m.Reset()
	}
	if r.driver != nil {
		monitor.Prime(r.driver.Current())
		r.driver.Enable()
	}
	return &Session{
		r:       r,
		cfg:     cfg,
		diff:    diff,
		monitor: monitor,
		limit:   uint64(cfg.Cycles()),
	}, nil
}

// Done reports whether the configured duration has elapsed.
func (s *Session) Done() bool { return s.cycle >= s.limit }

func (s *Session) Time() float64 { return float64(s.cycle) * s.cfg.Period }

// Transitions returns the state changes seen so far.
func (s *Session) Transitions() []Transition { return s.transitions }

// Next runs one control cycle.
func (s *Session) Next() (telemetry.Frame, error) {
	t := s.Time()
	reading, err := s.r.source.Read(t)
	if err != nil {
		return telemetry.Frame{}, &RunError{Cycle: s.cycle, Time: t, Wrapped: err}
	}

	x := knee.SensorSample{
		Angle:     reading.Angle,
		Velocity:  s.diff.Update(reading.Angle),
		LoadCell1: reading.LoadCell1,
		LoadCell2: reading.LoadCell2,
	}
	from := s.r.ctrl.State()
	out := s.r.ctrl.Step(x)

	amps := 0.0
	if s.r.driver != nil {
		amps = s.monitor.UpdateAmps(s.r.driver.Current())
	}

	// Both torque channels use the bus convention, the negated impedance.
	f := telemetry.Frame{
		Cycle:          s.cycle,
		Time:           t,
		State:          out.State,
		Transitioned:   out.Transitioned,
		Angle:          x.Angle,
		Velocity:       x.Velocity,
		LoadCell1:      x.LoadCell1,
		LoadCell2:      x.LoadCell2,
		Impedance:      out.Impedance,
		DesiredTorque:  -out.Impedance,
		Percent:        out.Percent,
		DutyCycle:      100 * out.Percent,
		MeasuredTorque: -s.cfg.Drivetrain.Torque(amps),
	}

	if out.Transitioned {
		s.transitions = append(s.transitions, Transition{Cycle: s.cycle, Time: t, From: from, To: out.State})
		log.WithFields(logrus.Fields{
			"cycle": s.cycle,
			"from":  from,
			"to":    out.State,
			"angle": x.Angle,
			"diff":  x.Difference(),
		}).Debug("gait transition")
	}

	for _, m := range s.r.metrics {
		m.Observe(f)
	}
	for _, o := range s.r.observers {
		o.OnFrame(f)
	}
	s.cycle++

	if err := s.r.sinks.Publish(f); err != nil {
		return f, &RunError{Cycle: f.Cycle, Time: t, Wrapped: err}
	}
	return f, nil
}

// Metrics returns the current value of every registered metric.
func (s *Session) Metrics() map[string]float64 {
	out := make(map[string]float64, len(s.r.metrics))
	for _, m := range s.r.metrics {
		out[m.Name()] = m.Value()
	}
	return out
}

// Stop inhibits the driver.
func (s *Session) Stop() {
	if s.r.driver != nil {
		s.r.driver.Inhibit()
	}
}

// Run executes cfg.Duration worth of cycles. A source running dry ends the
// run early without error.
func (r *Runner) Run(ctx context.Context, cfg Config) (*Result, error) {
	sess, err := r.Start(cfg)
	if err != nil {
		return nil, err
	}
	defer sess.Stop()

	result := &Result{
		Metrics: make(map[string]float64),
	}
	if cfg.Record {
		result.Frames = make([]telemetry.Frame, 0, cfg.Cycles())
	}

	for !sess.Done() {
		select {
		case <-ctx.Done():
			result.Transitions = sess.Transitions()
			return result, ctx.Err()
		default:
		}

		f, err := sess.Next()
		if errors.Is(err, ErrSourceExhausted) {
			break
		}
		if err != nil {
			return result, err
		}
		result.Cycles++
		if cfg.Record {
			result.Frames = append(result.Frames, f)
		}
	}

	result.Transitions = sess.Transitions()
	result.Metrics = sess.Metrics()

	log.WithFields(logrus.Fields{
		"cycles":      result.Cycles,
		"transitions": len(result.Transitions),
		"state":       r.ctrl.State(),
	}).Info("run complete")

	return result, nil
}

// RunWithCallback streams frames to callback until the duration elapses or
// callback returns false.
func (r *Runner) RunWithCallback(ctx context.Context, cfg Config, callback func(telemetry.Frame) bool) error {
	sess, err := r.Start(cfg)
	if err != nil {
		return err
	}
	defer sess.Stop()

	for !sess.Done() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		f, err := sess.Next()
		if errors.Is(err, ErrSourceExhausted) {
			return nil
		}
		if err != nil {
			return err
		}
		if !callback(f) {
			return nil
		}
	}

	return nil
}
