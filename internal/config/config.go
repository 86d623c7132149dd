package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/antioch-orontes/kneecontrol/internal/gait"
	"github.com/antioch-orontes/kneecontrol/internal/knee"
	"github.com/antioch-orontes/kneecontrol/internal/loop"
	"github.com/antioch-orontes/kneecontrol/internal/sensor"
)

const (
	DefaultPeriod   = 0.001
	DefaultDuration = 10.0
	DefaultProfile  = "level"
)

var ErrInvalid = errors.New("config: invalid")

type Config struct {
	Loop       LoopConfig       `yaml:"loop"`
	Controller ControllerConfig `yaml:"controller"`
	Drivetrain knee.Drivetrain  `yaml:"drivetrain"`
	Filter     FilterConfig     `yaml:"filter"`
	Gait       GaitConfig       `yaml:"gait"`
}

type LoopConfig struct {
	Period   float64 `yaml:"period"`
	Duration float64 `yaml:"duration"`
	Seed     int64   `yaml:"seed"`
	Record   bool    `yaml:"record"`
}

type ControllerConfig struct {
	PeakCurrent  float64                `yaml:"peak_current"`
	MaxSlew      float64                `yaml:"max_slew"`
	InitialState knee.GaitState         `yaml:"initial_state"`
	States       map[string]StateConfig `yaml:"states,omitempty"`
	Thresholds   knee.Thresholds        `yaml:"thresholds"`
}

// StateConfig overrides one row of the parameter table. Zero fields keep the
// default row's value, except Exit which replaces the whole condition when
// its Signal is set.
type StateConfig struct {
	Stiffness   *float64   `yaml:"stiffness,omitempty"`
	Damping     *float64   `yaml:"damping,omitempty"`
	Equilibrium *float64   `yaml:"equilibrium,omitempty"`
	Bound       *float64   `yaml:"bound,omitempty"`
	Exit        ExitConfig `yaml:"exit,omitempty"`
	Next        string     `yaml:"next,omitempty"`
}

type ExitConfig struct {
	Signal    string  `yaml:"signal,omitempty"` // angle, load_diff or load_sum
	Op        string  `yaml:"op,omitempty"`     // <= or >=
	Threshold float64 `yaml:"threshold,omitempty"`
}

type FilterConfig struct {
	Cutoff      float64 `yaml:"cutoff"`
	Smoothing   float64 `yaml:"smoothing"`
	MonitorGain float64 `yaml:"monitor_gain"`
}

type GaitConfig struct {
	Profile      string     `yaml:"profile"`
	StridePeriod float64    `yaml:"stride_period,omitempty"`
	Noise        gait.Noise `yaml:"noise"`
}

func DefaultConfig() *Config {
	return &Config{
		Loop: LoopConfig{
			Period:   DefaultPeriod,
			Duration: DefaultDuration,
			Record:   true,
		},
		Controller: ControllerConfig{
			PeakCurrent:  knee.DefaultPeakCurrent,
			MaxSlew:      knee.DefaultMaxSlew,
			InitialState: knee.IdleStance,
			Thresholds:   knee.DefaultThresholds(),
		},
		Drivetrain: knee.DefaultDrivetrain(),
		Filter: FilterConfig{
			Cutoff:      sensor.DefaultCutoff,
			Smoothing:   sensor.DefaultSmoothing,
			MonitorGain: sensor.DefaultMonitorGain,
		},
		Gait: GaitConfig{
			Profile: DefaultProfile,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if _, err := c.Table(); err != nil {
		return err
	}
	if !(c.Controller.PeakCurrent > 0) {
		return fmt.Errorf("%w: peak_current must be positive, got %g", ErrInvalid, c.Controller.PeakCurrent)
	}
	if c.Controller.MaxSlew < 0 {
		return fmt.Errorf("%w: max_slew must not be negative, got %g", ErrInvalid, c.Controller.MaxSlew)
	}
	if _, err := c.Profile(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if c.Gait.Noise.Angle < 0 || c.Gait.Noise.Load < 0 {
		return fmt.Errorf("%w: noise must not be negative", ErrInvalid)
	}
	return nil
}

// Table applies the state overrides to the default parameter table.
func (c *Config) Table() (knee.Table, error) {
	t := knee.DefaultTable()
	for name, sc := range c.Controller.States {
		s, err := knee.ParseState(name)
		if err != nil {
			return t, fmt.Errorf("%w: %w", ErrInvalid, err)
		}
		row := &t[s]
		setIf(&row.Stiffness, sc.Stiffness)
		setIf(&row.Damping, sc.Damping)
		setIf(&row.Equilibrium, sc.Equilibrium)
		setIf(&row.SaturationBound, sc.Bound)
		if sc.Exit.Signal != "" {
			cond, err := sc.Exit.condition()
			if err != nil {
				return t, fmt.Errorf("%w: %s: %w", ErrInvalid, name, err)
			}
			row.Exit = cond
		}
		if sc.Next != "" {
			if row.Next, err = knee.ParseState(sc.Next); err != nil {
				return t, fmt.Errorf("%w: %s next: %w", ErrInvalid, name, err)
			}
		}
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return t, nil
}

func setIf(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func (e ExitConfig) condition() (knee.Condition, error) {
	var cond knee.Condition
	switch e.Signal {
	case "angle":
		cond.Signal = knee.SignalAngle
	case "load_diff":
		cond.Signal = knee.SignalLoadDifference
	case "load_sum":
		cond.Signal = knee.SignalLoadSum
	default:
		return cond, fmt.Errorf("unknown exit signal %q", e.Signal)
	}
	switch e.Op {
	case "<=", "":
	case ">=":
		cond.AtLeast = true
	default:
		return cond, fmt.Errorf("unknown exit op %q", e.Op)
	}
	cond.Threshold = e.Threshold
	return cond, nil
}

// Options builds the controller options for this config. The actuator is
// supplied by the caller.
func (c *Config) Options() ([]knee.Option, error) {
	table, err := c.Table()
	if err != nil {
		return nil, err
	}
	var limiter knee.RateLimiter = knee.NewSlewLimiter(c.Controller.MaxSlew)
	if c.Controller.MaxSlew == 0 {
		limiter = knee.Unlimited{}
	}
	return []knee.Option{
		knee.WithTable(table),
		knee.WithCurrentConverter(c.Drivetrain),
		knee.WithRateLimiter(limiter),
		knee.WithPeakCurrent(c.Controller.PeakCurrent),
		knee.WithInitialState(c.Controller.InitialState),
	}, nil
}

func (c *Config) LoopConfig() loop.Config {
	return loop.Config{
		Period:      c.Loop.Period,
		Duration:    c.Loop.Duration,
		Cutoff:      c.Filter.Cutoff,
		Smoothing:   c.Filter.Smoothing,
		MonitorGain: c.Filter.MonitorGain,
		Drivetrain:  c.Drivetrain,
		Record:      c.Loop.Record,
	}
}

// Profile resolves the gait profile, applying the stride period override.
func (c *Config) Profile() (gait.Profile, error) {
	p, err := gait.Lookup(c.Gait.Profile)
	if err != nil {
		return p, err
	}
	if c.Gait.StridePeriod > 0 {
		p.StridePeriod = c.Gait.StridePeriod
	}
	return p, nil
}
