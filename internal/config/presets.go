package config

import (
	"sort"

	"github.com/antioch-orontes/kneecontrol/internal/gait"
)

func float(v float64) *float64 { return &v }

// Presets adjust the default config for common bench sessions.
var Presets = map[string]func(*Config){
	"level": func(c *Config) {
		c.Gait.Profile = "level"
		c.Loop.Duration = 12
	},
	"brisk": func(c *Config) {
		c.Gait.Profile = "brisk"
		c.Loop.Duration = 10
		c.Gait.Noise = gait.Noise{Angle: 0.2, Load: 3}
	},
	"slow": func(c *Config) {
		c.Gait.Profile = "slow"
		c.Loop.Duration = 16
	},
	"stumble": func(c *Config) {
		c.Gait.Profile = "stumble"
		c.Loop.Duration = 5
	},
	// Softer stance and a gentler slew for first fittings.
	"compliant": func(c *Config) {
		c.Gait.Profile = "level"
		c.Loop.Duration = 12
		c.Controller.MaxSlew = 0.002
		c.Controller.States = map[string]StateConfig{
			"early_stance": {Stiffness: float(0.9)},
			"pre_swing":    {Stiffness: float(0.4)},
		}
	},
	"noisy": func(c *Config) {
		c.Gait.Profile = "level"
		c.Loop.Duration = 12
		c.Gait.Noise = gait.Noise{Angle: 0.5, Load: 6}
	},
}

// GetPreset returns a fresh config with the named preset applied, or nil.
func GetPreset(name string) *Config {
	apply, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	apply(cfg)
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
