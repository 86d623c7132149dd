package gait

import (
	"fmt"
	"sort"
)

// Level-ground stride. Heelstrike lands heel-biased with the knee slightly
// flexed, stance flexion peaks near 18 deg, the load moves to the toe before
// toe-off and swing flexion peaks near 62 deg.
var levelKeyframes = []Keyframe{
	{Phase: 0.00, Angle: 12, LoadCell1: 520, LoadCell2: 440},
	{Phase: 0.12, Angle: 18, LoadCell1: 500, LoadCell2: 470},
	{Phase: 0.30, Angle: 8, LoadCell1: 470, LoadCell2: 500},
	{Phase: 0.50, Angle: 6, LoadCell1: 420, LoadCell2: 560},
	{Phase: 0.60, Angle: 35, LoadCell1: 60, LoadCell2: 150},
	{Phase: 0.72, Angle: 62, LoadCell1: 20, LoadCell2: 90},
	{Phase: 0.90, Angle: 3, LoadCell1: 20, LoadCell2: 80},
	{Phase: 0.96, Angle: 12, LoadCell1: 200, LoadCell2: 250},
}

var profiles = map[string]func() Profile{
	"level": func() Profile {
		return Profile{Name: "level", StridePeriod: 1.2, Keyframes: clone(levelKeyframes)}
	},
	"brisk": func() Profile {
		kf := clone(levelKeyframes)
		kf[5].Angle = 66
		kf[3].LoadCell2 = 600
		return Profile{Name: "brisk", StridePeriod: 0.95, Keyframes: kf}
	},
	"slow": func() Profile {
		kf := clone(levelKeyframes)
		kf[1].Angle = 15
		kf[5].Angle = 55
		return Profile{Name: "slow", StridePeriod: 1.6, Keyframes: kf}
	},
	// The toe never loads enough to register toe-off, so the limb stays in
	// pre-swing stance after the first stride.
	"stumble": func() Profile {
		kf := clone(levelKeyframes)
		for i := range kf {
			kf[i].LoadCell1, kf[i].LoadCell2 = 480, 520
		}
		kf[0].LoadCell2 = 480
		return Profile{Name: "stumble", StridePeriod: 1.2, Keyframes: kf}
	},
}

// Lookup returns a copy of a built-in profile.
func Lookup(name string) (Profile, error) {
	fn, ok := profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %s", ErrUnknownProfile, name)
	}
	return fn(), nil
}

func Names() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func clone(kf []Keyframe) []Keyframe {
	out := make([]Keyframe, len(kf))
	copy(out, kf)
	return out
}
