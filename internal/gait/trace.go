// Package gait synthesises knee angle and load-cell streams for a walking
// limb. Each profile is a set of keyframes over one stride that are linearly
// interpolated and repeated.
package gait

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/antioch-orontes/kneecontrol/internal/sensor"
)

var (
	ErrUnknownProfile = errors.New("gait: unknown profile")
	ErrBadProfile     = errors.New("gait: invalid profile")
)

// Keyframe pins the knee angle and load-cell values at a fraction of the
// stride. Phase is in [0, 1).
type Keyframe struct {
	Phase     float64 `yaml:"phase"`
	Angle     float64 `yaml:"angle"`
	LoadCell1 float64 `yaml:"load_cell1"`
	LoadCell2 float64 `yaml:"load_cell2"`
}

type Profile struct {
	Name         string     `yaml:"name"`
	StridePeriod float64    `yaml:"stride_period"` // seconds
	Keyframes    []Keyframe `yaml:"keyframes"`
}

func (p Profile) Validate() error {
	if !(p.StridePeriod > 0) {
		return fmt.Errorf("%w: %s stride period %g", ErrBadProfile, p.Name, p.StridePeriod)
	}
	if len(p.Keyframes) < 2 {
		return fmt.Errorf("%w: %s needs at least two keyframes", ErrBadProfile, p.Name)
	}
	for i, k := range p.Keyframes {
		if k.Phase < 0 || k.Phase >= 1 {
			return fmt.Errorf("%w: %s keyframe %d phase %g outside [0, 1)", ErrBadProfile, p.Name, i, k.Phase)
		}
		if i > 0 && k.Phase <= p.Keyframes[i-1].Phase {
			return fmt.Errorf("%w: %s keyframe %d out of order", ErrBadProfile, p.Name, i)
		}
	}
	return nil
}

// Noise is the standard deviation of gaussian noise added per channel.
type Noise struct {
	Angle float64 `yaml:"angle"`
	Load  float64 `yaml:"load"`
}

// Trace samples a profile over time.
type Trace struct {
	profile Profile
	noise   Noise
	rng     *rand.Rand
}

func NewTrace(p Profile, noise Noise, seed int64) (*Trace, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Trace{
		profile: p,
		noise:   noise,
		rng:     rand.New(rand.NewSource(seed)),
	}, nil
}

// Phase maps a time to its fraction of the stride.
func (tr *Trace) Phase(t float64) float64 {
	ph := math.Mod(t/tr.profile.StridePeriod, 1)
	if ph < 0 {
		ph++
	}
	return ph
}

// Clean returns the noiseless reading at time t.
func (tr *Trace) Clean(t float64) sensor.Reading {
	ph := tr.Phase(t)
	kf := tr.profile.Keyframes
	n := len(kf)

	// Index of the last keyframe at or before ph, wrapping to the final
	// keyframe of the previous stride.
	i := sort.Search(n, func(j int) bool { return kf[j].Phase > ph }) - 1
	var a, b Keyframe
	var span, into float64
	if i < 0 {
		a, b = kf[n-1], kf[0]
		span = 1 - a.Phase + b.Phase
		into = 1 - a.Phase + ph
	} else {
		a = kf[i]
		if i+1 < n {
			b = kf[i+1]
			span = b.Phase - a.Phase
		} else {
			b = kf[0]
			span = 1 - a.Phase + b.Phase
		}
		into = ph - a.Phase
	}
	f := into / span

	return sensor.Reading{
		Time:      t,
		Angle:     lerp(a.Angle, b.Angle, f),
		LoadCell1: lerp(a.LoadCell1, b.LoadCell1, f),
		LoadCell2: lerp(a.LoadCell2, b.LoadCell2, f),
	}
}

// Read returns the reading at time t with noise applied.
func (tr *Trace) Read(t float64) (sensor.Reading, error) {
	r := tr.Clean(t)
	if tr.noise.Angle > 0 {
		r.Angle += tr.rng.NormFloat64() * tr.noise.Angle
	}
	if tr.noise.Load > 0 {
		r.LoadCell1 += tr.rng.NormFloat64() * tr.noise.Load
		r.LoadCell2 += tr.rng.NormFloat64() * tr.noise.Load
	}
	return r, nil
}

func lerp(a, b, f float64) float64 {
	return a + (b-a)*f
}
