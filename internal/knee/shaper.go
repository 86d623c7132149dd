package knee

import "math"

// Saturate clamps value to [-bound, bound].
func Saturate(value, bound float64) float64 {
	if value >= bound {
		return bound
	}
	if value <= -bound {
		return -bound
	}
	return value
}

// RateLimiter bounds how far the command may move in one cycle.
type RateLimiter interface {
	Limit(previous, target float64) float64
}

// DefaultMaxSlew is the largest duty change allowed per control cycle.
// At 1 kHz the stance bound of 0.22 is reached from rest in 44 ms.
const DefaultMaxSlew = 0.005

// SlewLimiter moves toward the target by at most MaxStep per call and never
// overshoots it.
type SlewLimiter struct {
	MaxStep float64
}

func NewSlewLimiter(maxStep float64) SlewLimiter {
	return SlewLimiter{MaxStep: math.Abs(maxStep)}
}

func (l SlewLimiter) Limit(previous, target float64) float64 {
	delta := target - previous
	switch {
	case delta > l.MaxStep:
		return previous + l.MaxStep
	case delta < -l.MaxStep:
		return previous - l.MaxStep
	}
	return target
}

// Unlimited passes the target straight through.
type Unlimited struct{}

func (Unlimited) Limit(_, target float64) float64 { return target }
