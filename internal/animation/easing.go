package animation

import (
	"math"

	"github.com/tablecore/engine/internal/types"
)

// EaseFunc is a closed-form interpolation curve with f(0)=0 and f(1)=1
// (spec.md 4.5). Every curve here is monotonic on [0,1] except elasticOut,
// which overshoots 1 before settling.
type EaseFunc func(t float64) float64

func linear(t float64) float64 { return t }

func cubicIn(t float64) float64 { return t * t * t }

func cubicOut(t float64) float64 {
	u := t - 1
	return u*u*u + 1
}

func cubicInOut(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	u := -2*t + 2
	return 1 - u*u*u/2
}

// elasticOut matches the conventional elastic-out easing curve: an
// exponentially-decaying sine overshoot settling on 1.
func elasticOut(t float64) float64 {
	if t == 0 || t == 1 {
		return t
	}
	const c4 = 2 * math.Pi / 3
	return math.Pow(2, -10*t)*math.Sin((t*10-0.75)*c4) + 1
}

// resolveEasing maps an Easing name to its EaseFunc, defaulting to linear
// for an unrecognized or empty name.
func resolveEasing(e types.Easing) EaseFunc {
	switch e {
	case types.EasingCubicIn:
		return cubicIn
	case types.EasingCubicOut:
		return cubicOut
	case types.EasingCubicInOut:
		return cubicInOut
	case types.EasingElasticOut:
		return elasticOut
	default:
		return linear
	}
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }

func clamp01(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}
