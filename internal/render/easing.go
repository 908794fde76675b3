package render

import "math"

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// EaseOutCubic is 1 - (1-t)^3.
func EaseOutCubic(t float64) float64 {
	t = clamp01(t)
	u := 1 - t
	return 1 - u*u*u
}

// EaseInOutSine is (1 - cos(t*pi)) / 2.
func EaseInOutSine(t float64) float64 {
	return (1 - math.Cos(clamp01(t)*math.Pi)) / 2
}
