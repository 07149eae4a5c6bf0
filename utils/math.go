package utils

import (
	"math"
)

// DegToRad converts degrees to radians.
func DegToRad(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(radians float64) float64 {
	return radians * 180 / math.Pi
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampInt limits v to [lo, hi].
func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// MaxInt returns the maximum of two ints.
func MaxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// MinInt returns the minimum of two ints.
func MinInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Square returns n*n. Math.pow( x, 2 ) is slow, this is faster.
func Square(n float64) float64 {
	return n * n
}

// Lerp linearly interpolates from a (t = 0) to b (t = 1).
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// Float64AlmostEqual compares two floats with a tolerance.
func Float64AlmostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) <= epsilon
}
