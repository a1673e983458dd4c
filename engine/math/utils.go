package math

import (
	"github.com/chewxy/math32"
	"golang.org/x/exp/constraints"
)

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

// Max returns the larger of a and b.
func Max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// DivUp is the integer ceiling of a / b.
func DivUp[T constraints.Unsigned](a, b T) T {
	return (a + b - 1) / b
}

/**
 * @brief Converts provided degrees to radians.
 */
func DegToRad(degrees float32) float32 {
	return degrees * K_DEG2RAD_MULTIPLIER
}

/**
 * @brief Indicates if the two values are within tolerance of each other.
 */
func FloatCompare(a, b, tolerance float32) bool {
	return math32.Abs(a-b) <= tolerance
}
