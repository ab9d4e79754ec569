// Package numeric holds working-type-generic scalar helpers shared across
// the operation library. The pipeline fixes its working type (float32 or
// float64) once at start-up (spec §3); every numeric kernel in internal/ops
// is written once against the Float constraint instead of being duplicated
// per concrete type.
package numeric

import "golang.org/x/exp/constraints"

// Float is the set of types the pipeline may use as its working precision.
type Float = constraints.Float

// IsNaN reports whether v is NaN, for any working float type. Mirrors the
// "!(v == v)" idiom spec §9 calls out as the canonical NaN test.
func IsNaN[T Float](v T) bool {
	return v != v
}

// Clamp restricts v to [lo, hi].
func Clamp[T Float](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampInt restricts v to [lo, hi] for any ordered integer type.
func ClampInt[T constraints.Integer](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Abs returns the absolute value of v.
func Abs[T Float](v T) T {
	if v < 0 {
		return -v
	}
	return v
}

// Max returns the greater of a and b, excluding NaN like the reference
// tool's "darkest/brightest" scans (spec §9): a NaN operand never wins.
func Max[T Float](a, b T) T {
	if IsNaN(a) {
		return b
	}
	if IsNaN(b) {
		return a
	}
	if a > b {
		return a
	}
	return b
}

// Min returns the lesser of a and b, with the same NaN-exclusion rule as Max.
func Min[T Float](a, b T) T {
	if IsNaN(a) {
		return b
	}
	if IsNaN(b) {
		return a
	}
	if a < b {
		return a
	}
	return b
}
