// Package arith implements elementwise arithmetic primitives (spec §4.1
// item 5, §4.11): unary, binary (scalar or broadcast volume), and fused
// multiply-add over a buffer. Every operation library function in
// internal/ops that is "just elementwise math" composes these instead of
// writing its own loop, mirroring how the teacher's internal/dsp package
// centralises per-pixel row kernels (MultRow, AddGreenToBlueAndRed, ...)
// that the codec layers call rather than duplicating.
package arith

import "github.com/voxelmath/voxelmath/internal/numeric"

// UnaryFunc maps one value to another.
type UnaryFunc[T numeric.Float] func(T) T

// Unary applies f to every element of dst (dst and src may alias for
// in-place application).
func Unary[T numeric.Float](dst, src []T, f UnaryFunc[T]) {
	for i, v := range src {
		dst[i] = f(v)
	}
}

// BinaryFunc combines two values.
type BinaryFunc[T numeric.Float] func(a, b T) T

// BinaryScalar applies f(v, scalar) elementwise.
func BinaryScalar[T numeric.Float](dst, src []T, scalar T, f BinaryFunc[T]) {
	for i, v := range src {
		dst[i] = f(v, scalar)
	}
}

// BinaryBuffers applies f(a[i], b[i]) elementwise. If b is shorter than a
// (the "broadcast over the smaller-rank axis" case in spec §4.1 item 5,
// e.g. a 4D series combined with one 3D volume), b's index wraps modulo
// len(b).
func BinaryBuffers[T numeric.Float](dst, a, b []T, f BinaryFunc[T]) {
	if len(b) == 0 {
		copy(dst, a)
		return
	}
	for i, av := range a {
		dst[i] = f(av, b[i%len(b)])
	}
}

// FMA computes dst[i] = a[i]*scale + add[i] (fused multiply-add over a
// buffer, spec §4.1 item 5). add may be nil to mean "add nothing".
func FMA[T numeric.Float](dst, a []T, scale T, add []T) {
	if add == nil {
		for i, v := range a {
			dst[i] = v * scale
		}
		return
	}
	for i, v := range a {
		dst[i] = v*scale + add[i%len(add)]
	}
}

// Add, Sub, Mul, Div are the canonical BinaryFuncs for spec §4.11's
// add/sub/mul/div operations.
func Add[T numeric.Float](a, b T) T { return a + b }
func Sub[T numeric.Float](a, b T) T { return a - b }
func Mul[T numeric.Float](a, b T) T { return a * b }

// Div divides a by b, returning 0 when b == 0 (fslmaths' documented
// div-by-zero behaviour: the result is silently zero, not +-Inf/NaN).
func Div[T numeric.Float](a, b T) T {
	if b == 0 {
		return 0
	}
	return a / b
}

// Max, Min exclude NaN per spec §9: a NaN operand never wins.
func Max[T numeric.Float](a, b T) T { return numeric.Max(a, b) }
func Min[T numeric.Float](a, b T) T { return numeric.Min(a, b) }

// Mas applies a mask: result is a where b != 0, else 0.
func Mas[T numeric.Float](a, b T) T {
	if b == 0 {
		return 0
	}
	return a
}

// Rem implements spec's "rem" (C-style truncating remainder, float form).
func Rem[T numeric.Float](a, b T) T {
	if b == 0 {
		return 0
	}
	q := T(int64(a / b))
	return a - q*b
}

// Mod implements spec's "mod" (floored remainder, always same sign as b).
func Mod[T numeric.Float](a, b T) T {
	if b == 0 {
		return 0
	}
	r := Rem(a, b)
	if r != 0 && (r < 0) != (b < 0) {
		r += b
	}
	return r
}

// Power raises a to exponent b. Negative bases with non-integer exponents
// are defined to be 0, matching the reference tool's "undefined -> 0"
// convention for this operation family.
func Power[T numeric.Float](a, b T) T {
	if a < 0 && b != T(int64(b)) {
		return 0
	}
	return pow(a, b)
}
