// Package affine implements the 4x4 spatial transform carried by every
// Volume (spec §3: "Affine") and the helpers resize/subsample use to
// update it (spec §4.6).
//
// The 4x4 itself is a plain [4][4]float64 rather than a library type:
// golang.org/x/image/math/f64 (pulled in for AxisPair below) only defines
// a 2D Vec2/Aff3 pair, nothing 4x4 — see DESIGN.md for why the core
// matrix stays hand-rolled. AxisPair composition, which genuinely is a 2D
// affine problem (one scale+translate per axis, composed two axes at a
// time), is built on f64.Aff3 instead of a second hand-rolled type.
// resize and subsample update the 4x4 through ScaleAxis, Translate and
// DoubleLinear; they do not use AxisPair.
package affine

import "golang.org/x/image/math/f64"

// Matrix is a 4x4 affine transform mapping voxel coordinates to world
// coordinates. Invariant (spec §3): the last row is (0,0,0,1).
type Matrix [4][4]float64

// Identity returns the 4x4 identity transform.
func Identity() Matrix {
	var m Matrix
	for i := 0; i < 4; i++ {
		m[i][i] = 1
	}
	return m
}

// Det3 returns the determinant of the 3x3 upper-left block, whose sign
// determines voxel orientation handedness (spec §3).
func (m Matrix) Det3() float64 {
	a, b, c := m[0][0], m[0][1], m[0][2]
	d, e, f := m[1][0], m[1][1], m[1][2]
	g, h, i := m[2][0], m[2][1], m[2][2]
	return a*(e*i-f*h) - b*(d*i-f*g) + c*(d*h-e*g)
}

// IsRightHanded reports whether the 3x3 upper-left block has positive
// determinant.
func (m Matrix) IsRightHanded() bool {
	return m.Det3() > 0
}

// ScaleAxis divides column axis (0=x, 1=y, 2=z) of the linear part by
// factor, used by resize (spec §4.6: "the linear part's columns divide by
// the per-axis scale; translation is preserved").
func (m Matrix) ScaleAxis(axis int, factor float64) Matrix {
	out := m
	if factor == 0 {
		return out
	}
	for row := 0; row < 3; row++ {
		out[row][axis] /= factor
	}
	return out
}

// Translate adds (dx, dy, dz) to the translation column, preserving the
// linear part. Used by subsamp2/subsamp2offc origin shifts (spec §4.6).
func (m Matrix) Translate(dx, dy, dz float64) Matrix {
	out := m
	out[0][3] += dx
	out[1][3] += dy
	out[2][3] += dz
	return out
}

// DoubleLinear doubles every entry of the 3x3 linear part, used by
// subsamp2's "linear part doubles" rule.
func (m Matrix) DoubleLinear() Matrix {
	out := m
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			out[row][col] *= 2
		}
	}
	return out
}

// AxisPair is a 2D (scale, translate) affine for one pair of axes,
// represented with golang.org/x/image/math/f64.Aff3. It is standalone:
// nothing folds an AxisPair back into a 4x4 Matrix.
type AxisPair struct {
	aff f64.Aff3
}

// NewAxisPair builds an AxisPair whose diagonal holds (sx, sy) and whose
// translation column holds (tx, ty); off-diagonal terms are zero because
// resize/subsample never rotates axes relative to each other.
func NewAxisPair(sx, tx, sy, ty float64) AxisPair {
	return AxisPair{aff: f64.Aff3{sx, 0, tx, 0, sy, ty}}
}

// Apply transforms a 2D point through the axis pair.
func (p AxisPair) Apply(x, y float64) (float64, float64) {
	return p.aff[0]*x + p.aff[1]*y + p.aff[2], p.aff[3]*x + p.aff[4]*y + p.aff[5]
}

// ScaleX returns the x-axis scale component.
func (p AxisPair) ScaleX() float64 { return p.aff[0] }

// ScaleY returns the y-axis scale component.
func (p AxisPair) ScaleY() float64 { return p.aff[4] }
