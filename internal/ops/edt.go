// Exact Euclidean distance transform (spec §4.3), Felzenszwalb-Huttenlocher
// lower envelope of parabolas. Axis 1 (X, contiguous) uses a direct
// two-sweep variant; axes 2/3 (Y, Z, reached via transposition so the
// inner loop stays contiguous) use the full envelope algorithm.
package ops

import (
	"math"

	"github.com/voxelmath/voxelmath/internal/numeric"
	"github.com/voxelmath/voxelmath/internal/parallel"
	"github.com/voxelmath/voxelmath/internal/volume"
)

var edtInf = math.Inf(1)

// edtForegroundRow converts one row's foreground/background classification
// (spec §4.3: "strictly above zero are foreground, all else background")
// into an initial distance-squared row: +inf at foreground (needs its
// distance to the nearest background voxel computed), 0 at background
// (the distance source), ready for the first axis pass. Matches
// coreFLT.c:413-416, which seeds the transform to compute each voxel's
// squared distance to the nearest background (zero) voxel.
func edtForegroundRow[T numeric.Float](src []T, dst []float64) {
	for i, v := range src {
		if v > 0 {
			dst[i] = edtInf
		} else {
			dst[i] = 0
		}
	}
}

// edt1DTwoSweep is the direct two-sweep variant used for axis 1 (spec
// §4.3), tracking the coordinate of the nearest background voxel seen so
// far in each direction rather than a running minimum distance — the
// shape of niivue/niimath's edt1(): a forward sweep recording the last
// background index, then a reverse sweep that keeps whichever of the two
// candidate squared distances is smaller.
func edt1DTwoSweep(f []float64) {
	n := len(f)
	prevX, prevY := 0, edtInf

	for q := 0; q < n; q++ {
		if f[q] == 0 {
			prevX, prevY = q, 0
		} else {
			d := float64(q - prevX)
			f[q] = d*d + prevY
		}
	}

	prevX, prevY = n, edtInf
	for q := n - 1; q >= 0; q-- {
		d := float64(q - prevX)
		v := d*d + prevY
		if f[q] < v {
			prevX, prevY = q, f[q]
		} else {
			f[q] = v
		}
	}
}

// edt1DEnvelope computes d[q] = min_p ((q-p)^2 + f[p]) via the
// Felzenszwalb-Huttenlocher lower envelope of parabolas, writing the
// result into d (d may alias f's backing scratch since f is read fully
// before any write to d in the caller's row-scoped scratch arrays).
func edt1DEnvelope(f []float64, v []int, z []float64) []float64 {
	n := len(f)
	out := make([]float64, n)
	k := 0
	v[0] = 0
	z[0] = math.Inf(-1)
	z[1] = math.Inf(1)

	for q := 1; q < n; q++ {
		s := intersect(f, v[k], q)
		for k > 0 && s <= z[k] {
			k--
			s = intersect(f, v[k], q)
		}
		k++
		v[k] = q
		z[k] = s
		z[k+1] = math.Inf(1)
	}

	k = 0
	for q := 0; q < n; q++ {
		for z[k+1] < float64(q) {
			k++
		}
		dq := float64(q-v[k])*float64(q-v[k]) + f[v[k]]
		out[q] = dq
	}
	return out
}

// intersect mirrors niimath's vx(): the X-coordinate where the parabolas
// rooted at p and q intersect. A NaN result (both infinite, 0/0) is
// treated as +Inf, matching the source's explicit isnan fallback.
func intersect(f []float64, p, q int) float64 {
	ret := ((f[q] + float64(q*q)) - (f[p] + float64(p*p))) / (2*float64(q) - 2*float64(p))
	if math.IsNaN(ret) {
		return math.Inf(1)
	}
	return ret
}

// edtRowEnvelope runs the full envelope algorithm along one row of length
// n, using pre-allocated scratch v, z, d sized for n.
func edtRowEnvelope(f []float64, v []int, z []float64) []float64 {
	return edt1DEnvelope(f, v, z)
}

// EDT computes the exact squared Euclidean distance transform in place
// (spec §4.3). Each 3D volume of a 4D series is processed independently.
func EDT[T numeric.Float](v *volume.Volume[T]) error {
	return parallel.For(v.NT, func(t int) error {
		vol3 := v.Volume3(t)
		nx, ny, nz := v.NX, v.NY, v.NZ
		n3 := nx * ny * nz

		// Working buffer of float64 squared-distance accumulators,
		// seeded from the foreground/background classification.
		work := make([]float64, n3)
		edtForegroundRow(vol3, work)

		// Axis 1 (X): direct two-sweep per row.
		rowX := make([]float64, nx)
		for z := 0; z < nz; z++ {
			for y := 0; y < ny; y++ {
				base := y*nx + z*nx*ny
				copy(rowX, work[base:base+nx])
				edt1DTwoSweep(rowX)
				copy(work[base:base+nx], rowX)
			}
		}

		// Axis 2 (Y): transpose into a contiguous column, run the full
		// envelope algorithm, transpose back.
		if ny > 1 {
			vArr := make([]int, ny+1)
			zArr := make([]float64, ny+2)
			colIn := make([]float64, ny)
			for z := 0; z < nz; z++ {
				zbase := z * nx * ny
				for x := 0; x < nx; x++ {
					for y := 0; y < ny; y++ {
						colIn[y] = work[zbase+x+y*nx]
					}
					out := edtRowEnvelope(colIn, vArr, zArr)
					for y := 0; y < ny; y++ {
						work[zbase+x+y*nx] = out[y]
					}
				}
			}
		}

		// Axis 3 (Z): transpose into a contiguous column, run the full
		// envelope algorithm, transpose back.
		if nz > 1 {
			vArr := make([]int, nz+1)
			zArr := make([]float64, nz+2)
			colIn := make([]float64, nz)
			for y := 0; y < ny; y++ {
				for x := 0; x < nx; x++ {
					base := x + y*nx
					for z := 0; z < nz; z++ {
						colIn[z] = work[base+z*nx*ny]
					}
					out := edtRowEnvelope(colIn, vArr, zArr)
					for z := 0; z < nz; z++ {
						work[base+z*nx*ny] = out[z]
					}
				}
			}
		}

		for i, d := range work {
			vol3[i] = T(d)
		}
		return nil
	})
}
