// Dimension reduction (spec §4.8): collapse one of the four logical axes
// to length 1 with a mean/extremum/order-statistic reducer. Grounded on
// niimath's nifti_dim_reduce() in coreFLT.c, including its single
// output-index-to-input-index remap that lets any of the four axes share
// one loop body.
package ops

import (
	"math"
	"sort"

	"github.com/voxelmath/voxelmath/internal/numeric"
	"github.com/voxelmath/voxelmath/internal/parallel"
	"github.com/voxelmath/voxelmath/internal/volume"
)

// ReduceOp selects a dimension-reduction reducer (spec §4.8).
type ReduceOp int

const (
	Tmean ReduceOp = iota
	Tstd
	Tmax
	Tmaxn
	Tmin
	Tmedian
	Tperc
	Tar1
)

// isOrderStat reports whether op needs the full per-voxel sample vector
// rather than a single streaming pass.
func isOrderStat(op ReduceOp) bool {
	switch op {
	case Tmedian, Tstd, Tperc, Tar1:
		return true
	default:
		return false
	}
}

// Reduce collapses axis (1=X, 2=Y, 3=Z, 4=T) of v to length 1 using op,
// replacing v's buffer and dimensions in place (spec §4.8). percentage is
// only consulted for Tperc (0-100). A degenerate axis (length <= 1) is a
// no-op, matching fslmaths' silent pass-through.
func Reduce[T numeric.Float](v *volume.Volume[T], axis int, op ReduceOp, percentage float64) error {
	inDims := [5]int{0, v.NX, v.NY, v.NZ, v.NT}
	if axis < 1 || axis > 4 || inDims[axis] <= 1 {
		return nil
	}
	outDims := inDims
	outDims[axis] = 1
	nx, ny, nz, nt := outDims[1], outDims[2], outDims[3], outDims[4]
	nReduce := inDims[axis]

	var collapseStep int
	switch axis {
	case 1:
		collapseStep = 1
	case 2:
		collapseStep = inDims[1]
	case 3:
		collapseStep = inDims[1] * inDims[2]
	default:
		collapseStep = inDims[1] * inDims[2] * inDims[3]
	}
	xy := nx * ny
	xyz := xy * nz
	nvox := xyz * nt

	inPosOf := func(i int) int {
		if axis == 4 {
			return i
		}
		t := i / xyz
		r := i % xyz
		z := r / xy
		r = r % xy
		y := r / nx
		x := r % nx
		return x + y*inDims[1] + z*inDims[1]*inDims[2] + t*inDims[1]*inDims[2]*inDims[3]
	}

	out := make([]T, nvox)
	itm := int(float64(nReduce) * 0.5)
	if op == Tperc {
		frac := percentage / 100.0
		itm = numeric.ClampInt(int(float64(nReduce)*frac), 0, nReduce-1)
	}

	err := parallel.For(nvox, func(i int) error {
		inPos := inPosOf(i)

		if isOrderStat(op) {
			vals := make([]float64, nReduce)
			p := inPos
			for k := 0; k < nReduce; k++ {
				vals[k] = float64(v.Data[p])
				p += collapseStep
			}
			switch op {
			case Tstd, Tar1:
				var sum float64
				for _, x := range vals {
					sum += x
				}
				mean := sum / float64(nReduce)
				var sumSqr float64
				for _, x := range vals {
					d := x - mean
					sumSqr += d * d
				}
				if op == Tstd {
					out[i] = T(math.Sqrt(sumSqr / float64(nReduce-1)))
				} else {
					if sumSqr == 0 {
						out[i] = 0
						return nil
					}
					for k := range vals {
						vals[k] -= mean
					}
					var r float64
					for k := 1; k < nReduce; k++ {
						r += (vals[k] * vals[k-1]) / sumSqr
					}
					out[i] = T(r)
				}
			default: // Tmedian, Tperc
				sort.Float64s(vals)
				out[i] = T(vals[itm])
			}
			return nil
		}

		sum := 0.0
		p := inPos
		mx := float64(v.Data[p])
		mn := mx
		mxn := 0
		for k := 0; k < nReduce; k++ {
			f := float64(v.Data[p])
			sum += f
			if f > mx {
				mx = f
				mxn = k
			}
			if f < mn {
				mn = f
			}
			p += collapseStep
		}
		switch op {
		case Tmean:
			out[i] = T(sum / float64(nReduce))
		case Tmax:
			out[i] = T(mx)
		case Tmaxn:
			out[i] = T(mxn)
		case Tmin:
			out[i] = T(mn)
		}
		return nil
	})
	if err != nil {
		return err
	}

	v.ReplaceData(out, nx, ny, nz, nt)
	return nil
}
