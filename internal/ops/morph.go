// Morphological kernel operations (spec §4.4). Grounded closely on
// niivue/niimath's kernel3D(): every operation snapshots the input buffer
// (spec §5, §9 "snapshot-before-write for neighbour kernels") and rejects
// a kernel entry for a given voxel when its linear offset lands outside
// the volume, or when x+entry.Dx / y+entry.Dy fall outside the row/column
// bounds — this prevents left-right and anterior-posterior wraparound
// without needing an explicit Z bound (Z wraparound is already caught by
// the linear-offset check).
package ops

import (
	"math"
	"sort"

	"github.com/voxelmath/voxelmath/internal/kernel"
	"github.com/voxelmath/voxelmath/internal/numeric"
	"github.com/voxelmath/voxelmath/internal/parallel"
	"github.com/voxelmath/voxelmath/internal/volume"
)

// MorphOp selects one morphological kernel operation (spec §4.4).
type MorphOp int

const (
	DilM MorphOp = iota
	DilD
	DilF
	DilAll
	Ero
	EroF
	FMedian
	FMean
	FMeanU
	FMeanZero
)

// neighbours iterates the in-bounds, non-wrapped kernel entries around
// voxel (x, y, z) with linear index i, calling visit(value, weight) for
// each survivor read from snapshot.
func neighbours[T numeric.Float](k kernel.Kernel, snapshot []T, i, x, y, nx, ny, n3 int, visit func(v T, w float64)) {
	for _, e := range k.Entries {
		vx := i + e.Offset
		if vx < 0 || vx >= n3 {
			continue
		}
		dx := x + e.Dx
		if dx < 0 || dx >= nx {
			continue
		}
		dy := y + e.Dy
		if dy < 0 || dy >= ny {
			continue
		}
		visit(snapshot[vx], e.Weight)
	}
}

// Morph applies op using kernel k to v in place (spec §4.4).
func Morph[T numeric.Float](v *volume.Volume[T], k kernel.Kernel, op MorphOp) error {
	if op == DilAll {
		return dilAll(v, k)
	}
	return parallel.For(v.NT, func(t int) error {
		vol3 := v.Volume3(t)
		snap := make([]T, len(vol3))
		copy(snap, vol3)
		nx, ny, nz := v.NX, v.NY, v.NZ
		n3 := nx * ny * nz

		i := -1
		for z := 0; z < nz; z++ {
			for y := 0; y < ny; y++ {
				for x := 0; x < nx; x++ {
					i++
					morphVoxel(vol3, snap, k, op, i, x, y, nx, ny, n3)
				}
			}
		}
		return nil
	})
}

func morphVoxel[T numeric.Float](vol3, snap []T, k kernel.Kernel, op MorphOp, i, x, y, nx, ny, n3 int) {
	switch op {
	case DilM:
		if vol3[i] != 0 {
			return
		}
		var sum float64
		var n int
		neighbours(k, snap, i, x, y, nx, ny, n3, func(v T, _ float64) {
			if v != 0 {
				sum += float64(v)
				n++
			}
		})
		if n > 0 {
			vol3[i] = T(sum / float64(n))
		}

	case DilD:
		if vol3[i] != 0 {
			return
		}
		mx := math.NaN()
		neighbours(k, snap, i, x, y, nx, ny, n3, func(v T, _ float64) {
			if v == 0 {
				return
			}
			fv := float64(v)
			if math.IsNaN(mx) || fv > mx {
				mx = fv
			}
		})
		if !math.IsNaN(mx) {
			vol3[i] = T(mx)
		}

	case DilF:
		mx := float64(snap[i])
		neighbours(k, snap, i, x, y, nx, ny, n3, func(v T, _ float64) {
			if float64(v) > mx {
				mx = float64(v)
			}
		})
		vol3[i] = T(mx)

	case Ero:
		if vol3[i] == 0 {
			return
		}
		found := false
		neighbours(k, snap, i, x, y, nx, ny, n3, func(v T, _ float64) {
			if v == 0 {
				found = true
			}
		})
		if found {
			vol3[i] = 0
		}

	case EroF:
		mn := float64(snap[i])
		neighbours(k, snap, i, x, y, nx, ny, n3, func(v T, _ float64) {
			if float64(v) < mn {
				mn = float64(v)
			}
		})
		vol3[i] = T(mn)

	case FMedian:
		var vals []float64
		neighbours(k, snap, i, x, y, nx, ny, n3, func(v T, _ float64) {
			vals = append(vals, float64(v))
		})
		if len(vals) == 0 {
			return
		}
		sort.Float64s(vals)
		itm := int(float64(len(vals)) * 0.5)
		if itm >= len(vals) {
			itm = len(vals) - 1
		}
		vol3[i] = T(vals[itm])

	case FMean:
		var sum, wt float64
		neighbours(k, snap, i, x, y, nx, ny, n3, func(v T, w float64) {
			sum += float64(v) * w
			wt += w
		})
		if wt != 0 {
			vol3[i] = T(sum / wt)
		}

	case FMeanU:
		var sum float64
		neighbours(k, snap, i, x, y, nx, ny, n3, func(v T, w float64) {
			sum += float64(v) * w
		})
		vol3[i] = T(sum)

	case FMeanZero:
		var sumPos, wtPos, sumNeg, wtNeg float64
		neighbours(k, snap, i, x, y, nx, ny, n3, func(v T, w float64) {
			if w > 0 {
				sumPos += float64(v) * w
				wtPos += w
			} else {
				sumNeg += float64(v) * w
				wtNeg += -w
			}
		})
		var val float64
		if wtPos > 0 {
			val += sumPos / wtPos
		}
		if wtNeg > 0 {
			val += sumNeg / wtNeg
		}
		vol3[i] = T(val)
	}
}

// dilAll repeats DilM until no zero voxel remains (spec §4.4), re-snapshotting
// after every full pass as niimath's kernel3D_dilall does.
func dilAll[T numeric.Float](v *volume.Volume[T], k kernel.Kernel) error {
	return parallel.For(v.NT, func(t int) error {
		vol3 := v.Volume3(t)
		nx, ny, nz := v.NX, v.NY, v.NZ
		n3 := nx * ny * nz
		snap := make([]T, n3)

		for {
			copy(snap, vol3)
			nZero := 0
			i := -1
			for z := 0; z < nz; z++ {
				for y := 0; y < ny; y++ {
					for x := 0; x < nx; x++ {
						i++
						if vol3[i] != 0 {
							continue
						}
						var sum float64
						var n int
						neighbours(k, snap, i, x, y, nx, ny, n3, func(v T, _ float64) {
							if v != 0 {
								sum += float64(v)
								n++
							}
						})
						if n > 0 {
							vol3[i] = T(sum / float64(n))
						}
						nZero++
					}
				}
			}
			if nZero == 0 {
				break
			}
			// If an entire pass produced no change (every remaining zero
			// voxel is isolated from foreground by the kernel's reach),
			// stop to avoid spinning forever.
			changed := false
			for idx := range vol3 {
				if vol3[idx] != snap[idx] {
					changed = true
					break
				}
			}
			if !changed {
				break
			}
		}
		return nil
	})
}
