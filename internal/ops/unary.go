// Elementwise unary/statistical operations (spec §4.11) that are not pure
// arith.Unary math: threshold family (thr/uthr/clamp/uclamp and their
// robust-range percentage variants), bin/binv, the Otsu dilated-mask
// binariser, edge, index, nan/nanm, rand/randn, range, rank/ranknorm, and
// the ztop/ptoz/pval/pval0/cpval permutation-test family. Grounded on
// niimath's nifti_thr()/nifti_thrp(), nifti_mask_below_dilate(), the
// index1/rank1/pval1/cpval1 branches of nifti_unary(), and qg/qginv
// (internal/stat) in coreFLT.c and core.c.
package ops

import (
	"math"
	"math/rand"
	"sort"

	"github.com/voxelmath/voxelmath/internal/numeric"
	"github.com/voxelmath/voxelmath/internal/parallel"
	"github.com/voxelmath/voxelmath/internal/robust"
	"github.com/voxelmath/voxelmath/internal/stat"
	"github.com/voxelmath/voxelmath/internal/volume"
)

// Thr zeroes (or sets to newIntensity) voxels below v, or above v when
// modifyBright is set (spec §4.11 thr/uthr; the shared primitive clamp and
// uclamp also call into via newIntensity = v).
func Thr[T numeric.Float](v *volume.Volume[T], threshold T, modifyBright bool, newIntensity T) {
	for i, x := range v.Data {
		if modifyBright {
			if x > threshold {
				v.Data[i] = newIntensity
			}
		} else {
			if x < threshold {
				v.Data[i] = newIntensity
			}
		}
	}
}

// ThrPercent thresholds using a percentage of the robust range (spec
// §4.7/§4.11 thrp/thrP/uthrp/uthrP/clamp/uclamp-by-percentage), optionally
// excluding zero voxels from the robust range estimate and optionally
// clamping to the threshold instead of zeroing.
func ThrPercent[T numeric.Float](v *volume.Volume[T], pct float64, ignoreZero, modifyBright, clampToThresh bool) error {
	if pct < 0 || pct > 100 {
		return volume.ErrDimension
	}
	rng := robust.Estimate(v.Data, ignoreZero)
	thresh := rng.Lo + (pct/100.0)*(rng.Hi-rng.Lo)
	newIntensity := T(0)
	if clampToThresh {
		newIntensity = T(thresh)
	}
	Thr(v, T(thresh), modifyBright, newIntensity)
	return nil
}

// Bin sets foreground (>0) voxels to 1, else 0.
func Bin[T numeric.Float](v *volume.Volume[T]) {
	for i, x := range v.Data {
		if x > 0 {
			v.Data[i] = 1
		} else {
			v.Data[i] = 0
		}
	}
}

// Binv is Bin inverted.
func Binv[T numeric.Float](v *volume.Volume[T]) {
	for i, x := range v.Data {
		if x > 0 {
			v.Data[i] = 0
		} else {
			v.Data[i] = 1
		}
	}
}

// OtsuMask binarises v at thr using the dilated variant of Otsu masking
// (spec §4.7): a sub-threshold voxel is zeroed only when all six
// face-neighbours are also sub-threshold; an isolated sub-threshold voxel
// touching a neighbour at or above thr is instead promoted to foreground.
// This feathers the edges of bright objects instead of cutting them at a
// hard boundary. Falls back to a strict per-voxel comparison when any axis
// is smaller than 3, matching nifti_mask_below_dilate's interior-only
// traversal (coreFLT.c:861-899) by way of its own nifti_mask_below
// fallback. NaN voxels are left untouched either way.
func OtsuMask[T numeric.Float](v *volume.Volume[T], thr float64) error {
	nx, ny, nz := v.NX, v.NY, v.NZ
	return parallel.For(v.NT, func(t int) error {
		vol3 := v.Volume3(t)

		if nx < 3 || ny < 3 || nz < 3 {
			for i, x := range vol3 {
				if numeric.IsNaN(x) {
					continue
				}
				if float64(x) < thr {
					vol3[i] = 0
				} else {
					vol3[i] = 1
				}
			}
			return nil
		}

		n3 := nx * ny * nz
		dark := make([]bool, n3)
		for i, x := range vol3 {
			dark[i] = !numeric.IsNaN(x) && float64(x) < thr
		}
		snap := append([]bool(nil), dark...)

		nxy := nx * ny
		for z := 1; z < nz-1; z++ {
			for y := 1; y < ny-1; y++ {
				base := z*nxy + y*nx
				for x := 1; x < nx-1; x++ {
					i := base + x
					if !dark[i] {
						continue
					}
					if !snap[i-1] || !snap[i+1] || !snap[i-nx] || !snap[i+nx] || !snap[i-nxy] || !snap[i+nxy] {
						dark[i] = false
					}
				}
			}
		}

		for i, x := range vol3 {
			if numeric.IsNaN(x) {
				continue
			}
			if dark[i] {
				vol3[i] = 0
			} else {
				vol3[i] = 1
			}
		}
		return nil
	})
}

// Edge computes the gradient magnitude of each 3D volume using central
// differences along the three spatial axes, spacing-scaled (spec §4.11
// "edge (gradient magnitude)"). Voxels on the outer face of any axis keep
// a one-sided difference rather than wrapping.
func Edge[T numeric.Float](v *volume.Volume[T]) error {
	if v.DX == 0 || v.DY == 0 || v.DZ == 0 {
		return volume.ErrDimension
	}
	nx, ny, nz := v.NX, v.NY, v.NZ
	return parallel.For(v.NT, func(t int) error {
		src := v.Volume3(t)
		in := make([]T, len(src))
		copy(in, src)

		at := func(x, y, z int) float64 { return float64(in[x+y*nx+z*nx*ny]) }
		i := -1
		for z := 0; z < nz; z++ {
			for y := 0; y < ny; y++ {
				for x := 0; x < nx; x++ {
					i++
					gx := centralDiff(at, x, y, z, nx, 0, v.DX)
					gy := centralDiff(at, x, y, z, ny, 1, v.DY)
					gz := centralDiff(at, x, y, z, nz, 2, v.DZ)
					src[i] = T(math.Sqrt(gx*gx + gy*gy + gz*gz))
				}
			}
		}
		return nil
	})
}

func centralDiff(at func(x, y, z int) float64, x, y, z, n, axis int, spacing float64) float64 {
	coord := [3]int{x, y, z}
	lo, hi := coord, coord
	lo[axis]--
	hi[axis]++
	denom := 2 * spacing
	if lo[axis] < 0 {
		lo[axis] = coord[axis]
		denom = spacing
	}
	if hi[axis] >= n {
		hi[axis] = coord[axis]
		denom = spacing
	}
	vlo := at(lo[0], lo[1], lo[2])
	vhi := at(hi[0], hi[1], hi[2])
	if denom == 0 {
		return 0
	}
	return (vhi - vlo) / denom
}

// Index assigns ascending integers to non-zero voxels in raster order,
// flipping the X axis traversal when the voxel-to-world determinant is
// non-negative (spec §4.11 "index ... orientation-aware"): niimath walks X
// backwards within each row unless the image has a negative determinant.
func Index[T numeric.Float](v *volume.Volume[T]) {
	flipX := v.Affine.Det3() >= 0
	var idx T
	if !flipX {
		for i, x := range v.Data {
			if x != 0 {
				v.Data[i] = idx
				idx++
			}
		}
		return
	}
	nx := v.NX
	nyzt := len(v.Data) / nx
	for i := 0; i < nyzt; i++ {
		row := i * nx
		for x := nx - 1; x >= 0; x-- {
			if v.Data[row+x] != 0 {
				v.Data[row+x] = idx
				idx++
			}
		}
	}
}

// Nan zeroes NaN voxels, leaving everything else untouched.
func Nan[T numeric.Float](v *volume.Volume[T]) {
	for i, x := range v.Data {
		if numeric.IsNaN(x) {
			v.Data[i] = 0
		}
	}
}

// Nanm produces a NaN mask: 1 where the input was NaN, else 0.
func Nanm[T numeric.Float](v *volume.Volume[T]) {
	for i, x := range v.Data {
		if numeric.IsNaN(x) {
			v.Data[i] = 1
		} else {
			v.Data[i] = 0
		}
	}
}

// Rand adds a uniform [0,1) sample to every voxel (spec §4.11 "rand").
func Rand[T numeric.Float](v *volume.Volume[T], r *rand.Rand) {
	for i, x := range v.Data {
		v.Data[i] = x + T(r.Float64())
	}
}

// Randn adds a standard-normal (Box-Muller) sample to every voxel (spec
// §4.11 "randn"); an odd final voxel is handled with its own single-sample
// pair (z0 only) the way niimath's pairwise loop leaves the last sample.
func Randn[T numeric.Float](v *volume.Volume[T], r *rand.Rand) {
	const twoPi = 2 * math.Pi
	n := len(v.Data)
	i := 0
	for ; i+1 < n; i += 2 {
		u1, u2 := r.Float64(), r.Float64()
		for u1 <= 1e-12 {
			u1 = r.Float64()
		}
		su1 := math.Sqrt(-2.0 * math.Log(u1))
		z0 := su1 * math.Cos(twoPi*u2)
		z1 := su1 * math.Sin(twoPi*u2)
		v.Data[i] += T(z0)
		v.Data[i+1] += T(z1)
	}
	if i < n {
		u1, u2 := r.Float64(), r.Float64()
		for u1 <= 1e-12 {
			u1 = r.Float64()
		}
		z0 := math.Sqrt(-2.0*math.Log(u1)) * math.Cos(twoPi*u2)
		v.Data[i] += T(z0)
	}
}

// Range reports the buffer's (min, max), excluding NaN, without mutating
// it (spec §4.11 "range (report min/max)").
func Range[T numeric.Float](v *volume.Volume[T]) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, x := range v.Data {
		if numeric.IsNaN(x) {
			continue
		}
		fx := float64(x)
		if fx < lo {
			lo = fx
		}
		if fx > hi {
			hi = fx
		}
	}
	return lo, hi
}

// Rank replaces each voxel's time series with its 1-based rank (ties
// broken by original volume order via a stable sort) per spec §4.11.
func Rank[T numeric.Float](v *volume.Volume[T]) error {
	if v.NT <= 1 {
		for i := range v.Data {
			v.Data[i] = 1
		}
		return nil
	}
	nvox3 := v.NVox3()
	type pair struct {
		val T
		idx int
	}
	return parallel.For(nvox3, func(i int) error {
		k := make([]pair, v.NT)
		for t := 0; t < v.NT; t++ {
			k[t] = pair{val: v.Data[i+t*nvox3], idx: t}
		}
		sort.SliceStable(k, func(a, b int) bool { return k[a].val < k[b].val })
		for rank, p := range k {
			v.Data[i+p.idx*nvox3] = T(rank + 1)
		}
		return nil
	})
}

// RankNorm replaces each voxel's time series with rank-transformed,
// normal-quantile scores: for the value ranked v (0-based) of nvol,
// `stdev * -QgInv((v+0.5)/nvol) + mean` where mean/stdev come from the
// voxel's own series (spec §4.11 "ranknorm"), matching niimath's
// ranknorm1 branch exactly, including its "replicates fslmaths" inverted
// quantile convention.
func RankNorm[T numeric.Float](v *volume.Volume[T]) error {
	nvox3 := v.NVox3()
	if v.NT <= 1 {
		for i := range v.Data {
			v.Data[i] = 0
		}
		return nil
	}
	type pair struct {
		val T
		idx int
	}
	return parallel.For(nvox3, func(i int) error {
		k := make([]pair, v.NT)
		var sum float64
		for t := 0; t < v.NT; t++ {
			x := v.Data[i+t*nvox3]
			k[t] = pair{val: x, idx: t}
			sum += float64(x)
		}
		mean := sum / float64(v.NT)
		var sumSqr float64
		for _, p := range k {
			d := float64(p.val) - mean
			sumSqr += d * d
		}
		stdev := math.Sqrt(sumSqr / float64(v.NT-1))

		sort.SliceStable(k, func(a, b int) bool { return k[a].val < k[b].val })
		for rank, p := range k {
			q := (float64(rank) + 0.5) / float64(v.NT)
			v.Data[i+p.idx*nvox3] = T(stdev*-stat.QgInv(q) + mean)
		}
		return nil
	})
}

// Ztop converts a z-score to its upper-tail p-value via qg (spec §4.11).
func Ztop[T numeric.Float](v *volume.Volume[T]) {
	for i, x := range v.Data {
		v.Data[i] = T(stat.Qg(float64(x)))
	}
}

// Ptoz is the inverse of Ztop: given p in [0,1], returns x with Q(x)=p;
// out-of-range inputs become NaN (spec §4.11).
func Ptoz[T numeric.Float](v *volume.Volume[T]) {
	nan := T(math.NaN())
	for i, x := range v.Data {
		fx := float64(x)
		if fx < 0 || fx > 1 {
			v.Data[i] = nan
			continue
		}
		v.Data[i] = T(stat.QgInv(fx))
	}
}

// PvalMode selects between pval's "fraction >= observed including self"
// and pval0's "fraction >= observed among non-zero permutations only"
// conventions (spec §4.11 pval/pval0), matching niimath's pval1/pval01.
type PvalMode int

const (
	PvalAll PvalMode = iota
	PvalNonZero
)

// Pval reduces a 4D permutation series to a 3D empirical p-value volume:
// for each voxel, the observed value is volume 0's value, and the
// statistic is the fraction of the nvol permutation values >= the
// observed one (spec §4.11 pval/pval0).
func Pval[T numeric.Float](v *volume.Volume[T], mode PvalMode) error {
	if err := v.RequireFourD(); err != nil {
		return err
	}
	nvox3 := v.NVox3()
	nvol := v.NT
	out := make([]T, nvox3)

	err := parallel.For(nvox3, func(i int) error {
		obs := v.Data[i]
		f0 := v.Data[i]
		var nNotZero, nGreater, nEqual int
		for t := 0; t < nvol; t++ {
			x := v.Data[i+t*nvox3]
			if x != 0 {
				nNotZero++
			}
			if x == f0 {
				nEqual++
			}
			if x >= obs {
				nGreater++
			}
		}
		if mode == PvalAll {
			out[i] = T(float64(nGreater) / float64(nvol))
			return nil
		}
		switch {
		case nEqual == nvol:
			out[i] = 0
		case obs == 0:
			out[i] = 1
		default:
			out[i] = T(float64(nGreater) / float64(nNotZero))
		}
		return nil
	})
	if err != nil {
		return err
	}
	v.ReplaceData(out, v.NX, v.NY, v.NZ, 1)
	return nil
}

// Cpval reduces a 4D permutation series to a 3D corrected p-value volume
// using the permutation-maxima test (spec §4.11 cpval): volumes 1..nvol-1
// are treated as null permutations, each contributing its whole-volume
// maximum; the p-value at a voxel is the fraction of those maxima >= the
// voxel's observed (volume 0) value, counting the observation itself.
func Cpval[T numeric.Float](v *volume.Volume[T]) error {
	if err := v.RequireFourD(); err != nil {
		return err
	}
	nvox3 := v.NVox3()
	nvol := v.NT
	vmax := make([]float64, nvol)
	for t := 1; t < nvol; t++ {
		vol := v.Data[t*nvox3 : (t+1)*nvox3]
		mx := float64(vol[0])
		for _, x := range vol {
			if float64(x) > mx {
				mx = float64(x)
			}
		}
		vmax[t] = mx
	}

	out := make([]T, nvox3)
	err := parallel.For(nvox3, func(i int) error {
		obs := float64(v.Data[i])
		nGreater := 1
		for t := 1; t < nvol; t++ {
			if vmax[t] >= obs {
				nGreater++
			}
		}
		out[i] = T(float64(nGreater) / float64(nvol))
		return nil
	})
	if err != nil {
		return err
	}
	v.ReplaceData(out, v.NX, v.NY, v.NZ, 1)
	return nil
}
