// Separable Gaussian blur (spec §4.2). Builds a 1D symmetric Gaussian
// kernel per axis and convolves each row, reusing the same row-at-a-time,
// transpose-to-keep-the-inner-loop-contiguous shape the teacher's
// upsample/rescale DSP code uses for horizontal-then-vertical passes.
package ops

import (
	"math"

	"github.com/voxelmath/voxelmath/internal/numeric"
	"github.com/voxelmath/voxelmath/internal/parallel"
	"github.com/voxelmath/voxelmath/internal/volume"
)

// gaussianKernel1D builds a symmetric 1D Gaussian kernel of half-width
// cutoff voxels: k[0] is the centre weight, k[j] for j>0 the weight at
// distance j.
func gaussianKernel1D(sigmaVox float64, cutoff int) []float64 {
	k := make([]float64, cutoff+1)
	denom := 2 * sigmaVox * sigmaVox
	for j := 0; j <= cutoff; j++ {
		k[j] = math.Exp(-float64(j*j) / denom)
	}
	return k
}

// blurAxisWidth resolves sigma (mm if positive, voxels if negative) and
// widthFactor into a voxel sigma and an integer cutoff half-width (spec
// §4.2: "widthFactor: negative means round to |widthFactor|*sigma/voxel;
// positive means ceil").
func blurAxisWidth(sigma, spacing, widthFactor float64) (sigmaVox float64, cutoff int, skip bool) {
	if sigma == 0 {
		return 0, 0, true
	}
	if sigma < 0 {
		sigmaVox = -sigma
	} else {
		sigmaVox = sigma / spacing
	}
	if widthFactor < 0 {
		cutoff = int(math.Round(-widthFactor * sigmaVox))
	} else if widthFactor > 0 {
		cutoff = int(math.Ceil(widthFactor * sigmaVox))
	} else {
		cutoff = int(math.Ceil(3 * sigmaVox))
	}
	if cutoff < 1 {
		cutoff = 1
	}
	return sigmaVox, cutoff, false
}

// blurRow1D convolves one contiguous row in place (or src->dst if they
// differ) with kernel k, clipping the window to the row bounds and
// renormalising the denominator for clipped windows (spec §4.2).
func blurRow1D[T numeric.Float](dst, src []T, k []float64) {
	n := len(src)
	cutoff := len(k) - 1
	for i := 0; i < n; i++ {
		lo := i - cutoff
		if lo < 0 {
			lo = 0
		}
		hi := i + cutoff
		if hi >= n {
			hi = n - 1
		}
		var acc, wsum float64
		for j := lo; j <= hi; j++ {
			w := k[abs(j-i)]
			acc += float64(src[j]) * w
			wsum += w
		}
		if wsum == 0 {
			dst[i] = src[i]
			continue
		}
		dst[i] = T(acc / wsum)
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Blur applies the separable Gaussian blur described by spec §4.2 in
// place. Empty axes (sigma == 0 or dim < 2) are skipped. Each 3D volume
// of a 4D series is blurred independently, in parallel.
func Blur[T numeric.Float](v *volume.Volume[T], sigmaX, sigmaY, sigmaZ, widthFactor float64) error {
	sxVox, cx, skipX := blurAxisWidth(sigmaX, v.DX, widthFactor)
	syVox, cy, skipY := blurAxisWidth(sigmaY, v.DY, widthFactor)
	szVox, cz, skipZ := blurAxisWidth(sigmaZ, v.DZ, widthFactor)
	if v.NX < 2 {
		skipX = true
	}
	if v.NY < 2 {
		skipY = true
	}
	if v.NZ < 2 {
		skipZ = true
	}
	if skipX && skipY && skipZ {
		return nil
	}

	var kx, ky, kz []float64
	if !skipX {
		kx = gaussianKernel1D(sxVox, cx)
	}
	if !skipY {
		ky = gaussianKernel1D(syVox, cy)
	}
	if !skipZ {
		kz = gaussianKernel1D(szVox, cz)
	}

	return parallel.For(v.NT, func(t int) error {
		vol3 := v.Volume3(t)
		nx, ny, nz := v.NX, v.NY, v.NZ

		if !skipX {
			blurAxisX(vol3, nx, ny, nz, kx)
		}
		if !skipY {
			blurAxisY(vol3, nx, ny, nz, ky)
		}
		if !skipZ {
			blurAxisZ(vol3, nx, ny, nz, kz)
		}
		return nil
	})
}

// blurAxisX blurs along the contiguous X axis directly, one row per (y,z).
func blurAxisX[T numeric.Float](buf []T, nx, ny, nz int, k []float64) {
	row := make([]T, nx)
	for z := 0; z < nz; z++ {
		for y := 0; y < ny; y++ {
			base := y*nx + z*nx*ny
			line := buf[base : base+nx]
			copy(row, line)
			blurRow1D(line, row, k)
		}
	}
}

// blurAxisY transposes X<->Y into scratch so the inner loop walks a
// contiguous axis, blurs, then transposes back (spec §4.2).
func blurAxisY[T numeric.Float](buf []T, nx, ny, nz int, k []float64) {
	col := make([]T, ny)
	out := make([]T, ny)
	for z := 0; z < nz; z++ {
		zbase := z * nx * ny
		for x := 0; x < nx; x++ {
			for y := 0; y < ny; y++ {
				col[y] = buf[zbase+x+y*nx]
			}
			blurRow1D(out, col, k)
			for y := 0; y < ny; y++ {
				buf[zbase+x+y*nx] = out[y]
			}
		}
	}
}

// blurAxisZ transposes X<->Z into scratch, blurs, transposes back.
func blurAxisZ[T numeric.Float](buf []T, nx, ny, nz int, k []float64) {
	col := make([]T, nz)
	out := make([]T, nz)
	for y := 0; y < ny; y++ {
		for x := 0; x < nx; x++ {
			base := x + y*nx
			for z := 0; z < nz; z++ {
				col[z] = buf[base+z*nx*ny]
			}
			blurRow1D(out, col, k)
			for z := 0; z < nz; z++ {
				buf[base+z*nx*ny] = out[z]
			}
		}
	}
}
