// Package kernel builds 3D neighbourhood kernels (spec §4.1 item 3): fixed
// box, Euclidean sphere, Gaussian weights, and voxel-mask-from-volume.
//
// Design note (spec §9, "Fixed-point integer kernel weights"): the source
// tool scales weights to INT_MAX to avoid float accumulation drift and to
// pack four ints per entry. This rewrite keeps the weight as the working
// float type instead: the cache-locality win from packing was marginal and
// float accumulation is correct when done in the working type's
// corresponding accumulator (float64 internally, regardless of the
// pipeline's chosen working precision for the final store).
package kernel

import (
	"math"

	"github.com/voxelmath/voxelmath/internal/numeric"
)

// Entry is one neighbour offset of a kernel: a pre-computed linear index
// increment (Offset) plus the source Dx, Dy used at application time to
// reject wrap-around across image edges (spec §3 "Kernel").
type Entry struct {
	Offset  int
	Dx, Dy  int
	Dz      int
	Weight  float64
}

// Kernel is a 3D neighbourhood kernel: four parallel arrays of length n,
// here represented as a slice of Entry for clarity. Invariant (spec §3):
// the centre voxel is included iff the builder includes an entry with
// Offset 0.
type Kernel struct {
	Entries []Entry
}

// HasCentre reports whether the kernel includes the zero-offset entry.
func (k Kernel) HasCentre() bool {
	for _, e := range k.Entries {
		if e.Offset == 0 && e.Dx == 0 && e.Dy == 0 && e.Dz == 0 {
			return true
		}
	}
	return false
}

// stride bundles the linear strides needed to compute Offset from (dx, dy, dz).
type stride struct{ sx, sy, sz int }

func newStride(nx, ny int) stride {
	return stride{sx: 1, sy: nx, sz: nx * ny}
}

func (s stride) offset(dx, dy, dz int) int {
	return dx*s.sx + dy*s.sy + dz*s.sz
}

// Box builds a fixed box kernel of half-widths (hx, hy, hz) in voxels, with
// uniform weight 1/n over the n included neighbours (centre included).
func Box(nx, ny int, hx, hy, hz int) Kernel {
	s := newStride(nx, ny)
	var entries []Entry
	for dz := -hz; dz <= hz; dz++ {
		for dy := -hy; dy <= hy; dy++ {
			for dx := -hx; dx <= hx; dx++ {
				entries = append(entries, Entry{Offset: s.offset(dx, dy, dz), Dx: dx, Dy: dy, Dz: dz, Weight: 1})
			}
		}
	}
	normalise(entries)
	return Kernel{Entries: entries}
}

// Sphere builds a Euclidean-ball kernel whose radius is in the units of
// the per-axis voxel spacing dx, dy, dz (so the ball may span a different
// number of voxels on each axis), uniform weight over included neighbours.
func Sphere(nx, ny int, radius float64, dx, dy, dz float64) Kernel {
	s := newStride(nx, ny)
	hx := int(math.Ceil(radius / dx))
	hy := int(math.Ceil(radius / dy))
	hz := int(math.Ceil(radius / dz))
	var entries []Entry
	r2 := radius * radius
	for zz := -hz; zz <= hz; zz++ {
		for yy := -hy; yy <= hy; yy++ {
			for xx := -hx; xx <= hx; xx++ {
				wx, wy, wz := float64(xx)*dx, float64(yy)*dy, float64(zz)*dz
				if wx*wx+wy*wy+wz*wz <= r2 {
					entries = append(entries, Entry{Offset: s.offset(xx, yy, zz), Dx: xx, Dy: yy, Dz: zz, Weight: 1})
				}
			}
		}
	}
	normalise(entries)
	return Kernel{Entries: entries}
}

// Gaussian builds a spherical kernel with Gaussian-weighted neighbours
// (sigma in the units of the voxel spacing dx, dy, dz), truncated at
// cutoff standard deviations.
func Gaussian(nx, ny int, sigma float64, dx, dy, dz float64, cutoff float64) Kernel {
	s := newStride(nx, ny)
	if cutoff <= 0 {
		cutoff = 4
	}
	radius := sigma * cutoff
	hx := int(math.Ceil(radius / dx))
	hy := int(math.Ceil(radius / dy))
	hz := int(math.Ceil(radius / dz))
	var entries []Entry
	r2 := radius * radius
	denom := 2 * sigma * sigma
	for zz := -hz; zz <= hz; zz++ {
		for yy := -hy; yy <= hy; yy++ {
			for xx := -hx; xx <= hx; xx++ {
				wx, wy, wz := float64(xx)*dx, float64(yy)*dy, float64(zz)*dz
				d2 := wx*wx + wy*wy + wz*wz
				if d2 <= r2 {
					w := math.Exp(-d2 / denom)
					entries = append(entries, Entry{Offset: s.offset(xx, yy, zz), Dx: xx, Dy: yy, Dz: zz, Weight: w})
				}
			}
		}
	}
	normalise(entries)
	return Kernel{Entries: entries}
}

// FromMask builds a kernel from an external volume: non-zero voxels
// become entries with weight proportional to |value|, normalised so
// weights sum to 1 (spec §6, re-architected per spec §9 to use float
// weights instead of INT_MAX-scaled fixed point).
func FromMask[T numeric.Float](mask []T, nx, ny, nz int) Kernel {
	s := newStride(nx, ny)
	cx, cy, cz := nx/2, ny/2, nz/2
	var entries []Entry
	for z := 0; z < nz; z++ {
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				v := mask[x+y*nx+z*nx*ny]
				if v == 0 {
					continue
				}
				dx, dy, dz := x-cx, y-cy, z-cz
				entries = append(entries, Entry{Offset: s.offset(dx, dy, dz), Dx: dx, Dy: dy, Dz: dz, Weight: math.Abs(float64(v))})
			}
		}
	}
	normalise(entries)
	return Kernel{Entries: entries}
}

func normalise(entries []Entry) {
	var sum float64
	for _, e := range entries {
		sum += e.Weight
	}
	if sum == 0 {
		return
	}
	for i := range entries {
		entries[i].Weight /= sum
	}
}
