// Package volume implements the dense N-D scalar grid that the pipeline
// driver mutates in place, plus its affine spatial transform (spec §3).
//
// The working numeric type is fixed once per pipeline run (spec §3
// invariant) and is carried as the Go type parameter T, so every operation
// in internal/ops is written once per working type via generics rather
// than duplicated by hand the way the teacher's internal/dsp duplicates
// per-storage-type kernels (MultRow vs MultARGBRow).
package volume

import (
	"errors"
	"fmt"

	"github.com/voxelmath/voxelmath/internal/affine"
	"github.com/voxelmath/voxelmath/internal/numeric"
)

// Errors returned by volume construction and mutation.
var (
	ErrDimension     = errors.New("volume: invalid dimension")
	ErrBufferLength  = errors.New("volume: buffer length does not match dimensions")
	ErrShapeMismatch = errors.New("volume: shape mismatch between operands")
	ErrNotFourD      = errors.New("volume: operation requires a 4D series (nt > 1)")
)

// Volume is a dense row-major N-D scalar grid. Index order matches spec §3:
// i = x + y*nx + z*nx*ny + t*nx*ny*nz.
type Volume[T numeric.Float] struct {
	Data []T

	NX, NY, NZ, NT int

	// Spacing in millimetres per axis (dx, dy, dz) and seconds per
	// timepoint (dt), matching the voxel-to-world scale factors.
	DX, DY, DZ, DT float64

	// Scale/intercept for input/output quantisation round-tripping
	// (spec §3): 1.0/0.0 while data is being computed, restored to the
	// original storage pair only when the output datatype equals the
	// input storage datatype.
	Scale     float64
	Intercept float64

	// StoredDatatype is the datatype code (spec §6) the volume was
	// originally read as, needed to decide whether to restore
	// Scale/Intercept on write.
	StoredDatatype int

	Affine affine.Matrix
}

// New allocates a zeroed Volume with the given dimensions. Dimensions
// nx, ny must be >= 1, nz >= 1, nt >= 1 (spec §3 invariant).
func New[T numeric.Float](nx, ny, nz, nt int) (*Volume[T], error) {
	if nx < 1 || ny < 1 || nz < 1 || nt < 1 {
		return nil, fmt.Errorf("%w: nx=%d ny=%d nz=%d nt=%d", ErrDimension, nx, ny, nz, nt)
	}
	v := &Volume[T]{
		NX: nx, NY: ny, NZ: nz, NT: nt,
		DX: 1, DY: 1, DZ: 1, DT: 1,
		Scale: 1, Intercept: 0,
	}
	v.Data = make([]T, nx*ny*nz*nt)
	v.Affine = affine.Identity()
	return v, nil
}

// NVox returns nx*ny*nz*nt, the total voxel count.
func (v *Volume[T]) NVox() int {
	return v.NX * v.NY * v.NZ * v.NT
}

// NVox3 returns the voxel count of one 3D volume (nx*ny*nz), i.e. the
// stride between consecutive timepoints in Data.
func (v *Volume[T]) NVox3() int {
	return v.NX * v.NY * v.NZ
}

// Is4D reports whether the series has more than one timepoint.
func (v *Volume[T]) Is4D() bool {
	return v.NT > 1
}

// Index returns the linear offset of voxel (x, y, z, t).
func (v *Volume[T]) Index(x, y, z, t int) int {
	return x + y*v.NX + z*v.NX*v.NY + t*v.NX*v.NY*v.NZ
}

// Volume3 returns the slice of Data for the t-th 3D volume.
func (v *Volume[T]) Volume3(t int) []T {
	n := v.NVox3()
	return v.Data[t*n : (t+1)*n]
}

// Clone returns a deep copy sharing no storage with v. Used as the
// snapshot-before-write discipline required by neighbour-reading
// operations (spec §4.4, §5, §9).
func (v *Volume[T]) Clone() *Volume[T] {
	out := *v
	out.Data = make([]T, len(v.Data))
	copy(out.Data, v.Data)
	return &out
}

// SameShape reports whether v and other have identical dimensions.
func (v *Volume[T]) SameShape(other *Volume[T]) bool {
	return v.NX == other.NX && v.NY == other.NY && v.NZ == other.NZ && v.NT == other.NT
}

// CheckSameShape returns ErrShapeMismatch (wrapped with the concrete
// dimensions) if v and other differ in shape.
func (v *Volume[T]) CheckSameShape(other *Volume[T]) error {
	if !v.SameShape(other) {
		return fmt.Errorf("%w: (%d,%d,%d,%d) vs (%d,%d,%d,%d)",
			ErrShapeMismatch, v.NX, v.NY, v.NZ, v.NT, other.NX, other.NY, other.NZ, other.NT)
	}
	return nil
}

// RequireFourD returns ErrNotFourD if the volume has only one timepoint.
func (v *Volume[T]) RequireFourD() error {
	if !v.Is4D() {
		return ErrNotFourD
	}
	return nil
}

// ReplaceData rebinds the volume to a new buffer and dimensions, freeing
// the old buffer (spec §3 lifecycle: "some operations replace the buffer
// and/or shrink the logical dimensions"). The caller is responsible for
// ensuring len(data) == nx*ny*nz*nt.
func (v *Volume[T]) ReplaceData(data []T, nx, ny, nz, nt int) {
	v.Data = data
	v.NX, v.NY, v.NZ, v.NT = nx, ny, nz, nt
}
