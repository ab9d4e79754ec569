// Package ioutil specifies the external volume I/O collaborator interface
// (spec §1, §6). Container-format reading/writing (the on-disk volume and
// its affine header) is explicitly out of scope for this engine; this
// package only pins down the interface the pipeline driver and cmd/voxelmath
// depend on, so a concrete reader/writer can be swapped in without
// touching the operation library.
package ioutil

import (
	"github.com/voxelmath/voxelmath/internal/affine"
	"github.com/voxelmath/voxelmath/internal/datatype"
	"github.com/voxelmath/voxelmath/internal/numeric"
)

// Loaded is what Reader.Read returns: the raw buffer plus everything
// needed to populate a volume.Volume (spec §6).
type Loaded[T numeric.Float] struct {
	Data                   []T
	NX, NY, NZ, NT         int
	DX, DY, DZ, DT         float64
	Datatype               datatype.Code
	Slope, Intercept       float64
	Affine                 affine.Matrix
}

// Reader reads a volume from an external path.
type Reader[T numeric.Float] interface {
	Read(path string) (Loaded[T], error)
}

// WriteRequest bundles the fields Writer.Write needs from the working
// volume (spacing, dims, and affine are read from the volume per spec §6).
type WriteRequest[T numeric.Float] struct {
	Data                   []T
	NX, NY, NZ, NT         int
	DX, DY, DZ, DT         float64
	Datatype               datatype.Code
	Slope, Intercept       float64
	Affine                 affine.Matrix
	// Postfix is a string inserted before the file extension (spec §6).
	Postfix string
}

// Writer writes a volume to an external path.
type Writer[T numeric.Float] interface {
	Write(req WriteRequest[T], path string) error
}
