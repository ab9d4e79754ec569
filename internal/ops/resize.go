// Resampling and subsampling (spec §4.6). resize rebuilds each axis with a
// selectable reconstruction filter (internal/filter); subsamp2/subsamp2offc
// are the naive, unfiltered 2x downsample niimath ships for speed.
// Grounded on the teacher's internal/dsp rescaler for the row-by-row,
// axis-at-a-time shape, generalised from its fixed 2D box filter to the
// five selectable reconstruction kernels spec §4.6 names.
package ops

import (
	"github.com/voxelmath/voxelmath/internal/filter"
	"github.com/voxelmath/voxelmath/internal/numeric"
	"github.com/voxelmath/voxelmath/internal/parallel"
	"github.com/voxelmath/voxelmath/internal/volume"
)

// Resize rebuilds v to (nx, ny, nz) using reconstruction kernel method,
// resampling each axis in turn and updating the affine transform (spec
// §4.6: "linear part's columns divide by the per-axis scale; translation
// is preserved"). Volumes of a 4D series are resized independently.
func Resize[T numeric.Float](v *volume.Volume[T], nx, ny, nz int, method filter.Method) error {
	if nx < 1 || ny < 1 || nz < 1 {
		return volume.ErrDimension
	}
	rowsX := filter.Build(method, v.NX, nx)
	rowsY := filter.Build(method, v.NY, ny)
	rowsZ := filter.Build(method, v.NZ, nz)

	out := make([]T, nx*ny*nz*v.NT)

	err := parallel.For(v.NT, func(t int) error {
		src := v.Volume3(t)

		// Pass 1: X axis, source shape (nx0,ny0,nz0) -> (nx,ny0,nz0).
		nx0, ny0, nz0 := v.NX, v.NY, v.NZ
		stage1 := make([]float64, nx*ny0*nz0)
		row := make([]float64, nx0)
		for z := 0; z < nz0; z++ {
			for y := 0; y < ny0; y++ {
				base := y*nx0 + z*nx0*ny0
				for i := 0; i < nx0; i++ {
					row[i] = float64(src[base+i])
				}
				dbase := y*nx + z*nx*ny0
				for d := 0; d < nx; d++ {
					stage1[dbase+d] = filter.Apply(rowsX[d], row)
				}
			}
		}

		// Pass 2: Y axis, (nx,ny0,nz0) -> (nx,ny,nz0).
		stage2 := make([]float64, nx*ny*nz0)
		col := make([]float64, ny0)
		for z := 0; z < nz0; z++ {
			zbase0 := z * nx * ny0
			zbase1 := z * nx * ny
			for x := 0; x < nx; x++ {
				for i := 0; i < ny0; i++ {
					col[i] = stage1[zbase0+x+i*nx]
				}
				for d := 0; d < ny; d++ {
					stage2[zbase1+x+d*nx] = filter.Apply(rowsY[d], col)
				}
			}
		}

		// Pass 3: Z axis, (nx,ny,nz0) -> (nx,ny,nz).
		dst := out[t*nx*ny*nz : (t+1)*nx*ny*nz]
		depth := make([]float64, nz0)
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				base := x + y*nx
				for i := 0; i < nz0; i++ {
					depth[i] = stage2[base+i*nx*ny]
				}
				for d := 0; d < nz; d++ {
					dst[base+d*nx*ny] = T(filter.Apply(rowsZ[d], depth))
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	scaleX := float64(nx) / float64(v.NX)
	scaleY := float64(ny) / float64(v.NY)
	scaleZ := float64(nz) / float64(v.NZ)
	m := v.Affine.ScaleAxis(0, scaleX).ScaleAxis(1, scaleY).ScaleAxis(2, scaleZ)

	v.ReplaceData(out, nx, ny, nz, v.NT)
	v.Affine = m
	return nil
}

// Subsamp2 performs the naive, unfiltered 2x downsample of spec §4.6,
// choosing a centring convention from offc alone; the handedness of the
// voxel-to-world determinant is not consulted. When offc is true the "offset centre"
// convention always shifts the origin by half a new voxel on every axis;
// otherwise the shift only applies to axes whose input dimension is odd.
func Subsamp2[T numeric.Float](v *volume.Volume[T], offc bool) error {
	nx, ny, nz := (v.NX+1)/2, (v.NY+1)/2, (v.NZ+1)/2
	out := make([]T, nx*ny*nz*v.NT)

	err := parallel.For(v.NT, func(t int) error {
		src := v.Volume3(t)
		dst := out[t*nx*ny*nz : (t+1)*nx*ny*nz]
		for z := 0; z < nz; z++ {
			sz := z * 2
			for y := 0; y < ny; y++ {
				sy := y * 2
				for x := 0; x < nx; x++ {
					sx := x * 2
					dst[x+y*nx+z*nx*ny] = src[sx+sy*v.NX+sz*v.NX*v.NY]
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	m := v.Affine.DoubleLinear()
	halfVoxel := func(axis int) (float64, float64, float64) {
		col := [3]float64{m[0][axis], m[1][axis], m[2][axis]}
		return col[0] / 2, col[1] / 2, col[2] / 2
	}
	var dx, dy, dz float64
	shiftAxis := func(axis int, dim int) {
		if !offc && dim%2 == 0 {
			return
		}
		hx, hy, hz := halfVoxel(axis)
		dx += hx
		dy += hy
		dz += hz
	}
	_ = v.Affine.IsRightHanded() // unused: the shift is the same for either handedness
	shiftAxis(0, v.NX)
	shiftAxis(1, v.NY)
	shiftAxis(2, v.NZ)
	m = m.Translate(dx, dy, dz)

	v.ReplaceData(out, nx, ny, nz, v.NT)
	v.Affine = m
	return nil
}
