// Package tensor implements diffusion-tensor eigendecomposition (spec
// §4.9): per voxel, eigenvalues/eigenvectors of a symmetric 3x3 tensor via
// gonum's mat.EigenSym, plus the derived FA/MD/MO scalars. Grounded on
// niimath's tensor_decomp() in coreFLT.c for the storage-order unpacking
// and the mode formula; the eigensolver itself is delegated to gonum
// rather than reimplementing the source's closed-form cubic/Jacobi solve.
package tensor

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/voxelmath/voxelmath/internal/numeric"
)

// Order selects how the six independent tensor components are packed
// across the six input volumes (spec §4.9).
type Order int

const (
	// LowerTriangle: Dxx, Dxy, Dyy, Dxz, Dyz, Dzz.
	LowerTriangle Order = iota
	// UpperTriangle: Dxx, Dxy, Dxz, Dyy, Dyz, Dzz.
	UpperTriangle
)

// Result holds the nine derived volumes tensor_decomp persists (spec
// §4.9): three eigenvalues (descending), three eigenvectors, and the
// FA/MD/MO scalar volumes.
type Result[T numeric.Float] struct {
	L1, L2, L3         []T
	V1, V2, V3         [][3]T
	FA, MD, MO         []T
}

// Decompose runs the per-voxel eigendecomposition over nvox voxels, each
// with six component values supplied by comps[0..5] in the given Order.
func Decompose[T numeric.Float](nvox int, comps [6][]T, order Order) Result[T] {
	out := Result[T]{
		L1: make([]T, nvox), L2: make([]T, nvox), L3: make([]T, nvox),
		V1: make([][3]T, nvox), V2: make([][3]T, nvox), V3: make([][3]T, nvox),
		FA: make([]T, nvox), MD: make([]T, nvox), MO: make([]T, nvox),
	}

	var es mat.EigenSym
	sym := mat.NewSymDense(3, nil)

	for i := 0; i < nvox; i++ {
		dxx, dxy, dyy, dxz, dyz, dzz := unpack(comps, i, order)
		sym.SetSym(0, 0, float64(dxx))
		sym.SetSym(0, 1, float64(dxy))
		sym.SetSym(0, 2, float64(dxz))
		sym.SetSym(1, 1, float64(dyy))
		sym.SetSym(1, 2, float64(dyz))
		sym.SetSym(2, 2, float64(dzz))

		ok := es.Factorize(sym, true)
		var l [3]float64
		var vecs mat.Dense
		if ok {
			vals := es.Values(nil)
			l[0], l[1], l[2] = vals[0], vals[1], vals[2]
			es.VectorsTo(&vecs)
		}

		// gonum returns eigenvalues ascending; spec wants L1>=L2>=L3.
		rank := [3]int{2, 1, 0}
		L1, L2, L3 := l[rank[0]], l[rank[1]], l[rank[2]]

		md := (L1 + L2 + L3) / 3
		e1, e2, e3 := L1-md, L2-md, L3-md
		num := (e1 + e2 - 2*e3) * (2*e1 - e2 - e3) * (e1 - 2*e2 + e3)
		denomBase := e1*e1 + e2*e2 + e3*e3 - e1*e2 - e2*e3 - e1*e3
		var mo float64
		if denomBase > 0 {
			mo = num / (2 * math.Pow(denomBase, 1.5))
		}
		mo = numeric.Clamp(mo, -1, 1)

		ss := L1*L1 + L2*L2 + L3*L3
		var fa float64
		if ss > 0 {
			fa = math.Sqrt(1.5 * (e1*e1 + e2*e2 + e3*e3) / ss)
		}

		out.L1[i], out.L2[i], out.L3[i] = T(L1), T(L2), T(L3)
		out.MD[i], out.MO[i], out.FA[i] = T(md), T(mo), T(fa)
		if ok {
			out.V1[i] = vecAt(&vecs, rank[0])
			out.V2[i] = vecAt(&vecs, rank[1])
			out.V3[i] = vecAt(&vecs, rank[2])
		}
	}

	return out
}

func vecAt[T numeric.Float](vecs *mat.Dense, col int) [3]T {
	return [3]T{T(vecs.At(0, col)), T(vecs.At(1, col)), T(vecs.At(2, col))}
}

func unpack[T numeric.Float](comps [6][]T, i int, order Order) (dxx, dxy, dyy, dxz, dyz, dzz T) {
	c := func(k int) T { return comps[k][i] }
	if order == LowerTriangle {
		return c(0), c(1), c(2), c(3), c(4), c(5)
	}
	// UpperTriangle: Dxx, Dxy, Dxz, Dyy, Dyz, Dzz.
	return c(0), c(1), c(3), c(2), c(4), c(5)
}
