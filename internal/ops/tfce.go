// Threshold-free cluster enhancement (spec §4.10). For 100 thresholds
// between max/100 and max, flood-fills connected components above
// threshold with the requested connectivity and accumulates
// |component|^E * threshold^H into every member voxel. Grounded on
// niimath's tfce()/tfceS() in coreFLT.c; reuses the morphological kernel's
// three-plane wrap-rejection (neighbours in morph.go) so a flood queue
// never crosses a left-right or anterior-posterior wrap the same way a
// kernel filter wouldn't.
package ops

import (
	"math"

	"github.com/voxelmath/voxelmath/internal/kernel"
	"github.com/voxelmath/voxelmath/internal/numeric"
	"github.com/voxelmath/voxelmath/internal/parallel"
	"github.com/voxelmath/voxelmath/internal/volume"
)

// connectivityKernel builds the face/edge/corner neighbour offsets for
// connectivity c (spec §4.10: 6, 18, or 26).
func connectivityKernel(c int) kernel.Kernel {
	var entries []kernel.Entry
	for dz := -1; dz <= 1; dz++ {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 && dz == 0 {
					continue
				}
				n := 0
				if dx != 0 {
					n++
				}
				if dy != 0 {
					n++
				}
				if dz != 0 {
					n++
				}
				switch c {
				case 6:
					if n != 1 {
						continue
					}
				case 18:
					if n > 2 {
						continue
					}
				}
				entries = append(entries, kernel.Entry{Dx: dx, Dy: dy, Dz: dz, Weight: 1})
			}
		}
	}
	return kernel.Kernel{Entries: entries}
}

// rebuildOffsets computes each entry's linear Offset against the volume's
// actual X/Y strides; connectivityKernel only fixes the Dx/Dy/Dz triples.
func rebuildOffsets(k kernel.Kernel, nx, ny int) kernel.Kernel {
	out := make([]kernel.Entry, len(k.Entries))
	for i, e := range k.Entries {
		out[i] = kernel.Entry{
			Offset: e.Dx + e.Dy*nx + e.Dz*nx*ny,
			Dx:     e.Dx, Dy: e.Dy, Dz: e.Dz, Weight: 1,
		}
	}
	return kernel.Kernel{Entries: out}
}

// TFCE applies threshold-free cluster enhancement to v in place (spec
// §4.10): H is the height exponent, E the extent exponent, c the
// connectivity.
func TFCE[T numeric.Float](v *volume.Volume[T], h, e float64, c int) error {
	k := rebuildOffsets(connectivityKernel(c), v.NX, v.NY)
	return parallel.For(v.NT, func(t int) error {
		vol3 := v.Volume3(t)
		tfceVolume(vol3, k, v.NX, v.NY, v.NZ, h, e, nil)
		return nil
	})
}

// TFCES is the seeded variant: flood only from seed (spec §4.10),
// terminating a component's flood early once its accumulated value at the
// seed passes stopAt.
func TFCES[T numeric.Float](v *volume.Volume[T], h, e float64, c int, seed int, stopAt float64) error {
	k := rebuildOffsets(connectivityKernel(c), v.NX, v.NY)
	return parallel.For(v.NT, func(t int) error {
		vol3 := v.Volume3(t)
		tfceVolume(vol3, k, v.NX, v.NY, v.NZ, h, e, &seedSpec{index: seed, stopAt: stopAt})
		return nil
	})
}

type seedSpec struct {
	index  int
	stopAt float64
}

func tfceVolume[T numeric.Float](vol3 []T, k kernel.Kernel, nx, ny, nz int, h, e float64, seed *seedSpec) {
	n3 := nx * ny * nz
	var mx float64
	for _, v := range vol3 {
		fv := float64(v)
		if fv > mx {
			mx = fv
		}
	}
	if mx <= 0 {
		return
	}

	accum := make([]float64, n3)
	visited := make([]bool, n3)
	queue := make([]int, 0, n3)
	var comp []int

	flood := func(src []T, thr float64, start int) []int {
		comp = comp[:0]
		queue = queue[:0]
		queue = append(queue, start)
		visited[start] = true
		for len(queue) > 0 {
			i := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			comp = append(comp, i)
			x := i % nx
			y := (i / nx) % ny
			for _, ent := range k.Entries {
				vx := i + ent.Offset
				if vx < 0 || vx >= n3 {
					continue
				}
				dx := x + ent.Dx
				if dx < 0 || dx >= nx {
					continue
				}
				dy := y + ent.Dy
				if dy < 0 || dy >= ny {
					continue
				}
				if visited[vx] || float64(src[vx]) < thr {
					continue
				}
				visited[vx] = true
				queue = append(queue, vx)
			}
		}
		return comp
	}

	const steps = 100
	for step := 1; step <= steps; step++ {
		thr := mx * float64(step) / steps
		for i := range visited {
			visited[i] = false
		}

		if seed != nil {
			if float64(vol3[seed.index]) < thr {
				continue
			}
			if accum[seed.index] >= seed.stopAt {
				break
			}
			c := flood(vol3, thr, seed.index)
			contribution := math.Pow(float64(len(c)), e) * math.Pow(thr, h)
			for _, idx := range c {
				accum[idx] += contribution
			}
			continue
		}

		for start := 0; start < n3; start++ {
			if visited[start] || float64(vol3[start]) < thr {
				continue
			}
			c := flood(vol3, thr, start)
			contribution := math.Pow(float64(len(c)), e) * math.Pow(thr, h)
			for _, idx := range c {
				accum[idx] += contribution
			}
		}
	}

	for i := range vol3 {
		vol3[i] = T(accum[i])
	}
}
