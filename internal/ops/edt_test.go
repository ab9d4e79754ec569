package ops

import (
	"math"
	"testing"

	"github.com/voxelmath/voxelmath/internal/volume"
)

func newVol3D(t *testing.T, nx, ny, nz int, data []float64) *volume.Volume[float64] {
	t.Helper()
	v, err := volume.New[float64](nx, ny, nz, 1)
	if err != nil {
		t.Fatalf("volume.New: %v", err)
	}
	copy(v.Data, data)
	return v
}

func TestEDTBackgroundVoxelsAreZero(t *testing.T) {
	// A single foreground voxel (index 2) surrounded by background: the
	// background voxels are themselves the distance-zero sources, and the
	// foreground voxel's squared distance to the nearest one is 1.
	v := newVol3D(t, 5, 1, 1, []float64{0, 0, 1, 0, 0})
	if err := EDT(v); err != nil {
		t.Fatalf("EDT: %v", err)
	}
	want := []float64{0, 0, 1, 0, 0}
	for i := range want {
		if v.Data[i] != want[i] {
			t.Errorf("v.Data[%d] = %v, want %v", i, v.Data[i], want[i])
		}
	}
}

func TestEDTAllForegroundHasNoBackgroundSource(t *testing.T) {
	// With no background voxel anywhere in the row, every voxel's distance
	// to the nearest background voxel is undefined and the transform
	// reports +Inf.
	v := newVol3D(t, 3, 1, 1, []float64{1, 1, 1})
	if err := EDT(v); err != nil {
		t.Fatalf("EDT: %v", err)
	}
	for i, got := range v.Data {
		if !math.IsInf(got, 1) {
			t.Errorf("v.Data[%d] = %v, want +Inf (no background voxel in the row)", i, got)
		}
	}
}

func TestEDTTwoDimensional(t *testing.T) {
	// A 3x3 grid with a single foreground voxel at the centre: every
	// background voxel is a distance-zero source, and the centre's squared
	// distance to its nearest (4-connected) background neighbour is 1.
	v := newVol3D(t, 3, 3, 1, []float64{
		0, 0, 0,
		0, 1, 0,
		0, 0, 0,
	})
	if err := EDT(v); err != nil {
		t.Fatalf("EDT: %v", err)
	}
	want := []float64{
		0, 0, 0,
		0, 1, 0,
		0, 0, 0,
	}
	for i := range want {
		if v.Data[i] != want[i] {
			t.Errorf("v.Data[%d] = %v, want %v", i, v.Data[i], want[i])
		}
	}
}
