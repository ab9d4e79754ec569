package ops

import (
	"math"
	"testing"

	"github.com/voxelmath/voxelmath/internal/filter"
)

func TestResizeIdentityIsUnchanged(t *testing.T) {
	v := newVol3D(t, 3, 1, 1, []float64{1, 2, 3})
	if err := Resize(v, 3, 1, 1, filter.Box); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	want := []float64{1, 2, 3}
	for i := range want {
		if math.Abs(v.Data[i]-want[i]) > 1e-9 {
			t.Errorf("Resize to the same shape mutated data: got %v, want %v", v.Data, want)
		}
	}
}

func TestResizeUniformVolumeStaysUniform(t *testing.T) {
	v := newVol3D(t, 2, 2, 1, []float64{4, 4, 4, 4})
	if err := Resize(v, 4, 4, 1, filter.Triangle); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if v.NX != 4 || v.NY != 4 {
		t.Fatalf("dims = (%d,%d), want (4,4)", v.NX, v.NY)
	}
	for i, got := range v.Data {
		if math.Abs(got-4) > 1e-6 {
			t.Errorf("v.Data[%d] = %v, want 4 (upsampling a constant volume preserves its value)", i, got)
		}
	}
}

func TestResizeUpdatesAffineScale(t *testing.T) {
	v := newVol3D(t, 2, 2, 1, []float64{1, 2, 3, 4})
	before := v.Affine
	if err := Resize(v, 4, 4, 1, filter.Box); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	for r := 0; r < 3; r++ {
		for c := 0; c < 2; c++ {
			want := before[r][c] / 2
			if math.Abs(v.Affine[r][c]-want) > 1e-9 {
				t.Errorf("Affine[%d][%d] = %v, want %v (column scaled by src/dst)", r, c, v.Affine[r][c], want)
			}
		}
	}
}

func TestResizeRejectsNonPositiveDims(t *testing.T) {
	v := newVol3D(t, 2, 2, 1, []float64{1, 2, 3, 4})
	if err := Resize(v, 0, 2, 1, filter.Box); err == nil {
		t.Fatal("Resize with nx=0 should return an error")
	}
}

func TestSubsamp2HalvesEachAxis(t *testing.T) {
	v := newVol3D(t, 4, 4, 1, []float64{
		1, 2, 3, 4,
		5, 6, 7, 8,
		9, 10, 11, 12,
		13, 14, 15, 16,
	})
	if err := Subsamp2(v, false); err != nil {
		t.Fatalf("Subsamp2: %v", err)
	}
	if v.NX != 2 || v.NY != 2 {
		t.Fatalf("dims = (%d,%d), want (2,2)", v.NX, v.NY)
	}
	want := []float64{1, 3, 9, 11}
	for i := range want {
		if v.Data[i] != want[i] {
			t.Errorf("v.Data[%d] = %v, want %v (even-indexed source voxels)", i, v.Data[i], want[i])
		}
	}
}

func TestSubsamp2OddDimensionRoundsUp(t *testing.T) {
	v := newVol3D(t, 3, 1, 1, []float64{1, 2, 3})
	if err := Subsamp2(v, false); err != nil {
		t.Fatalf("Subsamp2: %v", err)
	}
	if v.NX != 2 {
		t.Fatalf("NX = %d, want 2 ((3+1)/2)", v.NX)
	}
	want := []float64{1, 3}
	for i := range want {
		if v.Data[i] != want[i] {
			t.Errorf("v.Data[%d] = %v, want %v", i, v.Data[i], want[i])
		}
	}
}
