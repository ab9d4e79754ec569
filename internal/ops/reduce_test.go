package ops

import (
	"testing"

	"github.com/voxelmath/voxelmath/internal/volume"
)

func newVol4D(t *testing.T, nx, ny, nz, nt int, data []float64) *volume.Volume[float64] {
	t.Helper()
	v, err := volume.New[float64](nx, ny, nz, nt)
	if err != nil {
		t.Fatalf("volume.New: %v", err)
	}
	copy(v.Data, data)
	return v
}

func TestReduceTmean(t *testing.T) {
	v := newVol4D(t, 1, 1, 1, 4, []float64{1, 2, 3, 4})
	if err := Reduce(v, 4, Tmean, 0); err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	if v.NT != 1 || v.Data[0] != 2.5 {
		t.Errorf("Tmean = %v (NT=%d), want 2.5 (NT=1)", v.Data, v.NT)
	}
}

func TestReduceTmaxTminTmaxn(t *testing.T) {
	vmax := newVol4D(t, 1, 1, 1, 4, []float64{3, 9, 1, 9})
	if err := Reduce(vmax, 4, Tmax, 0); err != nil {
		t.Fatalf("Reduce Tmax: %v", err)
	}
	if vmax.Data[0] != 9 {
		t.Errorf("Tmax = %v, want 9", vmax.Data[0])
	}

	vmin := newVol4D(t, 1, 1, 1, 4, []float64{3, 9, 1, 9})
	if err := Reduce(vmin, 4, Tmin, 0); err != nil {
		t.Fatalf("Reduce Tmin: %v", err)
	}
	if vmin.Data[0] != 1 {
		t.Errorf("Tmin = %v, want 1", vmin.Data[0])
	}

	vmaxn := newVol4D(t, 1, 1, 1, 4, []float64{3, 9, 1, 9})
	if err := Reduce(vmaxn, 4, Tmaxn, 0); err != nil {
		t.Fatalf("Reduce Tmaxn: %v", err)
	}
	// First occurrence of the maximum (index 1) wins.
	if vmaxn.Data[0] != 1 {
		t.Errorf("Tmaxn = %v, want 1 (first max index)", vmaxn.Data[0])
	}
}

func TestReduceTmedianOddAndTperc(t *testing.T) {
	v := newVol4D(t, 1, 1, 1, 5, []float64{9, 1, 5, 3, 7})
	if err := Reduce(v, 4, Tmedian, 0); err != nil {
		t.Fatalf("Reduce Tmedian: %v", err)
	}
	if v.Data[0] != 5 {
		t.Errorf("Tmedian = %v, want 5", v.Data[0])
	}

	vperc := newVol4D(t, 1, 1, 1, 5, []float64{9, 1, 5, 3, 7})
	if err := Reduce(vperc, 4, Tperc, 0); err != nil {
		t.Fatalf("Reduce Tperc(0): %v", err)
	}
	if vperc.Data[0] != 1 {
		t.Errorf("Tperc(0) = %v, want 1 (the minimum)", vperc.Data[0])
	}
}

func TestReduceTstdZeroVarianceIsZero(t *testing.T) {
	v := newVol4D(t, 1, 1, 1, 4, []float64{2, 2, 2, 2})
	if err := Reduce(v, 4, Tstd, 0); err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	if v.Data[0] != 0 {
		t.Errorf("Tstd of a constant series = %v, want 0", v.Data[0])
	}
}

func TestReduceTar1ConstantSeriesIsZero(t *testing.T) {
	v := newVol4D(t, 1, 1, 1, 4, []float64{5, 5, 5, 5})
	if err := Reduce(v, 4, Tar1, 0); err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	if v.Data[0] != 0 {
		t.Errorf("Tar1 of a zero-variance series = %v, want 0 (guarded divide)", v.Data[0])
	}
}

func TestReduceDegenerateAxisIsNoOp(t *testing.T) {
	v := newVol4D(t, 3, 1, 1, 1, []float64{1, 2, 3})
	if err := Reduce(v, 4, Tmean, 0); err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	want := []float64{1, 2, 3}
	for i := range want {
		if v.Data[i] != want[i] {
			t.Errorf("Reduce over a length-1 axis mutated data: got %v, want %v", v.Data, want)
		}
	}
	if v.NT != 1 {
		t.Errorf("NT = %d, want 1 unchanged", v.NT)
	}
}

func TestReduceAlongZAxis(t *testing.T) {
	// 1x1x3 volume, single timepoint: reducing Z collapses to a scalar.
	v := newVol4D(t, 1, 1, 3, 1, []float64{10, 20, 30})
	if err := Reduce(v, 3, Tmean, 0); err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	if v.NZ != 1 || v.Data[0] != 20 {
		t.Errorf("Tmean over Z = %v (NZ=%d), want 20 (NZ=1)", v.Data, v.NZ)
	}
}
