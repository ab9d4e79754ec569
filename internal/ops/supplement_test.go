package ops

import (
	"math"
	"testing"
)

func TestInmScalesWholeBufferToTargetMean(t *testing.T) {
	v := newVol3D(t, 4, 1, 1, []float64{1, 2, 3, 4})
	Inm(v, 10)
	var sum float64
	for _, x := range v.Data {
		sum += x
	}
	mean := sum / float64(len(v.Data))
	if math.Abs(mean-10) > 1e-9 {
		t.Errorf("mean after Inm = %v, want 10", mean)
	}
}

func TestInmZeroMeanIsNoOp(t *testing.T) {
	v := newVol3D(t, 3, 1, 1, []float64{-1, 0, 1})
	Inm(v, 10)
	want := []float64{-1, 0, 1}
	for i := range want {
		if v.Data[i] != want[i] {
			t.Errorf("Inm on a zero-mean buffer should be a no-op: got %v, want %v", v.Data, want)
		}
	}
}

func TestIngScalesEachVolumeIndependently(t *testing.T) {
	v := newVol4D(t, 1, 1, 1, 2, []float64{2, 20})
	// two single-voxel "volumes" with means 2 and 20 respectively
	Ing(v, 1)
	want := []float64{1, 1}
	for i := range want {
		if math.Abs(v.Data[i]-want[i]) > 1e-9 {
			t.Errorf("Ing: v.Data[%d] = %v, want %v", i, v.Data[i], want[i])
		}
	}
}

func TestFillhFillsEnclosedHole(t *testing.T) {
	// 3x3x3 cube, all foreground except the centre voxel: the centre is
	// fully enclosed and should be filled back to foreground.
	data := make([]float64, 27)
	for i := range data {
		data[i] = 1
	}
	centre := 1 + 1*3 + 1*9
	data[centre] = 0
	v := newVol3D(t, 3, 3, 3, data)
	if err := Fillh(v, false); err != nil {
		t.Fatalf("Fillh: %v", err)
	}
	if v.Data[centre] != 1 {
		t.Errorf("Fillh should fill the enclosed hole, got %v", v.Data[centre])
	}
}

func TestFillhLeavesExteriorBackgroundAlone(t *testing.T) {
	data := make([]float64, 27)
	for i := range data {
		data[i] = 1
	}
	corner := 0
	data[corner] = 0
	v := newVol3D(t, 3, 3, 3, data)
	if err := Fillh(v, false); err != nil {
		t.Fatalf("Fillh: %v", err)
	}
	if v.Data[corner] != 0 {
		t.Errorf("Fillh should not fill background reachable from the border, got %v", v.Data[corner])
	}
}

func TestFillhTooSmallVolumeOnlyBinarises(t *testing.T) {
	v := newVol3D(t, 2, 2, 1, []float64{-1, 0, 1, 2})
	if err := Fillh(v, false); err != nil {
		t.Fatalf("Fillh: %v", err)
	}
	want := []float64{0, 0, 1, 1}
	for i := range want {
		if v.Data[i] != want[i] {
			t.Errorf("v.Data[%d] = %v, want %v", i, v.Data[i], want[i])
		}
	}
}
