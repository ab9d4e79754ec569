package ops

import (
	"math"
	"testing"
)

func TestBptfRequiresFourD(t *testing.T) {
	v := newVol3D(t, 2, 2, 1, []float64{1, 2, 3, 4})
	if err := Bptf(v, 1, 0, false); err == nil {
		t.Fatal("Bptf on a single-timepoint volume should return an error")
	}
}

func TestBptfNoOpWhenBothSigmasNonPositive(t *testing.T) {
	v := newVol4D(t, 1, 1, 1, 4, []float64{1, 2, 3, 4})
	if err := Bptf(v, 0, 0, false); err != nil {
		t.Fatalf("Bptf: %v", err)
	}
	want := []float64{1, 2, 3, 4}
	for i := range want {
		if v.Data[i] != want[i] {
			t.Errorf("Bptf with both sigmas <= 0 should be a no-op, got %v", v.Data)
		}
	}
}

func TestBptfLowPassPreservesConstantSeries(t *testing.T) {
	v := newVol4D(t, 1, 1, 1, 9, []float64{3, 3, 3, 3, 3, 3, 3, 3, 3})
	if err := Bptf(v, 0, 1.5, false); err != nil {
		t.Fatalf("Bptf: %v", err)
	}
	for i, got := range v.Data {
		if math.Abs(got-3) > 1e-9 {
			t.Errorf("v.Data[%d] = %v, want 3 (a weighted average of a constant series is that constant)", i, got)
		}
	}
}

func TestBptfHighPassZeroesConstantSeriesAwayFromBoundary(t *testing.T) {
	v := newVol4D(t, 1, 1, 1, 9, []float64{5, 5, 5, 5, 5, 5, 5, 5, 5})
	if err := Bptf(v, 1, 0, false); err != nil {
		t.Fatalf("Bptf: %v", err)
	}
	// Interior timepoints have a fully symmetric regression window, so the
	// local linear trend removed is exactly the constant itself.
	mid := v.NT / 2
	if math.Abs(v.Data[mid]) > 1e-9 {
		t.Errorf("interior high-pass residual of a constant series = %v, want 0", v.Data[mid])
	}
}

func TestBandpassRequiresFourD(t *testing.T) {
	v := newVol3D(t, 2, 2, 1, []float64{1, 2, 3, 4})
	if err := Bandpass(v, 1, 0.01, 0.1); err == nil {
		t.Fatal("Bandpass on a single-timepoint volume should return an error")
	}
}

func TestBandpassInvalidBandReturnsError(t *testing.T) {
	v := newVol4D(t, 1, 1, 1, 20, make([]float64, 20))
	if err := Bandpass(v, 1, 0.3, 0.1); err == nil {
		t.Fatal("Bandpass with hpHz >= lpHz should return an error")
	}
}

func TestBandpassTooShortSeriesReturnsError(t *testing.T) {
	v := newVol4D(t, 1, 1, 1, 4, []float64{1, 2, 3, 4})
	if err := Bandpass(v, 1, 0.01, 0.1); err == nil {
		t.Fatal("Bandpass on a series shorter than the edge pad should return an error")
	}
}

func TestBandpassProducesFiniteOutput(t *testing.T) {
	data := make([]float64, 20)
	for i := range data {
		data[i] = 3
	}
	v := newVol4D(t, 1, 1, 1, 20, data)
	if err := Bandpass(v, 1, 0.01, 0.3); err != nil {
		t.Fatalf("Bandpass: %v", err)
	}
	for i, got := range v.Data {
		if math.IsNaN(got) || math.IsInf(got, 0) {
			t.Fatalf("v.Data[%d] = %v, want a finite value", i, got)
		}
	}
}
