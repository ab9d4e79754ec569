package filter

import (
	"math"
	"testing"
)

func TestBuildIdentitySameLength(t *testing.T) {
	rows := Build(Box, 4, 4)
	if len(rows) != 4 {
		t.Fatalf("len(rows) = %d, want 4", len(rows))
	}
	src := []float64{10, 20, 30, 40}
	for i, row := range rows {
		got := Apply(row, src)
		if math.Abs(got-src[i]) > 1e-9 {
			t.Errorf("Apply(row[%d]) = %v, want %v", i, got, src[i])
		}
	}
}

func TestBuildWeightsSumToOne(t *testing.T) {
	for _, m := range []Method{Box, Triangle, CubicBSpline, Lanczos3, Mitchell} {
		rows := Build(m, 5, 9)
		for d, row := range rows {
			var sum float64
			for _, tap := range row {
				sum += tap.Weight
			}
			if len(row) > 0 && math.Abs(sum-1) > 1e-6 {
				t.Errorf("method %d row %d: weights sum to %v, want 1", m, d, sum)
			}
		}
	}
}

func TestBuildDegenerateLengths(t *testing.T) {
	if rows := Build(Box, 0, 5); rows != nil {
		t.Errorf("Build with srcLen=0 should return nil, got %v", rows)
	}
	if rows := Build(Box, 5, 0); rows != nil {
		t.Errorf("Build with dstLen=0 should return nil, got %v", rows)
	}
}

func TestReflectBoundary(t *testing.T) {
	if got := reflect(-1, 5); got != 0 {
		t.Errorf("reflect(-1,5) = %d, want 0", got)
	}
	if got := reflect(5, 5); got != 4 {
		t.Errorf("reflect(5,5) = %d, want 4", got)
	}
	if got := reflect(2, 5); got != 2 {
		t.Errorf("reflect(2,5) = %d, want 2", got)
	}
	if got := reflect(3, 1); got != 0 {
		t.Errorf("reflect with n<=1 should clamp to 0, got %d", got)
	}
}

func TestDownsampleWidensSupport(t *testing.T) {
	rows := Build(Box, 10, 2)
	for _, row := range rows {
		if len(row) < 2 {
			t.Errorf("downsampling 10->2 should widen the box support beyond a single tap, got %d taps", len(row))
		}
	}
}
