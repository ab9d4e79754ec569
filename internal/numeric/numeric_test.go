package numeric

import "testing"

func TestIsNaN(t *testing.T) {
	if !IsNaN(float64(0) / 0) {
		t.Fatal("IsNaN(0/0) = false, want true")
	}
	if IsNaN(1.0) {
		t.Fatal("IsNaN(1.0) = true, want false")
	}
}

func TestClamp(t *testing.T) {
	tests := []struct{ v, lo, hi, want float64 }{
		{5, 0, 10, 5},
		{-1, 0, 10, 0},
		{11, 0, 10, 10},
	}
	for _, tc := range tests {
		if got := Clamp(tc.v, tc.lo, tc.hi); got != tc.want {
			t.Errorf("Clamp(%v,%v,%v) = %v, want %v", tc.v, tc.lo, tc.hi, got, tc.want)
		}
	}
}

func TestClampInt(t *testing.T) {
	if got := ClampInt(15, 0, 10); got != 10 {
		t.Errorf("ClampInt(15,0,10) = %d, want 10", got)
	}
	if got := ClampInt(-3, 0, 10); got != 0 {
		t.Errorf("ClampInt(-3,0,10) = %d, want 0", got)
	}
}

func TestAbs(t *testing.T) {
	if got := Abs(-3.5); got != 3.5 {
		t.Errorf("Abs(-3.5) = %v, want 3.5", got)
	}
	if got := Abs(3.5); got != 3.5 {
		t.Errorf("Abs(3.5) = %v, want 3.5", got)
	}
}

func TestMaxMinNaNExclusion(t *testing.T) {
	nan := float64(0) / 0
	if got := Max(nan, 2.0); got != 2.0 {
		t.Errorf("Max(NaN, 2) = %v, want 2", got)
	}
	if got := Max(2.0, nan); got != 2.0 {
		t.Errorf("Max(2, NaN) = %v, want 2", got)
	}
	if got := Min(nan, 2.0); got != 2.0 {
		t.Errorf("Min(NaN, 2) = %v, want 2", got)
	}
	if got := Max(3.0, 5.0); got != 5.0 {
		t.Errorf("Max(3,5) = %v, want 5", got)
	}
	if got := Min(3.0, 5.0); got != 3.0 {
		t.Errorf("Min(3,5) = %v, want 3", got)
	}
}
