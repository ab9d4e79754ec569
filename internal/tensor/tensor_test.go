package tensor

import (
	"math"
	"testing"
)

func TestDecomposeIsotropicTensorHasZeroAnisotropy(t *testing.T) {
	// Dxx, Dxy, Dyy, Dxz, Dyz, Dzz (LowerTriangle) for 2*I.
	comps := [6][]float64{{2}, {0}, {2}, {0}, {0}, {2}}
	res := Decompose(1, comps, LowerTriangle)
	if math.Abs(res.FA[0]) > 1e-9 {
		t.Errorf("isotropic tensor FA = %v, want 0", res.FA[0])
	}
	if math.Abs(res.MD[0]-2) > 1e-9 {
		t.Errorf("isotropic tensor MD = %v, want 2", res.MD[0])
	}
	for _, l := range []float64{res.L1[0], res.L2[0], res.L3[0]} {
		if math.Abs(l-2) > 1e-6 {
			t.Errorf("isotropic tensor eigenvalue = %v, want 2", l)
		}
	}
}

func TestDecomposeDiagonalTensorOrdersEigenvaluesDescending(t *testing.T) {
	// diag(3, 2, 1): Dxx=3, Dxy=0, Dyy=2, Dxz=0, Dyz=0, Dzz=1.
	comps := [6][]float64{{3}, {0}, {2}, {0}, {0}, {1}}
	res := Decompose(1, comps, LowerTriangle)
	if math.Abs(res.L1[0]-3) > 1e-6 || math.Abs(res.L2[0]-2) > 1e-6 || math.Abs(res.L3[0]-1) > 1e-6 {
		t.Fatalf("eigenvalues = (%v,%v,%v), want (3,2,1)", res.L1[0], res.L2[0], res.L3[0])
	}
	if res.FA[0] <= 0 {
		t.Errorf("anisotropic tensor FA = %v, want > 0", res.FA[0])
	}
	wantMD := (3.0 + 2.0 + 1.0) / 3.0
	if math.Abs(res.MD[0]-wantMD) > 1e-6 {
		t.Errorf("MD = %v, want %v", res.MD[0], wantMD)
	}
}

func TestDecomposeUpperTriangleUnpacking(t *testing.T) {
	// UpperTriangle storage: Dxx, Dxy, Dxz, Dyy, Dyz, Dzz.
	comps := [6][]float64{{3}, {0}, {0}, {2}, {0}, {1}}
	res := Decompose(1, comps, UpperTriangle)
	if math.Abs(res.L1[0]-3) > 1e-6 || math.Abs(res.L2[0]-2) > 1e-6 || math.Abs(res.L3[0]-1) > 1e-6 {
		t.Fatalf("eigenvalues = (%v,%v,%v), want (3,2,1)", res.L1[0], res.L2[0], res.L3[0])
	}
}
