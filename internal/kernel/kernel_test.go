package kernel

import (
	"math"
	"testing"
)

func weightSum(k Kernel) float64 {
	var s float64
	for _, e := range k.Entries {
		s += e.Weight
	}
	return s
}

func TestBoxHasCentreAndNormalisedWeights(t *testing.T) {
	k := Box(10, 10, 1, 1, 0)
	if !k.HasCentre() {
		t.Error("Box kernel should include the centre voxel")
	}
	if len(k.Entries) != 9 {
		t.Errorf("2D box half-width 1 should have 9 entries, got %d", len(k.Entries))
	}
	if math.Abs(weightSum(k)-1) > 1e-9 {
		t.Errorf("weights should sum to 1, got %v", weightSum(k))
	}
}

func TestBox3D(t *testing.T) {
	k := Box(10, 10, 1, 1, 1)
	if len(k.Entries) != 27 {
		t.Errorf("3x3x3 box should have 27 entries, got %d", len(k.Entries))
	}
}

func TestSphereExcludesDistantVoxels(t *testing.T) {
	k := Sphere(10, 10, 1.0, 1, 1, 1)
	for _, e := range k.Entries {
		if e.Dx == 1 && e.Dy == 1 && e.Dz == 1 {
			t.Error("a Euclidean sphere of radius 1 should exclude the diagonal voxel at sqrt(3)")
		}
	}
	if !k.HasCentre() {
		t.Error("Sphere should include the centre voxel")
	}
}

func TestGaussianDecaysWithDistance(t *testing.T) {
	k := Gaussian(20, 20, 1.0, 1, 1, 1, 4)
	var centreWeight, farWeight float64
	for _, e := range k.Entries {
		if e.Dx == 0 && e.Dy == 0 && e.Dz == 0 {
			centreWeight = e.Weight
		}
		if e.Dx == 2 && e.Dy == 0 && e.Dz == 0 {
			farWeight = e.Weight
		}
	}
	if centreWeight <= farWeight {
		t.Errorf("centre weight %v should exceed a farther voxel's weight %v", centreWeight, farWeight)
	}
}

func TestFromMaskWeightsByAbsValue(t *testing.T) {
	mask := []float64{
		0, 0, 0,
		0, 2, 0,
		0, -4, 0,
	}
	k := FromMask(mask, 3, 3, 1)
	if len(k.Entries) != 2 {
		t.Fatalf("expected 2 non-zero mask entries, got %d", len(k.Entries))
	}
	if math.Abs(weightSum(k)-1) > 1e-9 {
		t.Errorf("FromMask weights should sum to 1, got %v", weightSum(k))
	}
}
