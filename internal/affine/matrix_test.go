package affine

import "testing"

func TestIdentity(t *testing.T) {
	m := Identity()
	if m.Det3() != 1 {
		t.Errorf("Identity().Det3() = %v, want 1", m.Det3())
	}
	if !m.IsRightHanded() {
		t.Error("Identity() should be right-handed")
	}
}

func TestScaleAxis(t *testing.T) {
	m := Identity()
	out := m.ScaleAxis(0, 2)
	if out[0][0] != 0.5 {
		t.Errorf("ScaleAxis(0,2)[0][0] = %v, want 0.5", out[0][0])
	}
	if out[1][1] != 1 || out[2][2] != 1 {
		t.Errorf("ScaleAxis should leave other axes untouched: %v", out)
	}
	noop := m.ScaleAxis(0, 0)
	if noop != m {
		t.Errorf("ScaleAxis by zero factor should be a no-op, got %v", noop)
	}
}

func TestTranslate(t *testing.T) {
	m := Identity()
	out := m.Translate(1, 2, 3)
	if out[0][3] != 1 || out[1][3] != 2 || out[2][3] != 3 {
		t.Errorf("Translate: got row-3 column = (%v,%v,%v), want (1,2,3)", out[0][3], out[1][3], out[2][3])
	}
	if out[0][0] != 1 {
		t.Errorf("Translate should preserve the linear part")
	}
}

func TestDoubleLinear(t *testing.T) {
	m := Identity()
	out := m.DoubleLinear()
	if out[0][0] != 2 || out[1][1] != 2 || out[2][2] != 2 {
		t.Errorf("DoubleLinear: got diagonal (%v,%v,%v), want all 2", out[0][0], out[1][1], out[2][2])
	}
}

func TestAxisPairApply(t *testing.T) {
	p := NewAxisPair(2, 1, 3, -1)
	x, y := p.Apply(1, 1)
	if x != 3 || y != 2 {
		t.Errorf("Apply(1,1) = (%v,%v), want (3,2)", x, y)
	}
	if p.ScaleX() != 2 || p.ScaleY() != 3 {
		t.Errorf("ScaleX/ScaleY = (%v,%v), want (2,3)", p.ScaleX(), p.ScaleY())
	}
}
