package pipeline

import (
	"testing"

	"github.com/voxelmath/voxelmath/internal/affine"
	"github.com/voxelmath/voxelmath/internal/datatype"
	"github.com/voxelmath/voxelmath/internal/ioutil"
)

// memReader is an in-memory ioutil.Reader backed by a path-keyed table,
// standing in for the on-disk NIfTI collaborator so the driver's
// operation semantics can be exercised without touching a filesystem.
type memReader[T ~float32 | ~float64] struct {
	volumes map[string]ioutil.Loaded[T]
}

func (m memReader[T]) Read(path string) (ioutil.Loaded[T], error) {
	l, ok := m.volumes[path]
	if !ok {
		return ioutil.Loaded[T]{}, errNotFound
	}
	return l, nil
}

var errNotFound = &notFoundErr{}

type notFoundErr struct{}

func (*notFoundErr) Error() string { return "memReader: path not found" }

// memWriter captures the last WriteRequest it receives.
type memWriter[T ~float32 | ~float64] struct {
	got *ioutil.WriteRequest[T]
}

func (m *memWriter[T]) Write(req ioutil.WriteRequest[T], path string) error {
	m.got = &req
	return nil
}

func loaded3D[T ~float32 | ~float64](nx, ny, nz int, data []T) ioutil.Loaded[T] {
	return ioutil.Loaded[T]{
		Data: data, NX: nx, NY: ny, NZ: nz, NT: 1,
		DX: 1, DY: 1, DZ: 1, DT: 1,
		Datatype: datatype.Float32, Slope: 1, Intercept: 0,
		Affine: affine.Identity(),
	}
}

func loaded4D[T ~float32 | ~float64](nx, ny, nz, nt int, data []T) ioutil.Loaded[T] {
	l := loaded3D(nx, ny, nz, data)
	l.NT = nt
	return l
}

func runPipeline(t *testing.T, args []string, in ioutil.Loaded[float64]) *ioutil.WriteRequest[float64] {
	t.Helper()
	reader := memReader[float64]{volumes: map[string]ioutil.Loaded[float64]{"in.nii": in}}
	writer := &memWriter[float64]{}
	code := Run[float64](args, reader, writer)
	if code != 0 {
		t.Fatalf("Run() exit code = %d, want 0", code)
	}
	if writer.got == nil {
		t.Fatalf("Run() never wrote an output")
	}
	return writer.got
}

func approxEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		d := a[i] - b[i]
		if d < 0 {
			d = -d
		}
		if d > 1e-9 {
			return false
		}
	}
	return true
}

// TestRunEndToEndScenarios exercises one scenario per pipeline
// operation family documented as a worked example (spec §8).
func TestRunEndToEndScenarios(t *testing.T) {
	t.Run("edt 3-voxel column with a single background voxel", func(t *testing.T) {
		// The background voxel (the middle 0) is the distance-zero source;
		// both foreground voxels are a squared distance of 1 from it.
		in := loaded3D(1, 1, 3, []float64{1, 0, 1})
		out := runPipeline(t, []string{"in.nii", "-edt", "out.nii"}, in)
		want := []float64{1, 0, 1}
		if !approxEqual(out.Data, want) {
			t.Fatalf("got %v, want %v", out.Data, want)
		}
	})

	t.Run("edt 5-voxel row with a single foreground voxel", func(t *testing.T) {
		// Every background voxel is its own distance-zero source; the lone
		// foreground voxel is a squared distance of 1 from its nearest one.
		in := loaded3D(5, 1, 1, []float64{0, 0, 1, 0, 0})
		out := runPipeline(t, []string{"in.nii", "-edt", "out.nii"}, in)
		want := []float64{0, 0, 1, 0, 0}
		if !approxEqual(out.Data, want) {
			t.Fatalf("got %v, want %v", out.Data, want)
		}
	})

	t.Run("Tmean over a two-timepoint series", func(t *testing.T) {
		in := loaded4D(1, 1, 2, 2, []float64{1, 2, 3, 4})
		out := runPipeline(t, []string{"in.nii", "-Tmean", "out.nii"}, in)
		want := []float64{2, 3}
		if !approxEqual(out.Data, want) {
			t.Fatalf("got %v, want %v", out.Data, want)
		}
		if out.NT != 1 {
			t.Fatalf("NT = %d, want 1", out.NT)
		}
	})

	t.Run("Tmedian over a three-timepoint series", func(t *testing.T) {
		in := loaded4D(1, 1, 1, 3, []float64{4, 2, 6})
		out := runPipeline(t, []string{"in.nii", "-Tmedian", "out.nii"}, in)
		want := []float64{4}
		if !approxEqual(out.Data, want) {
			t.Fatalf("got %v, want %v", out.Data, want)
		}
	})

	t.Run("otsu threshold on a constant volume is a no-op", func(t *testing.T) {
		in := loaded3D(2, 2, 1, []float64{5, 5, 5, 5})
		out := runPipeline(t, []string{"in.nii", "-otsu", "1", "out.nii"}, in)
		want := []float64{5, 5, 5, 5}
		if !approxEqual(out.Data, want) {
			t.Fatalf("got %v, want %v", out.Data, want)
		}
	})

	t.Run("otsu produces a binary mask and keeps the brightest voxel foreground", func(t *testing.T) {
		data := make([]float64, 30)
		for i := range data {
			data[i] = float64(i)
		}
		in := loaded3D(30, 1, 1, data)
		out := runPipeline(t, []string{"in.nii", "-otsu", "3", "out.nii"}, in)
		for i, x := range out.Data {
			if x != 0 && x != 1 {
				t.Fatalf("out.Data[%d] = %v, want 0 or 1", i, x)
			}
		}
		if out.Data[len(out.Data)-1] != 1 {
			t.Fatalf("brightest voxel should be classified foreground, got %v", out.Data[len(out.Data)-1])
		}
		// A monotonically increasing ramp thresholds monotonically: once a
		// voxel crosses into foreground, every brighter voxel stays there.
		seenForeground := false
		for _, x := range out.Data {
			if x == 1 {
				seenForeground = true
			} else if seenForeground {
				t.Fatalf("foreground/background split is not monotonic for a ramp input: %v", out.Data)
			}
		}
	})

	t.Run("2D dilate fills a checkerboard to all foreground", func(t *testing.T) {
		in := loaded3D(2, 2, 1, []float64{0, 1, 1, 0})
		out := runPipeline(t, []string{"in.nii", "-kernel", "2D", "-dilM", "out.nii"}, in)
		want := []float64{1, 1, 1, 1}
		if !approxEqual(out.Data, want) {
			t.Fatalf("got %v, want %v", out.Data, want)
		}
	})
}

func TestRunArithmeticBinaryDispatch(t *testing.T) {
	in := loaded3D(1, 1, 3, []float64{1, 2, 3})
	out := runPipeline(t, []string{"in.nii", "-add", "10", "out.nii"}, in)
	want := []float64{11, 12, 13}
	if !approxEqual(out.Data, want) {
		t.Fatalf("got %v, want %v", out.Data, want)
	}
}

func TestRunThrBinIdempotent(t *testing.T) {
	in := loaded3D(1, 1, 4, []float64{-1, 0, 1, 2})
	out := runPipeline(t, []string{"in.nii", "-thr", "0", "-bin", "out.nii"}, in)
	first := append([]float64(nil), out.Data...)

	out2 := runPipeline(t, []string{"in.nii", "-thr", "0", "-bin", "-bin", "out.nii"}, in)
	if !approxEqual(first, out2.Data) {
		t.Fatalf("-bin is not idempotent: %v vs %v", first, out2.Data)
	}
}

func TestRunUnknownOperationFails(t *testing.T) {
	in := loaded3D(1, 1, 1, []float64{0})
	reader := memReader[float64]{volumes: map[string]ioutil.Loaded[float64]{"in.nii": in}}
	writer := &memWriter[float64]{}
	code := Run[float64]([]string{"in.nii", "-bogus", "out.nii"}, reader, writer)
	if code != 1 {
		t.Fatalf("Run() exit code = %d, want 1", code)
	}
}

func TestRunInputReadFailure(t *testing.T) {
	reader := memReader[float64]{volumes: map[string]ioutil.Loaded[float64]{}}
	writer := &memWriter[float64]{}
	code := Run[float64]([]string{"missing.nii", "out.nii"}, reader, writer)
	if code != 2 {
		t.Fatalf("Run() exit code = %d, want 2", code)
	}
}
