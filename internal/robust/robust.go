// Package robust implements robust-range estimation and Otsu multi-level
// thresholding (spec §4.7), grounded on niimath's robust_range()/otsu()
// pair in coreFLT.c: a 1001-bin histogram for the percentile estimate, a
// 256-bin histogram over that range for Otsu, and Liao's cumulative-moment
// formulation for the exhaustive threshold search.
package robust

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/voxelmath/voxelmath/internal/diag"

	"github.com/voxelmath/voxelmath/internal/numeric"
)

// Range is the 2nd/98th percentile bin-centre pair robust_range returns.
type Range struct {
	Lo, Hi float64
}

// Estimate computes the robust range of values, optionally excluding zero
// (spec §4.7). NaN values are always excluded. A degenerate input (no
// non-excluded samples) returns a zero Range and reports via diag.
func Estimate[T numeric.Float](values []T, excludeZero bool) Range {
	var filtered []float64
	for _, v := range values {
		fv := float64(v)
		if numeric.IsNaN(v) {
			continue
		}
		if excludeZero && fv == 0 {
			continue
		}
		filtered = append(filtered, fv)
	}
	if len(filtered) == 0 {
		diag.Degenerate("robust range", "no non-excluded finite samples")
		return Range{}
	}

	lo, hi := floats.Min(filtered), floats.Max(filtered)
	if lo == hi {
		return Range{Lo: lo, Hi: hi}
	}

	const nbins = 1001
	counts := make([]int, nbins)
	width := (hi - lo) / float64(nbins-1)
	for _, v := range filtered {
		b := int((v - lo) / width)
		b = numeric.ClampInt(b, 0, nbins-1)
		counts[b]++
	}

	total := len(filtered)
	p2 := int(0.02 * float64(total))
	p98 := int(0.98 * float64(total))

	loBin := percentileBin(counts, p2)
	hiBin := percentileBin(counts, p98)
	if loBin == hiBin {
		loBin, hiBin = widen(counts, loBin, hiBin)
	}

	binCentre := func(b int) float64 { return lo + (float64(b)+0.5)*width }
	return Range{Lo: binCentre(loBin), Hi: binCentre(hiBin)}
}

// percentileBin returns the bin index whose cumulative count first reaches
// target.
func percentileBin(counts []int, target int) int {
	cum := 0
	for i, c := range counts {
		cum += c
		if cum >= target {
			return i
		}
	}
	return len(counts) - 1
}

// widen pushes loBin/hiBin apart through empty bins when the 2nd/98th
// percentile estimates coincide (spec §4.7 "widening outward through empty
// bins if both land on the same bin").
func widen(counts []int, loBin, hiBin int) (int, int) {
	n := len(counts)
	for loBin > 0 && counts[loBin-1] == 0 {
		loBin--
	}
	for hiBin < n-1 && counts[hiBin+1] == 0 {
		hiBin++
	}
	if loBin > 0 {
		loBin--
	}
	if hiBin < n-1 {
		hiBin++
	}
	return loBin, hiBin
}

// Level selects which of the partitioning's thresholds Otsu returns.
type Level int

const (
	Lightest Level = iota
	Middle
	Darkest
)

// Otsu builds a 256-bin histogram over rng and finds the threshold(s) that
// maximise the between-class variance for a partitioning into
// nThresholds+1 classes (2, 3, 4, or 5 regions i.e. 1-4 thresholds), per Liao's
// cumulative-moment formulation (spec §4.7), returning the bin-centre
// value of the requested level's threshold.
func Otsu[T numeric.Float](values []T, rng Range, nThresholds int, level Level) float64 {
	const nbins = 256
	if rng.Hi <= rng.Lo {
		diag.Degenerate("otsu", "degenerate robust range")
		return rng.Lo
	}
	width := (rng.Hi - rng.Lo) / float64(nbins)

	counts := make([]float64, nbins)
	for _, v := range values {
		if numeric.IsNaN(v) {
			continue
		}
		fv := float64(v)
		if fv < rng.Lo || fv > rng.Hi {
			continue
		}
		b := int((fv - rng.Lo) / width)
		b = numeric.ClampInt(b, 0, nbins-1)
		counts[b]++
	}

	total := 0.0
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		diag.Degenerate("otsu", "no samples within robust range")
		return rng.Lo
	}

	// Cumulative probability P[0..k] and first moment S[0..k] (Liao's
	// notation), 0-indexed prefix sums so P[u..v] = P[v]-P[u-1].
	p := make([]float64, nbins+1)
	s := make([]float64, nbins+1)
	for i := 0; i < nbins; i++ {
		prob := counts[i] / total
		p[i+1] = p[i] + prob
		s[i+1] = s[i] + prob*float64(i)
	}
	seg := func(u, v int) (pp, ss float64) {
		return p[v+1] - p[u], s[v+1] - s[u]
	}
	variance := func(u, v int) float64 {
		pp, ss := seg(u, v)
		if pp == 0 {
			return 0
		}
		return ss * ss / pp
	}

	bestScore := math.Inf(-1)
	var bestThresholds []int
	boundaries := make([]int, nThresholds)
	searchThresholds(boundaries, 0, 1, nbins-1, func(bounds []int) {
		score := 0.0
		prev := 0
		for _, b := range bounds {
			score += variance(prev, b)
			prev = b + 1
		}
		score += variance(prev, nbins-1)
		if score > bestScore {
			bestScore = score
			bestThresholds = append([]int(nil), bounds...)
		}
	})

	if len(bestThresholds) == 0 {
		return rng.Lo
	}
	sort.Ints(bestThresholds)

	var idx int
	switch level {
	case Lightest:
		idx = len(bestThresholds) - 1
	case Darkest:
		idx = 0
	default:
		idx = len(bestThresholds) / 2
	}
	b := bestThresholds[idx]
	return rng.Lo + (float64(b)+0.5)*width
}

// searchThresholds exhaustively enumerates strictly increasing threshold
// boundary tuples of len(bounds) elements drawn from [lo, hi], calling
// visit for each complete combination. Recursive over the 1-4 supported
// threshold counts, so the search space stays small (256 choose <=4).
func searchThresholds(bounds []int, depth, lo, hi int, visit func([]int)) {
	if depth == len(bounds) {
		visit(bounds)
		return
	}
	remaining := len(bounds) - depth - 1
	for v := lo; v <= hi-remaining; v++ {
		bounds[depth] = v
		searchThresholds(bounds, depth+1, v+1, hi, visit)
	}
}

// ModeFor maps the CLI's single Otsu mode argument (1..5, corresponding to
// 3/4, 2/3, 1/2, 1/3, and 1/4 of the histogram's mass falling dark) to the
// (nThresholds, Level) pair Otsu needs: modes 1 and 5 partition the
// histogram into four regions (3 thresholds), modes 2 and 4 into three
// regions (2 thresholds), and mode 3 into two regions (1 threshold); the
// lighter-dark modes (1, 2) take the partitioning's lightest (rightmost)
// threshold, the darker-dark modes (4, 5) its darkest (leftmost).
// Grounded on nii_otsu (core.c:46-134); that function's mode==2/mode==4
// branch reuses the mode==1/mode==5 branch's condition verbatim and so
// always resolves to the darkest threshold for both modes — a copy-paste
// bug in the original, not a behaviour worth reproducing. Mode 3 and any
// mode outside 1..5 take the single-threshold partitioning.
func ModeFor(mode int) (nThresholds int, level Level) {
	switch mode {
	case 1:
		return 3, Lightest
	case 2:
		return 2, Lightest
	case 4:
		return 2, Darkest
	case 5:
		return 3, Darkest
	default:
		return 1, Middle
	}
}

// Binarize applies a strict threshold: values >= thr become 1, else 0
// (spec §4.7). T is preserved so the caller can write back through the
// same working-type volume buffer.
func Binarize[T numeric.Float](values []T, thr float64) {
	for i, v := range values {
		if float64(v) >= thr {
			values[i] = 1
		} else {
			values[i] = 0
		}
	}
}
