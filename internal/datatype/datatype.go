// Package datatype converts between the pipeline's working float type and
// the eight on-disk storage types (spec §4.1 item 2, §6).
package datatype

import (
	"fmt"
	"math"

	"github.com/voxelmath/voxelmath/internal/numeric"
)

// Code is a storage datatype code, matching the external volume I/O
// collaborator's scheme (spec §6).
type Code int

// Datatype codes, matching spec §6 exactly.
const (
	Uint8   Code = 2
	Int16   Code = 4
	Int32   Code = 8
	Float32 Code = 16
	Float64 Code = 64
	Int8    Code = 256
	Uint16  Code = 512
	Uint32  Code = 768
)

func (c Code) String() string {
	switch c {
	case Uint8:
		return "uint8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Int8:
		return "int8"
	case Uint16:
		return "uint16"
	case Uint32:
		return "uint32"
	default:
		return fmt.Sprintf("code(%d)", int(c))
	}
}

// ParseODT parses one of the CLI's -odt names (spec §4.1, §6) into a Code.
// "input" is reported by returning matchInput=true, signalling "match the
// original storage type" to the caller.
func ParseODT(name string) (code Code, matchInput bool, err error) {
	switch name {
	case "char":
		return Int8, false, nil
	case "short":
		return Int16, false, nil
	case "ushort":
		return Uint16, false, nil
	case "int":
		return Int32, false, nil
	case "float":
		return Float32, false, nil
	case "double":
		return Float64, false, nil
	case "input":
		return 0, true, nil
	default:
		return 0, false, fmt.Errorf("datatype: unrecognised -odt %q", name)
	}
}

// bounds returns the representable integer range for an integer Code.
func bounds(c Code) (lo, hi float64, ok bool) {
	switch c {
	case Uint8:
		return 0, math.MaxUint8, true
	case Int8:
		return math.MinInt8, math.MaxInt8, true
	case Uint16:
		return 0, math.MaxUint16, true
	case Int16:
		return math.MinInt16, math.MaxInt16, true
	case Uint32:
		return 0, math.MaxUint32, true
	case Int32:
		return math.MinInt32, math.MaxInt32, true
	default:
		return 0, 0, false
	}
}

// IsInteger reports whether c is an integer storage type.
func IsInteger(c Code) bool {
	_, _, ok := bounds(c)
	return ok
}

// ToWorking converts a raw stored sample into the working float type,
// applying the per-voxel affine stored*slope + intercept (spec §4.1
// item 2).
func ToWorking[T numeric.Float](raw float64, slope, intercept float64) T {
	if slope == 0 {
		slope = 1
	}
	return T(raw*slope + intercept)
}

// FromWorking converts a working-type value back to a raw stored sample,
// restoring the original slope/intercept only when the caller is writing
// back to the originally-stored type (spec §3 invariant). For integer
// storage types the result is rounded and clamped to the representable
// range; for float storage types it passes through.
func FromWorking[T numeric.Float](v T, c Code, slope, intercept float64) float64 {
	if slope == 0 {
		slope = 1
	}
	raw := (float64(v) - intercept) / slope
	if lo, hi, ok := bounds(c); ok {
		raw = math.Round(raw)
		if raw < lo {
			raw = lo
		}
		if raw > hi {
			raw = hi
		}
	}
	return raw
}

// RoundTrip reports whether converting raw through the working type and
// back to c with the same slope/intercept reproduces raw exactly, the
// testable property required by spec §8 for every integer storage type.
func RoundTrip[T numeric.Float](raw float64, c Code, slope, intercept float64) bool {
	w := ToWorking[T](raw, slope, intercept)
	back := FromWorking(w, c, slope, intercept)
	return back == raw
}
