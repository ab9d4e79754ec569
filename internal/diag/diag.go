// Package diag is the stderr diagnostic channel (spec §7). The pipeline
// driver writes operation and I/O errors, binary-op operand size
// mismatches and -range output to it; robust writes numerical degeneracy
// notices. No wrap-around or max-displacement warning is emitted.
// Grounded on the teacher's plain
// fmt.Fprintf(os.Stderr, "prog: %v\n", err) style in cmd/gwebp/main.go;
// no structured/leveled logging library is introduced (DESIGN.md).
package diag

import (
	"fmt"
	"io"
	"os"
)

// Writer is where diagnostics go; defaults to os.Stderr and is
// swapped out in tests to capture output.
var Writer io.Writer = os.Stderr

// Warnf emits a non-fatal warning prefixed with "voxelmath: ".
func Warnf(format string, args ...any) {
	fmt.Fprintf(Writer, "voxelmath: "+format+"\n", args...)
}

// Degenerate reports the numerical-degeneracy notices spec §7 requires
// ("returns success without mutating the buffer, emits a diagnostic"); its
// callers are robust's range estimate (no usable samples) and Otsu (a
// degenerate range, or no samples inside it).
func Degenerate(op, reason string) {
	Warnf("%s: %s; buffer unchanged", op, reason)
}
