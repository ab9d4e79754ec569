// Command voxelmath applies a batch image-mathematics pipeline to a 3D or
// 4D volumetric scalar dataset, command-compatible with fslmaths/niimath.
//
// Usage:
//
//	voxelmath [-dt float|double] <in> OP1 [args...] OP2 [args...] ... <out> [-odt TYPE]
package main

import (
	"fmt"
	"os"

	"github.com/voxelmath/voxelmath/internal/niftiio"
	"github.com/voxelmath/voxelmath/internal/pipeline"
)

func main() {
	args := os.Args[1:]
	if len(args) == 0 || args[0] == "-h" || args[0] == "-help" || args[0] == "--help" {
		printUsage()
		if len(args) == 0 {
			os.Exit(1)
		}
		return
	}

	os.Exit(run(args))
}

// run resolves the working precision before the rest of the pipeline
// parses, since the working type is a Go type parameter fixed at
// compile time per instantiation (spec §3: "the working numeric type is
// fixed when the pipeline begins and not changed mid-pipeline") and the
// driver itself is generic over it.
func run(args []string) int {
	switch workingType(args) {
	case "double":
		return pipeline.Run[float64](args, niftiio.Reader[float64]{}, niftiio.Writer[float64]{})
	default:
		return pipeline.Run[float32](args, niftiio.Reader[float32]{}, niftiio.Writer[float32]{})
	}
}

// workingType peeks at a leading "-dt" flag without fully parsing the
// command line (pipeline.Parse does the real parse once the type is
// known); "float" is the default per spec §4.1.
func workingType(args []string) string {
	if len(args) >= 2 && args[0] == "-dt" {
		return args[1]
	}
	return "float"
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage:
  voxelmath [-dt float|double] <in> OP1 [args...] OP2 [args...] ... <out> [-odt TYPE]

Every operation begins with "-". A leading -dt picks float (default) or
double working precision. A trailing -odt picks the output storage type
(char/short/ushort/int/float/double/input).
`)
}
