package arith

import (
	"math"

	"github.com/voxelmath/voxelmath/internal/numeric"
)

func pow[T numeric.Float](a, b T) T {
	return T(math.Pow(float64(a), float64(b)))
}
