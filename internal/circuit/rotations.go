package circuit

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// NumPlates is the number of waveplates in the GHZ generation setup.
const NumPlates = 15

// Rotations builds the waveplate unitaries of the setup, each a rotation by
// 45 degrees plus its per-plate calibration error (in degrees), in row-major
// line format.
func Rotations(angleErrs []float64) ([][4]complex128, error) {
	if len(angleErrs) != NumPlates {
		return nil, fmt.Errorf("circuit: need %d angle errors, got %d", NumPlates, len(angleErrs))
	}
	ops := make([][4]complex128, NumPlates)
	for i, e := range angleErrs {
		c := math.Cos((45 + e) / 180 * math.Pi)
		s := math.Sin((45 + e) / 180 * math.Pi)
		ops[i] = [4]complex128{
			complex(c, 0), complex(s, 0),
			complex(s, 0), complex(-c, 0),
		}
	}
	return ops, nil
}

// IsUnitary reports whether a 2x2 matrix in line format is unitary within tol.
func IsUnitary(u [4]complex128, tol float64) bool {
	m := mat.NewCDense(2, 2, []complex128{u[0], u[1], u[2], u[3]})
	h := m.H()
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			var sum complex128
			for k := 0; k < 2; k++ {
				sum += h.At(i, k) * m.At(k, j)
			}
			want := complex(0, 0)
			if i == j {
				want = 1
			}
			if cmplx.Abs(sum-want) > tol {
				return false
			}
		}
	}
	return true
}
