// Package circuit implements the linear-optical GHZ generation setup on top
// of the fock engine: six photon sources feeding pairs of spatial modes,
// three layers of waveplates with crossings in between, and the detection
// patterns that herald a GHZ state on the surviving modes.
package circuit

import (
	"github.com/openphotonics/focksim/internal/fock"
)

const (
	// NumSources is the number of single-photon sources; source i feeds
	// spatial modes 2i and 2i+1.
	NumSources = 6
	// NumLossSlots is the number of positions in the circuit where a loss
	// event can occur.
	NumLossSlots = 37
	// NumOutcomes is the number of heralding detection patterns.
	NumOutcomes = 8
	// EnvFloor is the first spatial mode reserved for loss bookkeeping; the
	// computation uses modes 0 through 11.
	EnvFloor = 12
)

// ConstantOverlap returns the overlap function for descriptors of the form
// [source id, pairwise overlap]: photons from the same source overlap fully,
// photons from distinct sources share the stored pairwise overlap.
func ConstantOverlap() fock.OverlapFunc {
	return func(a, b []float64) complex128 {
		if a[0] != b[0] {
			return complex(a[1], 0)
		}
		return 1
	}
}

// Prepare injects one photon per source into its even spatial mode, or two
// where the source index appears in doublePrep, all with the given pairwise
// overlap.
func Prepare(s *fock.State, doublePrep []int, ovl float64) error {
	for i := 0; i < NumSources; i++ {
		num := 1
		if containsInt(doublePrep, i) {
			num = 2
		}
		if err := s.AddPhoton([]float64{float64(i), ovl}, 2*i, num); err != nil {
			return err
		}
	}
	return nil
}

// lossAt applies single-photon loss on modes if the circuit position pos is
// one of the scheduled loss positions.
func lossAt(s *fock.State, pos int, modes []int, lossPos []int) {
	if containsInt(lossPos, pos) {
		s.Loss(modes)
	}
}

// Run executes the GHZ generation circuit: positions 0..35 interleave loss
// slots with the three waveplate layers and the mode crossings.
func Run(s *fock.State, lossPos []int, rots [][4]complex128) {
	for i := 0; i < NumSources; i++ {
		lossAt(s, i, []int{2 * i}, lossPos)
	}
	for i := 0; i < NumSources; i++ {
		lossAt(s, i+6, []int{2 * i}, lossPos)
	}
	for i := 0; i < NumSources; i++ {
		s.ApplyUnitary(rots[i], [2]int{2 * i, 2*i + 1})
	}
	for i := 0; i < NumSources; i++ {
		lossAt(s, i+12, []int{2 * i, 2*i + 1}, lossPos)
	}
	for i := 0; i < 3; i++ {
		s.Swap(4*i+1, 4*i+3)
	}
	for i := 0; i < NumSources; i++ {
		lossAt(s, i+18, []int{2 * i, 2*i + 1}, lossPos)
	}
	for i := 0; i < NumSources; i++ {
		s.ApplyUnitary(rots[i+6], [2]int{2 * i, 2*i + 1})
	}
	lossAt(s, 24, []int{2, 3}, lossPos)
	lossAt(s, 25, []int{4, 5}, lossPos)
	s.Swap(3, 5)
	lossAt(s, 26, []int{4, 5}, lossPos)
	lossAt(s, 27, []int{8, 9}, lossPos)
	s.Swap(5, 9)
	lossAt(s, 28, []int{2, 3}, lossPos)
	lossAt(s, 29, []int{4, 5}, lossPos)
	lossAt(s, 30, []int{8, 9}, lossPos)
	s.ApplyUnitary(rots[12], [2]int{2, 3})
	s.ApplyUnitary(rots[13], [2]int{4, 5})
	s.ApplyUnitary(rots[14], [2]int{8, 9})
	lossAt(s, 32, []int{2, 3}, lossPos)
	lossAt(s, 33, []int{4, 5}, lossPos)
	lossAt(s, 35, []int{8, 9}, lossPos)
}

func containsInt(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
