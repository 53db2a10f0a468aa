// Package sweep enumerates error scenarios of the GHZ generation circuit and
// runs them concurrently, one state pipeline per scenario.
package sweep

import (
	"math/rand"

	"github.com/openphotonics/focksim/internal/circuit"
)

// DefaultUpper is the exclusive upper bound of the canonical scenario
// enumeration: the error-free case, all single-error combinations and all
// double-error combinations. Triple errors continue beyond this index but
// their likelihood drops fast enough that sweeps rarely include them.
const DefaultUpper = 1 +
	circuit.NumSources*circuit.NumLossSlots +
	(circuit.NumSources*(circuit.NumSources-1)/2)*(circuit.NumLossSlots*(circuit.NumLossSlots-1)/2)

// Scenario is one error configuration: which sources emit a second photon
// and at which circuit positions a photon is lost. Both lists are matched in
// size by construction.
type Scenario struct {
	Index      int   `json:"index"`
	DoublePrep []int `json:"double_prep"`
	LossPos    []int `json:"loss_positions"`
}

// Enumerate returns the scenarios with index in [lower, upper), in the
// canonical order: index 0 is the error-free run, then single, double and
// triple combinations of one double emission paired with one loss position.
func Enumerate(lower, upper int) []Scenario {
	var out []Scenario
	count := 0
	emit := func(prep, loss []int) bool {
		if count >= upper {
			return false
		}
		if count >= lower {
			out = append(out, Scenario{
				Index:      count,
				DoublePrep: append([]int(nil), prep...),
				LossPos:    append([]int(nil), loss...),
			})
		}
		return true
	}

	if !emit(nil, nil) {
		return out
	}
	for i := 0; i < circuit.NumSources; i++ {
		for j := 0; j < circuit.NumLossSlots; j++ {
			count++
			if !emit([]int{i}, []int{j}) {
				return out
			}
		}
	}
	for i0 := 0; i0 < circuit.NumSources-1; i0++ {
		for i1 := i0 + 1; i1 < circuit.NumSources; i1++ {
			for j0 := 0; j0 < circuit.NumLossSlots-1; j0++ {
				for j1 := j0 + 1; j1 < circuit.NumLossSlots; j1++ {
					count++
					if !emit([]int{i0, i1}, []int{j0, j1}) {
						return out
					}
				}
			}
		}
	}
	for i0 := 0; i0 < circuit.NumSources-2; i0++ {
		for i1 := i0 + 1; i1 < circuit.NumSources-1; i1++ {
			for i2 := i1 + 1; i2 < circuit.NumSources; i2++ {
				for j0 := 0; j0 < circuit.NumLossSlots-2; j0++ {
					for j1 := j0 + 1; j1 < circuit.NumLossSlots-1; j1++ {
						for j2 := j1 + 1; j2 < circuit.NumLossSlots; j2++ {
							count++
							if !emit([]int{i0, i1, i2}, []int{j0, j1, j2}) {
								return out
							}
						}
					}
				}
			}
		}
	}
	return out
}

// Shuffle permutes the scenarios deterministically for the given seed, so
// long sweeps sample the index space evenly instead of front-loading the
// cheap scenarios.
func Shuffle(scenarios []Scenario, seed int64) {
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(scenarios), func(i, j int) {
		scenarios[i], scenarios[j] = scenarios[j], scenarios[i]
	})
}
