package circuit

import (
	"fmt"
	"math"

	"github.com/openphotonics/focksim/internal/fock"
)

// ghzGroups are the two spatial-mode triples carrying the GHZ state after
// heralding; post-selection requires at least one of them fully occupied.
var ghzGroups = [][]int{{0, 6, 10}, {1, 7, 11}}

// fidelityRefs are the occupation patterns over the GHZ modes that can
// contribute to the fidelity.
var fidelityRefs = []map[int]int{
	{0: 1, 1: 0, 6: 1, 7: 0, 10: 1, 11: 0},
	{0: 0, 1: 1, 6: 0, 7: 1, 10: 0, 11: 1},
}

// outcomeSigns is the relative phase of the GHZ superposition heralded by
// each detection pattern.
var outcomeSigns = [NumOutcomes]int{1, -1, -1, 1, -1, 1, 1, -1}

// collapseTemplateOverlap is the pairwise overlap used when enumerating the
// partially distinguishable configurations the fully distinguishable run is
// collapsed onto. Any value strictly between 0 and 1 enumerates the same
// branches.
const collapseTemplateOverlap = 0.7

// refTolerance matches the cruder pruning used during the final fidelity
// accumulation, where branch counts grow fast.
const refTolerance = 1e-8

// measurementPattern is the detection pattern on the heralding mode pairs
// {2,3}, {4,5} and {8,9} for detector choices p1, p2, p4 in {0,1}.
func measurementPattern(p1, p2, p4 int) map[int]int {
	return map[int]int{2: 1 - p1, 3: p1, 4: 1 - p2, 5: p2, 8: 1 - p4, 9: p4}
}

// Outcome is the probability of one heralding pattern and the GHZ fidelity
// of the state conditioned on it.
type Outcome struct {
	Probability float64 `json:"probability"`
	Fidelity    float64 `json:"fidelity"`
}

// Result holds the per-outcome numbers for one pairwise overlap value.
type Result struct {
	Overlap  float64              `json:"overlap"`
	Outcomes [NumOutcomes]Outcome `json:"outcomes"`
}

// GHZProjection projects a heralded state onto the GHZ superposition with
// the given sign: terms where either GHZ mode triple shares one
// distinguishability label are kept with weight 1/sqrt(2), everything else
// is dropped.
func GHZProjection(s *fock.State, sign int) {
	f := complex(1/math.Sqrt2, 0)
	s.SameDModeDel(ghzGroups, []complex128{f, complex(float64(sign), 0) * f})
}

// CollapseRenorm collapses every branch of a measurement partition onto the
// distinguishability configuration encoded by template, then renormalizes
// kept and compl jointly. The collapse is not norm preserving, so the joint
// norm over kept, compl and the fully rejected rest is what defines the
// renormalization.
func CollapseRenorm(template fock.Key, kept, compl []*fock.State, rest *fock.State) error {
	var n float64
	for i := range kept {
		if err := kept[i].Collapse(template); err != nil {
			return err
		}
		if err := compl[i].Collapse(template); err != nil {
			return err
		}
		kn, cn := kept[i].Norm(), compl[i].Norm()
		n += kn*kn + cn*cn
	}
	if err := rest.Collapse(template); err != nil {
		return err
	}
	rn := rest.Norm()
	n += rn * rn
	if n != 0 {
		scale := complex(1/math.Sqrt(n), 0)
		for i := range kept {
			kept[i].Mul(scale)
			compl[i].Mul(scale)
		}
	}
	return nil
}

// Simulate runs one error scenario end to end: it prepares the sources with
// the given double emissions, runs the circuit with the given loss positions,
// partitions the output over the eight heralding patterns, collapses the
// fully distinguishable run onto every partially distinguishable
// configuration, and evaluates probability and fidelity per outcome for each
// requested pairwise overlap.
func Simulate(doublePrep, lossPos []int, angleErrs, overlaps []float64, tol float64) ([]Result, error) {
	rots, err := Rotations(angleErrs)
	if err != nil {
		return nil, err
	}
	for i, u := range rots {
		if !IsUnitary(u, 1e-9) {
			return nil, fmt.Errorf("circuit: waveplate %d is not unitary", i)
		}
	}

	full := fock.New(fock.Config{Overlap: ConstantOverlap(), Tolerance: tol, LossFloor: EnvFloor})
	if err := Prepare(full, doublePrep, 0); err != nil {
		return nil, err
	}
	Run(full, lossPos, rots)

	// Partition the circuit output over the eight heralding patterns.
	kept := make([]*fock.State, NumOutcomes)
	compl := make([]*fock.State, NumOutcomes)
	targets := make([]map[int]int, 0, NumOutcomes)
	for p1 := 0; p1 < 2; p1++ {
		for p2 := 0; p2 < 2; p2++ {
			for p4 := 0; p4 < 2; p4++ {
				pattern := measurementPattern(p1, p2, p4)
				tmp := full.Clone()
				rest := tmp.OverlapWithFilter(pattern, ghzGroups, fidelityRefs)
				targets = append(targets, pattern)
				kept[p4+2*p2+4*p1] = tmp
				compl[p4+2*p2+4*p1] = rest
			}
		}
	}
	full.OverlapCompl(targets, ghzGroups)

	// Enumerate the partially distinguishable configurations and collapse
	// every branch onto each of them.
	templ := fock.New(fock.Config{Overlap: ConstantOverlap(), LossFloor: EnvFloor})
	if err := Prepare(templ, doublePrep, collapseTemplateOverlap); err != nil {
		return nil, err
	}
	templTerms := templ.SortedTerms()

	keptSets := make([][]*fock.State, 0, len(templTerms))
	complSets := make([][]*fock.State, 0, len(templTerms))
	for _, t := range templTerms {
		ks := make([]*fock.State, NumOutcomes)
		cs := make([]*fock.State, NumOutcomes)
		for j := 0; j < NumOutcomes; j++ {
			ks[j] = kept[j].Clone()
			cs[j] = compl[j].Clone()
		}
		rest := full.Clone()
		if err := CollapseRenorm(t.Key, ks, cs, rest); err != nil {
			return nil, err
		}
		keptSets = append(keptSets, ks)
		complSets = append(complSets, cs)
	}

	results := make([]Result, 0, len(overlaps))
	for _, ovl := range overlaps {
		res, err := accumulate(keptSets, complSets, ovl)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

// accumulate weights the pre-collapsed branches by the amplitudes of a
// reference preparation with the actual pairwise overlap, and reads off
// probability and fidelity per heralding outcome.
func accumulate(keptSets, complSets [][]*fock.State, ovl float64) (Result, error) {
	ref := fock.New(fock.Config{Overlap: ConstantOverlap(), Tolerance: refTolerance, LossFloor: EnvFloor})
	for i := 0; i < NumSources; i++ {
		if err := ref.AddPhoton([]float64{float64(i), ovl}, 2*i, 1); err != nil {
			return Result{}, err
		}
	}
	// Reference branches and collapse templates enumerate the same label
	// patterns in the same canonical order, so they pair by index. A double
	// emission gives the template state more branches than the six-photon
	// reference; the trailing templates then carry no weight.
	refTerms := ref.SortedTerms()
	if len(refTerms) > len(keptSets) {
		return Result{}, fmt.Errorf("circuit: %d reference branches exceed %d collapse templates", len(refTerms), len(keptSets))
	}

	proj := make([]*fock.State, NumOutcomes)
	all := make([]*fock.State, NumOutcomes)
	for j := 0; j < NumOutcomes; j++ {
		proj[j] = fock.New(fock.Config{Overlap: ConstantOverlap(), Tolerance: refTolerance})
		all[j] = fock.New(fock.Config{Overlap: ConstantOverlap(), Tolerance: refTolerance})
	}
	for i, t := range refTerms {
		for j := 0; j < NumOutcomes; j++ {
			projected := keptSets[i][j].Clone()
			GHZProjection(projected, outcomeSigns[j])
			proj[j].Add(projected, t.Amp)
			all[j].Add(keptSets[i][j], t.Amp)
			all[j].Add(complSets[i][j], t.Amp)
		}
	}

	res := Result{Overlap: ovl}
	for j := 0; j < NumOutcomes; j++ {
		n := all[j].Norm()
		p := n * n
		f := 0.0
		if p > 0 {
			pn := proj[j].Norm()
			f = pn * pn / p
		}
		res.Outcomes[j] = Outcome{Probability: p, Fidelity: f}
	}
	return res, nil
}
