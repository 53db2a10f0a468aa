package fock

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// idOverlap treats descriptors as [id]: equal ids overlap fully, distinct ids
// are orthogonal.
func idOverlap(a, b []float64) complex128 {
	if a[0] == b[0] {
		return 1
	}
	return 0
}

// partialOverlap treats descriptors as [id, overlap]: equal ids overlap fully,
// distinct ids share the pairwise overlap stored in the first descriptor.
func partialOverlap(a, b []float64) complex128 {
	if a[0] == b[0] {
		return 1
	}
	return complex(a[1], 0)
}

func newTestState(ov OverlapFunc) *State {
	return New(Config{Overlap: ov})
}

func TestAddPhotonSeedsEmptyState(t *testing.T) {
	s := newTestState(idOverlap)

	require.NoError(t, s.AddPhoton([]float64{0}, 2, 1))

	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 1, s.BasisLen())
	assert.Equal(t, 3, s.LossFloor())
}

func TestAddPhotonIdenticalDescriptorReusesLabel(t *testing.T) {
	s := newTestState(idOverlap)
	require.NoError(t, s.AddPhoton([]float64{0}, 0, 1))
	require.NoError(t, s.AddPhoton([]float64{0}, 1, 1))

	assert.Equal(t, 1, s.Len(), "same wave function must not fan out")
	assert.Equal(t, 1, s.BasisLen(), "same wave function must not grow the basis")

	for _, term := range s.Terms() {
		assert.Equal(t, 1, term.Key.Occupation(Mode{0, 0}))
		assert.Equal(t, 1, term.Key.Occupation(Mode{1, 0}))
	}
}

func TestAddPhotonOrthogonalGrowsBasis(t *testing.T) {
	s := newTestState(idOverlap)
	require.NoError(t, s.AddPhoton([]float64{0}, 0, 1))
	require.NoError(t, s.AddPhoton([]float64{1}, 1, 1))

	require.Equal(t, 2, s.BasisLen())

	// Gram-Schmidt must deliver an orthonormal pair within tolerance.
	self := basisOverlap(s.basis[1], s.basis[1], s.overlap, s.waves)
	cross := basisOverlap(s.basis[1], s.basis[0], s.overlap, s.waves)
	assert.InDelta(t, 1.0, cmplx.Abs(self), 1e-9)
	assert.InDelta(t, 0.0, cmplx.Abs(cross), 1e-9)

	// Fully orthogonal photon decomposes onto its own basis vector only,
	// so no extra branches survive.
	s.Clean()
	assert.Equal(t, 1, s.Len())
	assert.InDelta(t, 1.0, s.Norm(), 1e-12)
}

func TestAddPhotonPartialOverlapFansOut(t *testing.T) {
	s := newTestState(partialOverlap)
	require.NoError(t, s.AddPhoton([]float64{0, 0.7}, 0, 1))
	require.NoError(t, s.AddPhoton([]float64{1, 0.7}, 2, 1))

	assert.Equal(t, 2, s.BasisLen())
	assert.Equal(t, 2, s.Len(), "partially overlapping photon fans out over the basis")
	assert.InDelta(t, 1.0, s.Norm(), 1e-9)
}

func TestApplyUnitaryIdentityLeavesStateUnchanged(t *testing.T) {
	s := newTestState(idOverlap)
	require.NoError(t, s.AddPhoton([]float64{0}, 0, 2))
	require.NoError(t, s.AddPhoton([]float64{1}, 1, 1))
	// Photon addition keeps exactly-zero fan-out branches; drop them so the
	// comparison sees the same pruning the unitary applies.
	s.Clean()
	before := s.SortedTerms()

	s.ApplyUnitary(identityU, [2]int{0, 1})

	after := s.SortedTerms()
	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].Key.ID(), after[i].Key.ID())
		assert.InDelta(t, cmplx.Abs(before[i].Amp), cmplx.Abs(after[i].Amp), 1e-9)
	}
}

func TestApplyUnitaryPreservesStateNorm(t *testing.T) {
	s := newTestState(idOverlap)
	require.NoError(t, s.AddPhoton([]float64{0}, 0, 1))

	s.ApplyUnitary(splitterU, [2]int{0, 1})

	assert.InDelta(t, 1.0, s.Norm(), 1e-9)
}

func TestBalancedSplitterIsSelfInverse(t *testing.T) {
	s := newTestState(idOverlap)
	require.NoError(t, s.AddPhoton([]float64{0}, 0, 1))
	before := s.SortedTerms()

	s.ApplyUnitary(splitterU, [2]int{0, 1})
	s.ApplyUnitary(splitterU, [2]int{0, 1})

	after := s.SortedTerms()
	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].Key.ID(), after[i].Key.ID())
		assert.InDelta(t, 0.0, cmplx.Abs(after[i].Amp-before[i].Amp), 1e-9)
	}
}

func TestHongOuMandelBunching(t *testing.T) {
	// Two photons sharing one wave function interfere on a balanced
	// splitter: the coincidence term cancels, photon pairs bunch.
	s := newTestState(idOverlap)
	require.NoError(t, s.AddPhoton([]float64{0}, 0, 1))
	require.NoError(t, s.AddPhoton([]float64{0}, 1, 1))

	s.ApplyUnitary(splitterU, [2]int{0, 1})

	var bunched0, bunched1, coincidence float64
	for _, term := range s.Terms() {
		switch {
		case term.Key.TotalAt(0) == 2:
			bunched0 = cmplx.Abs(term.Amp)
		case term.Key.TotalAt(1) == 2:
			bunched1 = cmplx.Abs(term.Amp)
		case term.Key.TotalAt(0) == 1 && term.Key.TotalAt(1) == 1:
			coincidence = cmplx.Abs(term.Amp)
		}
	}

	assert.InDelta(t, 0.0, coincidence, 1e-9, "coincidence amplitude must cancel")
	assert.InDelta(t, 1/math.Sqrt2, bunched0, 1e-9)
	assert.InDelta(t, 1/math.Sqrt2, bunched1, 1e-9)
	assert.InDelta(t, 1.0, s.Norm(), 1e-9)
}

func TestDistinguishablePhotonsDoNotBunch(t *testing.T) {
	s := newTestState(idOverlap)
	require.NoError(t, s.AddPhoton([]float64{0}, 0, 1))
	require.NoError(t, s.AddPhoton([]float64{1}, 1, 1))

	s.ApplyUnitary(splitterU, [2]int{0, 1})

	coincidence := 0.0
	for _, term := range s.Terms() {
		if term.Key.TotalAt(0) == 1 && term.Key.TotalAt(1) == 1 {
			a := cmplx.Abs(term.Amp)
			coincidence += a * a
		}
	}

	assert.InDelta(t, 0.5, coincidence, 1e-9, "orthogonal photons keep their coincidence probability")
	assert.InDelta(t, 1.0, s.Norm(), 1e-9)
}

func TestLossOnEmptyModesLeavesStateUnchanged(t *testing.T) {
	s := newTestState(idOverlap)
	require.NoError(t, s.AddPhoton([]float64{0}, 0, 1))
	before := s.SortedTerms()
	floor := s.LossFloor()

	s.Loss([]int{5, 6})

	after := s.SortedTerms()
	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].Key.ID(), after[i].Key.ID())
		assert.Equal(t, before[i].Amp, after[i].Amp)
	}
	assert.Equal(t, floor, s.LossFloor())
}

func TestLossMovesSinglePhotonToEnvironment(t *testing.T) {
	s := New(Config{Overlap: idOverlap, LossFloor: 12})
	require.NoError(t, s.AddPhoton([]float64{0}, 0, 1))

	s.Loss([]int{0})

	require.Equal(t, 1, s.Len())
	for _, term := range s.Terms() {
		assert.InDelta(t, 1.0, cmplx.Abs(term.Amp), 1e-12)
		assert.Equal(t, 0, term.Key.TotalAt(0))
		assert.Equal(t, 1, term.Key.TotalAt(12))
	}
	assert.Equal(t, 13, s.LossFloor())
}

func TestCollapseIdentityIsStable(t *testing.T) {
	s := newTestState(partialOverlap)
	require.NoError(t, s.AddPhoton([]float64{0, 0.5}, 0, 1))
	require.NoError(t, s.AddPhoton([]float64{1, 0.5}, 1, 1))

	// Template with one entry per label, mapped onto itself.
	template := keyFrom(Entry{Mode{0, 0}, 1}, Entry{Mode{1, 1}, 1})
	before := s.SortedTerms()

	require.NoError(t, s.Collapse(template))
	require.NoError(t, s.Collapse(template))

	after := s.SortedTerms()
	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].Key.ID(), after[i].Key.ID())
		assert.InDelta(t, 0.0, cmplx.Abs(after[i].Amp-before[i].Amp), 1e-9)
	}
}

func TestCollapseOntoFewerLabels(t *testing.T) {
	s := newTestState(idOverlap)
	require.NoError(t, s.AddPhoton([]float64{0}, 0, 1))
	require.NoError(t, s.AddPhoton([]float64{1}, 0, 1))

	// Map both labels onto label 0: both photons become indistinguishable.
	template := keyFrom(Entry{Mode{0, 0}, 1}, Entry{Mode{1, 0}, 1})
	require.NoError(t, s.Collapse(template))

	require.Equal(t, 1, s.Len())
	for _, term := range s.Terms() {
		assert.Equal(t, 2, term.Key.Occupation(Mode{0, 0}))
		assert.InDelta(t, math.Sqrt2, cmplx.Abs(term.Amp), 1e-9)
	}
}

func TestOverlapWithFilterPartitions(t *testing.T) {
	s := newTestState(idOverlap)
	s.SetTerm(keyFrom(Entry{Mode{0, 0}, 1}, Entry{Mode{2, 0}, 1}), 0.5)
	s.SetTerm(keyFrom(Entry{Mode{0, 1}, 1}, Entry{Mode{2, 0}, 1}), 0.5)
	s.SetTerm(keyFrom(Entry{Mode{1, 0}, 1}, Entry{Mode{2, 0}, 1}), 0.5)
	s.SetTerm(keyFrom(Entry{Mode{0, 0}, 1}, Entry{Mode{3, 0}, 1}), 0.5)

	pattern := map[int]int{2: 1}           // measurement: one photon on mode 2
	groups := [][]int{{0}, {1}}            // post-selection: something on 0 or 1
	refs := []map[int]int{{0: 1, 1: 0}}    // target: photon on 0, none on 1

	rest := s.OverlapWithFilter(pattern, groups, refs)

	// Terms 1 and 2 match pattern+groups+ref; term 3 matches pattern+groups
	// but not the reference; term 4 fails the pattern and is dropped.
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 1, rest.Len())

	for _, term := range rest.Terms() {
		assert.Equal(t, 1, term.Key.TotalAt(1), "rejected branch keeps its structure")
		assert.Equal(t, complex(0.5, 0), term.Amp)
	}
}

func TestOverlapComplKeepsRejectedBranches(t *testing.T) {
	s := newTestState(idOverlap)
	s.SetTerm(keyFrom(Entry{Mode{0, 0}, 1}, Entry{Mode{2, 0}, 1}), 0.5)
	s.SetTerm(keyFrom(Entry{Mode{0, 0}, 1}, Entry{Mode{3, 0}, 1}), 0.5)

	s.OverlapCompl([]map[int]int{{2: 1}}, [][]int{{0}})

	require.Equal(t, 1, s.Len())
	for _, term := range s.Terms() {
		assert.Equal(t, 1, term.Key.TotalAt(3))
	}
}

func TestNotEmptyFiltersAndRenormalizes(t *testing.T) {
	s := newTestState(idOverlap)
	s.SetTerm(keyFrom(Entry{Mode{0, 0}, 1}), 0.3)
	s.SetTerm(keyFrom(Entry{Mode{1, 0}, 1}), 0.4)

	s.NotEmpty([][]int{{0}})

	require.Equal(t, 1, s.Len())
	assert.InDelta(t, 1.0, s.Norm(), 1e-12)
}

func TestSameDModeDelAppliesFactors(t *testing.T) {
	s := newTestState(idOverlap)
	s.SetTerm(keyFrom(Entry{Mode{0, 0}, 1}, Entry{Mode{6, 0}, 1}), 1)
	s.SetTerm(keyFrom(Entry{Mode{1, 1}, 1}, Entry{Mode{7, 1}, 1}), 1)
	s.SetTerm(keyFrom(Entry{Mode{0, 0}, 1}, Entry{Mode{6, 1}, 1}), 1)

	f := complex(1/math.Sqrt2, 0)
	s.SameDModeDel([][]int{{0, 6}, {1, 7}}, []complex128{f, -f})

	// The mixed-label term matches no group and is dropped; the stripped
	// keys of the two matches collide on the empty ket and merge.
	require.Equal(t, 1, s.Len())
	for _, term := range s.Terms() {
		assert.Equal(t, 0, term.Key.Len())
		assert.InDelta(t, 0.0, cmplx.Abs(term.Amp), 1e-9)
	}
}

func TestNormaliseZeroNormIsNoOp(t *testing.T) {
	s := newTestState(idOverlap)
	s.Normalise()
	assert.Equal(t, 0, s.Len())
}

func TestMulAndCleanPrune(t *testing.T) {
	s := newTestState(idOverlap)
	s.SetTerm(keyFrom(Entry{Mode{0, 0}, 1}), 1)
	s.SetTerm(keyFrom(Entry{Mode{1, 0}, 1}), 1e-6)

	s.Mul(complex(1e-5, 0))

	require.Equal(t, 1, s.Len(), "amplitudes below tolerance are pruned")
}

func TestCloneIsIndependent(t *testing.T) {
	s := newTestState(idOverlap)
	require.NoError(t, s.AddPhoton([]float64{0}, 0, 1))

	c := s.Clone()
	c.ApplyUnitary(splitterU, [2]int{0, 1})

	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 2, c.Len())
}
