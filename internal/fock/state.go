package fock

import (
	"errors"
	"math"
	"math/cmplx"
)

// DefaultTolerance is the pruning threshold applied when none is configured.
const DefaultTolerance = 1e-9

// Config holds the parameters a State is created with.
type Config struct {
	// Overlap maps two wave-function descriptors to their overlap amplitude.
	// Required before AddPhoton is called.
	Overlap OverlapFunc
	// Tolerance is the amplitude pruning threshold; zero means DefaultTolerance.
	Tolerance float64
	// LossFloor is the first spatial mode reserved for loss bookkeeping. It
	// must stay above every mode used in real computation and is raised
	// automatically as photons are injected or lost.
	LossFloor int
}

// State is a pure quantum state of partially distinguishable bosons: a sparse
// superposition over Fock basis kets, together with the incrementally built
// orthonormal wave-function basis that gives the distinguishability labels
// their meaning. All operators transform the superposition in place and prune
// it to the configured tolerance.
//
// A State is not safe for concurrent use; run independent scenarios on
// independent States.
type State struct {
	terms     Superposition
	waves     [][]float64
	basis     [][]complex128
	overlap   OverlapFunc
	tol       float64
	lossFloor int
}

// New creates an empty state.
func New(cfg Config) *State {
	tol := cfg.Tolerance
	if tol == 0 {
		tol = DefaultTolerance
	}
	return &State{
		terms:     Superposition{},
		overlap:   cfg.Overlap,
		tol:       tol,
		lossFloor: cfg.LossFloor,
	}
}

// Clone returns a deep copy of the state, including the wave-function basis.
func (s *State) Clone() *State {
	waves := make([][]float64, len(s.waves))
	for i, w := range s.waves {
		waves[i] = append([]float64(nil), w...)
	}
	basis := make([][]complex128, len(s.basis))
	for i, b := range s.basis {
		basis[i] = append([]complex128(nil), b...)
	}
	return &State{
		terms:     s.terms.clone(),
		waves:     waves,
		basis:     basis,
		overlap:   s.overlap,
		tol:       s.tol,
		lossFloor: s.lossFloor,
	}
}

// SetOverlap replaces the overlap function.
func (s *State) SetOverlap(f OverlapFunc) { s.overlap = f }

// SetTolerance replaces the pruning tolerance.
func (s *State) SetTolerance(tol float64) { s.tol = tol }

// SetLossFloor sets the first spatial mode reserved for loss bookkeeping.
func (s *State) SetLossFloor(n int) { s.lossFloor = n }

// LossFloor returns the next unused environment mode index.
func (s *State) LossFloor() int { return s.lossFloor }

// Len returns the number of terms in the superposition.
func (s *State) Len() int { return len(s.terms) }

// Terms exposes the underlying sparse mapping for result aggregation. The
// returned map must be treated as read-only.
func (s *State) Terms() Superposition { return s.terms }

// SortedTerms returns the terms in canonical key order.
func (s *State) SortedTerms() []Term { return s.terms.Sorted() }

// SetTerm inserts or overwrites a single ket with the given amplitude.
func (s *State) SetTerm(k Key, amp complex128) {
	s.terms[k.ID()] = Term{Key: k, Amp: amp}
}

// BasisLen returns the number of orthonormal basis vectors built so far.
func (s *State) BasisLen() int { return len(s.basis) }

// addBasisElem runs one Gram-Schmidt step: it orthogonalizes wf against the
// existing basis, appends the normalized result, and returns the decomposition
// of wf over the updated basis, normalized to unit norm when nonzero.
func (s *State) addBasisElem(wf []float64) []complex128 {
	bNew := make([]complex128, len(s.basis))
	decomp := make([]complex128, 0, len(s.basis)+1)
	for i := range s.basis {
		ov := -basisWaveOverlap(s.basis[i], wf, s.overlap, s.waves)
		decomp = append(decomp, -ov)
		for j := range s.basis[i] {
			bNew[j] += s.basis[i][j] * ov
		}
	}
	bNew = append(bNew, 1)
	s.waves = append(s.waves, append([]float64(nil), wf...))
	norm := cmplx.Abs(basisOverlap(bNew, bNew, s.overlap, s.waves))
	if norm > 0 {
		inv := complex(1/math.Sqrt(norm), 0)
		for i := range bNew {
			bNew[i] *= inv
		}
	}
	s.basis = append(s.basis, bNew)
	decomp = append(decomp, basisWaveOverlap(bNew, wf, s.overlap, s.waves))
	var norm2 float64
	for _, a := range decomp {
		norm2 += real(a)*real(a) + imag(a)*imag(a)
	}
	if norm2 != 0 {
		inv := complex(1/math.Sqrt(norm2), 0)
		for i := range decomp {
			decomp[i] *= inv
		}
	}
	return decomp
}

// AddPhoton injects num photons with wave function wf into the given spatial
// mode. If wf overlaps an already known descriptor with magnitude exactly 1
// the photons reuse that distinguishability label; otherwise the orthonormal
// basis grows by one Gram-Schmidt step and every existing ket fans out into
// one branch per basis vector, weighted by the decomposition coefficients.
func (s *State) AddPhoton(wf []float64, mode, num int) error {
	if s.overlap == nil {
		return errors.New("fock: no overlap function configured")
	}
	if mode >= s.lossFloor {
		s.lossFloor = mode + 1
	}
	if len(s.terms) == 0 {
		s.SetTerm(NewKey(mode, 0, num), 1)
		s.waves = append(s.waves, append([]float64(nil), wf...))
		s.basis = append(s.basis, []complex128{1})
		return nil
	}
	index := -1
	for i, w := range s.waves {
		if cmplx.Abs(s.overlap(wf, w)) == 1 {
			index = i
			break
		}
	}
	if index >= 0 {
		next := make(Superposition, len(s.terms))
		for _, t := range s.terms {
			k := t.Key.Clone()
			k.Incr(Mode{Spatial: mode, Dist: index}, num)
			next.add(k, t.Amp)
		}
		s.terms = next
		return nil
	}
	decomp := s.addBasisElem(wf)
	next := make(Superposition, len(s.terms)*len(decomp))
	for _, t := range s.terms {
		for i, c := range decomp {
			k := t.Key.Clone()
			k.Incr(Mode{Spatial: mode, Dist: i}, num)
			next.add(k, t.Amp*c)
		}
	}
	s.terms = next
	return nil
}

// ApplyUnitary applies a two-mode unitary (row-major 2x2 in line format) to
// the state, fanning it out over every ket and re-merging the results.
func (s *State) ApplyUnitary(u [4]complex128, modes [2]int) {
	old := s.terms
	s.terms = make(Superposition, len(old))
	for _, t := range old {
		s.terms.merge(t.Key.ApplyUnitary(u, modes, s.tol), t.Amp)
	}
	s.Clean()
}

// ApplyPhase applies a diagonal one-mode operator: every amplitude picks up
// u raised to the ket's occupation at the given spatial mode.
func (s *State) ApplyPhase(u complex128, mode int) {
	for id, t := range s.terms {
		t.Amp *= t.Key.ApplyPhase(u, mode)
		s.terms[id] = t
	}
}

// Swap relabels spatial modes a and b in every ket, implementing a
// waveguide or polarization crossing.
func (s *State) Swap(a, b int) {
	next := make(Superposition, len(s.terms))
	for _, t := range s.terms {
		k := t.Key.Clone()
		k.Swap(a, b)
		next.add(k, t.Amp)
	}
	s.terms = next
}

// Loss applies single-photon loss on the given spatial modes to every ket and
// raises the loss floor past the highest environment mode assigned.
func (s *State) Loss(modes []int) {
	old := s.terms
	s.terms = make(Superposition, len(old))
	maxUsed := 0
	for _, t := range old {
		s.terms.merge(t.Key.Loss(modes, s.lossFloor, &maxUsed), t.Amp)
	}
	if maxUsed > s.lossFloor {
		s.lossFloor = maxUsed
	}
	s.Clean()
}

// OverlapWithFilter partitions the state against a measurement outcome. A
// term survives in place only if it matches the measurement pattern, passes
// post-selection, and overlaps at least one fidelity reference. Terms that
// pass measurement and post-selection but match no reference are moved, with
// their structure intact, into the returned state: their norm still enters
// the probability accounting downstream. Everything else is dropped.
func (s *State) OverlapWithFilter(pattern map[int]int, groups [][]int, refs []map[int]int) *State {
	kept := Superposition{}
	rest := New(Config{Overlap: s.overlap, Tolerance: s.tol, LossFloor: s.lossFloor})
	for _, t := range s.terms {
		if !t.Key.MatchesPattern(pattern) || !t.Key.HasAnyGroup(groups) {
			continue
		}
		matched := false
		for _, ref := range refs {
			if t.Key.MatchesPattern(ref) {
				matched = true
				break
			}
		}
		if matched {
			kept.addTerm(t)
		} else {
			rest.terms.addTerm(t)
		}
	}
	s.terms = kept
	return rest
}

// OverlapCompl keeps only the terms that either match none of the measurement
// patterns or fail post-selection: the complement of everything an
// OverlapWithFilter call over those patterns would accept.
func (s *State) OverlapCompl(patterns []map[int]int, groups [][]int) {
	next := Superposition{}
	for _, t := range s.terms {
		hit := false
		for _, ref := range patterns {
			if t.Key.MatchesPattern(ref) {
				hit = true
				break
			}
		}
		if !hit || !t.Key.HasAnyGroup(groups) {
			next.addTerm(t)
		}
	}
	s.terms = next
}

// Collapse re-projects the state onto a less distinguishable configuration.
// The mapping from old to new labels is read off the entry order of the
// template key; colliding kets are merged with summed amplitudes.
func (s *State) Collapse(template Key) error {
	f := make(map[int]int, template.Len())
	for j, e := range template.Entries() {
		f[j] = e.Mode.Dist
	}
	next := make(Superposition, len(s.terms))
	for _, t := range s.terms {
		k := t.Key.Clone()
		amp := t.Amp
		if err := k.Collapse(f, &amp); err != nil {
			return err
		}
		next.add(k, amp)
	}
	s.terms = next
	return nil
}

// NotEmpty drops terms that fail the occupancy post-selection and
// renormalizes the remainder.
func (s *State) NotEmpty(groups [][]int) {
	next := Superposition{}
	for _, t := range s.terms {
		if t.Key.HasAnyGroup(groups) {
			next.addTerm(t)
		}
	}
	s.terms = next
	s.Normalise()
}

// SameDModeDel projects each term against the mode groups in order: on the
// first group whose modes all share one distinguishability label, the matched
// entries are stripped and the amplitude scaled by the group's factor. Terms
// matching no group are dropped.
func (s *State) SameDModeDel(groups [][]int, factors []complex128) {
	next := Superposition{}
	for _, t := range s.terms {
		for i, g := range groups {
			k := t.Key.Clone()
			if k.SameDistStrip(g) {
				next.add(k, t.Amp*factors[i])
				break
			}
		}
	}
	s.terms = next
}

// Add folds another state's terms into this one, scaled. Colliding kets sum
// their amplitudes. The other state is not modified.
func (s *State) Add(o *State, scale complex128) {
	s.terms.merge(o.terms, scale)
}

// Norm returns the l2 norm of the state.
func (s *State) Norm() float64 {
	return s.terms.Norm()
}

// Normalise scales the state to unit norm and prunes. A zero-norm state is
// left unchanged rather than producing NaN amplitudes.
func (s *State) Normalise() {
	n := s.Norm()
	if n == 0 {
		n = 1
	}
	s.Mul(complex(1/n, 0))
}

// Mul multiplies every amplitude by a scalar, pruning by tolerance.
func (s *State) Mul(v complex128) {
	next := make(Superposition, len(s.terms))
	for _, t := range s.terms {
		t.Amp *= v
		if cmplx.Abs(t.Amp) > s.tol {
			next.addTerm(t)
		}
	}
	s.terms = next
}

// Clean removes terms whose amplitude magnitude is at or below tolerance.
func (s *State) Clean() {
	next := make(Superposition, len(s.terms))
	for _, t := range s.terms {
		if cmplx.Abs(t.Amp) > s.tol {
			next.addTerm(t)
		}
	}
	s.terms = next
}
