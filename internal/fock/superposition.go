package fock

import (
	"math"
	"math/cmplx"
	"sort"
)

// Term is one ket of a superposition together with its amplitude.
type Term struct {
	Key Key
	Amp complex128
}

// Superposition is a sparse linear combination of Fock basis kets, indexed by
// the canonical key ID. Amplitudes on colliding keys are summed.
type Superposition map[string]Term

func (s Superposition) add(k Key, amp complex128) {
	id := k.ID()
	if t, ok := s[id]; ok {
		t.Amp += amp
		s[id] = t
		return
	}
	s[id] = Term{Key: k, Amp: amp}
}

func (s Superposition) addTerm(t Term) {
	s.add(t.Key, t.Amp)
}

// merge folds o into s, scaling o's amplitudes first.
func (s Superposition) merge(o Superposition, scale complex128) {
	for _, t := range o {
		s.add(t.Key, scale*t.Amp)
	}
}

// Norm returns the l2 norm of the amplitude vector.
func (s Superposition) Norm() float64 {
	var r float64
	for _, t := range s {
		a := cmplx.Abs(t.Amp)
		r += a * a
	}
	return math.Sqrt(r)
}

// Sorted returns the terms ordered by key ID. Map iteration order is random;
// every consumer that pairs terms across superpositions goes through this.
func (s Superposition) Sorted() []Term {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]Term, len(ids))
	for i, id := range ids {
		out[i] = s[id]
	}
	return out
}

// clone deep-copies the superposition, including keys.
func (s Superposition) clone() Superposition {
	out := make(Superposition, len(s))
	for id, t := range s {
		out[id] = Term{Key: t.Key.Clone(), Amp: t.Amp}
	}
	return out
}
