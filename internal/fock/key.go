package fock

import (
	"fmt"
	"math"
	"math/cmplx"
	"sort"
	"strconv"
	"strings"
)

// Mode identifies one bosonic mode: a spatial/polarization path together with
// the distinguishability class of the wave packet occupying it.
type Mode struct {
	Spatial int
	Dist    int
}

func (m Mode) less(o Mode) bool {
	if m.Spatial != o.Spatial {
		return m.Spatial < o.Spatial
	}
	return m.Dist < o.Dist
}

// Entry is one mode of a Key together with its occupation number.
type Entry struct {
	Mode Mode
	N    int
}

// Key is a single Fock basis ket: an ordered sparse mapping from modes to
// occupation numbers, i.e. one monomial of creation operators. Entries are
// kept sorted by mode and unique; occupation numbers may transiently be zero
// or negative inside operator algebra but are removed by Clean before a key
// is exposed.
type Key struct {
	entries []Entry
}

// NewKey builds a key with a single entry at the given spatial and
// distinguishability mode.
func NewKey(spatial, dist, n int) Key {
	return Key{entries: []Entry{{Mode: Mode{Spatial: spatial, Dist: dist}, N: n}}}
}

// Len returns the number of entries.
func (k Key) Len() int { return len(k.entries) }

// Entries returns a copy of the key's entries in mode order.
func (k Key) Entries() []Entry {
	out := make([]Entry, len(k.entries))
	copy(out, k.entries)
	return out
}

// Clone returns a deep copy of the key.
func (k Key) Clone() Key {
	return Key{entries: k.Entries()}
}

// find returns the index of mode m, or the insertion point and false.
func (k Key) find(m Mode) (int, bool) {
	i := sort.Search(len(k.entries), func(i int) bool {
		return !k.entries[i].Mode.less(m)
	})
	if i < len(k.entries) && k.entries[i].Mode == m {
		return i, true
	}
	return i, false
}

// Occupation returns the occupation number at mode m, zero if absent.
func (k Key) Occupation(m Mode) int {
	if i, ok := k.find(m); ok {
		return k.entries[i].N
	}
	return 0
}

// TotalAt sums the occupation over every distinguishability label at the
// given spatial mode.
func (k Key) TotalAt(spatial int) int {
	total := 0
	for _, e := range k.entries {
		if e.Mode.Spatial == spatial {
			total += e.N
		}
	}
	return total
}

// Set inserts or overwrites the entry at mode m.
func (k *Key) Set(m Mode, n int) {
	i, ok := k.find(m)
	if ok {
		k.entries[i].N = n
		return
	}
	k.entries = append(k.entries, Entry{})
	copy(k.entries[i+1:], k.entries[i:])
	k.entries[i] = Entry{Mode: m, N: n}
}

// Incr adds n to the occupation at mode m, inserting the entry if absent.
// This is the bosonic composition rule for a single mode.
func (k *Key) Incr(m Mode, n int) {
	i, ok := k.find(m)
	if ok {
		k.entries[i].N += n
		return
	}
	k.entries = append(k.entries, Entry{})
	copy(k.entries[i+1:], k.entries[i:])
	k.entries[i] = Entry{Mode: m, N: n}
}

// Add merges another key into this one, summing occupation numbers on
// matching modes.
func (k *Key) Add(o Key) {
	for _, e := range o.entries {
		k.Incr(e.Mode, e.N)
	}
}

// Clean removes entries whose occupation is not strictly positive.
func (k *Key) Clean() {
	kept := k.entries[:0]
	for _, e := range k.entries {
		if e.N > 0 {
			kept = append(kept, e)
		}
	}
	k.entries = kept
}

// ID returns the canonical string form of the key, used to index sparse
// superpositions. Keys with equal entries have equal IDs.
func (k Key) ID() string {
	var b strings.Builder
	for i, e := range k.entries {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(strconv.Itoa(e.Mode.Spatial))
		b.WriteByte('.')
		b.WriteString(strconv.Itoa(e.Mode.Dist))
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(e.N))
	}
	return b.String()
}

// NormFactor returns the bosonic symmetrization factor sqrt(prod n_i!) over
// all entries.
func (k Key) NormFactor() float64 {
	r := 1.0
	for _, e := range k.entries {
		r *= float64(factorial(e.N))
	}
	return math.Sqrt(r)
}

// NormFactorAt returns the symmetrization factor restricted to entries whose
// spatial mode is a or b.
func (k Key) NormFactorAt(a, b int) float64 {
	r := 1.0
	for _, e := range k.entries {
		if e.Mode.Spatial == a || e.Mode.Spatial == b {
			r *= float64(factorial(e.N))
		}
	}
	return math.Sqrt(r)
}

// ApplyUnitary expands the action of a two-mode unitary u (row-major 2x2, in
// line format) on the ket, treating creation operators at modes[0] and
// modes[1] as subject to the linear map encoded by u. Entries at other
// spatial modes pass through unchanged. The result is the superposition
// obtained from applying u to (key : 1.0); branches with amplitude magnitude
// at or below tol are discarded.
//
// Each affected entry with occupation n expands into a binomial sum over
// j = 0..n; successive affected entries are convolved, and the final
// amplitudes are rescaled by the symmetrization factor restricted to the two
// modes so that the binomial coefficients cancel exactly. The identity
// matrix reproduces the input ket with amplitude 1.
func (k Key) ApplyUnitary(u [4]complex128, modes [2]int, tol float64) Superposition {
	a, b := modes[0], modes[1]
	acc := make(Superposition, 1)
	acc.add(Key{}, 1)
	for _, e := range k.entries {
		m, d, n := e.Mode.Spatial, e.Mode.Dist, e.N
		if m != a && m != b {
			next := make(Superposition, len(acc))
			for _, t := range acc {
				nk := t.Key.Clone()
				nk.Set(Mode{Spatial: m, Dist: d}, n)
				next.add(nk, t.Amp)
			}
			acc = next
			continue
		}
		i := 0
		if m == b {
			i = 1
		}
		invRoot := 1 / math.Sqrt(float64(factorial(n)))
		branches := make([]Term, 0, n+1)
		for j := 0; j <= n; j++ {
			amp := cpow(u[i], j) * complex(binomial(n, j)*invRoot, 0) * cpow(u[i+2], n-j)
			nk := NewKey(a, d, j)
			nk.Set(Mode{Spatial: b, Dist: d}, n-j)
			nk.Clean()
			branches = append(branches, Term{Key: nk, Amp: amp})
		}
		next := make(Superposition, len(acc)*len(branches))
		for _, br := range branches {
			for _, t := range acc {
				nk := br.Key.Clone()
				nk.Add(t.Key)
				next.add(nk, br.Amp*t.Amp)
			}
		}
		acc = next
	}
	out := make(Superposition, len(acc))
	for _, t := range acc {
		if cmplx.Abs(t.Amp) > tol {
			out.add(t.Key, t.Amp*complex(t.Key.NormFactorAt(a, b), 0))
		}
	}
	return out
}

// ApplyPhase returns the amplitude factor of a diagonal one-mode operator:
// u raised to the total occupation at the given spatial mode.
func (k Key) ApplyPhase(u complex128, mode int) complex128 {
	return cpow(u, k.TotalAt(mode))
}

// Swap relabels spatial modes a and b in place.
func (k *Key) Swap(a, b int) {
	for i := range k.entries {
		switch k.entries[i].Mode.Spatial {
		case a:
			k.entries[i].Mode.Spatial = b
		case b:
			k.entries[i].Mode.Spatial = a
		}
	}
	sort.Slice(k.entries, func(i, j int) bool {
		return k.entries[i].Mode.less(k.entries[j].Mode)
	})
}

// Loss applies single-photon loss on the given spatial modes: exactly one
// photon, chosen uniformly among the photons present on those modes, is
// removed and routed into a private environment mode lossFloor+i, where i is
// the mode's index within modes. The distinguishability label travels with
// the photon. maxUsed is raised past the highest environment mode assigned.
//
// If no photon occupies any of the modes the key passes through unchanged
// with amplitude 1; otherwise the branches are jointly normalized by
// 1/sqrt(total occupation) so that the operation is trace preserving at the
// amplitude level.
func (k Key) Loss(modes []int, lossFloor int, maxUsed *int) Superposition {
	out := Superposition{}
	total := 0
	for idx, e := range k.entries {
		j := indexOf(modes, e.Mode.Spatial)
		if j < 0 || e.N <= 0 {
			continue
		}
		nk := k.Clone()
		nk.entries[idx].N--
		nk.Clean()
		nk.Set(Mode{Spatial: lossFloor + j, Dist: e.Mode.Dist}, 1)
		out.add(nk, complex(math.Sqrt(float64(e.N)), 0))
		total += e.N
		if lossFloor+j >= *maxUsed {
			*maxUsed = lossFloor + j + 1
		}
	}
	if total == 0 {
		out.add(k.Clone(), 1)
		return out
	}
	inv := complex(1/math.Sqrt(float64(total)), 0)
	for id, t := range out {
		t.Amp *= inv
		out[id] = t
	}
	return out
}

// MatchesPattern reports whether, for every spatial mode named in pattern,
// the key's total occupation at that mode equals the required value. Modes
// absent from the pattern are unconstrained.
func (k Key) MatchesPattern(pattern map[int]int) bool {
	for m, want := range pattern {
		if k.TotalAt(m) != want {
			return false
		}
	}
	return true
}

// HasAnyGroup reports whether at least one group has every spatial mode
// occupied with a positive count. An empty group list is vacuously satisfied.
func (k Key) HasAnyGroup(groups [][]int) bool {
	if len(groups) == 0 {
		return true
	}
	for _, g := range groups {
		ok := true
		for _, m := range g {
			if k.TotalAt(m) <= 0 {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

// Collapse rewrites every entry's distinguishability label through f, merging
// entries whose modes coincide afterwards, and rescales amp by the ratio of
// symmetrization factors so that bosonic normalization stays correct when
// previously distinct labels merge. Only use mappings towards fewer
// distinguishable classes. A label absent from f is a domain error.
func (k *Key) Collapse(f map[int]int, amp *complex128) error {
	pre := k.NormFactor()
	var merged Key
	for _, e := range k.entries {
		nd, ok := f[e.Mode.Dist]
		if !ok {
			return fmt.Errorf("fock: collapse mapping has no target for distinguishability mode %d", e.Mode.Dist)
		}
		merged.Incr(Mode{Spatial: e.Mode.Spatial, Dist: nd}, e.N)
	}
	k.entries = merged.entries
	*amp *= complex(k.NormFactor()/pre, 0)
	return nil
}

// SameDistStrip reports whether every spatial mode in modes is occupied and
// all of them share one common distinguishability label. On success the
// matching entries are deleted from the key; the caller applies whatever
// amplitude factor the projection carries. On a label mismatch the key is
// left untouched.
func (k *Key) SameDistStrip(modes []int) bool {
	dist := -1
	found := 0
	var kept []Entry
	for _, e := range k.entries {
		if indexOf(modes, e.Mode.Spatial) >= 0 && e.N != 0 {
			if dist == -1 {
				dist = e.Mode.Dist
			} else if e.Mode.Dist != dist {
				return false
			}
			found++
		} else if e.N != 0 {
			kept = append(kept, e)
		}
	}
	k.entries = kept
	return found == len(modes)
}

func indexOf(s []int, v int) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}
