package fock

import "math/cmplx"

// OverlapFunc returns the overlap amplitude of two single-photon wave-function
// descriptors. It is supplied by the caller and fixes how descriptors are
// interpreted; identical descriptors must give overlap 1.
type OverlapFunc func(a, b []float64) complex128

// basisWaveOverlap computes the inner product of an orthogonalized basis
// vector (coefficients over waves) with a raw descriptor.
func basisWaveOverlap(b []complex128, wf []float64, overlap OverlapFunc, waves [][]float64) complex128 {
	var res complex128
	for i := range b {
		res += cmplx.Conj(b[i]) * overlap(waves[i], wf)
	}
	return res
}

// basisOverlap computes the inner product of two basis vectors, both expressed
// as coefficient vectors over waves.
func basisOverlap(b, c []complex128, overlap OverlapFunc, waves [][]float64) complex128 {
	var res complex128
	for i := range c {
		res += c[i] * basisWaveOverlap(b, waves[i], overlap, waves)
	}
	return res
}
