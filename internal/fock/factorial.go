package fock

import "fmt"

// MaxOccupation is the largest occupation number the engine supports per mode.
// The circuits this engine targets never put more than 12 photons in one mode.
const MaxOccupation = 12

// Precomputed 0! through 12!.
var factorials = [MaxOccupation + 1]int64{
	1, 1, 2, 6, 24, 120, 720, 5040, 40320, 362880, 3628800, 39916800, 479001600,
}

// factorial returns n! for 0 <= n <= MaxOccupation. Anything outside that range
// is a programming error: occupation numbers above 12 cannot occur in a valid
// run, and silently computing with them would corrupt every downstream amplitude.
func factorial(n int) int64 {
	if n < 0 || n > MaxOccupation {
		panic(fmt.Sprintf("fock: occupation %d outside supported range [0, %d]", n, MaxOccupation))
	}
	return factorials[n]
}

// binomial returns the binomial coefficient C(n, k) for 0 <= k <= n <= MaxOccupation.
// The division is exact.
func binomial(n, k int) float64 {
	return float64(factorial(n) / (factorial(k) * factorial(n-k)))
}

// cpow raises z to a small non-negative integer power. Unlike cmplx.Pow it
// returns exactly 1 for n == 0, including 0^0, which the binomial expansion
// in Key.ApplyUnitary relies on.
func cpow(z complex128, n int) complex128 {
	r := complex(1, 0)
	for i := 0; i < n; i++ {
		r *= z
	}
	return r
}
