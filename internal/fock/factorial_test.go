package fock

import (
	"math"
	"testing"
)

func TestFactorial(t *testing.T) {
	tests := []struct {
		n    int
		want int64
	}{
		{0, 1},
		{1, 1},
		{5, 120},
		{12, 479001600},
	}

	for _, tt := range tests {
		if got := factorial(tt.n); got != tt.want {
			t.Errorf("factorial(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestFactorialPanicsAboveRange(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("factorial(13) should panic")
		}
	}()
	factorial(13)
}

func TestBinomial(t *testing.T) {
	tests := []struct {
		n, k int
		want float64
	}{
		{0, 0, 1},
		{4, 2, 6},
		{12, 6, 924},
		{5, 0, 1},
		{5, 5, 1},
	}

	for _, tt := range tests {
		if got := binomial(tt.n, tt.k); got != tt.want {
			t.Errorf("binomial(%d, %d) = %v, want %v", tt.n, tt.k, got, tt.want)
		}
	}
}

func TestCpow(t *testing.T) {
	if got := cpow(0, 0); got != 1 {
		t.Errorf("cpow(0, 0) = %v, want 1", got)
	}
	got := cpow(complex(0, 1), 3)
	if math.Abs(real(got)) > 1e-15 || math.Abs(imag(got)+1) > 1e-15 {
		t.Errorf("cpow(i, 3) = %v, want -i", got)
	}
}
