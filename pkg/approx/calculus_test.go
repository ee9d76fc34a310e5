package approx

import (
	"math"
	"testing"
)

func fitPoly(t *testing.T, fn func(float64) float64, samples int) *Approximator {
	t.Helper()
	a := New()
	for x := 0.0; x < float64(samples); x++ {
		if _, err := a.Observe(fn(x), x); err != nil {
			t.Fatalf("observe at %g: %v", x, err)
		}
	}
	return a
}

func TestCoefsRecoverPolynomial(t *testing.T) {
	// x^3 - 2x^2 + 3x - 4 sampled at integer nodes
	poly := func(x float64) float64 { return x*x*x - 2*x*x + 3*x - 4 }
	a := fitPoly(t, poly, 5)

	coefs, err := a.Clone().Coefs(0)
	if err != nil {
		t.Fatalf("coefs: %v", err)
	}
	want := []float64{-4, 3, -2, 1}
	if len(coefs) != len(want) {
		t.Fatalf("coefs length: got %d, want %d", len(coefs), len(want))
	}
	for i := range want {
		if coefs[i] != want[i] {
			t.Errorf("coef %d: got %v, want %v", i, coefs[i], want[i])
		}
	}
}

func TestCoefsAroundOffset(t *testing.T) {
	a := FromCoefs([]float64{0, 0, 1}, 0) // x^2

	coefs, err := a.Clone().Coefs(3)
	if err != nil {
		t.Fatalf("coefs at 3: %v", err)
	}
	// x^2 = 9 + 6(x-3) + (x-3)^2
	want := []float64{9, 6, 1}
	for i := range want {
		if coefs[i] != want[i] {
			t.Errorf("coef %d: got %v, want %v", i, coefs[i], want[i])
		}
	}
}

func TestDifferentiate(t *testing.T) {
	cube := func(x float64) float64 { return x * x * x }
	a := fitPoly(t, cube, 5)

	d := a.Clone()
	if err := d.Differentiate(2); err != nil {
		t.Fatalf("differentiate: %v", err)
	}
	if got := d.Value(0); got != 12 { // 3x^2 at x=2
		t.Fatalf("derivative at 2: got %v, want 12", got)
	}
	for _, x := range []float64{0, 1, 5} {
		got, err := d.At(x)
		if err != nil {
			t.Fatalf("derivative at %g: %v", x, err)
		}
		if got != 3*x*x {
			t.Errorf("derivative at %g: got %v, want %v", x, got, 3*x*x)
		}
	}
}

func TestIntegrateInvertsDifferentiate(t *testing.T) {
	// Fit f' = 3x^2, integrate with f(1) = 1, expect f = x^3
	deriv := func(x float64) float64 { return 3 * x * x }
	a := fitPoly(t, deriv, 4)

	if err := a.Integrate(1, 1); err != nil {
		t.Fatalf("integrate: %v", err)
	}
	for _, x := range []float64{0, 2, 4} {
		got, err := a.At(x)
		if err != nil {
			t.Fatalf("integral at %g: %v", x, err)
		}
		if math.Abs(got-x*x*x) > 1e-9 {
			t.Errorf("integral at %g: got %v, want %v", x, got, x*x*x)
		}
	}
}

func TestMakeDerivsPinsAllIntervals(t *testing.T) {
	a := fitPoly(t, func(x float64) float64 { return x * x }, 3)
	if err := a.MakeDerivs(2); err != nil {
		t.Fatalf("make derivs: %v", err)
	}
	for i, ts := range a.Times() {
		if ts != 2 {
			t.Errorf("rank %d interval not pinned: time=%v", i, ts)
		}
	}
	if a.Value(0) != 4 || a.Deriv(1) != 4 || a.Deriv(2) != 2 {
		t.Fatalf("unexpected derivatives: %v %v %v", a.Value(0), a.Deriv(1), a.Deriv(2))
	}
}
