package numwall

import (
	"math"
	"math/cmplx"
	"testing"
)

// sum of geometric sequences with the given bases, evaluated at t=1..n
func geometricSum(bases []float64, n int) []float64 {
	vals := make([]float64, n)
	for j := 0; j < n; j++ {
		for _, b := range bases {
			vals[j] += math.Pow(b, float64(j+1))
		}
	}
	return vals
}

func TestGeometricSumOrderAndStep(t *testing.T) {
	vals := geometricSum([]float64{2, 3, 4}, 10)

	w, err := Generate(FromFloats(vals), DefaultDepth)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if got := w.Order(); got != 3 {
		t.Fatalf("order: got %d, want 3", got)
	}
	// The bottom row advances by the product of the bases
	step := w.Step()
	if math.Abs(real(step)-24) > 1e-6 || math.Abs(imag(step)) > 1e-6 {
		t.Fatalf("step: got %v, want 24", step)
	}
}

func TestSingleGeometric(t *testing.T) {
	vals := geometricSum([]float64{3}, 8)

	w, err := Generate(FromFloats(vals), 5)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got := w.Order(); got != 1 {
		t.Fatalf("order: got %d, want 1", got)
	}
	step := w.Step()
	if math.Abs(real(step)-3) > 1e-9 {
		t.Fatalf("step: got %v, want 3", step)
	}
}

func TestPolynomialSequenceOrder(t *testing.T) {
	// j^2 satisfies an order-3 recurrence (roots all 1)
	vals := make([]float64, 12)
	for j := range vals {
		vals[j] = float64(j * j)
	}

	w, err := Generate(FromFloats(vals), DefaultDepth)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got := w.Order(); got != 3 {
		t.Fatalf("order: got %d, want 3", got)
	}
	step := w.Step()
	if math.Abs(real(step)-1) > 1e-9 {
		t.Fatalf("step: got %v, want 1", step)
	}
}

func TestComplexConjugateBases(t *testing.T) {
	// Attenuating conjugated oscillation, real-valued samples
	base := 0.9 * cmplx.Exp(complex(0, math.Pi/32))
	n := 12
	vals := make([]complex128, n)
	for j := 0; j < n; j++ {
		v := cmplx.Pow(base, complex(float64(j+1), 0))
		vals[j] = complex(2*real(v), 0) // v + conj(v)
	}

	w, err := Generate(vals, 6)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got := w.Order(); got != 2 {
		t.Fatalf("order: got %d, want 2", got)
	}
	// Product of conjugate roots is |base|^2
	step := w.Step()
	if math.Abs(cmplx.Abs(step)-0.81) > 1e-6 {
		t.Fatalf("step magnitude: got %v, want 0.81", cmplx.Abs(step))
	}
}

func TestCrossRightMatchesDownWall(t *testing.T) {
	vals := geometricSum([]float64{2, 3}, 10)

	w, err := Generate(FromFloats(vals), 5)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	check, err := Generate(FromFloats(vals), 5)
	if err != nil {
		t.Fatalf("generate check wall: %v", err)
	}
	// Recompute an interior column from its left neighbours
	col := 5
	check.CrossRight(col)
	for r := 1; r < w.Depth()-1; r++ {
		want := w.Row(r)[col]
		got := check.Row(r)[col]
		if !isFinite(want) || !isFinite(got) {
			continue
		}
		if cmplx.Abs(want-got) > 1e-6*(1+cmplx.Abs(want)) {
			t.Errorf("row %d col %d: cross-right %v, cross-down %v", r, col, got, want)
		}
	}
}

func TestGenerateTooShallow(t *testing.T) {
	if _, err := Generate(FromFloats([]float64{1, 2}), 2); err != ErrTooShallow {
		t.Fatalf("expected ErrTooShallow, got %v", err)
	}
}
