package approx

import (
	"errors"
	"math"
	"testing"
)

func observe(t *testing.T, a *Approximator, value, at float64) bool {
	t.Helper()
	grew, err := a.Observe(value, at)
	if err != nil {
		t.Fatalf("observe %g@%g: %v", value, at, err)
	}
	return grew
}

func TestQuadraticExtrapolationIsExact(t *testing.T) {
	a := New()
	observe(t, a, 0, 0)
	observe(t, a, 1, 1)
	observe(t, a, 4, 2)

	got, err := a.At(10)
	if err != nil {
		t.Fatalf("at 10: %v", err)
	}
	// Divided differences over small integers are exact in float64
	if got != 100 {
		t.Fatalf("expected exactly 100, got %v", got)
	}
	if a.Rank() != 3 {
		t.Fatalf("expected rank 3 for a quadratic, got %d", a.Rank())
	}
}

func TestCubicRankStabilizes(t *testing.T) {
	cube := func(x float64) float64 { return x * x * x }

	a := New()
	grew := []bool{}
	for x := 0.0; x <= 4; x++ {
		grew = append(grew, observe(t, a, cube(x), x))
	}

	want := []bool{true, true, true, true, false}
	for i := range want {
		if grew[i] != want[i] {
			t.Errorf("observation %d: grew=%v, want %v", i, grew[i], want[i])
		}
	}
	if a.Rank() != 4 {
		t.Fatalf("expected rank 4 for a cubic, got %d", a.Rank())
	}

	for _, x := range []float64{5, -2, 10} {
		got, err := a.At(x)
		if err != nil {
			t.Fatalf("at %g: %v", x, err)
		}
		if got != cube(x) {
			t.Errorf("at %g: got %v, want %v", x, got, cube(x))
		}
	}
}

func TestObserveIrregularSteps(t *testing.T) {
	poly := func(x float64) float64 { return x*x*x - 2*x*x + 3*x - 4 }

	a := New()
	time := 0.0
	for _, step := range []float64{1, 0.5, 2.25, 0.75, 3.5, 1.25} {
		time += step
		observe(t, a, poly(time), time)
	}

	if a.Rank() != 4 {
		t.Fatalf("expected rank 4, got %d", a.Rank())
	}
	got, err := a.At(12)
	if err != nil {
		t.Fatalf("at 12: %v", err)
	}
	if math.Abs(got-poly(12)) > 1e-9 {
		t.Fatalf("at 12: got %v, want %v", got, poly(12))
	}
}

func TestObserveDuplicateTime(t *testing.T) {
	a := New()
	observe(t, a, 1, 1)
	observe(t, a, 4, 2)

	if _, err := a.Observe(5, 2); !errors.Is(err, ErrStaleSample) {
		t.Fatalf("expected ErrStaleSample, got %v", err)
	}
	// The committed prefix keeps answering
	if a.Rank() < 1 {
		t.Fatalf("expected committed prefix to survive, rank=%d", a.Rank())
	}
	if got := a.Value(0); got != 5 {
		t.Fatalf("expected newest value 5, got %v", got)
	}
}

func TestExtrapolateEmpty(t *testing.T) {
	if _, err := New().Extrapolate(1); !errors.Is(err, ErrNoSamples) {
		t.Fatalf("expected ErrNoSamples, got %v", err)
	}
}

func TestFromCoefsEvaluates(t *testing.T) {
	// x^4 - 2x^3 + 3x^2 - 4x + 5
	a := FromCoefs([]float64{5, -4, 3, -2, 1}, 0)

	got, err := a.At(2)
	if err != nil {
		t.Fatalf("at 2: %v", err)
	}
	if got != 9 {
		t.Fatalf("at 2: got %v, want 9", got)
	}
}

func TestDerivAppliesFactorial(t *testing.T) {
	a := FromCoefs([]float64{0, 0, 0, 2}, 0) // 2x^3
	if got := a.Deriv(3); got != 12 {        // f''' = 12
		t.Fatalf("third derivative: got %v, want 12", got)
	}
	if got := a.Value(3); got != 2 {
		t.Fatalf("rank-3 delta: got %v, want 2", got)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	a := New()
	observe(t, a, 0, 0)
	observe(t, a, 1, 1)
	observe(t, a, 4, 2)

	c := a.Clone()
	if _, err := c.Extrapolate(10); err != nil {
		t.Fatalf("extrapolate clone: %v", err)
	}
	if a.Value(0) != 4 || a.Delta(0).Time != 2 {
		t.Fatalf("clone extrapolation mutated the original: %+v", a.Delta(0))
	}
}
