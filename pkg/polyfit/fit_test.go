package polyfit

import (
	"errors"
	"math"
	"testing"
)

func TestFitQuadratic(t *testing.T) {
	x := []float64{0, 1, 2, 3, 4}
	y := make([]float64, len(x))
	for i, v := range x {
		y[i] = 2*v*v - 3*v + 1
	}

	coefs, err := Fit(x, y, 2)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	want := []float64{1, -3, 2}
	for i := range want {
		if math.Abs(coefs[i]-want[i]) > 1e-9 {
			t.Errorf("coef %d: got %v, want %v", i, coefs[i], want[i])
		}
	}
	if rmse := RMSE(coefs, x, y); rmse > 1e-9 {
		t.Errorf("rmse: got %v, want ~0", rmse)
	}
}

func TestFitOverdetermined(t *testing.T) {
	// Noisy line, least squares should stay close
	x := make([]float64, 20)
	y := make([]float64, 20)
	for i := range x {
		x[i] = float64(i)
		noise := 0.01
		if i%2 == 0 {
			noise = -0.01
		}
		y[i] = 5*x[i] + 2 + noise
	}

	coefs, err := Fit(x, y, 1)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if math.Abs(coefs[1]-5) > 0.01 || math.Abs(coefs[0]-2) > 0.1 {
		t.Fatalf("got %v, want approx [2 5]", coefs)
	}
}

func TestFitTooFewSamples(t *testing.T) {
	if _, err := Fit([]float64{1, 2}, []float64{1, 2}, 2); !errors.Is(err, ErrTooFewSamples) {
		t.Fatalf("expected ErrTooFewSamples, got %v", err)
	}
}

func TestEvalHorner(t *testing.T) {
	coefs := []float64{1, -3, 2} // 2x^2 - 3x + 1
	if got := Eval(coefs, 3); got != 10 {
		t.Fatalf("eval at 3: got %v, want 10", got)
	}
	if got := Eval(nil, 3); got != 0 {
		t.Fatalf("eval empty: got %v, want 0", got)
	}
}
