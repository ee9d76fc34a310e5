package trend

import (
	"math"
	"testing"
)

func TestTrainRecoversLine(t *testing.T) {
	times := []float64{0, 1, 2, 3, 4}
	values := make([]float64, len(times))
	for i, x := range times {
		values[i] = 2*x + 1
	}

	l := NewLinear()
	l.Train(times, values)

	if math.Abs(l.Slope-2) > 1e-9 || math.Abs(l.Intercept-1) > 1e-9 {
		t.Fatalf("got slope=%v intercept=%v, want 2 and 1", l.Slope, l.Intercept)
	}
	if got := l.Predict(10); math.Abs(got-21) > 1e-9 {
		t.Fatalf("predict 10: got %v, want 21", got)
	}
}

func TestIncrementalUpdateMatchesTrain(t *testing.T) {
	times := []float64{0, 2, 3, 7, 11}
	values := []float64{1, 4, 2, 9, 12}

	batch := NewLinear()
	batch.Train(times, values)

	inc := NewLinear()
	for i := range times {
		inc.Update(times[i], values[i])
	}

	if math.Abs(batch.Slope-inc.Slope) > 1e-9 || math.Abs(batch.Intercept-inc.Intercept) > 1e-9 {
		t.Fatalf("incremental fit diverged: batch=(%v,%v) inc=(%v,%v)",
			batch.Slope, batch.Intercept, inc.Slope, inc.Intercept)
	}
	if inc.Count() != 5 {
		t.Fatalf("count: got %d, want 5", inc.Count())
	}
}

func TestDegenerateInput(t *testing.T) {
	l := NewLinear()
	l.Update(3, 7)
	// A single sample cannot determine a slope
	if l.Slope != 0 || l.Intercept != 0 {
		t.Fatalf("expected zeroed fit for degenerate input, got slope=%v intercept=%v", l.Slope, l.Intercept)
	}
}
