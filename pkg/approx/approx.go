package approx

import (
	"errors"
	"math"
)

var (
	// ErrNoSamples is returned when an operation needs at least one
	// observed sample and the approximator is empty.
	ErrNoSamples = errors.New("approx: no samples")

	// ErrStaleSample is returned by Observe when the sample time collides
	// with one of the recorded interval times. The committed low-rank
	// prefix stays valid.
	ErrStaleSample = errors.New("approx: duplicate sample time")

	// ErrTimeMismatch is returned when combining approximators whose
	// interval times do not line up.
	ErrTimeMismatch = errors.New("approx: interval times do not match")
)

// Delta is one mean-derivative slot: Value is the k-th mean derivative
// divided by k!, taken over the interval from Time to the newest sample.
type Delta struct {
	Value float64
	Time  float64
}

// Approximator tracks a signal by keeping a vector of its mean deltas:
//
//	rank 0 - the signal value itself:
//	         value0 at time0
//	rank 1 - first mean derivative for the interval time1..time0:
//	         (value0 - value0_last) / (time0 - time0_last)
//	rank 2 - second mean derivative / 2 for the interval time2..time0
//	rank 3 - etc.
//
// All mean intervals end at time0 and each one contains the previous, so
// the vector is a Newton divided-difference form of the interpolating
// polynomial through the observed samples.
type Approximator struct {
	deltas []Delta
}

func New() *Approximator {
	return &Approximator{}
}

// FromCoefs builds an approximator from power-basis polynomial
// coefficients around the moment at: c[0] + c[1](x-at) + c[2](x-at)^2 ...
func FromCoefs(coefs []float64, at float64) *Approximator {
	a := &Approximator{deltas: make([]Delta, len(coefs))}
	for i, c := range coefs {
		a.deltas[i] = Delta{Value: c, Time: at}
	}
	return a
}

// Clone duplicates the approximator. The destructive operations
// (Extrapolate, MakeDerivs, Differentiate, Integrate, Coefs) should run
// on a clone when the original is still accumulating samples.
func (a *Approximator) Clone() *Approximator {
	c := &Approximator{deltas: make([]Delta, len(a.deltas))}
	copy(c.deltas, a.deltas)
	return c
}

// Rank returns the number of tracked deltas.
func (a *Approximator) Rank() int {
	return len(a.deltas)
}

// Delta returns the mean delta at the given rank.
func (a *Approximator) Delta(rank int) Delta {
	return a.deltas[rank]
}

// Value returns the mean delta value at the given rank. Value(0) is the
// signal value at the newest interval end.
func (a *Approximator) Value(rank int) float64 {
	return a.deltas[rank].Value
}

// Deriv returns the mean derivative at the given rank, i.e. the delta
// value multiplied back by rank!.
func (a *Approximator) Deriv(rank int) float64 {
	v := a.deltas[rank].Value
	for i := 2; i <= rank; i++ {
		v *= float64(i)
	}
	return v
}

// Times returns the interval start times, newest first.
func (a *Approximator) Times() []float64 {
	ts := make([]float64, len(a.deltas))
	for i, d := range a.deltas {
		ts[i] = d.Time
	}
	return ts
}

// nextTimes builds a new time vector by shifting the current one up.
func (a *Approximator) nextTimes(t float64) []float64 {
	ts := make([]float64, len(a.deltas)+1)
	ts[0] = t
	for i, d := range a.deltas {
		ts[i+1] = d.Time
	}
	return ts
}

// Observe updates the delta vector with a signal value observed at the
// given moment. The returned flag reports whether the top-rank delta
// grew independent (nonzero), i.e. the new sample was not predicted by
// the current polynomial.
//
// A sample whose time collides with a recorded interval time commits
// only the ranks computed before the collision and returns
// ErrStaleSample.
func (a *Approximator) Observe(value, t float64) (bool, error) {
	times := a.nextTimes(t)
	vals := make([]float64, len(times))
	vals[0] = value

	for i := range a.deltas {
		dt := t - a.deltas[i].Time
		if dt == 0 {
			a.commit(vals[:i+1], times[:i+1])
			return false, ErrStaleSample
		}
		vals[i+1] = (vals[i] - a.deltas[i].Value) / dt
	}

	grew := true
	if len(vals) > 1 && vals[len(vals)-1] == 0 {
		// The new top delta carries no information, drop it
		vals = vals[:len(vals)-1]
		times = times[:len(times)-1]
		grew = false
	}

	a.commit(vals, times)
	return grew, nil
}

func (a *Approximator) commit(vals, times []float64) {
	deltas := make([]Delta, len(vals))
	for i := range vals {
		deltas[i] = Delta{Value: vals[i], Time: times[i]}
	}
	a.deltas = deltas
}

// Extrapolate advances the deltas to the given moment assuming the
// top-rank delta stays constant, and returns the rank-0 value there.
// Destructive: the interval times are rewritten.
func (a *Approximator) Extrapolate(t float64) (float64, error) {
	n := len(a.deltas)
	if n < 1 {
		return 0, ErrNoSamples
	}

	times := a.nextTimes(t)[:n]

	a.deltas[n-1].Time = times[n-1]
	for i := n - 2; i >= 0; i-- {
		dt := t - a.deltas[i].Time
		a.deltas[i] = Delta{
			Value: a.deltas[i].Value + a.deltas[i+1].Value*dt,
			Time:  times[i],
		}
	}
	return a.deltas[0].Value, nil
}

// At evaluates the approximated polynomial at the given moment without
// touching the receiver.
func (a *Approximator) At(t float64) (float64, error) {
	return a.Clone().Extrapolate(t)
}

// Reduce cuts the highest-rank deltas by count and/or by minimal value.
// maxRank > 0 keeps at most that many deltas, maxRank < 0 drops that
// many from the top, maxRank == 0 applies no count limit. Among the kept
// prefix, top deltas not exceeding minVal (as plain deltas, or as
// derivatives when asDeriv is set) are trimmed too.
func (a *Approximator) Reduce(maxRank int, minVal float64, asDeriv bool) {
	n := len(a.deltas)
	if n == 0 {
		return
	}
	switch {
	case maxRank == 0 || maxRank > n:
		maxRank = n
	case maxRank < 0:
		maxRank = n + maxRank
		if maxRank < 0 {
			maxRank = 0
		}
	}

	for i := maxRank - 1; i >= 1; i-- {
		v := a.deltas[i].Value
		if asDeriv {
			for k := 2; k <= i; k++ {
				v *= float64(k)
			}
		}
		if math.Abs(v) > minVal {
			maxRank = i + 1
			break
		}
	}
	a.deltas = a.deltas[:maxRank]
}

// Split detaches the deltas at and above the given rank into a separate
// approximator, keeping the fresher low ranks in the receiver. Used when
// the tracked signal switches regime and the high ranks go stale.
func (a *Approximator) Split(rank int) *Approximator {
	if rank < 0 {
		rank = 0
	}
	if rank >= len(a.deltas) {
		return New()
	}
	tail := &Approximator{deltas: make([]Delta, len(a.deltas)-rank)}
	copy(tail.deltas, a.deltas[rank:])
	a.deltas = a.deltas[:rank]
	return tail
}
