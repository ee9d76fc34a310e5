package approx

// Add returns the sum of two approximations with compatible interval
// times. The remainder of the longer operand is carried over as is.
func (a *Approximator) Add(b *Approximator) (*Approximator, error) {
	n := len(a.deltas)
	if len(b.deltas) < n {
		n = len(b.deltas)
	}

	res := &Approximator{deltas: make([]Delta, 0, len(a.deltas)+len(b.deltas)-n)}
	for i := 0; i < n; i++ {
		if a.deltas[i].Time != b.deltas[i].Time {
			return nil, ErrTimeMismatch
		}
		res.deltas = append(res.deltas, Delta{
			Value: a.deltas[i].Value + b.deltas[i].Value,
			Time:  a.deltas[i].Time,
		})
	}

	rem := a.deltas
	if len(b.deltas) > len(a.deltas) {
		rem = b.deltas
	}
	res.deltas = append(res.deltas, rem[n:]...)
	return res, nil
}

// Neg returns the negated approximation.
func (a *Approximator) Neg() *Approximator {
	res := &Approximator{deltas: make([]Delta, len(a.deltas))}
	for i, d := range a.deltas {
		res.deltas[i] = Delta{Value: -d.Value, Time: d.Time}
	}
	return res
}

// Sub returns the difference between approximations with compatible
// interval times.
func (a *Approximator) Sub(b *Approximator) (*Approximator, error) {
	return a.Add(b.Neg())
}

// AlignTimes re-expresses the deltas over the leading interval times of
// ref via successive extrapolation, so the two objects become
// combinable with Add/Sub. ref must track at least as many deltas.
// Destructive.
func (a *Approximator) AlignTimes(ref *Approximator) error {
	n := len(a.deltas)
	if n == 0 {
		return ErrNoSamples
	}
	if ref.Rank() < n {
		return ErrTimeMismatch
	}
	// Extrapolating at ref times oldest-first leaves the time vector
	// equal to ref's leading times
	for i := n - 1; i >= 0; i-- {
		if _, err := a.Extrapolate(ref.deltas[i].Time); err != nil {
			return err
		}
	}
	return nil
}
