package approx

// MakeDerivs collapses the mean intervals so that every delta becomes a
// true derivative (divided by rank!) taken at the given moment.
// Destructive.
func (a *Approximator) MakeDerivs(t float64) error {
	if len(a.deltas) == 0 {
		return ErrNoSamples
	}
	// Each extrapolation pins one more interval start to t
	for i := range a.deltas {
		if a.deltas[i].Time != t {
			if _, err := a.Extrapolate(t); err != nil {
				return err
			}
		}
	}
	return nil
}

// Differentiate shifts the delta vector down so it describes the
// derivative polynomial, with derivatives taken at the given moment.
// Destructive.
func (a *Approximator) Differentiate(t float64) error {
	if err := a.MakeDerivs(t); err != nil {
		return err
	}
	deltas := make([]Delta, len(a.deltas)-1)
	for i, d := range a.deltas[1:] {
		deltas[i] = Delta{Value: d.Value * float64(i+1), Time: d.Time}
	}
	a.deltas = deltas
	return nil
}

// Integrate shifts the delta vector up so it describes the
// antiderivative polynomial with the given value at the given moment.
// Destructive.
func (a *Approximator) Integrate(v0, t float64) error {
	if err := a.MakeDerivs(t); err != nil {
		return err
	}
	deltas := make([]Delta, len(a.deltas)+1)
	deltas[0] = Delta{Value: v0, Time: a.deltas[0].Time}
	for i, d := range a.deltas {
		deltas[i+1] = Delta{Value: d.Value / float64(i+1), Time: d.Time}
	}
	a.deltas = deltas
	return nil
}

// Coefs returns power-basis polynomial coefficients around the moment
// at: value(x) = c[0] + c[1](x-at) + c[2](x-at)^2 + ... Destructive.
func (a *Approximator) Coefs(at float64) ([]float64, error) {
	if err := a.MakeDerivs(at); err != nil {
		return nil, err
	}
	coefs := make([]float64, len(a.deltas))
	for i, d := range a.deltas {
		coefs[i] = d.Value
	}
	return coefs, nil
}

// SetCoefs replaces the state with the polynomial given by power-basis
// coefficients around the moment at.
func (a *Approximator) SetCoefs(coefs []float64, at float64) {
	a.deltas = make([]Delta, len(coefs))
	for i, c := range coefs {
		a.deltas[i] = Delta{Value: c, Time: at}
	}
}
