// Package polyfit does batch least-squares polynomial fitting, used by
// the diagnostics path to refit a window of history and measure how far
// the incremental approximation drifted.
package polyfit

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

var ErrTooFewSamples = errors.New("polyfit: need more samples than the degree")

// Fit fits the given series of x and y into a polynomial of the given
// degree. The output vector holds the coefficients of the corresponding
// powers of x: c[0] + c[1]x + c[2]x^2 + ...
func Fit(x, y []float64, degree int) ([]float64, error) {
	if len(x) != len(y) {
		return nil, errors.New("polyfit: x and y length mismatch")
	}
	if len(x) <= degree {
		return nil, ErrTooFewSamples
	}

	a := vandermonde(x, degree)
	b := mat.NewDense(len(y), 1, y)
	c := mat.NewDense(degree+1, 1, nil)

	qr := new(mat.QR)
	qr.Factorize(a)

	if err := qr.SolveTo(c, false, b); err != nil {
		return nil, err
	}

	v := c.ColView(0)
	coefs := make([]float64, v.Len())
	for i := 0; i < v.Len(); i++ {
		coefs[i] = v.AtVec(i)
	}
	return coefs, nil
}

func vandermonde(a []float64, degree int) *mat.Dense {
	x := mat.NewDense(len(a), degree+1, nil)
	for i := range a {
		for j, p := 0, 1.; j <= degree; j, p = j+1, p*a[i] {
			x.Set(i, j, p)
		}
	}
	return x
}

// Eval evaluates the polynomial at x using Horner's scheme.
func Eval(coefs []float64, x float64) float64 {
	v := 0.0
	for i := len(coefs) - 1; i >= 0; i-- {
		v = v*x + coefs[i]
	}
	return v
}

// RMSE returns the root-mean-square residual of the fit over the given
// samples.
func RMSE(coefs []float64, x, y []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	sum := 0.0
	for i := range x {
		d := Eval(coefs, x[i]) - y[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(x)))
}
