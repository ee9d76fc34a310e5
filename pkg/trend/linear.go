package trend

// Linear is an incremental least-squares line fit over (time, value)
// samples, kept per series as a cheap drift baseline next to the
// polynomial approximator.
type Linear struct {
	Slope     float64
	Intercept float64
	n         float64
	sumX      float64
	sumY      float64
	sumXY     float64
	sumXX     float64
}

func NewLinear() *Linear {
	return &Linear{}
}

func (l *Linear) Train(times, values []float64) {
	l.n = float64(len(times))
	l.sumX, l.sumY, l.sumXY, l.sumXX = 0, 0, 0, 0

	for i, x := range times {
		y := values[i]

		l.sumX += x
		l.sumY += y
		l.sumXY += x * y
		l.sumXX += x * x
	}
	l.solve()
}

func (l *Linear) Update(t, v float64) {
	l.n += 1
	l.sumX += t
	l.sumY += v
	l.sumXY += t * v
	l.sumXX += t * t

	l.solve()
}

func (l *Linear) solve() {
	denominator := l.n*l.sumXX - l.sumX*l.sumX
	if denominator == 0 {
		l.Slope = 0
		l.Intercept = 0
	} else {
		l.Slope = (l.n*l.sumXY - l.sumX*l.sumY) / denominator
		l.Intercept = (l.sumY - l.Slope*l.sumX) / l.n
	}
}

func (l *Linear) Predict(t float64) float64 {
	return l.Slope*t + l.Intercept
}

func (l *Linear) Count() int {
	return int(l.n)
}
