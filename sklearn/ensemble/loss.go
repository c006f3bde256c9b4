package ensemble

import "math"

// binomialDeviance is the log loss of a binary classifier expressed on the
// raw (log-odds) scale.
type binomialDeviance struct{}

// initScore returns log(p / (1 - p)) for the positive class prior p.
func (binomialDeviance) initScore(y []float64) float64 {
	pos := 0.0
	for _, v := range y {
		pos += v
	}
	p := pos / float64(len(y))
	return math.Log(p / (1 - p))
}

// negativeGradient is the pseudo-residual y - sigmoid(raw).
func (binomialDeviance) negativeGradient(y, raw float64) float64 {
	return y - sigmoid(raw)
}

// leafValue performs one Newton step for the samples of a leaf:
// sum(residual) / sum(p * (1 - p)).
func (binomialDeviance) leafValue(residuals, y []float64, indices []int) float64 {
	num, den := 0.0, 0.0
	for _, i := range indices {
		r := residuals[i]
		num += r
		p := y[i] - r
		den += p * (1 - p)
	}
	if math.Abs(den) < 1e-150 {
		return 0
	}
	return num / den
}

// loss returns the mean deviance of raw scores against labels.
func (binomialDeviance) loss(y, raw []float64) float64 {
	sum := 0.0
	for i := range y {
		// log(1 + exp(raw)) - y*raw, computed without overflow
		sum += logAddExp(0, raw[i]) - y[i]*raw[i]
	}
	return sum / float64(len(y))
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

func logAddExp(a, b float64) float64 {
	m := math.Max(a, b)
	return m + math.Log(math.Exp(a-m)+math.Exp(b-m))
}
