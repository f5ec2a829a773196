package peakload

import "math"

// SamplePoint is one evaluated abscissa of the sampled distribution.
// X may be fractional when the sampling step is below one request.
type SamplePoint struct {
	X float64 `json:"x"`
	P float64 `json:"p"`
}

// Grid describes which abscissas are evaluated for a rate and with which
// evaluator. Abscissas are i·Step for i in [0, Count).
type Grid struct {
	Mass  MassFunc
	Step  float64
	Count int
}

// Grid picks the sampling grid for rate.
//
// Above LargeRateThreshold every integer up to λ + TailSigmas·√λ is a
// candidate, strided by max(1, floor(sqrt(λ/LargeRateThreshold))) so the
// number of evaluations grows sublinearly in λ. Otherwise the two power-law
// fits choose a fractional grid whose density tracks the Poisson spread.
//
// Either way Count never exceeds MaxSamples: large rates widen the stride,
// tiny rates keep the fitted step and truncate the count.
func (c Config) Grid(rate float64) Grid {
	limit := float64(c.MaxSamples)

	if rate > c.LargeRateThreshold {
		end := math.Floor(rate + c.TailSigmas*math.Sqrt(rate))
		stride := math.Max(1, math.Floor(math.Sqrt(rate/c.LargeRateThreshold)))
		if end/stride > limit {
			stride = math.Ceil(end / limit)
		}
		return Grid{
			Mass:  NormalMass,
			Step:  stride,
			Count: int(math.Ceil(end / stride)),
		}
	}

	count := c.SampleCount.At(rate)
	if !(count < limit) {
		count = limit
	}
	return Grid{
		Mass:  BoundedMass,
		Step:  c.SampleStep.At(rate),
		Count: int(count),
	}
}

// each evaluates the grid in increasing abscissa order.
func (g Grid) each(rate float64, fn func(x, p float64)) {
	for i := 0; i < g.Count; i++ {
		x := float64(i) * g.Step
		fn(x, g.Mass(rate, x))
	}
}

// SamplePoints evaluates the grid for rate and returns the points in order.
// Rate must be positive.
func (c Config) SamplePoints(rate float64) []SamplePoint {
	g := c.Grid(rate)
	points := make([]SamplePoint, 0, g.Count)
	g.each(rate, func(x, p float64) {
		points = append(points, SamplePoint{X: x, P: p})
	})
	return points
}

// SamplePoints evaluates the default sampling grid for rate.
func SamplePoints(rate float64) []SamplePoint {
	return DefaultConfig().SamplePoints(rate)
}
