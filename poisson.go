package peakload

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// MassFunc maps (λ, k) to a probability mass. Both evaluators below satisfy
// it; neither is defined for λ ≤ 0.
type MassFunc func(rate, k float64) float64

// BoundedMass approximates the Poisson mass at k with a Gaussian-shaped
// curve, clamped to 1:
//
//	min(1, exp(-(k-λ)²/(2λ)) / sqrt(2πλ))
//
// For small λ the unclamped curve exceeds 1 near the mean; the clamp keeps
// the result a valid probability. Used at or below the large-rate threshold.
func BoundedMass(rate, k float64) float64 {
	d := k - rate
	return math.Min(1, math.Exp(-(d*d)/(2*rate))/math.Sqrt(2*math.Pi*rate))
}

// NormalMass is the density of Normal(λ, √λ) at k.
//
// Above the large-rate threshold Poisson(λ) ≈ Normal(λ, λ), and the clamp in
// BoundedMass would only distort the tail.
func NormalMass(rate, k float64) float64 {
	return distuv.Normal{Mu: rate, Sigma: math.Sqrt(rate)}.Prob(k)
}
