package peakload

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// NormalQuantile returns ceil(λ + z·√λ) where z is the standard normal
// quantile at target. Targets above QuantileCapProb use z = QuantileCap,
// since the quantile diverges as target approaches 1. Targets near 0 push
// the result below zero; it is clamped to 0.
func (c Config) NormalQuantile(rate, target float64) (int, error) {
	if err := checkRate(rate); err != nil {
		return 0, err
	}
	if err := checkProbability(target); err != nil {
		return 0, err
	}

	v := math.Ceil(rate + c.z(target)*math.Sqrt(rate))
	switch {
	case v <= 0:
		return 0, nil
	case v >= math.MaxInt:
		return 0, fmt.Errorf("%w: threshold for %v does not fit in an int", ErrInvalidRate, rate)
	}
	return int(v), nil
}

func (c Config) z(target float64) float64 {
	if target > c.QuantileCapProb {
		return c.QuantileCap
	}
	return distuv.UnitNormal.Quantile(target)
}
