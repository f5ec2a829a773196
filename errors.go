package peakload

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidRate is returned for a negative, NaN or infinite rate.
	ErrInvalidRate = errors.New("invalid rate")

	// ErrInvalidProbability is returned for a target probability outside (0, 1].
	ErrInvalidProbability = errors.New("invalid target probability")

	// ErrInvalidDailyCount is returned for a negative, NaN or infinite daily volume.
	ErrInvalidDailyCount = errors.New("invalid daily count")

	// ErrInvalidGrowth is returned for a growth factor below -1 (or NaN).
	ErrInvalidGrowth = errors.New("invalid growth factor")

	// ErrEmptySupport is returned when the discretized distribution has no buckets.
	ErrEmptySupport = errors.New("empty support")
)

func checkRate(rate float64) error {
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidRate, rate)
	}
	return nil
}

func checkProbability(p float64) error {
	if math.IsNaN(p) || p <= 0 || p > 1 {
		return fmt.Errorf("%w: %v (want 0 < p ≤ 1)", ErrInvalidProbability, p)
	}
	return nil
}
