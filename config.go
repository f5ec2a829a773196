package peakload

import (
	"fmt"
	"math"
)

// PowerLaw is an empirically fitted curve of the form exp(A·ln(x) + B).
//
// The sampling policy uses two of these: one for the number of samples and
// one for the spacing between them. The constants come from calibrating the
// grid against the effective support width of BoundedMass; treat them as
// fixed unless the accuracy/performance tradeoff changes.
type PowerLaw struct {
	A float64 // Exponent applied to ln(x)
	B float64 // Intercept
}

// At evaluates the curve at x (x > 0).
func (p PowerLaw) At(x float64) float64 {
	return math.Exp(p.A*math.Log(x) + p.B)
}

// Config holds the tunable knobs of the estimator.
type Config struct {
	// Rates strictly above this use the Gaussian regime (NormalMass sampling
	// and the closed-form quantile). At or below it the sampled Poisson mass
	// is scanned.
	LargeRateThreshold float64

	// Share of the daily volume that falls inside the busiest window, and
	// the window length in hours. 13.83% of requests land in a two-hour
	// afternoon window.
	PeakWindowShare float64
	PeakWindowHours float64

	// Large-rate sampling covers the mean plus this many standard deviations.
	TailSigmas float64

	// Sampling grid for small rates: count and spacing as functions of λ.
	SampleCount PowerLaw
	SampleStep  PowerLaw

	// Upper bound on evaluated abscissas per rate. SampleCount diverges as
	// λ approaches 0, and large rates widen their stride to stay under it.
	MaxSamples int

	// Threshold search early exit: a bucket is treated as negligible tail
	// when its mass is below (1-target)·TailRelax and the accumulated mass
	// exceeds TailMassFactor times it.
	TailRelax      float64
	TailMassFactor float64

	// Quantile shortcut: z is capped at QuantileCap when the target
	// probability exceeds QuantileCapProb.
	QuantileCap     float64
	QuantileCapProb float64
}

// DefaultConfig returns the calibrated defaults.
func DefaultConfig() Config {
	return Config{
		LargeRateThreshold: 1000,
		PeakWindowShare:    0.1383,
		PeakWindowHours:    2,
		TailSigmas:         6,
		SampleCount:        PowerLaw{A: -0.24, B: 8.42},
		SampleStep:         PowerLaw{A: 0.41, B: -2.51},
		MaxSamples:         1 << 17,
		TailRelax:          0.1,
		TailMassFactor:     10,
		QuantileCap:        6,
		QuantileCapProb:    0.999999999,
	}
}

// Validate reports whether the configuration can drive an estimation.
func (c Config) Validate() error {
	if !(c.LargeRateThreshold > 0) {
		return fmt.Errorf("large rate threshold must be positive, got %v", c.LargeRateThreshold)
	}
	if !(c.PeakWindowShare > 0 && c.PeakWindowShare <= 1) {
		return fmt.Errorf("peak window share must be in (0, 1], got %v", c.PeakWindowShare)
	}
	if !(c.PeakWindowHours > 0 && c.PeakWindowHours <= 24) {
		return fmt.Errorf("peak window hours must be in (0, 24], got %v", c.PeakWindowHours)
	}
	if !(c.TailSigmas > 0) {
		return fmt.Errorf("tail sigmas must be positive, got %v", c.TailSigmas)
	}
	if c.MaxSamples <= 0 {
		return fmt.Errorf("max samples must be positive, got %d", c.MaxSamples)
	}
	if !(c.TailRelax >= 0) || !(c.TailMassFactor >= 0) {
		return fmt.Errorf("tail heuristics must be non-negative (relax=%v, factor=%v)", c.TailRelax, c.TailMassFactor)
	}
	if !(c.QuantileCap > 0) {
		return fmt.Errorf("quantile cap must be positive, got %v", c.QuantileCap)
	}
	return nil
}
