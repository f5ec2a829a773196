package peakload

import (
	"math"
	"testing"
)

// AssertionConfig contains the tolerances used by the Assert helpers.
type AssertionConfig struct {
	// Target probabilities swept by the monotonicity and boundary checks.
	Targets []float64

	// Largest allowed jump between PeakLoad just below and just above the
	// large-rate threshold, in standard deviations of the threshold rate.
	MaxBoundarySigmas float64

	// Offset above the threshold used for the boundary check.
	BoundaryEpsilon float64

	// Repetitions for the determinism check.
	Runs int
}

// DefaultAssertionConfig returns the tolerances used by this package's tests.
func DefaultAssertionConfig() AssertionConfig {
	return AssertionConfig{
		Targets:           []float64{0.5, 0.9, 0.95, 0.99, 0.999, 0.9995, 0.9999},
		MaxBoundarySigmas: 2,
		BoundaryEpsilon:   0.0001,
		Runs:              5,
	}
}

// AssertBucketsOrdered verifies bucket keys are strictly increasing (hence
// unique) and every mass lies in [0, 1].
func AssertBucketsOrdered(t *testing.T, buckets []Bucket) {
	t.Helper()

	for i, b := range buckets {
		if b.P < 0 || b.P > 1 || math.IsNaN(b.P) {
			t.Errorf("bucket %d (k=%d) has mass %v outside [0, 1]", i, b.K, b.P)
		}
		if i > 0 && b.K <= buckets[i-1].K {
			t.Errorf("bucket keys not strictly increasing at %d: %d after %d", i, b.K, buckets[i-1].K)
		}
	}
}

// AssertMonotonicInTarget verifies PeakLoad never decreases as the target
// probability rises.
func AssertMonotonicInTarget(t *testing.T, e *Estimator, rate float64, cfg AssertionConfig) {
	t.Helper()

	prev := -1
	for _, p := range cfg.Targets {
		peak, err := e.PeakLoad(rate, p)
		if err != nil {
			t.Fatalf("PeakLoad(%v, %v): %v", rate, p, err)
		}
		if peak < prev {
			t.Errorf("PeakLoad(%v, %v) = %d, below %d at a lower target", rate, p, peak, prev)
		}
		prev = peak
	}
}

// AssertDeterministic verifies repeated PeakLoad calls agree.
func AssertDeterministic(t *testing.T, e *Estimator, rate, target float64, cfg AssertionConfig) {
	t.Helper()

	first, err := e.PeakLoad(rate, target)
	if err != nil {
		t.Fatalf("PeakLoad(%v, %v): %v", rate, target, err)
	}
	for i := 1; i < cfg.Runs; i++ {
		got, err := e.PeakLoad(rate, target)
		if err != nil {
			t.Fatalf("PeakLoad(%v, %v) run %d: %v", rate, target, i, err)
		}
		if got != first {
			t.Errorf("PeakLoad(%v, %v) run %d = %d, first run = %d", rate, target, i, got, first)
		}
	}
}

// AssertContinuousAtThreshold verifies the regime switch at the large-rate
// threshold does not make PeakLoad jump by more than MaxBoundarySigmas·√λ.
func AssertContinuousAtThreshold(t *testing.T, e *Estimator, cfg AssertionConfig) {
	t.Helper()

	rate := e.Config().LargeRateThreshold
	limit := cfg.MaxBoundarySigmas * math.Sqrt(rate)

	for _, p := range cfg.Targets {
		below, err := e.PeakLoad(rate, p)
		if err != nil {
			t.Fatalf("PeakLoad(%v, %v): %v", rate, p, err)
		}
		above, err := e.PeakLoad(rate+cfg.BoundaryEpsilon, p)
		if err != nil {
			t.Fatalf("PeakLoad(%v, %v): %v", rate+cfg.BoundaryEpsilon, p, err)
		}
		if jump := math.Abs(float64(above - below)); jump > limit {
			t.Errorf("p=%v: regime switch jumps %v (sampled %d, quantile %d), limit %.1f",
				p, jump, below, above, limit)
		}
		t.Logf("p=%v: sampled %d, quantile %d", p, below, above)
	}
}

// PrintReport logs a report in the layout of the CLI table.
func PrintReport(t *testing.T, r Report) {
	t.Helper()

	t.Logf("Target probability: %v", r.TargetProb)
	t.Logf("Total per day:      %.0f", r.Total)
	t.Logf("%-8s %14s %8s %12s", "unit", "average", "peak", "lambda")
	t.Logf("%-8s %14.3f %8d %12.3f", "hour", r.Average.PerHour, r.Peak.PerHour, r.Lambda.PerHour)
	t.Logf("%-8s %14.3f %8d %12.3f", "minute", r.Average.PerMinute, r.Peak.PerMinute, r.Lambda.PerMinute)
	t.Logf("%-8s %14.3f %8d %12.3f", "second", r.Average.PerSecond, r.Peak.PerSecond, r.Lambda.PerSecond)
}
