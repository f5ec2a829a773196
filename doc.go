// Package peakload estimates the peak request load a service must be
// provisioned for.
//
// # Overview
//
// Requests arriving independently at a mean rate λ follow a Poisson
// distribution. Provisioning for the mean fails about half the time;
// peakload answers the question "what count per time unit will not be
// exceeded with probability p?" and chains the answer from hours down to
// seconds.
//
// # Architecture
//
// The package components:
//
//   - poisson     - Bounded and Normal mass evaluators
//   - sampling    - Power-law sampling policy and the sample grid
//   - discretize  - Collapse of real-valued samples into integer buckets
//   - threshold   - Cumulative scan with relaxed right-tail exits
//   - quantile    - Closed-form Gaussian threshold for large rates
//   - estimate    - PeakLoad dispatcher and the hour/minute/second Estimate
//   - series      - Chart data for each granularity
//   - capacity    - USL replica sizing from a report's per-second peak
//   - fit         - USL coefficients from measured throughput
//   - assertions  - Test helpers for estimator properties
//
// # Quick Start
//
//	r, err := peakload.Estimate(22050, peakload.Options{Prob: 0.9995})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("Peak per hour:   %d\n", r.Peak.PerHour)   // 1654
//	fmt.Printf("Peak per minute: %d\n", r.Peak.PerMinute) // 48
//	fmt.Printf("Peak per second: %d\n", r.Peak.PerSecond) // 5
//
// # Regimes
//
// Up to LargeRateThreshold (1000 by default) the distribution is sampled on
// a grid whose density follows two power laws in λ, collapsed to integer
// buckets and scanned for the first count whose cumulative mass reaches p.
// Above it the Gaussian approximation N(λ, √λ) is accurate and the
// threshold is simply
//
//	⌈λ + z_p·√λ⌉
//
// # Compounding
//
// The hourly rate assumes 13.83% of the day's traffic lands in a two-hour
// window. The minute rate is the hourly peak divided by 60, and the second
// rate is the minute peak divided by 60. Bursts therefore compound: the
// second-level peak already carries the hour- and minute-level headroom.
//
// # Capacity
//
// Given how one replica scales, Provision turns the per-second peak into a
// replica count using the Universal Scalability Law:
//
//	C(N) = λN / (1 + α(N-1) + βN(N-1))
//
// FitScaling recovers λ, α and β from load-test measurements.
//
// # Testing
//
//	func TestMyConfig(t *testing.T) {
//	    e, _ := peakload.NewEstimator(myConfig, nil)
//	    cfg := peakload.DefaultAssertionConfig()
//
//	    peakload.AssertMonotonicInTarget(t, e, 500, cfg)
//	    peakload.AssertContinuousAtThreshold(t, e, cfg)
//	}
package peakload
