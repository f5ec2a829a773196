package peakload

import "fmt"

// FindThreshold scans the discretized distribution for rate and returns the
// smallest bucket key whose preceding accumulated mass reaches target.
//
// Two early exits stop the scan once it is past the mean, where the
// remaining buckets form a vanishing right tail:
//   - the bucket's mass is below (1-target)·TailRelax and the accumulated
//     mass already exceeds TailMassFactor times it;
//   - mass has accumulated and the bucket's mass is exactly zero.
//
// If nothing fires the last key is returned, accepting under-coverage.
// The rate must be positive and at or below LargeRateThreshold for the
// sampled grid to produce buckets; otherwise ErrEmptySupport is returned.
func (c Config) FindThreshold(rate, target float64) (int, error) {
	if err := checkRate(rate); err != nil {
		return 0, err
	}
	if err := checkProbability(target); err != nil {
		return 0, err
	}
	if rate == 0 {
		return 0, nil
	}

	buckets := c.Buckets(rate)
	if len(buckets) == 0 {
		return 0, fmt.Errorf("%w: rate %v produced no buckets", ErrEmptySupport, rate)
	}
	return c.scan(buckets, rate, target), nil
}

func (c Config) scan(buckets []Bucket, rate, target float64) int {
	relaxed := (1 - target) * c.TailRelax

	var cum float64
	for _, b := range buckets {
		if cum >= target {
			return b.K
		}
		if float64(b.K) >= rate {
			if cum > b.P*c.TailMassFactor && b.P < relaxed {
				return b.K
			}
			if cum > 0 && b.P == 0 {
				return b.K
			}
		}
		cum += b.P
	}
	return buckets[len(buckets)-1].K
}
