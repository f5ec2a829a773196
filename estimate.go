package peakload

import (
	"fmt"
	"log/slog"
	"math"
)

// Rates holds average request rates at each granularity.
type Rates struct {
	PerHour   float64 `json:"per_hour"`
	PerMinute float64 `json:"per_minute"`
	PerSecond float64 `json:"per_second"`
}

// Peaks holds provisioning thresholds at each granularity.
type Peaks struct {
	PerHour   int `json:"per_hour"`
	PerMinute int `json:"per_minute"`
	PerSecond int `json:"per_second"`
}

// Report is the result of a multi-granularity estimation.
type Report struct {
	TargetProb float64 `json:"target_prob"`
	Total      float64 `json:"total"`
	Average    Rates   `json:"average"`
	Peak       Peaks   `json:"peak"`

	// Poisson rates the peaks were derived from. Minute and second rates
	// come from the peak of the coarser level, not from the average.
	Lambda Rates `json:"lambda"`
}

// Estimator turns daily volumes into peak-load reports.
// It is immutable and safe for concurrent use.
type Estimator struct {
	cfg    Config
	logger *slog.Logger
}

// NewEstimator validates cfg and returns an Estimator. A nil logger resolves
// to slog.Default() at call time.
func NewEstimator(cfg Config, logger *slog.Logger) (*Estimator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Estimator{cfg: cfg, logger: logger}, nil
}

func (e *Estimator) log() *slog.Logger {
	if e.logger == nil {
		return slog.Default()
	}
	return e.logger
}

// Config returns the estimator's configuration.
func (e *Estimator) Config() Config { return e.cfg }

// PeakLoad returns the provisioning threshold for a single Poisson rate.
//
// Rates above LargeRateThreshold use the closed-form Gaussian quantile;
// smaller rates scan the sampled distribution. A zero rate yields 0.
func (e *Estimator) PeakLoad(rate, target float64) (int, error) {
	if err := checkRate(rate); err != nil {
		return 0, err
	}
	if err := checkProbability(target); err != nil {
		return 0, err
	}
	if rate == 0 {
		return 0, nil
	}

	if rate > e.cfg.LargeRateThreshold {
		peak, err := e.cfg.NormalQuantile(rate, target)
		e.log().Debug("peak load", "regime", "quantile", "lambda", rate, "target", target, "peak", peak)
		return peak, err
	}
	peak, err := e.cfg.FindThreshold(rate, target)
	e.log().Debug("peak load", "regime", "sampled", "lambda", rate, "target", target, "peak", peak)
	return peak, err
}

// Estimate derives average and peak rates for a daily request volume.
//
// The hourly rate assumes PeakWindowShare of the un-grown daily volume falls
// in a PeakWindowHours window. The minute rate is the hourly peak spread over
// 60 minutes and the second rate is the minute peak spread over 60 seconds,
// so peaks compound. Averages use the grown total.
func (e *Estimator) Estimate(daily, growth, target float64) (Report, error) {
	if math.IsNaN(daily) || math.IsInf(daily, 0) || daily < 0 {
		return Report{}, fmt.Errorf("%w: %v", ErrInvalidDailyCount, daily)
	}
	if math.IsNaN(growth) || math.IsInf(growth, 0) || growth < -1 {
		return Report{}, fmt.Errorf("%w: %v (want ≥ -1)", ErrInvalidGrowth, growth)
	}
	if err := checkProbability(target); err != nil {
		return Report{}, err
	}

	total := daily * (1 + growth)
	r := Report{
		TargetProb: target,
		Total:      total,
		Average: Rates{
			PerHour:   total / 24,
			PerMinute: total / (24 * 60),
			PerSecond: total / (24 * 60 * 60),
		},
	}

	var err error
	r.Lambda.PerHour = daily * e.cfg.PeakWindowShare / e.cfg.PeakWindowHours
	if r.Peak.PerHour, err = e.PeakLoad(r.Lambda.PerHour, target); err != nil {
		return Report{}, fmt.Errorf("hourly peak: %w", err)
	}

	r.Lambda.PerMinute = float64(r.Peak.PerHour) / 60
	if r.Peak.PerMinute, err = e.PeakLoad(r.Lambda.PerMinute, target); err != nil {
		return Report{}, fmt.Errorf("minute peak: %w", err)
	}

	r.Lambda.PerSecond = float64(r.Peak.PerMinute) / 60
	if r.Peak.PerSecond, err = e.PeakLoad(r.Lambda.PerSecond, target); err != nil {
		return Report{}, fmt.Errorf("second peak: %w", err)
	}

	e.log().Debug("estimate",
		"daily", daily,
		"growth", growth,
		"target", target,
		"peak_hour", r.Peak.PerHour,
		"peak_minute", r.Peak.PerMinute,
		"peak_second", r.Peak.PerSecond,
	)
	return r, nil
}

// Options carries the optional arguments of an estimation. Zero fields take
// their defaults.
type Options struct {
	Growth float64 // Fractional growth applied to the total (default 0)
	Prob   float64 // Target confidence (default 0.95)
}

func (o Options) withDefaults() Options {
	if o.Prob == 0 {
		o.Prob = DefaultOptions().Prob
	}
	return o
}

// DefaultOptions returns zero growth at 95% confidence.
func DefaultOptions() Options {
	return Options{Growth: 0, Prob: 0.95}
}

var defaultEstimator = &Estimator{cfg: DefaultConfig()}

// PeakLoad returns the provisioning threshold for rate using DefaultConfig.
func PeakLoad(rate, target float64) (int, error) {
	return defaultEstimator.PeakLoad(rate, target)
}

// Estimate runs a default-configured estimation of a daily volume.
func Estimate(daily float64, opts Options) (Report, error) {
	opts = opts.withDefaults()
	return defaultEstimator.Estimate(daily, opts.Growth, opts.Prob)
}
