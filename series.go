package peakload

import "fmt"

// Chart is the point data a renderer needs to plot one granularity: the
// sampled distribution as x/y arrays and, when a threshold is set, the
// prefix of the curve to shade up to it.
type Chart struct {
	Title     string    `json:"title"`
	X         []float64 `json:"x"`
	Y         []float64 `json:"y"`
	Threshold *float64  `json:"threshold,omitempty"`
	ShadedX   []float64 `json:"shaded_x,omitempty"`
	ShadedY   []float64 `json:"shaded_y,omitempty"`
}

// SeriesOptions controls Series.
type SeriesOptions struct {
	Title string
	// Points with mass at or below 1-Prob are left out. Default 0.99999999.
	Prob float64
	// Multiplier applied to x values and the threshold. Default 1.
	XCoef float64
	// Threshold to shade up to; nil for none.
	Threshold *int
}

func (o SeriesOptions) withDefaults() SeriesOptions {
	if o.Prob == 0 {
		o.Prob = 0.99999999
	}
	if o.XCoef == 0 {
		o.XCoef = 1
	}
	return o
}

// Series builds the chart data for rate. Negligible points are trimmed so
// the plotted range tracks the visible mass.
func (c Config) Series(rate float64, opts SeriesOptions) (Chart, error) {
	if err := checkRate(rate); err != nil {
		return Chart{}, err
	}
	opts = opts.withDefaults()
	if err := checkProbability(opts.Prob); err != nil {
		return Chart{}, err
	}

	ch := Chart{Title: opts.Title}
	if rate > 0 {
		minP := 1 - opts.Prob
		c.Grid(rate).each(rate, func(x, p float64) {
			if p > minP {
				ch.X = append(ch.X, x*opts.XCoef)
				ch.Y = append(ch.Y, p)
			}
		})
	}

	if opts.Threshold != nil && *opts.Threshold > 0 {
		t := float64(*opts.Threshold) * opts.XCoef
		ch.Threshold = &t
		ch.Title = fmt.Sprintf("Peak per %s: %v", opts.Title, t)
		for i, x := range ch.X {
			if x > t {
				break
			}
			ch.ShadedX = append(ch.ShadedX, x)
			ch.ShadedY = append(ch.ShadedY, ch.Y[i])
		}
	}
	return ch, nil
}

// Series builds chart data for rate with DefaultConfig.
func Series(rate float64, opts SeriesOptions) (Chart, error) {
	return DefaultConfig().Series(rate, opts)
}

// Charts returns the hour, minute and second charts for a report, each
// plotted at the rate its peak was derived from and shaded up to that peak.
func (c Config) Charts(r Report) ([]Chart, error) {
	levels := []struct {
		title string
		rate  float64
		peak  int
	}{
		{"Hour", r.Lambda.PerHour, r.Peak.PerHour},
		{"Minute", r.Lambda.PerMinute, r.Peak.PerMinute},
		{"Second", r.Lambda.PerSecond, r.Peak.PerSecond},
	}

	charts := make([]Chart, 0, len(levels))
	for _, l := range levels {
		peak := l.peak
		ch, err := c.Series(l.rate, SeriesOptions{Title: l.title, Threshold: &peak})
		if err != nil {
			return nil, fmt.Errorf("%s chart: %w", l.title, err)
		}
		charts = append(charts, ch)
	}
	return charts, nil
}

// Charts returns the per-granularity charts for a report.
func (e *Estimator) Charts(r Report) ([]Chart, error) {
	return e.cfg.Charts(r)
}
