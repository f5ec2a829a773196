package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"github.com/alexshd/peakload"
)

// =============================================================================
// ESTIMATE COMMAND
// =============================================================================

func estimateCommand() *cli.Command {
	return &cli.Command{
		Name:  "estimate",
		Usage: "Estimate hour/minute/second peaks for a daily request volume",
		Flags: []cli.Flag{
			&cli.Float64Flag{
				Name:     "daily",
				Aliases:  []string{"d"},
				Usage:    "Expected requests per day",
				Required: true,
			},
			&cli.Float64Flag{
				Name:    "growth",
				Aliases: []string{"g"},
				Value:   0,
				Usage:   "Fractional growth applied to the daily total (0.5 = +50%)",
			},
			&cli.Float64Flag{
				Name:    "prob",
				Aliases: []string{"p"},
				Value:   0.95,
				Usage:   "Target confidence that load stays at or below the peak",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   "table",
				Usage:   "Output format (table, json, markdown)",
			},
			&cli.Float64Flag{
				Name:  "replica-rps",
				Usage: "Requests per second one replica sustains; enables the capacity plan",
			},
			&cli.Float64Flag{
				Name:  "alpha",
				Usage: "USL contention coefficient for the capacity plan",
			},
			&cli.Float64Flag{
				Name:  "beta",
				Usage: "USL coherency coefficient for the capacity plan",
			},
			&cli.StringSliceFlag{
				Name:  "measure",
				Usage: "Observed throughput as REPLICAS=RPS; 3+ counts fit the scaling coefficients",
			},
			&cli.Float64Flag{
				Name:  "headroom",
				Value: 0.2,
				Usage: "Spare capacity on top of the per-second peak",
			},
		},
		Action: runEstimate,
	}
}

func runEstimate(c *cli.Context) error {
	est, err := estimatorFrom(c)
	if err != nil {
		return err
	}

	report, err := est.Estimate(c.Float64("daily"), c.Float64("growth"), c.Float64("prob"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("estimation failed: %v", err), 2)
	}

	scaling, ok, err := scalingFrom(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("capacity plan failed: %v", err), 2)
	}
	var plan *peakload.CapacityPlan
	if ok {
		p, err := peakload.Provision(report, scaling, c.Float64("headroom"))
		if err != nil {
			return cli.Exit(fmt.Sprintf("capacity plan failed: %v", err), 2)
		}
		plan = &p
	}

	w := c.App.Writer
	switch c.String("format") {
	case "json":
		return outputJSON(w, report, plan)
	case "markdown":
		return outputMarkdown(w, report, plan)
	case "table":
		return outputTable(w, report, plan)
	default:
		return cli.Exit(fmt.Sprintf("unknown format %q", c.String("format")), 2)
	}
}

// scalingFrom returns the scaling model for the capacity plan: fitted from
// --measure values when given, else taken from --replica-rps/--alpha/--beta.
// ok is false when neither is set.
func scalingFrom(c *cli.Context) (s peakload.Scaling, ok bool, err error) {
	if raw := c.StringSlice("measure"); len(raw) > 0 {
		ms := make([]peakload.Measurement, 0, len(raw))
		for _, v := range raw {
			m, err := parseMeasurement(v)
			if err != nil {
				return s, false, err
			}
			ms = append(ms, m)
		}
		fit, err := peakload.FitScaling(ms)
		if err != nil {
			return s, false, err
		}
		slog.Info("fitted scaling",
			"replica_rps", fit.ReplicaRPS,
			"alpha", fit.Alpha,
			"beta", fit.Beta,
			"r_squared", fit.RSquared,
		)
		return fit.Scaling, true, nil
	}

	if rps := c.Float64("replica-rps"); rps > 0 {
		return peakload.Scaling{
			ReplicaRPS: rps,
			Alpha:      c.Float64("alpha"),
			Beta:       c.Float64("beta"),
		}, true, nil
	}
	return s, false, nil
}

func parseMeasurement(v string) (peakload.Measurement, error) {
	n, rps, found := strings.Cut(v, "=")
	if !found {
		return peakload.Measurement{}, fmt.Errorf("measurement %q: want REPLICAS=RPS", v)
	}
	replicas, err := strconv.Atoi(strings.TrimSpace(n))
	if err != nil {
		return peakload.Measurement{}, fmt.Errorf("measurement %q: replicas: %w", v, err)
	}
	throughput, err := strconv.ParseFloat(strings.TrimSpace(rps), 64)
	if err != nil {
		return peakload.Measurement{}, fmt.Errorf("measurement %q: rps: %w", v, err)
	}
	return peakload.Measurement{Replicas: replicas, RPS: throughput}, nil
}

// =============================================================================
// PEAK COMMAND
// =============================================================================

func peakCommand() *cli.Command {
	return &cli.Command{
		Name:  "peak",
		Usage: "Peak threshold for a single Poisson rate",
		Flags: []cli.Flag{
			&cli.Float64Flag{
				Name:     "rate",
				Aliases:  []string{"l"},
				Usage:    "Mean arrivals per time unit (λ)",
				Required: true,
			},
			&cli.Float64Flag{
				Name:    "prob",
				Aliases: []string{"p"},
				Value:   0.95,
				Usage:   "Target confidence",
			},
		},
		Action: func(c *cli.Context) error {
			est, err := estimatorFrom(c)
			if err != nil {
				return err
			}
			peak, err := est.PeakLoad(c.Float64("rate"), c.Float64("prob"))
			if err != nil {
				return cli.Exit(err.Error(), 2)
			}
			_, err = fmt.Fprintln(c.App.Writer, peak)
			return err
		},
	}
}

// =============================================================================
// SERIES COMMAND
// =============================================================================

func seriesCommand() *cli.Command {
	return &cli.Command{
		Name:  "series",
		Usage: "Chart data (x/y arrays) for the distribution at a rate, as JSON",
		Flags: []cli.Flag{
			&cli.Float64Flag{
				Name:     "rate",
				Aliases:  []string{"l"},
				Usage:    "Mean arrivals per time unit (λ)",
				Required: true,
			},
			&cli.Float64Flag{
				Name:  "prob",
				Value: 0.99999999,
				Usage: "Drop points with mass at or below 1-prob",
			},
			&cli.IntFlag{
				Name:  "threshold",
				Usage: "Shade the curve up to this count (0 for none)",
			},
			&cli.Float64Flag{
				Name:  "x-coef",
				Value: 1,
				Usage: "Multiplier applied to x values",
			},
			&cli.StringFlag{
				Name:  "title",
				Usage: "Chart title (time unit)",
			},
		},
		Action: func(c *cli.Context) error {
			est, err := estimatorFrom(c)
			if err != nil {
				return err
			}
			opts := peakload.SeriesOptions{
				Title: c.String("title"),
				Prob:  c.Float64("prob"),
				XCoef: c.Float64("x-coef"),
			}
			if t := c.Int("threshold"); t > 0 {
				opts.Threshold = &t
			}
			chart, err := est.Config().Series(c.Float64("rate"), opts)
			if err != nil {
				return cli.Exit(err.Error(), 2)
			}
			return json.NewEncoder(c.App.Writer).Encode(chart)
		},
	}
}

// =============================================================================
// OUTPUT FORMATTERS
// =============================================================================

// JSONOutput is the machine-readable estimate. Averages are fixed-point
// strings so consumers do not see float noise.
type JSONOutput struct {
	TargetProb float64                `json:"target_prob"`
	Total      string                 `json:"total"`
	Average    map[string]string      `json:"average"`
	Peak       peakload.Peaks         `json:"peak"`
	Lambda     peakload.Rates         `json:"lambda"`
	Capacity   *peakload.CapacityPlan `json:"capacity,omitempty"`
}

func newJSONOutput(r peakload.Report, plan *peakload.CapacityPlan) JSONOutput {
	return JSONOutput{
		TargetProb: r.TargetProb,
		Total:      fixed(r.Total, 0),
		Average: map[string]string{
			"per_hour":   fixed(r.Average.PerHour, 2),
			"per_minute": fixed(r.Average.PerMinute, 3),
			"per_second": fixed(r.Average.PerSecond, 4),
		},
		Peak:     r.Peak,
		Lambda:   r.Lambda,
		Capacity: plan,
	}
}

func outputJSON(w io.Writer, r peakload.Report, plan *peakload.CapacityPlan) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(newJSONOutput(r, plan))
}

func outputTable(w io.Writer, r peakload.Report, plan *peakload.CapacityPlan) error {
	var b strings.Builder
	line := strings.Repeat("═", 62)

	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "╔%s╗\n", line)
	fmt.Fprintf(&b, "║  %-60s║\n", "PEAK LOAD ESTIMATE")
	fmt.Fprintf(&b, "╠%s╣\n", line)
	fmt.Fprintf(&b, "║  %-22s%-38s║\n", "Target probability:", fmt.Sprintf("%v", r.TargetProb))
	fmt.Fprintf(&b, "║  %-22s%-38s║\n", "Requests per day:", fixed(r.Total, 0))
	fmt.Fprintf(&b, "╠%s╣\n", line)
	fmt.Fprintf(&b, "║  %-10s%16s%12s%20s  ║\n", "", "average", "peak", "λ (peak basis)")
	fmt.Fprintf(&b, "║  %-10s%16s%12d%20s  ║\n", "hour", fixed(r.Average.PerHour, 2), r.Peak.PerHour, fixed(r.Lambda.PerHour, 2))
	fmt.Fprintf(&b, "║  %-10s%16s%12d%20s  ║\n", "minute", fixed(r.Average.PerMinute, 3), r.Peak.PerMinute, fixed(r.Lambda.PerMinute, 3))
	fmt.Fprintf(&b, "║  %-10s%16s%12d%20s  ║\n", "second", fixed(r.Average.PerSecond, 4), r.Peak.PerSecond, fixed(r.Lambda.PerSecond, 4))

	if plan != nil {
		fmt.Fprintf(&b, "╠%s╣\n", line)
		fmt.Fprintf(&b, "║  %-22s%-38s║\n", "Capacity plan:", fmt.Sprintf("%s (%s risk)", plan.Decision, plan.RiskLevel))
		fmt.Fprintf(&b, "║  %-22s%-38d║\n", "Replicas:", plan.Replicas)
		fmt.Fprintf(&b, "║  %-22s%-38s║\n", "Peak utilization:", fmt.Sprintf("%.0f%%", plan.Utilization*100))
		fmt.Fprintf(&b, "║  %-60s║\n", truncate(plan.Reason, 60))
	}
	fmt.Fprintf(&b, "╚%s╝\n", line)

	_, err := io.WriteString(w, b.String())
	return err
}

func outputMarkdown(w io.Writer, r peakload.Report, plan *peakload.CapacityPlan) error {
	var b strings.Builder
	fmt.Fprintln(&b, "## Peak Load Estimate")
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "Target probability **%v**, %s requests/day.\n", r.TargetProb, fixed(r.Total, 0))
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "| Unit | Average | Peak |")
	fmt.Fprintln(&b, "|------|---------|------|")
	fmt.Fprintf(&b, "| hour | %s | %d |\n", fixed(r.Average.PerHour, 2), r.Peak.PerHour)
	fmt.Fprintf(&b, "| minute | %s | %d |\n", fixed(r.Average.PerMinute, 3), r.Peak.PerMinute)
	fmt.Fprintf(&b, "| second | %s | %d |\n", fixed(r.Average.PerSecond, 4), r.Peak.PerSecond)

	if plan != nil {
		fmt.Fprintln(&b)
		fmt.Fprintf(&b, "**Capacity:** %d replicas, %s (%s risk). %s\n", plan.Replicas, plan.Decision, plan.RiskLevel, plan.Reason)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func fixed(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
