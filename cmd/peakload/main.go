// Command peakload estimates the peak request load a service must be
// provisioned for, from a daily request volume and a target confidence.
//
// Usage:
//
//	peakload estimate --daily 22050 --prob 0.9995
//	peakload peak --rate 1500 --prob 0.99
//	peakload series --rate 27.5 --threshold 48
//	peakload serve --addr :8080
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/urfave/cli/v2"

	"github.com/alexshd/peakload"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	defaults := peakload.DefaultConfig()

	return &cli.App{
		Name:    "peakload",
		Usage:   "Poisson peak-load estimation for capacity planning",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"PEAKLOAD_LOG_LEVEL"},
			},
			&cli.Float64Flag{
				Name:    "large-rate-threshold",
				Value:   defaults.LargeRateThreshold,
				Usage:   "Rates above this use the Gaussian quantile instead of sampling",
				EnvVars: []string{"PEAKLOAD_LARGE_RATE_THRESHOLD"},
			},
			&cli.Float64Flag{
				Name:    "peak-window-share",
				Value:   defaults.PeakWindowShare,
				Usage:   "Share of daily traffic inside the busiest window",
				EnvVars: []string{"PEAKLOAD_PEAK_WINDOW_SHARE"},
			},
			&cli.Float64Flag{
				Name:    "peak-window-hours",
				Value:   defaults.PeakWindowHours,
				Usage:   "Length of the busiest window in hours",
				EnvVars: []string{"PEAKLOAD_PEAK_WINDOW_HOURS"},
			},
		},
		Before: func(c *cli.Context) error {
			logger, err := newLogger(c.App.ErrWriter, c.String("log-level"))
			if err != nil {
				return cli.Exit(err.Error(), 2)
			}
			slog.SetDefault(logger)
			return nil
		},
		Commands: []*cli.Command{
			estimateCommand(),
			peakCommand(),
			seriesCommand(),
			serveCommand(),
		},
	}
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      lvl,
		TimeFormat: time.TimeOnly,
	})), nil
}

// estimatorFrom builds an Estimator from the global flags.
func estimatorFrom(c *cli.Context) (*peakload.Estimator, error) {
	cfg := peakload.DefaultConfig()
	cfg.LargeRateThreshold = c.Float64("large-rate-threshold")
	cfg.PeakWindowShare = c.Float64("peak-window-share")
	cfg.PeakWindowHours = c.Float64("peak-window-hours")

	est, err := peakload.NewEstimator(cfg, slog.Default())
	if err != nil {
		return nil, cli.Exit(err.Error(), 2)
	}
	return est, nil
}
