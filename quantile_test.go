package peakload

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/stat/distuv"
)

func TestNormalQuantile(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name   string
		rate   float64
		target float64
		want   int
	}{
		{"median is the mean", 2000, 0.5, 2000},
		// z(0.9995) ≈ 3.2905, √2000 ≈ 44.72
		{"high confidence", 2000, 0.9995, 2148},
		{"capped near one", 2500, 0.9999999999, 2800},
		{"exactly one is capped", 2500, 1, 2800},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cfg.NormalQuantile(tt.rate, tt.target)
			if err != nil {
				t.Fatalf("NormalQuantile(%v, %v): %v", tt.rate, tt.target, err)
			}
			if got != tt.want {
				t.Errorf("NormalQuantile(%v, %v) = %d, want %d", tt.rate, tt.target, got, tt.want)
			}
		})
	}
}

func TestNormalQuantile_MatchesClosedForm(t *testing.T) {
	cfg := DefaultConfig()
	for _, p := range []float64{0.9, 0.95, 0.99, 0.9995, 0.999999} {
		for _, rate := range []float64{1001, 2000, 1e5, 3.5e6} {
			z := distuv.UnitNormal.Quantile(p)
			want := int(math.Ceil(rate + z*math.Sqrt(rate)))
			got, err := cfg.NormalQuantile(rate, p)
			if err != nil {
				t.Fatalf("NormalQuantile(%v, %v): %v", rate, p, err)
			}
			if got != want {
				t.Errorf("NormalQuantile(%v, %v) = %d, want %d", rate, p, got, want)
			}
		}
	}
}

func TestNormalQuantile_InvalidInput(t *testing.T) {
	cfg := DefaultConfig()
	if _, err := cfg.NormalQuantile(-5, 0.95); !errors.Is(err, ErrInvalidRate) {
		t.Errorf("negative rate: error = %v, want ErrInvalidRate", err)
	}
	if _, err := cfg.NormalQuantile(2000, 0); !errors.Is(err, ErrInvalidProbability) {
		t.Errorf("zero target: error = %v, want ErrInvalidProbability", err)
	}
}

func TestNormalQuantile_Bounds(t *testing.T) {
	cfg := DefaultConfig()

	// z(1e-300) ≈ -37, and 1001 - 37·√1001 is well below zero.
	got, err := cfg.NormalQuantile(1001, 1e-300)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Errorf("NormalQuantile(1001, 1e-300) = %d, want clamped to 0", got)
	}

	if _, err := cfg.NormalQuantile(1e19, 0.95); !errors.Is(err, ErrInvalidRate) {
		t.Errorf("NormalQuantile(1e19) error = %v, want ErrInvalidRate", err)
	}
	if got, err := cfg.NormalQuantile(1e18, 0.5); err != nil || got != 1e18 {
		t.Errorf("NormalQuantile(1e18, 0.5) = %d, %v; want 1e18", got, err)
	}
}
