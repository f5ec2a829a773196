package peakload

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Measurement is an observed throughput at a replica count, typically from a
// load test.
type Measurement struct {
	Replicas int     `json:"replicas"`
	RPS      float64 `json:"rps"`
}

// Fit is a Scaling recovered from measurements, with the R² of the fitted
// throughput curve against the observed one.
type Fit struct {
	Scaling
	RSquared float64 `json:"r_squared"`
}

// FitScaling estimates USL coefficients from measured throughput.
//
// The law is linear after rearranging:
//
//	N/C(N) = 1/λ + (α/λ)(N-1) + (β/λ)N(N-1)
//
// so the three coefficients come from an ordinary least-squares solve.
// Noise can push α or β below zero; the offending term is dropped and the
// remaining ones are refit.
func FitScaling(ms []Measurement) (Fit, error) {
	pts := make([]Measurement, 0, len(ms))
	distinct := make(map[int]bool)
	for _, m := range ms {
		if m.Replicas <= 0 || !(m.RPS > 0) || math.IsInf(m.RPS, 0) {
			return Fit{}, fmt.Errorf("%w: measurement %+v", ErrInvalidScaling, m)
		}
		pts = append(pts, m)
		distinct[m.Replicas] = true
	}
	if len(distinct) < 3 {
		return Fit{}, fmt.Errorf("%w: need measurements at 3 or more replica counts, got %d",
			ErrInvalidScaling, len(distinct))
	}
	sort.Slice(pts, func(i, j int) bool { return pts[i].Replicas < pts[j].Replicas })

	withAlpha, withBeta := true, true
	var s Scaling
	for {
		var err error
		s, err = solveScaling(pts, withAlpha, withBeta)
		if err != nil {
			return Fit{}, err
		}
		switch {
		case withBeta && s.Beta < 0:
			withBeta = false
			continue
		case withAlpha && s.Alpha < 0:
			withAlpha = false
			continue
		}
		break
	}

	if err := s.validate(); err != nil {
		return Fit{}, fmt.Errorf("fitted coefficients: %w", err)
	}

	observed := make([]float64, len(pts))
	predicted := make([]float64, len(pts))
	for i, m := range pts {
		observed[i] = m.RPS
		predicted[i] = s.Capacity(m.Replicas)
	}
	return Fit{Scaling: s, RSquared: stat.RSquaredFrom(predicted, observed, nil)}, nil
}

// solveScaling fits N/C(N) against [1, N-1, N(N-1)], leaving out the
// disabled columns.
func solveScaling(pts []Measurement, withAlpha, withBeta bool) (Scaling, error) {
	cols := 1
	if withAlpha {
		cols++
	}
	if withBeta {
		cols++
	}

	a := mat.NewDense(len(pts), cols, nil)
	y := mat.NewVecDense(len(pts), nil)
	for i, m := range pts {
		n := float64(m.Replicas)
		a.Set(i, 0, 1)
		j := 1
		if withAlpha {
			a.Set(i, j, n-1)
			j++
		}
		if withBeta {
			a.Set(i, j, n*(n-1))
		}
		y.SetVec(i, n/m.RPS)
	}

	var b mat.VecDense
	if err := b.SolveVec(a, y); err != nil {
		return Scaling{}, fmt.Errorf("%w: degenerate measurements: %v", ErrInvalidScaling, err)
	}
	b0 := b.AtVec(0)
	if !(b0 > 0) {
		return Scaling{}, fmt.Errorf("%w: fitted serial throughput is not positive", ErrInvalidScaling)
	}

	s := Scaling{ReplicaRPS: 1 / b0}
	j := 1
	if withAlpha {
		s.Alpha = b.AtVec(j) / b0
		j++
	}
	if withBeta {
		s.Beta = b.AtVec(j) / b0
	}
	return s, nil
}
