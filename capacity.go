package peakload

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidScaling is returned for replica scaling parameters that cannot
// describe a real service.
var ErrInvalidScaling = errors.New("invalid scaling parameters")

// Scaling describes how throughput grows with replicas, using the Universal
// Scalability Law:
//
//	C(N) = λN / (1 + α(N-1) + βN(N-1))
//
// With α = β = 0 capacity is linear in N.
type Scaling struct {
	ReplicaRPS float64 // λ: requests per second one replica sustains
	Alpha      float64 // α: contention coefficient, in [0, 1)
	Beta       float64 // β: coherency coefficient, ≥ 0
}

// Capacity returns C(N) for n replicas.
func (s Scaling) Capacity(n int) float64 {
	if n <= 0 {
		return 0
	}
	N := float64(n)
	return s.ReplicaRPS * N / (1 + s.Alpha*(N-1) + s.Beta*N*(N-1))
}

// PeakReplicas is the replica count past which capacity decreases:
// sqrt((1-α)/β). Without a coherency penalty it is +Inf.
func (s Scaling) PeakReplicas() float64 {
	if s.Beta <= 0 {
		return math.Inf(1)
	}
	return math.Sqrt((1 - s.Alpha) / s.Beta)
}

func (s Scaling) validate() error {
	switch {
	case !(s.ReplicaRPS > 0) || math.IsInf(s.ReplicaRPS, 0):
		return fmt.Errorf("%w: replica throughput must be positive, got %v", ErrInvalidScaling, s.ReplicaRPS)
	case !(s.Alpha >= 0 && s.Alpha < 1):
		return fmt.Errorf("%w: alpha must be in [0, 1), got %v", ErrInvalidScaling, s.Alpha)
	case !(s.Beta >= 0):
		return fmt.Errorf("%w: beta must be non-negative, got %v", ErrInvalidScaling, s.Beta)
	}
	return nil
}

// ProvisionDecision classifies a capacity plan.
type ProvisionDecision string

const (
	ProvisionIdle        ProvisionDecision = "IDLE"        // No peak traffic, no replicas needed
	ProvisionFits        ProvisionDecision = "FITS"        // Demand reachable below the capacity peak
	ProvisionUnreachable ProvisionDecision = "UNREACHABLE" // Demand exceeds the maximum the service can scale to
)

// CapacityPlan is the replica count needed to absorb a report's per-second peak.
type CapacityPlan struct {
	Decision     ProvisionDecision `json:"decision"`
	Replicas     int               `json:"replicas"`
	Demand       float64           `json:"demand"`        // Peak per second including headroom
	Capacity     float64           `json:"capacity"`      // C(Replicas)
	PeakReplicas float64           `json:"peak_replicas"` // Where C(N) stops growing
	Utilization  float64           `json:"utilization"`   // Peak per second / Capacity
	AverageLoad  float64           `json:"average_load"`  // Average per second / Capacity
	RiskLevel    string            `json:"risk_level"`    // LOW, MEDIUM, HIGH, CRITICAL
	Reason       string            `json:"reason"`
}

// maxReplicas bounds the search when capacity grows without a peak.
const maxReplicas = 1 << 20

// Provision sizes a deployment for the report's per-second peak plus a
// fractional headroom (0.2 = 20% spare).
//
// Replicas is the smallest N with C(N) ≥ demand. When demand is beyond the
// most the service can deliver (past the USL peak, or above λ/α when β = 0)
// the plan is UNREACHABLE and Replicas is the count that maximises capacity.
func Provision(r Report, s Scaling, headroom float64) (CapacityPlan, error) {
	if err := s.validate(); err != nil {
		return CapacityPlan{}, err
	}
	if math.IsNaN(headroom) || headroom < 0 {
		return CapacityPlan{}, fmt.Errorf("%w: headroom must be non-negative, got %v", ErrInvalidScaling, headroom)
	}

	plan := CapacityPlan{
		Demand:       float64(r.Peak.PerSecond) * (1 + headroom),
		PeakReplicas: s.PeakReplicas(),
	}

	if plan.Demand == 0 {
		plan.Decision = ProvisionIdle
		plan.RiskLevel = "LOW"
		plan.Reason = "IDLE: no peak traffic at this confidence."
		return plan, nil
	}

	limit := maxReplicas
	if !math.IsInf(plan.PeakReplicas, 1) {
		limit = int(math.Max(1, math.Round(plan.PeakReplicas)))
	}

	n := 1
	if s.Alpha == 0 && s.Beta == 0 {
		n = int(math.Ceil(plan.Demand / s.ReplicaRPS))
	} else {
		for n < limit && s.Capacity(n) < plan.Demand {
			n++
		}
	}

	plan.Replicas = n
	plan.Capacity = s.Capacity(n)
	plan.Utilization = float64(r.Peak.PerSecond) / plan.Capacity
	plan.AverageLoad = r.Average.PerSecond / plan.Capacity

	switch {
	case plan.Capacity < plan.Demand:
		plan.Decision = ProvisionUnreachable
		plan.RiskLevel = "CRITICAL"
		plan.Reason = fmt.Sprintf("UNREACHABLE: peak demand %.1f rps exceeds the %.1f rps maximum at N=%d. "+
			"Adding replicas past the capacity peak lowers throughput. Reduce contention or shard.",
			plan.Demand, plan.Capacity, n)
	case plan.Utilization > 0.9:
		plan.Decision = ProvisionFits
		plan.RiskLevel = "HIGH"
		plan.Reason = "TIGHT: peak uses more than 90% of provisioned capacity."
	case plan.Utilization > 0.75:
		plan.Decision = ProvisionFits
		plan.RiskLevel = "MEDIUM"
		plan.Reason = "OK: peak uses 75-90% of provisioned capacity."
	default:
		plan.Decision = ProvisionFits
		plan.RiskLevel = "LOW"
		plan.Reason = "OK: peak fits with spare capacity."
	}
	return plan, nil
}
