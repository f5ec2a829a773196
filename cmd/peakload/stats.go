package main

import (
	"net/http"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// latencyWindow keeps the most recent request latencies in a ring buffer.
type latencyWindow struct {
	mu      sync.Mutex
	samples []float64 // seconds
	next    int
	total   int64
}

func newLatencyWindow(size int) *latencyWindow {
	if size <= 0 {
		size = 1000
	}
	return &latencyWindow{samples: make([]float64, size)}
}

func (w *latencyWindow) Record(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.samples[w.next] = d.Seconds()
	w.next = (w.next + 1) % len(w.samples)
	w.total++
}

type latencyStats struct {
	Requests int64   `json:"requests"`
	Window   int     `json:"window"`
	MeanMs   float64 `json:"mean_ms"`
	P50Ms    float64 `json:"p50_ms"`
	P99Ms    float64 `json:"p99_ms"`
	P999Ms   float64 `json:"p999_ms"`
}

func (w *latencyWindow) Snapshot() latencyStats {
	w.mu.Lock()
	n := len(w.samples)
	if w.total < int64(n) {
		n = int(w.total)
	}
	sorted := make([]float64, n)
	copy(sorted, w.samples[:n])
	total := w.total
	w.mu.Unlock()

	s := latencyStats{Requests: total, Window: n}
	if n == 0 {
		return s
	}
	sort.Float64s(sorted)
	ms := func(v float64) float64 { return v * 1000 }
	s.MeanMs = ms(stat.Mean(sorted, nil))
	s.P50Ms = ms(stat.Quantile(0.5, stat.Empirical, sorted, nil))
	s.P99Ms = ms(stat.Quantile(0.99, stat.Empirical, sorted, nil))
	s.P999Ms = ms(stat.Quantile(0.999, stat.Empirical, sorted, nil))
	return s
}

func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	if !s.allowGet(w, r) {
		return
	}
	s.writeJSON(w, http.StatusOK, s.latency.Snapshot())
}
