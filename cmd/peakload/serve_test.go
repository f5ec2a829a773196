package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/alexshd/peakload"
)

func newTestServer(t *testing.T) (http.Handler, *bytes.Buffer) {
	t.Helper()

	est, err := peakload.NewEstimator(peakload.DefaultConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	var logs bytes.Buffer
	return newServer(est, slog.New(slog.NewTextHandler(&logs, nil))), &logs
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestServer_Estimate(t *testing.T) {
	h, logs := newTestServer(t)

	rec := get(t, h, "/estimate?daily=22050&prob=0.9995&charts=true")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var got estimateResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(peakload.Peaks{PerHour: 1654, PerMinute: 48, PerSecond: 5}, got.Peak); diff != "" {
		t.Errorf("peaks mismatch (-want +got):\n%s", diff)
	}
	if len(got.Charts) != 3 {
		t.Fatalf("charts = %d, want 3", len(got.Charts))
	}
	if got.Charts[1].Title != "Peak per Minute: 48" {
		t.Errorf("minute chart title = %q", got.Charts[1].Title)
	}

	if !strings.Contains(logs.String(), "path=/estimate") || !strings.Contains(logs.String(), "status=200") {
		t.Errorf("request not logged: %s", logs)
	}
	t.Logf("✓ /estimate: %+v", got.Peak)
}

func TestServer_Peak(t *testing.T) {
	h, _ := newTestServer(t)

	rec := get(t, h, "/peak?rate=2000&prob=0.9995")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var got struct {
		Peak int `json:"peak"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Peak != 2148 {
		t.Errorf("peak = %d, want 2148", got.Peak)
	}
}

func TestServer_Series(t *testing.T) {
	h, _ := newTestServer(t)

	rec := get(t, h, "/series?rate=5&threshold=9&x_coef=2&title=Second")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var ch peakload.Chart
	if err := json.NewDecoder(rec.Body).Decode(&ch); err != nil {
		t.Fatal(err)
	}
	if ch.Threshold == nil || *ch.Threshold != 18 {
		t.Errorf("threshold = %v, want 18", ch.Threshold)
	}
	if ch.Title != "Peak per Second: 18" {
		t.Errorf("title = %q", ch.Title)
	}
}

func TestServer_BadRequests(t *testing.T) {
	h, logs := newTestServer(t)

	tests := []struct {
		target string
		status int
	}{
		{"/estimate", http.StatusBadRequest},
		{"/estimate?daily=abc", http.StatusBadRequest},
		{"/estimate?daily=100&prob=0", http.StatusBadRequest},
		{"/estimate?daily=100&charts=maybe", http.StatusBadRequest},
		{"/peak", http.StatusBadRequest},
		{"/peak?rate=-3", http.StatusBadRequest},
		{"/series?rate=5&threshold=1.5", http.StatusBadRequest},
		{"/series", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := get(t, h, tt.target)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body["error"] == "" {
				t.Errorf("missing error message")
			}
		})
	}

	if !strings.Contains(logs.String(), "level=WARN") {
		t.Errorf("client errors not logged at warn: %s", logs)
	}
}

func TestServer_MethodNotAllowed(t *testing.T) {
	h, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/peak?rate=10", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
	if allow := rec.Header().Get("Allow"); allow != "GET, HEAD" {
		t.Errorf("Allow = %q", allow)
	}
}

func TestServer_RequestID(t *testing.T) {
	h, _ := newTestServer(t)

	rec := get(t, h, "/health")
	if id := rec.Header().Get("X-Request-ID"); len(id) != 36 {
		t.Errorf("generated X-Request-ID = %q, want a UUID", id)
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "caller-supplied")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if id := rec.Header().Get("X-Request-ID"); id != "caller-supplied" {
		t.Errorf("X-Request-ID = %q, want the caller's", id)
	}
}

func TestListenAndServe_Shutdown(t *testing.T) {
	h, _ := newTestServer(t)
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- listenAndServe(ctx, "127.0.0.1:0", h) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("listenAndServe = %v, want nil after cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServer_Stats(t *testing.T) {
	h, _ := newTestServer(t)

	for i := 0; i < 3; i++ {
		get(t, h, "/health")
	}
	rec := get(t, h, "/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got latencyStats
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	// The /stats request itself is recorded after the snapshot.
	if got.Requests != 3 || got.Window != 3 {
		t.Errorf("requests/window = %d/%d, want 3/3", got.Requests, got.Window)
	}
	if got.P50Ms > got.P99Ms {
		t.Errorf("p50 %v above p99 %v", got.P50Ms, got.P99Ms)
	}
}

func TestLatencyWindow_Wraps(t *testing.T) {
	w := newLatencyWindow(4)
	for i := 1; i <= 10; i++ {
		w.Record(time.Duration(i) * time.Millisecond)
	}

	got := w.Snapshot()
	if got.Requests != 10 || got.Window != 4 {
		t.Fatalf("requests/window = %d/%d, want 10/4", got.Requests, got.Window)
	}
	// Window holds 7..10 ms.
	if got.MeanMs < 8.4 || got.MeanMs > 8.6 {
		t.Errorf("mean = %v ms, want 8.5", got.MeanMs)
	}
	if got.P999Ms < 9.99 || got.P999Ms > 10.01 {
		t.Errorf("p99.9 = %v ms, want 10", got.P999Ms)
	}
}

func TestServer_TinyRates(t *testing.T) {
	h, _ := newTestServer(t)

	for _, rate := range []string{"1e-30", "5e-324"} {
		rec := get(t, h, "/peak?rate="+rate)
		if rec.Code != http.StatusOK {
			t.Fatalf("/peak?rate=%s status = %d, body %s", rate, rec.Code, rec.Body)
		}
		var got struct {
			Peak int `json:"peak"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatal(err)
		}
		if got.Peak != 1 {
			t.Errorf("/peak?rate=%s = %d, want 1", rate, got.Peak)
		}

		rec = get(t, h, "/series?rate="+rate)
		if rec.Code != http.StatusOK {
			t.Fatalf("/series?rate=%s status = %d, body %s", rate, rec.Code, rec.Body)
		}
		var ch peakload.Chart
		if err := json.NewDecoder(rec.Body).Decode(&ch); err != nil {
			t.Fatal(err)
		}
		if len(ch.X) == 0 || len(ch.X) > peakload.DefaultConfig().MaxSamples {
			t.Errorf("/series?rate=%s returned %d points", rate, len(ch.X))
		}
	}

	rec := get(t, h, "/peak?rate=1e300")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("/peak?rate=1e300 status = %d, want 400", rec.Code)
	}
}

// brokenWriter accepts headers but fails every body write.
type brokenWriter struct {
	*httptest.ResponseRecorder
}

func (brokenWriter) Write([]byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestServer_WriteFailureLogged(t *testing.T) {
	var logs bytes.Buffer
	s := &server{
		logger:  slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
		latency: newLatencyWindow(10),
	}

	s.writeJSON(brokenWriter{httptest.NewRecorder()}, http.StatusOK, map[string]string{"status": "ok"})

	out := logs.String()
	if !strings.Contains(out, "write response") || !strings.Contains(out, "connection reset") {
		t.Errorf("write failure not logged: %q", out)
	}
}
