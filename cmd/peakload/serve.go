package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/alexshd/peakload"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve estimates over HTTP as JSON",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Value:   ":8080",
				Usage:   "Listen address",
				EnvVars: []string{"PEAKLOAD_ADDR"},
			},
		},
		Action: func(c *cli.Context) error {
			est, err := estimatorFrom(c)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return listenAndServe(ctx, c.String("addr"), newServer(est, slog.Default()))
		},
	}
}

func listenAndServe(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type server struct {
	est     *peakload.Estimator
	logger  *slog.Logger
	latency *latencyWindow
}

// newServer returns the HTTP API:
//
//	GET /estimate?daily=22050&growth=0&prob=0.95[&charts=true]
//	GET /peak?rate=1500&prob=0.99
//	GET /series?rate=27.5&prob=0.99999999&threshold=48&x_coef=1&title=Minute
//	GET /stats
//	GET /health
func newServer(est *peakload.Estimator, logger *slog.Logger) http.Handler {
	s := &server{est: est, logger: logger, latency: newLatencyWindow(1000)}

	mux := http.NewServeMux()
	mux.HandleFunc("/estimate", s.handleEstimate)
	mux.HandleFunc("/peak", s.handlePeak)
	mux.HandleFunc("/series", s.handleSeries)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/health", s.handleHealth)
	return s.requestLog(mux)
}

type estimateResponse struct {
	peakload.Report
	Charts []peakload.Chart `json:"charts,omitempty"`
}

func (s *server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	if !s.allowGet(w, r) {
		return
	}
	q := query{values: r.URL.Query()}
	daily := q.float("daily", 0)
	growth := q.float("growth", 0)
	prob := q.float("prob", 0.95)
	charts := q.bool("charts")
	if q.err != nil {
		s.writeError(w, http.StatusBadRequest, q.err)
		return
	}
	if q.get("daily") == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("daily is required"))
		return
	}

	report, err := s.est.Estimate(daily, growth, prob)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	resp := estimateResponse{Report: report}
	if charts {
		if resp.Charts, err = s.est.Charts(report); err != nil {
			s.writeError(w, http.StatusInternalServerError, err)
			return
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *server) handlePeak(w http.ResponseWriter, r *http.Request) {
	if !s.allowGet(w, r) {
		return
	}
	q := query{values: r.URL.Query()}
	rate := q.float("rate", 0)
	prob := q.float("prob", 0.95)
	if q.err != nil {
		s.writeError(w, http.StatusBadRequest, q.err)
		return
	}
	if q.get("rate") == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("rate is required"))
		return
	}

	peak, err := s.est.PeakLoad(rate, prob)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"rate": rate,
		"prob": prob,
		"peak": peak,
	})
}

func (s *server) handleSeries(w http.ResponseWriter, r *http.Request) {
	if !s.allowGet(w, r) {
		return
	}
	q := query{values: r.URL.Query()}
	rate := q.float("rate", 0)
	opts := peakload.SeriesOptions{
		Title: r.URL.Query().Get("title"),
		Prob:  q.float("prob", 0),
		XCoef: q.float("x_coef", 0),
	}
	if t := q.int("threshold"); t > 0 {
		opts.Threshold = &t
	}
	if q.err != nil {
		s.writeError(w, http.StatusBadRequest, q.err)
		return
	}
	if q.get("rate") == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("rate is required"))
		return
	}

	chart, err := s.est.Config().Series(rate, opts)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.writeJSON(w, http.StatusOK, chart)
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requestLog tags each request with an X-Request-ID and logs its outcome.
func (s *server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)
		s.latency.Record(elapsed)

		level := slog.LevelInfo
		if rec.status >= 400 {
			level = slog.LevelWarn
		}
		s.logger.Log(r.Context(), level, "request",
			"id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", elapsed,
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *server) allowGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return true
	}
	w.Header().Set("Allow", "GET, HEAD")
	s.writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	return false
}

func (s *server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("write response", "status", status, "err", err)
	}
}

func (s *server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// query parses typed parameters, keeping the first error.
type query struct {
	values map[string][]string
	err    error
}

func (q *query) get(name string) string {
	if v := q.values[name]; len(v) > 0 {
		return v[0]
	}
	return ""
}

func (q *query) float(name string, def float64) float64 {
	s := q.get(name)
	if s == "" || q.err != nil {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		q.err = fmt.Errorf("%s: invalid number %q", name, s)
		return def
	}
	return v
}

func (q *query) int(name string) int {
	s := q.get(name)
	if s == "" || q.err != nil {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		q.err = fmt.Errorf("%s: invalid integer %q", name, s)
		return 0
	}
	return v
}

func (q *query) bool(name string) bool {
	s := q.get(name)
	if s == "" || q.err != nil {
		return false
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		q.err = fmt.Errorf("%s: invalid boolean %q", name, s)
		return false
	}
	return v
}
