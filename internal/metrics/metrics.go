// Package metrics exposes cycle counters and latencies for Prometheus.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cycle results.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics records agent activity. A nil *Metrics is a valid no-op recorder.
type Metrics struct {
	registry *prometheus.Registry

	CyclesTotal       *prometheus.CounterVec
	CycleErrorsTotal  *prometheus.CounterVec
	ActionsTotal      *prometheus.CounterVec
	CycleDuration     prometheus.Histogram
	InferenceDuration prometheus.Histogram
}

// New registers the agent metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		CyclesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "franz_cycles_total",
			Help: "Perception-action cycles by result",
		}, []string{"result"}),
		CycleErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "franz_cycle_errors_total",
			Help: "Failed cycles by error kind",
		}, []string{"kind"}),
		ActionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "franz_actions_total",
			Help: "Actions chosen by the model",
		}, []string{"action"}),
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "franz_cycle_duration_seconds",
			Help:    "Wall time of one cycle including pauses",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		InferenceDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "franz_inference_duration_seconds",
			Help:    "Latency of the inference request",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}
}

// Registry returns the registry the metrics live in.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) CycleDone(d time.Duration) {
	if m == nil {
		return
	}
	m.CyclesTotal.WithLabelValues(ResultOK).Inc()
	m.CycleDuration.Observe(d.Seconds())
}

func (m *Metrics) CycleFailed(kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.CyclesTotal.WithLabelValues(ResultError).Inc()
	m.CycleErrorsTotal.WithLabelValues(kind).Inc()
	m.CycleDuration.Observe(d.Seconds())
}

// StageFailed counts an error that did not abort the cycle, such as a
// failed archive write.
func (m *Metrics) StageFailed(kind string) {
	if m == nil {
		return
	}
	m.CycleErrorsTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) Action(name string) {
	if m == nil {
		return
	}
	m.ActionsTotal.WithLabelValues(name).Inc()
}

func (m *Metrics) Inference(d time.Duration) {
	if m == nil {
		return
	}
	m.InferenceDuration.Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics endpoint listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
