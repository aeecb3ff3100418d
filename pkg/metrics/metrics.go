// Package metrics records capability query outcomes as Prometheus metrics.
//
// A Recorder owns its registry so that several sessions, or tests, never
// collide on collector registration. A nil *Recorder is valid and records
// nothing.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ardnew/typecinfo/pkg"
)

// Outcome labels.
const (
	OutcomeOK               = "ok"
	OutcomeNotSupported     = "not_supported"
	OutcomeInvalidConnector = "invalid_connector"
	OutcomeDecodeError      = "decode_error"
	OutcomeBackendError     = "backend_error"
	OutcomeError            = "error"
)

// Outcome classifies err into one of the outcome labels.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, pkg.ErrNotSupported):
		return OutcomeNotSupported
	case errors.Is(err, pkg.ErrInvalidConnector):
		return OutcomeInvalidConnector
	case errors.Is(err, pkg.ErrDecode):
		return OutcomeDecodeError
	case errors.Is(err, pkg.ErrBackend):
		return OutcomeBackendError
	}
	return OutcomeError
}

// Recorder collects query metrics.
type Recorder struct {
	registry *prometheus.Registry

	queries      *prometheus.CounterVec
	backendTime  *prometheus.HistogramVec
	decodeErrors *prometheus.CounterVec
	outstanding  prometheus.Gauge
}

// New returns a Recorder with a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		queries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "typec_queries_total",
				Help: "Total number of capability queries by outcome",
			},
			[]string{"query", "outcome"},
		),
		backendTime: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "typec_backend_seconds",
				Help:    "Time spent in backend reads",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"backend", "query"},
		),
		decodeErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "typec_decode_errors_total",
				Help: "Total number of raw records that failed to decode",
			},
			[]string{"query"},
		),
		outstanding: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "typec_buffers_outstanding",
				Help: "Number of result lists not yet released",
			},
		),
	}
}

// Registry returns the registry holding the recorder's collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// RecordQuery counts one query and its outcome.
func (r *Recorder) RecordQuery(query string, err error) {
	if r == nil {
		return
	}
	outcome := Outcome(err)
	r.queries.WithLabelValues(query, outcome).Inc()
	if outcome == OutcomeDecodeError {
		r.decodeErrors.WithLabelValues(query).Inc()
	}
}

// RecordBackend observes the duration of one backend read.
func (r *Recorder) RecordBackend(backend, query string, d time.Duration) {
	if r == nil {
		return
	}
	r.backendTime.WithLabelValues(backend, query).Observe(d.Seconds())
}

// BufferAcquired increments the outstanding list gauge.
func (r *Recorder) BufferAcquired() {
	if r == nil {
		return
	}
	r.outstanding.Inc()
}

// BufferReleased decrements the outstanding list gauge.
func (r *Recorder) BufferReleased() {
	if r == nil {
		return
	}
	r.outstanding.Dec()
}

// WriteTextfile writes all metrics in the node exporter textfile format.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
