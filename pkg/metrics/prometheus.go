package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	computations   *prometheus.CounterVec
	sampleFailures *prometheus.CounterVec
	episodes       prometheus.Histogram
	errorsTotal    *prometheus.CounterVec
	latency        *prometheus.HistogramVec
}

var (
	defaultOnce     sync.Once
	defaultRecorder *Recorder
)

// New returns the recorder registered with the default Prometheus registry.
// Every call returns the same recorder.
func New() *Recorder {
	defaultOnce.Do(func() {
		defaultRecorder = NewWithRegistry(prometheus.DefaultRegisterer)
	})
	return defaultRecorder
}

// NewWithRegistry registers the collectors with reg. Tests pass a fresh
// prometheus.NewRegistry() to avoid duplicate registration.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		computations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "astrozee_computations_total",
				Help: "Transit computations by result",
			},
			[]string{"result"},
		),
		sampleFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "astrozee_sample_failures_total",
				Help: "Ephemeris lookups that failed, by body",
			},
			[]string{"body"},
		),
		episodes: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "astrozee_episodes_per_report",
				Help:    "Episodes returned by a computation",
				Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
			},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "astrozee_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "astrozee_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordComputation counts a finished computation ("ok" or "error").
func (r *Recorder) RecordComputation(result string) {
	r.computations.WithLabelValues(result).Inc()
}

func (r *Recorder) RecordSampleFailure(body string) {
	r.sampleFailures.WithLabelValues(body).Inc()
}

func (r *Recorder) RecordEpisodes(n int) {
	r.episodes.Observe(float64(n))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
