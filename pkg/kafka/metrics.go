package kafka

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type clientMetrics struct {
	published *prometheus.CounterVec
	pubBytes  *prometheus.CounterVec
	pubTime   *prometheus.HistogramVec
	handled   *prometheus.CounterVec
	handle    *prometheus.HistogramVec
	lag       *prometheus.GaugeVec
}

var (
	defaultMetricsOnce sync.Once
	defaultMetrics     *clientMetrics
)

func metricsFor(reg prometheus.Registerer) *clientMetrics {
	if reg == prometheus.DefaultRegisterer {
		defaultMetricsOnce.Do(func() { defaultMetrics = newClientMetrics(reg) })
		return defaultMetrics
	}
	return newClientMetrics(reg)
}

func newClientMetrics(reg prometheus.Registerer) *clientMetrics {
	f := promauto.With(reg)
	return &clientMetrics{
		published: f.NewCounterVec(prometheus.CounterOpts{
			Name: "astrozee_kafka_published_total",
			Help: "Messages written to Kafka by topic and result.",
		}, []string{"topic", "result"}),
		pubBytes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "astrozee_kafka_published_bytes_total",
			Help: "Payload bytes written to Kafka.",
		}, []string{"topic"}),
		pubTime: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "astrozee_kafka_publish_seconds",
			Help:    "Time spent writing a batch.",
			Buckets: prometheus.DefBuckets,
		}, []string{"topic"}),
		handled: f.NewCounterVec(prometheus.CounterOpts{
			Name: "astrozee_kafka_handled_total",
			Help: "Consumed messages by topic and outcome (ok, retried_ok, dlq, dropped).",
		}, []string{"topic", "outcome"}),
		handle: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "astrozee_kafka_handle_seconds",
			Help:    "Handling time per consumed message, retries included.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"topic"}),
		lag: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "astrozee_kafka_consumer_lag",
			Help: "Messages behind the partition high watermark, as last seen.",
		}, []string{"topic"}),
	}
}
