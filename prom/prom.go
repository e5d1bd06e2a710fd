// Package prom implements geogenie.MetricsCollector on Prometheus.
package prom

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	geogenie "github.com/VijetHegde604/GeoGenie-backend"
	"github.com/VijetHegde604/GeoGenie-backend/model"
)

// Collector records engine operations as Prometheus metrics.
type Collector struct {
	recognitionsTotal   *prometheus.CounterVec
	recognitionDuration prometheus.Histogram
	feedbackTotal       *prometheus.CounterVec
	seedEntriesTotal    prometheus.Counter
	snapshotOpsTotal    *prometheus.CounterVec
	snapshotDuration    *prometheus.HistogramVec
}

// Compile-time check to ensure Collector satisfies the collector interface.
var _ geogenie.MetricsCollector = (*Collector)(nil)

// NewCollector creates a Collector registered with reg.
// Pass prometheus.DefaultRegisterer for the default registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		recognitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "geogenie",
				Name:      "recognitions_total",
				Help:      "Recognition requests by result source and status.",
			},
			[]string{"source", "status"},
		),
		recognitionDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "geogenie",
				Name:      "recognition_duration_seconds",
				Help:      "End-to-end recognition latency.",
				Buckets:   prometheus.DefBuckets,
			},
		),
		feedbackTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "geogenie",
				Name:      "feedback_total",
				Help:      "Feedback submissions by status.",
			},
			[]string{"status"},
		),
		seedEntriesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "geogenie",
				Name:      "seed_entries_total",
				Help:      "Entries inserted by bulk seed operations.",
			},
		),
		snapshotOpsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "geogenie",
				Name:      "snapshot_operations_total",
				Help:      "Snapshot saves and loads by status.",
			},
			[]string{"op", "status"},
		),
		snapshotDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "geogenie",
				Name:      "snapshot_duration_seconds",
				Help:      "Snapshot save/load latency.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
			},
			[]string{"op"},
		),
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordRecognition implements geogenie.MetricsCollector.
func (c *Collector) RecordRecognition(source model.ResultSource, duration time.Duration, err error) {
	c.recognitionsTotal.WithLabelValues(source.String(), status(err)).Inc()
	c.recognitionDuration.Observe(duration.Seconds())
}

// RecordFeedback implements geogenie.MetricsCollector.
func (c *Collector) RecordFeedback(duration time.Duration, err error) {
	c.feedbackTotal.WithLabelValues(status(err)).Inc()
}

// RecordSeed implements geogenie.MetricsCollector.
func (c *Collector) RecordSeed(inserted int, duration time.Duration, err error) {
	c.seedEntriesTotal.Add(float64(inserted))
}

// RecordSnapshotSave implements geogenie.MetricsCollector.
func (c *Collector) RecordSnapshotSave(duration time.Duration, err error) {
	c.snapshotOpsTotal.WithLabelValues("save", status(err)).Inc()
	c.snapshotDuration.WithLabelValues("save").Observe(duration.Seconds())
}

// RecordSnapshotLoad implements geogenie.MetricsCollector.
func (c *Collector) RecordSnapshotLoad(duration time.Duration, err error) {
	c.snapshotOpsTotal.WithLabelValues("load", status(err)).Inc()
	c.snapshotDuration.WithLabelValues("load").Observe(duration.Seconds())
}
