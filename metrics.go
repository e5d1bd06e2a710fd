package geogenie

import (
	"sync/atomic"
	"time"

	"github.com/VijetHegde604/GeoGenie-backend/model"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; the prom
// package ships a Prometheus-backed implementation.
type MetricsCollector interface {
	// RecordRecognition is called after each recognition request.
	// source reports which pipeline stage produced the result, duration is
	// the total time taken, err is nil if successful.
	RecordRecognition(source model.ResultSource, duration time.Duration, err error)

	// RecordFeedback is called after each feedback submission.
	RecordFeedback(duration time.Duration, err error)

	// RecordSeed is called after each bulk seed operation.
	// inserted is the number of entries added, duration is the total time
	// taken.
	RecordSeed(inserted int, duration time.Duration, err error)

	// RecordSnapshotSave is called after each snapshot save.
	RecordSnapshotSave(duration time.Duration, err error)

	// RecordSnapshotLoad is called after each snapshot load.
	RecordSnapshotLoad(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordRecognition(model.ResultSource, time.Duration, error) {}
func (NoopMetricsCollector) RecordFeedback(time.Duration, error)                        {}
func (NoopMetricsCollector) RecordSeed(int, time.Duration, error)                       {}
func (NoopMetricsCollector) RecordSnapshotSave(time.Duration, error)                    {}
func (NoopMetricsCollector) RecordSnapshotLoad(time.Duration, error)                    {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	RecognitionCount      atomic.Int64
	RecognitionErrors     atomic.Int64
	RecognitionTotalNanos atomic.Int64
	GeoHits               atomic.Int64
	VisualHits            atomic.Int64
	NoMatches             atomic.Int64
	FeedbackCount         atomic.Int64
	FeedbackErrors        atomic.Int64
	SeedCount             atomic.Int64
	SeedEntries           atomic.Int64
	SnapshotSaves         atomic.Int64
	SnapshotSaveErrors    atomic.Int64
	SnapshotLoads         atomic.Int64
	SnapshotLoadErrors    atomic.Int64
}

// RecordRecognition implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRecognition(source model.ResultSource, duration time.Duration, err error) {
	b.RecognitionCount.Add(1)
	b.RecognitionTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.RecognitionErrors.Add(1)
		return
	}
	switch source {
	case model.ResultGeo:
		b.GeoHits.Add(1)
	case model.ResultVisual:
		b.VisualHits.Add(1)
	default:
		b.NoMatches.Add(1)
	}
}

// RecordFeedback implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFeedback(duration time.Duration, err error) {
	b.FeedbackCount.Add(1)
	if err != nil {
		b.FeedbackErrors.Add(1)
	}
}

// RecordSeed implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSeed(inserted int, duration time.Duration, err error) {
	b.SeedCount.Add(1)
	b.SeedEntries.Add(int64(inserted))
}

// RecordSnapshotSave implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSnapshotSave(duration time.Duration, err error) {
	b.SnapshotSaves.Add(1)
	if err != nil {
		b.SnapshotSaveErrors.Add(1)
	}
}

// RecordSnapshotLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSnapshotLoad(duration time.Duration, err error) {
	b.SnapshotLoads.Add(1)
	if err != nil {
		b.SnapshotLoadErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		RecognitionCount:    b.RecognitionCount.Load(),
		RecognitionErrors:   b.RecognitionErrors.Load(),
		RecognitionAvgNanos: b.getAvgRecognitionNanos(),
		GeoHits:             b.GeoHits.Load(),
		VisualHits:          b.VisualHits.Load(),
		NoMatches:           b.NoMatches.Load(),
		FeedbackCount:       b.FeedbackCount.Load(),
		FeedbackErrors:      b.FeedbackErrors.Load(),
		SeedCount:           b.SeedCount.Load(),
		SeedEntries:         b.SeedEntries.Load(),
		SnapshotSaves:       b.SnapshotSaves.Load(),
		SnapshotSaveErrors:  b.SnapshotSaveErrors.Load(),
		SnapshotLoads:       b.SnapshotLoads.Load(),
		SnapshotLoadErrors:  b.SnapshotLoadErrors.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgRecognitionNanos() int64 {
	count := b.RecognitionCount.Load()
	if count == 0 {
		return 0
	}
	return b.RecognitionTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	RecognitionCount    int64
	RecognitionErrors   int64
	RecognitionAvgNanos int64
	GeoHits             int64
	VisualHits          int64
	NoMatches           int64
	FeedbackCount       int64
	FeedbackErrors      int64
	SeedCount           int64
	SeedEntries         int64
	SnapshotSaves       int64
	SnapshotSaveErrors  int64
	SnapshotLoads       int64
	SnapshotLoadErrors  int64
}
