package rombasis

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    sampleCounter  prometheus.Counter
//	    flushHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordSample(duration time.Duration, err error) {
//	    p.sampleCounter.Inc()
//	    // ... record error state, duration, etc.
//	}
type MetricsCollector interface {
	// RecordSample is called after each sample collection.
	// duration is the total time taken, err is nil if successful.
	RecordSample(duration time.Duration, err error)

	// RecordFlush is called after each interval snapshot flush.
	RecordFlush(duration time.Duration, err error)

	// RecordStateSave is called after each restart-state save.
	RecordStateSave(duration time.Duration, err error)

	// RecordRestore is called after each restart-state restore.
	RecordRestore(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordSample(time.Duration, error)    {}
func (NoopMetricsCollector) RecordFlush(time.Duration, error)     {}
func (NoopMetricsCollector) RecordStateSave(time.Duration, error) {}
func (NoopMetricsCollector) RecordRestore(time.Duration, error)   {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	SampleCount      atomic.Int64
	SampleErrors     atomic.Int64
	SampleTotalNanos atomic.Int64
	FlushCount       atomic.Int64
	FlushErrors      atomic.Int64
	FlushTotalNanos  atomic.Int64
	StateSaveCount   atomic.Int64
	StateSaveErrors  atomic.Int64
	RestoreCount     atomic.Int64
	RestoreErrors    atomic.Int64
}

// RecordSample implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSample(duration time.Duration, err error) {
	b.SampleCount.Add(1)
	b.SampleTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SampleErrors.Add(1)
	}
}

// RecordFlush implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFlush(duration time.Duration, err error) {
	b.FlushCount.Add(1)
	b.FlushTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.FlushErrors.Add(1)
	}
}

// RecordStateSave implements MetricsCollector.
func (b *BasicMetricsCollector) RecordStateSave(duration time.Duration, err error) {
	b.StateSaveCount.Add(1)
	if err != nil {
		b.StateSaveErrors.Add(1)
	}
}

// RecordRestore implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRestore(duration time.Duration, err error) {
	b.RestoreCount.Add(1)
	if err != nil {
		b.RestoreErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		SampleCount:     b.SampleCount.Load(),
		SampleErrors:    b.SampleErrors.Load(),
		SampleAvgNanos:  b.getAvgSampleNanos(),
		FlushCount:      b.FlushCount.Load(),
		FlushErrors:     b.FlushErrors.Load(),
		FlushAvgNanos:   b.getAvgFlushNanos(),
		StateSaveCount:  b.StateSaveCount.Load(),
		StateSaveErrors: b.StateSaveErrors.Load(),
		RestoreCount:    b.RestoreCount.Load(),
		RestoreErrors:   b.RestoreErrors.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgSampleNanos() int64 {
	count := b.SampleCount.Load()
	if count == 0 {
		return 0
	}
	return b.SampleTotalNanos.Load() / count
}

func (b *BasicMetricsCollector) getAvgFlushNanos() int64 {
	count := b.FlushCount.Load()
	if count == 0 {
		return 0
	}
	return b.FlushTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	SampleCount     int64
	SampleErrors    int64
	SampleAvgNanos  int64
	FlushCount      int64
	FlushErrors     int64
	FlushAvgNanos   int64
	StateSaveCount  int64
	StateSaveErrors int64
	RestoreCount    int64
	RestoreErrors   int64
}
