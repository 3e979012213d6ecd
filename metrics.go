package appendbuf

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; the
// observability package provides a Prometheus implementation.
//
// Methods are called on the hot path (RecordFill on every Fill) and from
// any goroutine, so implementations must be cheap and concurrency-safe.
type MetricsCollector interface {
	// RecordAllocate is called after each block allocation attempt.
	RecordAllocate(duration time.Duration, err error)

	// RecordFill is called after each append with the number of bytes
	// offered and the number actually written.
	RecordFill(requested, written int)

	// RecordSlice is called whenever a Slice is taken from a Buffer.
	RecordSlice()

	// RecordRelease is called when the last handle returns the block.
	RecordRelease(err error)

	// RecordLeak is called when leak detection finds an unreleased handle.
	RecordLeak()
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAllocate(time.Duration, error) {}
func (NoopMetricsCollector) RecordFill(int, int)                 {}
func (NoopMetricsCollector) RecordSlice()                        {}
func (NoopMetricsCollector) RecordRelease(error)                 {}
func (NoopMetricsCollector) RecordLeak()                         {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	AllocateCount      atomic.Int64
	AllocateErrors     atomic.Int64
	AllocateTotalNanos atomic.Int64
	FillCount          atomic.Int64
	BytesRequested     atomic.Int64
	BytesWritten       atomic.Int64
	Truncations        atomic.Int64
	SliceCount         atomic.Int64
	ReleaseCount       atomic.Int64
	ReleaseErrors      atomic.Int64
	Leaks              atomic.Int64
}

// RecordAllocate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAllocate(duration time.Duration, err error) {
	b.AllocateCount.Add(1)
	b.AllocateTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.AllocateErrors.Add(1)
	}
}

// RecordFill implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFill(requested, written int) {
	b.FillCount.Add(1)
	b.BytesRequested.Add(int64(requested))
	b.BytesWritten.Add(int64(written))
	if written < requested {
		b.Truncations.Add(1)
	}
}

// RecordSlice implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSlice() {
	b.SliceCount.Add(1)
}

// RecordRelease implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRelease(err error) {
	b.ReleaseCount.Add(1)
	if err != nil {
		b.ReleaseErrors.Add(1)
	}
}

// RecordLeak implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLeak() {
	b.Leaks.Add(1)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		AllocateCount:    b.AllocateCount.Load(),
		AllocateErrors:   b.AllocateErrors.Load(),
		AllocateAvgNanos: b.getAvgAllocateNanos(),
		FillCount:        b.FillCount.Load(),
		BytesRequested:   b.BytesRequested.Load(),
		BytesWritten:     b.BytesWritten.Load(),
		Truncations:      b.Truncations.Load(),
		SliceCount:       b.SliceCount.Load(),
		ReleaseCount:     b.ReleaseCount.Load(),
		ReleaseErrors:    b.ReleaseErrors.Load(),
		Leaks:            b.Leaks.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgAllocateNanos() int64 {
	count := b.AllocateCount.Load()
	if count == 0 {
		return 0
	}
	return b.AllocateTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	AllocateCount    int64
	AllocateErrors   int64
	AllocateAvgNanos int64
	FillCount        int64
	BytesRequested   int64
	BytesWritten     int64
	Truncations      int64
	SliceCount       int64
	ReleaseCount     int64
	ReleaseErrors    int64
	Leaks            int64
}
