package colmap

import (
	"sync/atomic"
	"time"
)

// Load phase names reported to Logger and MetricsCollector.
const (
	PhaseResolveNames    = "resolve_names"
	PhaseCameras         = "cameras"
	PhaseImages          = "images"
	PhaseCorrespondences = "correspondences"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like
// Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    loadHistogram prometheus.Histogram
//	    phaseCounters *prometheus.CounterVec
//	}
//
//	func (p *PrometheusCollector) RecordLoad(duration time.Duration, err error) {
//	    p.loadHistogram.Observe(duration.Seconds())
//	    // ... record error state etc.
//	}
type MetricsCollector interface {
	// RecordLoad is called after each Load operation.
	// duration is the total time taken, err is nil if successful.
	RecordLoad(duration time.Duration, err error)

	// RecordLoadPhase is called after each completed load phase with the
	// number of records the phase admitted.
	RecordLoadPhase(phase string, count int, duration time.Duration)

	// RecordIgnoredPairs is called once per Load with the number of image
	// pairs the filtering policy rejected.
	RecordIgnoredPairs(count int)

	// RecordStats is called after each statistics computation.
	RecordStats(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordLoad(time.Duration, error)            {}
func (NoopMetricsCollector) RecordLoadPhase(string, int, time.Duration) {}
func (NoopMetricsCollector) RecordIgnoredPairs(int)                     {}
func (NoopMetricsCollector) RecordStats(time.Duration, error)           {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	LoadCount             atomic.Int64
	LoadErrors            atomic.Int64
	LoadTotalNanos        atomic.Int64
	CamerasLoaded         atomic.Int64
	ImagesLoaded          atomic.Int64
	CorrespondencesLoaded atomic.Int64
	IgnoredPairs          atomic.Int64
	StatsCount            atomic.Int64
	StatsErrors           atomic.Int64
}

// RecordLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLoad(duration time.Duration, err error) {
	b.LoadCount.Add(1)
	b.LoadTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.LoadErrors.Add(1)
	}
}

// RecordLoadPhase implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLoadPhase(phase string, count int, duration time.Duration) {
	switch phase {
	case PhaseCameras:
		b.CamerasLoaded.Add(int64(count))
	case PhaseImages:
		b.ImagesLoaded.Add(int64(count))
	case PhaseCorrespondences:
		b.CorrespondencesLoaded.Add(int64(count))
	}
}

// RecordIgnoredPairs implements MetricsCollector.
func (b *BasicMetricsCollector) RecordIgnoredPairs(count int) {
	b.IgnoredPairs.Add(int64(count))
}

// RecordStats implements MetricsCollector.
func (b *BasicMetricsCollector) RecordStats(duration time.Duration, err error) {
	b.StatsCount.Add(1)
	if err != nil {
		b.StatsErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		LoadCount:             b.LoadCount.Load(),
		LoadErrors:            b.LoadErrors.Load(),
		LoadAvgNanos:          b.getAvgLoadNanos(),
		CamerasLoaded:         b.CamerasLoaded.Load(),
		ImagesLoaded:          b.ImagesLoaded.Load(),
		CorrespondencesLoaded: b.CorrespondencesLoaded.Load(),
		IgnoredPairs:          b.IgnoredPairs.Load(),
		StatsCount:            b.StatsCount.Load(),
		StatsErrors:           b.StatsErrors.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgLoadNanos() int64 {
	count := b.LoadCount.Load()
	if count == 0 {
		return 0
	}
	return b.LoadTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	LoadCount             int64
	LoadErrors            int64
	LoadAvgNanos          int64
	CamerasLoaded         int64
	ImagesLoaded          int64
	CorrespondencesLoaded int64
	IgnoredPairs          int64
	StatsCount            int64
	StatsErrors           int64
}
