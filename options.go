package colmap

import (
	"log/slog"
)

type options struct {
	logger  *Logger
	metrics MetricsCollector
}

// Option configures DatabaseCache construction behavior.
type Option func(*options)

// WithLogger configures structured logging for cache operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := colmap.NewJSONLogger(slog.LevelInfo)
//	cache := colmap.NewDatabaseCache(colmap.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations. Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &colmap.BasicMetricsCollector{}
//	cache := colmap.NewDatabaseCache(colmap.WithMetricsCollector(metrics))
//	// ... load ...
//	stats := metrics.GetStats()
//	fmt.Printf("Loads: %d, Images: %d\n", stats.LoadCount, stats.ImagesLoaded)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metrics = mc
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		logger:  NoopLogger(),
		metrics: NoopMetricsCollector{},
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	if o.metrics == nil {
		o.metrics = NoopMetricsCollector{}
	}
	return o
}

// LoadOptions controls which records a Load pass admits into the cache.
type LoadOptions struct {
	// MinNumMatches drops image pairs whose verified inlier count is below
	// this threshold. Must be non-negative.
	MinNumMatches int

	// IgnoreWatermarks drops image pairs flagged as watermark pairs,
	// regardless of their match count.
	IgnoreWatermarks bool

	// ImageNames restricts the load to the named images. All images are
	// loaded when empty. A name that does not resolve aborts the load.
	ImageNames []string
}

// DefaultLoadOptions admits every image and every verified pair.
var DefaultLoadOptions = LoadOptions{
	MinNumMatches:    0,
	IgnoreWatermarks: false,
	ImageNames:       nil,
}

// WithMinNumMatches sets the minimum verified inlier count an image pair
// needs to enter the correspondence graph.
func WithMinNumMatches(n int) func(*LoadOptions) {
	return func(o *LoadOptions) {
		o.MinNumMatches = n
	}
}

// WithIgnoreWatermarks excludes image pairs flagged as watermark pairs.
func WithIgnoreWatermarks(ignore bool) func(*LoadOptions) {
	return func(o *LoadOptions) {
		o.IgnoreWatermarks = ignore
	}
}

// WithImageNames restricts the load to the given image names.
func WithImageNames(names []string) func(*LoadOptions) {
	return func(o *LoadOptions) {
		o.ImageNames = names
	}
}
