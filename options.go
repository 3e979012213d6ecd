package appendbuf

import (
	"log/slog"

	"github.com/hupe1980/appendbuf/resource"
)

type options struct {
	metricsCollector MetricsCollector
	logger           *Logger
	controller       *resource.Controller
	leakDetection    bool
}

// Option configures a Buffer at construction.
type Option func(*options)

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &appendbuf.BasicMetricsCollector{}
//	buf, _ := appendbuf.New(pool, appendbuf.WithMetricsCollector(metrics))
//	// ... use buf ...
//	stats := metrics.GetStats()
//	fmt.Printf("Fills: %d, truncated: %d\n", stats.FillCount, stats.Truncations)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := appendbuf.NewJSONLogger(slog.LevelDebug)
//	buf, _ := appendbuf.New(pool, appendbuf.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
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

// WithResourceController throttles ReadFromContext through rc's IO limit.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.controller = rc
	}
}

// WithLeakDetection registers a cleanup on every Buffer and Slice that
// reports handles garbage collected without Close or Release. Leaked
// handles are reported, never reclaimed: their bytes may still be in use
// through slices returned by Bytes.
func WithLeakDetection(enabled bool) Option {
	return func(o *options) {
		o.leakDetection = enabled
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
