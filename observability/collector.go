// Package observability exports appendbuf metrics to Prometheus.
package observability

import (
	"errors"
	"time"

	"github.com/hupe1980/appendbuf"
	"github.com/hupe1980/appendbuf/block"
	"github.com/hupe1980/appendbuf/resource"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector implements appendbuf.MetricsCollector on Prometheus metrics.
type Collector struct {
	allocations     *prometheus.CounterVec
	allocateLatency prometheus.Histogram
	fills           prometheus.Counter
	truncatedFills  prometheus.Counter
	bytesRequested  prometheus.Counter
	bytesWritten    prometheus.Counter
	slices          prometheus.Counter
	releases        *prometheus.CounterVec
	leaks           prometheus.Counter

	reg       prometheus.Registerer
	namespace string
}

var _ appendbuf.MetricsCollector = (*Collector)(nil)

// NewCollector registers the appendbuf metrics with reg under namespace.
// A nil reg uses prometheus.DefaultRegisterer.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		reg:       reg,
		namespace: namespace,
		allocations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "allocations_total",
			Help:      "Block allocations by result",
		}, []string{"result"}),
		allocateLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "allocate_duration_seconds",
			Help:      "Time spent allocating a block for a new buffer",
			Buckets:   prometheus.ExponentialBuckets(1e-7, 10, 7),
		}),
		fills: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fills_total",
			Help:      "Append calls",
		}),
		truncatedFills: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "truncated_fills_total",
			Help:      "Append calls that did not fit entirely",
		}),
		bytesRequested: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requested_bytes_total",
			Help:      "Bytes offered to append calls",
		}),
		bytesWritten: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "written_bytes_total",
			Help:      "Bytes committed by append calls",
		}),
		slices: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slices_total",
			Help:      "Views taken from buffers",
		}),
		releases: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "block_releases_total",
			Help:      "Blocks returned to their source by result",
		}, []string{"result"}),
		leaks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "leaked_handles_total",
			Help:      "Handles garbage collected without Close or Release",
		}),
	}
}

func allocResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, appendbuf.ErrAllocationExhausted), errors.Is(err, block.ErrExhausted):
		return "exhausted"
	default:
		return "error"
	}
}

// RecordAllocate implements appendbuf.MetricsCollector.
func (c *Collector) RecordAllocate(d time.Duration, err error) {
	c.allocations.WithLabelValues(allocResult(err)).Inc()
	c.allocateLatency.Observe(d.Seconds())
}

// RecordFill implements appendbuf.MetricsCollector.
func (c *Collector) RecordFill(requested, written int) {
	c.fills.Inc()
	c.bytesRequested.Add(float64(requested))
	c.bytesWritten.Add(float64(written))
	if written < requested {
		c.truncatedFills.Inc()
	}
}

// RecordSlice implements appendbuf.MetricsCollector.
func (c *Collector) RecordSlice() {
	c.slices.Inc()
}

// RecordRelease implements appendbuf.MetricsCollector.
func (c *Collector) RecordRelease(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.releases.WithLabelValues(result).Inc()
}

// RecordLeak implements appendbuf.MetricsCollector.
func (c *Collector) RecordLeak() {
	c.leaks.Inc()
}

// RegisterPool exports the occupancy of p as gauges labelled with name.
func (c *Collector) RegisterPool(name string, p *block.Pool) error {
	labels := prometheus.Labels{"pool": name}
	return c.register(
		c.gauge("pool_blocks_in_use", "Blocks currently held by buffers", labels,
			func() float64 { return float64(p.InUse()) }),
		c.gauge("pool_blocks_free", "Blocks available for allocation", labels,
			func() float64 { return float64(p.Free()) }),
		c.counter("pool_allocation_failures_total", "Allocations the pool refused", labels,
			func() float64 { return float64(p.Stats().Failures) }),
	)
}

// RegisterArena exports the growth and occupancy of a as gauges labelled with name.
func (c *Collector) RegisterArena(name string, a *block.Arena) error {
	labels := prometheus.Labels{"arena": name}
	return c.register(
		c.gauge("arena_blocks_in_use", "Blocks currently held by buffers", labels,
			func() float64 { return float64(a.InUse()) }),
		c.gauge("arena_chunks", "Chunks mapped by the arena", labels,
			func() float64 { return float64(a.Chunks()) }),
		c.gauge("arena_reserved_bytes", "Bytes held by the arena's chunks", labels,
			func() float64 { return float64(a.Reserved()) }),
		c.counter("arena_allocation_failures_total", "Allocations the arena refused", labels,
			func() float64 { return float64(a.Stats().Failures) }),
	)
}

// RegisterController exports the budgets tracked by rc.
func (c *Collector) RegisterController(rc *resource.Controller) error {
	return c.register(
		c.gauge("memory_used_bytes", "Bytes reserved against the memory budget", nil,
			func() float64 { return float64(rc.Stats().MemoryUsed) }),
		c.gauge("memory_limit_bytes", "Memory budget, zero when unlimited", nil,
			func() float64 { return float64(rc.Stats().MemoryLimit) }),
		c.counter("memory_rejections_total", "Reservations refused by the memory budget", nil,
			func() float64 { return float64(rc.Stats().MemoryRejections) }),
		c.gauge("background_jobs_active", "Background jobs holding a worker slot", nil,
			func() float64 { return float64(rc.Stats().BackgroundActive) }),
		c.counter("io_bytes_total", "Bytes charged against the IO budget", nil,
			func() float64 { return float64(rc.Stats().IOBytes) }),
	)
}

func (c *Collector) gauge(name, help string, labels prometheus.Labels, fn func() float64) prometheus.Collector {
	return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   c.namespace,
		Name:        name,
		Help:        help,
		ConstLabels: labels,
	}, fn)
}

func (c *Collector) counter(name, help string, labels prometheus.Labels, fn func() float64) prometheus.Collector {
	return prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace:   c.namespace,
		Name:        name,
		Help:        help,
		ConstLabels: labels,
	}, fn)
}

func (c *Collector) register(cs ...prometheus.Collector) error {
	for _, col := range cs {
		if err := c.reg.Register(col); err != nil {
			return err
		}
	}
	return nil
}
