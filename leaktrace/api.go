// Package leaktrace provides the public API for the allocation leak tracer.
//
// See doc.go for detailed documentation and examples.
package leaktrace

import (
	"io"

	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kolkov/leaktracer/internal/leaktrace/frames"
	"github.com/kolkov/leaktracer/internal/leaktrace/hook"
	"github.com/kolkov/leaktracer/internal/leaktrace/metrics"
	"github.com/kolkov/leaktracer/internal/leaktrace/record"
	"github.com/kolkov/leaktracer/internal/leaktrace/report"
	"github.com/kolkov/leaktracer/internal/leaktrace/sysalloc"
)

// Tracer is the allocator hook. Aliased rather than wrapped so that calling
// Allocate through this package adds no extra frame above the allocation
// site; the captured stack starts at the caller either way.
type Tracer = hook.Tracer

// Allocator is the raw allocator interface a Tracer wraps.
type Allocator = hook.Allocator

// Reallocator is optionally implemented by raw allocators that resize
// in place.
type Reallocator = hook.Reallocator

// Record is one leak candidate: a live allocation with its captured stack.
type Record = record.Allocation

// Frame is one symbolized stack entry of a Record.
type Frame = frames.Frame

// Stats is a snapshot of a tracer's counters.
type Stats = hook.Stats

// MaxFrames is the hard ceiling on configurable capture depth.
const MaxFrames = frames.MaxFrames

// DefaultMaxFrames is the capture depth used when none is configured.
const DefaultMaxFrames = frames.DefaultMax

// Option configures a Tracer at construction.
type Option func(*config)

type config struct {
	raw       Allocator
	maxFrames int
	logger    hclog.Logger
}

// WithMaxFrames sets the stack depth captured per allocation. Values below
// 1 keep the default of DefaultMaxFrames; values above MaxFrames are
// clamped. The depth is fixed for the tracer's lifetime.
func WithMaxFrames(n int) Option {
	return func(c *config) {
		if n >= 1 {
			c.maxFrames = n
		}
	}
}

// WithAllocator sets the raw allocator the tracer wraps. The default is the
// platform system allocator (anonymous mmap on unix).
func WithAllocator(a Allocator) Option {
	return func(c *config) {
		c.raw = a
	}
}

// WithLogger sets the logger for debug-level tracking events. The default
// logger discards everything.
func WithLogger(l hclog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// New constructs a tracer with tracking enabled.
//
// Construct the tracer before the first allocation it is meant to observe;
// blocks allocated on the raw allocator beforehand are invisible to it.
func New(opts ...Option) *Tracer {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.raw == nil {
		cfg.raw = sysalloc.System()
	}
	return hook.New(hook.Config{
		Raw:       cfg.raw,
		MaxFrames: cfg.maxFrames,
		Logger:    cfg.logger,
	})
}

// defaultTracer is the process-wide tracer. Package variable initialization
// runs before any application code, so the singleton exists before the
// first allocation that could route through it.
var defaultTracer = New()

// Default returns the process-wide tracer, backed by the system allocator
// with default settings. Allocate directly on the returned tracer; the
// package-level functions below cover the control plane and diagnostics.
func Default() *Tracer {
	return defaultTracer
}

// Enable turns tracking on for subsequent allocations on the default tracer.
func Enable() {
	defaultTracer.Enable()
}

// Disable turns tracking off for subsequent allocations on the default
// tracer. Deallocations still remove their records.
func Disable() {
	defaultTracer.Disable()
}

// Enabled reports whether the default tracer records new allocations.
func Enabled() bool {
	return defaultTracer.Enabled()
}

// Leaks returns a point-in-time copy of the default tracer's live records.
func Leaks() map[uintptr]Record {
	return defaultTracer.Leaks()
}

// GetStats returns the default tracer's counters.
func GetStats() Stats {
	return defaultTracer.Stats()
}

// Summary formats a leak snapshot as a per-site table, largest leak first.
func Summary(leaks map[uintptr]Record) string {
	return report.Summary(leaks)
}

// WriteReport dumps every leak candidate with its full stack to w.
func WriteReport(w io.Writer, leaks map[uintptr]Record) error {
	return report.Write(w, leaks)
}

// NewCollector returns a prometheus collector reading t's stats on every
// scrape. Pass Default() to monitor the process-wide tracer.
func NewCollector(t *Tracer) prometheus.Collector {
	return metrics.NewCollector(t)
}
