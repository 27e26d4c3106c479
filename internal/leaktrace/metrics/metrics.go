// Package metrics exposes tracer counters as a prometheus collector, so a
// long-running process can watch its leak-candidate population over time
// instead of polling snapshots by hand.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kolkov/leaktracer/internal/leaktrace/hook"
)

const namespace = "leaktracer"

// Collector reads a tracer's stats on every scrape. It holds no state of
// its own, so registering one costs nothing between scrapes.
type Collector struct {
	tracer *hook.Tracer

	liveAllocs     *prometheus.Desc
	liveBytes      *prometheus.Desc
	trackedTotal   *prometheus.Desc
	skippedTotal   *prometheus.Desc
	untrackedFrees *prometheus.Desc
	reallocsTotal  *prometheus.Desc
}

// NewCollector creates a collector for t. Register it with a
// prometheus.Registerer to expose the metrics.
func NewCollector(t *hook.Tracer) *Collector {
	return &Collector{
		tracer: t,
		liveAllocs: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "live_allocations"),
			"Number of tracked allocations currently outstanding (leak candidates).",
			nil, nil,
		),
		liveBytes: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "live_bytes"),
			"Requested bytes of tracked allocations currently outstanding.",
			nil, nil,
		),
		trackedTotal: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "tracked_allocations_total"),
			"Allocations recorded since the tracer was constructed.",
			nil, nil,
		),
		skippedTotal: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "skipped_allocations_total"),
			"Allocations that bypassed tracking, by reason.",
			[]string{"reason"}, nil,
		),
		untrackedFrees: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "untracked_frees_total"),
			"Deallocations of addresses that had no record.",
			nil, nil,
		),
		reallocsTotal: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "reallocations_total"),
			"Resize operations observed.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.liveAllocs
	ch <- c.liveBytes
	ch <- c.trackedTotal
	ch <- c.skippedTotal
	ch <- c.untrackedFrees
	ch <- c.reallocsTotal
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.tracer.Stats()
	ch <- prometheus.MustNewConstMetric(c.liveAllocs, prometheus.GaugeValue, float64(s.Live))
	ch <- prometheus.MustNewConstMetric(c.liveBytes, prometheus.GaugeValue, float64(s.LiveBytes))
	ch <- prometheus.MustNewConstMetric(c.trackedTotal, prometheus.CounterValue, float64(s.Tracked))
	ch <- prometheus.MustNewConstMetric(c.skippedTotal, prometheus.CounterValue,
		float64(s.SkippedDisabled), "disabled")
	ch <- prometheus.MustNewConstMetric(c.skippedTotal, prometheus.CounterValue,
		float64(s.SkippedReentrant), "reentrant")
	ch <- prometheus.MustNewConstMetric(c.untrackedFrees, prometheus.CounterValue, float64(s.UntrackedFrees))
	ch <- prometheus.MustNewConstMetric(c.reallocsTotal, prometheus.CounterValue, float64(s.Reallocs))
}
