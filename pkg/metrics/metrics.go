package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CycleCountMetrics records finalize and product lookup activity.
type CycleCountMetrics struct {
	finalize      *prometheus.CounterVec
	finalizeTime  *prometheus.HistogramVec
	pairs         prometheus.Histogram
	scans         prometheus.Counter
	productLookup *prometheus.CounterVec
}

// NewCycleCountMetrics registers the collectors on the provided registerer.
func NewCycleCountMetrics(reg prometheus.Registerer) *CycleCountMetrics {
	if reg == nil {
		return &CycleCountMetrics{}
	}
	finalize := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cyclecount_finalize_total",
		Help: "Finalize attempts by decision and outcome.",
	}, []string{"decision", "outcome"})
	finalizeTime := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cyclecount_finalize_duration_seconds",
		Help:    "Duration of finalize transactions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"decision"})
	pairs := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cyclecount_reconciled_pairs",
		Help:    "Location/product pairs overwritten per accepted session.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})
	scans := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cyclecount_scans_total",
		Help: "Individual counts recorded.",
	})
	productLookup := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cyclecount_product_lookup_total",
		Help: "External product lookups by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(finalize, finalizeTime, pairs, scans, productLookup)
	return &CycleCountMetrics{
		finalize:      finalize,
		finalizeTime:  finalizeTime,
		pairs:         pairs,
		scans:         scans,
		productLookup: productLookup,
	}
}

// ObserveFinalize records one finalize attempt.
func (m *CycleCountMetrics) ObserveFinalize(decision, outcome string, duration time.Duration) {
	if m == nil || m.finalize == nil {
		return
	}
	m.finalize.WithLabelValues(normalizeLabel(decision), normalizeLabel(outcome)).Inc()
	m.finalizeTime.WithLabelValues(normalizeLabel(decision)).Observe(duration.Seconds())
}

// ObservePairs records how many ledger pairs an accepted session touched.
func (m *CycleCountMetrics) ObservePairs(n int) {
	if m == nil || m.pairs == nil {
		return
	}
	m.pairs.Observe(float64(n))
}

func (m *CycleCountMetrics) IncScan() {
	if m == nil || m.scans == nil {
		return
	}
	m.scans.Inc()
}

// IncProductLookup counts a lookup outcome such as hit, miss, error or cache_hit.
func (m *CycleCountMetrics) IncProductLookup(outcome string) {
	if m == nil || m.productLookup == nil {
		return
	}
	m.productLookup.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
