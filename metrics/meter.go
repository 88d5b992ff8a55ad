// Package metrics provides a lazily-backed meter registry: a
// package-level Metrics implementation starts as a no-op and can be
// switched, once, to a real Prometheus registry via
// InitializePrometheusMetrics. Call sites never know which backend is
// live — they look the meter up by name every time (or cache it with
// LazyLoad*) and call Add/Observe on whatever comes back.
package metrics

import "sync"

// CountMeter is a monotonically increasing counter.
type CountMeter interface {
	Add(value int64)
}

// GaugeMeter is a value that can move in either direction.
type GaugeMeter interface {
	Add(value int64)
}

// HistogramMeter records individual observations.
type HistogramMeter interface {
	Observe(value int64)
}

// CountVecMeter is a counter family keyed by label values.
type CountVecMeter interface {
	AddWithLabel(value int64, labels map[string]string)
}

// GaugeVecMeter is a gauge family keyed by label values.
type GaugeVecMeter interface {
	AddWithLabel(value int64, labels map[string]string)
}

// HistogramVecMeter is a histogram family keyed by label values.
type HistogramVecMeter interface {
	ObserveWithLabels(value int64, labels map[string]string)
}

// Metrics is the backend contract: create-or-fetch a named meter.
type Metrics interface {
	Counter(name string) CountMeter
	CounterVec(name string, labels []string) CountVecMeter
	Gauge(name string) GaugeMeter
	GaugeVec(name string, labels []string) GaugeVecMeter
	Histogram(name string, buckets []float64) HistogramMeter
	HistogramVec(name string, labels []string, buckets []float64) HistogramVecMeter
}

// metrics is the live package-wide backend, protected by metricsMu so
// InitializePrometheusMetrics can swap it exactly once without racing
// concurrent lookups.
var (
	metricsMu sync.RWMutex
	metrics   Metrics = defaultNoopMetrics()
)

func current() Metrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return metrics
}

// Counter returns the named counter, creating it on first use.
func Counter(name string) CountMeter { return current().Counter(name) }

// CounterVec returns the named counter family, creating it on first use.
func CounterVec(name string, labels []string) CountVecMeter { return current().CounterVec(name, labels) }

// Gauge returns the named gauge, creating it on first use.
func Gauge(name string) GaugeMeter { return current().Gauge(name) }

// GaugeVec returns the named gauge family, creating it on first use.
func GaugeVec(name string, labels []string) GaugeVecMeter { return current().GaugeVec(name, labels) }

// Histogram returns the named histogram, creating it on first use. A nil
// buckets argument uses the backend's default bucket boundaries.
func Histogram(name string, buckets []float64) HistogramMeter { return current().Histogram(name, buckets) }

// HistogramVec returns the named histogram family, creating it on first use.
func HistogramVec(name string, labels []string, buckets []float64) HistogramVecMeter {
	return current().HistogramVec(name, labels, buckets)
}

// LazyLoadCounter defers the Counter(name) lookup to the first call of the
// returned func, and caches it — so a meter obtained before
// InitializePrometheusMetrics runs still resolves to the real backend if
// first invoked afterward.
func LazyLoadCounter(name string) func() CountMeter {
	var once sync.Once
	var m CountMeter
	return func() CountMeter {
		once.Do(func() { m = Counter(name) })
		return m
	}
}

func LazyLoadCounterVec(name string, labels []string) func() CountVecMeter {
	var once sync.Once
	var m CountVecMeter
	return func() CountVecMeter {
		once.Do(func() { m = CounterVec(name, labels) })
		return m
	}
}

func LazyLoadGauge(name string) func() GaugeMeter {
	var once sync.Once
	var m GaugeMeter
	return func() GaugeMeter {
		once.Do(func() { m = Gauge(name) })
		return m
	}
}

func LazyLoadGaugeVec(name string, labels []string) func() GaugeVecMeter {
	var once sync.Once
	var m GaugeVecMeter
	return func() GaugeVecMeter {
		once.Do(func() { m = GaugeVec(name, labels) })
		return m
	}
}

func LazyLoadHistogram(name string, buckets []float64) func() HistogramMeter {
	var once sync.Once
	var m HistogramMeter
	return func() HistogramMeter {
		once.Do(func() { m = Histogram(name, buckets) })
		return m
	}
}

func LazyLoadHistogramVec(name string, labels []string, buckets []float64) func() HistogramVecMeter {
	var once sync.Once
	var m HistogramVecMeter
	return func() HistogramVecMeter {
		once.Do(func() { m = HistogramVec(name, labels, buckets) })
		return m
	}
}

// noopMeters satisfies every meter interface with a discard.
type noopMeters struct{}

func (*noopMeters) Add(int64)                                 {}
func (*noopMeters) Observe(int64)                              {}
func (*noopMeters) AddWithLabel(int64, map[string]string)      {}
func (*noopMeters) ObserveWithLabels(int64, map[string]string) {}

type noopMetricsImpl struct{ shared *noopMeters }

func defaultNoopMetrics() Metrics { return &noopMetricsImpl{shared: &noopMeters{}} }

func (n *noopMetricsImpl) Counter(string) CountMeter                             { return n.shared }
func (n *noopMetricsImpl) CounterVec(string, []string) CountVecMeter             { return n.shared }
func (n *noopMetricsImpl) Gauge(string) GaugeMeter                               { return n.shared }
func (n *noopMetricsImpl) GaugeVec(string, []string) GaugeVecMeter               { return n.shared }
func (n *noopMetricsImpl) Histogram(string, []float64) HistogramMeter           { return n.shared }
func (n *noopMetricsImpl) HistogramVec(string, []string, []float64) HistogramVecMeter {
	return n.shared
}
