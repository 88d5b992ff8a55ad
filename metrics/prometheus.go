package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// namePrefix scopes every registered metric name to this module's domain.
const namePrefix = "xln_metrics_"

// InitializePrometheusMetrics switches the package-wide backend to a real
// Prometheus registry. Safe to call once at process start; later calls are
// no-ops so tests and a long-lived process can both call it defensively.
func InitializePrometheusMetrics() {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	if _, already := metrics.(*promMetrics); already {
		return
	}
	metrics = newPromMetrics()
}

type promMetrics struct {
	mu         sync.Mutex
	counters   map[string]*promCountMeter
	counterVec map[string]*promCountVecMeter
	gauges     map[string]*promGaugeMeter
	gaugeVec   map[string]*promGaugeVecMeter
	hists      map[string]*promHistogramMeter
	histVec    map[string]*promHistogramVecMeter
}

func newPromMetrics() *promMetrics {
	return &promMetrics{
		counters:   make(map[string]*promCountMeter),
		counterVec: make(map[string]*promCountVecMeter),
		gauges:     make(map[string]*promGaugeMeter),
		gaugeVec:   make(map[string]*promGaugeVecMeter),
		hists:      make(map[string]*promHistogramMeter),
		histVec:    make(map[string]*promHistogramVecMeter),
	}
}

func (p *promMetrics) Counter(name string) CountMeter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if m, ok := p.counters[name]; ok {
		return m
	}
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: namePrefix + name})
	prometheus.MustRegister(c)
	m := &promCountMeter{c: c}
	p.counters[name] = m
	return m
}

func (p *promMetrics) CounterVec(name string, labels []string) CountVecMeter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if m, ok := p.counterVec[name]; ok {
		return m
	}
	v := prometheus.NewCounterVec(prometheus.CounterOpts{Name: namePrefix + name}, labels)
	prometheus.MustRegister(v)
	m := &promCountVecMeter{v: v, labels: labels}
	p.counterVec[name] = m
	return m
}

func (p *promMetrics) Gauge(name string) GaugeMeter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if m, ok := p.gauges[name]; ok {
		return m
	}
	g := prometheus.NewGauge(prometheus.GaugeOpts{Name: namePrefix + name})
	prometheus.MustRegister(g)
	m := &promGaugeMeter{g: g}
	p.gauges[name] = m
	return m
}

func (p *promMetrics) GaugeVec(name string, labels []string) GaugeVecMeter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if m, ok := p.gaugeVec[name]; ok {
		return m
	}
	v := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: namePrefix + name}, labels)
	prometheus.MustRegister(v)
	m := &promGaugeVecMeter{v: v, labels: labels}
	p.gaugeVec[name] = m
	return m
}

func (p *promMetrics) Histogram(name string, buckets []float64) HistogramMeter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if m, ok := p.hists[name]; ok {
		return m
	}
	opts := prometheus.HistogramOpts{Name: namePrefix + name}
	if buckets != nil {
		opts.Buckets = buckets
	}
	h := prometheus.NewHistogram(opts)
	prometheus.MustRegister(h)
	m := &promHistogramMeter{h: h}
	p.hists[name] = m
	return m
}

func (p *promMetrics) HistogramVec(name string, labels []string, buckets []float64) HistogramVecMeter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if m, ok := p.histVec[name]; ok {
		return m
	}
	opts := prometheus.HistogramOpts{Name: namePrefix + name}
	if buckets != nil {
		opts.Buckets = buckets
	}
	v := prometheus.NewHistogramVec(opts, labels)
	prometheus.MustRegister(v)
	m := &promHistogramVecMeter{v: v, labels: labels}
	p.histVec[name] = m
	return m
}

type promCountMeter struct{ c prometheus.Counter }

func (m *promCountMeter) Add(value int64) { m.c.Add(float64(value)) }

type promGaugeMeter struct{ g prometheus.Gauge }

func (m *promGaugeMeter) Add(value int64) { m.g.Add(float64(value)) }

type promHistogramMeter struct{ h prometheus.Histogram }

func (m *promHistogramMeter) Observe(value int64) { m.h.Observe(float64(value)) }

type promCountVecMeter struct {
	v      *prometheus.CounterVec
	labels []string
}

func (m *promCountVecMeter) AddWithLabel(value int64, labels map[string]string) {
	m.v.With(labelValues(m.labels, labels)).Add(float64(value))
}

type promGaugeVecMeter struct {
	v      *prometheus.GaugeVec
	labels []string
}

func (m *promGaugeVecMeter) AddWithLabel(value int64, labels map[string]string) {
	m.v.With(labelValues(m.labels, labels)).Add(float64(value))
}

type promHistogramVecMeter struct {
	v      *prometheus.HistogramVec
	labels []string
}

func (m *promHistogramVecMeter) ObserveWithLabels(value int64, labels map[string]string) {
	m.v.With(labelValues(m.labels, labels)).Observe(float64(value))
}

// labelValues builds a prometheus.Labels from declared names, defaulting
// any name absent from values to "" so a mismatched/extraneous caller
// label map (as noop_test.go's "thisIsNonsense" cases exercise for the
// noop backend) never panics against the prometheus backend either.
func labelValues(names []string, values map[string]string) prometheus.Labels {
	out := make(prometheus.Labels, len(names))
	for _, n := range names {
		out[n] = values[n]
	}
	return out
}
