package prometheus

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/klwxsrx/go-throttle/pkg/metric"
	pkgstrings "github.com/klwxsrx/go-throttle/pkg/strings"
)

type (
	Option func(*collectors)

	collectors struct {
		namespace  string
		registerer prometheus.Registerer
		buckets    []float64

		mutex      sync.Mutex
		counters   map[string]*prometheus.CounterVec
		gauges     map[string]*prometheus.GaugeVec
		histograms map[string]*prometheus.HistogramVec
	}

	metrics struct {
		collectors *collectors
		labels     metric.Labels
	}
)

func WithNamespace(namespace string) Option {
	return func(c *collectors) {
		c.namespace = pkgstrings.ToSnakeCase(namespace)
	}
}

func WithBuckets(buckets ...float64) Option {
	return func(c *collectors) {
		c.buckets = buckets
	}
}

// New creates metric collectors lazily, on first use of a key.
// A key reused with a different label set is silently ignored.
func New(registerer prometheus.Registerer, opts ...Option) metric.Metrics {
	c := &collectors{
		registerer: registerer,
		buckets:    prometheus.DefBuckets,
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
	for _, opt := range opts {
		opt(c)
	}

	return metrics{collectors: c}
}

func (m metrics) With(labels metric.Labels) metric.Metrics {
	if len(labels) == 0 {
		return m
	}

	merged := make(metric.Labels, len(m.labels)+len(labels))
	for k, v := range m.labels {
		merged[k] = v
	}
	for k, v := range labels {
		merged[k] = v
	}

	return metrics{collectors: m.collectors, labels: merged}
}

func (m metrics) WithLabel(name string, value any) metric.Metrics {
	return m.With(metric.Labels{name: value})
}

func (m metrics) Increment(key string) {
	m.Count(key, 1)
}

func (m metrics) Count(key string, value int) {
	if value < 0 {
		return
	}

	names, values := m.labelPairs()
	vec := m.collectors.counter(key, names)
	if vec == nil {
		return
	}

	counter, err := vec.GetMetricWithLabelValues(values...)
	if err != nil {
		return
	}
	counter.Add(float64(value))
}

func (m metrics) Gauge(key string, value int) {
	names, values := m.labelPairs()
	vec := m.collectors.gauge(key, names)
	if vec == nil {
		return
	}

	gauge, err := vec.GetMetricWithLabelValues(values...)
	if err != nil {
		return
	}
	gauge.Set(float64(value))
}

func (m metrics) Duration(key string, duration time.Duration) {
	names, values := m.labelPairs()
	vec := m.collectors.histogram(key, names)
	if vec == nil {
		return
	}

	observer, err := vec.GetMetricWithLabelValues(values...)
	if err != nil {
		return
	}
	observer.Observe(duration.Seconds())
}

func (m metrics) labelPairs() (names, values []string) {
	names = make([]string, 0, len(m.labels))
	for name := range m.labels {
		names = append(names, name)
	}
	sort.Strings(names)

	values = make([]string, 0, len(names))
	for _, name := range names {
		values = append(values, fmt.Sprint(m.labels[name]))
	}

	for i, name := range names {
		names[i] = pkgstrings.ToSnakeCase(name)
	}
	return names, values
}

func (c *collectors) counter(key string, labelNames []string) *prometheus.CounterVec {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	name := c.name(key)
	if vec, ok := c.counters[name]; ok {
		return vec
	}

	vec := prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: key}, labelNames)
	registered, ok := register(c.registerer, vec).(*prometheus.CounterVec)
	if !ok {
		return nil
	}

	c.counters[name] = registered
	return registered
}

func (c *collectors) gauge(key string, labelNames []string) *prometheus.GaugeVec {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	name := c.name(key)
	if vec, ok := c.gauges[name]; ok {
		return vec
	}

	vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: key}, labelNames)
	registered, ok := register(c.registerer, vec).(*prometheus.GaugeVec)
	if !ok {
		return nil
	}

	c.gauges[name] = registered
	return registered
}

func (c *collectors) histogram(key string, labelNames []string) *prometheus.HistogramVec {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	name := c.name(key)
	if vec, ok := c.histograms[name]; ok {
		return vec
	}

	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: name, Help: key, Buckets: c.buckets}, labelNames)
	registered, ok := register(c.registerer, vec).(*prometheus.HistogramVec)
	if !ok {
		return nil
	}

	c.histograms[name] = registered
	return registered
}

func (c *collectors) name(key string) string {
	name := pkgstrings.ToSnakeCase(key)
	if c.namespace == "" {
		return name
	}
	return c.namespace + "_" + name
}

func register(registerer prometheus.Registerer, collector prometheus.Collector) prometheus.Collector {
	err := registerer.Register(collector)
	if err == nil {
		return collector
	}

	var alreadyRegistered prometheus.AlreadyRegisteredError
	if errors.As(err, &alreadyRegistered) {
		return alreadyRegistered.ExistingCollector
	}
	return nil
}
