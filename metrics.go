package procfixture

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const metricsNamespace = "procfixture"

// Metrics holds the collectors of one server. Each server owns its registry
// so tests and multiple servers in one process do not collide.
type Metrics struct {
	Registry *prometheus.Registry

	// HTTPRequests counts requests by method, path and status
	HTTPRequests *prometheus.CounterVec
	// HTTPDuration observes request latency by method, path and status
	HTTPDuration *prometheus.HistogramVec
	// FaultsInjected counts fault routes served, by fault
	FaultsInjected *prometheus.CounterVec
	// FaultsRaised counts raised errors by type and whether they were recovered in-fault
	FaultsRaised *prometheus.CounterVec
	// StressWorkers tracks stress workers still running
	StressWorkers prometheus.Gauge
	// MemoryAllocated counts bytes allocated by memory faults
	MemoryAllocated prometheus.Counter
}

// NewMetrics creates and registers the collectors on a fresh registry,
// together with the Go runtime and process collectors a monitor can scrape.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		FaultsInjected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "faults",
				Name:      "injected_total",
				Help:      "Fault routes served, by fault.",
			},
			[]string{"fault"},
		),
		FaultsRaised: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "faults",
				Name:      "raised_total",
				Help:      "Errors raised by faults, by type and whether they were recovered inside the fault.",
			},
			[]string{"type", "handled"},
		),
		StressWorkers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: "stress",
				Name:      "workers_active",
				Help:      "Stress workers still running.",
			},
		),
		MemoryAllocated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "memory",
				Name:      "allocated_bytes_total",
				Help:      "Bytes allocated by memory faults.",
			},
		),
	}
	m.Registry.MustRegister(
		m.HTTPRequests,
		m.HTTPDuration,
		m.FaultsInjected,
		m.FaultsRaised,
		m.StressWorkers,
		m.MemoryAllocated,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// RecordHTTPRequest records one served request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	statusLabel := strconv.Itoa(status)
	m.HTTPRequests.WithLabelValues(method, path, statusLabel).Inc()
	m.HTTPDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

// RecordFault counts a served fault route
func (m *Metrics) RecordFault(f Fault) {
	if m == nil {
		return
	}
	m.FaultsInjected.WithLabelValues(f.String()).Inc()
}

// RecordRaised counts a raised error
func (m *Metrics) RecordRaised(err error, handled bool) {
	if m == nil {
		return
	}
	m.FaultsRaised.WithLabelValues(ErrorType(err), strconv.FormatBool(handled)).Inc()
}

func (m *Metrics) addWorkers(n int) {
	if m == nil {
		return
	}
	m.StressWorkers.Add(float64(n))
}

func (m *Metrics) addAllocated(n int) {
	if m == nil {
		return
	}
	m.MemoryAllocated.Add(float64(n))
}
