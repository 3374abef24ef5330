package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GriffinCanCode/AgentOS/fdchannel/internal/descriptor/status"
)

// Metrics holds all Prometheus metrics. Each instance owns its registry, so
// several can coexist in one process (tests, embedded use).
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Descriptor metrics
	DescriptorsOpen   *prometheus.GaugeVec
	DescriptorsTotal  *prometheus.CounterVec
	DescriptorsLeaked *prometheus.CounterVec

	// Status channel metrics
	StatusWrittenTotal  *prometheus.CounterVec
	StatusReadTotal     *prometheus.CounterVec
	StatusWriteFailures prometheus.Counter

	startTime time.Time

	// Snapshot for the JSON API
	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds current metric values for the JSON API
type Snapshot struct {
	OpenDescriptors     int64            `json:"open_descriptors"`
	TotalDescriptors    int64            `json:"total_descriptors"`
	LeakedDescriptors   int64            `json:"leaked_descriptors"`
	StatusWritten       map[string]int64 `json:"status_written"`
	StatusRead          map[string]int64 `json:"status_read"`
	StatusWriteFailures int64            `json:"status_write_failures"`
	UptimeSeconds       float64          `json:"uptime_seconds"`
}

// NewMetrics creates a new metrics collector with its own registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),
		snapshot: Snapshot{
			StatusWritten: make(map[string]int64),
			StatusRead:    make(map[string]int64),
		},

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fdchannel_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fdchannel_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"method", "path"},
		),

		DescriptorsOpen: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fdchannel_descriptors_open",
				Help: "Number of open descriptors",
			},
			[]string{"kind"},
		),
		DescriptorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fdchannel_descriptors_total",
				Help: "Total number of descriptors created",
			},
			[]string{"kind"},
		),
		DescriptorsLeaked: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fdchannel_descriptors_leaked_total",
				Help: "Descriptors closed by the finalizer instead of their owner",
			},
			[]string{"kind"},
		),

		StatusWrittenTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fdchannel_status_written_total",
				Help: "Status frames delivered to peers",
			},
			[]string{"status"},
		),
		StatusReadTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fdchannel_status_read_total",
				Help: "Peer statuses resolved, including inferred dead peers",
			},
			[]string{"status"},
		),
		StatusWriteFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "fdchannel_status_write_failures_total",
				Help: "Status writes that failed and were dropped",
			},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "fdchannel_uptime_seconds",
			Help: "Seconds since the metrics collector was created",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Registry returns the registry backing these metrics
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// DescriptorOpened records a new descriptor
func (m *Metrics) DescriptorOpened(kind string) {
	m.DescriptorsOpen.WithLabelValues(kind).Inc()
	m.DescriptorsTotal.WithLabelValues(kind).Inc()

	m.mu.Lock()
	m.snapshot.OpenDescriptors++
	m.snapshot.TotalDescriptors++
	m.mu.Unlock()
}

// DescriptorClosed records a closed or detached descriptor
func (m *Metrics) DescriptorClosed(kind string) {
	m.DescriptorsOpen.WithLabelValues(kind).Dec()

	m.mu.Lock()
	m.snapshot.OpenDescriptors--
	m.mu.Unlock()
}

// DescriptorLeaked records a descriptor reclaimed by the finalizer
func (m *Metrics) DescriptorLeaked(kind string) {
	m.DescriptorsLeaked.WithLabelValues(kind).Inc()

	m.mu.Lock()
	m.snapshot.LeakedDescriptors++
	m.mu.Unlock()
}

// StatusWritten records a status frame sent to a peer
func (m *Metrics) StatusWritten(code status.Code) {
	m.StatusWrittenTotal.WithLabelValues(code.String()).Inc()

	m.mu.Lock()
	m.snapshot.StatusWritten[code.String()]++
	m.mu.Unlock()
}

// StatusRead records a resolved peer status
func (m *Metrics) StatusRead(code status.Code) {
	m.StatusReadTotal.WithLabelValues(code.String()).Inc()

	m.mu.Lock()
	m.snapshot.StatusRead[code.String()]++
	m.mu.Unlock()
}

// StatusWriteFailed records a dropped status write
func (m *Metrics) StatusWriteFailed() {
	m.StatusWriteFailures.Inc()

	m.mu.Lock()
	m.snapshot.StatusWriteFailures++
	m.mu.Unlock()
}

// GetSnapshot returns a copy of the current values
func (m *Metrics) GetSnapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := m.snapshot
	snap.StatusWritten = copyCounts(m.snapshot.StatusWritten)
	snap.StatusRead = copyCounts(m.snapshot.StatusRead)
	snap.UptimeSeconds = time.Since(m.startTime).Seconds()
	return snap
}

func copyCounts(in map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
