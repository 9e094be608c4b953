// Package metrics provides Prometheus metrics for the podium leaderboard service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Manager owns all Prometheus collectors for the service.
type Manager struct {
	namespace string
	subsystem string
	buckets   []float64
	registry  prometheus.Registerer

	// Submission path
	submissionsTotal prometheus.Counter
	submissionErrors prometheus.Counter

	// Read path
	leaderboardReads *prometheus.CounterVec // labeled by provenance: cache|store
	cacheFallbacks   prometheus.Counter
	cacheRebuilds    prometheus.Counter

	// Write-through pipeline
	writeThroughApplied prometheus.Counter
	writeThroughErrors  prometheus.Counter
	writeThroughDropped prometheus.Counter

	// Queue and workers
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueUtilization prometheus.Gauge
	workerCount      prometheus.Gauge

	// Live channel
	wsClients       prometheus.Gauge
	broadcastsTotal prometheus.Counter
	broadcastDrops  prometheus.Counter

	// Backend latency
	storeLatency prometheus.Histogram
	cacheLatency prometheus.Histogram

	// HTTP surface
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global manager backed by a custom registry so the default Go collectors do
// not leak into scrape output.
var globalManager *Manager                    //nolint:gochecknoglobals // singleton metrics manager
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // singleton registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers all collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "podium",
		subsystem: "leaderboard",
		buckets:   prometheus.DefBuckets,
		registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initCollectors()
	return m
}

func (m *Manager) initCollectors() {
	factory := func(name, help string) prometheus.CounterOpts {
		return prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      name,
			Help:      help,
		}
	}
	gaugeOpts := func(name, help string) prometheus.GaugeOpts {
		return prometheus.GaugeOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      name,
			Help:      help,
		}
	}
	histOpts := func(name, help string) prometheus.HistogramOpts {
		return prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      name,
			Help:      help,
			Buckets:   m.buckets,
		}
	}

	m.submissionsTotal = prometheus.NewCounter(factory("submissions_total", "Accepted score submissions."))
	m.submissionErrors = prometheus.NewCounter(factory("submission_errors_total", "Submissions rejected or failed."))

	m.leaderboardReads = prometheus.NewCounterVec(factory("reads_total", "Leaderboard reads by provenance."), []string{"source"})
	m.cacheFallbacks = prometheus.NewCounter(factory("cache_fallbacks_total", "Reads answered from the store because the cache failed or was empty."))
	m.cacheRebuilds = prometheus.NewCounter(factory("cache_rebuilds_total", "Full cache rebuilds from the store."))

	m.writeThroughApplied = prometheus.NewCounter(factory("write_through_applied_total", "Cache upserts applied by workers."))
	m.writeThroughErrors = prometheus.NewCounter(factory("write_through_errors_total", "Cache upserts that failed and were discarded."))
	m.writeThroughDropped = prometheus.NewCounter(factory("write_through_dropped_total", "Write-through updates dropped at enqueue time."))

	m.queueSize = prometheus.NewGauge(gaugeOpts("queue_size", "Current write-through queue depth."))
	m.queueCapacity = prometheus.NewGauge(gaugeOpts("queue_capacity", "Configured write-through queue capacity."))
	m.queueUtilization = prometheus.NewGauge(gaugeOpts("queue_utilization", "Queue depth over capacity, 0..1."))
	m.workerCount = prometheus.NewGauge(gaugeOpts("worker_count", "Write-through workers running."))

	m.wsClients = prometheus.NewGauge(gaugeOpts("ws_clients", "Connected WebSocket subscribers."))
	m.broadcastsTotal = prometheus.NewCounter(factory("broadcasts_total", "score_updated events published."))
	m.broadcastDrops = prometheus.NewCounter(factory("broadcast_drops_total", "Subscribers dropped for a full send buffer."))

	m.storeLatency = prometheus.NewHistogram(histOpts("store_latency_ms", "Score store call latency in milliseconds."))
	m.cacheLatency = prometheus.NewHistogram(histOpts("cache_latency_ms", "Rank cache call latency in milliseconds."))

	m.httpRequests = prometheus.NewCounterVec(factory("http_requests_total", "HTTP requests by endpoint, method and status."), []string{"endpoint", "method", "status"})
	m.httpRequestDuration = prometheus.NewHistogramVec(histOpts("http_request_duration_ms", "HTTP request duration in milliseconds."), []string{"endpoint", "method"})

	m.registry.MustRegister(
		m.submissionsTotal, m.submissionErrors,
		m.leaderboardReads, m.cacheFallbacks, m.cacheRebuilds,
		m.writeThroughApplied, m.writeThroughErrors, m.writeThroughDropped,
		m.queueSize, m.queueCapacity, m.queueUtilization, m.workerCount,
		m.wsClients, m.broadcastsTotal, m.broadcastDrops,
		m.storeLatency, m.cacheLatency,
		m.httpRequests, m.httpRequestDuration,
	)
}

// GetRegistry exposes the custom registry for the /metrics handler.
func GetRegistry() *prometheus.Registry { return customRegistry }

// Package-level helpers delegating to the global manager.

func RecordSubmission()      { globalManager.submissionsTotal.Inc() }
func RecordSubmissionError() { globalManager.submissionErrors.Inc() }

func RecordLeaderboardRead(source string) { globalManager.leaderboardReads.WithLabelValues(source).Inc() }
func RecordCacheFallback()                { globalManager.cacheFallbacks.Inc() }
func RecordCacheRebuild()                 { globalManager.cacheRebuilds.Inc() }

func RecordWriteThroughApplied() { globalManager.writeThroughApplied.Inc() }
func RecordWriteThroughError()   { globalManager.writeThroughErrors.Inc() }
func RecordWriteThroughDropped() { globalManager.writeThroughDropped.Inc() }

func UpdateQueueSize(n int)            { globalManager.queueSize.Set(float64(n)) }
func UpdateQueueCapacity(n int)        { globalManager.queueCapacity.Set(float64(n)) }
func UpdateQueueUtilization(f float64) { globalManager.queueUtilization.Set(f) }
func UpdateWorkerCount(n int)          { globalManager.workerCount.Set(float64(n)) }

func UpdateWSClients(n int) { globalManager.wsClients.Set(float64(n)) }
func RecordBroadcast()      { globalManager.broadcastsTotal.Inc() }
func RecordBroadcastDrop()  { globalManager.broadcastDrops.Inc() }

func RecordStoreLatency(ms float64) { globalManager.storeLatency.Observe(ms) }
func RecordCacheLatency(ms float64) { globalManager.cacheLatency.Observe(ms) }

func RecordHTTPRequest(endpoint, method, status string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

func RecordHTTPRequestDuration(endpoint, method string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method).Observe(ms)
}
