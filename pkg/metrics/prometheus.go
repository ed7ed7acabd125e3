// Package metrics provides Prometheus metrics for the menagerie daemon.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the daemon.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Ability log ingestion
	abilityEventsAccepted prometheus.Counter
	abilityEventsStale    prometheus.Counter
	abilityEventsCutoff   prometheus.Counter
	abilityEventsNoise    prometheus.Counter
	abilityLogSize        prometheus.Gauge
	abilityLogEvictions   prometheus.Counter

	// Roster synchronization
	rosterRebuilds   *prometheus.CounterVec
	rosterSuppressed *prometheus.CounterVec
	rosterFeedErrors *prometheus.CounterVec
	mergedPets       prometheus.Gauge

	// Equip engine
	equipRuns         prometheus.Counter
	equipSwaps        prometheus.Counter
	equipPlaces       prometheus.Counter
	equipSkips        prometheus.Counter
	equipFailures     *prometheus.CounterVec
	equipRunDuration  prometheus.Histogram
	remoteCallLatency *prometheus.HistogramVec
	remoteCallErrors  *prometheus.CounterVec
	hutchFreeSpace    prometheus.Gauge

	// Equip run queue
	equipQueueDepth      prometheus.Gauge
	equipQueueRejections prometheus.Counter

	// Persistence
	persistLatency prometheus.Histogram
	persistErrors  prometheus.Counter

	// HTTP surface
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "menagerie",
		subsystem:        "petsync",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // metric inventory is inherently long
	auto := promauto.With(m.registry)

	// Ability log ingestion.
	m.abilityEventsAccepted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ability_events_accepted_total",
		Help:      "Total number of ability events accepted into the activity log",
	})

	m.abilityEventsStale = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ability_events_stale_total",
		Help:      "Total number of ability events rejected by the per-pet watermark",
	})

	m.abilityEventsCutoff = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ability_events_cutoff_total",
		Help:      "Total number of ability events dropped as older than the clear cutoff",
	})

	m.abilityEventsNoise = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ability_events_noise_total",
		Help:      "Total number of ability events filtered as near-zero magnitude",
	})

	m.abilityLogSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ability_log_size",
		Help:      "Current number of entries in the ability activity log",
	})

	m.abilityLogEvictions = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ability_log_evictions_total",
		Help:      "Total number of oldest-first evictions from the bounded ability log",
	})

	// Roster synchronization.
	m.rosterRebuilds = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "roster_rebuilds_total",
			Help:      "Total number of merged roster rebuilds by triggering feed",
		},
		[]string{"feed"},
	)

	m.rosterSuppressed = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "roster_rebuilds_suppressed_total",
			Help:      "Total number of feed snapshots suppressed by signature comparison",
		},
		[]string{"feed"},
	)

	m.rosterFeedErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "roster_feed_errors_total",
			Help:      "Total number of feed fetch or subscribe failures",
		},
		[]string{"feed"},
	)

	m.mergedPets = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "merged_pets",
		Help:      "Current number of pets in the merged roster",
	})

	// Equip engine.
	m.equipRuns = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "equip_runs_total",
		Help:      "Total number of team equip runs started",
	})

	m.equipSwaps = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "equip_swaps_total",
		Help:      "Total number of swap operations issued by equip runs",
	})

	m.equipPlaces = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "equip_places_total",
		Help:      "Total number of direct place operations issued by equip runs",
	})

	m.equipSkips = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "equip_skips_total",
		Help:      "Total number of already-active targets skipped by equip runs",
	})

	m.equipFailures = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "equip_failures_total",
			Help:      "Total number of equip run failures by reason",
		},
		[]string{"reason"},
	)

	m.equipRunDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "equip_run_duration_milliseconds",
		Help:      "Duration of complete equip runs in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.remoteCallLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "remote_call_latency_milliseconds",
			Help:      "Latency of remote game mutation calls in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"call"},
	)

	m.remoteCallErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "remote_call_errors_total",
			Help:      "Total number of failed remote game mutation calls",
		},
		[]string{"call"},
	)

	m.hutchFreeSpace = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "hutch_free_space",
		Help:      "Last observed free capacity of the hutch store",
	})

	// Equip run queue.
	m.equipQueueDepth = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "equip_queue_depth",
		Help:      "Current number of pending equip runs",
	})

	m.equipQueueRejections = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "equip_queue_rejections_total",
		Help:      "Total number of equip requests rejected on backpressure",
	})

	// Persistence.
	m.persistLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "persist_latency_milliseconds",
		Help:      "Latency of durable state writes in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.persistErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "persist_errors_total",
		Help:      "Total number of failed durable state writes",
	})

	// HTTP surface.
	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	// System.
	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_time_milliseconds",
		Help:      "GC pause time in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// Ability log functions.

// RecordAbilityEventAccepted increments the accepted events counter.
func RecordAbilityEventAccepted() {
	globalManager.abilityEventsAccepted.Inc()
}

// RecordAbilityEventStale increments the watermark-rejected counter.
func RecordAbilityEventStale() {
	globalManager.abilityEventsStale.Inc()
}

// RecordAbilityEventCutoff increments the cutoff-dropped counter.
func RecordAbilityEventCutoff() {
	globalManager.abilityEventsCutoff.Inc()
}

// RecordAbilityEventNoise increments the magnitude-filtered counter.
func RecordAbilityEventNoise() {
	globalManager.abilityEventsNoise.Inc()
}

// UpdateAbilityLogSize sets the current log size.
func UpdateAbilityLogSize(size int) {
	globalManager.abilityLogSize.Set(float64(size))
}

// RecordAbilityLogEviction increments the eviction counter.
func RecordAbilityLogEviction() {
	globalManager.abilityLogEvictions.Inc()
}

// Roster functions.

// RecordRosterRebuild records a merged roster rebuild triggered by feed.
func RecordRosterRebuild(feed string) {
	globalManager.rosterRebuilds.WithLabelValues(feed).Inc()
}

// RecordRosterSuppressed records a signature-suppressed feed snapshot.
func RecordRosterSuppressed(feed string) {
	globalManager.rosterSuppressed.WithLabelValues(feed).Inc()
}

// RecordRosterFeedError records a feed fetch or subscribe failure.
func RecordRosterFeedError(feed string) {
	globalManager.rosterFeedErrors.WithLabelValues(feed).Inc()
}

// UpdateMergedPets sets the merged roster size.
func UpdateMergedPets(count int) {
	globalManager.mergedPets.Set(float64(count))
}

// Equip functions.

// RecordEquipRun increments the equip run counter.
func RecordEquipRun() {
	globalManager.equipRuns.Inc()
}

// RecordEquipCounts adds a finished run's swap/place/skip counts.
func RecordEquipCounts(swapped, placed, skipped int) {
	globalManager.equipSwaps.Add(float64(swapped))
	globalManager.equipPlaces.Add(float64(placed))
	globalManager.equipSkips.Add(float64(skipped))
}

// RecordEquipFailure records an equip run failure by reason.
func RecordEquipFailure(reason string) {
	globalManager.equipFailures.WithLabelValues(reason).Inc()
}

// RecordEquipRunDuration records a complete run's duration.
func RecordEquipRunDuration(durationMs float64) {
	globalManager.equipRunDuration.Observe(durationMs)
}

// RecordRemoteCall records one remote mutation call's latency.
func RecordRemoteCall(call string, latencyMs float64) {
	globalManager.remoteCallLatency.WithLabelValues(call).Observe(latencyMs)
}

// RecordRemoteCallError records a failed remote mutation call.
func RecordRemoteCallError(call string) {
	globalManager.remoteCallErrors.WithLabelValues(call).Inc()
}

// UpdateHutchFreeSpace sets the observed hutch free capacity.
func UpdateHutchFreeSpace(count int) {
	globalManager.hutchFreeSpace.Set(float64(count))
}

// Equip queue functions.

// UpdateEquipQueueDepth sets the pending equip run count.
func UpdateEquipQueueDepth(depth int) {
	globalManager.equipQueueDepth.Set(float64(depth))
}

// RecordEquipQueueRejection increments the backpressure rejection counter.
func RecordEquipQueueRejection() {
	globalManager.equipQueueRejections.Inc()
}

// Persistence functions.

// RecordPersistLatency records a durable write's latency.
func RecordPersistLatency(latencyMs float64) {
	globalManager.persistLatency.Observe(latencyMs)
}

// RecordPersistError increments the failed durable write counter.
func RecordPersistError() {
	globalManager.persistErrors.Inc()
}

// HTTP functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// System functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
