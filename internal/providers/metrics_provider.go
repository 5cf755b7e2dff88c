package providers

import (
	"safetywatch/internal/structures"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type MetricsProviderInterface interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncCacheHits()
	IncCacheMisses()
	ObserveRefreshDuration(category string, outcome string, duration time.Duration)
	IncRepairFailures(category string)
	IncDegradedRecords(category string, count int)
	SetDateFolders(category string, count int)
	SetTodayCount(category string, count int)
	IncAlerts(category string)
	IncPollTicks()
}

type MetricsProvider struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	refreshDuration *prometheus.HistogramVec
	repairFailures  *prometheus.CounterVec
	degradedRecords *prometheus.CounterVec
	dateFolders     *prometheus.GaugeVec
	todayCount      *prometheus.GaugeVec
	alertsTotal     *prometheus.CounterVec
	pollTicks       prometheus.Counter
}

func (m *MetricsProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncCacheHits() {
	m.cacheHits.Inc()
}

func (m *MetricsProvider) IncCacheMisses() {
	m.cacheMisses.Inc()
}

func (m *MetricsProvider) ObserveRefreshDuration(category string, outcome string, duration time.Duration) {
	m.refreshDuration.WithLabelValues(category, outcome).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncRepairFailures(category string) {
	m.repairFailures.WithLabelValues(category).Inc()
}

func (m *MetricsProvider) IncDegradedRecords(category string, count int) {
	m.degradedRecords.WithLabelValues(category).Add(float64(count))
}

func (m *MetricsProvider) SetDateFolders(category string, count int) {
	m.dateFolders.WithLabelValues(category).Set(float64(count))
}

func (m *MetricsProvider) SetTodayCount(category string, count int) {
	m.todayCount.WithLabelValues(category).Set(float64(count))
}

func (m *MetricsProvider) IncAlerts(category string) {
	m.alertsTotal.WithLabelValues(category).Inc()
}

func (m *MetricsProvider) IncPollTicks() {
	m.pollTicks.Inc()
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func NewMetricsProvider(conf *structures.Config) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}

	return &MetricsProvider{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sw_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sw_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		cacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sw_cache_hits_total",
			Help: "Total number of response cache hits",
		}),

		cacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sw_cache_misses_total",
			Help: "Total number of response cache misses",
		}),

		refreshDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sw_refresh_duration_seconds",
			Help:    "Duration of folder metadata refreshes in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"category", "outcome"}),

		repairFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sw_permission_repair_failures_total",
			Help: "Date folders whose write permission could not be repaired",
		}, []string{"category"}),

		degradedRecords: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sw_degraded_records_total",
			Help: "Date folder records left partially stale by a refresh",
		}, []string{"category"}),

		dateFolders: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sw_date_folders",
			Help: "Number of known date folders per category",
		}, []string{"category"}),

		todayCount: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sw_today_violations",
			Help: "Last observed violation count for the current day",
		}, []string{"category"}),

		alertsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sw_alerts_total",
			Help: "Alerts raised per category",
		}, []string{"category"}),

		pollTicks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sw_poll_ticks_total",
			Help: "Monitor poll ticks executed",
		}),
	}
}

// noopMetrics is a no-op implementation for when metrics are disabled.
type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                           {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration)           {}
func (n *noopMetrics) IncCacheHits()                                              {}
func (n *noopMetrics) IncCacheMisses()                                            {}
func (n *noopMetrics) ObserveRefreshDuration(_ string, _ string, _ time.Duration) {}
func (n *noopMetrics) IncRepairFailures(_ string)                                 {}
func (n *noopMetrics) IncDegradedRecords(_ string, _ int)                         {}
func (n *noopMetrics) SetDateFolders(_ string, _ int)                             {}
func (n *noopMetrics) SetTodayCount(_ string, _ int)                              {}
func (n *noopMetrics) IncAlerts(_ string)                                         {}
func (n *noopMetrics) IncPollTicks()                                              {}
