package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config supplies the constant labels attached to every sync metric.
type Config struct {
	ServiceName string
	Environment string
}

// SyncMetrics captures order-pipeline health signals: how many orders each
// cycle synced, skipped, or failed, how far page walks went, and how long a
// full cycle took.
type SyncMetrics struct {
	ordersSynced    *prometheus.CounterVec
	ordersSkipped   *prometheus.CounterVec
	orderErrors     *prometheus.CounterVec
	pagesFetched    *prometheus.CounterVec
	pageErrors      *prometheus.CounterVec
	publishFailures *prometheus.CounterVec
	cycleDuration   *prometheus.HistogramVec
}

var (
	syncMetricsOnce sync.Once
	syncMetrics     *SyncMetrics
)

// Sync returns the singleton sync metrics registry.
func Sync() *SyncMetrics {
	return SyncWithConfig(Config{})
}

// SyncWithConfig returns the singleton sync metrics registry using config labels.
func SyncWithConfig(cfg Config) *SyncMetrics {
	syncMetricsOnce.Do(func() {
		syncMetrics = newSyncMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return syncMetrics
}

// ResetSyncMetricsForTest resets the sync metrics singleton for tests.
func ResetSyncMetricsForTest() {
	syncMetricsOnce = sync.Once{}
	syncMetrics = nil
}

func newSyncMetrics(registerer prometheus.Registerer, cfg Config) *SyncMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "ordersync"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}

	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	m := &SyncMetrics{
		ordersSynced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "ordersync_orders_synced_total",
			Help:        "Orders fully processed and committed, by restaurant.",
			ConstLabels: constLabels,
		}, []string{"restaurant"}),
		ordersSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "ordersync_orders_skipped_total",
			Help:        "Orders skipped as already synced, by restaurant.",
			ConstLabels: constLabels,
		}, []string{"restaurant"}),
		orderErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "ordersync_order_errors_total",
			Help:        "Orders that failed after retries, by restaurant.",
			ConstLabels: constLabels,
		}, []string{"restaurant"}),
		pagesFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "ordersync_pages_fetched_total",
			Help:        "Order list pages fetched, by restaurant.",
			ConstLabels: constLabels,
		}, []string{"restaurant"}),
		pageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "ordersync_page_errors_total",
			Help:        "Order list page fetches that failed, by restaurant.",
			ConstLabels: constLabels,
		}, []string{"restaurant"}),
		publishFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "ordersync_publish_failures_total",
			Help:        "Order-synced events that could not be published.",
			ConstLabels: constLabels,
		}, []string{"restaurant"}),
		cycleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "ordersync_cycle_duration_seconds",
			Help:        "Wall time of a full restaurant sync cycle.",
			ConstLabels: constLabels,
			Buckets:     prometheus.ExponentialBuckets(0.5, 2, 12),
		}, []string{"restaurant"}),
	}

	registerer.MustRegister(
		m.ordersSynced,
		m.ordersSkipped,
		m.orderErrors,
		m.pagesFetched,
		m.pageErrors,
		m.publishFailures,
		m.cycleDuration,
	)

	return m
}

func (m *SyncMetrics) IncOrdersSynced(restaurant string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ordersSynced.WithLabelValues(restaurant).Add(float64(n))
}

func (m *SyncMetrics) IncOrdersSkipped(restaurant string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ordersSkipped.WithLabelValues(restaurant).Add(float64(n))
}

func (m *SyncMetrics) IncOrderError(restaurant string) {
	if m == nil {
		return
	}
	m.orderErrors.WithLabelValues(restaurant).Inc()
}

func (m *SyncMetrics) IncPageFetched(restaurant string) {
	if m == nil {
		return
	}
	m.pagesFetched.WithLabelValues(restaurant).Inc()
}

func (m *SyncMetrics) IncPageError(restaurant string) {
	if m == nil {
		return
	}
	m.pageErrors.WithLabelValues(restaurant).Inc()
}

func (m *SyncMetrics) IncPublishFailure(restaurant string) {
	if m == nil {
		return
	}
	m.publishFailures.WithLabelValues(restaurant).Inc()
}

func (m *SyncMetrics) ObserveCycleDuration(restaurant string, d time.Duration) {
	if m == nil {
		return
	}
	m.cycleDuration.WithLabelValues(restaurant).Observe(d.Seconds())
}
