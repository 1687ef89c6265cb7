package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the global metrics container.
type Metrics struct {
	// gRPC control-plane metrics
	GRPCRequestsTotal    *prometheus.CounterVec
	GRPCRequestDuration  *prometheus.HistogramVec
	GRPCRequestsInFlight prometheus.Gauge

	// Broker metrics
	TicksTotal       *prometheus.CounterVec
	TickDuration     *prometheus.HistogramVec
	EntriesFetched   *prometheus.CounterVec
	EntriesPublished *prometheus.CounterVec
	PublishFailures  *prometheus.CounterVec
	PoWDuration      *prometheus.HistogramVec
	CacheSize        *prometheus.GaugeVec

	// System metrics
	MemoryUsage *prometheus.GaugeVec
	Goroutines  prometheus.Gauge

	// Service info
	ServiceInfo *prometheus.GaugeVec
}

var defaultMetrics *Metrics

// InitMetrics initializes the metrics container under the given namespace/subsystem.
func InitMetrics(namespace, subsystem string) *Metrics {
	m := &Metrics{
		GRPCRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "grpc_requests_total",
				Help:      "Total number of control-plane gRPC requests",
			},
			[]string{"method", "status"},
		),

		GRPCRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "grpc_request_duration_seconds",
				Help:      "Duration of control-plane gRPC requests",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method"},
		),

		GRPCRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "grpc_requests_in_flight",
				Help:      "Current number of control-plane requests being processed",
			},
		),

		TicksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "feed_ticks_total",
				Help:      "Total number of feed job ticks",
			},
			[]string{"feed_id", "status"},
		),

		TickDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "feed_tick_duration_seconds",
				Help:      "Duration of a feed job tick",
				Buckets:   []float64{.01, .05, .1, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"feed_id"},
		),

		EntriesFetched: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "entries_fetched_total",
				Help:      "Total number of entries returned by the feed fetcher",
			},
			[]string{"feed_id"},
		),

		EntriesPublished: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "entries_published_total",
				Help:      "Total number of entries published to at least one relay",
			},
			[]string{"feed_id", "profile_id"},
		),

		PublishFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "publish_failures_total",
				Help:      "Total number of per-profile publish failures",
			},
			[]string{"feed_id", "profile_id"},
		),

		PoWDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "pow_mining_duration_seconds",
				Help:      "Duration spent mining proof-of-work for an event",
				Buckets:   []float64{.001, .01, .1, 1, 5, 15, 30, 60, 120},
			},
			[]string{"profile_id"},
		),

		CacheSize: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "dedup_cache_size",
				Help:      "Current number of entry ids retained in a feed's dedup cache",
			},
			[]string{"feed_id"},
		),

		MemoryUsage: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "memory_usage_bytes",
				Help:      "Current memory usage",
			},
			[]string{"type"},
		),

		Goroutines: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "goroutines",
				Help:      "Current number of goroutines",
			},
		),

		ServiceInfo: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "service_info",
				Help:      "Service information",
			},
			[]string{"version", "environment"},
		),
	}

	defaultMetrics = m
	return m
}

// Get returns the global metrics container, lazily initializing it if needed.
func Get() *Metrics {
	if defaultMetrics == nil {
		return InitMetrics("nostrss", "")
	}
	return defaultMetrics
}

// RecordGRPCRequest records metrics for one control-plane gRPC request.
func (m *Metrics) RecordGRPCRequest(method string, status string, duration time.Duration) {
	m.GRPCRequestsTotal.WithLabelValues(method, status).Inc()
	m.GRPCRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordTick records the outcome and duration of a feed job tick.
func (m *Metrics) RecordTick(feedID string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	m.TicksTotal.WithLabelValues(feedID, status).Inc()
	m.TickDuration.WithLabelValues(feedID).Observe(duration.Seconds())
}

// RecordFetch records the number of entries a tick's fetch returned.
func (m *Metrics) RecordFetch(feedID string, entries int) {
	m.EntriesFetched.WithLabelValues(feedID).Add(float64(entries))
}

// RecordPublish records a successful or failed publish for one profile.
func (m *Metrics) RecordPublish(feedID, profileID string, success bool) {
	if success {
		m.EntriesPublished.WithLabelValues(feedID, profileID).Inc()
		return
	}
	m.PublishFailures.WithLabelValues(feedID, profileID).Inc()
}

// RecordPoW records how long PoW mining took for a profile's event.
func (m *Metrics) RecordPoW(profileID string, duration time.Duration) {
	m.PoWDuration.WithLabelValues(profileID).Observe(duration.Seconds())
}

// SetCacheSize records the current occupancy of a feed's dedup cache.
func (m *Metrics) SetCacheSize(feedID string, size int) {
	m.CacheSize.WithLabelValues(feedID).Set(float64(size))
}

// SetServiceInfo sets the service version/environment info gauge.
func (m *Metrics) SetServiceInfo(version, environment string) {
	m.ServiceInfo.WithLabelValues(version, environment).Set(1)
}

// Handler returns the HTTP handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// StartMetricsServer starts an HTTP server exposing /metrics and /health.
func StartMetricsServer(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return server.ListenAndServe()
}
