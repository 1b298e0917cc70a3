// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Forge metrics
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	TokensLaunched    prometheus.Counter
	RevenueRecorded   prometheus.Counter

	// Event metrics
	EventsPublished    *prometheus.CounterVec
	EventSinkErrors    *prometheus.CounterVec
	WSClientsConnected prometheus.Gauge

	// Latency metrics
	RPCCallLatency *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "tokenforge"
	}

	return &Metrics{
		// Forge metrics
		OperationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "forge",
			Name:      "operations_total",
			Help:      "Total number of forge operations by outcome code",
		}, []string{"operation", "outcome"}),
		OperationDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "forge",
			Name:      "operation_duration_seconds",
			Help:      "Forge operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		TokensLaunched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "forge",
			Name:      "tokens_launched_total",
			Help:      "Total number of tokens launched",
		}),
		RevenueRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "forge",
			Name:      "revenue_recorded_total",
			Help:      "Sum of revenue amounts recorded across all tokens",
		}),

		// Event metrics
		EventsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Total number of events published by kind",
		}, []string{"kind"}),
		EventSinkErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "sink_errors_total",
			Help:      "Total number of event sink failures by kind",
		}, []string{"kind"}),
		WSClientsConnected: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "ws_clients",
			Help:      "Current number of connected WebSocket subscribers",
		}),

		// Latency metrics
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordOperation records the outcome and duration of a forge operation.
// outcome is "ok" or the error name.
func RecordOperation(operation, outcome string, seconds float64) {
	DefaultMetrics.OperationsTotal.WithLabelValues(operation, outcome).Inc()
	DefaultMetrics.OperationDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordLaunch increments the launched tokens counter.
func RecordLaunch() {
	DefaultMetrics.TokensLaunched.Inc()
}

// RecordRevenue adds amount to the recorded revenue counter.
func RecordRevenue(amount uint64) {
	DefaultMetrics.RevenueRecorded.Add(float64(amount))
}

// RecordEventPublished records a published event, or a sink failure when err is set.
func RecordEventPublished(kind string, err error) {
	if err != nil {
		DefaultMetrics.EventSinkErrors.WithLabelValues(kind).Inc()
		return
	}
	DefaultMetrics.EventsPublished.WithLabelValues(kind).Inc()
}

// UpdateWSClients sets the connected subscriber gauge.
func UpdateWSClients(n int) {
	DefaultMetrics.WSClientsConnected.Set(float64(n))
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
