package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all parts-service metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	serviceName string
	registry    *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Kafka metrics
	KafkaEventsPublished *prometheus.CounterVec
	KafkaPublishDuration *prometheus.HistogramVec

	// Database metrics
	DBOperations          *prometheus.CounterVec
	DBOperationDuration   *prometheus.HistogramVec
	DBTransactionDuration *prometheus.HistogramVec

	// Business metrics
	ReservationsTotal       *prometheus.CounterVec
	TransferTransitions     *prometheus.CounterVec
	ConsistencyFaults       *prometheus.CounterVec
	LedgerDriftRecords      prometheus.Gauge
	NotificationsDropped    *prometheus.CounterVec
	ReconciliationDuration  prometheus.Histogram

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
	CircuitBreakerTrips *prometheus.CounterVec
}

// Config holds metrics configuration
type Config struct {
	ServiceName string
	Namespace   string
}

// DefaultConfig returns default metrics configuration
func DefaultConfig(serviceName string) *Config {
	return &Config{
		ServiceName: serviceName,
		Namespace:   "warranty",
	}
}

// New creates a new Metrics instance on its own registry
func New(config *Config) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		serviceName: config.ServiceName,
		registry:    registry,
	}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"service", "method", "path"},
	)

	m.HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "http_requests_in_flight",
			Help:        "Number of HTTP requests currently being processed",
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		},
	)

	m.KafkaEventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "kafka_events_published_total",
			Help:      "Total number of Kafka events published",
		},
		[]string{"service", "topic", "event_type", "status"},
	)

	m.KafkaPublishDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "kafka_publish_duration_seconds",
			Help:      "Kafka publish duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"service", "topic"},
	)

	m.DBOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "db_operations_total",
			Help:      "Total number of database statements",
		},
		[]string{"service", "table", "operation", "status"},
	)

	m.DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "db_operation_duration_seconds",
			Help:      "Database statement duration in seconds",
			Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"service", "table", "operation"},
	)

	m.DBTransactionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "db_transaction_duration_seconds",
			Help:      "Unit of work duration in seconds, lock waits included",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"service", "operation", "status"},
	)

	m.ReservationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "reservations_total",
			Help:      "Component reservation lifecycle operations",
		},
		[]string{"service", "operation", "status"},
	)

	m.TransferTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "stock_transfer_transitions_total",
			Help:      "Stock transfer request state transitions",
		},
		[]string{"service", "transition", "status"},
	)

	m.ConsistencyFaults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "consistency_faults_total",
			Help:      "Ledger/registry drift detected inside a transaction",
		},
		[]string{"service", "operation"},
	)

	m.LedgerDriftRecords = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "ledger_drift_records",
			Help:        "Stock records whose counters disagree with the component registry at the last reconciliation",
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		},
	)

	m.NotificationsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "notifications_dropped_total",
			Help:      "Workflow notifications that could not be delivered after commit",
		},
		[]string{"service", "event"},
	)

	m.ReconciliationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Name:        "reconciliation_duration_seconds",
			Help:        "Duration of ledger reconciliation runs",
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
			Buckets:     []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60},
		},
	)

	m.CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"service", "name"},
	)

	m.CircuitBreakerTrips = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "circuit_breaker_trips_total",
			Help:      "Total number of circuit breaker trips",
		},
		[]string{"service", "name"},
	)

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.KafkaEventsPublished,
		m.KafkaPublishDuration,
		m.DBOperations,
		m.DBOperationDuration,
		m.DBTransactionDuration,
		m.ReservationsTotal,
		m.TransferTransitions,
		m.ConsistencyFaults,
		m.LedgerDriftRecords,
		m.NotificationsDropped,
		m.ReconciliationDuration,
		m.CircuitBreakerState,
		m.CircuitBreakerTrips,
	)

	return m
}

// Handler returns an HTTP handler for metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(m.serviceName, method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(m.serviceName, method, path).Observe(duration.Seconds())
}

// IncrementHTTPRequestsInFlight increments the in-flight gauge
func (m *Metrics) IncrementHTTPRequestsInFlight() {
	if m == nil {
		return
	}
	m.HTTPRequestsInFlight.Inc()
}

// DecrementHTTPRequestsInFlight decrements the in-flight gauge
func (m *Metrics) DecrementHTTPRequestsInFlight() {
	if m == nil {
		return
	}
	m.HTTPRequestsInFlight.Dec()
}

// RecordKafkaPublish records a Kafka publish event
func (m *Metrics) RecordKafkaPublish(topic, eventType string, success bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.KafkaEventsPublished.WithLabelValues(m.serviceName, topic, eventType, statusLabel(success)).Inc()
	m.KafkaPublishDuration.WithLabelValues(m.serviceName, topic).Observe(duration.Seconds())
}

// RecordDBOperation records a single database statement
func (m *Metrics) RecordDBOperation(table, operation string, success bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.DBOperations.WithLabelValues(m.serviceName, table, operation, statusLabel(success)).Inc()
	m.DBOperationDuration.WithLabelValues(m.serviceName, table, operation).Observe(duration.Seconds())
}

// RecordTransaction records a unit of work
func (m *Metrics) RecordTransaction(operation string, committed bool, duration time.Duration) {
	if m == nil {
		return
	}
	status := "committed"
	if !committed {
		status = "rolled_back"
	}
	m.DBTransactionDuration.WithLabelValues(m.serviceName, operation, status).Observe(duration.Seconds())
}

// RecordReservation records a reservation lifecycle operation
func (m *Metrics) RecordReservation(operation string, success bool) {
	if m == nil {
		return
	}
	m.ReservationsTotal.WithLabelValues(m.serviceName, operation, statusLabel(success)).Inc()
}

// RecordTransferTransition records a stock transfer request transition
func (m *Metrics) RecordTransferTransition(transition string, success bool) {
	if m == nil {
		return
	}
	m.TransferTransitions.WithLabelValues(m.serviceName, transition, statusLabel(success)).Inc()
}

// RecordConsistencyFault records a ledger/registry drift detected mid-transaction
func (m *Metrics) RecordConsistencyFault(operation string) {
	if m == nil {
		return
	}
	m.ConsistencyFaults.WithLabelValues(m.serviceName, operation).Inc()
}

// SetLedgerDrift sets the number of drifting stock records
func (m *Metrics) SetLedgerDrift(count int) {
	if m == nil {
		return
	}
	m.LedgerDriftRecords.Set(float64(count))
}

// RecordReconciliation records the duration of a reconciliation run
func (m *Metrics) RecordReconciliation(duration time.Duration) {
	if m == nil {
		return
	}
	m.ReconciliationDuration.Observe(duration.Seconds())
}

// RecordNotificationDropped records a notification lost after commit
func (m *Metrics) RecordNotificationDropped(event string) {
	if m == nil {
		return
	}
	m.NotificationsDropped.WithLabelValues(m.serviceName, event).Inc()
}

// SetCircuitBreakerState sets the circuit breaker state
func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.WithLabelValues(m.serviceName, name).Set(float64(state))
}

// RecordCircuitBreakerTrip records a circuit breaker trip
func (m *Metrics) RecordCircuitBreakerTrip(name string) {
	if m == nil {
		return
	}
	m.CircuitBreakerTrips.WithLabelValues(m.serviceName, name).Inc()
}
