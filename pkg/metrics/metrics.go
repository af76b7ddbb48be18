package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics набор prometheus-метрик сервиса.
// Все методы безопасны для nil-получателя: при выключенных метриках ничего не делают.
type Metrics struct {
	serviceName string

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	DBQueriesTotal     *prometheus.CounterVec
	DBQueryDuration    *prometheus.HistogramVec
	DBOpenConnections  *prometheus.GaugeVec
	DBInUseConnections *prometheus.GaugeVec
	DBIdleConnections  *prometheus.GaugeVec
	DBWaitCount        *prometheus.GaugeVec

	MappingTransitions   *prometheus.CounterVec
	ExtensionTransitions *prometheus.CounterVec
	ScheduleConflicts    *prometheus.CounterVec
	SchedulesCreated     *prometheus.CounterVec
	LedgerPostings       *prometheus.CounterVec
}

// New регистрирует метрики в prometheus.DefaultRegisterer
func New(serviceName string) *Metrics {
	return NewWithRegistry(serviceName, prometheus.DefaultRegisterer)
}

// NewWithRegistry регистрирует метрики в переданном реестре
func NewWithRegistry(serviceName string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		serviceName: serviceName,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"service", "method", "path", "status"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"service", "method", "path"}),

		DBQueriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "db_queries_total",
			Help: "Total number of database queries",
		}, []string{"service", "operation", "status"}),

		DBQueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"service", "operation"}),

		DBOpenConnections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "db_open_connections",
			Help: "Number of established connections",
		}, []string{"service"}),

		DBInUseConnections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "db_in_use_connections",
			Help: "Number of connections currently in use",
		}, []string{"service"}),

		DBIdleConnections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "db_idle_connections",
			Help: "Number of idle connections",
		}, []string{"service"}),

		DBWaitCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "db_wait_count",
			Help: "Total number of connections waited for",
		}, []string{"service"}),

		MappingTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mapping_transitions_total",
			Help: "Mapping lifecycle transitions",
		}, []string{"service", "from", "to"}),

		ExtensionTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "extension_transitions_total",
			Help: "Session extension request transitions",
		}, []string{"service", "from", "to"}),

		ScheduleConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "schedule_conflicts_total",
			Help: "Schedule creations rejected by the conflict detector",
		}, []string{"service"}),

		SchedulesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "schedules_created_total",
			Help: "Schedules created",
		}, []string{"service", "duration"}),

		LedgerPostings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_postings_total",
			Help: "Ledger entries handed to the ledger collaborator",
		}, []string{"service", "kind", "status"}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.DBQueriesTotal,
		m.DBQueryDuration,
		m.DBOpenConnections,
		m.DBInUseConnections,
		m.DBIdleConnections,
		m.DBWaitCount,
		m.MappingTransitions,
		m.ExtensionTransitions,
		m.ScheduleConflicts,
		m.SchedulesCreated,
		m.LedgerPostings,
	)

	return m
}

// ObserveHTTPRequest записывает HTTP запрос
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(m.serviceName, method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(m.serviceName, method, path).Observe(duration.Seconds())
}

// ObserveDBQuery записывает SQL запрос
func (m *Metrics) ObserveDBQuery(operation string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.DBQueriesTotal.WithLabelValues(m.serviceName, operation, status).Inc()
	m.DBQueryDuration.WithLabelValues(m.serviceName, operation).Observe(duration.Seconds())
}

// SetDBPoolStats обновляет показатели пула соединений
func (m *Metrics) SetDBPoolStats(open, inUse, idle int, waitCount int64) {
	if m == nil {
		return
	}
	m.DBOpenConnections.WithLabelValues(m.serviceName).Set(float64(open))
	m.DBInUseConnections.WithLabelValues(m.serviceName).Set(float64(inUse))
	m.DBIdleConnections.WithLabelValues(m.serviceName).Set(float64(idle))
	m.DBWaitCount.WithLabelValues(m.serviceName).Set(float64(waitCount))
}

func (m *Metrics) MappingTransition(from, to string) {
	if m == nil {
		return
	}
	m.MappingTransitions.WithLabelValues(m.serviceName, from, to).Inc()
}

func (m *Metrics) ExtensionTransition(from, to string) {
	if m == nil {
		return
	}
	m.ExtensionTransitions.WithLabelValues(m.serviceName, from, to).Inc()
}

func (m *Metrics) ScheduleConflict() {
	if m == nil {
		return
	}
	m.ScheduleConflicts.WithLabelValues(m.serviceName).Inc()
}

func (m *Metrics) ScheduleCreated(durationMinutes int) {
	if m == nil {
		return
	}
	m.SchedulesCreated.WithLabelValues(m.serviceName, strconv.Itoa(durationMinutes)).Inc()
}

// LedgerPosting status: enqueued, duplicate, posted, failed
func (m *Metrics) LedgerPosting(kind, status string) {
	if m == nil {
		return
	}
	m.LedgerPostings.WithLabelValues(m.serviceName, kind, status).Inc()
}
