package telemetry

import (
	"database/sql"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	grpcRequestsTotal    *prometheus.CounterVec
	grpcRequestDuration  *prometheus.HistogramVec
	grpcRequestsInFlight prometheus.Gauge

	dbQueriesTotal  *prometheus.CounterVec
	dbQueryDuration *prometheus.HistogramVec
}

func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "phonebook_http_requests_total",
				Help: "Total HTTP requests by method, route and status.",
			},
			[]string{"method", "route", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "phonebook_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds by method, route and status.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "phonebook_http_requests_in_flight",
				Help: "Current number of in-flight HTTP requests.",
			},
		),
		grpcRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "phonebook_grpc_requests_total",
				Help: "Total gRPC requests by method and code.",
			},
			[]string{"method", "code"},
		),
		grpcRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "phonebook_grpc_request_duration_seconds",
				Help:    "gRPC request latency in seconds by method and code.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "code"},
		),
		grpcRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "phonebook_grpc_requests_in_flight",
				Help: "Current number of in-flight gRPC requests.",
			},
		),
		dbQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "phonebook_db_queries_total",
				Help: "Total DB method calls by method and status.",
			},
			[]string{"method", "status"},
		),
		dbQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "phonebook_db_query_duration_seconds",
				Help:    "DB method duration in seconds by method and status.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "status"},
		),
	}

	registerer.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.httpRequestsInFlight,
		m.grpcRequestsTotal,
		m.grpcRequestDuration,
		m.grpcRequestsInFlight,
		m.dbQueriesTotal,
		m.dbQueryDuration,
	)

	return m
}

func (m *Metrics) ObserveHTTP(method, route, status string, duration time.Duration) {
	if m == nil {
		return
	}

	m.httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

func (m *Metrics) IncHTTPInFlight() {
	if m == nil {
		return
	}

	m.httpRequestsInFlight.Inc()
}

func (m *Metrics) DecHTTPInFlight() {
	if m == nil {
		return
	}

	m.httpRequestsInFlight.Dec()
}

func (m *Metrics) ObserveRPC(method, code string, duration time.Duration) {
	if m == nil {
		return
	}

	m.grpcRequestsTotal.WithLabelValues(method, code).Inc()
	m.grpcRequestDuration.WithLabelValues(method, code).Observe(duration.Seconds())
}

func (m *Metrics) IncRPCInFlight() {
	if m == nil {
		return
	}

	m.grpcRequestsInFlight.Inc()
}

func (m *Metrics) DecRPCInFlight() {
	if m == nil {
		return
	}

	m.grpcRequestsInFlight.Dec()
}

func (m *Metrics) ObserveDB(method, status string, duration time.Duration) {
	if m == nil {
		return
	}

	m.dbQueriesTotal.WithLabelValues(method, status).Inc()
	m.dbQueryDuration.WithLabelValues(method, status).Observe(duration.Seconds())
}

// RegisterContactsGauge exposes the number of stored contacts, as reported
// by count at scrape time. Failed counts report -1.
func RegisterContactsGauge(count func() (int, error), registerer prometheus.Registerer) error {
	if count == nil {
		return errors.New("count func is nil")
	}
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	gauge := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "phonebook_contacts",
			Help: "Number of stored contacts.",
		},
		func() float64 {
			n, err := count()
			if err != nil {
				return -1
			}
			return float64(n)
		},
	)

	if err := registerer.Register(gauge); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			return nil
		}
		return err
	}

	return nil
}

func RegisterDBPoolMetrics(db *sql.DB, registerer prometheus.Registerer) error {
	if db == nil {
		return errors.New("db is nil")
	}
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	collectors := []prometheus.Collector{
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "phonebook_db_pool_open_connections",
				Help: "Open database connections.",
			},
			func() float64 { return float64(db.Stats().OpenConnections) },
		),
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "phonebook_db_pool_in_use_connections",
				Help: "In-use database connections.",
			},
			func() float64 { return float64(db.Stats().InUse) },
		),
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "phonebook_db_pool_idle_connections",
				Help: "Idle database connections.",
			},
			func() float64 { return float64(db.Stats().Idle) },
		),
		prometheus.NewCounterFunc(
			prometheus.CounterOpts{
				Name: "phonebook_db_pool_wait_count_total",
				Help: "Total number of waits for a free connection.",
			},
			func() float64 { return float64(db.Stats().WaitCount) },
		),
		prometheus.NewCounterFunc(
			prometheus.CounterOpts{
				Name: "phonebook_db_pool_wait_duration_seconds_total",
				Help: "Total time blocked waiting for a free connection in seconds.",
			},
			func() float64 { return db.Stats().WaitDuration.Seconds() },
		),
	}

	for _, c := range collectors {
		if err := registerer.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}

	return nil
}
