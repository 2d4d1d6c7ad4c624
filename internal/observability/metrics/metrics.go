package metrics

import (
	"database/sql"
	"log"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "equipment_"

	// ResultSuccess and ResultError label metric outcomes.
	ResultSuccess = "success"
	ResultError   = "error"

	// RowActionInsert and RowActionUpdate label ingested row outcomes.
	RowActionInsert = "insert"
	RowActionUpdate = "update"
)

var (
	registerOnce sync.Once

	ingestRequests *prometheus.CounterVec
	ingestRows     *prometheus.CounterVec
	ingestLatency  *prometheus.HistogramVec

	loginTotal    *prometheus.CounterVec
	registerTotal *prometheus.CounterVec
)

// Init registers service metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		ingestRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_requests_total",
				Help: "Total upload ingest requests by result",
			},
			[]string{"result"},
		)
		ingestRows = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_rows_total",
				Help: "Total ingested rows by action",
			},
			[]string{"action"},
		)
		ingestLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "ingest_latency_seconds",
				Help:    "Upload ingest latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		loginTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "login_total",
				Help: "Total login attempts by result",
			},
			[]string{"result"},
		)
		registerTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "register_total",
				Help: "Total registration attempts by result",
			},
			[]string{"result"},
		)

		prometheus.MustRegister(
			ingestRequests,
			ingestRows,
			ingestLatency,
			loginTotal,
			registerTotal,
		)

		registerDBMetrics(db, logger)
	})
}

// ObserveIngest records one upload ingest request.
func ObserveIngest(result string, seconds float64) {
	if ingestRequests == nil {
		return
	}
	ingestRequests.WithLabelValues(result).Inc()
	ingestLatency.WithLabelValues(result).Observe(seconds)
}

// AddIngestRows records rows written by an ingest batch.
func AddIngestRows(action string, count int) {
	if ingestRows == nil || count <= 0 {
		return
	}
	ingestRows.WithLabelValues(action).Add(float64(count))
}

// ObserveLogin records one login attempt.
func ObserveLogin(result string) {
	if loginTotal == nil {
		return
	}
	loginTotal.WithLabelValues(result).Inc()
}

// ObserveRegister records one registration attempt.
func ObserveRegister(result string) {
	if registerTotal == nil {
		return
	}
	registerTotal.WithLabelValues(result).Inc()
}
