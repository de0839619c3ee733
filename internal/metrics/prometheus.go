package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "dogbot"

// Metrics holds all Prometheus metrics for the dog store
type Metrics struct {
	// Engine command metrics
	EngineCommandsTotal   *prometheus.CounterVec
	EngineCommandDuration *prometheus.HistogramVec
	EngineBatchSize       prometheus.Histogram

	// Store operation metrics
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	QueryResultSize   *prometheus.HistogramVec

	// Import metrics
	ImportDocumentsTotal *prometheus.CounterVec

	// System metrics
	MemoryUsageBytes prometheus.Gauge
	GoroutinesTotal  prometheus.Gauge
}

// NewMetrics creates all metrics and registers them with reg
func NewMetrics(reg prometheus.Registerer, instance string) *Metrics {
	labels := prometheus.Labels{"instance_id": instance}
	factory := promauto.With(reg)

	return &Metrics{
		EngineCommandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "engine",
			Name:        "commands_total",
			Help:        "Total number of engine commands by command and status",
			ConstLabels: labels,
		}, []string{"command", "status"}),
		EngineCommandDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "engine",
			Name:        "command_duration_seconds",
			Help:        "Histogram of engine command durations",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"command"}),
		EngineBatchSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "engine",
			Name:        "transaction_ops",
			Help:        "Histogram of ops per committed transaction",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(1, 2, 8), // 1 to 128 ops
		}),

		OperationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "store",
			Name:        "operations_total",
			Help:        "Total number of store operations by operation and status",
			ConstLabels: labels,
		}, []string{"operation", "status"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "store",
			Name:        "operation_duration_seconds",
			Help:        "Histogram of store operation durations",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"operation"}),
		QueryResultSize: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "store",
			Name:        "query_result_dogs",
			Help:        "Histogram of dogs returned per query",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(1, 2, 10), // 1 to 512 dogs
		}, []string{"operation"}),

		ImportDocumentsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "import",
			Name:        "documents_total",
			Help:        "Total number of imported documents by status",
			ConstLabels: labels,
		}, []string{"status"}),

		MemoryUsageBytes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "system",
			Name:        "memory_usage_bytes",
			Help:        "Current heap allocation in bytes",
			ConstLabels: labels,
		}),
		GoroutinesTotal: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "system",
			Name:        "goroutines_total",
			Help:        "Current number of goroutines",
			ConstLabels: labels,
		}),
	}
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordCommand records one engine command
func (m *Metrics) RecordCommand(command string, duration time.Duration, err error) {
	m.EngineCommandsTotal.WithLabelValues(command, statusLabel(err)).Inc()
	m.EngineCommandDuration.WithLabelValues(command).Observe(duration.Seconds())
}

// RecordTransaction records a committed transaction
func (m *Metrics) RecordTransaction(ops int, duration time.Duration, err error) {
	m.RecordCommand("exec", duration, err)
	m.EngineBatchSize.Observe(float64(ops))
}

// RecordOperation records one store operation
func (m *Metrics) RecordOperation(operation string, duration time.Duration, err error) {
	m.OperationsTotal.WithLabelValues(operation, statusLabel(err)).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordQueryResult records how many dogs a query returned
func (m *Metrics) RecordQueryResult(operation string, n int) {
	m.QueryResultSize.WithLabelValues(operation).Observe(float64(n))
}

// RecordImport records one imported document
func (m *Metrics) RecordImport(err error) {
	m.ImportDocumentsTotal.WithLabelValues(statusLabel(err)).Inc()
}

// UpdateSystemStats updates system-level gauges
func (m *Metrics) UpdateSystemStats(memoryBytes int64, goroutines int) {
	m.MemoryUsageBytes.Set(float64(memoryBytes))
	m.GoroutinesTotal.Set(float64(goroutines))
}
