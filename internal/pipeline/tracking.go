package pipeline

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"go-shard-query/internal/model"
)

// Metrics holds the Prometheus collectors for sharded query execution
type Metrics struct {
	shardQueries  *prometheus.CounterVec
	shardDuration *prometheus.HistogramVec
	rowsMerged    *prometheus.CounterVec
	runs          *prometheus.CounterVec
}

// NewMetrics creates unregistered collectors; see PrometheusCollectors
func NewMetrics() *Metrics {
	const namespace = "shardquery"

	return &Metrics{
		shardQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shard_queries_total",
			Help:      "Number of shard queries by outcome",
		}, []string{"data_source", "outcome"}),

		shardDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "shard_query_duration_seconds",
			Help:      "Histogram of time spent connecting to and querying one shard",
			Buckets:   prometheus.ExponentialBuckets(1e-3, 5, 8),
		}, []string{"data_source"}),

		rowsMerged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_merged_total",
			Help:      "Number of shard rows merged into results",
		}, []string{"data_source"}),

		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Number of finished query runs by final status",
		}, []string{"data_source", "status"}),
	}
}

// PrometheusCollectors satisfies the prometheus.Collector registration pattern
func (m *Metrics) PrometheusCollectors() []prometheus.Collector {
	return []prometheus.Collector{m.shardQueries, m.shardDuration, m.rowsMerged, m.runs}
}

// RunTracker collects per-shard metrics for one run
type RunTracker struct {
	runID      string
	dataSource string
	start      time.Time
	metrics    *Metrics
	logger     *zap.Logger

	mu     sync.Mutex
	shards []model.ShardMetrics
}

// NewRunTracker starts tracking a run. metrics may be nil.
func NewRunTracker(runID, dataSource string, metrics *Metrics, logger *zap.Logger) *RunTracker {
	return &RunTracker{
		runID:      runID,
		dataSource: dataSource,
		start:      time.Now(),
		metrics:    metrics,
		logger:     logger,
	}
}

// Observe records one finished shard; safe for concurrent use
func (t *RunTracker) Observe(o ShardOutcome) {
	m := model.ShardMetrics{
		RunID:    t.runID,
		Param:    o.Param,
		Outcome:  o.Outcome,
		Rows:     int64(len(o.Rows)),
		Duration: o.Duration,
		Attempts: o.Attempts,
	}
	if o.Failure != nil {
		m.Error = o.Failure.Message
	}

	t.mu.Lock()
	t.shards = append(t.shards, m)
	t.mu.Unlock()

	if t.metrics != nil {
		t.metrics.shardQueries.WithLabelValues(t.dataSource, o.Outcome).Inc()
		t.metrics.shardDuration.WithLabelValues(t.dataSource).Observe(o.Duration.Seconds())
		t.metrics.rowsMerged.WithLabelValues(t.dataSource).Add(float64(len(o.Rows)))
	}
}

// Finish records the run's final status and returns its summary
func (t *RunTracker) Finish(status string) model.RunSummary {
	t.mu.Lock()
	defer t.mu.Unlock()

	summary := model.RunSummary{
		RunID:        t.runID,
		DataSource:   t.dataSource,
		Shards:       len(t.shards),
		Duration:     time.Since(t.start),
		ShardMetrics: append([]model.ShardMetrics(nil), t.shards...),
	}
	for _, s := range t.shards {
		switch s.Outcome {
		case model.OutcomeSuccess, model.OutcomeEmpty:
			summary.Succeeded++
		case model.OutcomeCancelled:
			summary.Cancelled++
		default:
			summary.Failed++
		}
		summary.RowsMerged += s.Rows
	}

	if t.metrics != nil {
		t.metrics.runs.WithLabelValues(t.dataSource, status).Inc()
	}

	t.logger.Info("Run finished",
		zap.String("run_id", t.runID),
		zap.String("data_source", t.dataSource),
		zap.String("status", status),
		zap.Int("shards", summary.Shards),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int("cancelled", summary.Cancelled),
		zap.Int64("rows", summary.RowsMerged),
		zap.Duration("duration", summary.Duration))

	return summary
}
