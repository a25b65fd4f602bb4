package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"go-shard-query/internal/driver"
	"go-shard-query/internal/model"
	"go-shard-query/pkg/utils"
)

// RunStore persists the progress and outcome of runs
type RunStore interface {
	UpdateRunStatus(runID, status, message string) error
	SaveRunResult(runID string, result *model.QueryResult) error
	SaveShardFailures(runID string, failures []model.ShardFailure) error
	SaveShardMetrics(runID string, metrics []model.ShardMetrics) error
}

// DriverFactory creates the driver used for a data source's shards
type DriverFactory func(ds model.DataSource) (driver.Driver, error)

// Runner executes query runs against configured data sources
type Runner struct {
	NewDriver DriverFactory
	Store     RunStore             // optional
	Output    *utils.OutputManager // optional, needed for exports
	Metrics   *Metrics             // optional
	Logger    *zap.Logger

	sources map[string]model.DataSource

	mu      sync.Mutex
	drivers map[string]driver.Driver
	active  map[string]*Canceller
}

// NewRunner creates a runner for the given data sources using the MySQL driver
func NewRunner(sources []model.DataSource, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{
		NewDriver: func(ds model.DataSource) (driver.Driver, error) { return driver.NewMySQL(ds) },
		Logger:    logger,
		sources:   make(map[string]model.DataSource, len(sources)),
		drivers:   make(map[string]driver.Driver),
		active:    make(map[string]*Canceller),
	}
	for _, ds := range sources {
		r.sources[ds.Name] = ds
	}
	return r
}

// Source looks up a data source by name
func (r *Runner) Source(name string) (model.DataSource, bool) {
	ds, ok := r.sources[name]
	return ds, ok
}

// Sources returns every data source, sorted by name
func (r *Runner) Sources() []model.DataSource {
	out := make([]model.DataSource, 0, len(r.sources))
	for _, ds := range r.sources {
		out = append(out, ds)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ------------------- Run Orchestration -------------------

// Run executes spec as run runID: resolve shard targets, query every shard, aggregate
// for aggregate sources, export and persist. Partial results are not errors: the
// combined shard error travels in QueryResult.Error. The returned error is set only
// when the run could not start (bad configuration, unknown source).
func (r *Runner) Run(ctx context.Context, runID string, spec model.QueryJobSpec) (*model.QueryResult, error) {
	logger := r.Logger.With(zap.String("run_id", runID), zap.String("data_source", spec.DataSource))

	ds, err := r.prepare(spec)
	if err != nil {
		r.failRun(logger, runID, spec.DataSource, err)
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, utils.ParseDuration(spec.Timeout))
	defer cancel()

	r.setStatus(logger, runID, model.StatusResolving, "")
	targets, err := ResolveTargets(ds.Params, ds.Template)
	if err != nil {
		r.failRun(logger, runID, ds.Name, err)
		return nil, err
	}

	d, err := r.driverFor(ds)
	if err != nil {
		err = &ConfigurationError{Field: "driver", Err: err}
		r.failRun(logger, runID, ds.Name, err)
		return nil, err
	}

	canceller := r.register(runID)
	defer r.unregister(runID)

	tracker := NewRunTracker(runID, ds.Name, r.Metrics, logger)
	executor := &Executor{
		Driver:         d,
		Concurrency:    ds.Concurrency,
		ConnectTimeout: ds.ConnectTimeout,
		Retry:          ds.Retry,
		Logger:         logger,
		OnShardDone:    tracker.Observe,
	}

	r.setStatus(logger, runID, model.StatusExecuting, "")
	logger.Info("Starting sharded query", zap.Int("shards", len(targets)))

	rs, execErr := executor.Execute(ctx, Request{
		Query:           spec.Query,
		Targets:         targets,
		ShowParamColumn: ds.ShowParams,
		Canceller:       canceller,
	})

	result := &model.QueryResult{Data: rs}
	var failures []model.ShardFailure
	if execErr != nil {
		result.Error = execErr.Error()
		var combined *CombinedError
		if errors.As(execErr, &combined) {
			failures = combined.Failures
		}
	} else if ds.Aggregates() {
		r.setStatus(logger, runID, model.StatusAggregating, "")
		aggregated, err := Aggregate(rs, ds.AggregateColumns)
		if err != nil {
			// the merged rows are still worth returning
			logger.Warn("Aggregation failed", zap.Error(err))
			result.Error = err.Error()
		} else {
			logger.Info("Aggregation complete",
				zap.Int("rows_in", len(rs.Rows)),
				zap.Int("groups", len(aggregated.Rows)))
			result.Data = aggregated
		}
	}

	status := finalStatus(result, canceller)

	if spec.Export != nil && spec.Export.File != "" && r.Output != nil {
		exported, err := ExportResultSet(r.Output, runID, *spec.Export, result)
		if err != nil {
			logger.Error("Export failed", zap.Error(err))
		} else {
			logger.Info("Exported result",
				zap.String("path", exported.Path),
				zap.Int("records", exported.RecordCount))
		}
	}

	summary := tracker.Finish(status)
	r.persist(logger, runID, status, result, failures, summary.ShardMetrics)

	return result, nil
}

// Cancel cancels an active run. With an empty shard every remaining shard is
// cancelled, otherwise only the named shard's in-flight query.
func (r *Runner) Cancel(runID, shard string) bool {
	r.mu.Lock()
	c, ok := r.active[runID]
	r.mu.Unlock()
	if !ok {
		return false
	}

	if shard == "" {
		c.CancelAll()
		return true
	}
	return c.CancelShard(shard)
}

// Active reports whether runID is currently executing
func (r *Runner) Active(runID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[runID]
	return ok
}

func (r *Runner) prepare(spec model.QueryJobSpec) (model.DataSource, error) {
	ds, ok := r.Source(spec.DataSource)
	if !ok {
		return ds, &ConfigurationError{Field: "data_source", Err: fmt.Errorf("unknown data source %q", spec.DataSource)}
	}
	if strings.TrimSpace(spec.Query) == "" {
		return ds, &ConfigurationError{Field: "query", Err: errors.New("query is required")}
	}
	return ds, ValidateDataSource(ds)
}

func (r *Runner) driverFor(ds model.DataSource) (driver.Driver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d, ok := r.drivers[ds.Name]; ok {
		return d, nil
	}
	d, err := r.NewDriver(ds)
	if err != nil {
		return nil, err
	}
	r.drivers[ds.Name] = d
	return d, nil
}

func (r *Runner) register(runID string) *Canceller {
	c := NewCanceller()
	r.mu.Lock()
	r.active[runID] = c
	r.mu.Unlock()
	return c
}

func (r *Runner) unregister(runID string) {
	r.mu.Lock()
	delete(r.active, runID)
	r.mu.Unlock()
}

func finalStatus(result *model.QueryResult, canceller *Canceller) string {
	switch {
	case canceller.Stopped():
		return model.StatusCancelled
	case result.Error == "":
		return model.StatusCompleted
	case result.Data != nil && len(result.Data.Rows) > 0:
		return model.StatusPartial
	default:
		return model.StatusFailed
	}
}

func (r *Runner) setStatus(logger *zap.Logger, runID, status, message string) {
	if r.Store == nil {
		return
	}
	if err := r.Store.UpdateRunStatus(runID, status, message); err != nil {
		logger.Error("Failed to update run status", zap.String("status", status), zap.Error(err))
	}
}

func (r *Runner) failRun(logger *zap.Logger, runID, dataSource string, err error) {
	logger.Error("Run failed", zap.Error(err))
	if r.Metrics != nil {
		r.Metrics.runs.WithLabelValues(dataSource, model.StatusFailed).Inc()
	}
	r.setStatus(logger, runID, model.StatusFailed, err.Error())
}

func (r *Runner) persist(logger *zap.Logger, runID, status string, result *model.QueryResult, failures []model.ShardFailure, metrics []model.ShardMetrics) {
	if r.Store == nil {
		return
	}

	err := multierr.Combine(
		r.Store.SaveRunResult(runID, result),
		r.Store.SaveShardFailures(runID, failures),
		r.Store.SaveShardMetrics(runID, metrics),
		r.Store.UpdateRunStatus(runID, status, result.Error),
	)
	if err != nil {
		logger.Error("Failed to persist run", zap.Error(err))
	}
}
