package pipeline

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"go-shard-query/internal/driver"
	"go-shard-query/internal/model"
)

// ------------------- Shard Query Execution -------------------

// Request is one query to run against a list of resolved shard targets
type Request struct {
	Query           string
	Targets         []model.ShardTarget
	ShowParamColumn bool       // prepend a "database" column carrying the shard param
	Canceller       *Canceller // optional
}

// ShardOutcome is what one target contributed to an execution
type ShardOutcome struct {
	Param    string
	Columns  []model.Column // nil when the statement produced no result columns
	Rows     []model.Row
	Failure  *model.ShardFailure
	Outcome  string
	Attempts int
	Duration time.Duration
}

// Executor runs one query against every shard target and merges the results
type Executor struct {
	Driver         driver.Driver
	Concurrency    int // targets queried at once; values below 1 mean sequential
	ConnectTimeout time.Duration
	Retry          model.RetryConfig
	Logger         *zap.Logger

	// OnShardDone, if set, is called once per target as soon as it finishes.
	// Calls may be concurrent when Concurrency > 1.
	OnShardDone func(ShardOutcome)
}

// Execute runs req.Query against every target. Failures are isolated per target;
// the merged result is returned together with a *CombinedError describing every
// failure, in target order, once all targets have been attempted.
func (e *Executor) Execute(ctx context.Context, req Request) (*model.ResultSet, error) {
	logger := e.logger()
	canceller := req.Canceller
	if canceller == nil {
		canceller = NewCanceller()
	}

	limit := e.Concurrency
	if limit < 1 {
		limit = 1
	}

	logger.Debug("Running sharded query",
		zap.String("query", req.Query),
		zap.Int("targets", len(req.Targets)),
		zap.Int("concurrency", limit))

	outcomes := make([]ShardOutcome, len(req.Targets))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, target := range req.Targets {
		i, target := i, target
		g.Go(func() error {
			outcomes[i] = e.runShard(ctx, canceller, req.Query, target)
			if e.OnShardDone != nil {
				e.OnShardDone(outcomes[i])
			}
			return nil
		})
	}
	_ = g.Wait() // shard tasks never return errors

	return mergeOutcomes(outcomes, req.ShowParamColumn)
}

// runShard is one unit of work: acquire, execute, drain, release.
func (e *Executor) runShard(parent context.Context, canceller *Canceller, query string, target model.ShardTarget) (out ShardOutcome) {
	start := time.Now()
	out.Param = target.Param
	logger := e.logger().With(zap.String("param", target.Param))

	ctx, release := canceller.shardContext(parent, target.Param)
	defer release()

	defer func() {
		out.Duration = time.Since(start)
		if out.Failure != nil {
			logger.Warn("Shard query failed", zap.String("message", out.Failure.Message), zap.Duration("duration", out.Duration))
		} else {
			logger.Debug("Shard query done", zap.Int("rows", len(out.Rows)), zap.Duration("duration", out.Duration))
		}
	}()

	if ctx.Err() != nil {
		e.fail(ctx, &out, target, ctx.Err())
		return out
	}

	timeout := e.ConnectTimeout
	if timeout <= 0 {
		timeout = driver.DefaultConnectTimeout
	}
	conn, attempts, err := connectWithRetry(ctx, e.Driver, target, e.Retry, timeout, logger)
	out.Attempts = attempts
	if err != nil {
		e.fail(ctx, &out, target, err)
		return out
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Warn("Failed to close shard connection", zap.Error(err))
		}
	}()

	logger.Debug("Shard running query", zap.String("query", query))
	cur, err := conn.Execute(ctx, query)
	if err != nil {
		e.fail(ctx, &out, target, err)
		return out
	}
	defer cur.Close()

	columns, rows, err := drain(cur)
	if err != nil {
		e.fail(ctx, &out, target, err)
		return out
	}

	if len(columns) == 0 {
		out.Outcome = model.OutcomeEmpty
		return out
	}

	out.Columns = buildColumns(columns)
	codes := columnCodes(columns)
	out.Rows = make([]model.Row, 0, len(rows))
	for _, values := range rows {
		out.Rows = append(out.Rows, transformRow(out.Columns, codes, values))
	}
	out.Outcome = model.OutcomeSuccess
	return out
}

// drain keeps only the last result set of a statement: every earlier result set
// is fetched and discarded.
func drain(cur driver.Cursor) ([]driver.Column, [][]interface{}, error) {
	columns, rows, err := fetch(cur)
	if err != nil {
		return nil, nil, err
	}
	for cur.NextResultSet() {
		columns, rows, err = fetch(cur)
		if err != nil {
			return nil, nil, err
		}
	}
	if err := cur.Err(); err != nil {
		return nil, nil, err
	}
	return columns, rows, nil
}

func fetch(cur driver.Cursor) ([]driver.Column, [][]interface{}, error) {
	columns, err := cur.Columns()
	if err != nil {
		return nil, nil, err
	}
	rows, err := cur.Rows()
	if err != nil {
		return nil, nil, err
	}
	return columns, rows, nil
}

// fail records a shard failure, telling cancellation apart from driver errors
func (e *Executor) fail(ctx context.Context, out *ShardOutcome, target model.ShardTarget, err error) {
	if errors.Is(ctx.Err(), context.Canceled) {
		out.Outcome = model.OutcomeCancelled
		out.Failure = &model.ShardFailure{Param: target.Param, Message: CancelledMessage}
		return
	}
	out.Outcome = model.OutcomeFailed
	out.Failure = &model.ShardFailure{Param: target.Param, Message: driver.ErrorMessage(err)}
}

// mergeOutcomes folds shard outcomes, in target order, into one result set
func mergeOutcomes(outcomes []ShardOutcome, showParamColumn bool) (*model.ResultSet, error) {
	merged := &model.ResultSet{Columns: []model.Column{}, Rows: []model.Row{}}
	var failures []model.ShardFailure
	haveColumns := false

	for _, o := range outcomes {
		if o.Failure != nil {
			failures = append(failures, *o.Failure)
			continue
		}
		if o.Columns == nil {
			continue
		}

		if !haveColumns {
			haveColumns = true
			if showParamColumn {
				merged.Columns = append(merged.Columns, model.Column{
					Name:         model.DatabaseColumn,
					FriendlyName: model.DatabaseColumn,
					Type:         model.TypeString,
				})
			}
			for _, c := range o.Columns {
				if showParamColumn && c.Name == model.DatabaseColumn {
					continue
				}
				merged.Columns = append(merged.Columns, c)
			}
		}

		for _, row := range o.Rows {
			if showParamColumn {
				row[model.DatabaseColumn] = o.Param
			}
			merged.Rows = append(merged.Rows, row)
		}
	}

	noData := len(merged.Rows) == 0
	if len(failures) == 0 && !noData {
		return merged, nil
	}
	return merged, &CombinedError{Failures: failures, NoData: noData}
}

func (e *Executor) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}
