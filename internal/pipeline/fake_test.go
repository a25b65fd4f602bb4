package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go-shard-query/internal/driver"
	"go-shard-query/internal/model"
)

// fakeResultSet is one result set of a fake statement. A nil columns slice
// behaves like a statement that returns no result columns.
type fakeResultSet struct {
	columns []driver.Column
	rows    [][]interface{}
}

type fakeShard struct {
	connectErr      error
	connectFailures int // fail this many connects before succeeding
	execErr         error
	block           bool // Execute waits for cancellation
	sets            []fakeResultSet
}

type fakeDriver struct {
	mu       sync.Mutex
	shards   map[string]*fakeShard
	connects map[string]int
	started  chan string // receives the param of each blocking Execute
}

func newFakeDriver(shards map[string]*fakeShard) *fakeDriver {
	return &fakeDriver{
		shards:   shards,
		connects: make(map[string]int),
		started:  make(chan string, len(shards)),
	}
}

func (d *fakeDriver) Connect(ctx context.Context, target model.ShardTarget) (driver.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.connects[target.Param]++
	shard, ok := d.shards[target.Param]
	if !ok {
		return nil, fmt.Errorf("Unknown MySQL server host '%s'", target.Config.Host)
	}
	if d.connects[target.Param] <= shard.connectFailures {
		return nil, errors.New("connection refused")
	}
	if shard.connectErr != nil {
		return nil, shard.connectErr
	}
	return &fakeConn{driver: d, param: target.Param, shard: shard}, nil
}

func (d *fakeDriver) connectCount(param string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connects[param]
}

type fakeConn struct {
	driver *fakeDriver
	param  string
	shard  *fakeShard
}

func (c *fakeConn) Execute(ctx context.Context, query string) (driver.Cursor, error) {
	if c.shard.block {
		c.driver.started <- c.param
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if c.shard.execErr != nil {
		return nil, c.shard.execErr
	}
	return &fakeCursor{sets: c.shard.sets}, nil
}

func (c *fakeConn) Close() error { return nil }

type fakeCursor struct {
	sets []fakeResultSet
	idx  int
}

func (c *fakeCursor) Columns() ([]driver.Column, error) {
	if c.idx >= len(c.sets) {
		return nil, nil
	}
	return c.sets[c.idx].columns, nil
}

func (c *fakeCursor) Rows() ([][]interface{}, error) {
	if c.idx >= len(c.sets) {
		return nil, nil
	}
	rows := make([][]interface{}, 0, len(c.sets[c.idx].rows))
	for _, r := range c.sets[c.idx].rows {
		rows = append(rows, append([]interface{}(nil), r...))
	}
	return rows, nil
}

func (c *fakeCursor) NextResultSet() bool {
	c.idx++
	return c.idx < len(c.sets)
}

func (c *fakeCursor) Err() error   { return nil }
func (c *fakeCursor) Close() error { return nil }

// fakeStore records what a runner persists
type fakeStore struct {
	mu       sync.Mutex
	statuses map[string][]string
	results  map[string]*model.QueryResult
	failures map[string][]model.ShardFailure
	metrics  map[string][]model.ShardMetrics
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		statuses: make(map[string][]string),
		results:  make(map[string]*model.QueryResult),
		failures: make(map[string][]model.ShardFailure),
		metrics:  make(map[string][]model.ShardMetrics),
	}
}

func (s *fakeStore) UpdateRunStatus(runID, status, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[runID] = append(s.statuses[runID], status)
	return nil
}

func (s *fakeStore) SaveRunResult(runID string, result *model.QueryResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[runID] = result
	return nil
}

func (s *fakeStore) SaveShardFailures(runID string, failures []model.ShardFailure) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[runID] = failures
	return nil
}

func (s *fakeStore) SaveShardMetrics(runID string, metrics []model.ShardMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics[runID] = metrics
	return nil
}

func (s *fakeStore) lastStatus(runID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.statuses[runID]
	if len(st) == 0 {
		return ""
	}
	return st[len(st)-1]
}

// helpers

func intCol(name string) driver.Column  { return driver.Column{Name: name, TypeCode: 3} }
func textCol(name string) driver.Column { return driver.Column{Name: name, TypeCode: 253} }

func targets(params ...string) []model.ShardTarget {
	out := make([]model.ShardTarget, 0, len(params))
	for _, p := range params {
		out = append(out, model.ShardTarget{
			Param:  p,
			Config: model.ConnectionConfig{Host: "db-" + p, Port: 3306, Database: "app_" + p},
		})
	}
	return out
}
