package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"go-shard-query/internal/model"
	"go-shard-query/internal/pipeline"
	"go-shard-query/internal/store"
)

// RunStore is the part of the run store the API needs
type RunStore interface {
	SaveRun(run model.QueryRun) error
	GetRun(runID string) (*model.QueryRun, error)
	ListRuns(filter store.RunFilter) ([]model.QueryRun, error)
	DeleteRun(runID string) error
	GetRunResult(runID string) (*model.QueryResult, error)
	GetShardFailures(runID string) ([]model.ShardFailure, error)
	GetShardMetrics(runID string) ([]model.ShardMetrics, error)
}

// QueryHandler serves the query run API
type QueryHandler struct {
	runner *pipeline.Runner
	store  RunStore
	logger *zap.Logger

	// base context for asynchronous runs; cancelled on shutdown
	ctx context.Context
	wg  sync.WaitGroup
}

// NewQueryHandler creates a handler. Runs started without ?wait=true keep running
// until they finish or ctx is cancelled.
func NewQueryHandler(ctx context.Context, runner *pipeline.Runner, runs RunStore, logger *zap.Logger) *QueryHandler {
	return &QueryHandler{
		runner: runner,
		store:  runs,
		logger: logger,
		ctx:    ctx,
	}
}

// Wait blocks until every asynchronous run has finished
func (h *QueryHandler) Wait() {
	h.wg.Wait()
}

// runResponse is returned when a run is created
type runResponse struct {
	ID        string             `json:"id"`
	Status    string             `json:"status"`
	CreatedAt time.Time          `json:"created_at"`
	Result    *model.QueryResult `json:"result,omitempty"`
}

// runDetails is a stored run plus whether it is still executing
type runDetails struct {
	model.QueryRun
	Active bool `json:"active"`
}

// CreateQuery starts a new sharded query run
// @Summary Run a sharded query
// @Description Run a query against every shard of a data source. The run is asynchronous unless wait=true.
// @Tags queries
// @Accept json
// @Produce json
// @Param query body model.QueryJobSpec true "Query to run"
// @Param wait query bool false "Block until the run finishes and return its result"
// @Success 200 {object} runResponse "Finished run (wait=true)"
// @Success 202 {object} runResponse "Run accepted"
// @Failure 400 {string} string "Invalid request payload"
// @Failure 500 {string} string "Internal server error"
// @Router /queries [post]
func (h *QueryHandler) CreateQuery(w http.ResponseWriter, r *http.Request) {
	var spec model.QueryJobSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	if _, ok := h.runner.Source(spec.DataSource); !ok {
		http.Error(w, "Unknown data source: "+spec.DataSource, http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(spec.Query) == "" {
		http.Error(w, "Query is required", http.StatusBadRequest)
		return
	}

	h.start(w, r, spec)
}

// RetryQuery runs a stored run's query again as a new run
// @Summary Retry a query run
// @Description Run the same query against the same data source as a new run
// @Tags queries
// @Produce json
// @Param id path string true "Run ID"
// @Param wait query bool false "Block until the run finishes and return its result"
// @Success 202 {object} runResponse "Run accepted"
// @Failure 404 {string} string "Run not found"
// @Router /queries/{id}/retry [post]
func (h *QueryHandler) RetryQuery(w http.ResponseWriter, r *http.Request) {
	run, ok := h.lookupRun(w, r)
	if !ok {
		return
	}
	if _, known := h.runner.Source(run.DataSource); !known {
		http.Error(w, "Data source no longer configured: "+run.DataSource, http.StatusConflict)
		return
	}

	h.start(w, r, model.QueryJobSpec{DataSource: run.DataSource, Query: run.Query})
}

func (h *QueryHandler) start(w http.ResponseWriter, r *http.Request, spec model.QueryJobSpec) {
	run := model.QueryRun{
		ID:         uuid.New().String(),
		DataSource: spec.DataSource,
		Query:      spec.Query,
		Status:     model.StatusPending,
		CreatedAt:  time.Now().UTC(),
	}
	if err := h.store.SaveRun(run); err != nil {
		h.logger.Error("Failed to save run", zap.Error(err))
		http.Error(w, "Failed to save run", http.StatusInternalServerError)
		return
	}

	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		result, err := h.runner.Run(r.Context(), run.ID, spec)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		stored, err := h.store.GetRun(run.ID)
		if err != nil {
			http.Error(w, "Failed to fetch run", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, runResponse{ID: run.ID, Status: stored.Status, CreatedAt: run.CreatedAt, Result: result})
		return
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		if _, err := h.runner.Run(h.ctx, run.ID, spec); err != nil {
			h.logger.Warn("Run did not start", zap.String("run_id", run.ID), zap.Error(err))
		}
	}()

	writeJSON(w, http.StatusAccepted, runResponse{ID: run.ID, Status: run.Status, CreatedAt: run.CreatedAt})
}

// ListQueries retrieves query runs
// @Summary List query runs
// @Description List runs newest first, optionally filtered
// @Tags queries
// @Produce json
// @Param data_source query string false "Only runs of this data source"
// @Param status query string false "Only runs with this status"
// @Param limit query int false "Maximum number of runs"
// @Success 200 {array} model.QueryRun "Runs"
// @Failure 400 {string} string "Invalid limit"
// @Failure 500 {string} string "Internal server error"
// @Router /queries [get]
func (h *QueryHandler) ListQueries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.RunFilter{DataSource: q.Get("data_source"), Status: q.Get("status")}
	if l := q.Get("limit"); l != "" {
		limit, err := strconv.ParseUint(l, 10, 64)
		if err != nil {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		filter.Limit = limit
	}

	runs, err := h.store.ListRuns(filter)
	if err != nil {
		h.logger.Error("Failed to list runs", zap.Error(err))
		http.Error(w, "Failed to fetch runs", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// GetQuery retrieves one run
// @Summary Get query run
// @Tags queries
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} runDetails "Run details"
// @Failure 404 {string} string "Run not found"
// @Router /queries/{id} [get]
func (h *QueryHandler) GetQuery(w http.ResponseWriter, r *http.Request) {
	run, ok := h.lookupRun(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, runDetails{QueryRun: *run, Active: h.runner.Active(run.ID)})
}

// GetQueryResult retrieves the merged (and, for aggregate sources, aggregated) result
// @Summary Get query result
// @Tags queries
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} model.QueryResult "Result"
// @Failure 404 {string} string "Run or result not found"
// @Router /queries/{id}/result [get]
func (h *QueryHandler) GetQueryResult(w http.ResponseWriter, r *http.Request) {
	id, ok := runID(w, r)
	if !ok {
		return
	}

	result, err := h.store.GetRunResult(id)
	if errors.Is(err, store.ErrRunNotFound) {
		http.Error(w, "Result not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("Failed to fetch result", zap.String("run_id", id), zap.Error(err))
		http.Error(w, "Failed to fetch result", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetQueryFailures retrieves per-shard failures
// @Summary Get shard failures
// @Tags queries
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {array} model.ShardFailure "Failures in shard order"
// @Failure 404 {string} string "Run not found"
// @Router /queries/{id}/failures [get]
func (h *QueryHandler) GetQueryFailures(w http.ResponseWriter, r *http.Request) {
	run, ok := h.lookupRun(w, r)
	if !ok {
		return
	}

	failures, err := h.store.GetShardFailures(run.ID)
	if err != nil {
		http.Error(w, "Failed to retrieve failures", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, failures)
}

// GetQueryMetrics retrieves per-shard execution metrics
// @Summary Get shard metrics
// @Tags queries
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {array} model.ShardMetrics "Per-shard metrics"
// @Failure 404 {string} string "Run not found"
// @Router /queries/{id}/metrics [get]
func (h *QueryHandler) GetQueryMetrics(w http.ResponseWriter, r *http.Request) {
	run, ok := h.lookupRun(w, r)
	if !ok {
		return
	}

	metrics, err := h.store.GetShardMetrics(run.ID)
	if err != nil {
		http.Error(w, "Failed to retrieve metrics", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, metrics)
}

// CancelQuery cancels a running query, or only one of its shards
// @Summary Cancel a query run
// @Tags queries
// @Produce json
// @Param id path string true "Run ID"
// @Param shard query string false "Only cancel this shard's in-flight query"
// @Success 200 {object} map[string]interface{} "Cancellation requested"
// @Failure 404 {string} string "Run not found"
// @Failure 409 {string} string "Run or shard is not running"
// @Router /queries/{id}/cancel [post]
func (h *QueryHandler) CancelQuery(w http.ResponseWriter, r *http.Request) {
	run, ok := h.lookupRun(w, r)
	if !ok {
		return
	}

	shard := r.URL.Query().Get("shard")
	if !h.runner.Cancel(run.ID, shard) {
		if shard != "" {
			http.Error(w, "Shard is not running: "+shard, http.StatusConflict)
		} else {
			http.Error(w, "Run is not running", http.StatusConflict)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":      run.ID,
		"shard":   shard,
		"message": "Cancellation requested",
	})
}

// DeleteQuery deletes a finished run and everything recorded for it
// @Summary Delete a query run
// @Tags queries
// @Param id path string true "Run ID"
// @Success 204 "Deleted"
// @Failure 404 {string} string "Run not found"
// @Failure 409 {string} string "Run is still running"
// @Router /queries/{id} [delete]
func (h *QueryHandler) DeleteQuery(w http.ResponseWriter, r *http.Request) {
	id, ok := runID(w, r)
	if !ok {
		return
	}
	if h.runner.Active(id) {
		http.Error(w, "Run is still running", http.StatusConflict)
		return
	}

	err := h.store.DeleteRun(id)
	if errors.Is(err, store.ErrRunNotFound) {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to delete run", http.StatusInternalServerError)
		return
	}

	if h.runner.Output != nil {
		if err := h.runner.Output.RemoveRunOutputDir(id); err != nil {
			h.logger.Warn("Failed to remove run output", zap.String("run_id", id), zap.Error(err))
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListSources lists the configured data sources. Passwords are never included.
// @Summary List data sources
// @Tags sources
// @Produce json
// @Success 200 {array} model.DataSource "Data sources"
// @Router /sources [get]
func (h *QueryHandler) ListSources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.runner.Sources())
}

func (h *QueryHandler) lookupRun(w http.ResponseWriter, r *http.Request) (*model.QueryRun, bool) {
	id, ok := runID(w, r)
	if !ok {
		return nil, false
	}

	run, err := h.store.GetRun(id)
	if errors.Is(err, store.ErrRunNotFound) {
		http.Error(w, "Run not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		h.logger.Error("Failed to fetch run", zap.String("run_id", id), zap.Error(err))
		http.Error(w, "Failed to fetch run", http.StatusInternalServerError)
		return nil, false
	}
	return run, true
}

// runID extracts the id from /api/v1/queries/{id}[/...]
func runID(w http.ResponseWriter, r *http.Request) (string, bool) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 4 || parts[3] == "" {
		http.Error(w, "Run ID is required", http.StatusBadRequest)
		return "", false
	}
	return parts[3], true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
