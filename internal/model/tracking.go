package model

import "time"

// Shard outcomes
const (
	OutcomeSuccess   = "success"
	OutcomeEmpty     = "empty" // statement returned no columns
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
)

// ShardFailure is a failure recorded for one shard; it never aborts the other shards
type ShardFailure struct {
	Param   string `json:"param" db:"param"`
	Message string `json:"message" db:"message"`
}

// ShardMetrics represents execution metrics for one shard of a run
type ShardMetrics struct {
	RunID    string        `json:"run_id" db:"run_id"`
	Param    string        `json:"param" db:"param"`
	Outcome  string        `json:"outcome" db:"outcome"`
	Rows     int64         `json:"rows" db:"row_count"`
	Duration time.Duration `json:"duration" db:"duration"`
	Attempts int           `json:"attempts" db:"attempts"`
	Error    string        `json:"error,omitempty" db:"error"`
}

// RunSummary represents overall metrics for one run
type RunSummary struct {
	RunID        string         `json:"run_id"`
	DataSource   string         `json:"data_source"`
	Shards       int            `json:"shards"`
	Succeeded    int            `json:"succeeded"`
	Failed       int            `json:"failed"`
	Cancelled    int            `json:"cancelled"`
	RowsMerged   int64          `json:"rows_merged"`
	Duration     time.Duration  `json:"duration"`
	ShardMetrics []ShardMetrics `json:"shard_metrics"`
}
