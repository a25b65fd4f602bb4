package pipeline

import (
	"fmt"
	"strings"

	"go-shard-query/internal/model"
)

const (
	// NoDataMessage is appended to the combined error when no shard returned rows
	NoDataMessage = "No data was returned."
	// CancelledMessage is recorded for a shard whose query was cancelled
	CancelledMessage = "Query cancelled by user."
)

// ConfigurationError reports a malformed data source or connection template.
// It is fatal: no shard is attempted.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("configuration error: %v", e.Err)
	}
	return fmt.Sprintf("configuration error: %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// CombinedError concatenates every shard failure of one execution, in target order,
// plus the no-data notice when nothing was returned.
type CombinedError struct {
	Failures []model.ShardFailure
	NoData   bool
}

func (e *CombinedError) Error() string {
	var b strings.Builder
	for _, f := range e.Failures {
		b.WriteString(f.Param)
		b.WriteString(": ")
		b.WriteString(f.Message)
		b.WriteString(" ")
	}
	if e.NoData {
		b.WriteString(NoDataMessage)
	}
	return b.String()
}

// AggregationTypeError is returned when a value column holds a non-numeric value
type AggregationTypeError struct {
	Row    int
	Column string
	Value  interface{}
}

func (e *AggregationTypeError) Error() string {
	if _, ok := e.Value.(string); ok {
		return fmt.Sprintf("String found in aggregate column %q (row %d).", e.Column, e.Row)
	}
	return fmt.Sprintf("Non-numeric value %v (%T) found in aggregate column %q (row %d).", e.Value, e.Value, e.Column, e.Row)
}

// AggregationShapeError is returned when a row cannot be split into keys and values
type AggregationShapeError struct {
	Row        int
	KeyColumns int
	Keys       int
	Values     int
}

func (e *AggregationShapeError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("Aggregate query is incorrect: key column count must be at least 1, got %d.", e.KeyColumns)
	}
	return fmt.Sprintf("Aggregate query is incorrect: row %d has %d key values and %d values to aggregate with %d key columns.",
		e.Row, e.Keys, e.Values, e.KeyColumns)
}
