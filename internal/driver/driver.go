// Package driver is the boundary between the shard executor and the database it talks to.
package driver

import (
	"context"

	"go-shard-query/internal/model"
)

// UnknownTypeCode is reported when the driver cannot tell a column's type
const UnknownTypeCode = -1

// Column is a result column as reported by the driver
type Column struct {
	Name     string
	TypeCode int // MySQL protocol field type or UnknownTypeCode
}

// Driver opens connections to shard targets
type Driver interface {
	Connect(ctx context.Context, target model.ShardTarget) (Conn, error)
}

// Conn is one open shard connection
type Conn interface {
	Execute(ctx context.Context, query string) (Cursor, error)
	Close() error
}

// Cursor walks the result sets produced by one statement.
// Columns and Rows describe the current result set.
type Cursor interface {
	Columns() ([]Column, error)
	Rows() ([][]interface{}, error)
	NextResultSet() bool
	Err() error // error hit while advancing result sets
	Close() error
}
