package driver

import (
	"context"
	"database/sql"
	"fmt"

	"go-shard-query/internal/model"
)

// Opener returns a database handle for one shard target
type Opener func(ctx context.Context, target model.ShardTarget) (*sql.DB, error)

// TypeCoder maps a database type name (sql.ColumnType.DatabaseTypeName) to a type code
type TypeCoder func(databaseTypeName string) int

// SQLDriver adapts database/sql to the Driver interface.
// Every connection is a dedicated *sql.DB limited to one open connection.
type SQLDriver struct {
	open     Opener
	typeCode TypeCoder
}

// NewSQLDriver creates a driver backed by database/sql
func NewSQLDriver(open Opener, typeCode TypeCoder) *SQLDriver {
	if typeCode == nil {
		typeCode = func(string) int { return UnknownTypeCode }
	}
	return &SQLDriver{open: open, typeCode: typeCode}
}

// Connect opens and pings a handle for target
func (d *SQLDriver) Connect(ctx context.Context, target model.ShardTarget) (Conn, error) {
	db, err := d.open(ctx, target)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return &sqlConn{db: db, typeCode: d.typeCode}, nil
}

type sqlConn struct {
	db       *sql.DB
	typeCode TypeCoder
}

func (c *sqlConn) Execute(ctx context.Context, query string) (Cursor, error) {
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	return &sqlCursor{rows: rows, typeCode: c.typeCode}, nil
}

func (c *sqlConn) Close() error {
	return c.db.Close()
}

type sqlCursor struct {
	rows     *sql.Rows
	typeCode TypeCoder
}

// Columns must be read before Rows: database/sql closes the rows once the
// final result set is exhausted.
func (c *sqlCursor) Columns() ([]Column, error) {
	types, err := c.rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to read column types: %w", err)
	}

	columns := make([]Column, len(types))
	for i, t := range types {
		columns[i] = Column{Name: t.Name(), TypeCode: c.typeCode(t.DatabaseTypeName())}
	}
	return columns, nil
}

func (c *sqlCursor) Rows() ([][]interface{}, error) {
	names, err := c.rows.Columns()
	if err != nil {
		return nil, err
	}

	var out [][]interface{}
	for c.rows.Next() {
		values := make([]interface{}, len(names))
		dest := make([]interface{}, len(names))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := c.rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, values)
	}
	return out, c.rows.Err()
}

func (c *sqlCursor) NextResultSet() bool {
	return c.rows.NextResultSet()
}

func (c *sqlCursor) Err() error {
	return c.rows.Err()
}

func (c *sqlCursor) Close() error {
	return c.rows.Close()
}
