package driver

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-shard-query/internal/model"
)

var testTarget = model.ShardTarget{
	Param:  "shard1",
	Config: model.ConnectionConfig{Host: "db-shard1", Port: 3306, Database: "test_shard1"},
}

func newMockDriver(t *testing.T) (*SQLDriver, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)

	open := func(context.Context, model.ShardTarget) (*sql.DB, error) { return db, nil }
	return NewSQLDriver(open, MySQLTypeCode), mock
}

func TestSQLDriver_SingleResultSet(t *testing.T) {
	d, mock := newMockDriver(t)
	rows := mock.NewRowsWithColumnDefinition(
		mock.NewColumn("id").OfType("BIGINT", int64(0)),
		mock.NewColumn("name").OfType("VARCHAR", ""),
	).AddRow(int64(1), "alice").AddRow(int64(2), "bob")
	mock.ExpectQuery("SELECT id, name FROM users").WillReturnRows(rows)
	mock.ExpectClose()

	ctx := context.Background()
	conn, err := d.Connect(ctx, testTarget)
	require.NoError(t, err)

	cur, err := conn.Execute(ctx, "SELECT id, name FROM users")
	require.NoError(t, err)

	cols, err := cur.Columns()
	require.NoError(t, err)
	assert.Equal(t, []Column{{Name: "id", TypeCode: 8}, {Name: "name", TypeCode: 253}}, cols)

	got, err := cur.Rows()
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0][0])
	assert.Equal(t, "bob", got[1][1])

	assert.False(t, cur.NextResultSet())
	assert.NoError(t, cur.Err())
	require.NoError(t, cur.Close())
	require.NoError(t, conn.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLDriver_MultipleResultSets(t *testing.T) {
	d, mock := newMockDriver(t)
	first := mock.NewRowsWithColumnDefinition(
		mock.NewColumn("tmp").OfType("INT", int64(0)),
	).AddRow(int64(99))
	last := mock.NewRowsWithColumnDefinition(
		mock.NewColumn("day").OfType("DATE", ""),
		mock.NewColumn("total").OfType("DECIMAL", ""),
	).AddRow("2024-01-01", "10.50")
	mock.ExpectQuery("CALL daily_totals()").WillReturnRows(first, last)
	mock.ExpectClose()

	ctx := context.Background()
	conn, err := d.Connect(ctx, testTarget)
	require.NoError(t, err)
	defer conn.Close()

	cur, err := conn.Execute(ctx, "CALL daily_totals()")
	require.NoError(t, err)

	cols, err := cur.Columns()
	require.NoError(t, err)
	assert.Equal(t, "tmp", cols[0].Name)
	_, err = cur.Rows()
	require.NoError(t, err)

	require.True(t, cur.NextResultSet())
	cols, err = cur.Columns()
	require.NoError(t, err)
	assert.Equal(t, []Column{{Name: "day", TypeCode: 10}, {Name: "total", TypeCode: 0}}, cols)

	got, err := cur.Rows()
	require.NoError(t, err)
	assert.Equal(t, [][]interface{}{{"2024-01-01", "10.50"}}, got)
	assert.False(t, cur.NextResultSet())
}

func TestSQLDriver_QueryError(t *testing.T) {
	d, mock := newMockDriver(t)
	mock.ExpectQuery("SELECT * FROM missing").
		WillReturnError(&mysql.MySQLError{Number: 1146, Message: "Table 'test_shard1.missing' doesn't exist"})
	mock.ExpectClose()

	ctx := context.Background()
	conn, err := d.Connect(ctx, testTarget)
	require.NoError(t, err)

	_, err = conn.Execute(ctx, "SELECT * FROM missing")
	require.Error(t, err)
	assert.Equal(t, "Table 'test_shard1.missing' doesn't exist", ErrorMessage(err))

	require.NoError(t, conn.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLDriver_OpenError(t *testing.T) {
	d := NewSQLDriver(func(context.Context, model.ShardTarget) (*sql.DB, error) {
		return nil, errors.New("dial tcp: connection refused")
	}, nil)

	_, err := d.Connect(context.Background(), testTarget)
	require.EqualError(t, err, "dial tcp: connection refused")
}

func TestErrorMessage_PlainError(t *testing.T) {
	assert.Equal(t, "boom", ErrorMessage(errors.New("boom")))
}
