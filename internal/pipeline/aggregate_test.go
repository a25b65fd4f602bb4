package pipeline

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-shard-query/internal/model"
)

func resultSet(columns []string, rows ...[]interface{}) *model.ResultSet {
	rs := &model.ResultSet{Columns: make([]model.Column, 0, len(columns)), Rows: make([]model.Row, 0, len(rows))}
	for _, c := range columns {
		rs.Columns = append(rs.Columns, model.Column{Name: c, FriendlyName: c, Type: model.TypeUnknown})
	}
	for _, values := range rows {
		row := make(model.Row, len(columns))
		for i, c := range columns {
			row[c] = values[i]
		}
		rs.Rows = append(rs.Rows, row)
	}
	return rs
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name       string
		keyColumns int
		input      *model.ResultSet
		want       *model.ResultSet
	}{
		{
			name:       "single key",
			keyColumns: 1,
			input: resultSet([]string{"k", "v"},
				[]interface{}{int64(1), int64(5)},
				[]interface{}{int64(1), int64(3)},
				[]interface{}{int64(2), int64(7)}),
			want: resultSet([]string{"k", "v"},
				[]interface{}{int64(1), int64(8)},
				[]interface{}{int64(2), int64(7)}),
		},
		{
			name:       "two keys, two values",
			keyColumns: 2,
			input: resultSet([]string{"a", "b", "x", "y"},
				[]interface{}{"a", "x", int64(1), int64(2)},
				[]interface{}{"a", "x", int64(3), int64(4)},
				[]interface{}{"a", "y", int64(5), int64(6)}),
			want: resultSet([]string{"a", "b", "x", "y"},
				[]interface{}{"a", "x", int64(4), int64(6)},
				[]interface{}{"a", "y", int64(5), int64(6)}),
		},
		{
			name:       "groups follow first-seen order",
			keyColumns: 1,
			input: resultSet([]string{"k", "v"},
				[]interface{}{"z", int64(1)},
				[]interface{}{"a", int64(1)},
				[]interface{}{"z", int64(1)},
				[]interface{}{"m", int64(1)}),
			want: resultSet([]string{"k", "v"},
				[]interface{}{"z", int64(2)},
				[]interface{}{"a", int64(1)},
				[]interface{}{"m", int64(1)}),
		},
		{
			name:       "floats win over integers",
			keyColumns: 1,
			input: resultSet([]string{"k", "v"},
				[]interface{}{int64(1), int64(1)},
				[]interface{}{int64(1), 0.5}),
			want: resultSet([]string{"k", "v"},
				[]interface{}{int64(1), 1.5}),
		},
		{
			name:       "null contributes nothing",
			keyColumns: 1,
			input: resultSet([]string{"k", "v", "w"},
				[]interface{}{"k", nil, int64(2)},
				[]interface{}{"k", int64(4), nil},
				[]interface{}{"n", nil, nil}),
			want: resultSet([]string{"k", "v", "w"},
				[]interface{}{"k", int64(4), int64(2)},
				[]interface{}{"n", nil, nil}),
		},
		{
			name:       "null key is its own group",
			keyColumns: 1,
			input: resultSet([]string{"k", "v"},
				[]interface{}{nil, int64(1)},
				[]interface{}{nil, int64(2)}),
			want: resultSet([]string{"k", "v"},
				[]interface{}{nil, int64(3)}),
		},
		{
			name:       "empty input",
			keyColumns: 1,
			input:      resultSet([]string{"k", "v"}),
			want:       resultSet([]string{"k", "v"}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Aggregate(tt.input, tt.keyColumns)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Aggregate() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAggregate_Idempotent(t *testing.T) {
	input := resultSet([]string{"region", "day", "hits", "bytes"},
		[]interface{}{"eu", "mon", int64(1), 1.5},
		[]interface{}{"us", "mon", int64(2), 2.0},
		[]interface{}{"eu", "tue", int64(3), 0.25},
		[]interface{}{"eu", "mon", int64(4), 1.0})

	once, err := Aggregate(input, 2)
	require.NoError(t, err)
	twice, err := Aggregate(once, 2)
	require.NoError(t, err)

	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("aggregating twice changed the result (-once +twice):\n%s", diff)
	}
	assert.Len(t, once.Rows, 3)
}

func TestAggregate_StringValue(t *testing.T) {
	input := resultSet([]string{"k", "v"},
		[]interface{}{int64(1), int64(5)},
		[]interface{}{int64(1), "abc"})
	before := resultSet([]string{"k", "v"},
		[]interface{}{int64(1), int64(5)},
		[]interface{}{int64(1), "abc"})

	got, err := Aggregate(input, 1)
	require.Error(t, err)
	assert.Nil(t, got)

	var typeErr *AggregationTypeError
	require.ErrorAs(t, err, &typeErr)
	assert.Equal(t, 1, typeErr.Row)
	assert.Equal(t, "v", typeErr.Column)
	assert.Contains(t, err.Error(), "String found in aggregate column")

	if diff := cmp.Diff(before, input); diff != "" {
		t.Errorf("input was modified (-before +after):\n%s", diff)
	}
}

func TestAggregate_NonNumericValue(t *testing.T) {
	input := resultSet([]string{"k", "v"}, []interface{}{int64(1), true})

	_, err := Aggregate(input, 1)

	var typeErr *AggregationTypeError
	require.ErrorAs(t, err, &typeErr)
	assert.Equal(t, true, typeErr.Value)
}

func TestAggregate_Shape(t *testing.T) {
	tests := []struct {
		name       string
		keyColumns int
		input      *model.ResultSet
	}{
		{
			name:       "no key columns",
			keyColumns: 0,
			input:      resultSet([]string{"k", "v"}, []interface{}{int64(1), int64(1)}),
		},
		{
			name:       "negative key columns",
			keyColumns: -1,
			input:      resultSet([]string{"k", "v"}),
		},
		{
			name:       "nothing left to sum",
			keyColumns: 2,
			input:      resultSet([]string{"k", "v"}, []interface{}{int64(1), int64(1)}),
		},
		{
			name:       "fewer columns than keys",
			keyColumns: 3,
			input:      resultSet([]string{"k", "v"}, []interface{}{int64(1), int64(1)}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Aggregate(tt.input, tt.keyColumns)
			var shapeErr *AggregationShapeError
			require.ErrorAs(t, err, &shapeErr)
			assert.Equal(t, tt.keyColumns, shapeErr.KeyColumns)
		})
	}
}

func TestAddValues(t *testing.T) {
	assert.Equal(t, int64(5), addValues(int64(2), int64(3)))
	assert.Equal(t, int64(5), addValues(int32(2), uint8(3)))
	assert.Equal(t, 5.5, addValues(int64(2), 3.5))
	assert.Equal(t, int64(2), addValues(nil, int64(2)))
	assert.Equal(t, 2.5, addValues(2.5, nil))
	assert.Nil(t, addValues(nil, nil))

	dec := decimal.RequireFromString
	assert.Equal(t, "0.3", addValues(dec("0.10"), dec("0.20")).(decimal.Decimal).String())
	assert.Equal(t, "2.5", addValues(int64(2), dec("0.5")).(decimal.Decimal).String())
	assert.Equal(t, 0.75, addValues(dec("0.5"), 0.25))
}

func TestAggregate_DecimalSums(t *testing.T) {
	dec := decimal.RequireFromString
	input := resultSet([]string{"k", "amount"},
		[]interface{}{dec("1.0"), dec("0.10")},
		[]interface{}{dec("1.00"), dec("0.20")},
		[]interface{}{dec("2"), int64(3)})

	got, err := Aggregate(input, 1)
	require.NoError(t, err)
	require.Len(t, got.Rows, 2)

	assert.Equal(t, "0.3", got.Rows[0]["amount"].(decimal.Decimal).String())
	assert.Equal(t, int64(3), got.Rows[1]["amount"])
}
