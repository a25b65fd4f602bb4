package pipeline

import (
	"fmt"
	"reflect"

	"github.com/shopspring/decimal"

	"go-shard-query/internal/model"
	"go-shard-query/pkg/utils"
)

// ------------------- Aggregation -------------------

// groupNode is one level of the grouping tree. Nodes above the key depth hold
// children keyed by the key value at that depth; nodes at the key depth hold
// the summed value vector. The depth is passed down explicitly.
type groupNode struct {
	keys     []interface{} // first-seen order
	children map[interface{}]*groupNode
	leaf     []interface{}
}

func newGroupNode() *groupNode {
	return &groupNode{children: make(map[interface{}]*groupNode)}
}

// Aggregate collapses rows sharing their first keyColumns values into one row per
// key combination, summing the remaining columns elementwise. Groups are emitted in
// first-seen order at every level. The input is not modified.
func Aggregate(input *model.ResultSet, keyColumns int) (*model.ResultSet, error) {
	if keyColumns < 1 {
		return nil, &AggregationShapeError{Row: -1, KeyColumns: keyColumns}
	}

	columns := input.ColumnNames()
	root := newGroupNode()

	for i, row := range input.Rows {
		ordered := input.Values(row)

		keys := ordered
		var values []interface{}
		if len(ordered) > keyColumns {
			keys, values = ordered[:keyColumns], ordered[keyColumns:]
		}
		if len(keys) < keyColumns || len(values) == 0 {
			return nil, &AggregationShapeError{Row: i, KeyColumns: keyColumns, Keys: len(keys), Values: len(values)}
		}

		for j, v := range values {
			if v == nil {
				continue
			}
			if _, ok := utils.Numeric(v); !ok {
				return nil, &AggregationTypeError{Row: i, Column: columns[keyColumns+j], Value: v}
			}
		}

		root.insert(keys, values, 0, keyColumns)
	}

	rows := make([]model.Row, 0, len(input.Rows))
	root.flatten(columns, 0, keyColumns, make(model.Row, len(columns)), &rows)

	return &model.ResultSet{Columns: input.Columns, Rows: rows}, nil
}

func (n *groupNode) insert(keys, values []interface{}, depth, keyColumns int) {
	if depth == keyColumns {
		if n.leaf == nil {
			n.leaf = append([]interface{}(nil), values...)
			return
		}
		for i, v := range values {
			n.leaf[i] = addValues(n.leaf[i], v)
		}
		return
	}

	k := groupKey(keys[depth])
	child, ok := n.children[k]
	if !ok {
		child = newGroupNode()
		n.children[k] = child
		n.keys = append(n.keys, keys[depth])
	}
	child.insert(keys, values, depth+1, keyColumns)
}

func (n *groupNode) flatten(columns []string, depth, keyColumns int, path model.Row, out *[]model.Row) {
	if depth == keyColumns {
		row := make(model.Row, len(columns))
		for k, v := range path {
			row[k] = v
		}
		for i, v := range n.leaf {
			row[columns[keyColumns+i]] = v
		}
		*out = append(*out, row)
		return
	}

	for _, key := range n.keys {
		path[columns[depth]] = key
		n.children[groupKey(key)].flatten(columns, depth+1, keyColumns, path, out)
	}
}

// decimalKey groups equal decimals that differ only in scale, e.g. 1.0 and 1.00
type decimalKey string

// groupKey makes a key value usable as a map key
func groupKey(v interface{}) interface{} {
	if v == nil {
		return nil
	}
	switch val := v.(type) {
	case []byte:
		return string(val)
	case decimal.Decimal:
		return decimalKey(val.String())
	}
	if !reflect.TypeOf(v).Comparable() {
		return fmt.Sprintf("%v", v)
	}
	return v
}

// addValues sums two numeric values; integers stay integers unless a float is involved.
// Decimals stay exact when added to decimals or integers. A nil operand contributes nothing.
func addValues(a, b interface{}) interface{} {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}

	ai, aInt := utils.Integer(a)
	bi, bInt := utils.Integer(b)
	if aInt && bInt {
		return ai + bi
	}

	ad, aExact := exactDecimal(a)
	bd, bExact := exactDecimal(b)
	if aExact && bExact {
		return ad.Add(bd)
	}

	af, _ := utils.Numeric(a)
	bf, _ := utils.Numeric(b)
	return af + bf
}

// exactDecimal converts decimals and integers without loss
func exactDecimal(v interface{}) (decimal.Decimal, bool) {
	if d, ok := v.(decimal.Decimal); ok {
		return d, true
	}
	if i, ok := utils.Integer(v); ok {
		return decimal.NewFromInt(i), true
	}
	return decimal.Decimal{}, false
}
