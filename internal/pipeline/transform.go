package pipeline

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"go-shard-query/internal/driver"
	"go-shard-query/internal/model"
	"go-shard-query/pkg/utils"
)

// ------------------- Column / Row Transformation -------------------

// buildColumns maps driver columns to result columns. A repeated name gets a
// running numeric suffix so that column names stay unique within a result set.
func buildColumns(cols []driver.Column) []model.Column {
	seen := make(map[string]bool, len(cols))
	duplicates := 1

	out := make([]model.Column, 0, len(cols))
	for _, c := range cols {
		name := c.Name
		if seen[name] {
			name = fmt.Sprintf("%s%d", name, duplicates)
			duplicates++
		}
		seen[name] = true
		out = append(out, model.Column{
			Name:         name,
			FriendlyName: name,
			Type:         model.TypeForCode(c.TypeCode),
		})
	}
	return out
}

// MySQL field type codes whose text form needs more than the logical type to decode
const (
	fieldDecimal    = 0
	fieldBit        = 16
	fieldNewDecimal = 246
)

// transformRow zips a driver tuple with its columns into a row. codes holds the
// driver type code of each column.
func transformRow(cols []model.Column, codes []int, values []interface{}) model.Row {
	row := make(model.Row, len(cols))
	for i, c := range cols {
		var v interface{}
		if i < len(values) {
			v = values[i]
		}
		code := driver.UnknownTypeCode
		if i < len(codes) {
			code = codes[i]
		}
		row[c.Name] = convertValue(v, code)
	}
	return row
}

// columnCodes lists the driver type code of every column
func columnCodes(cols []driver.Column) []int {
	codes := make([]int, len(cols))
	for i, c := range cols {
		codes[i] = c.TypeCode
	}
	return codes
}

// convertValue turns a raw driver value into a scalar of the column's logical type.
// Values the driver already typed are only normalised to int64 / float64.
func convertValue(v interface{}, code int) interface{} {
	switch val := v.(type) {
	case nil:
		return nil
	case []byte:
		return convertText(val, code)
	case string:
		return convertText([]byte(val), code)
	case time.Time, bool, decimal.Decimal:
		return val
	case float32:
		return float64(val)
	case float64:
		return val
	}

	if i, ok := utils.Integer(v); ok {
		return i
	}
	if f, ok := utils.Numeric(v); ok {
		return f
	}
	return fmt.Sprintf("%v", v)
}

// convertText parses text-protocol values; text that does not parse stays a string.
// DECIMAL stays exact so that sums do not pick up binary rounding.
func convertText(b []byte, code int) interface{} {
	switch code {
	case fieldDecimal, fieldNewDecimal:
		if d, err := decimal.NewFromString(string(b)); err == nil {
			return d
		}
		return string(b)
	case fieldBit:
		return decodeBit(b)
	}

	s := string(b)
	switch model.TypeForCode(code) {
	case model.TypeInteger:
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i
		}
		// BIGINT UNSIGNED beyond int64
		return utils.ParseValue(s)
	case model.TypeFloat:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
		return s
	default:
		return s
	}
}

// decodeBit reads a BIT(n) payload as a big-endian unsigned integer
func decodeBit(b []byte) interface{} {
	if len(b) > 8 {
		return string(b)
	}
	var u uint64
	for _, c := range b {
		u = u<<8 | uint64(c)
	}
	if u > math.MaxInt64 {
		return float64(u)
	}
	return int64(u)
}
