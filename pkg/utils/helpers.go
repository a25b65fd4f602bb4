package utils

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultJobTimeout applies when a run does not specify one
const DefaultJobTimeout = 5 * time.Minute

// ParseDuration safely parses duration string like "5m"
func ParseDuration(d string) time.Duration {
	if d == "" {
		return DefaultJobTimeout
	}
	duration, err := time.ParseDuration(d)
	if err != nil || duration <= 0 {
		return DefaultJobTimeout
	}
	return duration
}

// ParseValue turns text into an int64 or float64 when it looks like one
func ParseValue(s string) interface{} {
	s = strings.TrimSpace(s)

	// try int
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	// try float
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// Numeric converts supported number types to float64.
func Numeric(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case int:
		return float64(val), true
	case int8:
		return float64(val), true
	case int16:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint8:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	case float32:
		return float64(val), true
	case float64:
		return val, true
	case decimal.Decimal:
		return val.InexactFloat64(), true
	default:
		return 0, false
	}
}

// Integer converts supported integer types to int64.
// uint64 values above the int64 range are not integers here.
func Integer(v interface{}) (int64, bool) {
	switch val := v.(type) {
	case int:
		return int64(val), true
	case int8:
		return int64(val), true
	case int16:
		return int64(val), true
	case int32:
		return int64(val), true
	case int64:
		return val, true
	case uint:
		if uint64(val) > 1<<63-1 {
			return 0, false
		}
		return int64(val), true
	case uint8:
		return int64(val), true
	case uint16:
		return int64(val), true
	case uint32:
		return int64(val), true
	case uint64:
		if val > 1<<63-1 {
			return 0, false
		}
		return int64(val), true
	default:
		return 0, false
	}
}
