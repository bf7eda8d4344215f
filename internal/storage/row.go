package storage

import (
	"strconv"
	"time"
)

// Row is one stored record keyed by column name. Drivers differ in the Go
// types they return, so values are read through the typed accessors.
type Row map[string]any

// String returns column as text.
func (r Row) String(column string) string {
	return stringify(r[column])
}

// Int returns column as an integer, or 0 when absent or not numeric.
func (r Row) Int(column string) int64 {
	switch v := r[column].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float64:
		return int64(v)
	case bool:
		if v {
			return 1
		}
		return 0
	case []byte:
		n, _ := strconv.ParseInt(string(v), 10, 64)
		return n
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	default:
		return 0
	}
}

// Bool returns column as a boolean.
func (r Row) Bool(column string) bool {
	switch v := r[column].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	case []byte:
		b, _ := strconv.ParseBool(string(v))
		return b
	default:
		return r.Int(column) != 0
	}
}

// timeLayouts are the textual timestamp forms written by the supported drivers.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// Time returns column as a timestamp, or the zero time when absent or unparsable.
func (r Row) Time(column string) time.Time {
	switch v := r[column].(type) {
	case time.Time:
		return v
	case string:
		return parseTime(v)
	case []byte:
		return parseTime(string(v))
	default:
		return time.Time{}
	}
}

func parseTime(s string) time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func stringify(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.Format(time.RFC3339Nano)
	default:
		return ""
	}
}
