package sqlview

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// TimeFormat is used to render time values returned by the driver.
const TimeFormat = "2006-01-02 15:04:05.999999999-07:00"

// Row is a single result row. Columns keep the order reported by the
// engine and are unique within the row.
type Row struct {
	columns []string
	values  []interface{}
}

// NewRow builds a Row from parallel column and value slices. When a
// column name repeats, the later value replaces the earlier one and the
// column keeps its first position.
func NewRow(columns []string, values []interface{}) Row {
	r := Row{
		columns: make([]string, 0, len(columns)),
		values:  make([]interface{}, 0, len(columns)),
	}

	seen := map[string]int{}
	for i, c := range columns {
		var v interface{}
		if i < len(values) {
			v = normalizeValue(values[i])
		}

		if j, ok := seen[c]; ok {
			r.values[j] = v
			continue
		}

		seen[c] = len(r.columns)
		r.columns = append(r.columns, c)
		r.values = append(r.values, v)
	}

	return r
}

func (r Row) Columns() []string {
	return r.columns
}

func (r Row) Values() []interface{} {
	return r.values
}

// Get returns the value stored under column.
func (r Row) Get(column string) (interface{}, bool) {
	for i, c := range r.columns {
		if c == column {
			return r.values[i], true
		}
	}

	return nil, false
}

func (r Row) Len() int {
	return len(r.columns)
}

// MarshalJSON writes the row as an object with keys in column order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}

		k, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')

		v, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", c, err)
		}
		buf.Write(v)
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// normalizeValue maps driver values to JSON friendly scalars. Values
// without a scalar JSON form are rendered as strings. Blobs that are not
// valid UTF-8 are rendered as hex literals so no bytes are lost.
func normalizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case nil:
		return nil
	case []byte:
		if !utf8.Valid(t) {
			return blobLiteral(t)
		}
		return string(t)
	case time.Time:
		return t.Format(TimeFormat)
	case float64:
		if math.IsInf(t, 0) || math.IsNaN(t) {
			return strconv.FormatFloat(t, 'g', -1, 64)
		}
		return t
	case int64, int32, int, bool, string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

// blobLiteral renders b in SQLite's X'..' hex literal form.
func blobLiteral(b []byte) string {
	return "X'" + strings.ToUpper(hex.EncodeToString(b)) + "'"
}

// formatValue renders a normalized value for terminal output.
func formatValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "t"
		}
		return "f"
	default:
		return fmt.Sprint(t)
	}
}
