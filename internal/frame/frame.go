// Package frame holds the rectangular row sets exchanged between data
// sources and trainers.
package frame

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

type Row map[string]interface{}

type Frame struct {
	Columns []string
	Rows    []Row
}

func New(columns ...string) *Frame {
	return &Frame{Columns: columns}
}

// FromRows builds a frame whose columns are the sorted union of the row keys.
func FromRows(rows []Row) *Frame {
	seen := make(map[string]struct{})
	for _, r := range rows {
		for k := range r {
			seen[k] = struct{}{}
		}
	}
	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return &Frame{Columns: cols, Rows: rows}
}

func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Rows)
}

func (f *Frame) Empty() bool {
	return f.Len() == 0
}

func (f *Frame) Append(r Row) {
	f.Rows = append(f.Rows, r)
}

func (f *Frame) HasColumn(name string) bool {
	for _, c := range f.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Floats extracts a numeric column. Missing or unparsable cells become NaN.
func (f *Frame) Floats(col string) []float64 {
	out := make([]float64, len(f.Rows))
	for i, r := range f.Rows {
		v, ok := r.Float(col)
		if !ok {
			v = math.NaN()
		}
		out[i] = v
	}
	return out
}

func (f *Frame) Strings(col string) []string {
	out := make([]string, len(f.Rows))
	for i, r := range f.Rows {
		out[i] = r.String(col)
	}
	return out
}

// Filter returns a frame sharing columns with f and holding the rows keep accepts.
func (f *Frame) Filter(keep func(Row) bool) *Frame {
	out := &Frame{Columns: f.Columns}
	for _, r := range f.Rows {
		if keep(r) {
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}

func (f *Frame) Take(idx []int) *Frame {
	out := &Frame{Columns: f.Columns, Rows: make([]Row, len(idx))}
	for i, j := range idx {
		out.Rows[i] = f.Rows[j]
	}
	return out
}

// GroupBy partitions rows by the joined values of keys, preserving first-seen order.
func (f *Frame) GroupBy(keys ...string) ([]string, map[string][]Row) {
	var order []string
	groups := make(map[string][]Row)
	for _, r := range f.Rows {
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = r.String(k)
		}
		key := strings.Join(parts, "|")
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], r)
	}
	return order, groups
}

func (r Row) Has(col string) bool {
	v, ok := r[col]
	return ok && v != nil
}

// Float converts the cell to float64. Database drivers hand back numerics as
// int64, float64 or []byte depending on the column type.
func (r Row) Float(col string) (float64, bool) {
	switch v := r[col].(type) {
	case nil:
		return 0, false
	case float64:
		return v, !math.IsNaN(v)
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case []byte:
		return parseFloat(string(v))
	case string:
		return parseFloat(v)
	default:
		return 0, false
	}
}

func (r Row) FloatOr(col string, def float64) float64 {
	if v, ok := r.Float(col); ok {
		return v
	}
	return def
}

func (r Row) Int(col string) (int, bool) {
	v, ok := r.Float(col)
	if !ok {
		return 0, false
	}
	return int(v), true
}

func (r Row) String(col string) string {
	switch v := r[col].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.Format("2006-01-02")
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Time parses date-like cells. The result is truncated to a UTC calendar date.
func (r Row) Time(col string) (time.Time, bool) {
	var t time.Time
	switch v := r[col].(type) {
	case time.Time:
		t = v
	case *time.Time:
		if v == nil {
			return time.Time{}, false
		}
		t = *v
	case string:
		parsed, ok := parseTime(v)
		if !ok {
			return time.Time{}, false
		}
		t = parsed
	case []byte:
		parsed, ok := parseTime(string(v))
		if !ok {
			return time.Time{}, false
		}
		t = parsed
	default:
		return time.Time{}, false
	}
	if t.IsZero() {
		return time.Time{}, false
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}
