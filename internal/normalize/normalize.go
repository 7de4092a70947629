// Package normalize coerces store row values into stable JSON types.
package normalize

import (
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// excluded keys hold identifiers that stay strings even when numeric.
var excluded = map[string]struct{}{
	"session_id":         {},
	"user_id":            {},
	"identified_user_id": {},
	"effective_user_id":  {},
}

// Rows normalizes every row in place and returns rows.
func Rows(rows []map[string]any) []map[string]any {
	for _, row := range rows {
		Row(row)
	}
	return rows
}

// Row converts numeric-looking values of row to int64 or float64, except for
// identifier keys. Booleans, nil, empty strings and nested values are left
// untouched.
func Row(row map[string]any) map[string]any {
	for k, v := range row {
		if _, skip := excluded[k]; skip {
			if n, ok := v.(json.Number); ok {
				row[k] = n.String()
			}
			continue
		}
		row[k] = Value(v)
	}
	return row
}

// Value converts one value.
func Value(v any) any {
	switch t := v.(type) {
	case json.Number:
		if n, ok := parseNumber(t.String()); ok {
			return n
		}
		return t.String()
	case string:
		if n, ok := parseNumber(t); ok {
			return n
		}
		return t
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1<<53 {
			return int64(t)
		}
		return t
	default:
		return v
	}
}

// parseNumber accepts decimal integers and finite floats. Strings that merely
// start with digits, such as dates, are not numbers.
func parseNumber(s string) (any, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}
	if u, err := strconv.ParseUint(s, 10, 64); err == nil {
		return float64(u), true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, false
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f), true
	}
	return f, true
}
