package timeframe

import (
	"fmt"
	"time"
)

// Columns every bucketed row carries. ColumnBucket is the bucket start on the
// wall clock of the window zone, for display; it repeats during a DST
// fall-back. ColumnBucketStart is the bucket start as Unix seconds and is
// what rows are matched on.
const (
	ColumnBucket      = "time"
	ColumnBucketStart = "ts"
)

// MaxSeriesPoints is the default limit on buckets a bounded series may have.
const MaxSeriesPoints = 10000

// Series returns every bucket start covering the window, oldest first. It is
// nil for unbounded windows, which are never gap-filled. Callers bound its
// length with CheckSeries first.
func Series(w Window, b Bucket) []time.Time {
	from, to, ok := w.FillRange(b)
	if !ok {
		return nil
	}

	loc := w.Zone()
	points := make([]time.Time, 0, 64)
	for current := from; current.Before(to); current = b.Next(current, loc) {
		points = append(points, current)
	}
	return points
}

// BucketCount returns how many buckets Series yields for w, counting no
// further than limit+1.
func BucketCount(w Window, b Bucket, limit int) int {
	from, to, ok := w.FillRange(b)
	if !ok {
		return 0
	}

	if s := b.spec(); s.minutes > 0 {
		n := to.Sub(from) / (time.Duration(s.minutes) * time.Minute)
		if n > time.Duration(limit) {
			return limit + 1
		}
		return int(n)
	}

	loc := w.Zone()
	n := 0
	for current := from; current.Before(to) && n <= limit; current = b.Next(current, loc) {
		n++
	}
	return n
}

// CheckSeries fails with ErrTooManyBuckets when gap-filling w at b would
// produce more than limit buckets.
func CheckSeries(w Window, b Bucket, limit int) error {
	if n := BucketCount(w, b, limit); n > limit {
		return fmt.Errorf("%w: more than %d %s buckets", ErrTooManyBuckets, limit, b)
	}
	return nil
}

// SeriesKeys is Series rendered with Window.FormatBucket.
func SeriesKeys(w Window, b Bucket) []string {
	points := Series(w, b)
	keys := make([]string, len(points))
	for i, p := range points {
		keys[i] = w.FormatBucket(p)
	}
	return keys
}

// Densify returns rows in series order with a zero row for every missing
// bucket. Rows are matched on ColumnBucketStart; rows without it or outside
// the series are dropped. zero rows get ColumnBucket and ColumnBucketStart
// set. For unbounded windows rows are returned unchanged.
func Densify(w Window, b Bucket, rows []map[string]any, zero func() map[string]any) []map[string]any {
	if !w.Bounded() {
		return rows
	}

	byStart := make(map[int64]map[string]any, len(rows))
	for _, row := range rows {
		if start, ok := BucketStart(row); ok {
			byStart[start] = row
		}
	}

	points := Series(w, b)
	out := make([]map[string]any, len(points))
	for i, p := range points {
		if row, ok := byStart[p.Unix()]; ok {
			out[i] = row
			continue
		}
		row := zero()
		row[ColumnBucket] = w.FormatBucket(p)
		row[ColumnBucketStart] = p.Unix()
		out[i] = row
	}
	return out
}

// BucketStart reads the ColumnBucketStart of row. Zero is not a bucket: the
// store leaves it on rows it gap-fills itself.
func BucketStart(row map[string]any) (int64, bool) {
	var start int64
	switch v := row[ColumnBucketStart].(type) {
	case int64:
		start = v
	case float64:
		start = int64(v)
	case int:
		start = int64(v)
	default:
		return 0, false
	}
	return start, start != 0
}
