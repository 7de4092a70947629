package timeframe

import (
	"fmt"
	"strings"
	"time"
)

// Bucket is a time-grouping granularity.
type Bucket string

const (
	BucketMinute         Bucket = "minute"
	BucketFiveMinutes    Bucket = "five_minutes"
	BucketTenMinutes     Bucket = "ten_minutes"
	BucketFifteenMinutes Bucket = "fifteen_minutes"
	BucketHour           Bucket = "hour"
	BucketDay            Bucket = "day"
	BucketWeek           Bucket = "week"
	BucketMonth          Bucket = "month"
	BucketYear           Bucket = "year"
)

// DefaultBucket is used when a request names no bucket.
const DefaultBucket = BucketHour

type bucketSpec struct {
	function string
	interval string
	minutes  int // multi-minute and hour buckets; zero for calendar units
	years    int
	months   int
	days     int
}

// buckets pairs each granularity with its store truncation function and a
// fill step of exactly one unit of that granularity.
var buckets = map[Bucket]bucketSpec{
	BucketMinute:         {function: "toStartOfMinute", interval: "1 MINUTE", minutes: 1},
	BucketFiveMinutes:    {function: "toStartOfFiveMinutes", interval: "5 MINUTE", minutes: 5},
	BucketTenMinutes:     {function: "toStartOfTenMinutes", interval: "10 MINUTE", minutes: 10},
	BucketFifteenMinutes: {function: "toStartOfFifteenMinutes", interval: "15 MINUTE", minutes: 15},
	BucketHour:           {function: "toStartOfHour", interval: "1 HOUR", minutes: 60},
	BucketDay:            {function: "toStartOfDay", interval: "1 DAY", days: 1},
	BucketWeek:           {function: "toMonday", interval: "1 WEEK", days: 7},
	BucketMonth:          {function: "toStartOfMonth", interval: "1 MONTH", months: 1},
	BucketYear:           {function: "toStartOfYear", interval: "1 YEAR", years: 1},
}

// ParseBucket resolves a bucket token. An empty token yields DefaultBucket;
// hyphenated spellings such as "five-minutes" are accepted.
func ParseBucket(token string) (Bucket, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return DefaultBucket, nil
	}
	b := Bucket(strings.ReplaceAll(strings.ToLower(token), "-", "_"))
	if _, ok := buckets[b]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownBucket, token)
	}
	return b, nil
}

// Buckets lists every granularity from finest to coarsest.
func Buckets() []Bucket {
	return []Bucket{
		BucketMinute, BucketFiveMinutes, BucketTenMinutes, BucketFifteenMinutes,
		BucketHour, BucketDay, BucketWeek, BucketMonth, BucketYear,
	}
}

func (b Bucket) spec() bucketSpec {
	if s, ok := buckets[b]; ok {
		return s
	}
	return buckets[DefaultBucket]
}

// Function is the store-side truncation function name.
func (b Bucket) Function() string {
	return b.spec().function
}

// Interval is the fill step literal, usable after INTERVAL.
func (b Bucket) Interval() string {
	return b.spec().interval
}

// Truncate returns the start of the bucket containing t, on the wall clock of loc.
func (b Bucket) Truncate(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	year, month, day := local.Date()
	s := b.spec()

	switch {
	case s.minutes > 0:
		// Stepping back from t keeps the offset t was observed with, so the
		// repeated hour of a DST fall-back truncates within itself.
		total := local.Hour()*60 + local.Minute()
		back := time.Duration(total%s.minutes)*time.Minute +
			time.Duration(local.Second())*time.Second +
			time.Duration(local.Nanosecond())
		return local.Add(-back)
	case s.years > 0:
		return time.Date(year, 1, 1, 0, 0, 0, 0, loc)
	case s.months > 0:
		return time.Date(year, month, 1, 0, 0, 0, 0, loc)
	case s.days == 7:
		weekday := int(local.Weekday())
		if weekday == 0 { // Sunday
			weekday = 7
		}
		return time.Date(year, month, day-(weekday-1), 0, 0, 0, 0, loc)
	default:
		return time.Date(year, month, day, 0, 0, 0, 0, loc)
	}
}

// Next returns the start of the bucket following the one starting at t.
func (b Bucket) Next(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	s := b.spec()
	if s.minutes > 0 {
		return t.Add(time.Duration(s.minutes) * time.Minute)
	}
	return t.In(loc).AddDate(s.years, s.months, s.days)
}
