package timeframe

import (
	"errors"
	"time"
)

// DateLayout is the calendar-day layout accepted for start_date and end_date.
const DateLayout = "2006-01-02"

// BucketLayout is how bucket start times are rendered, in the window's zone.
// The columnar store renders DateTime values with a zone the same way.
const BucketLayout = "2006-01-02 15:04:05"

var (
	ErrConflictingTimeSpec = errors.New("a calendar range and a rolling window cannot be combined")
	ErrUnknownBucket       = errors.New("unknown bucket")
	ErrWindowRequired      = errors.New("a bounded time window is required")
	ErrTooManyBuckets      = errors.New("too many buckets")
)

type TimeProvider interface {
	Now(loc *time.Location) time.Time
}

// DefaultTimeProvider reads the system clock.
type DefaultTimeProvider struct{}

func (p *DefaultTimeProvider) Now(loc *time.Location) time.Time {
	return time.Now().In(loc)
}

// WindowKind tells how the bounds of a Window compare against event timestamps.
type WindowKind int

const (
	// AllTime has no bounds.
	AllTime WindowKind = iota
	// Calendar is the half-open range [Lower, Upper).
	Calendar
	// Rolling is the half-open range (Lower, Upper].
	Rolling
)

func (k WindowKind) String() string {
	switch k {
	case Calendar:
		return "calendar"
	case Rolling:
		return "rolling"
	default:
		return "all_time"
	}
}

// Window is a resolved time specification. Lower and Upper are UTC instants and
// are zero for AllTime. Location is the zone buckets are truncated in.
type Window struct {
	Kind     WindowKind
	Lower    time.Time
	Upper    time.Time
	Location *time.Location
}

// Bounded reports whether the window has both bounds.
func (w Window) Bounded() bool {
	return w.Kind != AllTime
}

// Zone returns the window location, UTC when unset.
func (w Window) Zone() *time.Location {
	if w.Location == nil {
		return time.UTC
	}
	return w.Location
}

// ZoneName returns the IANA name of the window location.
func (w Window) ZoneName() string {
	return w.Zone().String()
}

// Contains reports whether t falls inside the window using the bound
// semantics of its kind.
func (w Window) Contains(t time.Time) bool {
	switch w.Kind {
	case Calendar:
		return !t.Before(w.Lower) && t.Before(w.Upper)
	case Rolling:
		return t.After(w.Lower) && !t.After(w.Upper)
	default:
		return true
	}
}

// lastInstant is the latest instant an event may carry and still fall inside
// the window. Timestamps are stored with millisecond precision.
func (w Window) lastInstant() time.Time {
	if w.Kind == Calendar {
		return w.Upper.Add(-time.Millisecond)
	}
	return w.Upper
}

// FillRange returns the first bucket start and the exclusive end of the last
// bucket for gap-filling the window at bucket granularity. ok is false when
// the window is unbounded or empty.
func (w Window) FillRange(b Bucket) (from, to time.Time, ok bool) {
	if !w.Bounded() {
		return time.Time{}, time.Time{}, false
	}
	last := w.lastInstant()
	if last.Before(w.Lower) {
		return time.Time{}, time.Time{}, false
	}
	loc := w.Zone()
	from = b.Truncate(w.Lower, loc)
	to = b.Next(b.Truncate(last, loc), loc)
	return from, to, true
}

// FormatBucket renders a bucket start in the window zone.
func (w Window) FormatBucket(t time.Time) string {
	return t.In(w.Zone()).Format(BucketLayout)
}

// FormatInstant renders a UTC instant with millisecond precision, the form the
// store parses for DateTime64(3) comparisons.
func FormatInstant(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05.000")
}
