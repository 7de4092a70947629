package timeframe

import (
	"strconv"
	"strings"
	"time"

	"pocketlytics/internal/validation"
)

// TimeSpec is the raw time specification of a request. The calendar form is
// StartDate, EndDate and TimeZone; the rolling form is PastMinutesStart and
// PastMinutesEnd. TimeZone alone only selects the zone buckets are cut in.
type TimeSpec struct {
	StartDate        string `query:"start_date"`
	EndDate          string `query:"end_date"`
	TimeZone         string `query:"time_zone"`
	PastMinutesStart string `query:"past_minutes_start"`
	PastMinutesEnd   string `query:"past_minutes_end"`
}

type calendarSpec struct {
	StartDate string `query:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `query:"end_date" validate:"required,datetime=2006-01-02"`
	TimeZone  string `query:"time_zone" validate:"required,timezone"`
}

// MaxPastMinutes bounds rolling windows to a century back; larger values
// would overflow time.Duration.
const MaxPastMinutes = 100 * 366 * 24 * 60

type rollingSpec struct {
	Start int `query:"past_minutes_start" validate:"gte=0,lte=52704000"`
	End   int `query:"past_minutes_end" validate:"gte=0,ltfield=Start"`
}

func (s TimeSpec) hasCalendar() bool {
	return strings.TrimSpace(s.StartDate) != "" || strings.TrimSpace(s.EndDate) != ""
}

func (s TimeSpec) hasRolling() bool {
	return strings.TrimSpace(s.PastMinutesStart) != "" || strings.TrimSpace(s.PastMinutesEnd) != ""
}

// Resolver turns a TimeSpec into a Window against an injectable clock.
type Resolver struct {
	timeProvider TimeProvider
}

func NewResolver(timeProvider ...TimeProvider) *Resolver {
	var provider TimeProvider = &DefaultTimeProvider{}
	if len(timeProvider) > 0 && timeProvider[0] != nil {
		provider = timeProvider[0]
	}

	return &Resolver{
		timeProvider: provider,
	}
}

// Now returns the resolver clock in UTC.
func (r *Resolver) Now() time.Time {
	return r.timeProvider.Now(time.UTC)
}

// Resolve converts spec into a Window. Incomplete or malformed forms degrade
// to AllTime; supplying parts of both forms is ErrConflictingTimeSpec.
func (r *Resolver) Resolve(spec TimeSpec) (Window, error) {
	if spec.hasCalendar() && spec.hasRolling() {
		return Window{}, ErrConflictingTimeSpec
	}

	loc := loadLocation(spec.TimeZone)

	if spec.hasRolling() {
		if w, ok := r.resolveRolling(spec, loc); ok {
			return w, nil
		}
		return Window{Kind: AllTime, Location: loc}, nil
	}

	if spec.hasCalendar() {
		if w, ok := r.resolveCalendar(spec); ok {
			return w, nil
		}
	}

	return Window{Kind: AllTime, Location: loc}, nil
}

// Rolling builds the window covering the past minutes up to now.
func (r *Resolver) Rolling(minutes int, loc *time.Location) Window {
	if loc == nil {
		loc = time.UTC
	}
	now := r.Now()
	return Window{
		Kind:     Rolling,
		Lower:    now.Add(-time.Duration(minutes) * time.Minute),
		Upper:    now,
		Location: loc,
	}
}

func (r *Resolver) resolveCalendar(spec TimeSpec) (Window, bool) {
	cs := calendarSpec{
		StartDate: strings.TrimSpace(spec.StartDate),
		EndDate:   strings.TrimSpace(spec.EndDate),
		TimeZone:  strings.TrimSpace(spec.TimeZone),
	}
	if err := validation.Struct(cs); err != nil {
		return Window{}, false
	}

	loc, err := time.LoadLocation(cs.TimeZone)
	if err != nil {
		return Window{}, false
	}
	start, err := time.ParseInLocation(DateLayout, cs.StartDate, loc)
	if err != nil {
		return Window{}, false
	}
	end, err := time.ParseInLocation(DateLayout, cs.EndDate, loc)
	if err != nil || end.Before(start) {
		return Window{}, false
	}

	now := r.timeProvider.Now(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	// Today is still in progress and later days have not happened yet, so
	// either one ends the window at now.
	upper := end.AddDate(0, 0, 1)
	if !end.Before(today) {
		upper = now
	}

	return Window{
		Kind:     Calendar,
		Lower:    start.UTC(),
		Upper:    upper.UTC(),
		Location: loc,
	}, true
}

func (r *Resolver) resolveRolling(spec TimeSpec, loc *time.Location) (Window, bool) {
	start, err := strconv.Atoi(strings.TrimSpace(spec.PastMinutesStart))
	if err != nil {
		return Window{}, false
	}
	end, err := strconv.Atoi(strings.TrimSpace(spec.PastMinutesEnd))
	if err != nil {
		return Window{}, false
	}
	if err := validation.Struct(rollingSpec{Start: start, End: end}); err != nil {
		return Window{}, false
	}

	now := r.Now()
	return Window{
		Kind:     Rolling,
		Lower:    now.Add(-time.Duration(start) * time.Minute),
		Upper:    now.Add(-time.Duration(end) * time.Minute),
		Location: loc,
	}, true
}

func loadLocation(name string) *time.Location {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
