// Package timeframe_test contains tests for the timeframe package
package timeframe_test

import (
	"testing"
	"time"

	"pocketlytics/internal/timeframe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockTimeProvider implements the TimeProvider interface for testing
type MockTimeProvider struct {
	FixedTime time.Time
}

func (m *MockTimeProvider) Now(loc *time.Location) time.Time {
	return m.FixedTime.In(loc)
}

func mustLoad(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func TestWindowContainsRespectsBoundKinds(t *testing.T) {
	lower := time.Date(2024, 3, 15, 11, 0, 0, 0, time.UTC)
	upper := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	calendar := timeframe.Window{Kind: timeframe.Calendar, Lower: lower, Upper: upper}
	assert.True(t, calendar.Contains(lower))
	assert.False(t, calendar.Contains(upper))

	rolling := timeframe.Window{Kind: timeframe.Rolling, Lower: lower, Upper: upper}
	assert.False(t, rolling.Contains(lower))
	assert.True(t, rolling.Contains(upper))

	allTime := timeframe.Window{Kind: timeframe.AllTime}
	assert.True(t, allTime.Contains(time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.False(t, allTime.Bounded())
}

func TestAdjacentRollingWindowsDoNotDoubleCount(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	resolver := timeframe.NewResolver(&MockTimeProvider{FixedTime: now})

	older, err := resolver.Resolve(timeframe.TimeSpec{PastMinutesStart: "60", PastMinutesEnd: "30"})
	require.NoError(t, err)
	newer, err := resolver.Resolve(timeframe.TimeSpec{PastMinutesStart: "30", PastMinutesEnd: "0"})
	require.NoError(t, err)

	boundary := now.Add(-30 * time.Minute)
	matches := 0
	for _, w := range []timeframe.Window{older, newer} {
		if w.Contains(boundary) {
			matches++
		}
	}
	assert.Equal(t, 1, matches)
	assert.True(t, older.Contains(boundary))
}

func TestFillRangeUnboundedOrEmpty(t *testing.T) {
	_, _, ok := timeframe.Window{Kind: timeframe.AllTime}.FillRange(timeframe.BucketHour)
	assert.False(t, ok)

	empty := timeframe.Window{
		Kind:  timeframe.Calendar,
		Lower: time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC),
		Upper: time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC),
	}
	_, _, ok = empty.FillRange(timeframe.BucketHour)
	assert.False(t, ok)
}

func TestFormatInstant(t *testing.T) {
	madrid := mustLoad(t, "Europe/Madrid")
	instant := time.Date(2024, 3, 15, 13, 4, 5, 123456789, madrid)
	assert.Equal(t, "2024-03-15 12:04:05.123", timeframe.FormatInstant(instant))
}

func TestFormatBucketUsesWindowZone(t *testing.T) {
	tokyo := mustLoad(t, "Asia/Tokyo")
	w := timeframe.Window{Kind: timeframe.Calendar, Location: tokyo}
	assert.Equal(t, "2024-03-16 00:00:00", w.FormatBucket(time.Date(2024, 3, 15, 15, 0, 0, 0, time.UTC)))
	assert.Equal(t, "Asia/Tokyo", w.ZoneName())
	assert.Equal(t, "UTC", timeframe.Window{}.ZoneName())
}
