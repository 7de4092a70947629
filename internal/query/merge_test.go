package query_test

import (
	"testing"

	"pocketlytics/internal/query"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeBucketsFullOuterJoin(t *testing.T) {
	sessions := []map[string]any{
		{"time": "2024-03-14 01:00:00", "ts": int64(1710378000), "sessions": int64(2), "pages_per_session": 1.5, "bounce_rate": float64(50), "session_duration": int64(30)},
		{"time": "2024-03-14 00:00:00", "ts": int64(1710374400), "sessions": int64(1), "pages_per_session": int64(1), "bounce_rate": int64(100), "session_duration": int64(0)},
		{"sessions": int64(9)},
	}
	pages := []map[string]any{
		{"time": "2024-03-14 00:00:00", "ts": int64(1710374400), "pageviews": int64(1), "users": int64(1)},
		{"time": "2024-03-14 02:00:00", "ts": int64(1710381600), "pageviews": int64(4), "users": int64(2)},
		{"time": "", "ts": int64(0), "pageviews": int64(8)},
	}

	merged := query.MergeBuckets(sessions, pages)
	require.Len(t, merged, 3)

	assert.Equal(t, "2024-03-14 00:00:00", merged[0]["time"])
	assert.Equal(t, int64(1710374400), merged[0]["ts"])
	assert.Equal(t, int64(1), merged[0]["sessions"])
	assert.Equal(t, int64(1), merged[0]["pageviews"])

	assert.Equal(t, "2024-03-14 01:00:00", merged[1]["time"])
	assert.Equal(t, 1.5, merged[1]["pages_per_session"])
	assert.Equal(t, int64(0), merged[1]["pageviews"])
	assert.Equal(t, int64(0), merged[1]["users"])

	assert.Equal(t, "2024-03-14 02:00:00", merged[2]["time"])
	assert.Equal(t, int64(0), merged[2]["sessions"])
	assert.Equal(t, int64(0), merged[2]["bounce_rate"])
	assert.Equal(t, int64(4), merged[2]["pageviews"])
}

func TestMergeBucketsKeepsRepeatedWallClockHours(t *testing.T) {
	// 01:00 on 2024-11-03 in New York happens once in EDT and once in EST.
	sessions := []map[string]any{
		{"time": "2024-11-03 01:00:00", "ts": int64(1730610000), "sessions": int64(3)},
		{"time": "2024-11-03 01:00:00", "ts": int64(1730613600), "sessions": int64(4)},
	}
	pages := []map[string]any{
		{"time": "2024-11-03 01:00:00", "ts": int64(1730613600), "pageviews": int64(6)},
	}

	merged := query.MergeBuckets(sessions, pages)
	require.Len(t, merged, 2)
	assert.Equal(t, int64(3), merged[0]["sessions"])
	assert.Equal(t, int64(0), merged[0]["pageviews"])
	assert.Equal(t, int64(4), merged[1]["sessions"])
	assert.Equal(t, int64(6), merged[1]["pageviews"])
	assert.Equal(t, merged[0]["time"], merged[1]["time"])
}

func TestMergeBucketsEmpty(t *testing.T) {
	assert.Empty(t, query.MergeBuckets(nil, nil))
}

func TestZeroOverviewRow(t *testing.T) {
	row := query.ZeroOverviewRow()
	assert.NotContains(t, row, "time")
	for _, c := range append(query.SessionColumns, query.PageColumns...) {
		assert.Equal(t, int64(0), row[c], c)
	}
}
