//go:build integration

package analytics_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pocketlytics/internal/analytics"
	"pocketlytics/internal/clickhouse"
	"pocketlytics/internal/config"
	"pocketlytics/internal/testinfra"
	"pocketlytics/internal/testsupport"
	"pocketlytics/internal/timeframe"
)

// sessionPageviews is the pageview count of each seeded session. Three of the
// ten sessions bounce and the ten hold 21 pageviews.
var sessionPageviews = []int{1, 1, 1, 2, 2, 2, 3, 3, 3, 3}

// seedSessions writes the sessions on 2024-03-11 UTC. Sessions s01 to s03
// also fire a signup event; s07 fires an upgrade event.
func seedSessions(t *testing.T, ctx context.Context, ch *testinfra.ClickHouseContainer, siteID uint) {
	t.Helper()

	start := time.Date(2024, 3, 11, 10, 0, 0, 0, time.UTC)
	customEvents := map[int]string{1: "signup", 2: "signup", 3: "signup", 7: "upgrade"}

	var rows []map[string]any
	for i, pageviews := range sessionPageviews {
		n := i + 1
		sessionID := fmt.Sprintf("s%02d", n)
		userID := fmt.Sprintf("u%02d", n)
		sessionStart := start.Add(time.Duration(i) * 10 * time.Minute)

		event := func(at time.Time, eventType, name, path string) map[string]any {
			return map[string]any{
				"site_id":    siteID,
				"timestamp":  at.Format("2006-01-02 15:04:05.000"),
				"session_id": sessionID,
				"user_id":    userID,
				"type":       eventType,
				"event_name": name,
				"pathname":   path,
				"country":    "US",
			}
		}

		for p := 0; p < pageviews; p++ {
			rows = append(rows, event(sessionStart.Add(time.Duration(p)*time.Minute), "pageview", "", fmt.Sprintf("/page-%d", p)))
		}
		if name, ok := customEvents[n]; ok {
			rows = append(rows, event(sessionStart.Add(30*time.Second), "custom_event", name, "/page-0"))
		}
	}

	require.NoError(t, ch.Insert(ctx, "events", rows))
}

func number(t *testing.T, v any) float64 {
	t.Helper()
	switch n := v.(type) {
	case int64:
		return float64(n)
	case float64:
		return n
	}
	require.Failf(t, "not a number", "%#v", v)
	return 0
}

func TestSessionMetricsAgainstClickHouse(t *testing.T) {
	testinfra.SkipIfNoDocker(t)
	ctx := context.Background()

	ch, err := testinfra.NewClickHouseContainer(ctx)
	require.NoError(t, err)
	defer testinfra.CleanupContainer(t, ctx, ch.Container)

	require.NoError(t, ch.Exec(ctx, testinfra.EventsTableDDL))

	dbManager, logger, registered := testsupport.SetupTestDBManagerWithSite(t, "example.com")
	site := registered.ID
	seedSessions(t, ctx, ch, site)

	client, err := clickhouse.NewClient(clickhouse.Config{
		URL:           ch.URL,
		Database:      ch.Database,
		User:          ch.User,
		Password:      ch.Password,
		Timeout:       30 * time.Second,
		MaxResultRows: 10000,
		Breaker:       clickhouse.BreakerSettings{MinRequests: 100, FailureRatio: 1, Timeout: time.Minute, Interval: time.Minute},
	}, logger)
	require.NoError(t, err)
	require.NoError(t, client.Ping(ctx))

	window := timeframe.TimeSpec{StartDate: "2024-03-10", EndDate: "2024-03-12", TimeZone: "UTC"}
	byEvent := func(names ...string) string {
		values := ""
		for i, name := range names {
			if i > 0 {
				values += ","
			}
			values += fmt.Sprintf("%q", name)
		}
		return `[{"parameter":"event_name","type":"equals","value":[` + values + `]}]`
	}

	tests := []struct {
		name            string
		filters         string
		sessions        float64
		bounceRate      float64
		pagesPerSession float64
	}{
		{name: "unfiltered", sessions: 10, bounceRate: 30, pagesPerSession: 2.1},
		{name: "bounced sessions only", filters: byEvent("signup"), sessions: 3, bounceRate: 100, pagesPerSession: 1},
		{name: "bounced plus one long session", filters: byEvent("signup", "upgrade"), sessions: 4, bounceRate: 75, pagesPerSession: 1.5},
	}

	for _, mode := range []string{config.OverviewJoined, config.OverviewSplit} {
		svc := analytics.NewService(analytics.Options{
			Store:        client,
			DB:           dbManager.GetConnection(),
			Logger:       logger,
			Resolver:     timeframe.NewResolver(fixedClock{now: now}),
			OverviewMode: mode,
			Workers:      2,
		})

		for _, tt := range tests {
			t.Run(mode+"/"+tt.name, func(t *testing.T) {
				params := analytics.SiteScopedQueryParams{SiteID: site, Time: window, Filters: tt.filters, Bucket: "day"}

				totals, err := svc.Overview(ctx, params)
				require.NoError(t, err)
				assert.InDelta(t, tt.sessions, number(t, totals.Data["sessions"]), 0.001)
				assert.InDelta(t, tt.bounceRate, number(t, totals.Data["bounce_rate"]), 0.001)
				assert.InDelta(t, tt.pagesPerSession, number(t, totals.Data["pages_per_session"]), 0.001)

				rows, err := svc.OverviewBucketed(ctx, params)
				require.NoError(t, err)
				require.Len(t, rows, 3)

				assert.Equal(t, "2024-03-10 00:00:00", rows[0]["time"])
				assert.Equal(t, int64(0), rows[0]["sessions"])
				assert.Equal(t, "2024-03-12 00:00:00", rows[2]["time"])
				assert.Equal(t, int64(0), rows[2]["sessions"])

				seeded := rows[1]
				assert.Equal(t, "2024-03-11 00:00:00", seeded["time"])
				assert.Equal(t, int64(1710115200), seeded["ts"])
				assert.InDelta(t, tt.sessions, number(t, seeded["sessions"]), 0.001)
				assert.InDelta(t, tt.bounceRate, number(t, seeded["bounce_rate"]), 0.001)
				assert.InDelta(t, tt.pagesPerSession, number(t, seeded["pages_per_session"]), 0.001)
			})
		}
	}

	t.Run("event series", func(t *testing.T) {
		svc := analytics.NewService(analytics.Options{
			Store:    client,
			DB:       dbManager.GetConnection(),
			Logger:   logger,
			Resolver: timeframe.NewResolver(fixedClock{now: now}),
		})
		params := analytics.SiteScopedQueryParams{SiteID: site, Time: window, Bucket: "day"}

		rows, err := svc.EventSeries(ctx, params)
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, int64(0), rows[0]["pageview"])
		assert.Equal(t, int64(21), rows[1]["pageview"])
		assert.Equal(t, int64(4), rows[1]["custom_event"])
		assert.Equal(t, int64(0), rows[2]["pageview"])
	})
}
