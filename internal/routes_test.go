package internal

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	ctestsupport "github.com/karloscodes/cartridge/testsupport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pocketlytics/internal/analytics"
	"pocketlytics/internal/clickhouse"
	"pocketlytics/internal/sites"
	"pocketlytics/internal/testsupport"
	"pocketlytics/internal/timeframe"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now(loc *time.Location) time.Time {
	return c.now.In(loc)
}

type apiFixture struct {
	app    *fiber.App
	store  *testsupport.FakeStore
	routes Routes
	site   sites.Site
}

func setupAPI(t *testing.T, mutate ...func(*analytics.Options)) apiFixture {
	t.Helper()
	dbManager, logger, site := testsupport.SetupTestDBManagerWithSite(t, "example.com")
	store := testsupport.NewFakeStore(t)

	client, err := clickhouse.NewClient(clickhouse.Config{
		URL:     store.URL,
		Timeout: 5 * time.Second,
		Breaker: clickhouse.BreakerSettings{MinRequests: 100, FailureRatio: 1, Timeout: time.Minute, Interval: time.Minute},
	}, logger)
	require.NoError(t, err)

	opts := analytics.Options{
		Store:    client,
		DB:       dbManager.GetConnection(),
		Logger:   logger,
		Resolver: timeframe.NewResolver(fixedClock{now: time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)}),
	}
	for _, m := range mutate {
		m(&opts)
	}

	routes := Routes{Analytics: analytics.NewService(opts), Store: client}
	app := testsupport.CreateTestApp(t, dbManager.GetConnection(), routes.Mount)
	return apiFixture{app: app, store: store, routes: routes, site: site}
}

func (f apiFixture) get(t *testing.T, path string, query url.Values) (int, map[string]any) {
	t.Helper()
	target := fmt.Sprintf("/api/sites/%d%s", f.site.ID, path)
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return do(t, f.app, target)
}

func do(t *testing.T, app *fiber.App, target string) (int, map[string]any) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &body))
	}
	return resp.StatusCode, body
}

func TestAnalyticsRoutesRegistered(t *testing.T) {
	f := setupAPI(t)

	want := []string{
		"/api/sites/:site/events/series",
		"/api/sites/:site/overview-bucketed",
		"/api/sites/:site/overview",
		"/api/sites/:site/metric",
		"/api/sites/:site/sessions",
		"/api/sites/:site/users",
		"/api/sites/:site/live-user-count",
		"/_health",
		"/metrics",
	}
	srv := ctestsupport.NewTestServer(t, ctestsupport.TestServerOptions{
		RouteMountFunc: f.routes.Mount,
	})
	registered := map[string]bool{}
	for _, route := range srv.App.GetRoutes(true) {
		if route.Method == fiber.MethodGet {
			registered[route.Path] = true
		}
	}
	for _, path := range want {
		assert.Truef(t, registered[path], "expected GET %s to be registered", path)
	}
}

func TestUnknownSiteIsNotFound(t *testing.T) {
	f := setupAPI(t)

	status, body := do(t, f.app, "/api/sites/999/overview")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "Site not found", body["error"])

	status, _ = do(t, f.app, "/api/sites/abc/overview")
	assert.Equal(t, fiber.StatusNotFound, status)

	assert.Empty(t, f.store.Requests())
}

func TestValidationErrorsAreBadRequests(t *testing.T) {
	f := setupAPI(t)

	tests := []struct {
		name    string
		path    string
		query   url.Values
		message string
	}{
		{
			name:    "unknown bucket",
			path:    "/events/series",
			query:   url.Values{"bucket": {"fortnight"}},
			message: "Invalid bucket",
		},
		{
			name: "minute buckets over a year",
			path: "/events/series",
			query: url.Values{
				"start_date": {"2023-01-01"}, "end_date": {"2023-12-31"}, "time_zone": {"UTC"}, "bucket": {"minute"},
			},
			message: "Invalid bucket",
		},
		{
			name: "minute buckets over a year, overview",
			path: "/overview-bucketed",
			query: url.Values{
				"start_date": {"2023-01-01"}, "end_date": {"2023-12-31"}, "time_zone": {"UTC"}, "bucket": {"minute"},
			},
			message: "Invalid bucket",
		},
		{
			name:    "unknown filter parameter",
			path:    "/overview-bucketed",
			query:   url.Values{"filters": {`[{"parameter":"foo","type":"equals","value":["x"]}]`}},
			message: "Invalid parameter",
		},
		{
			name:    "conflicting time forms",
			path:    "/overview",
			query:   url.Values{"start_date": {"2024-03-01"}, "past_minutes_start": {"30"}},
			message: "Invalid time range",
		},
		{
			name:    "breakdown parameter",
			path:    "/metric",
			query:   url.Values{"parameter": {"session_id"}},
			message: "Invalid parameter",
		},
		{
			name:    "limit too large",
			path:    "/sessions",
			query:   url.Values{"limit": {"500"}},
			message: "Invalid limit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := f.get(t, tt.path, tt.query)
			assert.Equal(t, fiber.StatusBadRequest, status)
			assert.Equal(t, tt.message, body["error"])
		})
	}

	assert.Empty(t, f.store.Requests())
}

func TestStoreFailureIsGenericServerError(t *testing.T) {
	f := setupAPI(t)
	f.store.Fail("overview", http.StatusInternalServerError)

	status, body := f.get(t, "/overview", nil)

	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, "Failed to fetch overview", body["error"])
}

func TestEventSeriesResponse(t *testing.T) {
	f := setupAPI(t)
	f.store.Respond("event_series", map[string]any{"time": "2024-03-10 00:00:00", "ts": 1710028800, "pageview": "5"})

	status, body := f.get(t, "/events/series", url.Values{
		"start_date": {"2024-03-10"}, "end_date": {"2024-03-12"}, "time_zone": {"UTC"}, "bucket": {"day"},
	})

	require.Equal(t, fiber.StatusOK, status)
	data, ok := body["data"].([]any)
	require.True(t, ok)
	require.Len(t, data, 3)
	first := data[0].(map[string]any)
	assert.Equal(t, "2024-03-10 00:00:00", first["time"])
	assert.EqualValues(t, 1710028800, first["ts"])
	assert.EqualValues(t, 5, first["pageview"])
}

func TestOverviewResponseListsUnavailableFeatures(t *testing.T) {
	f := setupAPI(t, func(o *analytics.Options) { o.QueryStats = true })
	f.store.Respond("overview", map[string]any{"pageviews": "3", "sessions": "2"})
	f.store.Fail("query_stats", http.StatusForbidden)

	status, body := f.get(t, "/overview", nil)

	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, []any{"query_stats"}, body["unavailableFeatures"])
	data := body["data"].(map[string]any)
	assert.EqualValues(t, 3, data["pageviews"])
}

func TestSessionsResponsePagination(t *testing.T) {
	f := setupAPI(t)
	f.store.Respond("sessions", map[string]any{"session_id": "42", "identified_user_id": ""})
	f.store.Respond("session_count", map[string]any{"total": "21"})

	status, body := f.get(t, "/sessions", url.Values{"limit": {"10"}, "page": {"3"}})

	require.Equal(t, fiber.StatusOK, status)
	pagination := body["pagination"].(map[string]any)
	assert.EqualValues(t, 3, pagination["current_page"])
	assert.EqualValues(t, 3, pagination["total_pages"])
	assert.EqualValues(t, 21, pagination["total_items"])
	assert.EqualValues(t, 10, pagination["per_page"])

	data := body["data"].([]any)
	require.Len(t, data, 1)
	row := data[0].(map[string]any)
	assert.Equal(t, "42", row["session_id"])
	assert.Contains(t, row, "traits")
	assert.Nil(t, row["traits"])
	assert.NotEmpty(t, row["alias"])
}

func TestLiveUserCountResponse(t *testing.T) {
	f := setupAPI(t)
	f.store.Respond("live_user_count", map[string]any{"count": "4"})

	status, body := f.get(t, "/live-user-count", url.Values{"minutes": {"30"}})

	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, map[string]any{"count": float64(4)}, body["data"])

	req, ok := f.store.Request("live_user_count")
	require.True(t, ok)
	assert.Equal(t, "2024-03-15 14:00:00.000", req.Params["time_lower"])
}

func TestHealthReportsStoreStatus(t *testing.T) {
	f := setupAPI(t)

	status, body := do(t, f.app, "/_health")

	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ok", body["store_status"])
}
