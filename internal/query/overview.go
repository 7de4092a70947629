package query

import (
	"strings"

	"pocketlytics/internal/timeframe"
)

// Columns of an overview row, bucketed or not.
const (
	ColumnTime            = timeframe.ColumnBucket
	ColumnBucketStart     = timeframe.ColumnBucketStart
	ColumnPageviews       = "pageviews"
	ColumnUsers           = "users"
	ColumnSessions        = "sessions"
	ColumnPagesPerSession = "pages_per_session"
	ColumnBounceRate      = "bounce_rate"
	ColumnSessionDuration = "session_duration"
)

// SessionColumns are produced by the session half of the overview.
var SessionColumns = []string{ColumnSessions, ColumnPagesPerSession, ColumnBounceRate, ColumnSessionDuration}

// PageColumns are produced by the page half of the overview.
var PageColumns = []string{ColumnPageviews, ColumnUsers}

// sessionCTEs renders the session correlation shared by every overview shape.
// The pageview total per session ignores filters, so pages per session and
// bounce rate use the whole session; which sessions count is filtered.
func sessionCTEs(p *Params, scope Scope) string {
	return lines(
		"AllSessionPageviews AS (",
		"  SELECT session_id, "+countIfType("pageview")+" AS total_pageviews_in_session",
		"  FROM "+EventsTable,
		"  "+Where(p, scope.Base("timestamp")),
		"  GROUP BY session_id",
		"),",
		"FilteredSessions AS (",
		"  SELECT session_id, min(timestamp) AS start_time, max(timestamp) AS end_time",
		"  FROM "+EventsTable,
		"  "+Where(p, scope.Filtered("timestamp")),
		"  GROUP BY session_id",
		"),",
		"SessionsWithPageviews AS (",
		"  SELECT f.session_id AS session_id, f.start_time AS start_time, f.end_time AS end_time,",
		"    a.total_pageviews_in_session AS total_pageviews_in_session",
		"  FROM FilteredSessions AS f",
		"  LEFT JOIN AllSessionPageviews AS a ON f.session_id = a.session_id",
		")",
	)
}

// sessionMetrics are the aggregates over SessionsWithPageviews. A bounce is a
// session with exactly one pageview in the unfiltered population.
const sessionMetrics = `count() AS sessions,
    ifNotFinite(avg(total_pageviews_in_session), 0) AS pages_per_session,
    ifNotFinite(sumIf(1, total_pageviews_in_session = 1) / count() * 100, 0) AS bounce_rate,
    ifNotFinite(avg(dateDiff('second', start_time, end_time)), 0) AS session_duration`

func pageMetrics() string {
	return countIfType("pageview") + " AS pageviews,\n    count(DISTINCT user_id) AS users"
}

func sessionStats(p *Params, scope Scope, bucket timeframe.Bucket) string {
	return lines(
		"SessionStats AS (",
		"  SELECT",
		"    "+bucketExpr(p, scope.Window, bucket, "start_time")+" AS time,",
		"    "+sessionMetrics,
		"  FROM SessionsWithPageviews",
		"  GROUP BY time",
		")",
	)
}

func pageStats(p *Params, scope Scope, bucket timeframe.Bucket) string {
	return lines(
		"PageStats AS (",
		"  SELECT",
		"    "+bucketExpr(p, scope.Window, bucket, "timestamp")+" AS time,",
		"    "+pageMetrics(),
		"  FROM "+EventsTable,
		"  "+Where(p, scope.Filtered("timestamp")),
		"  GROUP BY time",
		")",
	)
}

// OverviewBucketed is the single joined statement: session stats bucketed by
// session start and page stats bucketed by event time, full outer joined on
// the bucket with missing sides coalesced to zero.
func OverviewBucketed(scope Scope, bucket timeframe.Bucket) Statement {
	p := NewParams()

	sql := lines(
		"WITH",
		sessionCTEs(p, scope)+",",
		sessionStats(p, scope, bucket)+",",
		pageStats(p, scope, bucket),
		"SELECT",
		"  COALESCE(s.time, p.time) AS time,",
		"  "+bucketStart("time")+",",
		"  COALESCE(p.pageviews, 0) AS pageviews,",
		"  COALESCE(p.users, 0) AS users,",
		"  COALESCE(s.sessions, 0) AS sessions,",
		"  COALESCE(s.pages_per_session, 0) AS pages_per_session,",
		"  COALESCE(s.bounce_rate, 0) AS bounce_rate,",
		"  COALESCE(s.session_duration, 0) AS session_duration",
		"FROM SessionStats AS s",
		"FULL OUTER JOIN PageStats AS p ON s.time = p.time",
		"WHERE isNotNull(COALESCE(s.time, p.time))",
		orderByTime(p, scope.Window, bucket),
	)
	return newStatement("overview_bucketed", scope.SiteID, sql, p).WithSetting("join_use_nulls", "1")
}

// OverviewSessionSeries is the session half of OverviewBucketed, for callers
// that join the halves themselves.
func OverviewSessionSeries(scope Scope, bucket timeframe.Bucket) Statement {
	p := NewParams()

	sql := lines(
		"WITH",
		sessionCTEs(p, scope)+",",
		sessionStats(p, scope, bucket),
		"SELECT time, "+bucketStart("time")+", "+strings.Join(SessionColumns, ", "),
		"FROM SessionStats",
		"ORDER BY time",
	)
	return newStatement("overview_sessions", scope.SiteID, sql, p)
}

// OverviewPageSeries is the page half of OverviewBucketed.
func OverviewPageSeries(scope Scope, bucket timeframe.Bucket) Statement {
	p := NewParams()

	sql := lines(
		"SELECT",
		"  "+bucketExpr(p, scope.Window, bucket, "timestamp")+" AS time,",
		"  "+bucketStart("time")+",",
		"  "+pageMetrics(),
		"FROM "+EventsTable,
		Where(p, scope.Filtered("timestamp")),
		"GROUP BY time",
		"ORDER BY time",
	)
	return newStatement("overview_pages", scope.SiteID, sql, p)
}

// Overview is the un-bucketed total over the whole window.
func Overview(scope Scope) Statement {
	p := NewParams()

	sql := lines(
		"WITH",
		sessionCTEs(p, scope),
		"SELECT",
		"  p.pageviews AS pageviews,",
		"  p.users AS users,",
		"  s.sessions AS sessions,",
		"  s.pages_per_session AS pages_per_session,",
		"  s.bounce_rate AS bounce_rate,",
		"  s.session_duration AS session_duration",
		"FROM (",
		"  SELECT",
		"    "+sessionMetrics,
		"  FROM SessionsWithPageviews",
		") AS s",
		"CROSS JOIN (",
		"  SELECT",
		"    "+pageMetrics(),
		"  FROM "+EventsTable,
		"  "+Where(p, scope.Filtered("timestamp")),
		") AS p",
	)
	return newStatement("overview", scope.SiteID, sql, p)
}
