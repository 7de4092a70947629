package query

import (
	"pocketlytics/internal/timeframe"
)

// LiveUserCount counts distinct sessions in a bounded window.
func LiveUserCount(scope Scope) (Statement, error) {
	if !scope.Window.Bounded() {
		return Statement{}, timeframe.ErrWindowRequired
	}
	p := NewParams()

	sql := lines(
		"SELECT uniqExact(session_id) AS count",
		"FROM "+EventsTable,
		Where(p, scope.Filtered("timestamp")),
	)
	return newStatement("live_user_count", scope.SiteID, sql, p), nil
}

// QueryStats summarizes the site's finished analytics statements from the
// store's own query log over the last day.
func QueryStats(siteID int64) Statement {
	p := NewParams()
	prefix := Statement{SiteID: siteID}.LogComment()

	sql := lines(
		"SELECT",
		"  count() AS queries,",
		"  ifNotFinite(avg(query_duration_ms), 0) AS avg_duration_ms,",
		"  sum(read_rows) AS read_rows,",
		"  sum(read_bytes) AS read_bytes",
		"FROM system.query_log",
		"WHERE type = 'QueryFinish'",
		"  AND event_date >= yesterday()",
		"  AND startsWith(log_comment, "+p.Named("log_prefix", "String", prefix)+")",
	)
	return newStatement("query_stats", siteID, sql, p)
}
