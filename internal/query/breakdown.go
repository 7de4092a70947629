package query

// Metric breaks events down by one trusted column expression, most sessions
// first. percentage is the share of all filtered sessions in the window.
func Metric(scope Scope, column string, page Page) Statement {
	p := NewParams()

	sql := lines(
		"SELECT",
		"  "+column+" AS value,",
		"  uniqExact(session_id) AS count,",
		"  "+countIfType("pageview")+" AS pageviews,",
		"  round(uniqExact(session_id) * 100 / (",
		"    SELECT greatest(uniqExact(session_id), 1) FROM "+EventsTable+" "+Where(p, scope.Filtered("timestamp")),
		"  ), 2) AS percentage",
		"FROM "+EventsTable,
		Where(p, scope.Filtered("timestamp")),
		"GROUP BY value",
		"ORDER BY count DESC, value ASC",
		page.render(p),
	)
	return newStatement("metric", scope.SiteID, sql, p)
}

// MetricCount is the number of distinct values Metric can return.
func MetricCount(scope Scope, column string) Statement {
	p := NewParams()

	sql := lines(
		"SELECT uniqExact("+column+") AS total",
		"FROM "+EventsTable,
		Where(p, scope.Filtered("timestamp")),
	)
	return newStatement("metric_count", scope.SiteID, sql, p)
}
