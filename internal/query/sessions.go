package query

// filteredSessionIDs selects sessions with at least one event matching the
// filters, so session rows aggregate every event of a matching session.
func filteredSessionIDs(scope Scope) Predicate {
	return InSubquery{
		Column: "session_id",
		Subquery: func(p *Params) string {
			return "SELECT session_id FROM " + EventsTable + " " + Where(p, scope.Filtered("timestamp"))
		},
	}
}

// Sessions lists sessions, most recent first.
func Sessions(scope Scope, page Page) Statement {
	p := NewParams()
	tz := zone(p, scope.Window)

	var where string
	if !Empty(scope.Filters) {
		where = Where(p, scope.Base("timestamp"), filteredSessionIDs(scope))
	} else {
		where = Where(p, scope.Base("timestamp"))
	}

	sql := lines(
		"SELECT",
		"  session_id,",
		"  any(user_id) AS user_id,",
		"  argMaxIf(identified_user_id, timestamp, identified_user_id != '') AS identified_user_id,",
		"  toTimeZone(min(timestamp), "+tz+") AS start_time,",
		"  toTimeZone(max(timestamp), "+tz+") AS end_time,",
		"  dateDiff('second', min(timestamp), max(timestamp)) AS duration,",
		"  "+countIfType("pageview")+" AS pageviews,",
		"  count() AS events,",
		"  argMinIf(pathname, timestamp, type = 'pageview') AS entry_page,",
		"  argMaxIf(pathname, timestamp, type = 'pageview') AS exit_page,",
		"  argMin(country, timestamp) AS country,",
		"  argMin(browser, timestamp) AS browser,",
		"  argMin(operating_system, timestamp) AS operating_system,",
		"  argMin(device_type, timestamp) AS device_type",
		"FROM "+EventsTable,
		where,
		"GROUP BY session_id",
		"ORDER BY start_time DESC, session_id ASC",
		page.render(p),
	)
	return newStatement("sessions", scope.SiteID, sql, p)
}

// SessionCount is the number of sessions Sessions can return.
func SessionCount(scope Scope) Statement {
	p := NewParams()

	sql := lines(
		"SELECT uniqExact(session_id) AS total",
		"FROM "+EventsTable,
		Where(p, scope.Filtered("timestamp")),
	)
	return newStatement("session_count", scope.SiteID, sql, p)
}

const identified = Trusted("identified_user_id != ''")

// Users lists identified users, most recently seen first.
func Users(scope Scope, page Page) Statement {
	p := NewParams()
	tz := zone(p, scope.Window)

	sql := lines(
		"SELECT",
		"  identified_user_id,",
		"  uniqExact(session_id) AS sessions,",
		"  "+countIfType("pageview")+" AS pageviews,",
		"  count() AS events,",
		"  toTimeZone(min(timestamp), "+tz+") AS first_seen,",
		"  toTimeZone(max(timestamp), "+tz+") AS last_seen,",
		"  argMax(country, timestamp) AS country,",
		"  argMax(browser, timestamp) AS browser,",
		"  argMax(operating_system, timestamp) AS operating_system,",
		"  argMax(device_type, timestamp) AS device_type",
		"FROM "+EventsTable,
		Where(p, scope.Filtered("timestamp"), identified),
		"GROUP BY identified_user_id",
		"ORDER BY last_seen DESC, identified_user_id ASC",
		page.render(p),
	)
	return newStatement("users", scope.SiteID, sql, p)
}

// UserCount is the number of identified users Users can return.
func UserCount(scope Scope) Statement {
	p := NewParams()

	sql := lines(
		"SELECT uniqExact(identified_user_id) AS total",
		"FROM "+EventsTable,
		Where(p, scope.Filtered("timestamp"), identified),
	)
	return newStatement("user_count", scope.SiteID, sql, p)
}
