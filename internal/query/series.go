package query

import (
	"strings"

	"pocketlytics/internal/timeframe"
)

// EventSeries counts every event type per bucket.
func EventSeries(scope Scope, bucket timeframe.Bucket) Statement {
	p := NewParams()

	projections := make([]string, 0, len(EventTypes)+2)
	projections = append(projections,
		bucketExpr(p, scope.Window, bucket, "timestamp")+" AS time",
		bucketStart("time"),
	)
	for _, eventType := range EventTypes {
		projections = append(projections, countIfType(eventType)+" AS "+eventType)
	}

	sql := lines(
		"SELECT",
		"  "+strings.Join(projections, ",\n  "),
		"FROM "+EventsTable,
		Where(p, scope.Filtered("timestamp")),
		"GROUP BY time",
		orderByTime(p, scope.Window, bucket),
	)
	return newStatement("event_series", scope.SiteID, sql, p)
}
