package analytics

import (
	"context"
	"time"

	"pocketlytics/internal/filters"
	"pocketlytics/internal/query"
)

// Live visitor window limits, in minutes.
const (
	DefaultLiveMinutes = 5
	MaxLiveMinutes     = 24 * 60
)

// LiveUserCount counts distinct sessions active in the past minutes. Zero
// minutes uses DefaultLiveMinutes.
func (s *Service) LiveUserCount(ctx context.Context, params SiteScopedQueryParams, minutes int) (int64, error) {
	if minutes == 0 {
		minutes = DefaultLiveMinutes
	}
	if minutes < 0 || minutes > MaxLiveMinutes {
		return 0, invalid("Invalid minutes", nil)
	}

	window := s.resolver.Rolling(minutes, time.UTC)
	scope, err := s.scopeFor(params, window, filters.LiveParameters)
	if err != nil {
		return 0, err
	}

	stmt, err := query.LiveUserCount(scope)
	if err != nil {
		return 0, invalid("Invalid time range", err)
	}
	rows, err := s.run(ctx, stmt)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	count, _ := rows[0]["count"].(int64)
	return count, nil
}
