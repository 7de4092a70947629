package analytics

import (
	"context"

	"pocketlytics/internal/config"
	"pocketlytics/internal/filters"
	"pocketlytics/internal/query"
	"pocketlytics/internal/timeframe"
)

// EventSeries counts every event type per bucket. Bounded windows contain
// every bucket exactly once.
func (s *Service) EventSeries(ctx context.Context, params SiteScopedQueryParams) ([]map[string]any, error) {
	b, err := bucket(params)
	if err != nil {
		return nil, err
	}
	scope, err := s.seriesScope(params, b)
	if err != nil {
		return nil, err
	}

	rows, err := s.run(ctx, query.EventSeries(scope, b))
	if err != nil {
		return nil, err
	}
	return nonNil(timeframe.Densify(scope.Window, b, rows, zeroEventRow)), nil
}

func zeroEventRow() map[string]any {
	row := make(map[string]any, len(query.EventTypes)+2)
	for _, eventType := range query.EventTypes {
		row[eventType] = int64(0)
	}
	return row
}

// OverviewBucketed returns session and page metrics per bucket. Depending on
// the configured mode the two halves run as one joined statement or as two
// concurrent statements merged here.
func (s *Service) OverviewBucketed(ctx context.Context, params SiteScopedQueryParams) ([]map[string]any, error) {
	b, err := bucket(params)
	if err != nil {
		return nil, err
	}
	scope, err := s.seriesScope(params, b)
	if err != nil {
		return nil, err
	}

	var rows []map[string]any
	if s.overviewMode == config.OverviewSplit {
		halves, err := s.runAll(ctx, query.OverviewSessionSeries(scope, b), query.OverviewPageSeries(scope, b))
		if err != nil {
			return nil, err
		}
		rows = query.MergeBuckets(halves[0], halves[1])
	} else {
		rows, err = s.run(ctx, query.OverviewBucketed(scope, b))
		if err != nil {
			return nil, err
		}
	}

	return nonNil(timeframe.Densify(scope.Window, b, rows, query.ZeroOverviewRow)), nil
}

// seriesScope resolves the scope of a bucketed request and rejects windows
// whose gap-filled series would exceed the bucket cap.
func (s *Service) seriesScope(params SiteScopedQueryParams, b timeframe.Bucket) (query.Scope, error) {
	scope, err := s.scope(params, filters.FilterParameters)
	if err != nil {
		return query.Scope{}, err
	}
	if err := timeframe.CheckSeries(scope.Window, b, s.maxBuckets); err != nil {
		return query.Scope{}, invalid("Invalid bucket", err)
	}
	return scope, nil
}
