package analytics

import (
	"context"
	"log/slog"

	"pocketlytics/internal/filters"
	"pocketlytics/internal/metrics"
	"pocketlytics/internal/pkg/async"
	"pocketlytics/internal/query"
)

// FeatureQueryStats is the optional query log summary on the overview.
const FeatureQueryStats = "query_stats"

// OverviewResult is the overview totals plus the optional features that could
// not be served.
type OverviewResult struct {
	Data                map[string]any
	UnavailableFeatures []string
}

// Overview returns totals over the whole window. Query statistics are
// attached when enabled; their failure degrades the response instead of
// failing it.
func (s *Service) Overview(ctx context.Context, params SiteScopedQueryParams) (*OverviewResult, error) {
	scope, err := s.scope(params, filters.FilterParameters)
	if err != nil {
		return nil, err
	}

	tasks := []async.Task{
		{
			Name: "overview",
			Execute: func(ctx context.Context) (any, error) {
				return s.run(ctx, query.Overview(scope))
			},
		},
	}
	if s.queryStats {
		tasks = append(tasks, async.Task{
			Name: FeatureQueryStats,
			// Reported through optionalRows so a failure never cancels the
			// overview statement.
			Execute: func(ctx context.Context) (any, error) {
				rows, err := s.run(ctx, query.QueryStats(scope.SiteID))
				return optionalRows{rows: rows, err: err}, nil
			},
		})
	}

	results := s.pool.Execute(ctx, tasks)

	overview := results["overview"]
	if overview.Err != nil {
		return nil, overview.Err
	}

	result := &OverviewResult{Data: query.ZeroOverviewRow(), UnavailableFeatures: []string{}}
	if rows, _ := overview.Data.([]map[string]any); len(rows) > 0 {
		for k, v := range rows[0] {
			if v != nil {
				result.Data[k] = v
			}
		}
	}

	if !s.queryStats {
		return result, nil
	}

	stats, _ := results[FeatureQueryStats].Data.(optionalRows)
	if stats.err != nil || len(stats.rows) == 0 {
		s.logger.Warn("Query statistics unavailable",
			slog.Uint64("site_id", uint64(params.SiteID)),
			slog.Any("error", stats.err))
		metrics.RecordDegradedFeature(FeatureQueryStats)
		result.UnavailableFeatures = append(result.UnavailableFeatures, FeatureQueryStats)
		return result, nil
	}
	result.Data[FeatureQueryStats] = stats.rows[0]
	return result, nil
}

type optionalRows struct {
	rows []map[string]any
	err  error
}
