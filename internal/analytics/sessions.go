package analytics

import (
	"context"

	"pocketlytics/internal/filters"
	"pocketlytics/internal/profiles"
	"pocketlytics/internal/query"
	"pocketlytics/internal/visitors"
)

// Sessions lists sessions with at least one event matching the filters, most
// recent first, with the traits of their identified user. Anonymous sessions
// carry a display alias instead.
func (s *Service) Sessions(ctx context.Context, params SiteScopedQueryParams, page Pagination) (*PagedRows, error) {
	if err := page.validate(); err != nil {
		return nil, err
	}
	scope, err := s.scope(params, filters.FilterParameters)
	if err != nil {
		return nil, err
	}

	return s.enrichedPage(ctx, params.SiteID, page,
		query.Sessions(scope, page.query()),
		query.SessionCount(scope),
	)
}

// Users lists identified users with their traits.
func (s *Service) Users(ctx context.Context, params SiteScopedQueryParams, page Pagination) (*PagedRows, error) {
	if err := page.validate(); err != nil {
		return nil, err
	}
	scope, err := s.scope(params, filters.FilterParameters)
	if err != nil {
		return nil, err
	}

	return s.enrichedPage(ctx, params.SiteID, page,
		query.Users(scope, page.query()),
		query.UserCount(scope),
	)
}

func (s *Service) enrichedPage(ctx context.Context, siteID uint, page Pagination, list, count query.Statement) (*PagedRows, error) {
	res, err := s.runAll(ctx, list, count)
	if err != nil {
		return nil, err
	}

	rows := visitors.Label(nonNil(res[0]))
	if s.profiles != nil {
		if rows, err = profiles.Enrich(ctx, s.profiles, siteID, rows); err != nil {
			return nil, err
		}
	}

	return &PagedRows{Rows: rows, Total: total(res[1]), Page: page.Page, Limit: page.Limit}, nil
}
