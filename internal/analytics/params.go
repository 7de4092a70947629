package analytics

import (
	"errors"

	"pocketlytics/internal/filters"
	"pocketlytics/internal/query"
	"pocketlytics/internal/timeframe"
)

// Pagination limits.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// SiteScopedQueryParams are the request inputs shared by every endpoint.
type SiteScopedQueryParams struct {
	SiteID  uint
	Time    timeframe.TimeSpec
	Bucket  string
	Filters string
}

// Pagination selects one page of a list, counted from 1.
type Pagination struct {
	Page  int
	Limit int
}

// PagedRows is one page of rows plus the size of the whole list.
type PagedRows struct {
	Rows  []map[string]any
	Total int64
	Page  int
	Limit int
}

func (p Pagination) validate() error {
	if p.Limit < 1 || p.Limit > MaxLimit {
		return invalid("Invalid limit", nil)
	}
	if p.Page < 1 {
		return invalid("Invalid page", nil)
	}
	return nil
}

func (p Pagination) query() query.Page {
	return query.Page{Limit: p.Limit, Offset: (p.Page - 1) * p.Limit}
}

// scope resolves the window and compiles the filters for params. Filter
// parameters must be in allowed.
func (s *Service) scope(params SiteScopedQueryParams, allowed filters.AllowList) (query.Scope, error) {
	window, err := s.resolver.Resolve(params.Time)
	if err != nil {
		return query.Scope{}, invalid("Invalid time range", err)
	}
	return s.scopeFor(params, window, allowed)
}

func (s *Service) scopeFor(params SiteScopedQueryParams, window timeframe.Window, allowed filters.AllowList) (query.Scope, error) {
	scope := query.Scope{SiteID: int64(params.SiteID), Window: window}

	clauses, err := filters.Parse(params.Filters)
	if err != nil {
		return query.Scope{}, invalid("Invalid filters", err)
	}
	pred, err := filters.Compile(clauses, allowed, scope.Base("timestamp"))
	if err != nil {
		if errors.Is(err, filters.ErrInvalidParameter) {
			return query.Scope{}, invalid("Invalid parameter", err)
		}
		return query.Scope{}, invalid("Invalid filters", err)
	}
	scope.Filters = pred
	return scope, nil
}

func bucket(params SiteScopedQueryParams) (timeframe.Bucket, error) {
	b, err := timeframe.ParseBucket(params.Bucket)
	if err != nil {
		return "", invalid("Invalid bucket", err)
	}
	return b, nil
}
