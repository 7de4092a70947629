package analytics

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/pariz/gountries"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"pocketlytics/internal/filters"
	"pocketlytics/internal/pkg/referrers"
	"pocketlytics/internal/query"
)

// LabelKey is the display name attached to breakdown rows.
const LabelKey = "label"

const unknownLabel = "Unknown"

var (
	countriesOnce sync.Once
	countries     *gountries.Query
)

func countryQuery() *gountries.Query {
	countriesOnce.Do(func() {
		countries = gountries.New()
	})
	return countries
}

// Metric breaks the window down by one allow-listed parameter, most sessions
// first.
func (s *Service) Metric(ctx context.Context, params SiteScopedQueryParams, parameter string, page Pagination) (*PagedRows, error) {
	if err := page.validate(); err != nil {
		return nil, err
	}
	column, err := filters.Column(parameter, filters.BreakdownParameters)
	if err != nil {
		return nil, invalid("Invalid parameter", err)
	}
	scope, err := s.scope(params, filters.FilterParameters)
	if err != nil {
		return nil, err
	}

	res, err := s.runAll(ctx,
		query.Metric(scope, column, page.query()),
		query.MetricCount(scope, column),
	)
	if err != nil {
		return nil, err
	}

	rows := nonNil(res[0])
	label := labeler(parameter)
	for _, row := range rows {
		row[LabelKey] = label(row["value"])
	}

	return &PagedRows{Rows: rows, Total: total(res[1]), Page: page.Page, Limit: page.Limit}, nil
}

// labeler returns how values of parameter are displayed.
func labeler(parameter string) func(any) string {
	switch parameter {
	case "country":
		return countryLabel
	case "device_type", "browser":
		return titleLabel
	case "operating_system":
		return osLabel
	case "referrer":
		return func(v any) string { return referrers.Label(valueString(v)) }
	default:
		return plainLabel
	}
}

func valueString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case nil:
		return ""
	default:
		return fmt.Sprint(val)
	}
}

func plainLabel(v any) string {
	if name := valueString(v); name != "" {
		return name
	}
	return unknownLabel
}

func countryLabel(v any) string {
	code := valueString(v)
	if code == "" {
		return unknownLabel
	}
	country, err := countryQuery().FindCountryByAlpha(code)
	if err != nil {
		return cases.Upper(language.AmericanEnglish).String(code)
	}
	return country.Name.Common
}

func titleLabel(v any) string {
	name := valueString(v)
	if name == "" {
		return unknownLabel
	}
	return cases.Title(language.AmericanEnglish).String(name)
}

func osLabel(v any) string {
	name := valueString(v)
	switch strings.ToLower(name) {
	case "":
		return unknownLabel
	case "ios", "iphone os":
		return "iOS"
	case "ipados":
		return "iPadOS"
	case "macos", "mac os", "mac os x", "darwin":
		return "macOS"
	}
	return cases.Title(language.AmericanEnglish).String(name)
}
