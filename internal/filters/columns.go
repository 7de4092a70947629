package filters

import "sort"

// columns maps event-level parameters to column expressions.
var columns = map[string]string{
	"hostname":                 "hostname",
	"pathname":                 "pathname",
	"querystring":              "querystring",
	"page_title":               "page_title",
	"referrer":                 "referrer",
	"channel":                  "channel",
	"country":                  "country",
	"region":                   "region",
	"city":                     "city",
	"language":                 "language",
	"browser":                  "browser",
	"browser_version":          "concat(browser, ' ', browser_version)",
	"operating_system":         "operating_system",
	"operating_system_version": "concat(operating_system, ' ', operating_system_version)",
	"device_type":              "device_type",
	"dimensions":               "concat(toString(screen_width), 'x', toString(screen_height))",
	"type":                     "type",
	"event_name":               "event_name",
	"user_id":                  "user_id",
	"identified_user_id":       "identified_user_id",
	"utm_source":               "url_parameters['utm_source']",
	"utm_medium":               "url_parameters['utm_medium']",
	"utm_campaign":             "url_parameters['utm_campaign']",
	"utm_term":                 "url_parameters['utm_term']",
	"utm_content":              "url_parameters['utm_content']",
}

// sessionColumns are session-level parameters, evaluated over the pageviews
// of each session.
var sessionColumns = map[string]string{
	"entry_page": "argMin(pathname, timestamp)",
	"exit_page":  "argMax(pathname, timestamp)",
}

// AllowList is the set of parameters one endpoint accepts.
type AllowList map[string]struct{}

// NewAllowList builds an allow list. Names without a column are ignored.
func NewAllowList(names ...string) AllowList {
	out := make(AllowList, len(names))
	for _, name := range names {
		_, event := columns[name]
		_, session := sessionColumns[name]
		if event || session {
			out[name] = struct{}{}
		}
	}
	return out
}

// Has reports whether name is allowed.
func (a AllowList) Has(name string) bool {
	_, ok := a[name]
	return ok
}

// Names lists the allowed parameters in sorted order.
func (a AllowList) Names() []string {
	names := make([]string, 0, len(a))
	for name := range a {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// Per-endpoint allow lists.
var (
	// FilterParameters may filter series, overview, session and user lists.
	FilterParameters = NewAllowList(append(keys(columns), keys(sessionColumns)...)...)

	// LiveParameters may filter the live visitor count.
	LiveParameters = NewAllowList("hostname", "pathname", "country", "device_type", "browser", "operating_system", "channel")

	// BreakdownParameters may be grouped by in the metric breakdown.
	BreakdownParameters = NewAllowList(
		"hostname", "pathname", "page_title", "referrer", "channel",
		"country", "region", "city", "language",
		"browser", "browser_version", "operating_system", "operating_system_version",
		"device_type", "dimensions", "event_name",
		"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content",
	)
)
