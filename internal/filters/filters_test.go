package filters_test

import (
	"testing"

	"pocketlytics/internal/filters"
	"pocketlytics/internal/query"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var siteOnly = query.SiteScope{SiteID: 5}

func TestParse(t *testing.T) {
	clauses, err := filters.Parse(`[{"parameter":"country","type":"equals","value":["US","DE"]}]`)
	require.NoError(t, err)
	require.Len(t, clauses, 1)
	assert.Equal(t, "country", clauses[0].Parameter)
	assert.Equal(t, filters.Equals, clauses[0].Type)
	assert.Equal(t, []string{"US", "DE"}, clauses[0].Value)

	clauses, err = filters.Parse("  ")
	require.NoError(t, err)
	assert.Nil(t, clauses)

	_, err = filters.Parse(`{"parameter":`)
	assert.ErrorIs(t, err, filters.ErrMalformed)
}

func TestCompileEmptyIsNil(t *testing.T) {
	pred, err := filters.Compile(nil, filters.FilterParameters, siteOnly)
	require.NoError(t, err)
	assert.Nil(t, pred)
	assert.True(t, query.Empty(pred))
}

func TestCompileMultiValueOr(t *testing.T) {
	pred, err := filters.Compile([]filters.Clause{
		{Parameter: "country", Type: filters.Equals, Value: []string{"US", "DE"}},
		{Parameter: "pathname", Type: filters.NotContains, Value: []string{"/admin"}},
	}, filters.FilterParameters, siteOnly)
	require.NoError(t, err)

	p := query.NewParams()
	assert.Equal(t,
		"(country = {p0:String} OR country = {p1:String}) AND NOT ((positionCaseInsensitiveUTF8(pathname, {p2:String}) > 0))",
		pred.Render(p))
	assert.Equal(t, map[string]string{"p0": "US", "p1": "DE", "p2": "/admin"}, p.Values())
}

func TestCompileColumnExpressions(t *testing.T) {
	testCases := []struct {
		parameter string
		expected  string
	}{
		{"utm_source", "url_parameters['utm_source'] = {p0:String}"},
		{"browser_version", "concat(browser, ' ', browser_version) = {p0:String}"},
		{"dimensions", "concat(toString(screen_width), 'x', toString(screen_height)) = {p0:String}"},
	}
	for _, tc := range testCases {
		t.Run(tc.parameter, func(t *testing.T) {
			pred, err := filters.Compile([]filters.Clause{
				{Parameter: tc.parameter, Type: filters.Equals, Value: []string{"v"}},
			}, filters.FilterParameters, siteOnly)
			require.NoError(t, err)
			assert.Equal(t, "("+tc.expected+")", pred.Render(query.NewParams()))
		})
	}
}

func TestCompileRejectsUnknownParameter(t *testing.T) {
	allowed := filters.NewAllowList("country", "pathname")

	_, err := filters.Compile([]filters.Clause{
		{Parameter: "foo", Type: filters.Equals, Value: []string{"x"}},
	}, allowed, siteOnly)
	assert.ErrorIs(t, err, filters.ErrInvalidParameter)

	_, err = filters.Compile([]filters.Clause{
		{Parameter: "browser", Type: filters.Equals, Value: []string{"Firefox"}},
	}, allowed, siteOnly)
	assert.ErrorIs(t, err, filters.ErrInvalidParameter, "known column outside the allow list")

	_, err = filters.Compile([]filters.Clause{
		{Parameter: "country) OR (1=1", Type: filters.Equals, Value: []string{"x"}},
	}, filters.FilterParameters, siteOnly)
	assert.ErrorIs(t, err, filters.ErrInvalidParameter)
}

func TestCompileRejectsBadClauses(t *testing.T) {
	_, err := filters.Compile([]filters.Clause{
		{Parameter: "country", Type: "like", Value: []string{"x"}},
	}, filters.FilterParameters, siteOnly)
	assert.ErrorIs(t, err, filters.ErrInvalidOperator)

	_, err = filters.Compile([]filters.Clause{
		{Parameter: "country", Type: filters.Equals},
	}, filters.FilterParameters, siteOnly)
	assert.ErrorIs(t, err, filters.ErrInvalidValue)

	_, err = filters.Compile([]filters.Clause{
		{Parameter: "pathname", Type: filters.Regex, Value: []string{"(unclosed"}},
	}, filters.FilterParameters, siteOnly)
	assert.ErrorIs(t, err, filters.ErrInvalidValue)
}

func TestCompileEntryPageSubquery(t *testing.T) {
	pred, err := filters.Compile([]filters.Clause{
		{Parameter: "entry_page", Type: filters.NotEquals, Value: []string{"/"}},
	}, filters.FilterParameters, siteOnly)
	require.NoError(t, err)

	p := query.NewParams()
	assert.Equal(t,
		"session_id IN (SELECT session_id FROM events WHERE site_id = {site_id:UInt32} AND type = 'pageview' "+
			"GROUP BY session_id HAVING NOT ((argMin(pathname, timestamp) = {p0:String})))",
		pred.Render(p))
	assert.Equal(t, "5", p.Values()["site_id"])
	assert.Equal(t, "/", p.Values()["p0"])
}

func TestColumn(t *testing.T) {
	expr, err := filters.Column("operating_system_version", filters.BreakdownParameters)
	require.NoError(t, err)
	assert.Equal(t, "concat(operating_system, ' ', operating_system_version)", expr)

	_, err = filters.Column("user_id", filters.BreakdownParameters)
	assert.ErrorIs(t, err, filters.ErrInvalidParameter)

	_, err = filters.Column("entry_page", filters.FilterParameters)
	assert.ErrorIs(t, err, filters.ErrInvalidParameter)
}

func TestAllowLists(t *testing.T) {
	assert.True(t, filters.FilterParameters.Has("entry_page"))
	assert.True(t, filters.FilterParameters.Has("utm_campaign"))
	assert.False(t, filters.LiveParameters.Has("entry_page"))
	assert.Equal(t, []string{"country", "pathname"}, filters.NewAllowList("pathname", "country", "nope").Names())
}
