package query

import "strconv"

// Statement is a compiled query ready for the store.
type Statement struct {
	Name     string
	SiteID   int64
	SQL      string
	Params   map[string]string
	Settings map[string]string
}

func newStatement(name string, siteID int64, sql string, params *Params) Statement {
	return Statement{
		Name:     name,
		SiteID:   siteID,
		SQL:      sql,
		Params:   params.Values(),
		Settings: map[string]string{},
	}
}

// WithSetting returns a copy of s carrying one more server setting.
func (s Statement) WithSetting(key, value string) Statement {
	settings := make(map[string]string, len(s.Settings)+1)
	for k, v := range s.Settings {
		settings[k] = v
	}
	settings[key] = value
	s.Settings = settings
	return s
}

// LogComment tags the statement in the store's query log.
func (s Statement) LogComment() string {
	return "site:" + strconv.FormatInt(s.SiteID, 10) + ":" + s.Name
}
