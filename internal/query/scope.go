package query

import (
	"fmt"
	"strings"

	"pocketlytics/internal/timeframe"
)

// EventsTable is the columnar table every statement reads from.
const EventsTable = "events"

// EventTypes lists every event type, in the order series columns are emitted.
var EventTypes = []string{
	"pageview",
	"custom_event",
	"error",
	"outbound",
	"button_click",
	"copy",
	"form_submit",
	"input_change",
	"ad_click",
	"ad_impression",
	"performance",
}

// Scope is what every statement is constrained by: exactly one site, a time
// window, and an optional compiled filter predicate. All three are joined
// with AND.
type Scope struct {
	SiteID  int64
	Window  timeframe.Window
	Filters Predicate
}

// Base is the site and time constraint without filters.
func (s Scope) Base(column string) Predicate {
	return And(SiteScope{SiteID: s.SiteID}, TimeRange{Window: s.Window, Column: column})
}

// Filtered is Base plus the filter predicate.
func (s Scope) Filtered(column string) Predicate {
	return And(s.Base(column), s.Filters)
}

// Page is a LIMIT/OFFSET pair.
type Page struct {
	Limit  int
	Offset int
}

func (pg Page) render(p *Params) string {
	return "LIMIT " + p.Int("limit", int64(pg.Limit)) + " OFFSET " + p.Int("offset", int64(pg.Offset))
}

func zone(p *Params, w timeframe.Window) string {
	return p.Named("tz", "String", w.ZoneName())
}

// bucketExpr truncates column to b on the wall clock of the window zone and
// keeps the result as a DateTime in that zone.
func bucketExpr(p *Params, w timeframe.Window, b timeframe.Bucket, column string) string {
	tz := zone(p, w)
	return fmt.Sprintf("toDateTime(%s(toTimeZone(%s, %s)), %s)", b.Function(), column, tz, tz)
}

// bucketStart projects the Unix start of the time alias. Wall-clock bucket
// labels repeat during a DST fall-back; the start never does.
func bucketStart(expr string) string {
	return "toUnixTimestamp(" + expr + ") AS " + ColumnBucketStart
}

// orderByTime orders by the bucket alias and gap-fills bounded windows. The
// fill range is computed in Go so it matches timeframe.Series exactly, and is
// bound as instants so an ambiguous wall clock never moves it.
func orderByTime(p *Params, w timeframe.Window, b timeframe.Bucket) string {
	from, to, ok := w.FillRange(b)
	if !ok {
		return "ORDER BY time"
	}
	tz := zone(p, w)
	fillFrom := p.Int("fill_from", from.Unix())
	fillTo := p.Int("fill_to", to.Unix())
	return fmt.Sprintf("ORDER BY time WITH FILL FROM toDateTime(%s, %s) TO toDateTime(%s, %s) STEP INTERVAL %s",
		fillFrom, tz, fillTo, tz, b.Interval())
}

func countIfType(eventType string) string {
	return "countIf(type = '" + eventType + "')"
}

func lines(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			out = append(out, part)
		}
	}
	return strings.Join(out, "\n")
}
