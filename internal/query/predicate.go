package query

import (
	"strconv"
	"strings"
	"time"

	"pocketlytics/internal/timeframe"
)

// Predicate is a node of a WHERE or HAVING expression. Render returns an
// empty string for a node that constrains nothing.
type Predicate interface {
	Render(p *Params) string
}

// SiteScope restricts rows to one site.
type SiteScope struct {
	SiteID int64
}

func (s SiteScope) Render(p *Params) string {
	return "site_id = " + p.Named("site_id", "UInt32", strconv.FormatInt(s.SiteID, 10))
}

// TimeRange restricts a timestamp column to a window. Calendar windows are
// rendered as [lower, upper) and rolling windows as (lower, upper].
type TimeRange struct {
	Window timeframe.Window
	Column string
}

func (t TimeRange) Render(p *Params) string {
	if !t.Window.Bounded() {
		return ""
	}
	column := t.Column
	if column == "" {
		column = "timestamp"
	}

	lower := instant(p, "time_lower", t.Window.Lower)
	upper := instant(p, "time_upper", t.Window.Upper)

	if t.Window.Kind == timeframe.Rolling {
		return column + " > " + lower + " AND " + column + " <= " + upper
	}
	return column + " >= " + lower + " AND " + column + " < " + upper
}

// Trusted is SQL text taken from a frozen table, never from a request.
type Trusted string

func (t Trusted) Render(*Params) string {
	return string(t)
}

// CompareOp is a positive comparison between a column and one bound value.
type CompareOp int

const (
	OpEquals CompareOp = iota
	OpContains
	OpMatches
)

// Compare compares a trusted column expression with a bound String value.
type Compare struct {
	Column string
	Op     CompareOp
	Value  string
}

func (c Compare) Render(p *Params) string {
	value := p.String(c.Value)
	switch c.Op {
	case OpContains:
		return "positionCaseInsensitiveUTF8(" + c.Column + ", " + value + ") > 0"
	case OpMatches:
		return "match(" + c.Column + ", " + value + ")"
	default:
		return c.Column + " = " + value
	}
}

type and []Predicate

// And joins the non-empty renderings of preds with AND.
func And(preds ...Predicate) Predicate {
	return and(preds)
}

func (a and) Render(p *Params) string {
	parts := renderAll(p, a)
	if len(parts) == 1 {
		return parts[0]
	}
	return strings.Join(wrapAll(parts), " AND ")
}

type or []Predicate

// Or joins the non-empty renderings of preds with OR inside parentheses.
func Or(preds ...Predicate) Predicate {
	return or(preds)
}

func (o or) Render(p *Params) string {
	parts := renderAll(p, o)
	if len(parts) == 0 {
		return ""
	}
	return "(" + strings.Join(wrapAll(parts), " OR ") + ")"
}

type not struct {
	inner Predicate
}

// Not negates pred. The negation of an empty predicate is empty.
func Not(pred Predicate) Predicate {
	return not{inner: pred}
}

func (n not) Render(p *Params) string {
	inner := n.inner.Render(p)
	if inner == "" {
		return ""
	}
	return "NOT (" + inner + ")"
}

// InSubquery keeps rows whose column appears in the subquery result.
type InSubquery struct {
	Column   string
	Subquery func(p *Params) string
}

func (s InSubquery) Render(p *Params) string {
	return s.Column + " IN (" + s.Subquery(p) + ")"
}

// Empty reports whether pred constrains nothing.
func Empty(pred Predicate) bool {
	return pred == nil || pred.Render(NewParams()) == ""
}

// Where renders preds as a WHERE clause, or nothing when all are empty.
func Where(p *Params, preds ...Predicate) string {
	rendered := And(preds...).Render(p)
	if rendered == "" {
		return ""
	}
	return "WHERE " + rendered
}

func renderAll(p *Params, preds []Predicate) []string {
	parts := make([]string, 0, len(preds))
	for _, pred := range preds {
		if pred == nil {
			continue
		}
		if r := pred.Render(p); r != "" {
			parts = append(parts, r)
		}
	}
	return parts
}

// wrapAll parenthesizes parts that combine terms, unless a single pair of
// parentheses already encloses the whole part.
func wrapAll(parts []string) []string {
	if len(parts) < 2 {
		return parts
	}
	out := make([]string, len(parts))
	for i, part := range parts {
		compound := strings.Contains(part, " AND ") || strings.Contains(part, " OR ")
		if !compound || (strings.HasPrefix(part, "(") && balanced(part)) {
			out[i] = part
			continue
		}
		out[i] = "(" + part + ")"
	}
	return out
}

// balanced reports whether the outer parentheses of s enclose all of it.
func balanced(s string) bool {
	depth := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 && i != len(s)-1 {
				return false
			}
		}
	}
	return depth == 0
}

func instant(p *Params, name string, t time.Time) string {
	return "toDateTime64(" + p.Named(name, "String", timeframe.FormatInstant(t)) + ", 3, 'UTC')"
}
