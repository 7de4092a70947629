// Package filters decodes request filter clauses and compiles them into
// predicates over allow-listed columns.
package filters

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/goccy/go-json"

	"pocketlytics/internal/query"
)

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrInvalidOperator  = errors.New("invalid filter operator")
	ErrInvalidValue     = errors.New("invalid filter value")
	ErrMalformed        = errors.New("malformed filters")
)

// Operator is a filter comparison.
type Operator string

const (
	Equals      Operator = "equals"
	NotEquals   Operator = "not_equals"
	Contains    Operator = "contains"
	NotContains Operator = "not_contains"
	Regex       Operator = "regex"
	NotRegex    Operator = "not_regex"
)

type operatorSpec struct {
	op      query.CompareOp
	negated bool
}

var operators = map[Operator]operatorSpec{
	Equals:      {op: query.OpEquals},
	NotEquals:   {op: query.OpEquals, negated: true},
	Contains:    {op: query.OpContains},
	NotContains: {op: query.OpContains, negated: true},
	Regex:       {op: query.OpMatches},
	NotRegex:    {op: query.OpMatches, negated: true},
}

// Clause is one filter as sent by callers.
type Clause struct {
	Parameter string   `json:"parameter"`
	Type      Operator `json:"type"`
	Value     []string `json:"value"`
}

// Parse decodes the JSON filters parameter. An empty string is no filters.
func Parse(raw string) ([]Clause, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var clauses []Clause
	if err := json.Unmarshal([]byte(raw), &clauses); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return clauses, nil
}

// Compile turns clauses into one predicate: values of a clause are OR'ed, a
// negated clause is NOT of that OR, and clauses are AND'ed. Every parameter
// must be in allowed. scope constrains the subqueries of session-level
// parameters and must hold the same site and time constraint as the
// statement the predicate ends up in. No clauses compile to nil.
func Compile(clauses []Clause, allowed AllowList, scope query.Predicate) (query.Predicate, error) {
	if len(clauses) == 0 {
		return nil, nil
	}

	preds := make([]query.Predicate, 0, len(clauses))
	for _, clause := range clauses {
		pred, err := compileClause(clause, allowed, scope)
		if err != nil {
			return nil, err
		}
		preds = append(preds, pred)
	}
	return query.And(preds...), nil
}

func compileClause(clause Clause, allowed AllowList, scope query.Predicate) (query.Predicate, error) {
	if !allowed.Has(clause.Parameter) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidParameter, clause.Parameter)
	}
	spec, ok := operators[clause.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidOperator, clause.Type)
	}
	if len(clause.Value) == 0 {
		return nil, fmt.Errorf("%w: %s needs at least one value", ErrInvalidValue, clause.Parameter)
	}
	if spec.op == query.OpMatches {
		for _, v := range clause.Value {
			if _, err := regexp.Compile(v); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrInvalidValue, clause.Parameter, err)
			}
		}
	}

	if expr, ok := sessionColumns[clause.Parameter]; ok {
		return sessionClause(expr, spec, clause.Value, scope), nil
	}

	pred := anyOf(columns[clause.Parameter], spec.op, clause.Value)
	if spec.negated {
		return query.Not(pred), nil
	}
	return pred, nil
}

func anyOf(column string, op query.CompareOp, values []string) query.Predicate {
	alternatives := make([]query.Predicate, len(values))
	for i, v := range values {
		alternatives[i] = query.Compare{Column: column, Op: op, Value: v}
	}
	return query.Or(alternatives...)
}

// sessionClause keeps events of sessions whose first or last pageview matches.
func sessionClause(expr string, spec operatorSpec, values []string, scope query.Predicate) query.Predicate {
	having := anyOf(expr, spec.op, values)
	if spec.negated {
		having = query.Not(having)
	}
	return query.InSubquery{
		Column: "session_id",
		Subquery: func(p *query.Params) string {
			return "SELECT session_id FROM " + query.EventsTable + " " +
				query.Where(p, scope, query.Trusted("type = 'pageview'")) +
				" GROUP BY session_id HAVING " + having.Render(p)
		},
	}
}

// Column returns the column expression for a breakdown parameter.
func Column(parameter string, allowed AllowList) (string, error) {
	if !allowed.Has(parameter) {
		return "", fmt.Errorf("%w: %q", ErrInvalidParameter, parameter)
	}
	expr, ok := columns[parameter]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidParameter, parameter)
	}
	return expr, nil
}
