// Package query builds parameterized statements for the columnar event store.
//
// Values never appear in statement text. Every value is bound through Params
// and rendered as a typed placeholder ({name:Type}); identifiers come only
// from frozen tables in this package and in package filters.
package query

import (
	"fmt"
	"sort"
	"strconv"
)

// Params collects bound parameter values for one statement.
type Params struct {
	values map[string]string
	types  map[string]string
	next   int
}

func NewParams() *Params {
	return &Params{
		values: make(map[string]string),
		types:  make(map[string]string),
	}
}

// Bind stores value under a fresh name and returns its placeholder.
func (p *Params) Bind(typ, value string) string {
	name := fmt.Sprintf("p%d", p.next)
	p.next++
	p.values[name] = value
	p.types[name] = typ
	return placeholder(name, typ)
}

// Named stores value under name and returns its placeholder. Binding the same
// name twice is allowed only with the same type and value.
func (p *Params) Named(name, typ, value string) string {
	if prev, ok := p.values[name]; ok && (prev != value || p.types[name] != typ) {
		panic(fmt.Sprintf("query: parameter %q bound twice with different values", name))
	}
	p.values[name] = value
	p.types[name] = typ
	return placeholder(name, typ)
}

// String binds a String value.
func (p *Params) String(value string) string {
	return p.Bind("String", value)
}

// Int binds an Int64 value under name.
func (p *Params) Int(name string, value int64) string {
	return p.Named(name, "Int64", strconv.FormatInt(value, 10))
}

// Values returns a copy of the bound values keyed by parameter name.
func (p *Params) Values() map[string]string {
	out := make(map[string]string, len(p.values))
	for k, v := range p.values {
		out[k] = v
	}
	return out
}

// Names returns bound parameter names in sorted order.
func (p *Params) Names() []string {
	names := make([]string, 0, len(p.values))
	for k := range p.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func placeholder(name, typ string) string {
	return "{" + name + ":" + typ + "}"
}
