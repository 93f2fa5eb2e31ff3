// Package query renders SELECT statements over projected tables with
// positional parameters.
package query

import (
	"strings"
)

// ProjectionMap binds view property names to the columns of one aliased
// table. Builders use it to qualify fields and render column lists.
type ProjectionMap struct {
	schema    string
	table     string
	alias     string
	fields    map[string]string
	qualified []string
	bare      []string
}

// NewProjectionMap starts a projection over schema.table with an alias.
func NewProjectionMap(schema, table, alias string) *ProjectionMap {
	return &ProjectionMap{
		schema: schema,
		table:  table,
		alias:  alias,
		fields: make(map[string]string),
	}
}

// Project maps one column to a view property name. Projection order is
// scan order.
func (p *ProjectionMap) Project(column, view string) *ProjectionMap {
	qualified := p.alias + "." + column
	p.fields[view] = qualified
	p.qualified = append(p.qualified, qualified)
	p.bare = append(p.bare, column)
	return p
}

// From renders the aliased table reference.
func (p *ProjectionMap) From() string {
	return p.schema + "." + p.table + " " + p.alias
}

// Column resolves a view property to its qualified column. Unknown names
// pass through unchanged.
func (p *ProjectionMap) Column(view string) string {
	if col, ok := p.fields[view]; ok {
		return col
	}
	return view
}

// Columns renders the qualified column list in projection order.
func (p *ProjectionMap) Columns() string {
	return strings.Join(p.qualified, ", ")
}

// Bare renders the unqualified column list in projection order, for
// RETURNING clauses on write statements.
func (p *ProjectionMap) Bare() string {
	return strings.Join(p.bare, ", ")
}
