package query

import (
	"fmt"
	"reflect"
	"strings"
)

// SortField names one ORDER BY column by its view property name.
// Descending selects DESC; the zero value sorts ascending.
type SortField struct {
	Field      string
	Descending bool
}

// ParseSortFields reads a comma-separated sort expression such as
// "fileName,-firstSeen" into sort fields; a leading '-' marks a field
// descending. Empty input yields nil.
func ParseSortFields(s string) []SortField {
	var fields []SortField
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, desc := strings.CutPrefix(part, "-")
		fields = append(fields, SortField{Field: name, Descending: desc})
	}
	return fields
}

// Builder accumulates WHERE conditions and ordering over one projected
// table, then renders SELECT statements. Parameters are numbered in the
// order conditions were added, so every rendered statement shares the
// same argument slice.
type Builder struct {
	projection *ProjectionMap
	where      []string
	args       []any
	sort       []SortField
	fallback   []SortField
}

// NewBuilder creates a Builder over projection. The optional sort fields
// apply when the caller sets no explicit order.
func NewBuilder(projection *ProjectionMap, defaultSort ...SortField) *Builder {
	return &Builder{
		projection: projection,
		fallback:   defaultSort,
	}
}

// arg records v and returns its positional placeholder.
func (b *Builder) arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

// WhereEquals adds an equality condition, ignoring nil values.
func (b *Builder) WhereEquals(field string, value any) *Builder {
	if isNil(value) {
		return b
	}
	b.where = append(b.where,
		fmt.Sprintf("%s = %s", b.projection.Column(field), b.arg(value)))
	return b
}

// WhereContains adds a case-insensitive substring condition, ignoring nil
// and empty values.
func (b *Builder) WhereContains(field string, value *string) *Builder {
	if value == nil || *value == "" {
		return b
	}
	b.where = append(b.where,
		fmt.Sprintf("%s ILIKE %s", b.projection.Column(field), b.arg("%"+*value+"%")))
	return b
}

// WhereSearch adds one grouped condition matching the search text against
// any of the given fields, ignoring nil and empty search text.
func (b *Builder) WhereSearch(search *string, fields ...string) *Builder {
	if search == nil || *search == "" || len(fields) == 0 {
		return b
	}

	pattern := "%" + *search + "%"
	clauses := make([]string, len(fields))
	for i, field := range fields {
		clauses[i] = fmt.Sprintf("%s ILIKE %s", b.projection.Column(field), b.arg(pattern))
	}
	b.where = append(b.where, "("+strings.Join(clauses, " OR ")+")")
	return b
}

// OrderByFields replaces the sort order, overriding the default.
func (b *Builder) OrderByFields(fields []SortField) *Builder {
	b.sort = fields
	return b
}

// Build renders an unpaginated SELECT with conditions and ordering.
func (b *Builder) Build() (string, []any) {
	return b.selectStmt() + b.whereClause() + b.orderClause(), b.args
}

// BuildCount renders a COUNT(*) over the current conditions.
func (b *Builder) BuildCount() (string, []any) {
	return "SELECT COUNT(*) FROM " + b.projection.From() + b.whereClause(), b.args
}

// BuildPage renders a SELECT for one page of results.
func (b *Builder) BuildPage(page, pageSize int) (string, []any) {
	stmt := fmt.Sprintf("%s%s%s LIMIT %d OFFSET %d",
		b.selectStmt(), b.whereClause(), b.orderClause(), pageSize, (page-1)*pageSize)
	return stmt, b.args
}

// BuildSingle renders a lookup by a unique field, ignoring accumulated
// conditions.
func (b *Builder) BuildSingle(field string, id any) (string, []any) {
	stmt := fmt.Sprintf("%s WHERE %s = $1", b.selectStmt(), b.projection.Column(field))
	return stmt, []any{id}
}

func (b *Builder) selectStmt() string {
	return fmt.Sprintf("SELECT %s FROM %s", b.projection.Columns(), b.projection.From())
}

func (b *Builder) whereClause() string {
	if len(b.where) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.where, " AND ")
}

func (b *Builder) orderClause() string {
	fields := b.sort
	if len(fields) == 0 {
		fields = b.fallback
	}
	if len(fields) == 0 {
		return ""
	}

	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = b.projection.Column(f.Field)
		if f.Descending {
			parts[i] += " DESC"
		} else {
			parts[i] += " ASC"
		}
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return v.IsNil()
	}
	return false
}
