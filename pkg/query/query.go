// Package query builds parameterized SELECT statements over a projected table.
// Field names are resolved through the projection so caller input never
// reaches the SQL text.
package query

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ErrUnknownField indicates a filter or sort field the projection does not expose.
var ErrUnknownField = errors.New("unknown field")

// Projection maps exposed field names to table columns.
type Projection struct {
	table   string
	columns map[string]string
	list    []string
}

// NewProjection creates an empty projection over table.
func NewProjection(table string) *Projection {
	return &Projection{
		table:   table,
		columns: make(map[string]string),
	}
}

// Project exposes column under name.
func (p *Projection) Project(column, name string) *Projection {
	p.columns[name] = column
	p.list = append(p.list, column)
	return p
}

// Column returns the column exposed as name.
func (p *Projection) Column(name string) (string, bool) {
	col, ok := p.columns[name]
	return col, ok
}

// Columns returns every projected column in declaration order.
func (p *Projection) Columns() string {
	return strings.Join(p.list, ", ")
}

// SortField is one ORDER BY term.
type SortField struct {
	Field      string
	Descending bool
}

// ParseSort reads a comma-separated sort string. A "-" prefix sorts
// descending: "-started_at,classifier_set".
func ParseSort(s string) []SortField {
	var fields []SortField
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if after, ok := strings.CutPrefix(part, "-"); ok {
			fields = append(fields, SortField{Field: after, Descending: true})
			continue
		}
		fields = append(fields, SortField{Field: part})
	}
	return fields
}

type condition struct {
	column string
	value  any
}

// Builder accumulates equality conditions and ordering for one projection.
// Resolution errors are deferred to the Build methods.
type Builder struct {
	projection *Projection
	conditions []condition
	order      []SortField
	err        error
}

// NewBuilder creates a Builder that orders by defaultSort unless OrderBy
// supplies fields.
func NewBuilder(p *Projection, defaultSort ...SortField) *Builder {
	return &Builder{projection: p, order: defaultSort}
}

// WhereEquals adds field = value. Zero values are ignored.
func (b *Builder) WhereEquals(field string, value any) *Builder {
	if value == nil || reflect.ValueOf(value).IsZero() {
		return b
	}
	col, ok := b.resolve(field)
	if ok {
		b.conditions = append(b.conditions, condition{column: col, value: value})
	}
	return b
}

// OrderBy replaces the default ordering when fields is non-empty.
func (b *Builder) OrderBy(fields []SortField) *Builder {
	if len(fields) == 0 {
		return b
	}
	for _, f := range fields {
		b.resolve(f.Field)
	}
	b.order = fields
	return b
}

// BuildCount returns a COUNT(*) statement with the current conditions.
func (b *Builder) BuildCount() (string, []any, error) {
	if b.err != nil {
		return "", nil, b.err
	}
	where, args := b.where()
	return fmt.Sprintf("SELECT COUNT(*) FROM %s%s", b.projection.table, where), args, nil
}

// BuildPage returns a SELECT statement with ordering and parameterized
// LIMIT and OFFSET.
func (b *Builder) BuildPage(limit, offset int) (string, []any, error) {
	if b.err != nil {
		return "", nil, b.err
	}
	where, args := b.where()
	args = append(args, limit, offset)

	sql := fmt.Sprintf("SELECT %s FROM %s%s%s LIMIT $%d OFFSET $%d",
		b.projection.Columns(),
		b.projection.table,
		where,
		b.orderBy(),
		len(args)-1,
		len(args),
	)
	return sql, args, nil
}

func (b *Builder) resolve(field string) (string, bool) {
	col, ok := b.projection.Column(field)
	if !ok && b.err == nil {
		b.err = fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	return col, ok
}

func (b *Builder) where() (string, []any) {
	if len(b.conditions) == 0 {
		return "", nil
	}

	clauses := make([]string, len(b.conditions))
	args := make([]any, len(b.conditions))
	for i, c := range b.conditions {
		clauses[i] = fmt.Sprintf("%s = $%d", c.column, i+1)
		args[i] = c.value
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (b *Builder) orderBy() string {
	if len(b.order) == 0 {
		return ""
	}

	parts := make([]string, len(b.order))
	for i, f := range b.order {
		col, _ := b.projection.Column(f.Field)
		dir := "ASC"
		if f.Descending {
			dir = "DESC"
		}
		parts[i] = col + " " + dir
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}
