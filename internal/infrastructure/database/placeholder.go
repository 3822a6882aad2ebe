package database

import (
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
)

// DefaultDelimiter separates generated placeholders and assignments.
const DefaultDelimiter = ", "

// whereDelimiter joins WHERE conditions.
const whereDelimiter = " AND "

// Field is one column/value pair.
type Field struct {
	Column string
	Value  any
}

// Fields is an ordered list of column/value pairs. Order matters: it is the
// order placeholders are numbered in and the order Values flattens them in.
// A nil Fields stands for "no argument" and contributes nothing to Values.
type Fields []Field

// Set appends a column/value pair and returns the extended list.
//
//	fields := database.Fields{}.Set("name", "ada").Set("age", 36)
func (f Fields) Set(column string, value any) Fields {
	return append(f, Field{Column: column, Value: value})
}

// Columns returns the column names in order.
func (f Fields) Columns() []string {
	cols := make([]string, len(f))
	for i, field := range f {
		cols[i] = field.Column
	}
	return cols
}

// PlaceholderGenerator numbers PostgreSQL positional parameters ($1, $2, …)
// for a single statement.
//
// Use one generator per statement and never share it: the counter only
// grows, and a reused generator would number the next statement from where
// the previous one stopped.
//
// Positional and Assign must not be mixed on one generator. Positional does
// not advance the counter, so a following Assign would reuse its indices.
type PlaceholderGenerator struct {
	counter int
}

// NewPlaceholderGenerator returns a generator whose first placeholder is $1.
func NewPlaceholderGenerator() *PlaceholderGenerator {
	return &PlaceholderGenerator{}
}

// Counter returns the index of the last placeholder consumed by Assign.
func (g *PlaceholderGenerator) Counter() int {
	return g.counter
}

// Positional emits count placeholders starting after the counter, joined
// by delimiter. The counter is not advanced; this is meant for a single
// VALUES list.
//
//	g.Positional(3, ", ") // "$1, $2, $3"
func (g *PlaceholderGenerator) Positional(count int, delimiter string) string {
	if count <= 0 {
		return ""
	}

	parts := make([]string, count)
	for i := range parts {
		parts[i] = "$" + strconv.Itoa(g.counter+i+1)
	}
	return strings.Join(parts, delimiter)
}

// Assign emits "column"=$k for each field, advancing the counter by one
// per field. Column names are quoted.
//
//	g.Assign(fields, ", ")    // SET "a"=$1, "b"=$2
//	g.Assign(where, " AND ")  // WHERE "id"=$3
func (g *PlaceholderGenerator) Assign(fields Fields, delimiter string) string {
	parts := make([]string, len(fields))
	for i, field := range fields {
		g.counter++
		parts[i] = quoteIdent(field.Column) + "=$" + strconv.Itoa(g.counter)
	}
	return strings.Join(parts, delimiter)
}

// Values flattens the values of entries in order, skipping nil entries.
// Pass entries in the same order their placeholders were generated so the
// result lines up with $1, $2, ….
func (g *PlaceholderGenerator) Values(entries ...Fields) []any {
	values := []any{}
	for _, entry := range entries {
		if entry == nil {
			continue
		}
		for _, field := range entry {
			values = append(values, field.Value)
		}
	}
	return values
}

// quoteIdent quotes a single identifier.
func quoteIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// quoteIdents quotes and joins identifiers with DefaultDelimiter.
func quoteIdents(names []string) string {
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = quoteIdent(name)
	}
	return strings.Join(quoted, DefaultDelimiter)
}

// qualify quotes a schema-qualified table name.
func qualify(schema, table string) string {
	return pgx.Identifier{schema, table}.Sanitize()
}
