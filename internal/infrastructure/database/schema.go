package database

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultSchema is used when a table is defined without a schema name.
const DefaultSchema = "public"

// identifierPattern restricts defined names to plain SQL identifiers.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// Column defines one table column.
type Column struct {
	Name string
	Type DataType

	// AllowNull drops the NOT NULL constraint.
	AllowNull bool

	// Default is the column default: a string, number, bool or Expr.
	// Nil means no DEFAULT clause.
	Default any

	PrimaryKey bool
	Unique     bool
}

// TableSchema is the definition of one table. It is built once by
// DB.Define and never changes afterwards.
type TableSchema struct {
	Schema     string
	Table      string
	PrimaryKey string // empty when the table has no primary key
	Columns    []Column
}

// newTableSchema validates a table definition.
func newTableSchema(schema, table string, columns []Column) (TableSchema, error) {
	if schema == "" {
		schema = DefaultSchema
	}
	if err := validateIdentifier(schema); err != nil {
		return TableSchema{}, err
	}
	if err := validateIdentifier(table); err != nil {
		return TableSchema{}, err
	}
	if len(columns) == 0 {
		return TableSchema{}, fmt.Errorf("%w: %s", ErrNoColumns, table)
	}

	ts := TableSchema{
		Schema:  schema,
		Table:   table,
		Columns: make([]Column, len(columns)),
	}

	seen := make(map[string]bool, len(columns))
	for i, col := range columns {
		if err := validateIdentifier(col.Name); err != nil {
			return TableSchema{}, err
		}
		if seen[col.Name] {
			return TableSchema{}, fmt.Errorf("%w: %s.%s", ErrDuplicateColumn, table, col.Name)
		}
		seen[col.Name] = true

		if col.Type.IsZero() {
			return TableSchema{}, fmt.Errorf("%w: %s.%s", ErrInvalidType, table, col.Name)
		}
		if col.Default != nil {
			if _, err := defaultLiteral(col.Default); err != nil {
				return TableSchema{}, fmt.Errorf("column %s.%s: %w", table, col.Name, err)
			}
		}
		if col.PrimaryKey {
			if ts.PrimaryKey != "" {
				return TableSchema{}, fmt.Errorf("%w: %s (%s, %s)", ErrMultiplePrimaryKeys, table, ts.PrimaryKey, col.Name)
			}
			ts.PrimaryKey = col.Name
		}
		ts.Columns[i] = col
	}

	return ts, nil
}

func validateIdentifier(name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}
	return nil
}

// QualifiedName returns the quoted "schema"."table" name.
func (s TableSchema) QualifiedName() string {
	return qualify(s.Schema, s.Table)
}

// Column looks up a column by name.
func (s TableSchema) Column(name string) (Column, bool) {
	for _, col := range s.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return Column{}, false
}

// ColumnNames returns the column names in definition order.
func (s TableSchema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		names[i] = col.Name
	}
	return names
}

// checkColumns verifies every field names a defined column.
func (s TableSchema) checkColumns(fields Fields) error {
	for _, field := range fields {
		if _, ok := s.Column(field.Column); !ok {
			return fmt.Errorf("%w: %s.%s", ErrUnknownColumn, s.Table, field.Column)
		}
	}
	return nil
}

// createStatement builds CREATE TABLE IF NOT EXISTS.
func (s TableSchema) createStatement() string {
	defs := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		defs[i] = columnDefinition(col)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", s.QualifiedName(), strings.Join(defs, DefaultDelimiter))
}

// dropStatement builds DROP TABLE IF EXISTS.
func (s TableSchema) dropStatement() string {
	return "DROP TABLE IF EXISTS " + s.QualifiedName()
}

// probeStatement builds the SELECT used to verify the table exists with
// the expected columns.
func (s TableSchema) probeStatement() string {
	return fmt.Sprintf("SELECT %s FROM %s", quoteIdents(s.ColumnNames()), s.QualifiedName())
}

// columnDefinition renders one column. Defaults were validated by
// newTableSchema, so defaultLiteral cannot fail here.
func columnDefinition(col Column) string {
	var b strings.Builder
	b.WriteString(quoteIdent(col.Name))
	b.WriteString(" ")
	b.WriteString(col.Type.String())

	if !col.AllowNull {
		b.WriteString(" NOT NULL")
	}
	if col.Default != nil {
		lit, _ := defaultLiteral(col.Default) //nolint:errcheck // validated at define time
		b.WriteString(" DEFAULT ")
		b.WriteString(lit)
	}

	switch {
	case col.PrimaryKey:
		b.WriteString(" PRIMARY KEY")
	case col.Unique:
		b.WriteString(" UNIQUE")
	}
	return b.String()
}
