package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/nerrad567/pgcore/internal/infrastructure/logging"
)

// ModelOptions controls a single Model operation.
type ModelOptions struct {
	// Tx runs the operation inside a transaction.
	Tx *Transaction

	// ShowQuery logs the statement before execution.
	ShowQuery bool
}

// ForeignKeyOptions configures Model.SetForeignKey.
type ForeignKeyOptions struct {
	// Name overrides the generated constraint name fk_<table>_<column>.
	Name string

	// OnDelete and OnUpdate default to CASCADE.
	OnDelete string
	OnUpdate string
}

// referentialActions are the accepted ON DELETE / ON UPDATE actions.
var referentialActions = map[string]bool{
	"CASCADE":     true,
	"RESTRICT":    true,
	"NO ACTION":   true,
	"SET NULL":    true,
	"SET DEFAULT": true,
}

// defaultAction is used when ForeignKeyOptions leaves an action empty.
const defaultAction = "CASCADE"

// Model is the CRUD surface of one defined table.
//
// Operations never return errors. A failed query or a violated
// precondition is logged and reported as absence: a nil Row, or a nil
// []Row. A successful query that matches nothing returns an empty,
// non-nil []Row.
//
// Thread Safety:
//   - All methods are safe for concurrent use when no transaction is passed.
type Model struct {
	schema    TableSchema
	pool      *Pool
	script    *SchemaScript
	showQuery bool
	logger    *logging.Logger
}

// builder produces the SQL text and bound values for one statement.
type builder func(g *PlaceholderGenerator) (string, []any, error)

// Schema returns the table definition.
func (m *Model) Schema() TableSchema {
	return m.schema
}

// Create inserts one row and returns it as stored (RETURNING *).
// Empty values insert a row of defaults.
func (m *Model) Create(ctx context.Context, values Fields, opts ModelOptions) Row {
	return m.single(ctx, "create", opts, func(g *PlaceholderGenerator) (string, []any, error) {
		if err := m.schema.checkColumns(values); err != nil {
			return "", nil, err
		}
		if len(values) == 0 {
			return fmt.Sprintf("INSERT INTO %s DEFAULT VALUES RETURNING *", m.schema.QualifiedName()), nil, nil
		}
		sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
			m.schema.QualifiedName(),
			quoteIdents(values.Columns()),
			g.Positional(len(values), DefaultDelimiter),
		)
		return sql, g.Values(values), nil
	})
}

// Find returns every row matching all where conditions. A nil or empty
// where selects every row.
func (m *Model) Find(ctx context.Context, where Fields, opts ModelOptions) []Row {
	return m.many(ctx, "find", opts, func(g *PlaceholderGenerator) (string, []any, error) {
		if err := m.schema.checkColumns(where); err != nil {
			return "", nil, err
		}
		sql := "SELECT * FROM " + m.schema.QualifiedName()
		if len(where) > 0 {
			sql += " WHERE " + g.Assign(where, whereDelimiter)
		}
		return sql, g.Values(where), nil
	})
}

// Update sets values on every row matching where and returns the updated
// rows. An empty where is rejected.
func (m *Model) Update(ctx context.Context, values, where Fields, opts ModelOptions) []Row {
	return m.many(ctx, "update", opts, m.updateBuilder(values, where))
}

// Delete removes every row matching where and returns the removed rows.
// An empty where is rejected.
func (m *Model) Delete(ctx context.Context, where Fields, opts ModelOptions) []Row {
	return m.many(ctx, "delete", opts, m.deleteBuilder(where))
}

// FindByPk returns the row whose primary key equals id.
func (m *Model) FindByPk(ctx context.Context, id any, opts ModelOptions) Row {
	return m.single(ctx, "findByPk", opts, func(g *PlaceholderGenerator) (string, []any, error) {
		where, err := m.pkWhere(id)
		if err != nil {
			return "", nil, err
		}
		sql := fmt.Sprintf("SELECT * FROM %s WHERE %s", m.schema.QualifiedName(), g.Assign(where, whereDelimiter))
		return sql, g.Values(where), nil
	})
}

// UpdateByPk sets values on the row whose primary key equals id and
// returns it.
func (m *Model) UpdateByPk(ctx context.Context, id any, values Fields, opts ModelOptions) Row {
	where, err := m.pkWhere(id)
	if err != nil {
		m.absent("updateByPk", err)
		return nil
	}
	return m.single(ctx, "updateByPk", opts, m.updateBuilder(values, where))
}

// DeleteByPk removes the row whose primary key equals id and returns it.
func (m *Model) DeleteByPk(ctx context.Context, id any, opts ModelOptions) Row {
	where, err := m.pkWhere(id)
	if err != nil {
		m.absent("deleteByPk", err)
		return nil
	}
	return m.single(ctx, "deleteByPk", opts, m.deleteBuilder(where))
}

// SetForeignKey declares that column references target's primary key.
// The constraint is dropped and re-added by an altering sync: the drop in
// the dropConstraint bucket, the add in the alter bucket.
func (m *Model) SetForeignKey(target *Model, column string, opts ForeignKeyOptions) error {
	if target == nil {
		return fmt.Errorf("foreign key on %s.%s: target model is nil", m.schema.Table, column)
	}
	if _, ok := m.schema.Column(column); !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownColumn, m.schema.Table, column)
	}
	if target.schema.PrimaryKey == "" {
		return fmt.Errorf("foreign key on %s.%s: %w: %s", m.schema.Table, column, ErrNoPrimaryKey, target.schema.Table)
	}

	name := opts.Name
	if name == "" {
		name = "fk_" + m.schema.Table + "_" + column
	}
	if err := validateIdentifier(name); err != nil {
		return err
	}

	onDelete, err := referentialAction(opts.OnDelete)
	if err != nil {
		return err
	}
	onUpdate, err := referentialAction(opts.OnUpdate)
	if err != nil {
		return err
	}

	table := m.schema.QualifiedName()
	m.script.Append(m.schema.Schema, BucketDropConstraint, fmt.Sprintf(
		"ALTER TABLE IF EXISTS %s DROP CONSTRAINT IF EXISTS %s",
		table, quoteIdent(name),
	))
	m.script.Append(m.schema.Schema, BucketAlter, fmt.Sprintf(
		"ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s) ON DELETE %s ON UPDATE %s",
		table, quoteIdent(name), quoteIdent(column),
		target.schema.QualifiedName(), quoteIdent(target.schema.PrimaryKey),
		onDelete, onUpdate,
	))
	return nil
}

func referentialAction(action string) (string, error) {
	if action == "" {
		return defaultAction, nil
	}
	upper := strings.ToUpper(strings.TrimSpace(action))
	if !referentialActions[upper] {
		return "", fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}
	return upper, nil
}

func (m *Model) updateBuilder(values, where Fields) builder {
	return func(g *PlaceholderGenerator) (string, []any, error) {
		if len(values) == 0 {
			return "", nil, fmt.Errorf("%w: update without values", errAssertion)
		}
		if len(where) == 0 {
			return "", nil, fmt.Errorf("%w: update without conditions", errAssertion)
		}
		if err := m.schema.checkColumns(values); err != nil {
			return "", nil, err
		}
		if err := m.schema.checkColumns(where); err != nil {
			return "", nil, err
		}
		set := g.Assign(values, DefaultDelimiter)
		cond := g.Assign(where, whereDelimiter)
		sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s RETURNING *", m.schema.QualifiedName(), set, cond)
		return sql, g.Values(values, where), nil
	}
}

func (m *Model) deleteBuilder(where Fields) builder {
	return func(g *PlaceholderGenerator) (string, []any, error) {
		if len(where) == 0 {
			return "", nil, fmt.Errorf("%w: delete without conditions", errAssertion)
		}
		if err := m.schema.checkColumns(where); err != nil {
			return "", nil, err
		}
		sql := fmt.Sprintf("DELETE FROM %s WHERE %s RETURNING *", m.schema.QualifiedName(), g.Assign(where, whereDelimiter))
		return sql, g.Values(where), nil
	}
}

// pkWhere builds the primary-key condition.
func (m *Model) pkWhere(id any) (Fields, error) {
	if m.schema.PrimaryKey == "" {
		return nil, fmt.Errorf("%w: %w: %s", errAssertion, ErrNoPrimaryKey, m.schema.Table)
	}
	return Fields{{Column: m.schema.PrimaryKey, Value: id}}, nil
}

// many runs a statement and returns all rows, or nil on failure.
func (m *Model) many(ctx context.Context, op string, opts ModelOptions, build builder) []Row {
	rows, err := m.run(ctx, opts, build)
	if err != nil {
		m.absent(op, err)
		return nil
	}
	if rows == nil {
		rows = []Row{}
	}
	return rows
}

// single runs a statement expected to produce exactly one row.
func (m *Model) single(ctx context.Context, op string, opts ModelOptions, build builder) Row {
	rows, err := m.run(ctx, opts, build)
	if err == nil && len(rows) == 0 {
		err = fmt.Errorf("%w: no row matched", errAssertion)
	}
	if err != nil {
		m.absent(op, err)
		return nil
	}
	return rows[0]
}

// run builds the statement with a fresh generator and executes it.
func (m *Model) run(ctx context.Context, opts ModelOptions, build builder) ([]Row, error) {
	sql, values, err := build(NewPlaceholderGenerator())
	if err != nil {
		return nil, err
	}

	result := m.pool.Query(ctx, sql, QueryOptions{
		Values:    values,
		ShowError: true,
		ShowQuery: m.showQuery || opts.ShowQuery,
		Tx:        opts.Tx,
	})
	if !result.IsSuccess() {
		return nil, fmt.Errorf("%w: %w", errAssertion, result.Failure)
	}
	return result.Rows, nil
}

// absent logs why an operation returned nothing.
func (m *Model) absent(op string, err error) {
	m.logger.Warn("model operation returned nothing", "op", op, "error", err)
}
