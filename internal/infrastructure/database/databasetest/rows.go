package databasetest

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// rows is an in-memory pgx.Rows.
type rows struct {
	fields []pgconn.FieldDescription
	data   [][]any
	tag    pgconn.CommandTag
	pos    int
	closed bool
}

func newRows(resp Response) *rows {
	fields := make([]pgconn.FieldDescription, len(resp.Columns))
	for i, name := range resp.Columns {
		fields[i] = pgconn.FieldDescription{Name: name}
	}

	tag := resp.Tag
	if tag == "" {
		tag = fmt.Sprintf("SELECT %d", len(resp.Rows))
	}

	return &rows{
		fields: fields,
		data:   resp.Rows,
		tag:    pgconn.NewCommandTag(tag),
	}
}

func (r *rows) Close() {
	r.closed = true
}

func (r *rows) Err() error {
	return nil
}

func (r *rows) CommandTag() pgconn.CommandTag {
	return r.tag
}

func (r *rows) FieldDescriptions() []pgconn.FieldDescription {
	return r.fields
}

func (r *rows) Next() bool {
	if r.closed || r.pos >= len(r.data) {
		r.closed = true
		return false
	}
	r.pos++
	return true
}

func (r *rows) current() ([]any, error) {
	if r.pos == 0 || r.pos > len(r.data) {
		return nil, errors.New("databasetest: no current row")
	}
	return r.data[r.pos-1], nil
}

func (r *rows) Scan(dest ...any) error {
	values, err := r.current()
	if err != nil {
		return err
	}
	if len(dest) == 1 {
		if scanner, ok := dest[0].(pgx.RowScanner); ok {
			return scanner.ScanRow(r)
		}
	}
	if len(dest) != len(values) {
		return fmt.Errorf("databasetest: %d destinations for %d values", len(dest), len(values))
	}
	for i, d := range dest {
		ptr, ok := d.(*any)
		if !ok {
			return fmt.Errorf("databasetest: destination %d must be *any, got %T", i, d)
		}
		*ptr = values[i]
	}
	return nil
}

func (r *rows) Values() ([]any, error) {
	values, err := r.current()
	if err != nil {
		return nil, err
	}
	out := make([]any, len(values))
	copy(out, values)
	return out, nil
}

func (r *rows) RawValues() [][]byte {
	return nil
}

func (r *rows) Conn() *pgx.Conn {
	return nil
}
