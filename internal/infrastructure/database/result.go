package database

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// CodeInternal is the SQLSTATE reported when a failure did not come from
// the server (connection refused, context cancelled, decode errors).
const CodeInternal = "XX000"

// Row is one result row keyed by column name.
type Row map[string]any

// Failure describes a query that did not succeed. It is data, not a panic:
// Pool.Query hands it back inside a Result.
type Failure struct {
	// Code is the PostgreSQL SQLSTATE, or CodeInternal.
	Code string

	// Message is the driver or server message.
	Message string

	// Query is the SQL text that failed.
	Query string

	// Values are the bound parameters that were sent with Query.
	Values []any

	err error
}

// Error implements error so a Failure can be returned up a call chain.
func (f *Failure) Error() string {
	return fmt.Sprintf("database: %s (SQLSTATE %s)", f.Message, f.Code)
}

// Unwrap returns the underlying driver or package error.
func (f *Failure) Unwrap() error {
	return f.err
}

// Result is the outcome of Pool.Query. Exactly one of the two shapes is
// populated: on success Rows and RowCount, on failure Failure.
type Result struct {
	Rows     []Row
	RowCount int64
	Failure  *Failure
}

// IsSuccess reports whether the query succeeded.
func (r Result) IsSuccess() bool {
	return r.Failure == nil
}

// Err returns the failure as an error, or nil on success.
func (r Result) Err() error {
	if r.Failure == nil {
		return nil
	}
	return r.Failure
}

// IsSuccess reports whether result is a success. Check it before touching
// Rows or RowCount.
func IsSuccess(result Result) bool {
	return result.IsSuccess()
}

// newFailure converts a driver error into a Failure.
func newFailure(err error, query string, values []any) *Failure {
	f := &Failure{
		Code:    CodeInternal,
		Message: err.Error(),
		Query:   query,
		Values:  values,
		err:     err,
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		f.Code = pgErr.Code
		f.Message = pgErr.Message
	}
	return f
}
