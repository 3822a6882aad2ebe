package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/nerrad567/pgcore/internal/infrastructure/logging"
)

// QueryOptions controls a single Pool.Query call.
type QueryOptions struct {
	// Values are the positional parameters for $1, $2, ….
	Values []any

	// ShowError logs failures at error level.
	ShowError bool

	// ShowQuery logs the statement and its values before execution.
	ShowQuery bool

	// Tx routes the query through a transaction. An unbound transaction is
	// begun on a freshly acquired connection first.
	Tx *Transaction

	// SimpleProtocol sends the statement over the simple query protocol,
	// which allows several ;-separated statements in one call.
	SimpleProtocol bool
}

// DefaultQueryOptions logs failures and nothing else.
func DefaultQueryOptions() QueryOptions {
	return QueryOptions{ShowError: true}
}

// Pool is the query gateway. It never returns Go errors from Query:
// every outcome is a Result.
//
// Thread Safety:
//   - Query is safe for concurrent use when no Transaction is supplied;
//     each call borrows its own pooled connection.
//   - Queries sharing one Transaction must be sequenced by the caller.
type Pool struct {
	provider Provider
	logger   *logging.Logger
}

// NewPool creates a Pool over provider. A nil logger falls back to
// logging.Default.
func NewPool(provider Provider, logger *logging.Logger) *Pool {
	if logger == nil {
		logger = logging.Default()
	}
	return &Pool{
		provider: provider,
		logger:   logger,
	}
}

// Query executes sql and returns its rows or a Failure.
//
// With opts.Tx set, the query runs on the transaction's connection; an
// unbound transaction first acquires one and begins. When the query fails
// on a transaction created with RollbackOnError, the transaction is rolled
// back before the Failure is returned and stays aborted: later queries
// through it fail with ErrTxAborted without touching the database.
func (p *Pool) Query(ctx context.Context, sql string, opts QueryOptions) Result {
	if opts.ShowQuery {
		p.logger.Info("executing query", "query", sql, "values", opts.Values)
	}

	var q Querier = p.provider
	if tx := opts.Tx; tx != nil {
		if tx.Aborted() {
			return p.fail(ctx, ErrTxAborted, sql, opts)
		}
		if !tx.Bound() {
			if err := p.begin(ctx, tx); err != nil {
				return p.fail(ctx, err, sql, opts)
			}
		}
		q = tx.conn
	}

	args := opts.Values
	if opts.SimpleProtocol {
		args = append([]any{pgx.QueryExecModeSimpleProtocol}, opts.Values...)
	}

	result, err := execute(ctx, q, sql, args)
	if err != nil {
		return p.fail(ctx, err, sql, opts)
	}
	return result
}

// NewTransaction returns an unbound transaction. It is begun by the first
// query routed through it, or explicitly by BeginTransaction.
func (p *Pool) NewTransaction(opts TxOptions) *Transaction {
	return newTransaction(opts, p.logger)
}

// BeginTransaction acquires a connection and starts a transaction on it.
func (p *Pool) BeginTransaction(ctx context.Context, opts TxOptions) (*Transaction, error) {
	tx := p.NewTransaction(opts)
	if err := p.begin(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// begin acquires a connection and binds it to tx.
func (p *Pool) begin(ctx context.Context, tx *Transaction) error {
	conn, err := p.provider.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring connection: %w", err)
	}

	if err := tx.begin(ctx, conn); err != nil {
		if errors.Is(err, ErrTxAlreadyBound) {
			conn.Release()
		}
		return err
	}
	return nil
}

// fail builds the Failure result, running the rollback hook first.
func (p *Pool) fail(ctx context.Context, err error, sql string, opts QueryOptions) Result {
	failure := newFailure(err, sql, opts.Values)

	if opts.ShowError {
		p.logger.Error("query failed",
			"code", failure.Code,
			"error", failure.Message,
			"query", sql,
		)
	}

	if tx := opts.Tx; tx != nil && tx.rollbackOnError && tx.Bound() {
		// The caller's context may be the reason the query failed.
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			p.logger.Error("rollback after failed query", "tx_id", tx.ID(), "error", rbErr)
		}
		tx.aborted = true
	}

	return Result{Failure: failure}
}

// execute runs one statement on q and collects every row.
func execute(ctx context.Context, q Querier, sql string, args []any) (Result, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return Result{}, err
	}

	collected, err := pgx.CollectRows(rows, collectRow)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Rows:     collected,
		RowCount: rows.CommandTag().RowsAffected(),
	}, nil
}

// collectRow maps one row's values onto its column names.
func collectRow(row pgx.CollectableRow) (Row, error) {
	values, err := row.Values()
	if err != nil {
		return nil, fmt.Errorf("reading row values: %w", err)
	}

	fields := row.FieldDescriptions()
	out := make(Row, len(fields))
	for i, fd := range fields {
		if i < len(values) {
			out[fd.Name] = values[i]
		}
	}
	return out, nil
}
