package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nerrad567/pgcore/internal/infrastructure/logging"
)

// Transaction control statements.
const (
	beginSQL    = "BEGIN"
	commitSQL   = "COMMIT"
	rollbackSQL = "ROLLBACK"
)

// TxOptions configures a Transaction.
type TxOptions struct {
	// RollbackOnError rolls the transaction back as soon as any query
	// routed through it fails.
	RollbackOnError bool
}

// Transaction pins one pooled connection for a unit of work.
//
// Lifecycle: unbound → bound (begin) → released (Commit or Rollback).
// A released transaction holds no connection; routing another query
// through it acquires a new connection and begins again. A transaction
// rolled back because a query failed under RollbackOnError is aborted
// instead: it never begins again and every later query fails with
// ErrTxAborted.
//
// Thread Safety:
//   - A Transaction is not safe for concurrent use. Its queries share one
//     connection and must be issued one after another.
type Transaction struct {
	id              string
	conn            Conn
	rollbackOnError bool
	aborted         bool
	generation      int
	logger          *logging.Logger
}

func newTransaction(opts TxOptions, logger *logging.Logger) *Transaction {
	id := uuid.NewString()
	return &Transaction{
		id:              id,
		rollbackOnError: opts.RollbackOnError,
		logger:          logger.With("tx_id", id),
	}
}

// ID returns the transaction's correlation id, used in log records.
func (t *Transaction) ID() string {
	return t.id
}

// Bound reports whether the transaction currently holds a connection.
func (t *Transaction) Bound() bool {
	return t.conn != nil
}

// Aborted reports whether a failed query rolled the transaction back.
func (t *Transaction) Aborted() bool {
	return t.aborted
}

// RollbackOnError reports whether failures roll the transaction back.
func (t *Transaction) RollbackOnError() bool {
	return t.rollbackOnError
}

// begin binds conn and opens the transaction. When the transaction is
// already bound nothing changes and ErrTxAlreadyBound is returned; conn
// stays with the caller.
func (t *Transaction) begin(ctx context.Context, conn Conn) error {
	if t.conn != nil {
		t.logger.Error("transaction already has a connection")
		return ErrTxAlreadyBound
	}

	t.conn = conn
	t.generation++
	if _, err := execute(ctx, conn, beginSQL, nil); err != nil {
		t.release()
		return fmt.Errorf("starting transaction: %w", err)
	}
	return nil
}

// Commit commits the transaction and releases its connection.
// On an unbound transaction it logs and returns ErrTxNotBound.
func (t *Transaction) Commit(ctx context.Context) error {
	return t.finish(ctx, commitSQL)
}

// Rollback rolls the transaction back and releases its connection.
// On an unbound transaction it logs and returns ErrTxNotBound.
func (t *Transaction) Rollback(ctx context.Context) error {
	return t.finish(ctx, rollbackSQL)
}

func (t *Transaction) finish(ctx context.Context, stmt string) error {
	if t.conn == nil {
		t.logger.Error("transaction has no connection", "statement", stmt)
		return ErrTxNotBound
	}
	defer t.release()

	if _, err := execute(ctx, t.conn, stmt, nil); err != nil {
		if stmt == commitSQL {
			return fmt.Errorf("committing transaction: %w", err)
		}
		return fmt.Errorf("rolling back transaction: %w", err)
	}
	return nil
}

// release hands the connection back to the pool and clears it.
func (t *Transaction) release() {
	t.conn.Release()
	t.conn = nil
}
