package database

import "errors"

// Domain errors for the database package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, database.ErrTxNotBound) {
//	    // transaction was already committed or rolled back
//	}
var (
	// ErrTxAlreadyBound is returned when begin is called on a transaction
	// that already holds a connection.
	ErrTxAlreadyBound = errors.New("database: transaction already bound to a connection")

	// ErrTxNotBound is returned by Commit and Rollback on a transaction
	// that holds no connection.
	ErrTxNotBound = errors.New("database: transaction has no connection")

	// ErrTxAborted is returned for queries routed through a transaction
	// that a failed query already rolled back.
	ErrTxAborted = errors.New("database: transaction aborted by a failed query")

	// ErrSyncTxReplaced is returned by Sync when OnSuccessAlter ended the
	// sync transaction and later queries began a new one.
	ErrSyncTxReplaced = errors.New("database: sync transaction ended inside callback")

	// ErrInvalidIdentifier is returned when a schema, table, column or
	// constraint name is not a plain SQL identifier.
	ErrInvalidIdentifier = errors.New("database: invalid identifier")

	// ErrDuplicateTable is returned when a table is defined twice.
	ErrDuplicateTable = errors.New("database: table already defined")

	// ErrDuplicateColumn is returned when a column name repeats within a table.
	ErrDuplicateColumn = errors.New("database: duplicate column")

	// ErrNoColumns is returned when a table is defined without columns.
	ErrNoColumns = errors.New("database: table has no columns")

	// ErrMultiplePrimaryKeys is returned when more than one column is
	// marked as primary key.
	ErrMultiplePrimaryKeys = errors.New("database: more than one primary key column")

	// ErrInvalidType is returned when a column has no data type.
	ErrInvalidType = errors.New("database: invalid column type")

	// ErrInvalidDefault is returned when a default value has no SQL literal form.
	ErrInvalidDefault = errors.New("database: unsupported default value")

	// ErrUnknownColumn is returned when an operation names a column the
	// table does not define.
	ErrUnknownColumn = errors.New("database: unknown column")

	// ErrNoPrimaryKey is returned when an operation needs a primary key
	// and the table declares none.
	ErrNoPrimaryKey = errors.New("database: table has no primary key")

	// ErrInvalidAction is returned for an unknown ON DELETE / ON UPDATE action.
	ErrInvalidAction = errors.New("database: invalid referential action")
)

// errAssertion marks a Model operation whose outcome is "nothing": a failed
// query or a violated precondition. It never leaves the package; Model
// methods log it and return nil.
var errAssertion = errors.New("database: assertion failed")
