package database

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// probeConcurrency bounds the number of verification queries in flight.
const probeConcurrency = 4

// SyncOptions configures DB.Sync.
type SyncOptions struct {
	// Alter drops and recreates every defined schema, table and foreign
	// key. Without it Sync only verifies the tables can be queried.
	Alter bool

	// OnSuccessAlter runs inside the sync transaction after every DDL
	// statement succeeded and before commit. Seed data goes here.
	OnSuccessAlter func(ctx context.Context, tx *Transaction) error
}

// Sync brings the database in line with the defined tables.
//
// Without Alter, every table's SELECT probe runs and the first failure is
// returned.
//
// With Alter, one transaction (RollbackOnError) executes the script's Plan:
// dropConstraint, drop, schema, create, alter. The first failing statement
// rolls the transaction back and is returned; OnSuccessAlter is not called.
// Otherwise OnSuccessAlter runs and the transaction commits. The commit
// only happens when the callback leaves the original transaction open: if
// a query inside it failed (and so rolled everything back), or the
// callback ended the transaction itself, Sync returns an error.
//
// Sync is meant to be called once at startup, after every Define.
func (db *DB) Sync(ctx context.Context, opts SyncOptions) error {
	if !opts.Alter {
		return db.verify(ctx)
	}

	tx, err := db.BeginTransaction(ctx, TxOptions{RollbackOnError: true})
	if err != nil {
		return fmt.Errorf("starting sync transaction: %w", err)
	}

	plan := db.script.Plan()
	for _, stmt := range plan {
		result := db.pool.Query(ctx, stmt.SQL, QueryOptions{
			ShowError: true,
			ShowQuery: db.showQuery,
			Tx:        tx,
		})
		if !result.IsSuccess() {
			return fmt.Errorf("sync %s statement for schema %s: %w", stmt.Bucket, stmt.Schema, result.Failure)
		}
	}

	if opts.OnSuccessAlter != nil {
		generation := tx.generation
		if err := opts.OnSuccessAlter(ctx, tx); err != nil {
			if tx.Bound() {
				if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
					db.logger.Error("rolling back sync", "tx_id", tx.ID(), "error", rbErr)
				}
			}
			return fmt.Errorf("running sync callback: %w", err)
		}
		if err := db.checkSyncTx(ctx, tx, generation); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing sync: %w", err)
	}

	db.logger.Info("schema sync complete",
		"statements", len(plan),
		"schemas", len(db.script.Schemas()),
	)
	return nil
}

// checkSyncTx reports an error when tx is no longer the transaction the
// sync statements ran in. A transaction begun again after a release is
// rolled back so nothing the callback wrote outside the sync is kept.
func (db *DB) checkSyncTx(ctx context.Context, tx *Transaction, generation int) error {
	switch {
	case tx.Aborted():
		return fmt.Errorf("running sync callback: %w", ErrTxAborted)
	case tx.generation != generation:
		if tx.Bound() {
			if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil {
				db.logger.Error("rolling back sync", "tx_id", tx.ID(), "error", err)
			}
		}
		return fmt.Errorf("running sync callback: %w", ErrSyncTxReplaced)
	case !tx.Bound():
		return fmt.Errorf("running sync callback: %w", ErrTxNotBound)
	}
	return nil
}

// verify runs every probe, a few at a time.
func (db *DB) verify(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(probeConcurrency)

	for _, probe := range db.script.Probes() {
		probe := probe
		g.Go(func() error {
			result := db.pool.Query(gctx, probe, QueryOptions{
				ShowError: true,
				ShowQuery: db.showQuery,
			})
			return result.Err()
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("verifying tables: %w", err)
	}
	return nil
}
