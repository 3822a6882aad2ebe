package database_test

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/nerrad567/pgcore/internal/infrastructure/database"
	"github.com/nerrad567/pgcore/internal/infrastructure/database/databasetest"
)

func TestPool_QuerySuccess(t *testing.T) {
	db, p, _ := newTestDB(t)
	p.Handle(func(databasetest.Call) databasetest.Response {
		return databasetest.Rows([]string{"id", "name"},
			[]any{int32(1), "ada"},
			[]any{int32(2), "grace"},
		)
	})

	result := db.Query(context.Background(), "SELECT id, name FROM users WHERE id > $1", database.QueryOptions{
		Values: []any{0},
	})

	if !result.IsSuccess() || !database.IsSuccess(result) {
		t.Fatalf("Query() failed: %v", result.Failure)
	}
	if result.RowCount != 2 {
		t.Errorf("RowCount = %d, want 2", result.RowCount)
	}
	if len(result.Rows) != 2 || result.Rows[1]["name"] != "grace" {
		t.Errorf("Rows = %v", result.Rows)
	}
	if result.Err() != nil {
		t.Errorf("Err() = %v, want nil", result.Err())
	}

	calls := p.Calls()
	if len(calls) != 1 || calls[0].Conn != databasetest.PoolConn {
		t.Fatalf("calls = %+v, want one pool call", calls)
	}
	if !reflect.DeepEqual(calls[0].Args, []any{0}) {
		t.Errorf("Args = %v, want [0]", calls[0].Args)
	}
}

func TestPool_QueryRowCountFromCommandTag(t *testing.T) {
	db, p, _ := newTestDB(t)
	p.Handle(func(databasetest.Call) databasetest.Response {
		return databasetest.Response{Tag: "UPDATE 3"}
	})

	result := db.Query(context.Background(), "UPDATE t SET a = 1", database.QueryOptions{})

	if !result.IsSuccess() {
		t.Fatalf("Query() failed: %v", result.Failure)
	}
	if result.RowCount != 3 {
		t.Errorf("RowCount = %d, want 3", result.RowCount)
	}
	if len(result.Rows) != 0 {
		t.Errorf("Rows = %v, want none", result.Rows)
	}
}

func TestPool_QueryFailure(t *testing.T) {
	db, p, logs := newTestDB(t)
	p.Handle(func(databasetest.Call) databasetest.Response {
		return databasetest.Response{Err: databasetest.PgError("42P01", `relation "nope" does not exist`)}
	})

	const sql = "SELECT * FROM nope WHERE a = $1"
	result := db.Query(context.Background(), sql, database.QueryOptions{
		Values:    []any{"x"},
		ShowError: true,
	})

	if result.IsSuccess() {
		t.Fatal("Query() succeeded, want failure")
	}
	if result.Rows != nil || result.RowCount != 0 {
		t.Errorf("failure carries rows: %v / %d", result.Rows, result.RowCount)
	}

	f := result.Failure
	if f.Code != "42P01" {
		t.Errorf("Code = %q, want 42P01", f.Code)
	}
	if f.Message != `relation "nope" does not exist` {
		t.Errorf("Message = %q", f.Message)
	}
	if f.Query != sql {
		t.Errorf("Query = %q, want %q", f.Query, sql)
	}
	if !reflect.DeepEqual(f.Values, []any{"x"}) {
		t.Errorf("Values = %v", f.Values)
	}

	var failure *database.Failure
	if !errors.As(result.Err(), &failure) {
		t.Errorf("Err() = %v, want *Failure", result.Err())
	}
	if !strings.Contains(logs.String(), "query failed") {
		t.Errorf("failure not logged: %s", logs.String())
	}
}

func TestPool_QueryFailureWithoutSQLState(t *testing.T) {
	db, p, _ := newTestDB(t)
	p.Handle(func(databasetest.Call) databasetest.Response {
		return databasetest.Response{Err: errors.New("connection reset")}
	})

	result := db.Query(context.Background(), "SELECT 1", database.QueryOptions{})

	if result.IsSuccess() {
		t.Fatal("Query() succeeded, want failure")
	}
	if result.Failure.Code != database.CodeInternal {
		t.Errorf("Code = %q, want %q", result.Failure.Code, database.CodeInternal)
	}
}

func TestPool_QueryLogging(t *testing.T) {
	tests := []struct {
		name      string
		opts      database.QueryOptions
		fail      bool
		wantQuery bool
		wantError bool
	}{
		{name: "silent success", opts: database.QueryOptions{}},
		{name: "show query", opts: database.QueryOptions{ShowQuery: true}, wantQuery: true},
		{name: "silent failure", opts: database.QueryOptions{}, fail: true},
		{name: "default options", opts: database.DefaultQueryOptions(), fail: true, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, p, logs := newTestDB(t)
			if tt.fail {
				p.Handle(failOn("SELECT", "42601"))
			}

			db.Query(context.Background(), "SELECT 1", tt.opts)

			out := logs.String()
			if got := strings.Contains(out, "executing query"); got != tt.wantQuery {
				t.Errorf("executing query logged = %v, want %v", got, tt.wantQuery)
			}
			if got := strings.Contains(out, "query failed"); got != tt.wantError {
				t.Errorf("query failed logged = %v, want %v", got, tt.wantError)
			}
		})
	}
}

func TestPool_QuerySimpleProtocol(t *testing.T) {
	db, p, _ := newTestDB(t)

	db.Query(context.Background(), "INSERT INTO a VALUES (1); INSERT INTO b VALUES (2)", database.QueryOptions{
		SimpleProtocol: true,
	})

	calls := p.Calls()
	if len(calls) != 1 || len(calls[0].Args) != 1 {
		t.Fatalf("calls = %+v", calls)
	}
	if calls[0].Args[0] != pgx.QueryExecModeSimpleProtocol {
		t.Errorf("first arg = %v, want QueryExecModeSimpleProtocol", calls[0].Args[0])
	}
}

func TestPool_QueryBeginsUnboundTransaction(t *testing.T) {
	db, p, _ := newTestDB(t)
	tx := db.Pool().NewTransaction(database.TxOptions{})

	if tx.Bound() {
		t.Fatal("new transaction is bound")
	}

	result := db.Query(context.Background(), "INSERT INTO t VALUES (1)", database.QueryOptions{Tx: tx})
	if !result.IsSuccess() {
		t.Fatalf("Query() failed: %v", result.Failure)
	}

	if !tx.Bound() {
		t.Error("transaction not bound after first query")
	}
	want := []string{"BEGIN", "INSERT INTO t VALUES (1)"}
	if got := sqlOn(p, 1); !reflect.DeepEqual(got, want) {
		t.Errorf("conn 1 statements = %v, want %v", got, want)
	}
	if p.Outstanding() != 1 {
		t.Errorf("Outstanding() = %d, want 1", p.Outstanding())
	}
}

func TestPool_RollbackOnError(t *testing.T) {
	db, p, _ := newTestDB(t)
	p.Handle(failOn("INSERT", "23505"))

	ctx := context.Background()
	tx, err := db.BeginTransaction(ctx, database.TxOptions{RollbackOnError: true})
	if err != nil {
		t.Fatalf("BeginTransaction() error = %v", err)
	}

	result := db.Query(ctx, "INSERT INTO t VALUES (1)", database.QueryOptions{Tx: tx})

	if result.IsSuccess() || result.Failure.Code != "23505" {
		t.Fatalf("Query() = %+v, want 23505 failure", result)
	}
	want := []string{"BEGIN", "INSERT INTO t VALUES (1)", "ROLLBACK"}
	if got := sqlOn(p, 1); !reflect.DeepEqual(got, want) {
		t.Errorf("conn 1 statements = %v, want %v", got, want)
	}
	if tx.Bound() {
		t.Error("transaction still bound after rollback")
	}
	if p.Outstanding() != 0 {
		t.Errorf("Outstanding() = %d, want 0", p.Outstanding())
	}
}

func TestPool_AbortedTransactionRejectsQueries(t *testing.T) {
	db, p, _ := newTestDB(t)
	p.Handle(failOn("INSERT", "23505"))

	ctx := context.Background()
	tx, err := db.BeginTransaction(ctx, database.TxOptions{RollbackOnError: true})
	if err != nil {
		t.Fatalf("BeginTransaction() error = %v", err)
	}
	db.Query(ctx, "INSERT INTO t VALUES (1)", database.QueryOptions{Tx: tx})

	if !tx.Aborted() {
		t.Fatal("Aborted() = false after rollback on error")
	}

	result := db.Query(ctx, "UPDATE t SET n = 2", database.QueryOptions{Tx: tx})

	if !errors.Is(result.Err(), database.ErrTxAborted) {
		t.Errorf("Query() error = %v, want ErrTxAborted", result.Err())
	}
	if p.Acquired() != 1 {
		t.Errorf("Acquired() = %d, want 1", p.Acquired())
	}
	for _, sql := range p.SQL() {
		if sql == "UPDATE t SET n = 2" {
			t.Error("query sent through an aborted transaction")
		}
	}
	if tx.Bound() {
		t.Error("aborted transaction bound again")
	}
}

func TestPool_RollbackOnErrorSurvivesCancelledContext(t *testing.T) {
	db, p, _ := newTestDB(t)
	p.Handle(failOn("INSERT", "57014"))

	tx, err := db.BeginTransaction(context.Background(), database.TxOptions{RollbackOnError: true})
	if err != nil {
		t.Fatalf("BeginTransaction() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	db.Query(ctx, "INSERT INTO t VALUES (1)", database.QueryOptions{Tx: tx})

	if tx.Bound() {
		t.Error("transaction still bound after failure on cancelled context")
	}
}

func TestPool_FailureKeepsTransactionWithoutRollbackOnError(t *testing.T) {
	db, p, _ := newTestDB(t)
	p.Handle(failOn("INSERT", "23505"))

	ctx := context.Background()
	tx, err := db.BeginTransaction(ctx, database.TxOptions{})
	if err != nil {
		t.Fatalf("BeginTransaction() error = %v", err)
	}

	db.Query(ctx, "INSERT INTO t VALUES (1)", database.QueryOptions{Tx: tx})

	if !tx.Bound() {
		t.Fatal("transaction released without RollbackOnError")
	}
	for _, sql := range p.SQL() {
		if sql == "ROLLBACK" {
			t.Error("ROLLBACK sent without RollbackOnError")
		}
	}

	if err := tx.Rollback(ctx); err != nil {
		t.Errorf("Rollback() error = %v", err)
	}
}

func TestPool_QueryAcquireFailure(t *testing.T) {
	db, p, _ := newTestDB(t)
	p.FailAcquire(errors.New("pool exhausted"))

	tx := db.Pool().NewTransaction(database.TxOptions{RollbackOnError: true})
	result := db.Query(context.Background(), "SELECT 1", database.QueryOptions{Tx: tx})

	if result.IsSuccess() {
		t.Fatal("Query() succeeded, want failure")
	}
	if result.Failure.Code != database.CodeInternal {
		t.Errorf("Code = %q, want %q", result.Failure.Code, database.CodeInternal)
	}
	if !strings.Contains(result.Failure.Message, "pool exhausted") {
		t.Errorf("Message = %q", result.Failure.Message)
	}
	if len(p.Calls()) != 0 {
		t.Errorf("statements sent: %v", p.SQL())
	}
}
