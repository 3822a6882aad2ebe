//go:build integration

package database_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/nerrad567/pgcore/internal/infrastructure/database"
	"github.com/nerrad567/pgcore/internal/infrastructure/logging"
)

// openIntegrationDB connects to PGCORE_TEST_DATABASE_URL. The database is
// dropped and recreated schema by schema, so point it at a scratch server.
func openIntegrationDB(t *testing.T) *database.DB {
	t.Helper()

	url := os.Getenv("PGCORE_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("PGCORE_TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.Open(ctx, database.Config{URL: url, MaxConns: 4}, logging.Discard())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(db.Close)
	return db
}

func TestIntegration_CRUDRoundTrip(t *testing.T) {
	db := openIntegrationDB(t)
	ctx := context.Background()

	owners, err := db.Define("owners", []database.Column{
		{Name: "id", Type: database.Serial, PrimaryKey: true},
		{Name: "name", Type: database.Varchar(64), Unique: true},
	}, database.DefineOptions{Schema: "pgcore_it"})
	if err != nil {
		t.Fatalf("Define(owners) error = %v", err)
	}
	pets, err := db.Define("pets", []database.Column{
		{Name: "id", Type: database.Serial, PrimaryKey: true},
		{Name: "owner_id", Type: database.Integer},
		{Name: "species", Type: database.Text, Default: "cat"},
	}, database.DefineOptions{Schema: "pgcore_it"})
	if err != nil {
		t.Fatalf("Define(pets) error = %v", err)
	}
	if err := pets.SetForeignKey(owners, "owner_id", database.ForeignKeyOptions{}); err != nil {
		t.Fatalf("SetForeignKey() error = %v", err)
	}

	if err := db.Sync(ctx, database.SyncOptions{Alter: true}); err != nil {
		t.Fatalf("Sync(alter) error = %v", err)
	}
	if err := db.Sync(ctx, database.SyncOptions{}); err != nil {
		t.Fatalf("Sync(verify) error = %v", err)
	}

	owner := owners.Create(ctx, database.Fields{}.Set("name", "ada"), database.ModelOptions{})
	if owner == nil {
		t.Fatal("Create(owner) returned nil")
	}
	pet := pets.Create(ctx, database.Fields{}.Set("owner_id", owner["id"]), database.ModelOptions{})
	if pet == nil || pet["species"] != "cat" {
		t.Fatalf("Create(pet) = %v, want default species", pet)
	}

	if got := pets.FindByPk(ctx, pet["id"], database.ModelOptions{}); got == nil {
		t.Fatal("FindByPk() returned nil for created row")
	}

	updated := pets.UpdateByPk(ctx, pet["id"], database.Fields{}.Set("species", "dog"), database.ModelOptions{})
	if updated == nil || updated["species"] != "dog" {
		t.Errorf("UpdateByPk() = %v", updated)
	}

	// Cascading delete removes the pet with its owner.
	if deleted := owners.DeleteByPk(ctx, owner["id"], database.ModelOptions{}); deleted == nil {
		t.Fatal("DeleteByPk(owner) returned nil")
	}
	if got := pets.FindByPk(ctx, pet["id"], database.ModelOptions{}); got != nil {
		t.Errorf("FindByPk() after cascade = %v, want nil", got)
	}
	if rows := pets.Find(ctx, nil, database.ModelOptions{}); rows == nil || len(rows) != 0 {
		t.Errorf("Find() = %#v, want empty slice", rows)
	}
}

func TestIntegration_MissingTable(t *testing.T) {
	db := openIntegrationDB(t)

	result := db.Query(context.Background(), "SELECT * FROM pgcore_no_such_table", database.QueryOptions{})

	if result.IsSuccess() {
		t.Fatal("Query() succeeded on a missing table")
	}
	if result.Failure.Code != "42P01" {
		t.Errorf("Code = %q, want 42P01", result.Failure.Code)
	}
}

func TestIntegration_TransactionRollback(t *testing.T) {
	db := openIntegrationDB(t)
	ctx := context.Background()

	tx, err := db.BeginTransaction(ctx, database.TxOptions{RollbackOnError: true})
	if err != nil {
		t.Fatalf("BeginTransaction() error = %v", err)
	}
	db.Query(ctx, "CREATE TABLE it_tx_scratch (v INTEGER)", database.QueryOptions{Tx: tx})
	result := db.Query(ctx, "SELECT * FROM pgcore_no_such_table", database.QueryOptions{Tx: tx})
	if result.IsSuccess() {
		t.Fatal("query on missing table succeeded")
	}
	if tx.Bound() {
		t.Fatal("transaction bound after failure")
	}

	check := db.Query(ctx, "SELECT to_regclass('it_tx_scratch') IS NULL AS gone", database.QueryOptions{})
	if !check.IsSuccess() || check.Rows[0]["gone"] != true {
		t.Errorf("table created inside rolled back transaction survived: %+v", check)
	}
}
