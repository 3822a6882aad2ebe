// Package database is the PostgreSQL access core of pgcore.
//
// This package manages:
//   - A query gateway over a pgxpool connection pool (Pool)
//   - Explicit transactions that own one pooled connection (Transaction)
//   - Positional placeholder numbering for $1, $2, … (PlaceholderGenerator)
//   - Table definitions and the DDL script they generate (SchemaScript)
//   - Per-table CRUD surfaces (Model)
//   - Schema synchronisation at startup (DB.Sync)
//
// Failure Handling:
//
// Failures are data at the pool tier. Pool.Query returns a Result that is
// either rows or a *Failure carrying the SQLSTATE, message, SQL and bound
// values; check Result.IsSuccess before reading rows. Model operations go
// one step further and never surface failures at all: they log and return
// nil. A transaction created with RollbackOnError rolls itself back as soon
// as a query routed through it fails.
//
// Security Considerations:
//   - Every value is sent as a bound parameter, never interpolated
//   - Schema, table, column and constraint names are quoted
//   - Define only accepts plain identifiers ([A-Za-z_][A-Za-z0-9_]*)
//
// Usage:
//
//	db, err := database.Open(ctx, cfg, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	users, err := db.Define("users", []database.Column{
//	    {Name: "id", Type: database.Serial, PrimaryKey: true},
//	    {Name: "email", Type: database.Varchar(255), Unique: true},
//	}, database.DefineOptions{Schema: "app"})
//
//	if err := db.Sync(ctx, database.SyncOptions{}); err != nil {
//	    log.Fatal(err)
//	}
//
//	row := users.Create(ctx, database.Fields{}.Set("email", "ada@example.com"), database.ModelOptions{})
//
// Sync Order:
//
// An altering sync replays the script in one transaction, statement class
// by statement class: dropConstraint, drop, schema, create, alter. Foreign
// keys are therefore gone before their tables are dropped, schemas exist
// before tables are created in them, and tables exist before foreign keys
// referencing them are added.
package database
