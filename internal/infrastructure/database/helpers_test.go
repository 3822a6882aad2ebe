package database_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/nerrad567/pgcore/internal/infrastructure/config"
	"github.com/nerrad567/pgcore/internal/infrastructure/database"
	"github.com/nerrad567/pgcore/internal/infrastructure/database/databasetest"
	"github.com/nerrad567/pgcore/internal/infrastructure/logging"
)

// newTestDB returns a DB over a scripted provider and the buffer its
// JSON log records are written to.
func newTestDB(t *testing.T) (*database.DB, *databasetest.Provider, *bytes.Buffer) {
	t.Helper()

	var buf bytes.Buffer
	logger := logging.NewWithWriter(config.LoggingConfig{Level: "debug", Format: "json"}, "test", &buf)

	p := databasetest.NewProvider()
	db := database.New(p, logger)
	t.Cleanup(db.Close)

	return db, p, &buf
}

// defineUsers defines public.users with a serial primary key.
func defineUsers(t *testing.T, db *database.DB) *database.Model {
	t.Helper()

	users, err := db.Define("users", []database.Column{
		{Name: "id", Type: database.Serial, PrimaryKey: true},
		{Name: "name", Type: database.Varchar(64)},
		{Name: "email", Type: database.Text, AllowNull: true, Unique: true},
	}, database.DefineOptions{})
	if err != nil {
		t.Fatalf("Define(users) error = %v", err)
	}
	return users
}

// failOn answers statements starting with prefix with a server error and
// everything else with an empty success.
func failOn(prefix, code string) func(databasetest.Call) databasetest.Response {
	return func(c databasetest.Call) databasetest.Response {
		if strings.HasPrefix(c.SQL, prefix) {
			return databasetest.Response{Err: databasetest.PgError(code, "forced failure")}
		}
		return databasetest.Response{}
	}
}

// sqlOn returns the statements the provider received on connection id.
func sqlOn(p *databasetest.Provider, id int) []string {
	var out []string
	for _, c := range p.Calls() {
		if c.Conn == id {
			out = append(out, c.SQL)
		}
	}
	return out
}
