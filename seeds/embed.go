// Package seeds embeds the SQL seed files into the binary.
//
// Seed files are named YYYYMMDD_HHMMSS_description.sql and run in version
// order inside the transaction of an altering sync, after every table and
// foreign key exists.
package seeds

import (
	"embed"

	"github.com/nerrad567/pgcore/internal/infrastructure/database"
)

//go:embed *.sql
var files embed.FS

// Load returns the embedded seeds sorted by version.
func Load() ([]database.Seed, error) {
	return database.LoadSeeds(files, ".")
}
