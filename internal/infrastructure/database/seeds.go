package database

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// Seed filename parsing constants.
const (
	// seedFilenameParts is the expected number of parts in a seed filename.
	// Format: YYYYMMDD_HHMMSS_description.sql (3 parts when split by "_")
	seedFilenameParts = 3

	// minVersionParts is the minimum parts needed to extract a version.
	minVersionParts = 2
)

// Seed is one SQL file applied after an altering sync.
type Seed struct {
	// Version is YYYYMMDD_HHMMSS, taken from the filename.
	Version string

	// Name is the description part of the filename.
	Name string

	// SQL may hold several statements.
	SQL string
}

// LoadSeeds reads every *.sql seed in dir and returns them oldest first.
// Files that do not follow the naming scheme are ignored. A missing
// directory yields no seeds.
func LoadSeeds(fsys fs.FS, dir string) ([]Seed, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading seed directory: %w", err)
	}

	var seeds []Seed
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		version, name, ok := parseSeedFilename(entry.Name())
		if !ok {
			continue
		}

		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", entry.Name(), err)
		}

		seeds = append(seeds, Seed{
			Version: version,
			Name:    name,
			SQL:     string(data),
		})
	}

	sort.Slice(seeds, func(i, j int) bool {
		return seeds[i].Version < seeds[j].Version
	})
	return seeds, nil
}

// parseSeedFilename extracts version and name from a seed filename.
// Example: "20260118_120000_roles.sql" -> ("20260118_120000", "roles").
func parseSeedFilename(filename string) (version, name string, ok bool) {
	if !strings.HasSuffix(filename, ".sql") {
		return "", "", false
	}

	base := strings.TrimSuffix(filename, ".sql")
	parts := strings.SplitN(base, "_", seedFilenameParts)
	if len(parts) < minVersionParts || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}

	version = parts[0] + "_" + parts[1]
	name = base
	if len(parts) == seedFilenameParts {
		name = parts[minVersionParts]
	}
	return version, name, true
}

// ApplySeeds returns an OnSuccessAlter callback that executes seeds in
// order inside the sync transaction. The first failing seed aborts the
// sync.
func (db *DB) ApplySeeds(seeds []Seed) func(ctx context.Context, tx *Transaction) error {
	return func(ctx context.Context, tx *Transaction) error {
		for _, s := range seeds {
			result := db.pool.Query(ctx, s.SQL, QueryOptions{
				ShowError:      true,
				ShowQuery:      db.showQuery,
				Tx:             tx,
				SimpleProtocol: true,
			})
			if !result.IsSuccess() {
				return fmt.Errorf("applying seed %s (%s): %w", s.Version, s.Name, result.Failure)
			}
			db.logger.Info("seed applied", "version", s.Version, "name", s.Name)
		}
		return nil
	}
}
