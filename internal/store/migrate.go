package store

import (
	"database/sql"
	"embed"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/keydeck/keydeck/internal/log"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// migrate applies embedded schema migrations newer than the database's
// PRAGMA user_version, in filename order. Filenames are NNNN_name.sql.
func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		name := entry.Name()
		seq, ok := migrationSeq(name)
		if !ok {
			return fmt.Errorf("bad migration filename %q", name)
		}
		if seq <= version {
			continue
		}

		script, err := migrationFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("starting migration %s: %w", name, err)
		}
		if _, err := tx.Exec(string(script)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("applying migration %s: %w", name, err)
		}
		// PRAGMA does not take bind parameters.
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", seq)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("bumping schema version after %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", name, err)
		}

		log.Info(log.CatStore, "applied migration", "name", name, "version", seq)
		version = seq
	}

	return nil
}

func migrationSeq(name string) (int, bool) {
	idx := strings.IndexByte(name, '_')
	if idx <= 0 {
		return 0, false
	}
	seq, err := strconv.Atoi(name[:idx])
	if err != nil || seq <= 0 {
		return 0, false
	}
	return seq, true
}
