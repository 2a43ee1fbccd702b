// Package store persists game configuration profiles in SQLite.
//
// Only the coordinator writes through this store; every other component sees
// profile data via bus broadcasts. Binds and aliases are stored as JSON text
// columns, which keeps the schema flat; the on-disk shape is not part of any
// contract.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/keydeck/keydeck/internal/profile"
)

const (
	metaActiveProfile = "active_profile"
	metaEnvironment   = "environment"
)

const profileColumns = `id, name, game, binds, aliases, created_at, updated_at`

// Store is a SQLite-backed profile repository.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the profile database at path and applies
// pending schema migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening profile database: %w", err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// SaveProfile inserts or replaces a profile document.
func (s *Store) SaveProfile(ctx context.Context, p profile.Profile) error {
	binds, err := json.Marshal(p.Binds)
	if err != nil {
		return fmt.Errorf("encoding binds: %w", err)
	}
	aliases, err := json.Marshal(p.Aliases)
	if err != nil {
		return fmt.Errorf("encoding aliases: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO profiles (id, name, game, binds, aliases, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			game = excluded.game,
			binds = excluded.binds,
			aliases = excluded.aliases,
			updated_at = excluded.updated_at`,
		p.ID, p.Name, p.Game, string(binds), string(aliases), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving profile %s: %w", p.ID, err)
	}
	return nil
}

// GetProfile retrieves one profile by id.
// Returns ProfileNotFoundError when the id does not exist.
func (s *Store) GetProfile(ctx context.Context, id string) (profile.Profile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return profile.Profile{}, &ProfileNotFoundError{ID: id}
	}
	if err != nil {
		return profile.Profile{}, fmt.Errorf("loading profile %s: %w", id, err)
	}
	return p, nil
}

// ListProfiles returns every stored profile ordered by name.
func (s *Store) ListProfiles(ctx context.Context) ([]profile.Profile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+profileColumns+` FROM profiles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing profiles: %w", err)
	}
	defer rows.Close()

	var out []profile.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning profile: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeleteProfile removes a profile by id.
// Returns ProfileNotFoundError when the id does not exist.
func (s *Store) DeleteProfile(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting profile %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting profile %s: %w", id, err)
	}
	if affected == 0 {
		return &ProfileNotFoundError{ID: id}
	}
	return nil
}

// LoadSnapshot assembles the canonical state from disk: every profile plus
// the persisted active-profile and environment selections.
func (s *Store) LoadSnapshot(ctx context.Context) (profile.Snapshot, error) {
	profiles, err := s.ListProfiles(ctx)
	if err != nil {
		return profile.Snapshot{}, err
	}

	snap := profile.Snapshot{
		Environment: profile.EnvDefault,
		Profiles:    make(map[string]profile.Profile, len(profiles)),
	}
	for _, p := range profiles {
		snap.Profiles[p.ID] = p
	}

	if active, err := s.getMeta(ctx, metaActiveProfile); err == nil {
		if _, ok := snap.Profiles[active]; ok {
			snap.ActiveProfile = active
		}
	}
	if env, err := s.getMeta(ctx, metaEnvironment); err == nil && env != "" {
		snap.Environment = profile.Environment(env)
	}
	return snap, nil
}

// SetActiveProfile persists the active profile selection.
func (s *Store) SetActiveProfile(ctx context.Context, id string) error {
	return s.setMeta(ctx, metaActiveProfile, id)
}

// SetEnvironment persists the environment selection.
func (s *Store) SetEnvironment(ctx context.Context, env profile.Environment) error {
	return s.setMeta(ctx, metaEnvironment, string(env))
}

func (s *Store) getMeta(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *Store) setMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	if err != nil {
		return fmt.Errorf("saving meta %s: %w", key, err)
	}
	return nil
}

func scanProfile(scanner interface{ Scan(...any) error }) (profile.Profile, error) {
	var (
		p       profile.Profile
		binds   string
		aliases string
		created time.Time
		updated time.Time
	)
	err := scanner.Scan(&p.ID, &p.Name, &p.Game, &binds, &aliases, &created, &updated)
	if err != nil {
		return profile.Profile{}, err
	}
	if err := json.Unmarshal([]byte(binds), &p.Binds); err != nil {
		return profile.Profile{}, fmt.Errorf("decoding binds for %s: %w", p.ID, err)
	}
	if err := json.Unmarshal([]byte(aliases), &p.Aliases); err != nil {
		return profile.Profile{}, fmt.Errorf("decoding aliases for %s: %w", p.ID, err)
	}
	p.CreatedAt = created
	p.UpdatedAt = updated
	return p, nil
}
