// Package presets persists named Adjustments in a SQLite database.
package presets

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/MeKo-Tech/darkroom/internal/adjust"
)

// ErrNotFound is returned when no preset has the requested name.
var ErrNotFound = errors.New("preset not found")

const schemaVersion = "1"

// Preset is a stored Adjustments value.
type Preset struct {
	Name        string
	Adjustments adjust.Adjustments
	UpdatedAt   time.Time
}

// Store reads and writes presets. It is safe for concurrent use.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Open opens or creates the preset database at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db, path: path, logger: logger}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS metadata (
			name TEXT PRIMARY KEY,
			value TEXT
		);

		CREATE TABLE IF NOT EXISTS presets (
			name TEXT PRIMARY KEY,
			payload TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if _, err := db.Exec("INSERT OR REPLACE INTO metadata (name, value) VALUES ('schema_version', ?)", schemaVersion); err != nil {
		return fmt.Errorf("failed to write schema version: %w", err)
	}
	return nil
}

func normalizeName(name string) (string, error) {
	n := strings.TrimSpace(name)
	if n == "" {
		return "", errors.New("preset name must not be empty")
	}
	return n, nil
}

// Save validates adj and stores it under name, replacing any previous preset of that name.
func (s *Store) Save(ctx context.Context, name string, adj adjust.Adjustments) error {
	n, err := normalizeName(name)
	if err != nil {
		return err
	}
	if err := adj.Validate(); err != nil {
		return fmt.Errorf("preset %q: %w", n, err)
	}
	payload, err := json.Marshal(adj)
	if err != nil {
		return fmt.Errorf("failed to encode preset %q: %w", n, err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO presets (name, payload, updated_at) VALUES (?, ?, ?)",
		n, string(payload), time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to save preset %q: %w", n, err)
	}
	s.log().Debug("Saved preset", "name", n, "path", s.path)
	return nil
}

// Get loads a preset by name.
func (s *Store) Get(ctx context.Context, name string) (Preset, error) {
	n, err := normalizeName(name)
	if err != nil {
		return Preset{}, err
	}

	var payload string
	var updated int64
	err = s.db.QueryRowContext(ctx,
		"SELECT payload, updated_at FROM presets WHERE name = ?", n,
	).Scan(&payload, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Preset{}, fmt.Errorf("%w: %q", ErrNotFound, n)
	}
	if err != nil {
		return Preset{}, fmt.Errorf("failed to read preset %q: %w", n, err)
	}

	return decodePreset(n, payload, updated)
}

// List returns every preset ordered by name.
func (s *Store) List(ctx context.Context) ([]Preset, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name, payload, updated_at FROM presets ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list presets: %w", err)
	}
	defer rows.Close()

	var out []Preset
	for rows.Next() {
		var name, payload string
		var updated int64
		if err := rows.Scan(&name, &payload, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan preset: %w", err)
		}
		p, err := decodePreset(name, payload, updated)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate presets: %w", err)
	}
	return out, nil
}

// Delete removes a preset. Deleting a missing preset returns ErrNotFound.
func (s *Store) Delete(ctx context.Context, name string) error {
	n, err := normalizeName(name)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM presets WHERE name = ?", n)
	if err != nil {
		return fmt.Errorf("failed to delete preset %q: %w", n, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete preset %q: %w", n, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, n)
	}
	s.log().Debug("Deleted preset", "name", n, "path", s.path)
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func decodePreset(name, payload string, updated int64) (Preset, error) {
	var adj adjust.Adjustments
	if err := json.Unmarshal([]byte(payload), &adj); err != nil {
		return Preset{}, fmt.Errorf("failed to decode preset %q: %w", name, err)
	}
	return Preset{
		Name:        name,
		Adjustments: adj,
		UpdatedAt:   time.UnixMilli(updated),
	}, nil
}

func (s *Store) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}
