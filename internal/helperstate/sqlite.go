package helperstate

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// SetText stores a text cell value.
func (s *SQLiteStore) SetText(ctx context.Context, name, value string) error {
	return s.setCell(ctx, name, "text", value, nil)
}

// GetText reads a text cell, falling back to the cell's default when
// it has never been written.
func (s *SQLiteStore) GetText(ctx context.Context, name string) (string, error) {
	value, ok, err := s.getCell(ctx, name)
	if err != nil {
		return "", err
	}
	if !ok {
		return textDefaults[name], nil
	}
	return value, nil
}

// SetBool stores a boolean cell value.
func (s *SQLiteStore) SetBool(ctx context.Context, name string, on bool) error {
	value := "off"
	if on {
		value = "on"
	}
	return s.setCell(ctx, name, "bool", value, nil)
}

// GetBool reads a boolean cell; unwritten cells are off.
func (s *SQLiteStore) GetBool(ctx context.Context, name string) (bool, error) {
	value, ok, err := s.getCell(ctx, name)
	if err != nil || !ok {
		return false, err
	}
	return value == "on", nil
}

// SetNumber stores a numeric cell value.
func (s *SQLiteStore) SetNumber(ctx context.Context, name string, value float64) error {
	return s.setCell(ctx, name, "number", strconv.FormatFloat(value, 'f', -1, 64), nil)
}

// GetNumber reads a numeric cell; unwritten cells are zero.
func (s *SQLiteStore) GetNumber(ctx context.Context, name string) (float64, error) {
	value, ok, err := s.getCell(ctx, name)
	if err != nil || !ok {
		return 0, err
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing number cell %q: %w", name, err)
	}
	return parsed, nil
}

// SetOptions stores a select cell's option list. The current value is
// reset to the first option.
func (s *SQLiteStore) SetOptions(ctx context.Context, name string, options []string) error {
	value := ""
	if len(options) > 0 {
		value = options[0]
	}
	return s.setCell(ctx, name, "select", value, options)
}

// GetOptions reads a select cell's option list.
func (s *SQLiteStore) GetOptions(ctx context.Context, name string) ([]string, error) {
	var raw string
	err := s.db.GetContext(ctx, &raw, "SELECT options FROM cells WHERE name = ?", name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cell %q: %w", name, err)
	}

	var options []string
	if err := json.Unmarshal([]byte(raw), &options); err != nil {
		return nil, fmt.Errorf("decoding options for cell %q: %w", name, err)
	}
	return options, nil
}

// Reset restores every known cell to its default value.
func (s *SQLiteStore) Reset(ctx context.Context) error {
	for name, value := range textDefaults {
		if err := s.SetText(ctx, name, value); err != nil {
			return err
		}
	}
	for _, name := range boolCells {
		if err := s.SetBool(ctx, name, false); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) setCell(
	ctx context.Context,
	name, kind, value string,
	options []string,
) error {
	optionsJSON := "[]"
	if options != nil {
		encoded, err := json.Marshal(options)
		if err != nil {
			return fmt.Errorf("encoding options for cell %q: %w", name, err)
		}
		optionsJSON = string(encoded)
	}

	const query = `
		INSERT INTO cells (name, kind, value, options, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET
			kind = excluded.kind,
			value = excluded.value,
			options = excluded.options,
			updated_at = CURRENT_TIMESTAMP`

	if _, err := s.db.ExecContext(ctx, query, name, kind, value, optionsJSON); err != nil {
		return fmt.Errorf("writing cell %q: %w", name, err)
	}
	return nil
}

func (s *SQLiteStore) getCell(ctx context.Context, name string) (string, bool, error) {
	var value string
	err := s.db.GetContext(ctx, &value, "SELECT value FROM cells WHERE name = ?", name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading cell %q: %w", name, err)
	}
	return value, true, nil
}
