// Package prefs persists the client's few user preferences in SQLite.
package prefs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nbinmostafa/project-management-tracker/internal/models"
)

const keyViewMode = "view_mode"

// Store is a key-value preference table.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the preference database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open preferences: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS preferences (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create preferences table: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ViewMode returns the saved layout. Missing or unrecognized values read as list.
func (s *Store) ViewMode(ctx context.Context) (models.ViewMode, error) {
	raw, err := s.get(ctx, keyViewMode)
	if err != nil {
		return models.ViewModeList, err
	}
	if mode, ok := models.ParseViewMode(raw); ok {
		return mode, nil
	}
	return models.ViewModeList, nil
}

// SetViewMode saves the layout.
func (s *Store) SetViewMode(ctx context.Context, mode models.ViewMode) error {
	parsed, ok := models.ParseViewMode(string(mode))
	if !ok {
		return models.ValidationError{Field: "view_mode", Message: "view mode must be 'list' or 'board'"}
	}
	return s.set(ctx, keyViewMode, string(parsed))
}

func (s *Store) get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read preference %s: %w", key, err)
	}
	return value, nil
}

func (s *Store) set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to save preference %s: %w", key, err)
	}
	return nil
}
