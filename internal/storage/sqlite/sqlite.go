package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tellme/internal/core"
	"tellme/internal/storage"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStorage implements storage.Storage using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// New creates a new SQLite storage instance
func New(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLiteStorage{db: db}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, nil
}

// migrate creates the database schema
func (s *SQLiteStorage) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS credentials (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			access_token TEXT NOT NULL,
			refresh_token TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);
	`

	_, err := s.db.Exec(schema)
	return err
}

// LoadCredentials retrieves the stored credential pair
func (s *SQLiteStorage) LoadCredentials(ctx context.Context) (*core.Credentials, error) {
	var creds core.Credentials
	var refresh sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT access_token, refresh_token FROM credentials WHERE id = 1
	`).Scan(&creds.AccessToken, &refresh)

	if err == sql.ErrNoRows {
		return nil, nil // Signed out
	}
	if err != nil {
		return nil, err
	}

	if refresh.Valid {
		creds.RefreshToken = refresh.String
	}

	return &creds, nil
}

// SaveCredentials saves or replaces the credential pair
func (s *SQLiteStorage) SaveCredentials(ctx context.Context, creds *core.Credentials) error {
	now := time.Now()

	var refresh sql.NullString
	if creds.RefreshToken != "" {
		refresh = sql.NullString{String: creds.RefreshToken, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credentials (id, access_token, refresh_token, created_at, updated_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			updated_at = excluded.updated_at
	`, creds.AccessToken, refresh, now, now)

	return err
}

// DeleteCredentials removes the credential pair
func (s *SQLiteStorage) DeleteCredentials(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM credentials WHERE id = 1")
	return err
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

var _ storage.Storage = (*SQLiteStorage)(nil)
