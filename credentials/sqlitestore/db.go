package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jrsteele09/pigmy-admin/credentials"
	"github.com/jrsteele09/pigmy-admin/internal/errors"
	_ "modernc.org/sqlite"
)

var _ credentials.Storage = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS credentials (
    session_key TEXT PRIMARY KEY,
    token BLOB NOT NULL,
    user_json BLOB,
    user_type TEXT NOT NULL DEFAULT '',
    stored_at TIMESTAMP NOT NULL
);`

// Store is the primary, durable credential store backed by SQLite.
type Store struct {
	db     *sql.DB
	sealer *credentials.Sealer
}

// Open creates (if needed) and opens the database at path. Tokens are sealed
// with sealer when it is non-nil.
func Open(path string, sealer *credentials.Sealer) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY between pooled connections
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Store{db: db, sealer: sealer}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Set(ctx context.Context, key string, record credentials.Record) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}
	token, err := s.sealer.Seal([]byte(record.Token))
	if err != nil {
		return err
	}
	storedAt := record.Timestamp
	if storedAt.IsZero() {
		storedAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO credentials (session_key, token, user_json, user_type, stored_at) VALUES (?, ?, ?, ?, ?)
ON CONFLICT(session_key) DO UPDATE SET
    token = excluded.token, user_json = excluded.user_json, user_type = excluded.user_type, stored_at = excluded.stored_at`,
		key, token, []byte(record.User), record.UserType, storedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (credentials.Record, error) {
	if key == "" {
		return credentials.Record{}, fmt.Errorf("key is required")
	}

	var (
		sealed   []byte
		user     []byte
		userType string
		storedAt time.Time
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT token, user_json, user_type, stored_at FROM credentials WHERE session_key = ?`, key,
	).Scan(&sealed, &user, &userType, &storedAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return credentials.Record{}, errors.ErrCredentialsNotFound
	}
	if err != nil {
		return credentials.Record{}, fmt.Errorf("failed to read credentials: %w", err)
	}

	token, err := s.sealer.Open(sealed)
	if err != nil {
		return credentials.Record{}, err
	}
	record := credentials.Record{Token: string(token), UserType: userType, Timestamp: storedAt}
	if user != nil {
		record.User = json.RawMessage(user)
	}
	return record, nil
}

func (s *Store) Clear(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE session_key = ?`, key); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}
