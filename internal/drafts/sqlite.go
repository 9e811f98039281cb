package drafts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/jonathan/design-coach/internal/types"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS drafts (
	owner TEXT NOT NULL,
	topic TEXT NOT NULL,
	content TEXT NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (owner, topic)
);
CREATE INDEX IF NOT EXISTS idx_drafts_updated ON drafts(updated_at);
`

// SQLiteStore keeps drafts in a local SQLite file.
type SQLiteStore struct {
	db   *sql.DB
	path string
	now  Clock
}

// NewSQLiteStore opens (and creates if needed) the SQLite database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create drafts table: %w", err)
	}

	return &SQLiteStore{db: db, path: path, now: utcNow}, nil
}

// WithClock replaces the clock used to stamp saved drafts.
func (s *SQLiteStore) WithClock(now Clock) *SQLiteStore {
	s.now = now
	return s
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Load implements Store.
func (s *SQLiteStore) Load(ctx context.Context, key Key) (*types.Draft, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	var content string
	err := s.db.QueryRowContext(ctx,
		`SELECT content FROM drafts WHERE owner = ? AND topic = ?`,
		key.Owner, key.Topic,
	).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return types.NewDraft(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load draft %s: %w", key, err)
	}
	return Decode([]byte(content)), nil
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, key Key, draft *types.Draft) error {
	if err := key.Validate(); err != nil {
		return err
	}

	prepared := Prepare(draft, s.now())
	data, err := Encode(prepared)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO drafts (owner, topic, content, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(owner, topic) DO UPDATE SET content = excluded.content, updated_at = excluded.updated_at`,
		key.Owner, key.Topic, string(data), *prepared.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save draft %s: %w", key, err)
	}
	return nil
}

// Clear implements Store.
func (s *SQLiteStore) Clear(ctx context.Context, key Key) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM drafts WHERE owner = ? AND topic = ?`, key.Owner, key.Topic); err != nil {
		return fmt.Errorf("failed to clear draft %s: %w", key, err)
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
