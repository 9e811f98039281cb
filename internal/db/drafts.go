package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/design-coach/internal/drafts"
	"github.com/jonathan/design-coach/internal/types"
)

// DraftStore implements drafts.Store on PostgreSQL.
type DraftStore struct {
	db  *DB
	now drafts.Clock
}

// NewDraftStore creates a draft store on an open connection pool. The store owns db and
// closes it on Close.
func NewDraftStore(db *DB) *DraftStore {
	return &DraftStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// OpenDraftStore connects to databaseURL, runs the migration and returns the store.
func OpenDraftStore(ctx context.Context, databaseURL string) (*DraftStore, error) {
	db, err := Connect(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return NewDraftStore(db), nil
}

// Load implements drafts.Store.
func (s *DraftStore) Load(ctx context.Context, key drafts.Key) (*types.Draft, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	var content []byte
	err := s.db.pool.QueryRow(ctx,
		`SELECT content FROM drafts WHERE owner = $1 AND topic = $2`,
		key.Owner, key.Topic,
	).Scan(&content)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.NewDraft(), nil
		}
		return nil, fmt.Errorf("failed to load draft %s: %w", key, err)
	}
	return drafts.Decode(content), nil
}

// Save implements drafts.Store.
func (s *DraftStore) Save(ctx context.Context, key drafts.Key, draft *types.Draft) error {
	if err := key.Validate(); err != nil {
		return err
	}

	prepared := drafts.Prepare(draft, s.now())
	content, err := drafts.Encode(prepared)
	if err != nil {
		return err
	}

	_, err = s.db.pool.Exec(ctx,
		`INSERT INTO drafts (owner, topic, content, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (owner, topic) DO UPDATE SET content = $3, updated_at = $4`,
		key.Owner, key.Topic, content, *prepared.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save draft %s: %w", key, err)
	}
	return nil
}

// Clear implements drafts.Store.
func (s *DraftStore) Clear(ctx context.Context, key drafts.Key) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if _, err := s.db.pool.Exec(ctx, `DELETE FROM drafts WHERE owner = $1 AND topic = $2`, key.Owner, key.Topic); err != nil {
		return fmt.Errorf("failed to clear draft %s: %w", key, err)
	}
	return nil
}

// ListTopics returns the topic slugs an owner has drafts for, most recently updated first.
func (s *DraftStore) ListTopics(ctx context.Context, owner string) ([]string, error) {
	rows, err := s.db.pool.Query(ctx,
		`SELECT topic FROM drafts WHERE owner = $1 ORDER BY updated_at DESC`,
		owner,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	defer rows.Close()

	topics := []string{}
	for rows.Next() {
		var topic string
		if err := rows.Scan(&topic); err != nil {
			return nil, fmt.Errorf("failed to scan draft topic: %w", err)
		}
		topics = append(topics, topic)
	}
	return topics, rows.Err()
}

// Close implements drafts.Store.
func (s *DraftStore) Close() error {
	s.db.Close()
	return nil
}

var _ drafts.Store = (*DraftStore)(nil)
