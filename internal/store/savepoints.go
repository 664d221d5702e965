package store

import (
	"context"
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// SavepointKey is the md5 hex digest of a search term.
func SavepointKey(term string) string {
	sum := md5.Sum([]byte(term))
	return hex.EncodeToString(sum[:])
}

// LoadSavepoint returns the since-id saved for term.
func (s *SQLiteStore) LoadSavepoint(ctx context.Context, term string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT since_id FROM savepoints WHERE key = ?`, SavepointKey(term)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load savepoint: %w", err)
	}
	return id, nil
}

// SaveSavepoint upserts the since-id for term. An empty id is ignored.
func (s *SQLiteStore) SaveSavepoint(ctx context.Context, term, sinceID string) error {
	if sinceID == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO savepoints (key, term, since_id, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET since_id = excluded.since_id, updated_at = excluded.updated_at`,
		SavepointKey(term), term, sinceID, time.Now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("save savepoint: %w", err)
	}
	return nil
}
