package store

import (
	"context"
	"time"

	"github.com/rcliao/markovbot/internal/corpus"
	"github.com/rcliao/markovbot/internal/model"
)

// ExportVersion is written into every export document.
const ExportVersion = 1

// Export is the portable form of a whole database.
type Export struct {
	Version    int                `json:"version"`
	ExportedAt time.Time          `json:"exported_at"`
	Snapshot   corpus.Snapshot    `json:"snapshot"`
	Posts      []model.PostRecord `json:"posts,omitempty"`
}

// ExportAll returns the stored snapshot and, optionally, the whole post log in
// insertion order.
func (s *SQLiteStore) ExportAll(ctx context.Context, withPosts bool) (*Export, error) {
	snap, err := s.LoadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	exp := &Export{Version: ExportVersion, ExportedAt: time.Now().UTC(), Snapshot: snap}
	if !withPosts {
		return exp, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, remote_id, in_reply_to, corpus, text, created_at FROM posts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		rec, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		exp.Posts = append(exp.Posts, rec)
	}
	return exp, rows.Err()
}

// ImportPosts stores posts from an export. Posts whose ID already exists are
// skipped. Returns the number of posts processed.
func (s *SQLiteStore) ImportPosts(ctx context.Context, posts []model.PostRecord) (int, error) {
	imported := 0
	for _, p := range posts {
		if _, err := s.insertPost(ctx, p); err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}
