package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rcliao/markovbot/internal/model"
)

// timeLayout sorts lexically in UTC.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// RecordPost stores an outbound post under a fresh ULID.
func (s *SQLiteStore) RecordPost(ctx context.Context, rec model.PostRecord) error {
	_, err := s.insertPost(ctx, rec)
	return err
}

func (s *SQLiteStore) insertPost(ctx context.Context, rec model.PostRecord) (model.PostRecord, error) {
	if rec.Kind == "" {
		rec.Kind = model.KindPost
	}
	if !model.ValidKinds[rec.Kind] {
		return rec, fmt.Errorf("%w: unknown post kind %q", model.ErrConfiguration, rec.Kind)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.ID == "" {
		rec.ID = s.newID(rec.CreatedAt)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO posts (id, kind, remote_id, in_reply_to, corpus, text, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Kind, nullable(rec.RemoteID), nullable(rec.InReplyToID), nullable(rec.Corpus),
		rec.Text, rec.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return rec, fmt.Errorf("insert post: %w", err)
	}
	return rec, nil
}

// ListPosts returns recorded posts matching p, newest first.
func (s *SQLiteStore) ListPosts(ctx context.Context, p ListParams) ([]model.PostRecord, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}

	where := []string{"1 = 1"}
	var args []interface{}
	if p.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, p.Kind)
	}
	if p.Corpus != "" {
		where = append(where, "corpus = ?")
		args = append(args, p.Corpus)
	}
	if p.Since != "" {
		d, err := parseSince(p.Since)
		if err != nil {
			return nil, fmt.Errorf("invalid since: %w", err)
		}
		where = append(where, "created_at >= ?")
		args = append(args, time.Now().UTC().Add(-d).Format(timeLayout))
	}

	query := fmt.Sprintf(`
		SELECT id, kind, remote_id, in_reply_to, corpus, text, created_at
		FROM posts
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, strings.Join(where, " AND "))
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []model.PostRecord
	for rows.Next() {
		rec, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, rec)
	}
	return posts, rows.Err()
}

func scanPost(row scanner) (model.PostRecord, error) {
	var rec model.PostRecord
	var remoteID, inReplyTo, corpusName sql.NullString
	var createdAt string

	if err := row.Scan(&rec.ID, &rec.Kind, &remoteID, &inReplyTo, &corpusName, &rec.Text, &createdAt); err != nil {
		return rec, err
	}
	rec.RemoteID = remoteID.String
	rec.InReplyToID = inReplyTo.String
	rec.Corpus = corpusName.String
	rec.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	return rec, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
