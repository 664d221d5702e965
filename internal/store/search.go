package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/rcliao/markovbot/internal/model"
)

// SearchPosts finds recorded posts whose text matches every word of the query.
func (s *SQLiteStore) SearchPosts(ctx context.Context, p SearchParams) ([]model.PostRecord, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}
	terms := strings.Fields(p.Query)
	if len(terms) == 0 {
		return nil, fmt.Errorf("%w: empty search query", model.ErrConfiguration)
	}
	// Quote each term so punctuation never reaches the FTS5 query parser.
	for i, t := range terms {
		terms[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}

	where := []string{"posts_fts MATCH ?"}
	args := []interface{}{strings.Join(terms, " ")}
	if p.Kind != "" {
		where = append(where, "p.kind = ?")
		args = append(args, p.Kind)
	}

	sql := fmt.Sprintf(`
		SELECT p.id, p.kind, p.remote_id, p.in_reply_to, p.corpus, p.text, p.created_at
		FROM posts_fts
		INNER JOIN posts p ON p.rowid = posts_fts.rowid
		WHERE %s
		ORDER BY p.created_at DESC
		LIMIT ?`, strings.Join(where, " AND "))
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.PostRecord
	for rows.Next() {
		rec, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}
