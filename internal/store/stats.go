package store

import (
	"context"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath          string        `json:"db_path"`
	DBSizeBytes     int64         `json:"db_size_bytes"`
	TotalKeys       int           `json:"total_keys"`
	TotalSuccessors int           `json:"total_successors"`
	SimpleResponses int           `json:"simple_responses"`
	TotalPosts      int           `json:"total_posts"`
	Replies         int           `json:"replies"`
	Corpora         []CorpusStats `json:"corpora"`
}

// CorpusStats holds per-corpus counts.
type CorpusStats struct {
	Name       string `json:"name"`
	Keys       int    `json:"keys"`
	Successors int    `json:"successors"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath}

	// DB file size
	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM (SELECT DISTINCT corpus, w1, w2 FROM transitions)`).Scan(&st.TotalKeys)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transitions`).Scan(&st.TotalSuccessors)
	s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT phrase) FROM simple_responses`).Scan(&st.SimpleResponses)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&st.TotalPosts)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts WHERE kind = 'reply'`).Scan(&st.Replies)

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.name,
		       COUNT(DISTINCT t.w1 || char(0) || t.w2) AS keys,
		       COUNT(t.successor) AS successors
		FROM corpora c LEFT JOIN transitions t ON t.corpus = c.name
		GROUP BY c.name ORDER BY successors DESC, c.name`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var cs CorpusStats
		rows.Scan(&cs.Name, &cs.Keys, &cs.Successors)
		st.Corpora = append(st.Corpora, cs)
	}

	return st, nil
}
