package store

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/rcliao/markovbot/internal/corpus"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB

	mu      sync.Mutex // guards entropy
	entropy *rand.Rand
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) newID(at time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(at), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS corpora (
		name        TEXT PRIMARY KEY,
		updated_at  TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS transitions (
		corpus      TEXT NOT NULL REFERENCES corpora(name) ON DELETE CASCADE,
		w1          TEXT NOT NULL,
		w2          TEXT NOT NULL,
		seq         INTEGER NOT NULL,
		successor   TEXT NOT NULL,
		PRIMARY KEY (corpus, w1, w2, seq)
	);

	CREATE TABLE IF NOT EXISTS simple_responses (
		phrase      TEXT NOT NULL,
		seq         INTEGER NOT NULL,
		reply       TEXT NOT NULL,
		PRIMARY KEY (phrase, seq)
	);

	CREATE TABLE IF NOT EXISTS posts (
		id          TEXT PRIMARY KEY,
		kind        TEXT NOT NULL DEFAULT 'post',
		remote_id   TEXT,
		in_reply_to TEXT,
		corpus      TEXT,
		text        TEXT NOT NULL,
		created_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_posts_created ON posts(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_posts_kind ON posts(kind);

	CREATE TABLE IF NOT EXISTS savepoints (
		key        TEXT PRIMARY KEY,
		term       TEXT NOT NULL,
		since_id   TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE VIRTUAL TABLE IF NOT EXISTS posts_fts USING fts5(
		text,
		content=posts,
		content_rowid=rowid
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// FTS5 triggers for automatic sync
	s.db.Exec(`CREATE TRIGGER IF NOT EXISTS posts_ai AFTER INSERT ON posts BEGIN
		INSERT INTO posts_fts(rowid, text) VALUES (new.rowid, new.text);
	END`)
	s.db.Exec(`CREATE TRIGGER IF NOT EXISTS posts_ad AFTER DELETE ON posts BEGIN
		INSERT INTO posts_fts(posts_fts, rowid, text) VALUES('delete', old.rowid, old.text);
	END`)

	return nil
}

// SaveSnapshot replaces every stored corpus and simple response in one transaction.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap corpus.Snapshot) error {
	now := time.Now().UTC().Format(time.RFC3339)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range []string{`DELETE FROM transitions`, `DELETE FROM corpora`, `DELETE FROM simple_responses`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clear snapshot: %w", err)
		}
	}

	insCorpus, err := tx.PrepareContext(ctx, `INSERT INTO corpora (name, updated_at) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer insCorpus.Close()
	insTrans, err := tx.PrepareContext(ctx,
		`INSERT INTO transitions (corpus, w1, w2, seq, successor) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer insTrans.Close()

	for name, entries := range snap.Corpora {
		if _, err := insCorpus.ExecContext(ctx, name, now); err != nil {
			return fmt.Errorf("insert corpus %q: %w", name, err)
		}
		for _, e := range entries {
			for i, succ := range e.Successors {
				if _, err := insTrans.ExecContext(ctx, name, e.W1, e.W2, i, succ); err != nil {
					return fmt.Errorf("insert transition: %w", err)
				}
			}
		}
	}

	for phrase, replies := range snap.SimpleResponses {
		for i, r := range replies {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO simple_responses (phrase, seq, reply) VALUES (?, ?, ?)`, phrase, i, r); err != nil {
				return fmt.Errorf("insert simple response: %w", err)
			}
		}
	}

	return tx.Commit()
}

// LoadSnapshot reads the stored collection.
func (s *SQLiteStore) LoadSnapshot(ctx context.Context) (corpus.Snapshot, error) {
	snap := corpus.Snapshot{
		Corpora:         map[string][]corpus.Entry{},
		SimpleResponses: map[string][]string{},
	}

	rows, err := s.db.QueryContext(ctx, `SELECT name FROM corpora`)
	if err != nil {
		return snap, err
	}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return snap, err
		}
		snap.Corpora[name] = []corpus.Entry{}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return snap, err
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT corpus, w1, w2, successor FROM transitions ORDER BY corpus, w1, w2, seq`)
	if err != nil {
		return snap, err
	}
	defer rows.Close()

	for rows.Next() {
		var name, w1, w2, succ string
		if err := rows.Scan(&name, &w1, &w2, &succ); err != nil {
			return snap, err
		}
		entries := snap.Corpora[name]
		if n := len(entries); n > 0 && entries[n-1].W1 == w1 && entries[n-1].W2 == w2 {
			entries[n-1].Successors = append(entries[n-1].Successors, succ)
		} else {
			entries = append(entries, corpus.Entry{W1: w1, W2: w2, Successors: []string{succ}})
		}
		snap.Corpora[name] = entries
	}
	if err := rows.Err(); err != nil {
		return snap, err
	}

	srows, err := s.db.QueryContext(ctx, `SELECT phrase, reply FROM simple_responses ORDER BY phrase, seq`)
	if err != nil {
		return snap, err
	}
	defer srows.Close()
	for srows.Next() {
		var phrase, reply string
		if err := srows.Scan(&phrase, &reply); err != nil {
			return snap, err
		}
		snap.SimpleResponses[phrase] = append(snap.SimpleResponses[phrase], reply)
	}
	return snap, srows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// parseSince parses a window like "7d", "24h", "30m" into a time.Duration.
var sinceRegex = regexp.MustCompile(`^(\d+)([dhms])$`)

func parseSince(s string) (time.Duration, error) {
	m := sinceRegex.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid format %q (use e.g. 7d, 24h, 30m, 60s)", s)
	}
	n, _ := strconv.Atoi(m[1])
	switch m[2] {
	case "d":
		return time.Duration(n) * 24 * time.Hour, nil
	case "h":
		return time.Duration(n) * time.Hour, nil
	case "m":
		return time.Duration(n) * time.Minute, nil
	case "s":
		return time.Duration(n) * time.Second, nil
	}
	return 0, fmt.Errorf("unknown unit %q", m[2])
}
