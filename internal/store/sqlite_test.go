package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/rcliao/markovbot/internal/corpus"
	"github.com/rcliao/markovbot/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSQLiteStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleCollection(t *testing.T) *corpus.Collection {
	t.Helper()
	c := corpus.New()
	if _, err := c.Ingest("The cat sat. The cat ran. The dog sat.", corpus.DefaultName, false); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if _, err := c.Ingest("Der Hund lief. Der Hund sass.", "de", false); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if _, err := c.Ingest("too short", "empty", false); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if err := c.SetSimpleResponses(map[string]any{"hello": []any{"Hi!", "Hey!"}, "bye": "Later."}, false); err != nil {
		t.Fatalf("simple responses: %v", err)
	}
	return c
}

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	src := sampleCollection(t)

	if err := s.SaveSnapshot(ctx, src.Snapshot()); err != nil {
		t.Fatalf("save: %v", err)
	}
	snap, err := s.LoadSnapshot(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	dst := corpus.New()
	dst.Merge(snap, false)
	if !reflect.DeepEqual(src.Snapshot(), dst.Snapshot()) {
		t.Errorf("round trip mismatch:\nwant %+v\ngot  %+v", src.Snapshot(), dst.Snapshot())
	}
	if !dst.Exists("empty") {
		t.Error("expected empty corpus to survive the round trip")
	}
}

func TestSaveSnapshotReplaces(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.SaveSnapshot(ctx, sampleCollection(t).Snapshot()); err != nil {
		t.Fatalf("save: %v", err)
	}
	next := corpus.New()
	next.Ingest("a b c", "only", false)
	if err := s.SaveSnapshot(ctx, next.Snapshot()); err != nil {
		t.Fatalf("save again: %v", err)
	}

	snap, _ := s.LoadSnapshot(ctx)
	if _, ok := snap.Corpora["de"]; ok {
		t.Error("expected old corpus to be replaced")
	}
	if len(snap.SimpleResponses) != 0 {
		t.Errorf("expected no simple responses, got %v", snap.SimpleResponses)
	}
	want := []corpus.Entry{{W1: "a", W2: "b", Successors: []string{"c"}}}
	if !reflect.DeepEqual(snap.Corpora["only"], want) {
		t.Errorf("expected %v, got %v", want, snap.Corpora["only"])
	}
}

func TestLoadEmptyStore(t *testing.T) {
	snap, err := newTestStore(t).LoadSnapshot(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(snap.Corpora) != 0 || len(snap.SimpleResponses) != 0 {
		t.Errorf("expected empty snapshot, got %+v", snap)
	}
}

func TestRecordAndListPosts(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	base := time.Now().UTC().Add(-time.Hour)

	s.RecordPost(ctx, model.PostRecord{Kind: model.KindPost, RemoteID: "100", Corpus: "default", Text: "First post.", CreatedAt: base})
	s.RecordPost(ctx, model.PostRecord{Kind: model.KindReply, RemoteID: "101", InReplyToID: "42", Corpus: "de", Text: "@alice Hallo.", CreatedAt: base.Add(time.Minute)})
	s.RecordPost(ctx, model.PostRecord{Text: "Old news.", CreatedAt: base.Add(-48 * time.Hour)})

	all, err := s.ListPosts(ctx, ListParams{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3, got %d", len(all))
	}
	if all[0].RemoteID != "101" || all[0].InReplyToID != "42" {
		t.Errorf("expected newest reply first, got %+v", all[0])
	}
	if all[2].Kind != model.KindPost {
		t.Errorf("expected default kind %q, got %q", model.KindPost, all[2].Kind)
	}
	if all[0].ID == "" || all[0].ID == all[1].ID {
		t.Error("expected distinct ULIDs")
	}

	replies, _ := s.ListPosts(ctx, ListParams{Kind: model.KindReply})
	if len(replies) != 1 {
		t.Errorf("expected 1 reply, got %d", len(replies))
	}

	recent, _ := s.ListPosts(ctx, ListParams{Since: "1d"})
	if len(recent) != 2 {
		t.Errorf("expected 2 within a day, got %d", len(recent))
	}

	limited, _ := s.ListPosts(ctx, ListParams{Limit: 1})
	if len(limited) != 1 {
		t.Errorf("expected limit 1, got %d", len(limited))
	}

	if _, err := s.ListPosts(ctx, ListParams{Since: "soon"}); err == nil {
		t.Error("expected error for bad since")
	}
}

func TestRecordPostRejectsUnknownKind(t *testing.T) {
	err := newTestStore(t).RecordPost(context.Background(), model.PostRecord{Kind: "retweet", Text: "x"})
	if !errors.Is(err, model.ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestSearchPosts(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	s.RecordPost(ctx, model.PostRecord{Text: "The quick brown fox jumps."})
	s.RecordPost(ctx, model.PostRecord{Kind: model.KindReply, Text: "@bob The fox never does!"})
	s.RecordPost(ctx, model.PostRecord{Text: "The lazy dog sleeps."})

	results, err := s.SearchPosts(ctx, SearchParams{Query: "fox"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	results, _ = s.SearchPosts(ctx, SearchParams{Query: "fox", Kind: model.KindReply})
	if len(results) != 1 {
		t.Fatalf("expected 1 reply, got %d", len(results))
	}

	results, err = s.SearchPosts(ctx, SearchParams{Query: `"unbalanced`})
	if err != nil {
		t.Fatalf("quoted search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}

	if _, err := s.SearchPosts(ctx, SearchParams{Query: "  "}); !errors.Is(err, model.ErrConfiguration) {
		t.Errorf("expected configuration error for empty query, got %v", err)
	}
}

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	src := newTestStore(t)
	src.SaveSnapshot(ctx, sampleCollection(t).Snapshot())
	src.RecordPost(ctx, model.PostRecord{Text: "One."})
	src.RecordPost(ctx, model.PostRecord{Text: "Two."})

	exp, err := src.ExportAll(ctx, true)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if exp.Version != ExportVersion || len(exp.Posts) != 2 {
		t.Fatalf("unexpected export: version %d, %d posts", exp.Version, len(exp.Posts))
	}

	dst := newTestStore(t)
	if err := dst.SaveSnapshot(ctx, exp.Snapshot); err != nil {
		t.Fatalf("save: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := dst.ImportPosts(ctx, exp.Posts); err != nil {
			t.Fatalf("import: %v", err)
		}
	}
	posts, _ := dst.ListPosts(ctx, ListParams{})
	if len(posts) != 2 {
		t.Errorf("expected duplicates to be skipped, got %d posts", len(posts))
	}

	noPosts, _ := src.ExportAll(ctx, false)
	if len(noPosts.Posts) != 0 {
		t.Error("expected posts to be omitted")
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "stats.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	s.SaveSnapshot(ctx, sampleCollection(t).Snapshot())
	s.RecordPost(ctx, model.PostRecord{Kind: model.KindReply, Text: "@a hi."})

	st, err := s.Stats(ctx, dbPath)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.TotalSuccessors == 0 || st.TotalKeys == 0 || st.TotalKeys > st.TotalSuccessors {
		t.Errorf("unexpected key/successor counts: %d/%d", st.TotalKeys, st.TotalSuccessors)
	}
	if st.SimpleResponses != 2 {
		t.Errorf("expected 2 simple response phrases, got %d", st.SimpleResponses)
	}
	if st.TotalPosts != 1 || st.Replies != 1 {
		t.Errorf("expected 1 post and 1 reply, got %d/%d", st.TotalPosts, st.Replies)
	}
	if len(st.Corpora) != 3 {
		t.Errorf("expected 3 corpora, got %d", len(st.Corpora))
	}
	if st.DBPath != dbPath {
		t.Errorf("expected db path %q, got %q", dbPath, st.DBPath)
	}
}

func TestDBPathCreation(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sub", "dir", "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("expected db file to be created")
	}
}

func TestSavepoints(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, err := s.LoadSavepoint(ctx, "golang news")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if id != "" {
		t.Errorf("expected no savepoint, got %q", id)
	}

	if err := s.SaveSavepoint(ctx, "golang news", "100"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.SaveSavepoint(ctx, "golang news", "250"); err != nil {
		t.Fatalf("save again: %v", err)
	}
	if err := s.SaveSavepoint(ctx, "golang news", ""); err != nil {
		t.Fatalf("save empty: %v", err)
	}
	s.SaveSavepoint(ctx, "rust news", "7")

	if id, _ := s.LoadSavepoint(ctx, "golang news"); id != "250" {
		t.Errorf("expected 250, got %q", id)
	}
	if id, _ := s.LoadSavepoint(ctx, "rust news"); id != "7" {
		t.Errorf("expected 7, got %q", id)
	}

	var key string
	s.db.QueryRowContext(ctx, `SELECT key FROM savepoints WHERE term = ?`, "golang news").Scan(&key)
	if key != SavepointKey("golang news") || len(key) != 32 {
		t.Errorf("expected md5 key, got %q", key)
	}
}
