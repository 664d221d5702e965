package ingest

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rcliao/markovbot/internal/corpus"
)

type hookLog struct {
	mu      sync.Mutex
	results []Result
}

func (h *hookLog) record(_ context.Context, r Result) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.results = append(h.results, r)
	return nil
}

func (h *hookLog) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.results)
}

func startWatcher(t *testing.T, dir string, opts WatchOptions) *corpus.Collection {
	t.Helper()
	coll := corpus.New()
	opts.Debounce = 20 * time.Millisecond
	opts.Logger = zap.NewNop()
	w, err := NewWatcher(dir, coll, opts)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return coll
}

func TestWatcher_PerFileCorpus(t *testing.T) {
	dir := t.TempDir()
	hooks := &hookLog{}
	coll := startWatcher(t, dir, WatchOptions{OnIngest: hooks.record})

	require.NoError(t, os.WriteFile(filepath.Join(dir, "news.txt"), []byte("The cat sat. The cat ran."), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("ignored words here"), 0644))

	require.Eventually(t, func() bool { return !coll.IsEmpty("news") }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return hooks.len() >= 1 }, time.Second, 10*time.Millisecond)
	assert.False(t, coll.Exists("notes"))

	hooks.mu.Lock()
	assert.Equal(t, "news", hooks.results[0].Corpus)
	hooks.mu.Unlock()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "news.txt"), []byte("one two three"), 0644))
	require.Eventually(t, func() bool {
		keys, _ := coll.KeysContaining("news", "one")
		return len(keys) == 1
	}, 2*time.Second, 10*time.Millisecond)
	keys, _ := coll.KeysContaining("news", "cat")
	assert.Empty(t, keys, "rewrite replaces the per-file corpus")
}

func TestWatcher_SharedCorpus(t *testing.T) {
	dir := t.TempDir()
	coll := startWatcher(t, dir, WatchOptions{Corpus: "shared"})

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("one two three"), 0644))
	require.Eventually(t, func() bool { return !coll.IsEmpty("shared") }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("four five six"), 0644))
	require.Eventually(t, func() bool {
		keys, _ := coll.Size("shared")
		return keys == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestNewWatcher_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "corpora")
	w, err := NewWatcher(dir, corpus.New(), WatchOptions{})
	require.NoError(t, err)
	require.NoError(t, w.fsw.Close())

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
