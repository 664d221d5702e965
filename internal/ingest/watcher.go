package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/rcliao/markovbot/internal/corpus"
)

// DefaultDebounce is how long a file must stay quiet before it is ingested.
const DefaultDebounce = 500 * time.Millisecond

// WatchOptions configures a Watcher.
type WatchOptions struct {
	// Corpus receives every file. Empty means one corpus per file name.
	Corpus string
	// Debounce defaults to DefaultDebounce.
	Debounce time.Duration
	// OnIngest runs after each successful ingest, typically to save a snapshot.
	OnIngest func(ctx context.Context, r Result) error
	Logger   *zap.Logger
}

// Watcher ingests *.txt files dropped into or rewritten in a directory. In
// per-file mode a rewrite replaces that file's corpus; a shared corpus only
// grows.
type Watcher struct {
	dir  string
	coll *corpus.Collection
	opts WatchOptions
	log  *zap.Logger
	fsw  *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]time.Time
}

// NewWatcher creates dir if needed and starts watching it.
func NewWatcher(dir string, coll *corpus.Collection, opts WatchOptions) (*Watcher, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create watch dir: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{
		dir:     dir,
		coll:    coll,
		opts:    opts,
		log:     log.With(zap.String("dir", dir)),
		fsw:     fsw,
		pending: make(map[string]time.Time),
	}, nil
}

// Run processes events until ctx is cancelled, then releases the watch.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	tick := time.NewTicker(w.opts.Debounce / 4)
	defer tick.Stop()

	w.log.Info("watching corpus directory")
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", zap.Error(err))
		case <-tick.C:
			w.flush(ctx)
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if !strings.EqualFold(filepath.Ext(ev.Name), ".txt") {
		return
	}
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}
	w.mu.Lock()
	w.pending[ev.Name] = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) flush(ctx context.Context) {
	now := time.Now()
	var ready []string
	w.mu.Lock()
	for path, at := range w.pending {
		if now.Sub(at) >= w.opts.Debounce {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	for _, path := range ready {
		w.ingest(ctx, path)
	}
}

func (w *Watcher) ingest(ctx context.Context, path string) {
	name := w.opts.Corpus
	if name == "" {
		name = CorpusForFile(path)
	}
	results, err := Files(ctx, w.coll, []string{path}, name, w.opts.Corpus == "")
	if err != nil {
		w.log.Warn("ingest failed", zap.String("file", path), zap.Error(err))
		return
	}
	r := results[0]
	w.log.Info("ingested file", zap.String("file", path), zap.String("corpus", r.Corpus), zap.Int("triples", r.Triples))
	if w.opts.OnIngest == nil {
		return
	}
	if err := w.opts.OnIngest(ctx, r); err != nil {
		w.log.Error("post-ingest hook failed", zap.String("file", path), zap.Error(err))
	}
}
