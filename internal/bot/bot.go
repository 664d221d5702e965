// Package bot runs the auto-reply, auto-post and reshare workers and the
// supervisor that keeps them alive.
package bot

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/rcliao/markovbot/internal/corpus"
	"github.com/rcliao/markovbot/internal/metrics"
	"github.com/rcliao/markovbot/internal/model"
	"github.com/rcliao/markovbot/internal/session"
	"github.com/rcliao/markovbot/internal/tweet"
)

// DefaultInterval is the auto-post interval used when none is configured.
const DefaultInterval = 24 * time.Hour

// ReplyConfig drives the auto-reply worker.
type ReplyConfig struct {
	Target       string
	Keywords     []string
	Prefix       Choice
	Suffix       Choice
	Corpus       CorpusPolicy
	MaxConvDepth int
	MinDelay     time.Duration
}

// PostConfig drives the auto-post worker.
type PostConfig struct {
	Keywords Choice
	Prefix   Choice
	Suffix   Choice
	Corpus   CorpusPolicy
	Interval time.Duration
	Jitter   time.Duration // rounded down to whole minutes
}

// Recorder persists outbound posts.
type Recorder interface {
	RecordPost(ctx context.Context, rec model.PostRecord) error
}

// Options tune a Bot. Zero values pick production defaults.
type Options struct {
	Limit        int
	MaxAttempts  int
	PollInterval time.Duration
	Rand         *rand.Rand
	Recorder     Recorder
	Savepoints   Savepoints
	Metrics      *metrics.Metrics
	Logger       *zap.Logger
}

// Bot holds the shared state of the posting workers.
type Bot struct {
	session    *session.Manager
	corpora    *corpus.Collection
	builder    *tweet.Builder
	recorder   Recorder
	savepoints Savepoints
	metrics    *metrics.Metrics
	logger     *zap.Logger
	poll       time.Duration

	rngMu sync.Mutex
	rng   *rand.Rand

	replyCfg atomic.Pointer[ReplyConfig]
	replyOn  atomic.Bool
	postCfg  atomic.Pointer[PostConfig]
	postOn   atomic.Bool

	reshareCfg atomic.Pointer[ReshareConfig]
	reshareOn  atomic.Bool

	lastIn  atomic.Pointer[model.Item]
	lastOut atomic.Pointer[model.PostRecord]
}

// New wires a bot around an existing session and corpus collection.
func New(sess *session.Manager, coll *corpus.Collection, gen tweet.Generator, opts Options) *Bot {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Bot{
		session:    sess,
		corpora:    coll,
		builder:    tweet.NewBuilder(gen, opts.Limit, opts.MaxAttempts),
		recorder:   opts.Recorder,
		savepoints: opts.Savepoints,
		metrics:    opts.Metrics,
		logger:     opts.Logger,
		poll:       opts.PollInterval,
		rng:        opts.Rand,
	}
}

// StartAutoReply enables the reply worker with cfg, replacing any previous
// configuration.
func (b *Bot) StartAutoReply(cfg ReplyConfig) error {
	if strings.TrimSpace(cfg.Target) == "" {
		return fmt.Errorf("%w: auto-reply needs a target phrase", model.ErrConfiguration)
	}
	if cfg.Corpus.Kind == PolicySimpleResponse {
		if _, ok := b.corpora.SimpleResponses(cfg.Target); !ok {
			return fmt.Errorf("%w: no simple responses for %q, set some first", model.ErrConfiguration, cfg.Target)
		}
	}
	if cfg.MinDelay < 0 {
		cfg.MinDelay = 0
	}
	cfg.Keywords = append([]string(nil), cfg.Keywords...)
	b.replyCfg.Store(&cfg)
	b.replyOn.Store(true)
	b.logger.Info("auto-reply started",
		zap.String("target", cfg.Target),
		zap.Stringer("corpus", cfg.Corpus),
		zap.Int("max_conv_depth", cfg.MaxConvDepth),
		zap.Duration("min_delay", cfg.MinDelay))
	return nil
}

// StopAutoReply disables the reply worker and clears its configuration. Safe to
// call when already stopped.
func (b *Bot) StopAutoReply() {
	if b.replyOn.Swap(false) {
		b.logger.Info("auto-reply stopped")
	}
	b.replyCfg.Store(nil)
}

// StartAutoPost enables the periodic post worker with cfg.
func (b *Bot) StartAutoPost(cfg PostConfig) error {
	switch cfg.Corpus.Kind {
	case PolicyByLanguage, PolicySimpleResponse:
		return fmt.Errorf("%w: auto-post cannot use the %s corpus policy", model.ErrConfiguration, cfg.Corpus.Kind)
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Jitter < 0 {
		cfg.Jitter = -cfg.Jitter
	}
	b.postCfg.Store(&cfg)
	b.postOn.Store(true)
	b.logger.Info("auto-post started",
		zap.Stringer("corpus", cfg.Corpus),
		zap.Duration("interval", cfg.Interval),
		zap.Duration("jitter", cfg.Jitter))
	return nil
}

// StopAutoPost disables the post worker and clears its configuration.
func (b *Bot) StopAutoPost() {
	if b.postOn.Swap(false) {
		b.logger.Info("auto-post stopped")
	}
	b.postCfg.Store(nil)
}

// ReplyConfig returns the active reply configuration, nil when stopped.
func (b *Bot) ReplyConfig() *ReplyConfig { return b.replyCfg.Load() }

// PostConfig returns the active post configuration, nil when stopped.
func (b *Bot) PostConfig() *PostConfig { return b.postCfg.Load() }

// Status is a point-in-time view of the bot.
type Status struct {
	LoggedIn     bool
	AutoReplying bool
	AutoPosting  bool
	Resharing    bool
	Excluded     int
	LastIncoming *model.Item
	LastOutgoing *model.PostRecord
}

// Status reports the current state.
func (b *Bot) Status() Status {
	return Status{
		LoggedIn:     b.session.LoggedIn(),
		AutoReplying: b.replyOn.Load(),
		AutoPosting:  b.postOn.Load(),
		Resharing:    b.reshareOn.Load(),
		Excluded:     b.session.Excluded().Len(),
		LastIncoming: b.lastIn.Load(),
		LastOutgoing: b.lastOut.Load(),
	}
}

func (b *Bot) withRand(fn func(*rand.Rand)) {
	b.rngMu.Lock()
	defer b.rngMu.Unlock()
	fn(b.rng)
}

func (b *Bot) resolve(c Choice) (string, bool) {
	var (
		v  string
		ok bool
	)
	b.withRand(func(r *rand.Rand) { v, ok = c.Resolve(r) })
	return v, ok
}

func (b *Bot) corpusFor(p CorpusPolicy, item *model.Item, log *zap.Logger) string {
	var name string
	b.withRand(func(r *rand.Rand) { name = resolveCorpus(p, item, b.corpora, r, log) })
	return name
}

// record keeps the last outbound post and hands it to the recorder.
func (b *Bot) record(ctx context.Context, kind, corpusName string, p model.PostedItem, log *zap.Logger) {
	rec := model.PostRecord{
		Kind:        kind,
		RemoteID:    p.ID,
		InReplyToID: p.InReplyToID,
		Corpus:      corpusName,
		Text:        p.Text,
		CreatedAt:   p.CreatedAt,
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	b.lastOut.Store(&rec)
	if b.recorder == nil {
		return
	}
	if err := b.recorder.RecordPost(ctx, rec); err != nil {
		log.Warn("failed to record post", zap.Error(err))
	}
}

// sleep waits d or until ctx is done. It reports whether ctx is still live.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
