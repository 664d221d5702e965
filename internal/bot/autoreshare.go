package bot

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rcliao/markovbot/internal/metrics"
	"github.com/rcliao/markovbot/internal/model"
	"github.com/rcliao/markovbot/internal/session"
)

// WorkerAutoReshare names the search-and-reshare worker in logs and metrics.
const WorkerAutoReshare = "resharer"

// Reshare worker defaults.
const (
	DefaultReshareInterval = 30 * time.Minute
	DefaultReshareFetch    = 100
)

// Savepoints remembers the newest item seen per search term.
type Savepoints interface {
	LoadSavepoint(ctx context.Context, term string) (string, error)
	SaveSavepoint(ctx context.Context, term, sinceID string) error
}

// ReshareConfig drives the reshare worker.
type ReshareConfig struct {
	Term          string
	Lang          string
	WordBlacklist []string
	UserBlacklist []string
	MaxAge        time.Duration // zero keeps items of any age
	MaxFetch      int
	Interval      time.Duration
	DryRun        bool
}

// ReshareResult describes one reshare cycle.
type ReshareResult struct {
	Found      int              `json:"found"`
	Candidates int              `json:"candidates"`
	SinceID    string           `json:"since_id,omitempty"`
	Reshared   *model.Item      `json:"reshared,omitempty"`
	Posted     model.PostedItem `json:"posted"`
}

// StartAutoReshare enables the reshare worker with cfg.
func (b *Bot) StartAutoReshare(cfg ReshareConfig) error {
	cfg, err := normalizeReshare(cfg)
	if err != nil {
		return err
	}
	b.reshareCfg.Store(&cfg)
	b.reshareOn.Store(true)
	b.logger.Info("auto-reshare started",
		zap.String("term", cfg.Term),
		zap.String("lang", cfg.Lang),
		zap.Duration("interval", cfg.Interval),
		zap.Bool("dry_run", cfg.DryRun))
	return nil
}

// StopAutoReshare disables the reshare worker and clears its configuration.
func (b *Bot) StopAutoReshare() {
	if b.reshareOn.Swap(false) {
		b.logger.Info("auto-reshare stopped")
	}
	b.reshareCfg.Store(nil)
}

// ReshareConfig returns the active reshare configuration, nil when stopped.
func (b *Bot) ReshareConfig() *ReshareConfig { return b.reshareCfg.Load() }

// ReshareNow runs one search-and-reshare cycle outside the schedule.
func (b *Bot) ReshareNow(ctx context.Context, cfg ReshareConfig) (ReshareResult, error) {
	if !b.session.LoggedIn() {
		return ReshareResult{}, model.ErrNotLoggedIn
	}
	cfg, err := normalizeReshare(cfg)
	if err != nil {
		return ReshareResult{}, err
	}
	return b.reshareOnce(ctx, &cfg, b.logger.With(zap.String("worker", WorkerAutoReshare)))
}

func normalizeReshare(cfg ReshareConfig) (ReshareConfig, error) {
	cfg.Term = strings.TrimSpace(cfg.Term)
	if cfg.Term == "" {
		return cfg, fmt.Errorf("%w: auto-reshare needs a search term", model.ErrConfiguration)
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultReshareInterval
	}
	if cfg.MaxFetch <= 0 {
		cfg.MaxFetch = DefaultReshareFetch
	}
	if cfg.MaxAge < 0 {
		cfg.MaxAge = 0
	}
	cfg.WordBlacklist = append([]string(nil), cfg.WordBlacklist...)
	cfg.UserBlacklist = append([]string(nil), cfg.UserBlacklist...)
	return cfg, nil
}

// autoReshare is the reshare worker loop. It returns when ctx is done.
func (b *Bot) autoReshare(ctx context.Context) {
	log := b.logger.With(zap.String("worker", WorkerAutoReshare))
	for sleep(ctx, b.poll) {
		for b.reshareOn.Load() && b.session.LoggedIn() {
			cfg := b.reshareCfg.Load()
			if cfg == nil {
				break
			}
			if _, err := b.reshareOnce(ctx, cfg, log); err != nil {
				log.Error("reshare cycle failed", zap.Error(err))
			}
			if !sleep(ctx, cfg.Interval) {
				return
			}
		}
	}
}

// reshareOnce searches for new items since the savepoint, reshares the most
// reshared one that passes the filters and moves the savepoint forward. A
// failed reshare falls through to the next candidate.
func (b *Bot) reshareOnce(ctx context.Context, cfg *ReshareConfig, log *zap.Logger) (ReshareResult, error) {
	var res ReshareResult
	since := ""
	if b.savepoints != nil {
		var err error
		if since, err = b.savepoints.LoadSavepoint(ctx, cfg.Term); err != nil {
			log.Warn("failed to load savepoint", zap.Error(err))
		}
	}
	if since == "" {
		log.Info("no savepoint, fetching as many results as possible", zap.String("term", cfg.Term))
	}

	items, err := b.session.Search(ctx, session.SearchQuery{
		Term:    cfg.Term,
		Lang:    cfg.Lang,
		SinceID: since,
		Limit:   cfg.MaxFetch,
	})
	if err != nil {
		return res, fmt.Errorf("search %q: %w", cfg.Term, err)
	}
	b.metrics.ItemsSeen.Add(float64(len(items)))
	res.Found = len(items)
	res.SinceID = newestID(items, since)

	slices.SortStableFunc(items, func(x, y model.Item) int { return y.ReshareCount - x.ReshareCount })
	var me model.Identity
	if id, ok := b.session.Identity(); ok {
		me = id
	}
	candidates := filterCandidates(items, cfg, me, time.Now())
	res.Candidates = len(candidates)
	log.Info("search done", zap.String("term", cfg.Term), zap.Int("found", res.Found), zap.Int("candidates", res.Candidates))

	for i := range candidates {
		item := candidates[i]
		if cfg.DryRun {
			log.Info("would reshare", zap.String("id", item.ID), zap.String("author", item.AuthorHandle),
				zap.Int("reshares", item.ReshareCount), zap.String("text", item.Text))
			b.metrics.Posts.WithLabelValues(WorkerAutoReshare, metrics.ResultSkipped).Inc()
			res.Reshared = &item
			break
		}
		posted, err := b.session.Reshare(ctx, item.ID)
		if err != nil {
			log.Warn("reshare failed, trying next", zap.String("id", item.ID), zap.Error(err))
			b.metrics.Posts.WithLabelValues(WorkerAutoReshare, metrics.ResultFailed).Inc()
			continue
		}
		if posted.Text == "" {
			posted.Text = item.Text
		}
		// The log keeps the source item id alongside the reshare.
		if posted.InReplyToID == "" {
			posted.InReplyToID = item.ID
		}
		log.Info("reshared", zap.String("id", item.ID), zap.String("author", item.AuthorHandle),
			zap.Int("reshares", item.ReshareCount))
		b.metrics.Posts.WithLabelValues(WorkerAutoReshare, metrics.ResultOK).Inc()
		b.record(ctx, model.KindReshare, "", posted, log)
		res.Reshared = &item
		res.Posted = posted
		break
	}

	if b.savepoints != nil && res.SinceID != "" && res.SinceID != since {
		if err := b.savepoints.SaveSavepoint(ctx, cfg.Term, res.SinceID); err != nil {
			log.Warn("failed to save savepoint", zap.Error(err))
		}
	}
	return res, nil
}

// newestID returns the id of the most recently created item, or fallback when
// items is empty.
func newestID(items []model.Item, fallback string) string {
	if len(items) == 0 {
		return fallback
	}
	newest := items[0]
	for _, it := range items[1:] {
		if it.CreatedAt.After(newest.CreatedAt) {
			newest = it
		}
	}
	return newest.ID
}

// filterCandidates drops replies, items with a blacklisted word, items by a
// blacklisted or the bot's own account, and items older than MaxAge. Order is
// preserved.
func filterCandidates(items []model.Item, cfg *ReshareConfig, me model.Identity, now time.Time) []model.Item {
	words := make(map[string]bool, len(cfg.WordBlacklist))
	for _, w := range cfg.WordBlacklist {
		words[strings.ToLower(w)] = true
	}
	users := make(map[string]bool, len(cfg.UserBlacklist))
	for _, u := range cfg.UserBlacklist {
		users[strings.ToLower(strings.TrimPrefix(u, "@"))] = true
	}

	var out []model.Item
	for _, it := range items {
		if strings.HasPrefix(it.Text, "@") {
			continue
		}
		if users[strings.ToLower(it.AuthorHandle)] {
			continue
		}
		if me.ID != "" && it.AuthorID == me.ID {
			continue
		}
		if cfg.MaxAge > 0 && !it.CreatedAt.IsZero() && now.Sub(it.CreatedAt) > cfg.MaxAge {
			continue
		}
		if slices.ContainsFunc(strings.Fields(it.Text), func(f string) bool { return words[strings.ToLower(f)] }) {
			continue
		}
		out = append(out, it)
	}
	return out
}
