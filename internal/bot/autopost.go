package bot

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/rcliao/markovbot/internal/corpus"
	"github.com/rcliao/markovbot/internal/metrics"
	"github.com/rcliao/markovbot/internal/model"
)

// WorkerAutoPost names the periodic post worker in logs and metrics.
const WorkerAutoPost = "autotweeter"

// autoPost is the periodic post worker loop. It returns when ctx is done.
func (b *Bot) autoPost(ctx context.Context) {
	log := b.logger.With(zap.String("worker", WorkerAutoPost))
	for sleep(ctx, b.poll) {
		for b.postOn.Load() && b.session.LoggedIn() {
			cfg := b.postCfg.Load()
			if cfg == nil {
				break
			}
			if _, err := b.postOnce(ctx, cfg, log); err != nil {
				log.Error("auto-post cycle failed", zap.Error(err))
			}
			wait := b.nextInterval(cfg)
			log.Info("next post scheduled", zap.Duration("in", wait))
			if !sleep(ctx, wait) {
				return
			}
		}
	}
}

// postOnce composes and publishes one post. A failed publish is retried once
// after reconnecting; the second failure is returned.
func (b *Bot) postOnce(ctx context.Context, cfg *PostConfig, log *zap.Logger) (model.PostedItem, error) {
	var seeds []string
	if kw, ok := b.resolve(cfg.Keywords); ok && kw != "" {
		seeds = []string{kw}
	}
	name := b.corpusFor(cfg.Corpus, nil, log)
	if name == corpus.SimpleResponseName {
		name = corpus.DefaultName
	}
	prefix, _ := b.resolve(cfg.Prefix)
	suffix, _ := b.resolve(cfg.Suffix)

	text, err := b.builder.Construct(name, seeds, prefix, suffix)
	if err != nil {
		b.metrics.Generations.WithLabelValues(name, metrics.ResultFailed).Inc()
		b.metrics.Posts.WithLabelValues(WorkerAutoPost, metrics.ResultFailed).Inc()
		return model.PostedItem{}, fmt.Errorf("construct post from %q: %w", name, err)
	}
	b.metrics.Generations.WithLabelValues(name, metrics.ResultOK).Inc()

	posted, err := b.session.Publish(ctx, text)
	if err != nil {
		log.Warn("publish failed, reconnecting", zap.Error(err))
		b.metrics.Reconnects.Inc()
		if rerr := b.session.Reconnect(ctx); rerr != nil {
			log.Warn("reconnect failed", zap.Error(rerr))
		}
		posted, err = b.session.Publish(ctx, text)
	}
	if err != nil {
		b.metrics.Posts.WithLabelValues(WorkerAutoPost, metrics.ResultFailed).Inc()
		return model.PostedItem{}, fmt.Errorf("publish post: %w", err)
	}

	log.Info("posted", zap.String("id", posted.ID), zap.String("corpus", name), zap.String("text", text))
	b.metrics.Posts.WithLabelValues(WorkerAutoPost, metrics.ResultOK).Inc()
	b.record(ctx, model.KindPost, name, posted, log)
	return posted, nil
}

// nextInterval is the base interval shifted by a whole number of minutes drawn
// uniformly from [-jitter, +jitter].
func (b *Bot) nextInterval(cfg *PostConfig) time.Duration {
	wait := cfg.Interval
	if j := int(cfg.Jitter / time.Minute); j > 0 {
		var offset int
		b.withRand(func(r *rand.Rand) { offset = r.Intn(2*j+1) - j })
		wait += time.Duration(offset) * time.Minute
	}
	if wait < 0 {
		wait = 0
	}
	return wait
}

// PostNow publishes one post with cfg outside the periodic schedule.
func (b *Bot) PostNow(ctx context.Context, cfg PostConfig) (model.PostedItem, error) {
	if !b.session.LoggedIn() {
		return model.PostedItem{}, model.ErrNotLoggedIn
	}
	return b.postOnce(ctx, &cfg, b.logger.With(zap.String("worker", WorkerAutoPost)))
}
