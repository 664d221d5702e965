package bot

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/rcliao/markovbot/internal/corpus"
	"github.com/rcliao/markovbot/internal/metrics"
	"github.com/rcliao/markovbot/internal/model"
	"github.com/rcliao/markovbot/internal/tokenize"
	"github.com/rcliao/markovbot/internal/tweet"
)

// WorkerAutoReply names the reply worker in logs and metrics.
const WorkerAutoReply = "autoreplier"

// autoReply is the reply worker loop. It returns when ctx is done.
func (b *Bot) autoReply(ctx context.Context) {
	log := b.logger.With(zap.String("worker", WorkerAutoReply))
	for sleep(ctx, b.poll) {
		if !b.replyOn.Load() || !b.session.LoggedIn() {
			continue
		}
		b.streamReplies(ctx, log)
	}
}

// streamReplies holds one filtered stream open and answers items until the
// worker is disabled, the stream ends, or ctx is done.
func (b *Bot) streamReplies(ctx context.Context, log *zap.Logger) {
	cfg := b.replyCfg.Load()
	if cfg == nil {
		return
	}
	stream, err := b.session.OpenStream(ctx, cfg.Target)
	if err != nil {
		log.Warn("failed to open stream", zap.String("target", cfg.Target), zap.Error(err))
		return
	}
	defer stream.Close()
	log.Info("streaming", zap.String("target", cfg.Target))

	for b.replyOn.Load() && ctx.Err() == nil {
		item, err := stream.Next(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Info("stream ended, reopening", zap.Error(err))
			}
			return
		}
		if item.Heartbeat {
			log.Debug("heartbeat received, reconnecting")
			b.metrics.Reconnects.Inc()
			if err := b.session.Reconnect(ctx); err != nil {
				log.Warn("reconnect failed", zap.Error(err))
			}
			return
		}
		b.metrics.ItemsSeen.Inc()
		it := item
		b.lastIn.Store(&it)

		cfg = b.replyCfg.Load()
		if cfg == nil {
			return
		}
		if b.handleItem(ctx, cfg, item, log) {
			if !sleep(ctx, cfg.MinDelay) {
				return
			}
		}
	}
}

// handleItem filters one incoming item and replies to it. It reports whether a
// reply was attempted.
func (b *Bot) handleItem(ctx context.Context, cfg *ReplyConfig, item model.Item, log *zap.Logger) bool {
	log = log.With(zap.String("item", item.ID), zap.String("author", item.AuthorHandle))
	if skip := b.skipReason(ctx, cfg, item, log); skip != "" {
		log.Info("not replying", zap.String("reason", skip))
		b.metrics.Posts.WithLabelValues(WorkerAutoReply, metrics.ResultSkipped).Inc()
		return false
	}

	text, name, err := b.composeReply(cfg, item, log)
	if err != nil {
		log.Warn("failed to compose reply", zap.String("corpus", name), zap.Error(err))
		b.metrics.Generations.WithLabelValues(name, metrics.ResultFailed).Inc()
		b.metrics.Posts.WithLabelValues(WorkerAutoReply, metrics.ResultFailed).Inc()
		return true
	}
	b.metrics.Generations.WithLabelValues(name, metrics.ResultOK).Inc()

	posted, err := b.session.Reply(ctx, text, item.ID, item.AuthorHandle)
	if err != nil {
		log.Error("failed to post reply", zap.String("text", text), zap.Error(err))
		b.metrics.Posts.WithLabelValues(WorkerAutoReply, metrics.ResultFailed).Inc()
		return true
	}
	log.Info("posted reply", zap.String("id", posted.ID), zap.String("text", text))
	b.metrics.Posts.WithLabelValues(WorkerAutoReply, metrics.ResultOK).Inc()
	if posted.InReplyToID == "" {
		posted.InReplyToID = item.ID
	}
	b.record(ctx, model.KindReply, name, posted, log)
	return true
}

// skipReason returns why item must not be answered, or "" to reply.
func (b *Bot) skipReason(ctx context.Context, cfg *ReplyConfig, item model.Item, log *zap.Logger) string {
	if id, ok := b.session.Identity(); ok && item.AuthorID == id.ID {
		return "own post"
	}
	if item.Reshare {
		return "reshare"
	}
	excluded := b.session.Excluded()
	if excluded.Contains(item.ID) {
		return "excluded"
	}
	if cfg.MaxConvDepth > 0 && b.tooDeep(ctx, cfg.MaxConvDepth, item, log) {
		return "conversation too deep"
	}
	return ""
}

// tooDeep walks the reply chain above item. When maxDepth ancestors have been
// fetched, the next id up the chain (or the deepest fetched one at the top) is
// excluded so later items in the same thread stop early. A chain that reaches
// an excluded id is too deep as well. Lookup failures skip the item.
func (b *Bot) tooDeep(ctx context.Context, maxDepth int, item model.Item, log *zap.Logger) bool {
	excluded := b.session.Excluded()
	parent := item.InReplyToID
	depth := 0
	for parent != "" && !excluded.Contains(parent) {
		b.metrics.ConversationLookup.Inc()
		ancestor, err := b.session.LookupItem(ctx, parent)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				log.Debug("ancestor not found, treating as top of thread", zap.String("ancestor", parent))
				return false
			}
			log.Warn("ancestor lookup failed", zap.String("ancestor", parent), zap.Error(err))
			return true
		}
		depth++
		if depth >= maxDepth {
			mark := ancestor.InReplyToID
			if mark == "" {
				mark = ancestor.ID
			}
			if excluded.Add(mark) {
				b.metrics.ExcludedItems.Set(float64(excluded.Len()))
				log.Info("excluding deep conversation", zap.String("ancestor", mark), zap.Int("depth", depth))
			}
			return true
		}
		parent = ancestor.InReplyToID
	}
	return parent != ""
}

// composeReply builds the reply text and reports the corpus it came from.
func (b *Bot) composeReply(cfg *ReplyConfig, item model.Item, log *zap.Logger) (string, string, error) {
	prefix := "@" + item.AuthorHandle
	if p, ok := b.resolve(cfg.Prefix); ok && p != "" {
		prefix += " " + p
	}
	suffix, _ := b.resolve(cfg.Suffix)

	name := b.corpusFor(cfg.Corpus, &item, log)
	if name == corpus.SimpleResponseName {
		text, err := b.simpleResponse(cfg.Target, prefix, suffix)
		return text, name, err
	}

	seeds := tokenize.MatchKeywords(item.Text, cfg.Keywords)
	log.Debug("seed words", zap.Strings("seeds", seeds), zap.String("corpus", name))
	text, err := b.builder.Construct(name, seeds, prefix, suffix)
	return text, name, err
}

// simpleResponse picks a canned reply for trigger and cuts it to the limit.
func (b *Bot) simpleResponse(trigger, prefix, suffix string) (string, error) {
	replies, ok := b.corpora.SimpleResponses(trigger)
	if !ok || len(replies) == 0 {
		return "", fmt.Errorf("%w: no simple responses for %q", model.ErrConfiguration, trigger)
	}
	var reply string
	b.withRand(func(r *rand.Rand) { reply = replies[r.Intn(len(replies))] })
	return tweet.Truncate(tweet.Compose(prefix, reply, suffix), b.builder.Limit()), nil
}
