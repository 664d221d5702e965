package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rcliao/markovbot/internal/bot"
	"github.com/rcliao/markovbot/internal/config"
	"github.com/rcliao/markovbot/internal/corpus"
	"github.com/rcliao/markovbot/internal/feed"
	"github.com/rcliao/markovbot/internal/generator"
	"github.com/rcliao/markovbot/internal/ingest"
	"github.com/rcliao/markovbot/internal/metrics"
	"github.com/rcliao/markovbot/internal/session"
	"github.com/rcliao/markovbot/internal/store"
)

const shutdownTimeout = 5 * time.Second

func init() {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the posting bot",
		Long: `Log in to the feed and run the workers configured in the reply, post and
reshare sections of the config file until interrupted. Optionally serves Prometheus
metrics on metrics_addr and ingests *.txt files dropped into watch_dir.`,
		Args: cobra.NoArgs,
		Run:  runRun,
	}

	RootCmd.AddCommand(cmd)
}

func runRun(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	coll, err := loadCollection(ctx, s)
	if err != nil {
		exitErr("load corpora", err)
	}
	if cfg.SimpleResponses != "" {
		responses, err := config.LoadSimpleResponses(cfg.SimpleResponses)
		if err != nil {
			exitErr("load responses", err)
		}
		if err := coll.SetSimpleResponses(responses, true); err != nil {
			exitErr("set responses", err)
		}
	}

	m := metrics.New()
	sess := session.NewManager(feed.NewDialer(cfg.FeedClientConfig()), session.NewRegistry(cfg.ExclusionTTL), logger)
	defer sess.Close()

	id, err := sess.Login(ctx, cfg.Credentials)
	if err != nil {
		exitErr("login", err)
	}
	logger.Info("logged in", zap.String("handle", id.Handle), zap.String("id", id.ID))

	b := bot.New(sess, coll, generator.New(coll), bot.Options{
		Limit:       cfg.Limit,
		MaxAttempts: cfg.MaxAttempts,
		Recorder:    s,
		Savepoints:  s,
		Metrics:     m,
		Logger:      logger,
	})
	if err := startWorkers(b); err != nil {
		exitErr("start workers", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.MetricsAddr != "" {
		serveMetrics(gctx, g, cfg.MetricsAddr, m)
	}
	if cfg.WatchDir != "" {
		if err := watchCorpora(gctx, g, s, coll); err != nil {
			exitErr("watch", err)
		}
	}
	g.Go(func() error { return b.Run(gctx, cfg.SupervisorTick) })

	if err := g.Wait(); err != nil {
		exitErr("run", err)
	}
	b.StopAutoReply()
	b.StopAutoPost()
	b.StopAutoReshare()
	logger.Info("stopped")
}

func startWorkers(b *bot.Bot) error {
	replyCfg, ok, err := cfg.ReplyConfig()
	if err != nil {
		return err
	}
	if ok {
		if err := b.StartAutoReply(replyCfg); err != nil {
			return err
		}
		logger.Info("auto-reply enabled", zap.String("target", replyCfg.Target), zap.Stringer("corpus", replyCfg.Corpus))
	}

	postCfg, ok, err := cfg.PostConfig()
	if err != nil {
		return err
	}
	if ok {
		if err := b.StartAutoPost(postCfg); err != nil {
			return err
		}
		logger.Info("auto-post enabled", zap.Duration("interval", b.PostConfig().Interval), zap.Stringer("corpus", postCfg.Corpus))
	}

	reshareCfg, ok, err := cfg.ReshareConfig()
	if err != nil {
		return err
	}
	if ok {
		if err := b.StartAutoReshare(reshareCfg); err != nil {
			return err
		}
		logger.Info("auto-reshare enabled", zap.String("term", reshareCfg.Term), zap.Bool("dry_run", reshareCfg.DryRun))
	}

	if b.ReplyConfig() == nil && b.PostConfig() == nil && b.ReshareConfig() == nil {
		logger.Warn("no workers configured; add a reply, post or reshare section to the config")
	}
	return nil
}

func serveMetrics(ctx context.Context, g *errgroup.Group, addr string, m *metrics.Metrics) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	g.Go(func() error {
		logger.Info("serving metrics", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

func watchCorpora(ctx context.Context, g *errgroup.Group, s store.Store, coll *corpus.Collection) error {
	w, err := ingest.NewWatcher(cfg.WatchDir, coll, ingest.WatchOptions{
		Corpus: cfg.WatchCorpus,
		OnIngest: func(ctx context.Context, _ ingest.Result) error {
			return saveCollection(ctx, s, coll)
		},
		Logger: logger,
	})
	if err != nil {
		return err
	}
	g.Go(func() error { return w.Run(ctx) })
	return nil
}
