package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/markovbot/internal/bot"
	"github.com/rcliao/markovbot/internal/feed"
	"github.com/rcliao/markovbot/internal/generator"
	"github.com/rcliao/markovbot/internal/session"
)

func init() {
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Publish one generated post now",
		Long:  "Log in and publish a single post using the config's post section. Flags override the section.",
		Args:  cobra.NoArgs,
		Run:   runPost,
	}

	cmd.Flags().StringSliceP("corpus", "c", nil, "Corpus names, auto-language is not allowed")
	cmd.Flags().StringSliceP("keyword", "k", nil, "Seed keywords, one is picked at random")
	cmd.Flags().StringSlice("prefix", nil, "Prefix, one is picked at random")
	cmd.Flags().StringSlice("suffix", nil, "Suffix, one is picked at random")

	RootCmd.AddCommand(cmd)
}

func runPost(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()

	postCfg, _, err := cfg.PostConfig()
	if err != nil {
		exitErr("config", err)
	}
	if v, _ := cmd.Flags().GetStringSlice("corpus"); cmd.Flags().Changed("corpus") {
		postCfg.Corpus = bot.ParsePolicy(v)
	}
	if v, _ := cmd.Flags().GetStringSlice("keyword"); cmd.Flags().Changed("keyword") {
		postCfg.Keywords = bot.ChoiceFrom(v)
	}
	if v, _ := cmd.Flags().GetStringSlice("prefix"); cmd.Flags().Changed("prefix") {
		postCfg.Prefix = bot.ChoiceFrom(v)
	}
	if v, _ := cmd.Flags().GetStringSlice("suffix"); cmd.Flags().Changed("suffix") {
		postCfg.Suffix = bot.ChoiceFrom(v)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	coll, err := loadCollection(ctx, s)
	if err != nil {
		exitErr("load corpora", err)
	}

	sess := session.NewManager(feed.NewDialer(cfg.FeedClientConfig()), session.NewRegistry(0), logger)
	defer sess.Close()
	if _, err := sess.Login(ctx, cfg.Credentials); err != nil {
		exitErr("login", err)
	}

	b := bot.New(sess, coll, generator.New(coll), bot.Options{
		Limit:       cfg.Limit,
		MaxAttempts: cfg.MaxAttempts,
		Recorder:    s,
		Logger:      logger,
	})
	posted, err := b.PostNow(ctx, postCfg)
	if err != nil {
		exitErr("post", err)
	}
	printJSON(cmd, posted)
}
