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
		Use:   "reshare [TERM]",
		Short: "Search and reshare the most reshared match now",
		Long: `Log in, search for TERM (or the config's reshare term) since the last
saved item and reshare the most reshared result that passes the blacklists.
Nothing is reshared unless the reshare section is enabled or --enable is given.`,
		Args: cobra.MaximumNArgs(1),
		Run:  runReshare,
	}

	cmd.Flags().String("lang", "", "Result language")
	cmd.Flags().StringSlice("block-word", nil, "Skip items containing this word")
	cmd.Flags().StringSlice("block-user", nil, "Skip items by this handle")
	cmd.Flags().Duration("max-age", 0, "Skip items older than this")
	cmd.Flags().Bool("enable", false, "Reshare even when the config section is disabled")

	RootCmd.AddCommand(cmd)
}

func runReshare(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()

	reshareCfg, ok, err := cfg.ReshareConfig()
	if err != nil {
		exitErr("config", err)
	}
	if !ok {
		reshareCfg.DryRun = true
	}
	if len(args) == 1 {
		reshareCfg.Term = args[0]
	}
	if v, _ := cmd.Flags().GetString("lang"); cmd.Flags().Changed("lang") {
		reshareCfg.Lang = v
	}
	if v, _ := cmd.Flags().GetStringSlice("block-word"); cmd.Flags().Changed("block-word") {
		reshareCfg.WordBlacklist = v
	}
	if v, _ := cmd.Flags().GetStringSlice("block-user"); cmd.Flags().Changed("block-user") {
		reshareCfg.UserBlacklist = v
	}
	if v, _ := cmd.Flags().GetDuration("max-age"); cmd.Flags().Changed("max-age") {
		reshareCfg.MaxAge = v
	}
	if enable, _ := cmd.Flags().GetBool("enable"); enable {
		reshareCfg.DryRun = false
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
		Recorder:   s,
		Savepoints: s,
		Logger:     logger,
	})
	res, err := b.ReshareNow(ctx, reshareCfg)
	if err != nil {
		exitErr("reshare", err)
	}
	printJSON(cmd, res)
}
