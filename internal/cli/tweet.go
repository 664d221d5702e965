package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/markovbot/internal/generator"
	"github.com/rcliao/markovbot/internal/tweet"
)

func init() {
	cmd := &cobra.Command{
		Use:   "tweet",
		Short: "Print a length-bounded post",
		Long:  "Generate a post that fits the character limit, wrapped in an optional prefix and suffix. Nothing is published.",
		Args:  cobra.NoArgs,
		Run:   runTweet,
	}

	cmd.Flags().StringP("corpus", "c", "", "Corpus name (default: default)")
	cmd.Flags().StringSliceP("seed", "s", nil, "Seed words or two-word phrases, tried in order")
	cmd.Flags().String("prefix", "", "Text placed before the sentence")
	cmd.Flags().String("suffix", "", "Text placed after the sentence")
	cmd.Flags().Int("limit", 0, "Character limit (default: limit from config)")

	RootCmd.AddCommand(cmd)
}

func runTweet(cmd *cobra.Command, args []string) {
	name, _ := cmd.Flags().GetString("corpus")
	seeds, _ := cmd.Flags().GetStringSlice("seed")
	prefix, _ := cmd.Flags().GetString("prefix")
	suffix, _ := cmd.Flags().GetString("suffix")
	limit, _ := cmd.Flags().GetInt("limit")
	if limit <= 0 {
		limit = cfg.Limit
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	coll, err := loadCollection(cmd.Context(), s)
	if err != nil {
		exitErr("load corpora", err)
	}
	text, err := tweet.NewBuilder(generator.New(coll), limit, cfg.MaxAttempts).Construct(name, seeds, prefix, suffix)
	if err != nil {
		exitErr("tweet", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
}
