package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/markovbot/internal/generator"
	"github.com/rcliao/markovbot/internal/tweet"
)

func init() {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a sentence",
		Long:  "Walk a corpus from a seed (or a random key) and print the result trimmed to its last sentence.",
		Args:  cobra.NoArgs,
		Run:   runGenerate,
	}

	cmd.Flags().StringP("corpus", "c", "", "Corpus name (default: default)")
	cmd.Flags().StringSliceP("seed", "s", nil, "Seed words or two-word phrases, tried in order")
	cmd.Flags().IntP("words", "w", tweet.StartWords, "Walk length")
	cmd.Flags().Int("attempts", generator.DefaultMaxAttempts, "Max attempts before giving up")

	RootCmd.AddCommand(cmd)
}

func runGenerate(cmd *cobra.Command, args []string) {
	name, _ := cmd.Flags().GetString("corpus")
	seeds, _ := cmd.Flags().GetStringSlice("seed")
	words, _ := cmd.Flags().GetInt("words")
	attempts, _ := cmd.Flags().GetInt("attempts")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	coll, err := loadCollection(cmd.Context(), s)
	if err != nil {
		exitErr("load corpora", err)
	}
	text, err := generator.New(coll).Generate(words, seeds, name, attempts)
	if err != nil {
		exitErr("generate", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
}
