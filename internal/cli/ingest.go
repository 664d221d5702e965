package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/markovbot/internal/ingest"
)

func init() {
	cmd := &cobra.Command{
		Use:   "ingest FILE...",
		Short: "Add text files to a corpus",
		Long:  "Read text files, add every word triple to the named corpus, and save the snapshot.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runIngest,
	}

	cmd.Flags().StringP("corpus", "c", "", "Corpus name (default: default)")
	cmd.Flags().Bool("overwrite", false, "Replace the corpus instead of extending it")

	RootCmd.AddCommand(cmd)
}

func runIngest(cmd *cobra.Command, args []string) {
	name, _ := cmd.Flags().GetString("corpus")
	overwrite, _ := cmd.Flags().GetBool("overwrite")
	ctx := cmd.Context()

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	coll, err := loadCollection(ctx, s)
	if err != nil {
		exitErr("load corpora", err)
	}
	results, err := ingest.Files(ctx, coll, args, name, overwrite)
	if err != nil {
		exitErr("ingest", err)
	}
	if err := saveCollection(ctx, s, coll); err != nil {
		exitErr("save corpora", err)
	}

	for _, r := range results {
		logger.Info("ingested file", zap.String("file", r.Path), zap.String("corpus", r.Corpus), zap.Int("triples", r.Triples))
	}
	printJSON(cmd, results)
}
