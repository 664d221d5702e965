package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/markovbot/internal/model"
	"github.com/rcliao/markovbot/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "posts [QUERY]",
		Short: "List recorded outbound posts",
		Long:  "List what the bot has published, newest first. With a query, search post text instead.",
		Run:   runPosts,
	}

	cmd.Flags().String("kind", "", "Filter by kind: post, reply or reshare")
	cmd.Flags().StringP("corpus", "c", "", "Filter by source corpus")
	cmd.Flags().String("since", "", "Only posts newer than this age (e.g. 30m, 12h, 7d)")
	cmd.Flags().IntP("limit", "l", 20, "Max results")
	cmd.Flags().Bool("text-only", false, "Only output post text")

	RootCmd.AddCommand(cmd)
}

func runPosts(cmd *cobra.Command, args []string) {
	kind, _ := cmd.Flags().GetString("kind")
	corpusName, _ := cmd.Flags().GetString("corpus")
	since, _ := cmd.Flags().GetString("since")
	limit, _ := cmd.Flags().GetInt("limit")
	textOnly, _ := cmd.Flags().GetBool("text-only")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	var posts []model.PostRecord
	if len(args) > 0 {
		posts, err = s.SearchPosts(cmd.Context(), store.SearchParams{
			Query: strings.Join(args, " "),
			Kind:  kind,
			Limit: limit,
		})
	} else {
		posts, err = s.ListPosts(cmd.Context(), store.ListParams{
			Kind:   kind,
			Corpus: corpusName,
			Since:  since,
			Limit:  limit,
		})
	}
	if err != nil {
		exitErr("posts", err)
	}

	if textOnly {
		for _, p := range posts {
			fmt.Fprintln(cmd.OutOrStdout(), p.Text)
		}
		return
	}
	if posts == nil {
		posts = []model.PostRecord{}
	}
	printJSON(cmd, posts)
}
