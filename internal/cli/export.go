package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export corpora as JSON",
		Long:  "Export every corpus and the simple responses as one JSON document. Add --posts to include the outbound post log.",
		Args:  cobra.NoArgs,
		Run:   runExport,
	}

	cmd.Flags().Bool("posts", false, "Include recorded posts")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	withPosts, _ := cmd.Flags().GetBool("posts")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	exp, err := s.ExportAll(cmd.Context(), withPosts)
	if err != nil {
		exitErr("export", err)
	}
	printJSON(cmd, exp)
}
