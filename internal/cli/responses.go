package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/markovbot/internal/config"
)

func init() {
	responsesCmd := &cobra.Command{
		Use:   "responses",
		Short: "Simple response management",
	}

	setCmd := &cobra.Command{
		Use:   "set FILE",
		Short: "Load simple responses from YAML",
		Long:  "Load a YAML mapping of trigger phrase to a reply or a list of replies.",
		Args:  cobra.ExactArgs(1),
		Run:   runResponsesSet,
	}
	setCmd.Flags().Bool("overwrite", false, "Replace existing responses")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List simple responses",
		Args:  cobra.NoArgs,
		Run:   runResponsesList,
	}

	responsesCmd.AddCommand(setCmd, listCmd)
	RootCmd.AddCommand(responsesCmd)
}

func runResponsesSet(cmd *cobra.Command, args []string) {
	overwrite, _ := cmd.Flags().GetBool("overwrite")
	ctx := cmd.Context()

	responses, err := config.LoadSimpleResponses(args[0])
	if err != nil {
		exitErr("load responses", err)
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
	if err := coll.SetSimpleResponses(responses, overwrite); err != nil {
		exitErr("set responses", err)
	}
	if err := saveCollection(ctx, s, coll); err != nil {
		exitErr("save corpora", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"triggers":%d}`+"\n", len(responses))
}

func runResponsesList(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	coll, err := loadCollection(cmd.Context(), s)
	if err != nil {
		exitErr("load corpora", err)
	}
	printJSON(cmd, coll.Snapshot().SimpleResponses)
}

