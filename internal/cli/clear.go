package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "clear [CORPUS]",
		Short: "Clear a corpus, or everything",
		Long:  "Clear one corpus. With --all, drop every corpus and the simple responses. The default corpus is kept, empty.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runClear,
	}

	cmd.Flags().Bool("all", false, "Clear every corpus and the simple responses")

	RootCmd.AddCommand(cmd)
}

func runClear(cmd *cobra.Command, args []string) {
	all, _ := cmd.Flags().GetBool("all")
	if all == (len(args) == 1) {
		exitErr("clear", fmt.Errorf("give either a corpus name or --all"))
	}
	name := ""
	if len(args) == 1 {
		name = args[0]
	}
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
	if err := coll.Clear(name); err != nil {
		exitErr("clear", err)
	}
	if err := saveCollection(ctx, s, coll); err != nil {
		exitErr("save corpora", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"cleared":%q}`+"\n", name)
}
