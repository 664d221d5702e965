package cli

import (
	"github.com/spf13/cobra"
)

type corpusRow struct {
	Name       string `json:"name"`
	Keys       int    `json:"keys"`
	Successors int    `json:"successors"`
}

func init() {
	cmd := &cobra.Command{
		Use:   "corpora",
		Short: "List corpora",
		Args:  cobra.NoArgs,
		Run:   runCorpora,
	}

	cmd.Flags().Bool("non-empty", false, "Only corpora with at least one key")

	RootCmd.AddCommand(cmd)
}

func runCorpora(cmd *cobra.Command, args []string) {
	nonEmpty, _ := cmd.Flags().GetBool("non-empty")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	coll, err := loadCollection(cmd.Context(), s)
	if err != nil {
		exitErr("load corpora", err)
	}

	names := coll.Names()
	if nonEmpty {
		names = coll.NonEmptyNames()
	}
	rows := make([]corpusRow, 0, len(names))
	for _, n := range names {
		keys, successors := coll.Size(n)
		rows = append(rows, corpusRow{Name: n, Keys: keys, Successors: successors})
	}
	printJSON(cmd, rows)
}
