package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "keys WORD",
		Short: "List word pairs containing a word",
		Long:  "List the keys of a corpus that contain WORD as either half. Useful for choosing seeds.",
		Args:  cobra.ExactArgs(1),
		Run:   runKeys,
	}

	cmd.Flags().StringP("corpus", "c", "default", "Corpus name")
	cmd.Flags().Bool("pairs", false, "Print one \"w1 w2\" pair per line instead of JSON")

	RootCmd.AddCommand(cmd)
}

func runKeys(cmd *cobra.Command, args []string) {
	name, _ := cmd.Flags().GetString("corpus")
	pairsOnly, _ := cmd.Flags().GetBool("pairs")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	coll, err := loadCollection(cmd.Context(), s)
	if err != nil {
		exitErr("load corpora", err)
	}
	keys, err := coll.KeysContaining(name, args[0])
	if err != nil {
		exitErr("keys", err)
	}

	if pairsOnly {
		for _, k := range keys {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", k.W1, k.W2)
		}
		return
	}
	if len(keys) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "[]")
		return
	}
	printJSON(cmd, keys)
}
