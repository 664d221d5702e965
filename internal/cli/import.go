package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/markovbot/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import [FILE]",
		Short: "Import corpora from JSON",
		Long:  "Import an export document (stdin or file). Corpora are merged into the stored ones unless --overwrite is set.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runImport,
	}

	cmd.Flags().Bool("overwrite", false, "Replace stored corpora with the imported ones")

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	overwrite, _ := cmd.Flags().GetBool("overwrite")
	ctx := cmd.Context()

	var in io.Reader = cmd.InOrStdin()
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			exitErr("open file", err)
		}
		defer f.Close()
		in = f
	}
	data, err := io.ReadAll(in)
	if err != nil {
		exitErr("read input", err)
	}

	var exp store.Export
	if err := json.Unmarshal(data, &exp); err != nil {
		exitErr("parse json", err)
	}
	if exp.Version > store.ExportVersion {
		exitErr("import", fmt.Errorf("export version %d is newer than supported version %d", exp.Version, store.ExportVersion))
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
	coll.Merge(exp.Snapshot, overwrite)
	if err := saveCollection(ctx, s, coll); err != nil {
		exitErr("save corpora", err)
	}

	imported, err := s.ImportPosts(ctx, exp.Posts)
	if err != nil {
		exitErr("import posts", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"corpora":%d,"posts":%d}`+"\n", len(exp.Snapshot.Corpora), imported)
}
