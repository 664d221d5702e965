// Package cli implements the markovbot CLI commands.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/markovbot/internal/config"
	"github.com/rcliao/markovbot/internal/corpus"
	"github.com/rcliao/markovbot/internal/logging"
	"github.com/rcliao/markovbot/internal/store"
)

var (
	dbPath     string
	configPath string
	verbose    bool

	cfg    *config.Config
	logger = zap.NewNop()
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "markovbot",
	Short: "Markov chain text generator and posting bot",
	Long:  "Builds word-pair Markov corpora from text, generates sentences from them, and runs auto-reply and auto-post workers against a social feed. SQLite-backed, single binary.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		logger, err = logging.New(verbose, cfg.LogFile)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $MARKOVBOT_DB, db_path from config, or ~/.markovbot/markovbot.db)")
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: $MARKOVBOT_CONFIG or ~/.markovbot/config.yaml)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
}

func getDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	if env := os.Getenv("MARKOVBOT_DB"); env != "" {
		return env
	}
	if cfg != nil && cfg.DBPath != "" {
		return cfg.DBPath
	}
	return config.Default().DBPath
}

func openStore() (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(getDBPath())
}

// loadCollection rebuilds the in-memory corpora from the stored snapshot.
func loadCollection(ctx context.Context, s store.Store) (*corpus.Collection, error) {
	snap, err := s.LoadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	coll := corpus.New()
	coll.Merge(snap, false)
	return coll, nil
}

func saveCollection(ctx context.Context, s store.Store, coll *corpus.Collection) error {
	return s.SaveSnapshot(ctx, coll.Snapshot())
}

func printJSON(cmd *cobra.Command, v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
}

func exitErr(msg string, err error) {
	logger.Debug(msg, zap.Error(err))
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
