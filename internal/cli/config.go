package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/markovbot/internal/config"
)

func init() {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Config file management",
	}

	initCmd := &cobra.Command{
		Use:   "init [PATH]",
		Short: "Write a config file with the default settings",
		Long:  "Write the default settings as YAML to PATH, --config, or ~/.markovbot/config.yaml. An existing file is kept unless --force is given.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runConfigInit,
	}
	initCmd.Flags().Bool("force", false, "Overwrite an existing file")

	configCmd.AddCommand(initCmd)
	RootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	force, _ := cmd.Flags().GetBool("force")

	path := configPath
	if len(args) == 1 {
		path = args[0]
	}
	if path == "" {
		path = config.DefaultPath()
	}

	if _, err := os.Stat(path); err == nil && !force {
		exitErr("config init", fmt.Errorf("%s already exists, use --force to overwrite", path))
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		exitErr("config init", err)
	}

	if err := config.Save(config.Default(), path); err != nil {
		exitErr("config init", err)
	}
	printJSON(cmd, map[string]any{"ok": true, "path": path})
}
