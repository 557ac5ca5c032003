package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/prompted/internal/db"
	"github.com/ziadkadry99/prompted/internal/mirror"
	"github.com/ziadkadry99/prompted/internal/templates"
)

var mirrorCmd = &cobra.Command{
	Use:   "mirror [dir]",
	Short: "Rewrite the markdown mirror from the database",
	Long: `Writes every template in the database to <dir> as <id>-<title>.md and removes files of
templates that no longer exist. Defaults to server.mirror_dir.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		dir := cfg.Server.MirrorDir
		if len(args) == 1 {
			dir = args[0]
		}
		if dir == "" {
			return fmt.Errorf("no mirror directory: pass one or set server.mirror_dir")
		}

		logger := newLogger(cfg)
		defer logger.Sync()

		database, err := db.Open(cfg.Server.Database)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		n, err := mirror.New(dir, templates.NewStore(database), logger).Sync(context.Background())
		if err != nil {
			return fmt.Errorf("syncing mirror: %w", err)
		}
		fmt.Printf("Mirrored %d templates to %s\n", n, dir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mirrorCmd)
}
