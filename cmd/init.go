package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/prompted/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize prompted configuration with an interactive wizard",
	Long:  `Runs an interactive wizard for the server and export settings and writes them to .prompted.yml.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.RunWizard(cfgFile)
		if err != nil {
			return err
		}
		fmt.Printf("Wrote %s (server on port %d, database %s)\n", cfgFile, cfg.Server.Port, cfg.Server.Database)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
