package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/prompted/internal/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "prompted",
	Short: "Markdown prompt template editor with a terminal UI",
	Long: `prompted keeps a library of markdown prompt templates organised in folders.
Run "prompted serve" to start the template server, then "prompted tui" to search,
edit, favorite and export templates from the terminal.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
