package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/prompted/internal/apperr"
	"github.com/ziadkadry99/prompted/internal/config"
	"github.com/ziadkadry99/prompted/internal/export"
	"github.com/ziadkadry99/prompted/internal/ops"
	"github.com/ziadkadry99/prompted/internal/progress"
	"github.com/ziadkadry99/prompted/internal/state"
)

var (
	exportOut     string
	exportFormats string
	exportInclude []string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every template into a ZIP archive",
	Long: `Downloads all templates from the server and writes them into a ZIP archive, one file
per format under each template's folder path, plus a manifest with content statistics.`,
	Example: `  prompted export
  prompted export --format md,html --include "Work/**"
  prompted export -o backup.zip`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "archive path (default: a timestamped file in export.dir)")
	exportCmd.Flags().StringVar(&exportFormats, "format", "", "comma-separated formats: md, txt, html (overrides export.formats)")
	exportCmd.Flags().StringSliceVar(&exportInclude, "include", nil, "doublestar pattern over folder/title paths; repeatable")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if exportFormats != "" {
		cfg.Export.Formats = config.SplitList(exportFormats)
	}
	if len(exportInclude) > 0 {
		cfg.Export.Include = exportInclude
	}
	formats, err := export.ParseFormats(cfg.Export.Formats)
	if err != nil {
		return err
	}
	for _, p := range cfg.Export.Include {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid include pattern %q", p)
		}
	}

	logger := newLogger(cfg)
	defer logger.Sync()

	// Failures are reported through the returned error; the handler only logs.
	errs := apperr.NewHandler(logger, nil)
	svc := ops.New(newGateway(cfg, logger), state.New(logger, state.Options{}), errs, nil, logger)

	out := exportOut
	if out == "" {
		out = exportPath(cfg.Export.Dir, time.Now())
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("creating export directory: %w", err)
	}
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("creating %s: %w", out, err)
	}

	manifest, err := svc.ExportAll(context.Background(), f, export.Options{
		Formats:  formats,
		Include:  cfg.Export.Include,
		Progress: progress.Func(progress.NewReporter()),
	})
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("writing %s: %w", out, cerr)
	}
	if err != nil {
		os.Remove(out)
		return fmt.Errorf("exporting templates: %w", err)
	}

	fmt.Printf("Exported %d templates to %s", manifest.Count, out)
	if manifest.Skipped > 0 {
		fmt.Printf(" (%d skipped by --include)", manifest.Skipped)
	}
	fmt.Println()
	fmt.Printf("  %d favorites, %d words, %d characters\n", manifest.Favorites, manifest.Words, manifest.Characters)
	return nil
}
