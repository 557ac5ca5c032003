package cmd

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ziadkadry99/prompted/internal/apperr"
	"github.com/ziadkadry99/prompted/internal/events"
	"github.com/ziadkadry99/prompted/internal/export"
	"github.com/ziadkadry99/prompted/internal/logging"
	"github.com/ziadkadry99/prompted/internal/ops"
	"github.com/ziadkadry99/prompted/internal/prefs"
	"github.com/ziadkadry99/prompted/internal/search"
	"github.com/ziadkadry99/prompted/internal/state"
	"github.com/ziadkadry99/prompted/internal/ui"
)

var tuiNoWatch bool

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the template editor",
	Long: `Opens the terminal editor against the configured server. Logs go to ui.log_file so
they do not draw over the screen.`,
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().BoolVar(&tuiNoWatch, "no-watch", false, "do not follow changes made by other clients")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	formats, err := export.ParseFormats(cfg.Export.Formats)
	if err != nil {
		return err
	}

	logger, closeLog, err := logging.NewFile(cfg.UI.LogFile, cfg.Log.Level)
	if err != nil {
		return err
	}
	defer closeLog()

	errs := apperr.NewHandler(logger, nil)

	p, err := prefs.Open(cfg.UI.PrefsPath)
	if err != nil {
		return fmt.Errorf("opening preferences: %w", err)
	}
	defer p.Close()
	opts, err := p.Load()
	if err != nil {
		// Fall back to defaults; the file is rewritten on the next toggle.
		errs.Handle(err, true)
	}

	store := state.New(logger, opts)
	unbind := p.Bind(store, func(err error) { errs.Handle(err, false) })
	defer unbind()

	index := search.New()
	bus := events.NewBus()
	gw := newGateway(cfg, logger)
	svc := ops.New(gw, store, errs, bus, logger)

	deps := ui.Deps{
		Ops:    svc,
		Index:  index,
		Errors: errs,
		Bus:    bus,
		Logger: logger,
	}
	if !tuiNoWatch {
		deps.Watch = gw.Watch
	}
	m := ui.New(deps, ui.Options{
		Debounce:       time.Duration(cfg.UI.SearchDebounceMS) * time.Millisecond,
		MinQueryLength: cfg.UI.MinQueryLength,
		ExportDir:      cfg.Export.Dir,
		ExportFormats:  formats,
	})
	defer m.Close()

	logger.Info("tui starting", zap.String("server", gw.BaseURL()))
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		return fmt.Errorf("running editor: %w", err)
	}
	stats := gw.Stats()
	logger.Info("tui stopped",
		zap.Int64("requests", stats.Total),
		zap.Int64("failed", stats.Failed))
	return nil
}
