package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ziadkadry99/prompted/internal/db"
	"github.com/ziadkadry99/prompted/internal/mirror"
	"github.com/ziadkadry99/prompted/internal/server"
)

var (
	servePort   int
	serveMirror string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the template server",
	Long: `Starts the prompted REST API over the SQLite database, with a websocket stream of
change events for connected editors. Optionally mirrors every template to a directory
of markdown files.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to listen on (overrides server.port)")
	serveCmd.Flags().StringVar(&serveMirror, "mirror", "", "directory to mirror templates into (overrides server.mirror_dir)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}
	if serveMirror != "" {
		cfg.Server.MirrorDir = serveMirror
	}

	logger := newLogger(cfg)
	defer logger.Sync()

	database, err := db.Open(cfg.Server.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Server.Seed {
		seeded, err := database.Seed(ctx)
		if err != nil {
			return fmt.Errorf("seeding database: %w", err)
		}
		if seeded {
			logger.Info("seeded empty database", zap.String("path", database.Path()))
		}
	}

	srv := server.New(server.Config{
		Host:     cfg.Server.Host,
		Port:     cfg.Server.Port,
		AllowAll: cfg.Server.AllowAllOrigins,
	}, database, logger)

	if cfg.Server.MirrorDir != "" {
		m := mirror.New(cfg.Server.MirrorDir, srv.Templates(), logger)
		m.Attach()
		n, err := m.Sync(ctx)
		if err != nil {
			// The API works without the mirror.
			logger.Warn("initial mirror sync failed", zap.Error(err))
		} else {
			logger.Info("mirror synced", zap.String("dir", cfg.Server.MirrorDir), zap.Int("templates", n))
		}
	}

	fmt.Fprintf(os.Stderr, "prompted server %s starting on %s\n", Version, srv.Addr())
	fmt.Fprintf(os.Stderr, "  Database: %s\n", database.Path())
	if cfg.Server.MirrorDir != "" {
		fmt.Fprintf(os.Stderr, "  Mirror: %s\n", cfg.Server.MirrorDir)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr, "\nShutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
