package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/ziadkadry99/prompted/internal/db"
	"github.com/ziadkadry99/prompted/internal/folders"
	"github.com/ziadkadry99/prompted/internal/realtime"
	"github.com/ziadkadry99/prompted/internal/templates"
)

// Config holds server configuration.
type Config struct {
	Host           string
	Port           int
	AllowAll       bool     // allow all CORS origins (dev mode)
	AllowedOrigins []string // used when AllowAll is false
}

// Server is the template HTTP API.
type Server struct {
	cfg        Config
	db         *db.DB
	logger     *zap.Logger
	templates  *templates.Store
	folders    *folders.Store
	hub        *realtime.Hub
	router     chi.Router
	httpServer *http.Server
}

// New creates a server over database with every route mounted. Store
// changes are pushed to websocket clients.
func New(cfg Config, database *db.DB, logger *zap.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		db:        database,
		logger:    logger.Named("server"),
		templates: templates.NewStore(database),
		folders:   folders.NewStore(database),
		hub:       realtime.NewHub(logger),
	}
	s.templates.OnChange(s.hub.Broadcast)
	s.folders.OnChange(s.hub.Broadcast)

	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	// CORS
	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	corsOpts := cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// The event stream is long-lived so it stays outside the timeout group.
	realtime.RegisterRoutes(r, s.hub)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		templates.RegisterRoutes(r, s.templates)
		folders.RegisterRoutes(r, s.folders)
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// Router returns the chi router for registering additional routes.
func (s *Server) Router() chi.Router { return s.router }

// Database returns the database connection.
func (s *Server) Database() *db.DB { return s.db }

// Templates returns the template store so callers can observe changes.
func (s *Server) Templates() *templates.Store { return s.templates }

// Folders returns the folder store.
func (s *Server) Folders() *folders.Store { return s.folders }

// Addr is the listen address for the configured host and port.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))
}

// Start begins listening on the configured address.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("prompted server listening", zap.String("addr", s.Addr()))
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown disconnects event clients and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
