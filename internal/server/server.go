// Package server exposes the classifier over HTTP: upload the three
// source tables, classify synchronously, download the partitioned
// results.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadcheck/internal/classify"
	"github.com/sells-group/leadcheck/internal/export"
	"github.com/sells-group/leadcheck/internal/model"
	"github.com/sells-group/leadcheck/internal/schema"
	"github.com/sells-group/leadcheck/internal/store"
)

// maxUploadBytes caps one multipart upload across all three tables.
const maxUploadBytes = 64 << 20

// Options configures a Server.
type Options struct {
	Fields         *schema.Schema
	Thresholds     model.Thresholds
	Workers        int
	Store          store.Store // nil disables the run history endpoints
	OutDir         string
	Delimiter      rune
	AllowedOrigins []string
}

// Server handles upload, classification, and download requests.
type Server struct {
	fields         *schema.Schema
	thresholds     model.Thresholds
	workers        int
	store          store.Store
	outDir         string
	delimiter      rune
	allowedOrigins []string
	log            *zap.Logger
}

// New creates a Server. Zero options fall back to defaults.
func New(opts Options) *Server {
	if opts.Fields == nil {
		opts.Fields = schema.Default()
	}
	if opts.Thresholds == (model.Thresholds{}) {
		opts.Thresholds = model.DefaultThresholds()
	}
	if opts.Workers <= 0 {
		opts.Workers = classify.DefaultWorkers
	}
	if opts.OutDir == "" {
		opts.OutDir = "out"
	}
	if opts.Delimiter == 0 {
		opts.Delimiter = export.DefaultDelimiter
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return &Server{
		fields:         opts.Fields,
		thresholds:     opts.Thresholds,
		workers:        opts.Workers,
		store:          opts.Store,
		outDir:         opts.OutDir,
		delimiter:      opts.Delimiter,
		allowedOrigins: opts.AllowedOrigins,
		log:            zap.L().With(zap.String("component", "server")),
	}
}

// Router builds the chi handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/check", s.handleCheck)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
		r.Get("/runs/{id}/download/{disposition}", s.handleDownload)
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)),
		)
	})
}

// ListenAndServe runs the server until ctx is canceled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("starting server", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server: listen")
	}
	return nil
}
