package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"
)

const defaultShutdownTimeout = 5 * time.Second

// Handler returns the HTTP handler serving every route.
//
// API:
//
//	GET  /api/p/{pageId}           - public copy of a page
//	POST /api/p/{pageId}/publish   - publish or retract a page
//	GET  /api/init-db              - schema bootstrap
//	GET  /api/health               - service status
//
// Other:
//
//	GET  /p/{pageId}               - public page rendered as HTML
//	GET  /metrics                  - Prometheus metrics
func (a *App) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(a.instrument)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/p/{pageId}", a.handleGetPublic).Methods(http.MethodGet)
	api.HandleFunc("/p/{pageId}/publish", a.handlePublish).Methods(http.MethodPost)
	api.HandleFunc("/init-db", a.handleInitDB).Methods(http.MethodGet)
	api.HandleFunc("/health", a.handleHealth).Methods(http.MethodGet)

	router.HandleFunc("/p/{pageId}", a.handlePublicView).Methods(http.MethodGet)
	router.Handle("/metrics", a.metrics.handler()).Methods(http.MethodGet)

	return cors.Handler(cors.Options{
		AllowedOrigins: a.config.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	})(router)
}

// Run serves the API on the configured address until ctx is canceled, then
// gives in-flight requests ShutdownTimeout to finish.
func (a *App) Run(ctx context.Context, cmd *RunCommand) error {
	if cmd.Migrate {
		if err := a.Migrate(ctx, &MigrateCommand{}); err != nil {
			return err
		}
	}

	server := &http.Server{
		Addr:              a.config.Addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info().
			Str("addr", a.config.Addr).
			Str("store", a.config.Store).
			Bool("read_only", a.IsReadOnly()).
			Msg("starting page service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info().Msg("shutting down page service")
		timeout := a.config.ShutdownTimeout
		if timeout <= 0 {
			timeout = defaultShutdownTimeout
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
