// Package server implements the page service: the HTTP API that stores
// published pages and serves them to anyone holding the link.
package server

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/notedcloud/noted/pkg/pagestore"
	"github.com/notedcloud/noted/pkg/pagestore/postgres"
	"github.com/notedcloud/noted/pkg/pagestore/surrealdb"
	"github.com/rs/zerolog"
)

// App holds the page service state.
type App struct {
	store    pagestore.Store
	config   *Config
	readOnly atomic.Bool
	logger   zerolog.Logger
	metrics  *metrics
	validate *validator.Validate
	now      func() time.Time
}

// New opens the store selected by config and wraps it with read-only
// protection.
func New(ctx context.Context, config *Config, logger zerolog.Logger) (*App, error) {
	store, err := openStore(ctx, config, logger)
	if err != nil {
		return nil, err
	}
	return NewWithStore(store, config, logger), nil
}

func openStore(ctx context.Context, config *Config, logger zerolog.Logger) (pagestore.Store, error) {
	switch config.Store {
	case StorePostgres:
		store, err := postgres.Open(config.DatabaseURL, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		logger.Info().Msg("connected to PostgreSQL")
		return store, nil
	case StoreSQLite:
		store, err := postgres.OpenSQLite(config.DatabaseURL, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite database: %w", err)
		}
		logger.Info().Str("path", config.DatabaseURL).Msg("opened SQLite database")
		return store, nil
	case StoreSurrealDB:
		store, err := surrealdb.Open(ctx, config.SurrealDB, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
		}
		logger.Info().Str("url", config.SurrealDB.URL).Msg("connected to SurrealDB")
		return store, nil
	case StoreMemory:
		logger.Warn().Msg("using in-memory page store, published pages are lost on restart")
		return pagestore.NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown store %q", config.Store)
}

// NewWithStore builds an App on an already opened store.
func NewWithStore(store pagestore.Store, config *Config, logger zerolog.Logger) *App {
	app := &App{
		config:   config,
		logger:   logger,
		metrics:  newMetrics(),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
	}
	app.readOnly.Store(config.ReadOnly)
	app.store = pagestore.NewReadOnlyStore(store, app.IsReadOnly)
	return app
}

// Close closes the store.
func (a *App) Close() error {
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}

// SetReadOnly switches read-only mode at runtime. While it is on, publish
// calls and schema bootstrap are refused and reads keep working.
func (a *App) SetReadOnly(readOnly bool) {
	a.readOnly.Store(readOnly)
	a.logger.Info().Bool("read_only", readOnly).Msg("read-only mode changed")
}

func (a *App) IsReadOnly() bool {
	return a.readOnly.Load()
}
