package server

import (
	"context"
	"fmt"
)

// Migrate creates or updates the schema of the configured store. It only adds
// missing tables and indexes and never drops data.
func (a *App) Migrate(ctx context.Context, cmd *MigrateCommand) error {
	a.logger.Info().Str("store", a.config.Store).Msg("running database migrations")
	if err := a.store.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	a.logger.Info().Msg("migrations completed")
	return nil
}
