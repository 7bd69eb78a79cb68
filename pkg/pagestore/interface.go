// Package pagestore defines the server-side store of published pages.
//
// The store holds one row per page id that was ever published. A row carries
// the page title, content, creation and update timestamps and an is_public
// flag. Only rows with is_public set are readable through [Store.GetPublic];
// a private row and a missing row are indistinguishable to readers.
//
// Implementations:
//   - [github.com/notedcloud/noted/pkg/pagestore/postgres.Store] uses GORM on
//     PostgreSQL, or on SQLite for local development and tests.
//   - [github.com/notedcloud/noted/pkg/pagestore/surrealdb.Store] uses
//     SurrealDB through its Go SDK.
//   - [MemoryStore] keeps rows in memory.
//
// [ReadOnlyStore] wraps any of them and rejects writes while the service is in
// read-only mode.
package pagestore

import (
	"context"
	"errors"
	"time"

	"github.com/notedcloud/noted/pkg/models"
)

var (
	// ErrNotFound is returned by GetPublic for unknown and private pages alike.
	ErrNotFound = errors.New("page not found or is not public")

	// ErrReadOnly is returned by writes on a read-only store.
	ErrReadOnly = errors.New("operation denied: service is in read-only mode")
)

// Store is the published page store.
type Store interface {
	// Migrate creates or updates the schema. It is safe to run repeatedly.
	Migrate(ctx context.Context) error

	// GetPublic returns the public copy of a page, or ErrNotFound when no row
	// exists or the row is not public.
	GetPublic(ctx context.Context, id models.PageID) (*models.PublicPage, error)

	// Upsert inserts the page as public, or overwrites the title, content,
	// is_public and updated_at of an existing row. created_at is kept from
	// the first insert. Repeating the same call leaves the same row.
	Upsert(ctx context.Context, page *models.Page) error

	// Retract marks the row private and sets updated_at to at. The row is
	// kept. Retracting an unknown id does nothing.
	Retract(ctx context.Context, id models.PageID, at time.Time) error

	Close() error
}
