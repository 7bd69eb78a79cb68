package pagestore

import (
	"context"
	"time"

	"github.com/notedcloud/noted/pkg/models"
)

// ReadOnlyStore wraps a Store and rejects writes while isReadOnly reports true.
//
// The flag is read on every call, so the service can flip between read-write
// and read-only without reopening the store. Reads always pass through.
type ReadOnlyStore struct {
	Store
	isReadOnly func() bool
}

// NewReadOnlyStore wraps store.
func NewReadOnlyStore(store Store, isReadOnly func() bool) *ReadOnlyStore {
	return &ReadOnlyStore{
		Store:      store,
		isReadOnly: isReadOnly,
	}
}

// Unwrap returns the underlying store.
func (r *ReadOnlyStore) Unwrap() Store {
	return r.Store
}

func (r *ReadOnlyStore) checkReadOnly() error {
	if r.isReadOnly() {
		return ErrReadOnly
	}
	return nil
}

func (r *ReadOnlyStore) Migrate(ctx context.Context) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.Migrate(ctx)
}

func (r *ReadOnlyStore) Upsert(ctx context.Context, page *models.Page) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.Upsert(ctx, page)
}

func (r *ReadOnlyStore) Retract(ctx context.Context, id models.PageID, at time.Time) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.Retract(ctx, id, at)
}
