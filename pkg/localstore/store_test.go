package localstore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/notedcloud/noted/pkg/localstore"
	"github.com/notedcloud/noted/pkg/localstore/memstore"
	"github.com/notedcloud/noted/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeleteToleratesStaleChildren(t *testing.T) {
	ctx := context.Background()
	backend := memstore.New()
	store := localstore.New(backend)

	root, err := store.CreatePage(ctx, "Root", nil)
	require.NoError(t, err)
	child, err := store.CreatePage(ctx, "Child", &root.ID)
	require.NoError(t, err)

	require.NoError(t, backend.Update(ctx, func(tx localstore.Tx) error {
		page, err := tx.Page(child.ID)
		if err != nil {
			return err
		}
		page.Children = append(page.Children, "page_0_ghost")
		return tx.PutPage(page)
	}))

	require.NoError(t, store.DeletePage(ctx, root.ID))
	pages, err := store.ListPages(ctx)
	require.NoError(t, err)
	assert.Empty(t, pages)
}

func TestDeleteFindsChildrenMissingFromList(t *testing.T) {
	ctx := context.Background()
	backend := memstore.New()
	store := localstore.New(backend)

	root, err := store.CreatePage(ctx, "Root", nil)
	require.NoError(t, err)
	child, err := store.CreatePage(ctx, "Child", &root.ID)
	require.NoError(t, err)

	// Drop the denormalized link; the parent_id scan must still find the child.
	require.NoError(t, backend.Update(ctx, func(tx localstore.Tx) error {
		page, err := tx.Page(root.ID)
		if err != nil {
			return err
		}
		page.Children = nil
		return tx.PutPage(page)
	}))

	require.NoError(t, store.DeletePage(ctx, root.ID))
	_, err = store.GetPage(ctx, child.ID)
	assert.ErrorIs(t, err, localstore.ErrNotFound)
}

type failingBackend struct {
	err   error
	calls int
}

func (b *failingBackend) Update(context.Context, func(localstore.Tx) error) error {
	b.calls++
	return b.err
}

func (b *failingBackend) View(context.Context, func(localstore.Tx) error) error {
	b.calls++
	return b.err
}

func (b *failingBackend) Close() error { return nil }

func TestStorageErrorsPropagateWithoutRetry(t *testing.T) {
	ctx := context.Background()
	quota := errors.New("quota exceeded")
	backend := &failingBackend{err: quota}
	store := localstore.New(backend)

	_, err := store.CreatePage(ctx, "x", nil)
	assert.ErrorIs(t, err, quota)
	_, err = store.Settings(ctx)
	assert.ErrorIs(t, err, quota)
	_, err = store.UpdatePage(ctx, "id", models.PageUpdate{})
	assert.ErrorIs(t, err, quota)
	assert.ErrorIs(t, store.DeletePage(ctx, "id"), quota)
	assert.Equal(t, 4, backend.calls)
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := memstore.NewStore()
	_, err := store.CreatePage(ctx, "x", nil)
	assert.ErrorIs(t, err, context.Canceled)
}
