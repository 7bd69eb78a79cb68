package badgerstore_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/notedcloud/noted/pkg/localstore"
	"github.com/notedcloud/noted/pkg/localstore/badgerstore"
	"github.com/notedcloud/noted/pkg/localstore/storetest"
	"github.com/notedcloud/noted/pkg/models"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func TestBadgerStoreInMemory(t *testing.T) {
	suite.Run(t, storetest.New(func(t *testing.T, opts ...localstore.Option) localstore.Store {
		store, err := badgerstore.OpenStore(badgerstore.InMemoryConfig(), opts...)
		require.NoError(t, err)
		return store
	}))
}

func TestBadgerStoreOnDisk(t *testing.T) {
	suite.Run(t, storetest.New(func(t *testing.T, opts ...localstore.Option) localstore.Store {
		cfg := badgerstore.DefaultConfig(t.TempDir())
		cfg.SyncWrites = false
		store, err := badgerstore.OpenStore(cfg, opts...)
		require.NoError(t, err)
		return store
	}))
}

func TestBadgerStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := badgerstore.OpenStore(badgerstore.DefaultConfig(dir))
	require.NoError(t, err)
	root, err := store.CreatePage(ctx, "Root", nil)
	require.NoError(t, err)
	child, err := store.CreatePage(ctx, "Child", &root.ID)
	require.NoError(t, err)
	_, err = store.UpdatePage(ctx, child.ID, models.PageUpdate{IsPublic: models.Ptr(true)})
	require.NoError(t, err)
	_, err = store.UpdateSettings(ctx, models.SelectPage(&child.ID))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = badgerstore.OpenStore(badgerstore.DefaultConfig(dir))
	require.NoError(t, err)
	defer store.Close()

	reloaded, err := store.GetPage(ctx, root.ID)
	require.NoError(t, err)
	require.Equal(t, []models.PageID{child.ID}, reloaded.Children)
	require.True(t, reloaded.CreatedAt.Equal(root.CreatedAt))

	reloadedChild, err := store.GetPage(ctx, child.ID)
	require.NoError(t, err)
	require.True(t, reloadedChild.Public())

	settings, err := store.Settings(ctx)
	require.NoError(t, err)
	require.NotNil(t, settings.CurrentPageID)
	require.Equal(t, child.ID, *settings.CurrentPageID)
}

func TestUpdateRetriesConflictingCommit(t *testing.T) {
	ctx := context.Background()
	backend, err := badgerstore.Open(badgerstore.InMemoryConfig())
	require.NoError(t, err)
	defer backend.Close()

	page := models.NewPage("Shared", nil, time.Now())
	require.NoError(t, backend.Update(ctx, func(tx localstore.Tx) error {
		return tx.PutPage(page)
	}))

	attempts := 0
	err = backend.Update(ctx, func(tx localstore.Tx) error {
		attempts++
		current, err := tx.Page(page.ID)
		if err != nil {
			return err
		}
		if attempts == 1 {
			// A write committed after this transaction read the page.
			require.NoError(t, backend.Update(ctx, func(other localstore.Tx) error {
				racing := current.Clone()
				racing.Content = "racing"
				return other.PutPage(racing)
			}))
		}
		current.Title = "Renamed"
		return tx.PutPage(current)
	})
	require.NoError(t, err)
	require.Equal(t, 2, attempts)

	require.NoError(t, backend.View(ctx, func(tx localstore.Tx) error {
		got, err := tx.Page(page.ID)
		require.NoError(t, err)
		require.Equal(t, "Renamed", got.Title)
		require.Equal(t, "racing", got.Content)
		return nil
	}))
}

func TestConcurrentCreatesUnderOneParent(t *testing.T) {
	ctx := context.Background()
	store, err := badgerstore.OpenStore(badgerstore.InMemoryConfig())
	require.NoError(t, err)
	defer store.Close()

	parent, err := store.CreatePage(ctx, "Parent", nil)
	require.NoError(t, err)

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.CreatePage(ctx, fmt.Sprintf("Child %d", i), &parent.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	reloaded, err := store.GetPage(ctx, parent.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Children, writers)
	children, err := store.Children(ctx, parent.ID)
	require.NoError(t, err)
	require.Len(t, children, writers)
}
