// Package memstore is a volatile localstore backend. It backs the degraded mode
// used when no durable store can be opened, and is handy in tests.
package memstore

import (
	"context"
	"maps"
	"sync"

	"github.com/notedcloud/noted/pkg/localstore"
	"github.com/notedcloud/noted/pkg/models"
)

// Backend keeps pages and settings in maps guarded by a RWMutex. Update works on
// a copy of the data that replaces the live maps only when fn succeeds.
type Backend struct {
	mu       sync.RWMutex
	pages    map[models.PageID]*models.Page
	settings *models.Settings
}

var _ localstore.Backend = (*Backend)(nil)

func New() *Backend {
	return &Backend{pages: map[models.PageID]*models.Page{}}
}

// NewStore returns a PageStore over a fresh in-memory backend.
func NewStore(opts ...localstore.Option) *localstore.PageStore {
	return localstore.New(New(), opts...)
}

func (b *Backend) Update(ctx context.Context, fn func(localstore.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	tx := &tx{pages: maps.Clone(b.pages), settings: b.settings}
	if err := fn(tx); err != nil {
		return err
	}
	b.pages = tx.pages
	b.settings = tx.settings
	return nil
}

func (b *Backend) View(ctx context.Context, fn func(localstore.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return fn(&tx{pages: b.pages, settings: b.settings, readOnly: true})
}

func (b *Backend) Close() error {
	return nil
}

// tx stores clones so callers never alias the maps' values.
type tx struct {
	pages    map[models.PageID]*models.Page
	settings *models.Settings
	readOnly bool
}

func (t *tx) Page(id models.PageID) (*models.Page, error) {
	page, ok := t.pages[id]
	if !ok {
		return nil, localstore.ErrNotFound
	}
	return page.Clone(), nil
}

func (t *tx) PutPage(page *models.Page) error {
	if t.readOnly {
		return errReadOnly
	}
	t.pages[page.ID] = page.Clone()
	return nil
}

func (t *tx) DeletePage(id models.PageID) error {
	if t.readOnly {
		return errReadOnly
	}
	delete(t.pages, id)
	return nil
}

func (t *tx) Pages() ([]*models.Page, error) {
	out := make([]*models.Page, 0, len(t.pages))
	for _, page := range t.pages {
		out = append(out, page.Clone())
	}
	return out, nil
}

func (t *tx) PagesWithParent(parentID *models.PageID) ([]*models.Page, error) {
	return localstore.FilterByParent(t, parentID)
}

func (t *tx) Settings() (*models.Settings, error) {
	if t.settings == nil {
		return nil, nil
	}
	s := t.settings.Clone()
	return &s, nil
}

func (t *tx) PutSettings(settings models.Settings) error {
	if t.readOnly {
		return errReadOnly
	}
	s := settings.Clone()
	t.settings = &s
	return nil
}

func (t *tx) Clear() error {
	if t.readOnly {
		return errReadOnly
	}
	t.pages = map[models.PageID]*models.Page{}
	t.settings = nil
	return nil
}
