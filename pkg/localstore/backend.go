package localstore

import (
	"context"
	"errors"

	"github.com/notedcloud/noted/pkg/models"
)

// ErrNotFound is returned when a page id is unknown.
var ErrNotFound = errors.New("page not found")

// Tx is the view of the storage a backend hands to PageStore for the duration
// of one transaction. Returned pages are owned by the caller.
type Tx interface {
	// Page returns the page with the given id, or ErrNotFound.
	Page(id models.PageID) (*models.Page, error)
	// PutPage inserts or replaces a page.
	PutPage(page *models.Page) error
	// DeletePage removes a page. Removing a missing page is not an error.
	DeletePage(id models.PageID) error
	// Pages returns every stored page in no particular order.
	Pages() ([]*models.Page, error)
	// PagesWithParent returns the pages whose parent is parentID, or the root
	// pages when parentID is nil, in no particular order.
	PagesWithParent(parentID *models.PageID) ([]*models.Page, error)
	// Settings returns the settings record, or nil if none was ever written.
	Settings() (*models.Settings, error)
	// PutSettings replaces the settings record.
	PutSettings(settings models.Settings) error
	// Clear removes all pages and the settings record.
	Clear() error
}

// Backend runs transactions against a storage engine.
type Backend interface {
	// Update runs fn in a read-write transaction, committed only if fn returns nil.
	Update(ctx context.Context, fn func(Tx) error) error
	// View runs fn in a read-only transaction.
	View(ctx context.Context, fn func(Tx) error) error
	Close() error
}

// childrenOf returns the pages whose parent is parentID. A nil parentID matches
// the root pages.
func childrenOf(pages []*models.Page, parentID *models.PageID) []*models.Page {
	var out []*models.Page
	for _, p := range pages {
		switch {
		case parentID == nil && p.ParentID == nil:
			out = append(out, p)
		case parentID != nil && p.ParentID != nil && *p.ParentID == *parentID:
			out = append(out, p)
		}
	}
	return out
}

// FilterByParent is the scan fallback for backends without a parent index.
func FilterByParent(tx Tx, parentID *models.PageID) ([]*models.Page, error) {
	pages, err := tx.Pages()
	if err != nil {
		return nil, err
	}
	return childrenOf(pages, parentID), nil
}
