package localstore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/notedcloud/noted/pkg/models"
	"github.com/rs/zerolog"
)

// Store is the local page store used by the application state manager.
type Store interface {
	// CreatePage allocates a new empty page. When parentID names an existing
	// page the new page is appended to its children; when it names nothing the
	// page is created as a root page.
	CreatePage(ctx context.Context, title string, parentID *models.PageID) (*models.Page, error)
	GetPage(ctx context.Context, id models.PageID) (*models.Page, error)
	// UpdatePage merges the update into the stored page and refreshes its
	// UpdatedAt. It returns ErrNotFound for an unknown id.
	UpdatePage(ctx context.Context, id models.PageID, update models.PageUpdate) (*models.Page, error)
	// DeletePage removes the page and its whole subtree, and unlinks it from
	// its parent. It returns ErrNotFound for an unknown id.
	DeletePage(ctx context.Context, id models.PageID) error
	// RootPages returns the pages without a parent, oldest first.
	RootPages(ctx context.Context) ([]*models.Page, error)
	// Children returns the pages under parentID, oldest first.
	Children(ctx context.Context, parentID models.PageID) ([]*models.Page, error)
	ListPages(ctx context.Context) ([]*models.Page, error)

	// Settings returns the stored settings, or the defaults if none exist yet.
	Settings(ctx context.Context) (models.Settings, error)
	UpdateSettings(ctx context.Context, update models.SettingsUpdate) (models.Settings, error)

	Export(ctx context.Context) (*models.Snapshot, error)
	// Import replaces everything with the snapshot after checking its tree.
	Import(ctx context.Context, snapshot *models.Snapshot) error
	Clear(ctx context.Context) error
	Close() error
}

// PageStore implements Store on top of a Backend.
type PageStore struct {
	backend Backend
	logger  zerolog.Logger
	now     func() time.Time
}

var _ Store = (*PageStore)(nil)

// Option configures a PageStore.
type Option func(*PageStore)

// WithLogger sets the logger used for non-fatal anomalies.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *PageStore) {
		s.logger = logger
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *PageStore) {
		s.now = now
	}
}

// New returns a PageStore using backend.
func New(backend Backend, opts ...Option) *PageStore {
	s := &PageStore{
		backend: backend,
		logger:  zerolog.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PageStore) CreatePage(ctx context.Context, title string, parentID *models.PageID) (*models.Page, error) {
	var created *models.Page
	err := s.backend.Update(ctx, func(tx Tx) error {
		page := models.NewPage(title, parentID, s.now())

		var parent *models.Page
		if parentID != nil {
			p, err := tx.Page(*parentID)
			switch {
			case errors.Is(err, ErrNotFound):
				s.logger.Warn().Str("parent_id", parentID.String()).Msg("parent page not found, creating root page")
				page.ParentID = nil
			case err != nil:
				return fmt.Errorf("failed to load parent page: %w", err)
			default:
				parent = p
			}
		}

		if err := tx.PutPage(page); err != nil {
			return fmt.Errorf("failed to store page: %w", err)
		}
		if parent != nil {
			parent.AddChild(page.ID)
			if err := tx.PutPage(parent); err != nil {
				return fmt.Errorf("failed to link page to parent: %w", err)
			}
		}
		created = page
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created.Clone(), nil
}

func (s *PageStore) GetPage(ctx context.Context, id models.PageID) (*models.Page, error) {
	var page *models.Page
	err := s.backend.View(ctx, func(tx Tx) error {
		var err error
		page, err = tx.Page(id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

func (s *PageStore) UpdatePage(ctx context.Context, id models.PageID, update models.PageUpdate) (*models.Page, error) {
	var updated *models.Page
	err := s.backend.Update(ctx, func(tx Tx) error {
		page, err := tx.Page(id)
		if err != nil {
			return err
		}
		update.Apply(page, s.now())
		if err := tx.PutPage(page); err != nil {
			return fmt.Errorf("failed to store page: %w", err)
		}
		updated = page
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated.Clone(), nil
}

func (s *PageStore) DeletePage(ctx context.Context, id models.PageID) error {
	return s.backend.Update(ctx, func(tx Tx) error {
		target, err := tx.Page(id)
		if err != nil {
			return err
		}

		// Collect the subtree depth-first, then delete in reverse so every
		// descendant goes before its ancestors.
		var order []models.PageID
		visited := map[models.PageID]bool{}
		stack := []models.PageID{id}
		for len(stack) > 0 {
			current := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if visited[current] {
				continue
			}
			visited[current] = true

			page, err := tx.Page(current)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to load page %s: %w", current, err)
			}
			order = append(order, current)

			children, err := tx.PagesWithParent(&current)
			if err != nil {
				return fmt.Errorf("failed to list children of %s: %w", current, err)
			}
			next := slices.Clone(page.Children)
			for _, child := range children {
				if !slices.Contains(next, child.ID) {
					next = append(next, child.ID)
				}
			}
			for i := len(next) - 1; i >= 0; i-- {
				stack = append(stack, next[i])
			}
		}

		for i := len(order) - 1; i >= 0; i-- {
			if err := tx.DeletePage(order[i]); err != nil {
				return fmt.Errorf("failed to delete page %s: %w", order[i], err)
			}
		}

		if target.ParentID == nil {
			return nil
		}
		parent, err := tx.Page(*target.ParentID)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load parent page: %w", err)
		}
		if parent.RemoveChild(id) {
			parent.UpdatedAt = s.now()
			return tx.PutPage(parent)
		}
		return nil
	})
}

func (s *PageStore) RootPages(ctx context.Context) ([]*models.Page, error) {
	return s.pagesWithParent(ctx, nil)
}

func (s *PageStore) Children(ctx context.Context, parentID models.PageID) ([]*models.Page, error) {
	return s.pagesWithParent(ctx, &parentID)
}

func (s *PageStore) pagesWithParent(ctx context.Context, parentID *models.PageID) ([]*models.Page, error) {
	var pages []*models.Page
	err := s.backend.View(ctx, func(tx Tx) error {
		var err error
		pages, err = tx.PagesWithParent(parentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	models.SortByCreation(pages)
	return pages, nil
}

func (s *PageStore) ListPages(ctx context.Context) ([]*models.Page, error) {
	var pages []*models.Page
	err := s.backend.View(ctx, func(tx Tx) error {
		var err error
		pages, err = tx.Pages()
		return err
	})
	if err != nil {
		return nil, err
	}
	models.SortByCreation(pages)
	return pages, nil
}

func (s *PageStore) Settings(ctx context.Context) (models.Settings, error) {
	settings := models.DefaultSettings()
	err := s.backend.View(ctx, func(tx Tx) error {
		stored, err := tx.Settings()
		if err != nil {
			return err
		}
		if stored != nil {
			settings = *stored
		}
		return nil
	})
	if err != nil {
		return models.Settings{}, err
	}
	return settings, nil
}

func (s *PageStore) UpdateSettings(ctx context.Context, update models.SettingsUpdate) (models.Settings, error) {
	var settings models.Settings
	err := s.backend.Update(ctx, func(tx Tx) error {
		stored, err := tx.Settings()
		if err != nil {
			return err
		}
		settings = models.DefaultSettings()
		if stored != nil {
			settings = *stored
		}
		update.Apply(&settings)
		return tx.PutSettings(settings)
	})
	if err != nil {
		return models.Settings{}, err
	}
	return settings, nil
}

func (s *PageStore) Export(ctx context.Context) (*models.Snapshot, error) {
	snapshot := &models.Snapshot{Settings: models.DefaultSettings()}
	err := s.backend.View(ctx, func(tx Tx) error {
		pages, err := tx.Pages()
		if err != nil {
			return err
		}
		stored, err := tx.Settings()
		if err != nil {
			return err
		}
		snapshot.Pages = pages
		if stored != nil {
			snapshot.Settings = *stored
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	models.SortByCreation(snapshot.Pages)
	return snapshot, nil
}

func (s *PageStore) Import(ctx context.Context, snapshot *models.Snapshot) error {
	if err := models.CheckTree(snapshot.Pages); err != nil {
		return fmt.Errorf("refusing to import snapshot: %w", err)
	}
	return s.backend.Update(ctx, func(tx Tx) error {
		if err := tx.Clear(); err != nil {
			return fmt.Errorf("failed to clear store: %w", err)
		}
		for _, page := range snapshot.Pages {
			if err := tx.PutPage(page.Clone()); err != nil {
				return fmt.Errorf("failed to import page %s: %w", page.ID, err)
			}
		}
		return tx.PutSettings(snapshot.Settings.Clone())
	})
}

func (s *PageStore) Clear(ctx context.Context) error {
	return s.backend.Update(ctx, func(tx Tx) error {
		return tx.Clear()
	})
}

func (s *PageStore) Close() error {
	return s.backend.Close()
}
