package state

import (
	"context"
	"fmt"

	"github.com/notedcloud/noted/pkg/models"
)

// Page returns a copy of the page, or nil.
func (m *Manager) Page(id models.PageID) *models.Page {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pages[id].Clone()
}

// Pages returns copies of all pages ordered by creation.
func (m *Manager) Pages() []*models.Page {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Page, 0, len(m.pages))
	for _, p := range m.pages {
		out = append(out, p.Clone())
	}
	models.SortByCreation(out)
	return out
}

// RootPages returns the pages without a parent, oldest first.
func (m *Manager) RootPages() []*models.Page {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.filterLocked(func(p *models.Page) bool { return p.IsRoot() })
}

// Children returns the pages whose parent is id, oldest first.
func (m *Manager) Children(id models.PageID) []*models.Page {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.filterLocked(func(p *models.Page) bool {
		return p.ParentID != nil && *p.ParentID == id
	})
}

func (m *Manager) filterLocked(keep func(*models.Page) bool) []*models.Page {
	var out []*models.Page
	for _, p := range m.pages {
		if keep(p) {
			out = append(out, p.Clone())
		}
	}
	models.SortByCreation(out)
	return out
}

func (m *Manager) firstRootID() *models.PageID {
	roots := m.RootPages()
	if len(roots) == 0 {
		return nil
	}
	id := roots[0].ID
	return &id
}

// CurrentPage returns the selected page, or nil.
func (m *Manager) CurrentPage() *models.Page {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.settings.CurrentPageID == nil {
		return nil
	}
	return m.pages[*m.settings.CurrentPageID].Clone()
}

func (m *Manager) Settings() models.Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings.Clone()
}

// Configured reports whether the assistant has an API key.
func (m *Manager) Configured() bool {
	return m.Settings().APIKeyConfigured()
}

// PublishState returns the publish state of a page. Unknown pages are private.
func (m *Manager) PublishState(id models.PageID) models.PublishState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.states[id]
}

// Syncing reports whether a publish sync for the page is in flight.
func (m *Manager) Syncing(id models.PageID) bool {
	return !m.PublishState(id).Stable()
}

// Export returns a snapshot of the store.
func (m *Manager) Export(ctx context.Context) (*models.Snapshot, error) {
	return m.store.Export(ctx)
}

// Import replaces the store contents with snapshot and reloads the state
// from it.
func (m *Manager) Import(ctx context.Context, snapshot *models.Snapshot) error {
	if err := m.store.Import(ctx, snapshot); err != nil {
		return err
	}
	return m.reload(ctx)
}

// Reset wipes the store and the in-memory state.
func (m *Manager) Reset(ctx context.Context) error {
	if err := m.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear local store: %w", err)
	}
	m.mu.Lock()
	m.pages = map[models.PageID]*models.Page{}
	m.states = map[models.PageID]models.PublishState{}
	m.settings = models.DefaultSettings()
	m.mu.Unlock()

	m.logger.Info().Msg("state reset")
	m.emit(Event{Kind: EventReset})
	return nil
}

func (m *Manager) reload(ctx context.Context) error {
	pages, err := m.store.ListPages(ctx)
	if err != nil {
		return fmt.Errorf("failed to reload pages: %w", err)
	}
	settings, err := m.store.Settings(ctx)
	if err != nil {
		return fmt.Errorf("failed to reload settings: %w", err)
	}

	m.mu.Lock()
	m.pages = make(map[models.PageID]*models.Page, len(pages))
	m.states = make(map[models.PageID]models.PublishState, len(pages))
	for _, p := range pages {
		m.pages[p.ID] = p
		m.states[p.ID] = models.StateOf(p)
	}
	m.settings = settings.Clone()
	m.degraded = false
	m.mu.Unlock()

	m.emit(Event{Kind: EventReset})
	return nil
}
