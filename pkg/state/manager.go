package state

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/notedcloud/noted/pkg/localstore"
	"github.com/notedcloud/noted/pkg/models"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Syncer mirrors a publish-state change to the page service.
type Syncer interface {
	SyncPublish(ctx context.Context, page *models.Page, isPublic bool) error
}

// ErrPublishingDisabled is what a Manager built without a Syncer reports for
// every publish attempt.
var ErrPublishingDisabled = errors.New("publishing is not configured")

// Manager is the single owner of the in-memory notes state.
type Manager struct {
	store  localstore.Store
	syncer Syncer
	logger zerolog.Logger
	now    func() time.Time

	initOnce sync.Once
	locks    *keyedMutex

	mu       sync.RWMutex
	pages    map[models.PageID]*models.Page
	states   map[models.PageID]models.PublishState
	settings models.Settings
	degraded bool

	subMu   sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

// Option configures a Manager.
type Option func(*Manager)

func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithClock replaces time.Now for the timestamps the Manager sets itself.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// New returns a Manager over store. syncer may be nil, in which case every
// publish attempt fails and is rolled back.
func New(store localstore.Store, syncer Syncer, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		syncer:   syncer,
		logger:   zerolog.Nop(),
		now:      time.Now,
		locks:    newKeyedMutex(),
		pages:    map[models.PageID]*models.Page{},
		states:   map[models.PageID]models.PublishState{},
		settings: models.DefaultSettings(),
		subs:     map[int]func(Event){},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize loads the settings and all pages from the store. Only the first
// call does anything. A part that cannot be read falls back to its default and
// puts the Manager in degraded mode.
func (m *Manager) Initialize(ctx context.Context) {
	m.initOnce.Do(func() {
		var (
			settings models.Settings
			pages    []*models.Page
			degraded bool
			flagMu   sync.Mutex
		)
		fail := func(what string, err error) {
			m.logger.Error().Err(err).Msgf("failed to load %s, using defaults", what)
			flagMu.Lock()
			degraded = true
			flagMu.Unlock()
		}

		var g errgroup.Group
		g.Go(func() error {
			s, err := m.store.Settings(ctx)
			if err != nil {
				fail("settings", err)
				settings = models.DefaultSettings()
				return nil
			}
			settings = s
			return nil
		})
		g.Go(func() error {
			p, err := m.store.ListPages(ctx)
			if err != nil {
				fail("pages", err)
				return nil
			}
			pages = p
			return nil
		})
		_ = g.Wait()

		m.mu.Lock()
		m.settings = settings.Clone()
		m.degraded = degraded
		m.pages = make(map[models.PageID]*models.Page, len(pages))
		m.states = make(map[models.PageID]models.PublishState, len(pages))
		for _, p := range pages {
			m.pages[p.ID] = p
			m.states[p.ID] = models.StateOf(p)
		}
		stale := m.settings.CurrentPageID != nil && m.pages[*m.settings.CurrentPageID] == nil
		m.mu.Unlock()

		if stale {
			m.logger.Warn().Str("page_id", m.settings.CurrentPageID.String()).Msg("current page no longer exists")
			m.persistCurrentPage(ctx, m.firstRootID())
		}

		m.logger.Info().Int("pages", len(pages)).Bool("degraded", degraded).Msg("state initialized")
		m.emit(Event{Kind: EventInitialized})
	})
}

// Degraded reports whether the Manager runs without a working store.
func (m *Manager) Degraded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.degraded
}

// storeFailed decides what a store error means for the current action:
// fatal (false) in normal mode, ignorable (true) in degraded mode.
func (m *Manager) storeFailed(err error, action string, id models.PageID) bool {
	ev := m.logger.Error().Err(err).Str("action", action)
	if id != "" {
		ev = ev.Str("page_id", id.String())
	}
	ev.Msg("local store failure")
	return m.Degraded()
}

// CreatePage creates a page, makes it the current page and returns a copy of
// it, or nil when it could not be stored. An unknown parent yields a root page.
//
// The parent stays locked for the whole call so a delete of the parent cannot
// interleave between the store write and the in-memory link.
func (m *Manager) CreatePage(ctx context.Context, title string, parentID *models.PageID) *models.Page {
	if parentID != nil {
		unlock := m.locks.Lock(*parentID)
		defer unlock()
	}

	page, err := m.store.CreatePage(ctx, title, parentID)
	if err != nil {
		if !m.storeFailed(err, "create", "") {
			return nil
		}
		page = models.NewPage(title, parentID, m.now())
		if parentID != nil && m.Page(*parentID) == nil {
			page.ParentID = nil
		}
	}

	m.mu.Lock()
	if page.ParentID != nil {
		parent, ok := m.pages[*page.ParentID]
		if !ok {
			// The store linked the page under a parent that a cascade from
			// higher up removed meanwhile; the store dropped the page with it.
			m.mu.Unlock()
			m.logger.Warn().Str("page_id", page.ID.String()).Str("parent_id", page.ParentID.String()).Msg("parent deleted during create")
			return nil
		}
		parent = parent.Clone()
		parent.AddChild(page.ID)
		m.pages[parent.ID] = parent
	}
	m.pages[page.ID] = page
	m.states[page.ID] = models.StateOf(page)
	m.mu.Unlock()

	m.emit(Event{Kind: EventPageCreated, PageID: page.ID})
	m.persistCurrentPage(ctx, &page.ID)
	return page.Clone()
}

// UpdatePage applies update to the page. When the update sets the public flag
// the change is mirrored to the page service and rolled back if that fails.
// It reports whether the whole update took effect. A blank title is replaced
// by the one derived from the content, and an empty update is a no-op.
func (m *Manager) UpdatePage(ctx context.Context, id models.PageID, update models.PageUpdate) bool {
	unlock := m.locks.Lock(id)
	defer unlock()
	return m.updatePage(ctx, id, update)
}

func (m *Manager) updatePage(ctx context.Context, id models.PageID, update models.PageUpdate) bool {
	pre := m.Page(id)
	if pre == nil {
		m.logger.Warn().Str("page_id", id.String()).Msg("update of unknown page")
		return false
	}
	if update.Empty() {
		return true
	}
	if update.Title != nil {
		content := pre.Content
		if update.Content != nil {
			content = *update.Content
		}
		update.Title = models.Ptr(models.ResolveTitle(*update.Title, content))
	}

	if !update.TouchesPublic() {
		_, ok := m.commitLocal(ctx, pre, update)
		return ok
	}

	transition, err := models.Begin(m.PublishState(id), *update.IsPublic)
	if err != nil {
		m.logger.Warn().Err(err).Str("page_id", id.String()).Msg("publish rejected")
		return false
	}

	committed, ok := m.commitLocal(ctx, pre, update)
	if !ok {
		return false
	}
	m.setPublishState(id, transition.Pending())

	if err := m.attemptRemote(ctx, committed, *update.IsPublic); err != nil {
		m.logger.Warn().Err(err).Str("page_id", id.String()).Bool("is_public", *update.IsPublic).Msg("publish sync failed, rolling back")
		m.restore(ctx, pre)
		m.setPublishState(id, transition.Fail())
		return false
	}

	m.setPublishState(id, transition.Succeed())
	return true
}

// commitLocal writes the merged page to the store and to memory and returns
// the committed copy.
func (m *Manager) commitLocal(ctx context.Context, pre *models.Page, update models.PageUpdate) (*models.Page, bool) {
	committed, err := m.store.UpdatePage(ctx, pre.ID, update)
	if err != nil {
		if !m.storeFailed(err, "update", pre.ID) {
			return nil, false
		}
		committed = pre.Clone()
		update.Apply(committed, m.now())
	}

	m.mu.Lock()
	current, ok := m.pages[pre.ID]
	if !ok {
		// Removed by a cascade while the store call ran.
		m.mu.Unlock()
		return nil, false
	}
	// Tree links are owned by create and delete.
	links := current.Clone()
	committed.ParentID = links.ParentID
	committed.Children = links.Children
	m.pages[pre.ID] = committed
	m.mu.Unlock()

	m.emit(Event{Kind: EventPageUpdated, PageID: pre.ID})
	return committed.Clone(), true
}

func (m *Manager) attemptRemote(ctx context.Context, page *models.Page, isPublic bool) error {
	if m.syncer == nil {
		return ErrPublishingDisabled
	}
	if resolved := models.ResolveTitle(page.Title, page.Content); resolved != page.Title {
		page = page.Clone()
		page.Title = resolved
	}
	return m.syncer.SyncPublish(ctx, page, isPublic)
}

// restore puts back the public flag of pre, in the store and in memory.
func (m *Manager) restore(ctx context.Context, pre *models.Page) {
	restored, err := m.store.UpdatePage(ctx, pre.ID, models.PageUpdate{IsPublic: models.Ptr(pre.Public())})
	if err != nil {
		m.logger.Error().Err(err).Str("page_id", pre.ID.String()).Msg("failed to restore public flag in local store")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.pages[pre.ID]
	if !ok {
		return
	}
	current = current.Clone()
	if restored != nil {
		current.IsPublic = restored.IsPublic
		current.UpdatedAt = restored.UpdatedAt
	} else {
		current.IsPublic = pre.Clone().IsPublic
	}
	m.pages[pre.ID] = current
}

func (m *Manager) setPublishState(id models.PageID, s models.PublishState) {
	m.mu.Lock()
	m.states[id] = s
	m.mu.Unlock()
	m.emit(Event{Kind: EventPublishState, PageID: id, State: s})
}

// EditContent sets the content of a page. While the title still follows the
// content (see models.TitleFollowsContent) it is re-derived from the new
// content.
func (m *Manager) EditContent(ctx context.Context, id models.PageID, content string) bool {
	unlock := m.locks.Lock(id)
	defer unlock()

	page := m.Page(id)
	if page == nil {
		return false
	}
	update := models.PageUpdate{Content: &content}
	if models.TitleFollowsContent(page.Title, page.Content) {
		update.Title = models.Ptr(models.DeriveTitle(content))
	}
	return m.updatePage(ctx, id, update)
}

// DeletePage removes the page and its subtree. If the current page was among
// them, the oldest remaining root page becomes current, or none.
func (m *Manager) DeletePage(ctx context.Context, id models.PageID) bool {
	unlock := m.locks.Lock(id)
	defer unlock()

	if m.Page(id) == nil {
		m.logger.Warn().Str("page_id", id.String()).Msg("delete of unknown page")
		return false
	}

	if err := m.store.DeletePage(ctx, id); err != nil && !errors.Is(err, localstore.ErrNotFound) {
		if !m.storeFailed(err, "delete", id) {
			return false
		}
	}

	m.mu.Lock()
	removed := m.removeSubtreeLocked(id)
	currentGone := m.settings.CurrentPageID != nil && m.pages[*m.settings.CurrentPageID] == nil
	m.mu.Unlock()

	for _, gone := range removed {
		m.emit(Event{Kind: EventPageDeleted, PageID: gone})
	}
	if currentGone {
		m.persistCurrentPage(ctx, m.firstRootID())
	}
	return true
}

// removeSubtreeLocked drops id and its descendants from memory and unlinks id
// from its parent. m.mu must be held.
func (m *Manager) removeSubtreeLocked(id models.PageID) []models.PageID {
	target := m.pages[id]
	var removed []models.PageID
	stack := []models.PageID{id}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		page, ok := m.pages[current]
		if !ok {
			continue
		}
		stack = append(stack, page.Children...)
		for _, p := range m.pages {
			if p.ParentID != nil && *p.ParentID == current && !page.HasChild(p.ID) {
				stack = append(stack, p.ID)
			}
		}
		delete(m.pages, current)
		delete(m.states, current)
		removed = append(removed, current)
	}

	if target != nil && target.ParentID != nil {
		if parent, ok := m.pages[*target.ParentID]; ok {
			parent = parent.Clone()
			parent.RemoveChild(id)
			m.pages[parent.ID] = parent
		}
	}
	return removed
}

// SetCurrentPage selects a page, or clears the selection when id is nil. It
// reports false for an unknown id.
func (m *Manager) SetCurrentPage(ctx context.Context, id *models.PageID) bool {
	if id != nil && m.Page(*id) == nil {
		return false
	}
	m.persistCurrentPage(ctx, id)
	return true
}

func (m *Manager) persistCurrentPage(ctx context.Context, id *models.PageID) {
	update := models.SelectPage(id)
	m.UpdateSettings(ctx, update)
	var pageID models.PageID
	if id != nil {
		pageID = *id
	}
	m.emit(Event{Kind: EventCurrentPage, PageID: pageID})
}

// UpdateSettings merges update into the settings and returns the result. When
// the store cannot be written the change is kept in memory only.
func (m *Manager) UpdateSettings(ctx context.Context, update models.SettingsUpdate) models.Settings {
	stored, err := m.store.UpdateSettings(ctx, update)

	m.mu.Lock()
	if err != nil {
		m.logger.Error().Err(err).Msg("failed to persist settings, keeping them in memory")
		update.Apply(&m.settings)
	} else {
		m.settings = stored.Clone()
	}
	settings := m.settings.Clone()
	m.mu.Unlock()

	m.emit(Event{Kind: EventSettings})
	return settings
}
