package pagestore

import (
	"context"
	"sync"
	"time"

	"github.com/notedcloud/noted/pkg/models"
)

type row struct {
	title     string
	content   string
	isPublic  bool
	createdAt time.Time
	updatedAt time.Time
}

// MemoryStore is a Store held in memory.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[models.PageID]row
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: map[models.PageID]row{}}
}

func (m *MemoryStore) Migrate(context.Context) error {
	return nil
}

func (m *MemoryStore) GetPublic(ctx context.Context, id models.PageID) (*models.PublicPage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.rows[id]
	if !ok || !r.isPublic {
		return nil, ErrNotFound
	}
	return &models.PublicPage{ID: id, Title: r.title, Content: r.content, UpdatedAt: r.updatedAt}, nil
}

func (m *MemoryStore) Upsert(ctx context.Context, page *models.Page) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, exists := m.rows[page.ID]
	if !exists {
		r.createdAt = page.CreatedAt
	}
	r.title = page.Title
	r.content = page.Content
	r.isPublic = true
	r.updatedAt = page.UpdatedAt
	m.rows[page.ID] = r
	return nil
}

func (m *MemoryStore) Retract(ctx context.Context, id models.PageID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rows[id]
	if !ok {
		return nil
	}
	r.isPublic = false
	r.updatedAt = at
	m.rows[id] = r
	return nil
}

// Exists reports whether a row, public or not, is stored for id.
func (m *MemoryStore) Exists(id models.PageID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.rows[id]
	return ok
}

func (m *MemoryStore) Close() error {
	return nil
}
