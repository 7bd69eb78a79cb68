package state_test

import (
	"context"
	"errors"
	"sync"

	"github.com/notedcloud/noted/pkg/localstore"
	"github.com/notedcloud/noted/pkg/models"
)

var errStoreDown = errors.New("store down")

// faultyStore fails the named operations and passes the rest through.
type faultyStore struct {
	localstore.Store

	mu          sync.Mutex
	fail        map[string]bool
	afterCreate func()
}

func newFaultyStore(inner localstore.Store) *faultyStore {
	return &faultyStore{Store: inner, fail: map[string]bool{}}
}

func (f *faultyStore) Fail(ops ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, op := range ops {
		f.fail[op] = true
	}
}

func (f *faultyStore) Heal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = map[string]bool{}
}

// HoldCreates makes every later CreatePage call run hook after its write.
func (f *faultyStore) HoldCreates(hook func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.afterCreate = hook
}

func (f *faultyStore) failing(op string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fail[op]
}

func (f *faultyStore) CreatePage(ctx context.Context, title string, parentID *models.PageID) (*models.Page, error) {
	if f.failing("create") {
		return nil, errStoreDown
	}
	page, err := f.Store.CreatePage(ctx, title, parentID)
	f.mu.Lock()
	hook := f.afterCreate
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return page, err
}

func (f *faultyStore) UpdatePage(ctx context.Context, id models.PageID, update models.PageUpdate) (*models.Page, error) {
	if f.failing("update") {
		return nil, errStoreDown
	}
	return f.Store.UpdatePage(ctx, id, update)
}

func (f *faultyStore) DeletePage(ctx context.Context, id models.PageID) error {
	if f.failing("delete") {
		return errStoreDown
	}
	return f.Store.DeletePage(ctx, id)
}

func (f *faultyStore) ListPages(ctx context.Context) ([]*models.Page, error) {
	if f.failing("list") {
		return nil, errStoreDown
	}
	return f.Store.ListPages(ctx)
}

func (f *faultyStore) Settings(ctx context.Context) (models.Settings, error) {
	if f.failing("settings") {
		return models.Settings{}, errStoreDown
	}
	return f.Store.Settings(ctx)
}

func (f *faultyStore) UpdateSettings(ctx context.Context, update models.SettingsUpdate) (models.Settings, error) {
	if f.failing("settings") {
		return models.Settings{}, errStoreDown
	}
	return f.Store.UpdateSettings(ctx, update)
}

type syncCall struct {
	Page     *models.Page
	IsPublic bool
}

// fakeSyncer records calls and answers with err. When gate is set each call
// waits for a value on it.
type fakeSyncer struct {
	mu      sync.Mutex
	calls   []syncCall
	err     error
	gate    chan struct{}
	entered chan struct{}
}

func (f *fakeSyncer) SyncPublish(ctx context.Context, page *models.Page, isPublic bool) error {
	f.mu.Lock()
	f.calls = append(f.calls, syncCall{Page: page.Clone(), IsPublic: isPublic})
	err, gate, entered := f.err, f.gate, f.entered
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *fakeSyncer) SetErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeSyncer) Calls() []syncCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]syncCall(nil), f.calls...)
}
