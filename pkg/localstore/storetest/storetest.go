// Package storetest holds the behaviour every localstore backend must share.
// Backend packages run it from their own tests:
//
//	func TestBackend(t *testing.T) {
//		suite.Run(t, storetest.New(func(t *testing.T, opts ...localstore.Option) localstore.Store {
//			...
//		}))
//	}
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/notedcloud/noted/pkg/localstore"
	"github.com/notedcloud/noted/pkg/models"
	"github.com/stretchr/testify/suite"
)

// Factory opens an empty store for one test.
type Factory func(t *testing.T, opts ...localstore.Option) localstore.Store

// Suite is the conformance suite.
type Suite struct {
	suite.Suite
	open  Factory
	store localstore.Store
	clock *Clock
	ctx   context.Context
}

func New(open Factory) *Suite {
	return &Suite{open: open}
}

// Clock advances by one millisecond on every read, so creation order is
// unambiguous.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock() *Clock {
	return &Clock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

func (s *Suite) SetupTest() {
	s.ctx = context.Background()
	s.clock = NewClock()
	s.store = s.open(s.T(), localstore.WithClock(s.clock.Now))
}

func (s *Suite) TearDownTest() {
	s.Require().NoError(s.store.Close())
}

func (s *Suite) create(title string, parent *models.Page) *models.Page {
	var parentID *models.PageID
	if parent != nil {
		parentID = &parent.ID
	}
	page, err := s.store.CreatePage(s.ctx, title, parentID)
	s.Require().NoError(err)
	return page
}

func (s *Suite) get(id models.PageID) *models.Page {
	page, err := s.store.GetPage(s.ctx, id)
	s.Require().NoError(err)
	return page
}

func (s *Suite) ids(pages []*models.Page) []models.PageID {
	out := make([]models.PageID, 0, len(pages))
	for _, p := range pages {
		out = append(out, p.ID)
	}
	return out
}

func (s *Suite) assertTree() {
	pages, err := s.store.ListPages(s.ctx)
	s.Require().NoError(err)
	s.Require().NoError(models.CheckTree(pages))
}

func (s *Suite) TestCreateRootPage() {
	page := s.create("Root", nil)

	s.NotEmpty(page.ID)
	s.Equal("Root", page.Title)
	s.Empty(page.Content)
	s.Empty(page.Children)
	s.Nil(page.ParentID)
	s.True(page.CreatedAt.Equal(page.UpdatedAt))

	stored := s.get(page.ID)
	s.Equal(page.ID, stored.ID)
	s.Equal("Root", stored.Title)
	s.True(page.CreatedAt.Equal(stored.CreatedAt))
}

func (s *Suite) TestCreateDefaultsTitle() {
	page := s.create("", nil)
	s.Equal(models.DefaultTitle, page.Title)
}

func (s *Suite) TestCreateChildLinksParent() {
	root := s.create("Root", nil)
	first := s.create("First", root)
	second := s.create("Second", root)

	s.Require().NotNil(first.ParentID)
	s.Equal(root.ID, *first.ParentID)
	s.Equal([]models.PageID{first.ID, second.ID}, s.get(root.ID).Children)
	s.assertTree()
}

func (s *Suite) TestCreateWithMissingParentMakesRoot() {
	missing := models.PageID("page_0_missing")
	page, err := s.store.CreatePage(s.ctx, "Orphan", &missing)
	s.Require().NoError(err)
	s.Nil(page.ParentID)

	roots, err := s.store.RootPages(s.ctx)
	s.Require().NoError(err)
	s.Equal([]models.PageID{page.ID}, s.ids(roots))
	s.assertTree()
}

func (s *Suite) TestGetUnknownPage() {
	_, err := s.store.GetPage(s.ctx, "nope")
	s.ErrorIs(err, localstore.ErrNotFound)
}

func (s *Suite) TestUpdatePage() {
	page := s.create("Title", nil)

	updated, err := s.store.UpdatePage(s.ctx, page.ID, models.PageUpdate{
		Content:  models.Ptr("hello"),
		IsPublic: models.Ptr(true),
	})
	s.Require().NoError(err)
	s.Equal("Title", updated.Title)
	s.Equal("hello", updated.Content)
	s.True(updated.Public())
	s.True(updated.UpdatedAt.After(page.UpdatedAt))
	s.True(updated.CreatedAt.Equal(page.CreatedAt))

	stored := s.get(page.ID)
	s.Equal("hello", stored.Content)
	s.True(stored.Public())
	s.True(stored.UpdatedAt.Equal(updated.UpdatedAt))
}

func (s *Suite) TestUpdateUnknownPage() {
	_, err := s.store.UpdatePage(s.ctx, "nope", models.PageUpdate{Title: models.Ptr("x")})
	s.ErrorIs(err, localstore.ErrNotFound)
}

func (s *Suite) TestDeleteCascades() {
	root := s.create("Root", nil)
	a := s.create("A", root)
	b := s.create("B", root)
	a1 := s.create("A1", a)
	a11 := s.create("A11", a1)
	other := s.create("Other", nil)

	s.Require().NoError(s.store.DeletePage(s.ctx, a.ID))

	for _, gone := range []models.PageID{a.ID, a1.ID, a11.ID} {
		_, err := s.store.GetPage(s.ctx, gone)
		s.ErrorIs(err, localstore.ErrNotFound, "page %s should be gone", gone)
	}
	s.Equal([]models.PageID{b.ID}, s.get(root.ID).Children)
	s.get(other.ID)
	s.assertTree()

	s.Require().NoError(s.store.DeletePage(s.ctx, root.ID))
	roots, err := s.store.RootPages(s.ctx)
	s.Require().NoError(err)
	s.Equal([]models.PageID{other.ID}, s.ids(roots))
	s.assertTree()
}

func (s *Suite) TestDeleteDeepTree() {
	root := s.create("0", nil)
	current := root
	for i := 1; i < 200; i++ {
		current = s.create(fmt.Sprint(i), current)
	}

	s.Require().NoError(s.store.DeletePage(s.ctx, root.ID))
	pages, err := s.store.ListPages(s.ctx)
	s.Require().NoError(err)
	s.Empty(pages)
}

func (s *Suite) TestDeleteUnknownPage() {
	s.ErrorIs(s.store.DeletePage(s.ctx, "nope"), localstore.ErrNotFound)
}

func (s *Suite) TestRootPagesAndChildrenOrder() {
	a := s.create("A", nil)
	b := s.create("B", nil)
	a1 := s.create("A1", a)
	c := s.create("C", nil)
	a2 := s.create("A2", a)

	roots, err := s.store.RootPages(s.ctx)
	s.Require().NoError(err)
	s.Equal([]models.PageID{a.ID, b.ID, c.ID}, s.ids(roots))

	children, err := s.store.Children(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Equal([]models.PageID{a1.ID, a2.ID}, s.ids(children))

	children, err = s.store.Children(s.ctx, b.ID)
	s.Require().NoError(err)
	s.Empty(children)
}

func (s *Suite) TestTreeConsistencyUnderChurn() {
	var live []*models.Page
	for i := 0; i < 30; i++ {
		var parent *models.Page
		if len(live) > 0 && i%3 != 0 {
			parent = live[(i*7)%len(live)]
		}
		live = append(live, s.create(fmt.Sprint(i), parent))

		if i%5 == 4 {
			victim := live[(i*11)%len(live)]
			err := s.store.DeletePage(s.ctx, victim.ID)
			if err != nil {
				s.ErrorIs(err, localstore.ErrNotFound)
			}
			pages, err := s.store.ListPages(s.ctx)
			s.Require().NoError(err)
			live = pages
		}
		s.assertTree()
	}
}

func (s *Suite) TestSettingsDefaults() {
	settings, err := s.store.Settings(s.ctx)
	s.Require().NoError(err)
	s.Equal(models.DefaultSettings(), settings)
}

func (s *Suite) TestUpdateSettings() {
	id := models.PageID("page_1_abc")
	updated, err := s.store.UpdateSettings(s.ctx, models.SettingsUpdate{
		OpenRouterAPIKey: models.Ptr("sk-or-test"),
		DefaultLanguage:  models.Ptr("fr"),
		CurrentPageID:    &id,
	})
	s.Require().NoError(err)
	s.Equal("fr", updated.DefaultLanguage)

	stored, err := s.store.Settings(s.ctx)
	s.Require().NoError(err)
	s.Equal("sk-or-test", stored.OpenRouterAPIKey)
	s.Equal("fr", stored.DefaultLanguage)
	s.Equal(models.DefaultModel, stored.DefaultModel)
	s.True(stored.AIAssistantEnabled)
	s.Require().NotNil(stored.CurrentPageID)
	s.Equal(id, *stored.CurrentPageID)

	_, err = s.store.UpdateSettings(s.ctx, models.SelectPage(nil))
	s.Require().NoError(err)
	stored, err = s.store.Settings(s.ctx)
	s.Require().NoError(err)
	s.Nil(stored.CurrentPageID)
	s.Equal("fr", stored.DefaultLanguage)
}

func (s *Suite) TestExportImport() {
	root := s.create("Root", nil)
	child := s.create("Child", root)
	_, err := s.store.UpdatePage(s.ctx, child.ID, models.PageUpdate{Content: models.Ptr("body")})
	s.Require().NoError(err)
	_, err = s.store.UpdateSettings(s.ctx, models.SettingsUpdate{DefaultLanguage: models.Ptr("de")})
	s.Require().NoError(err)

	snapshot, err := s.store.Export(s.ctx)
	s.Require().NoError(err)
	s.Len(snapshot.Pages, 2)
	s.Equal("de", snapshot.Settings.DefaultLanguage)

	s.Require().NoError(s.store.Clear(s.ctx))
	pages, err := s.store.ListPages(s.ctx)
	s.Require().NoError(err)
	s.Empty(pages)

	s.Require().NoError(s.store.Import(s.ctx, snapshot))
	s.Equal("body", s.get(child.ID).Content)
	s.Equal([]models.PageID{child.ID}, s.get(root.ID).Children)
	settings, err := s.store.Settings(s.ctx)
	s.Require().NoError(err)
	s.Equal("de", settings.DefaultLanguage)
	s.assertTree()
}

func (s *Suite) TestImportRejectsBrokenTree() {
	keep := s.create("Keep", nil)
	missing := models.PageID("page_0_missing")

	err := s.store.Import(s.ctx, &models.Snapshot{
		Pages:    []*models.Page{{ID: "page_1_x", Title: "x", ParentID: &missing, Children: []models.PageID{}}},
		Settings: models.DefaultSettings(),
	})
	s.ErrorIs(err, models.ErrInconsistentTree)
	s.get(keep.ID)
}

func (s *Suite) TestClear() {
	s.create("Root", nil)
	_, err := s.store.UpdateSettings(s.ctx, models.SettingsUpdate{DefaultLanguage: models.Ptr("es")})
	s.Require().NoError(err)

	s.Require().NoError(s.store.Clear(s.ctx))

	pages, err := s.store.ListPages(s.ctx)
	s.Require().NoError(err)
	s.Empty(pages)
	settings, err := s.store.Settings(s.ctx)
	s.Require().NoError(err)
	s.Equal(models.DefaultSettings(), settings)
}
