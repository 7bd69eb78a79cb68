package models_test

import (
	"regexp"
	"testing"
	"time"

	"github.com/notedcloud/noted/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPageID(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	pattern := regexp.MustCompile(`^page_1700000000123_[0-9a-z]{9}$`)

	seen := map[models.PageID]bool{}
	for range 100 {
		id := models.NewPageID(now)
		require.Regexp(t, pattern, id.String())
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestNewPage(t *testing.T) {
	now := time.Now()
	parent := models.PageID("page_1_parent")

	page := models.NewPage("", &parent, now)
	assert.Equal(t, models.DefaultTitle, page.Title)
	assert.Empty(t, page.Content)
	assert.Empty(t, page.Children)
	assert.NotNil(t, page.Children)
	assert.Equal(t, now, page.CreatedAt)
	assert.Equal(t, now, page.UpdatedAt)
	require.NotNil(t, page.ParentID)
	assert.Equal(t, parent, *page.ParentID)
	assert.False(t, page.Public())

	parent = "changed"
	assert.Equal(t, models.PageID("page_1_parent"), *page.ParentID)
}

func TestPageChildren(t *testing.T) {
	page := models.NewPage("Root", nil, time.Now())
	page.AddChild("a")
	page.AddChild("b")
	page.AddChild("a")
	page.AddChild("c")
	assert.Equal(t, []models.PageID{"a", "b", "c"}, page.Children)

	assert.True(t, page.RemoveChild("b"))
	assert.False(t, page.RemoveChild("b"))
	assert.Equal(t, []models.PageID{"a", "c"}, page.Children)
}

func TestPageClone(t *testing.T) {
	parent := models.PageID("p")
	page := &models.Page{ID: "x", ParentID: &parent, Children: []models.PageID{"c"}, IsPublic: models.Ptr(true)}

	clone := page.Clone()
	*clone.IsPublic = false
	*clone.ParentID = "other"
	clone.Children[0] = "d"

	assert.True(t, page.Public())
	assert.Equal(t, models.PageID("p"), *page.ParentID)
	assert.Equal(t, models.PageID("c"), page.Children[0])
}

func TestPageUpdateApply(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	later := created.Add(time.Hour)
	page := &models.Page{ID: "x", Title: "Old", Content: "old", CreatedAt: created, UpdatedAt: created}

	update := models.PageUpdate{Content: models.Ptr("new"), IsPublic: models.Ptr(false)}
	assert.True(t, update.TouchesPublic())
	assert.False(t, update.Empty())
	update.Apply(page, later)

	assert.Equal(t, "Old", page.Title)
	assert.Equal(t, "new", page.Content)
	require.NotNil(t, page.IsPublic)
	assert.False(t, *page.IsPublic)
	assert.Equal(t, created, page.CreatedAt)
	assert.Equal(t, later, page.UpdatedAt)

	assert.True(t, models.PageUpdate{}.Empty())
	assert.False(t, models.PageUpdate{Title: models.Ptr("t")}.TouchesPublic())
}

func TestSortByCreation(t *testing.T) {
	t0 := time.Unix(100, 0)
	pages := []*models.Page{
		{ID: "c", CreatedAt: t0.Add(2 * time.Second)},
		{ID: "b", CreatedAt: t0},
		{ID: "a", CreatedAt: t0},
	}
	models.SortByCreation(pages)
	assert.Equal(t, models.PageID("a"), pages[0].ID)
	assert.Equal(t, models.PageID("b"), pages[1].ID)
	assert.Equal(t, models.PageID("c"), pages[2].ID)
}
