package models

import (
	"slices"
	"time"
)

// DefaultTitle is the title of a page whose content is empty.
const DefaultTitle = "New page"

// Page is a single note.
type Page struct {
	ID        PageID    `json:"id" validate:"required"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	ParentID  *PageID   `json:"parentId,omitempty"`
	Children  []PageID  `json:"children"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	IsPublic  *bool     `json:"isPublic,omitempty"`
}

// NewPage builds a page with a fresh id. The page is not linked into its
// parent's children; stores do that when they persist it.
func NewPage(title string, parentID *PageID, now time.Time) *Page {
	if title == "" {
		title = DefaultTitle
	}
	page := &Page{
		ID:        NewPageID(now),
		Title:     title,
		Children:  []PageID{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if parentID != nil {
		parent := *parentID
		page.ParentID = &parent
	}
	return page
}

// Public reports whether the page is currently marked public.
func (p *Page) Public() bool {
	return p.IsPublic != nil && *p.IsPublic
}

// IsRoot reports whether the page has no parent.
func (p *Page) IsRoot() bool {
	return p.ParentID == nil
}

// HasChild reports whether id is listed in the page's children.
func (p *Page) HasChild(id PageID) bool {
	return slices.Contains(p.Children, id)
}

// AddChild appends id to the children unless it is already present.
func (p *Page) AddChild(id PageID) {
	if !p.HasChild(id) {
		p.Children = append(p.Children, id)
	}
}

// RemoveChild drops id from the children, keeping the order of the rest.
func (p *Page) RemoveChild(id PageID) bool {
	i := slices.Index(p.Children, id)
	if i < 0 {
		return false
	}
	p.Children = slices.Delete(p.Children, i, i+1)
	return true
}

// Clone returns a deep copy of the page.
func (p *Page) Clone() *Page {
	if p == nil {
		return nil
	}
	c := *p
	if p.ParentID != nil {
		parent := *p.ParentID
		c.ParentID = &parent
	}
	if p.IsPublic != nil {
		public := *p.IsPublic
		c.IsPublic = &public
	}
	c.Children = slices.Clone(p.Children)
	if c.Children == nil {
		c.Children = []PageID{}
	}
	return &c
}

// SortByCreation orders pages by creation time, oldest first. Pages created in
// the same instant keep their id order so results are deterministic.
func SortByCreation(pages []*Page) {
	slices.SortStableFunc(pages, func(a, b *Page) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
}

// Ptr returns a pointer to v. It keeps update literals short:
//
//	models.PageUpdate{IsPublic: models.Ptr(true)}
func Ptr[T any](v T) *T {
	return &v
}
