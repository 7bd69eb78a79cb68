package models

import "time"

// PageUpdate is a partial update of a page. Nil fields are left untouched.
//
// The tree links (parent and children) are not updatable: they change only when
// pages are created or deleted.
type PageUpdate struct {
	Title    *string `json:"title,omitempty"`
	Content  *string `json:"content,omitempty"`
	IsPublic *bool   `json:"isPublic,omitempty"`
}

// Empty reports whether the update carries no field.
func (u PageUpdate) Empty() bool {
	return u.Title == nil && u.Content == nil && u.IsPublic == nil
}

// TouchesPublic reports whether the update sets the public flag. Setting it to
// its current value still counts.
func (u PageUpdate) TouchesPublic() bool {
	return u.IsPublic != nil
}

// Apply merges the update into p and refreshes UpdatedAt.
func (u PageUpdate) Apply(p *Page, now time.Time) {
	if u.Title != nil {
		p.Title = *u.Title
	}
	if u.Content != nil {
		p.Content = *u.Content
	}
	if u.IsPublic != nil {
		public := *u.IsPublic
		p.IsPublic = &public
	}
	p.UpdatedAt = now
}
