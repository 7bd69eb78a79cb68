package models

import "time"

// PublicPage is what the page service returns for a published page.
type PublicPage struct {
	ID        PageID    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PublishRequest is the body of a publish call. Both fields are pointers so a
// missing field can be told apart from a zero value.
type PublishRequest struct {
	PageData *Page `json:"pageData" validate:"required"`
	IsPublic *bool `json:"isPublic" validate:"required"`
}

// PublishResponse is the body of a successful publish call.
type PublishResponse struct {
	Success bool `json:"success"`
}

// ErrorResponse is the body of every failed page service call.
type ErrorResponse struct {
	Error string `json:"error"`
}
