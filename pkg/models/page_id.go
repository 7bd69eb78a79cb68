package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// idSuffixLen is the number of random base36 characters appended to a page id.
const idSuffixLen = 9

// PageID is the opaque identifier of a page. It is generated once, when the page
// is created, and never changes.
type PageID string

// NewPageID returns an id of the form page_<unix millis>_<random suffix>.
func NewPageID(now time.Time) PageID {
	random := uuid.New()
	suffix := make([]byte, idSuffixLen)
	for i := range suffix {
		suffix[i] = idAlphabet[int(random[i])%len(idAlphabet)]
	}
	return PageID(fmt.Sprintf("page_%d_%s", now.UnixMilli(), suffix))
}

func (id PageID) String() string {
	return string(id)
}

// IsZero reports whether the id is empty.
func (id PageID) IsZero() bool {
	return id == ""
}
