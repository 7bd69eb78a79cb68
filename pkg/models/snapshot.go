package models

import (
	"errors"
	"fmt"
	"slices"
)

// Snapshot is the full local state, used for export and import.
type Snapshot struct {
	Pages    []*Page  `json:"pages"`
	Settings Settings `json:"settings"`
}

// ErrInconsistentTree is returned by CheckTree when parent and children links
// disagree.
var ErrInconsistentTree = errors.New("inconsistent page tree")

// CheckTree verifies that every parent reference points at an existing page and
// that each page's children are exactly the pages naming it as parent.
func CheckTree(pages []*Page) error {
	byID := make(map[PageID]*Page, len(pages))
	for _, p := range pages {
		if p.ID.IsZero() {
			return fmt.Errorf("%w: page without id", ErrInconsistentTree)
		}
		if _, dup := byID[p.ID]; dup {
			return fmt.Errorf("%w: duplicate id %s", ErrInconsistentTree, p.ID)
		}
		byID[p.ID] = p
	}

	expected := make(map[PageID][]PageID, len(pages))
	for _, p := range pages {
		if p.ParentID == nil {
			continue
		}
		if _, ok := byID[*p.ParentID]; !ok {
			return fmt.Errorf("%w: %s references missing parent %s", ErrInconsistentTree, p.ID, *p.ParentID)
		}
		expected[*p.ParentID] = append(expected[*p.ParentID], p.ID)
	}

	for _, p := range pages {
		got := slices.Clone(p.Children)
		want := expected[p.ID]
		slices.Sort(got)
		slices.Sort(want)
		if !slices.Equal(got, want) {
			return fmt.Errorf("%w: children of %s are %v, want %v", ErrInconsistentTree, p.ID, p.Children, expected[p.ID])
		}
	}
	return nil
}
