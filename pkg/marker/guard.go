package marker

import (
	"regexp"
	"strings"
)

// ContextWindow is how many bytes around a selection the guards look at.
const ContextWindow = 50

var (
	openMarkerBefore = regexp.MustCompile(`\[\[[^\]]*$`)
	closeMarkerAfter = regexp.MustCompile(`^[^\[]*\]\]`)
	completeMarker   = regexp.MustCompile(`\[\[.*?\]\]`)
)

// InsideMarker reports whether a selection sits between the brackets of a
// marker, given the text right before and right after it.
func InsideMarker(before, after string) bool {
	return openMarkerBefore.MatchString(before) && closeMarkerAfter.MatchString(after)
}

// ContainsMarker reports whether text holds a complete marker.
func ContainsMarker(text string) bool {
	return completeMarker.MatchString(text)
}

// SelectionAllowed reports whether the editor may act on content[start:end].
// Blank selections, selections inside a marker and selections holding a whole
// marker are refused. Offsets are byte offsets.
func SelectionAllowed(content string, start, end int) bool {
	if start < 0 || end > len(content) || start >= end {
		return false
	}
	selected := content[start:end]
	if strings.TrimSpace(selected) == "" {
		return false
	}
	before := content[max(0, start-ContextWindow):start]
	after := content[end:min(len(content), end+ContextWindow)]
	return !InsideMarker(before, after) && !ContainsMarker(selected)
}
