package marker_test

import (
	"strings"
	"testing"

	"github.com/notedcloud/noted/pkg/marker"
	"github.com/stretchr/testify/assert"
)

func TestSelectionAllowed(t *testing.T) {
	content := "plain words [[marked text:1]] more words"
	at := func(sub string) (int, int) {
		i := strings.Index(content, sub)
		return i, i + len(sub)
	}

	tests := []struct {
		name string
		sub  string
		want bool
	}{
		{"plain text", "plain words", true},
		{"inside marker", "marked", false},
		{"whole marker", "[[marked text:1]]", false},
		{"around marker", "words [[marked text:1]] more", false},
		{"after marker", "more words", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := at(tt.sub)
			assert.Equal(t, tt.want, marker.SelectionAllowed(content, start, end))
		})
	}
}

func TestSelectionAllowedRejectsBadRanges(t *testing.T) {
	assert.False(t, marker.SelectionAllowed("abc", -1, 2))
	assert.False(t, marker.SelectionAllowed("abc", 2, 2))
	assert.False(t, marker.SelectionAllowed("abc", 1, 9))
	assert.False(t, marker.SelectionAllowed("a   b", 1, 4))
}

func TestInsideMarkerLooksOnlyAtWindow(t *testing.T) {
	far := "[[open" + strings.Repeat(" ", marker.ContextWindow) + "target]] tail"
	start := strings.Index(far, "target")
	assert.True(t, marker.InsideMarker(far[:start], far[start+len("target"):]))
	assert.True(t, marker.SelectionAllowed(far, start, start+len("target")))
}

func TestContainsMarker(t *testing.T) {
	assert.True(t, marker.ContainsMarker("a [[b:1]] c"))
	assert.False(t, marker.ContainsMarker("a [[b:1 c"))
}
