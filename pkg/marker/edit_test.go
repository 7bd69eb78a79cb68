package marker_test

import (
	"strings"
	"testing"

	"github.com/notedcloud/noted/pkg/marker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextCitationID(t *testing.T) {
	assert.Equal(t, "1", marker.NextCitationID("nothing here"))
	assert.Equal(t, "4", marker.NextCitationID("[[a:1]] [[b:3]]\n> [2] two\n> [x] named"))
	assert.Equal(t, "8", marker.NextCitationID("> [7] only a citation"))
}

func TestInsertCitation(t *testing.T) {
	content := "First line mentions embeddings today.\nSecond line"
	start := strings.Index(content, " embeddings ")
	end := start + len(" embeddings ")

	got, err := marker.InsertCitation(content, start, end, "1", "Vectors that\nencode meaning.")
	require.NoError(t, err)
	assert.Equal(t,
		"First line mentions [[embeddings:1]] today.\n\n> [1] Vectors that encode meaning.\nSecond line",
		got)

	doc := marker.Parse(got)
	links := doc.Links()
	require.Contains(t, links, "1")
	assert.Equal(t, []string{"embeddings"}, links["1"].Markers)
	require.NotNil(t, links["1"].Citation)
}

func TestInsertCitationAtEndOfContent(t *testing.T) {
	got, err := marker.InsertCitation("last word", 5, 9, "2", "a term")
	require.NoError(t, err)
	assert.Equal(t, "last [[word:2]]\n\n> [2] a term", got)
}

func TestInsertCitationRejects(t *testing.T) {
	content := "see [[this:1]] and that: here\nnext"
	tests := []struct {
		name        string
		start, end  int
		id, explain string
		err         error
	}{
		{"inside marker", 6, 10, "2", "x", marker.ErrInvalidSelection},
		{"holds colon", 19, 26, "2", "x", marker.ErrInvalidSelection},
		{"spans lines", 25, 34, "2", "x", marker.ErrInvalidSelection},
		{"bad id", 15, 18, "a]b", "x", marker.ErrInvalidCitation},
		{"empty explanation", 15, 18, "2", "  \n ", marker.ErrInvalidCitation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := marker.InsertCitation(content, tt.start, tt.end, tt.id, tt.explain)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}
