package models_test

import (
	"strings"
	"testing"

	"github.com/notedcloud/noted/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestDeriveTitle(t *testing.T) {
	long := strings.Repeat("a", 60)

	cases := []struct {
		name    string
		content string
		want    string
	}{
		{"empty", "", models.DefaultTitle},
		{"blank", "  \n\t\n ", models.DefaultTitle},
		{"first line", "First line\nSecond line", "First line"},
		{"leading whitespace", "\n\n  Hello\nworld", "Hello"},
		{"exactly fifty", strings.Repeat("b", 50), strings.Repeat("b", 50)},
		{"truncated", long, strings.Repeat("a", 50) + "..."},
		{"crlf", "Windows\r\nline", "Windows"},
		{"multibyte", strings.Repeat("é", 51), strings.Repeat("é", 50) + "..."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, models.DeriveTitle(tc.content))
		})
	}
}

func TestTitleFollowsContent(t *testing.T) {
	assert.True(t, models.TitleFollowsContent(models.DefaultTitle, "anything"))
	assert.True(t, models.TitleFollowsContent("First line", "First line\nmore"))
	assert.False(t, models.TitleFollowsContent("My title", "First line\nmore"))
	assert.True(t, models.TitleFollowsContent("", "First line\nmore"))
	assert.True(t, models.TitleFollowsContent("  ", "First line\nmore"))
}

func TestResolveTitle(t *testing.T) {
	assert.Equal(t, "Kept", models.ResolveTitle("Kept", "First line"))
	assert.Equal(t, "First line", models.ResolveTitle("", "First line\nmore"))
	assert.Equal(t, "First line", models.ResolveTitle(" \t", "First line"))
	assert.Equal(t, models.DefaultTitle, models.ResolveTitle("", ""))
}
