package models

import (
	"strings"
	"unicode/utf8"
)

// MaxTitleLength is the number of characters of the first content line kept in
// a derived title.
const MaxTitleLength = 50

// DeriveTitle computes the title a page gets from its content: the first line of
// the trimmed content, cut to MaxTitleLength characters followed by "...", or
// DefaultTitle when the content is blank.
func DeriveTitle(content string) string {
	first, _, _ := strings.Cut(strings.TrimSpace(content), "\n")
	first = strings.TrimRight(first, "\r")
	if first == "" {
		return DefaultTitle
	}
	if utf8.RuneCountInString(first) > MaxTitleLength {
		return string([]rune(first)[:MaxTitleLength]) + "..."
	}
	return first
}

// TitleFollowsContent reports whether title has not been edited by hand, i.e. it
// is blank, still the default or exactly what DeriveTitle gives for content.
func TitleFollowsContent(title, content string) bool {
	return strings.TrimSpace(title) == "" || title == DefaultTitle || title == DeriveTitle(content)
}

// ResolveTitle returns title, or the title derived from content when title is
// blank. A page never carries a blank title.
func ResolveTitle(title, content string) string {
	if strings.TrimSpace(title) == "" {
		return DeriveTitle(content)
	}
	return title
}
