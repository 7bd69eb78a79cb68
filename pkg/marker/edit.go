package marker

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrInvalidSelection = errors.New("selection cannot be annotated")
	ErrInvalidCitation  = errors.New("invalid citation")
)

// NextCitationID returns one more than the highest numeric id used by a
// marker or citation in content, starting at 1. Non-numeric ids are skipped.
func NextCitationID(content string) string {
	doc := Parse(content)
	highest := 0
	consider := func(id string) {
		if n, err := strconv.Atoi(id); err == nil && n > highest {
			highest = n
		}
	}
	for _, m := range doc.Markers() {
		consider(m.ID)
	}
	for _, c := range doc.Citations() {
		consider(c.ID)
	}
	return strconv.Itoa(highest + 1)
}

// InsertCitation wraps content[start:end] in a marker with the given id and
// adds the matching citation line, separated by a blank line, after the line
// the selection ends on. Whitespace around the selection stays outside the
// marker.
func InsertCitation(content string, start, end int, id, explanation string) (string, error) {
	if !SelectionAllowed(content, start, end) {
		return "", ErrInvalidSelection
	}
	selected := content[start:end]
	if strings.ContainsAny(selected, ":\n") {
		return "", fmt.Errorf("%w: selection spans lines or holds a colon", ErrInvalidSelection)
	}
	if id == "" || strings.ContainsAny(id, "]\n") {
		return "", fmt.Errorf("%w: id %q", ErrInvalidCitation, id)
	}
	explanation = strings.Join(strings.Fields(explanation), " ")
	if explanation == "" {
		return "", fmt.Errorf("%w: empty explanation", ErrInvalidCitation)
	}

	text := strings.TrimSpace(selected)
	lead := selected[:strings.Index(selected, text)]
	trail := selected[len(lead)+len(text):]
	marked := content[:start] + lead + "[[" + text + ":" + id + "]]" + trail

	rest := content[end:]
	lineEnd := strings.IndexByte(rest, '\n')
	if lineEnd < 0 {
		lineEnd = len(rest)
	}
	return marked + rest[:lineEnd] + "\n\n> [" + id + "] " + explanation + rest[lineEnd:], nil
}
