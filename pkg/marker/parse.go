package marker

import (
	"regexp"
	"strings"
)

var (
	markerPattern   = regexp.MustCompile(`\[\[([^:]+):([^\]]+)\]\]`)
	citationPattern = regexp.MustCompile(`^>\s*\[([^\]]+)\]\s*(.+)$`)
)

// SegmentKind tells plain text from a marker.
type SegmentKind int

const (
	SegmentText SegmentKind = iota
	SegmentMarker
)

// Segment is a run of a line. ID is set for markers only.
type Segment struct {
	Kind SegmentKind
	Text string
	ID   string
}

func (s Segment) IsMarker() bool { return s.Kind == SegmentMarker }

// LineKind classifies a line of content.
type LineKind int

const (
	LineText LineKind = iota
	LineBlank
	LineCitation
	// LineQuote is a line starting with '>' that is not a citation.
	LineQuote
)

// Line is one parsed line. Number starts at 1.
type Line struct {
	Kind       LineKind
	Number     int
	Raw        string
	CitationID string
	Segments   []Segment
}

func (l Line) IsCitation() bool { return l.Kind == LineCitation }
func (l Line) IsQuote() bool    { return l.Kind == LineQuote }
func (l Line) IsBlank() bool    { return l.Kind == LineBlank }

// Document is the parsed form of a note's content.
type Document struct {
	Lines []Line
}

// Marker is an inline marker with the line it appears on.
type Marker struct {
	Text string
	ID   string
	Line int
}

// Citation is a citation line.
type Citation struct {
	ID      string
	Content string
	Line    int
}

// Link gathers everything sharing one id.
type Link struct {
	ID       string
	Markers  []string
	Citation *Citation
}

// Parse splits content into lines and finds markers and citations in them.
func Parse(content string) Document {
	raw := strings.Split(content, "\n")
	doc := Document{Lines: make([]Line, 0, len(raw))}
	for i, text := range raw {
		doc.Lines = append(doc.Lines, parseLine(i+1, strings.TrimSuffix(text, "\r")))
	}
	return doc
}

func parseLine(number int, text string) Line {
	line := Line{Number: number, Raw: text}
	trimmed := strings.TrimSpace(text)
	switch {
	case trimmed == "":
		line.Kind = LineBlank
	case strings.HasPrefix(trimmed, ">"):
		if m := citationPattern.FindStringSubmatch(text); m != nil {
			line.Kind = LineCitation
			line.CitationID = m[1]
			line.Segments = parseSegments(m[2])
		} else {
			line.Kind = LineQuote
			line.Segments = parseSegments(strings.TrimSpace(strings.TrimPrefix(trimmed, ">")))
		}
	default:
		line.Kind = LineText
		line.Segments = parseSegments(text)
	}
	return line
}

func parseSegments(text string) []Segment {
	var segments []Segment
	last := 0
	for _, m := range markerPattern.FindAllStringSubmatchIndex(text, -1) {
		if m[0] > last {
			segments = append(segments, Segment{Kind: SegmentText, Text: text[last:m[0]]})
		}
		segments = append(segments, Segment{
			Kind: SegmentMarker,
			Text: text[m[2]:m[3]],
			ID:   text[m[4]:m[5]],
		})
		last = m[1]
	}
	if last < len(text) || len(segments) == 0 {
		segments = append(segments, Segment{Kind: SegmentText, Text: text[last:]})
	}
	return segments
}

// Markers returns every inline marker in document order, including the ones
// inside citation lines.
func (d Document) Markers() []Marker {
	var out []Marker
	for _, line := range d.Lines {
		for _, seg := range line.Segments {
			if seg.IsMarker() {
				out = append(out, Marker{Text: seg.Text, ID: seg.ID, Line: line.Number})
			}
		}
	}
	return out
}

// MarkerIDs returns the distinct marker ids in order of first appearance.
func (d Document) MarkerIDs() []string {
	seen := map[string]bool{}
	var ids []string
	for _, m := range d.Markers() {
		if !seen[m.ID] {
			seen[m.ID] = true
			ids = append(ids, m.ID)
		}
	}
	return ids
}

func (d Document) Citations() []Citation {
	var out []Citation
	for _, line := range d.Lines {
		if line.IsCitation() {
			out = append(out, Citation{ID: line.CitationID, Content: joinSegments(line.Segments), Line: line.Number})
		}
	}
	return out
}

// HasAnnotations reports whether the document holds a marker or a citation.
func (d Document) HasAnnotations() bool {
	return len(d.Markers()) > 0 || len(d.Citations()) > 0
}

// Links maps each id to its marker texts and its first citation.
func (d Document) Links() map[string]*Link {
	links := map[string]*Link{}
	get := func(id string) *Link {
		l, ok := links[id]
		if !ok {
			l = &Link{ID: id}
			links[id] = l
		}
		return l
	}
	for _, m := range d.Markers() {
		l := get(m.ID)
		l.Markers = append(l.Markers, m.Text)
	}
	for _, c := range d.Citations() {
		l := get(c.ID)
		if l.Citation == nil {
			l.Citation = &c
		}
	}
	return links
}

// joinSegments returns the raw text of segments, markers written back in
// their source form.
func joinSegments(segments []Segment) string {
	var b strings.Builder
	for _, seg := range segments {
		if seg.IsMarker() {
			b.WriteString("[[" + seg.Text + ":" + seg.ID + "]]")
			continue
		}
		b.WriteString(seg.Text)
	}
	return b.String()
}
