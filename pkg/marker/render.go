package marker

import (
	"bytes"
	"html/template"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const noteTemplate = `{{define "segments"}}{{range .}}{{if .IsMarker}}<mark class="marker" data-citation="{{.ID}}">{{.Text}}</mark>{{else}}{{.Text}}{{end}}{{end}}{{end}}
{{- define "note"}}<div class="note">
{{range .Lines}}{{if .IsCitation}}<blockquote class="citation" id="citation-{{.CitationID}}" data-citation="{{.CitationID}}">{{template "segments" .Segments}}</blockquote>
{{else if .IsQuote}}<blockquote class="quote">{{template "segments" .Segments}}</blockquote>
{{else if .IsBlank}}<br>
{{else}}<p>{{template "segments" .Segments}}</p>
{{end}}{{end}}</div>
{{end}}`

var noteHTML = template.Must(template.New("marker").Parse(noteTemplate))

// WriteHTML renders the document as an HTML fragment. Markers and citations
// sharing an id carry the same data-citation attribute.
func WriteHTML(w io.Writer, doc Document) error {
	return noteHTML.ExecuteTemplate(w, "note", doc)
}

// RenderHTML is WriteHTML into a template.HTML value.
func RenderHTML(doc Document) (template.HTML, error) {
	var buf bytes.Buffer
	if err := WriteHTML(&buf, doc); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

var (
	markerStyle = lipgloss.NewStyle().
			Underline(true).
			Foreground(lipgloss.Color("220"))
	markerIDStyle = lipgloss.NewStyle().
			Faint(true)
	citationStyle = lipgloss.NewStyle().
			Border(lipgloss.ThickBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("33")).
			PaddingLeft(1).
			Italic(true)
	quoteStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("241")).
			PaddingLeft(1)
)

// RenderTerminal renders the document for a terminal. Lines wrap at width
// when it is positive.
func RenderTerminal(doc Document, width int) string {
	out := make([]string, 0, len(doc.Lines))
	for _, line := range doc.Lines {
		switch line.Kind {
		case LineBlank:
			out = append(out, "")
		case LineCitation:
			body := markerIDStyle.Render("["+line.CitationID+"]") + " " + renderSegments(line.Segments)
			out = append(out, blockStyle(citationStyle, width).Render(body))
		case LineQuote:
			out = append(out, blockStyle(quoteStyle, width).Render(renderSegments(line.Segments)))
		default:
			text := renderSegments(line.Segments)
			if width > 0 {
				text = lipgloss.NewStyle().Width(width).Render(text)
			}
			out = append(out, text)
		}
	}
	return strings.Join(out, "\n")
}

func blockStyle(style lipgloss.Style, width int) lipgloss.Style {
	if width > 2 {
		return style.Width(width - 1)
	}
	return style
}

func renderSegments(segments []Segment) string {
	var b strings.Builder
	for _, seg := range segments {
		if seg.IsMarker() {
			b.WriteString(markerStyle.Render(seg.Text))
			b.WriteString(markerIDStyle.Render("[" + seg.ID + "]"))
			continue
		}
		b.WriteString(seg.Text)
	}
	return b.String()
}
