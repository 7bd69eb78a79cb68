package server

import (
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/notedcloud/noted/pkg/marker"
	"github.com/notedcloud/noted/pkg/models"
	"github.com/notedcloud/noted/pkg/pagestore"
	"github.com/rs/zerolog"
)

var pageView = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
body { max-width: 46rem; margin: 2rem auto; padding: 0 1rem; font-family: system-ui, sans-serif; line-height: 1.6; color: #1f2937; }
mark.marker { background: #fef9c3; border-bottom: 2px solid #facc15; padding: 0 .2rem; }
blockquote.citation { margin: .75rem 0; padding: .75rem 1rem; border-left: 4px solid #3b82f6; background: #eff6ff; font-style: italic; }
blockquote.quote { margin: .75rem 0; padding-left: 1rem; border-left: 3px solid #d1d5db; }
.active { background: #fde68a; }
footer { margin-top: 3rem; font-size: .85rem; color: #6b7280; }
</style>
</head>
<body>
{{if .Found}}<h1>{{.Title}}</h1>
{{.Body}}
<footer>Updated {{.Updated}}</footer>
<script>
document.querySelectorAll("[data-citation]").forEach(function (el) {
  var peers = document.querySelectorAll('[data-citation="' + el.dataset.citation + '"]');
  el.addEventListener("mouseenter", function () { peers.forEach(function (p) { p.classList.add("active"); }); });
  el.addEventListener("mouseleave", function () { peers.forEach(function (p) { p.classList.remove("active"); }); });
});
</script>
{{else}}<h1>Page not found</h1>
<p>This page does not exist or is not public.</p>
{{end}}</body>
</html>
`))

type pageViewData struct {
	Found   bool
	Title   string
	Body    template.HTML
	Updated string
}

// handlePublicView renders a public page as HTML with its markers and
// citations linked.
func (a *App) handlePublicView(w http.ResponseWriter, r *http.Request) {
	id := models.PageID(mux.Vars(r)["pageId"])
	logger := zerolog.Ctx(r.Context())

	page, err := a.store.GetPublic(r.Context(), id)
	if errors.Is(err, pagestore.ErrNotFound) {
		renderView(w, http.StatusNotFound, pageViewData{Title: "Page not found"}, logger)
		return
	}
	if err != nil {
		logger.Error().Err(err).Str("page_id", id.String()).Msg("failed to fetch page")
		http.Error(w, "Failed to fetch page data.", http.StatusInternalServerError)
		return
	}

	body, err := marker.RenderHTML(marker.Parse(page.Content))
	if err != nil {
		logger.Error().Err(err).Str("page_id", id.String()).Msg("failed to render page")
		http.Error(w, "Failed to render page.", http.StatusInternalServerError)
		return
	}
	renderView(w, http.StatusOK, pageViewData{
		Found:   true,
		Title:   page.Title,
		Body:    body,
		Updated: page.UpdatedAt.UTC().Format(time.RFC1123),
	}, logger)
}

func renderView(w http.ResponseWriter, status int, data pageViewData, logger *zerolog.Logger) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageView.Execute(w, data); err != nil {
		logger.Error().Err(err).Msg("failed to write page view")
	}
}
