package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/notedcloud/noted/pkg/models"
	"github.com/notedcloud/noted/pkg/pagestore"
	"github.com/notedcloud/noted/pkg/publish"
	"github.com/rs/zerolog"
)

const maxPublishBody = 4 << 20

// handleGetPublic returns the public copy of a page.
//
// HTTP Method: GET
// Endpoint: /api/p/{pageId}
//
// Response:
//   - 200 OK: {"id","title","content","updated_at"}
//   - 404 Not Found: the page was never published or is private again. The
//     two cases get the same answer.
//   - 500 Internal Server Error: the store failed
func (a *App) handleGetPublic(w http.ResponseWriter, r *http.Request) {
	id := models.PageID(mux.Vars(r)["pageId"])

	page, err := a.store.GetPublic(r.Context(), id)
	if errors.Is(err, pagestore.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Page not found or is not public.")
		return
	}
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("page_id", id.String()).Msg("failed to fetch page")
		respondError(w, http.StatusInternalServerError, "Failed to fetch page data.")
		return
	}

	respondJSON(w, http.StatusOK, page)
}

// handlePublish makes a page public or private.
//
// HTTP Method: POST
// Endpoint: /api/p/{pageId}/publish
// Content-Type: application/json
//
// Request body:
//
//	{"pageData": {"id": "...", "title": "...", "content": "...", ...}, "isPublic": true}
//
// With isPublic true the page row is inserted or overwritten (title, content,
// is_public and updated_at; created_at is kept). With isPublic false the row
// is only marked private. Repeating a call leaves the same row.
//
// Response:
//   - 200 OK: {"success": true}
//   - 400 Bad Request: malformed JSON, missing pageData or isPublic, missing
//     page id, page id not matching the path, or no title when publishing
//   - 401 Unauthorized: a JWT secret is configured and the bearer token is
//     missing or invalid
//   - 403 Forbidden: the service is in read-only mode
//   - 500 Internal Server Error: the store failed
func (a *App) handlePublish(w http.ResponseWriter, r *http.Request) {
	pageID := models.PageID(mux.Vars(r)["pageId"])
	logger := zerolog.Ctx(r.Context())

	if a.config.JWTSecret != "" {
		subject, err := publish.VerifyToken(a.config.JWTSecret, getTokenFromHeader(r))
		if err != nil {
			logger.Warn().Err(err).Str("page_id", pageID.String()).Msg("rejected publish token")
			respondError(w, http.StatusUnauthorized, "Invalid or missing token.")
			return
		}
		logger.Debug().Str("subject", subject).Msg("publish token accepted")
	}

	var req models.PublishRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPublishBody)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload.")
		return
	}
	if req.PageData == nil || req.IsPublic == nil {
		respondError(w, http.StatusBadRequest, "Missing page data or public status.")
		return
	}
	if err := a.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "Missing page id.")
		return
	}
	if req.PageData.ID != pageID {
		respondError(w, http.StatusBadRequest, "Page ID mismatch.")
		return
	}

	action := "retract"
	var err error
	if *req.IsPublic {
		action = "publish"
		if strings.TrimSpace(req.PageData.Title) == "" {
			respondError(w, http.StatusBadRequest, "Missing page title.")
			return
		}
		err = a.store.Upsert(r.Context(), a.normalize(req.PageData))
	} else {
		err = a.store.Retract(r.Context(), pageID, a.now())
	}

	switch {
	case errors.Is(err, pagestore.ErrReadOnly):
		a.metrics.publish.WithLabelValues(action, "read_only").Inc()
		respondError(w, http.StatusForbidden, err.Error())
		return
	case err != nil:
		a.metrics.publish.WithLabelValues(action, "error").Inc()
		logger.Error().Err(err).Str("page_id", pageID.String()).Str("action", action).Msg("failed to sync page")
		respondError(w, http.StatusInternalServerError, "Failed to sync page data.")
		return
	}

	a.metrics.publish.WithLabelValues(action, "ok").Inc()
	logger.Info().Str("page_id", pageID.String()).Str("action", action).Msg("page synced")
	respondJSON(w, http.StatusOK, models.PublishResponse{Success: true})
}

// normalize fills in timestamps a client left out.
func (a *App) normalize(page *models.Page) *models.Page {
	page = page.Clone()
	now := a.now()
	if page.CreatedAt.IsZero() {
		page.CreatedAt = now
	}
	if page.UpdatedAt.IsZero() {
		page.UpdatedAt = now
	}
	return page
}

// handleInitDB bootstraps the schema. It is idempotent.
func (a *App) handleInitDB(w http.ResponseWriter, r *http.Request) {
	err := a.store.Migrate(r.Context())
	switch {
	case errors.Is(err, pagestore.ErrReadOnly):
		respondError(w, http.StatusForbidden, err.Error())
	case err != nil:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to initialize database")
		respondError(w, http.StatusInternalServerError, "Failed to initialize database.")
	default:
		respondJSON(w, http.StatusOK, map[string]string{"message": "Database initialized successfully."})
	}
}

// handleHealth reports that the service is up, which store it uses and
// whether it accepts writes. It never touches the store.
func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"store":     a.config.Store,
		"read_only": a.IsReadOnly(),
		"time":      time.Now().Unix(),
	})
}

// getTokenFromHeader extracts the token from the Authorization header.
func getTokenFromHeader(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const bearerPrefix = "Bearer "
	if len(auth) > len(bearerPrefix) && strings.EqualFold(auth[:len(bearerPrefix)], bearerPrefix) {
		return auth[len(bearerPrefix):]
	}
	return auth
}

// respondJSON sends payload as JSON with the given status.
func respondJSON(w http.ResponseWriter, status int, payload any) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_, _ = w.Write(response)
	}
}

// respondError sends {"error": message}.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, models.ErrorResponse{Error: message})
}
