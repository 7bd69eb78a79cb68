package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/notedcloud/noted/pkg/models"
	"github.com/notedcloud/noted/pkg/pagestore"
	"github.com/notedcloud/noted/pkg/publish"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"
)

type HandlersTestSuite struct {
	suite.Suite
	store  *pagestore.MemoryStore
	config *Config
	app    *App
	srv    *httptest.Server
	page   *models.Page
}

func TestHandlersTestSuite(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}

func (s *HandlersTestSuite) SetupTest() {
	s.store = pagestore.NewMemoryStore()
	s.config = DefaultConfig()
	s.config.Store = StoreMemory
	s.app = NewWithStore(s.store, s.config, zerolog.New(zerolog.NewTestWriter(s.T())))
	s.app.now = func() time.Time { return time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC) }
	s.srv = httptest.NewServer(s.app.Handler())

	created := time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)
	s.page = &models.Page{
		ID:        "page_1738396800000_abc123xyz",
		Title:     "Shared",
		Content:   "Hello [[world:1]]\n> [1] the planet",
		Children:  []models.PageID{},
		CreatedAt: created,
		UpdatedAt: created.Add(time.Hour),
	}
}

func (s *HandlersTestSuite) TearDownTest() {
	s.srv.Close()
}

func (s *HandlersTestSuite) do(method, path string, body any, header http.Header) (*http.Response, []byte) {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		s.Require().NoError(err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, s.srv.URL+path, reader)
	s.Require().NoError(err)
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	return resp, data
}

func (s *HandlersTestSuite) publish(isPublic bool) (*http.Response, []byte) {
	return s.do(http.MethodPost, "/api/p/"+s.page.ID.String()+"/publish",
		models.PublishRequest{PageData: s.page, IsPublic: &isPublic}, nil)
}

func (s *HandlersTestSuite) errorMessage(body []byte) string {
	var e models.ErrorResponse
	s.Require().NoError(json.Unmarshal(body, &e))
	return e.Error
}

func (s *HandlersTestSuite) TestPublishThenGet() {
	resp, body := s.publish(true)
	s.Require().Equal(http.StatusOK, resp.StatusCode, string(body))
	s.JSONEq(`{"success":true}`, string(body))

	resp, body = s.do(http.MethodGet, "/api/p/"+s.page.ID.String(), nil, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var got models.PublicPage
	s.Require().NoError(json.Unmarshal(body, &got))
	s.Equal(s.page.ID, got.ID)
	s.Equal(s.page.Title, got.Title)
	s.Equal(s.page.Content, got.Content)
	s.True(s.page.UpdatedAt.Equal(got.UpdatedAt))
	s.Contains(string(body), `"updated_at"`)
}

func (s *HandlersTestSuite) TestPublishIsIdempotent() {
	s.publish(true)
	first, err := s.store.GetPublic(context.Background(), s.page.ID)
	s.Require().NoError(err)

	resp, _ := s.publish(true)
	s.Equal(http.StatusOK, resp.StatusCode)
	second, err := s.store.GetPublic(context.Background(), s.page.ID)
	s.Require().NoError(err)
	s.Equal(first, second)
}

func (s *HandlersTestSuite) TestRetractHidesPage() {
	s.publish(true)
	resp, _ := s.publish(false)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	resp, body := s.do(http.MethodGet, "/api/p/"+s.page.ID.String(), nil, nil)
	s.Equal(http.StatusNotFound, resp.StatusCode)
	s.Equal("Page not found or is not public.", s.errorMessage(body))
	s.True(s.store.Exists(s.page.ID))
}

func (s *HandlersTestSuite) TestRetractUnknownPageSucceeds() {
	resp, _ := s.publish(false)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.False(s.store.Exists(s.page.ID))
}

func (s *HandlersTestSuite) TestGetNeverPublished() {
	resp, body := s.do(http.MethodGet, "/api/p/page_0_missing", nil, nil)
	s.Equal(http.StatusNotFound, resp.StatusCode)
	s.Equal("Page not found or is not public.", s.errorMessage(body))
}

func (s *HandlersTestSuite) TestPublishValidation() {
	path := "/api/p/" + s.page.ID.String() + "/publish"
	noTitle := s.page.Clone()
	noTitle.Title = " "
	noID := s.page.Clone()
	noID.ID = ""

	tests := []struct {
		name    string
		path    string
		body    any
		message string
	}{
		{"invalid json", path, "{not json", "Invalid request payload."},
		{"missing page data", path, `{"isPublic":true}`, "Missing page data or public status."},
		{"missing flag", path, map[string]any{"pageData": s.page}, "Missing page data or public status."},
		{"missing id", path, models.PublishRequest{PageData: noID, IsPublic: models.Ptr(true)}, "Missing page id."},
		{"id mismatch", "/api/p/page_0_other/publish", models.PublishRequest{PageData: s.page, IsPublic: models.Ptr(true)}, "Page ID mismatch."},
		{"missing title", path, models.PublishRequest{PageData: noTitle, IsPublic: models.Ptr(true)}, "Missing page title."},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			resp, body := s.do(http.MethodPost, tt.path, tt.body, nil)
			s.Equal(http.StatusBadRequest, resp.StatusCode)
			s.Equal(tt.message, s.errorMessage(body))
		})
	}
	s.False(s.store.Exists(s.page.ID))
}

func (s *HandlersTestSuite) TestPublishFillsMissingTimestamps() {
	s.page.CreatedAt = time.Time{}
	s.page.UpdatedAt = time.Time{}
	s.publish(true)

	got, err := s.store.GetPublic(context.Background(), s.page.ID)
	s.Require().NoError(err)
	s.True(got.UpdatedAt.Equal(s.app.now()))
}

func (s *HandlersTestSuite) TestReadOnly() {
	s.publish(true)
	s.app.SetReadOnly(true)

	resp, body := s.publish(false)
	s.Equal(http.StatusForbidden, resp.StatusCode)
	s.Equal(pagestore.ErrReadOnly.Error(), s.errorMessage(body))

	resp, _ = s.do(http.MethodGet, "/api/p/"+s.page.ID.String(), nil, nil)
	s.Equal(http.StatusOK, resp.StatusCode)

	resp, _ = s.do(http.MethodGet, "/api/init-db", nil, nil)
	s.Equal(http.StatusForbidden, resp.StatusCode)
}

func (s *HandlersTestSuite) TestJWT() {
	s.config.JWTSecret = "0123456789abcdef0123"

	resp, _ := s.publish(true)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	token, err := publish.MintToken(s.config.JWTSecret, "tester", time.Hour, time.Now())
	s.Require().NoError(err)
	isPublic := true
	resp, body := s.do(http.MethodPost, "/api/p/"+s.page.ID.String()+"/publish",
		models.PublishRequest{PageData: s.page, IsPublic: &isPublic},
		http.Header{"Authorization": {"Bearer " + token}})
	s.Equal(http.StatusOK, resp.StatusCode, string(body))
}

func (s *HandlersTestSuite) TestInitDB() {
	resp, body := s.do(http.MethodGet, "/api/init-db", nil, nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.JSONEq(`{"message":"Database initialized successfully."}`, string(body))
}

func (s *HandlersTestSuite) TestHealth() {
	resp, body := s.do(http.MethodGet, "/api/health", nil, nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	var health map[string]any
	s.Require().NoError(json.Unmarshal(body, &health))
	s.Equal("healthy", health["status"])
	s.Equal(StoreMemory, health["store"])
	s.Equal(false, health["read_only"])
	s.NotEmpty(resp.Header.Get(requestIDHeader))
}

func (s *HandlersTestSuite) TestRequestIDIsEchoed() {
	resp, _ := s.do(http.MethodGet, "/api/health", nil, http.Header{requestIDHeader: {"req-42"}})
	s.Equal("req-42", resp.Header.Get(requestIDHeader))
}

func (s *HandlersTestSuite) TestMetrics() {
	s.publish(true)
	s.do(http.MethodGet, "/api/p/"+s.page.ID.String(), nil, nil)

	resp, body := s.do(http.MethodGet, "/metrics", nil, nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Contains(string(body), `noted_publish_operations_total{action="publish",result="ok"} 1`)
	s.Contains(string(body), `noted_http_requests_total{code="200",method="GET",route="/api/p/{pageId}"} 1`)
}

func (s *HandlersTestSuite) TestPublicView() {
	s.publish(true)

	resp, body := s.do(http.MethodGet, "/p/"+s.page.ID.String(), nil, nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Contains(resp.Header.Get("Content-Type"), "text/html")
	s.Contains(string(body), "<title>Shared</title>")
	s.Contains(string(body), `<mark class="marker" data-citation="1">world</mark>`)
	s.Contains(string(body), `<blockquote class="citation" id="citation-1" data-citation="1">the planet</blockquote>`)

	resp, body = s.do(http.MethodGet, "/p/page_0_missing", nil, nil)
	s.Equal(http.StatusNotFound, resp.StatusCode)
	s.Contains(string(body), "Page not found")
}

func (s *HandlersTestSuite) TestCORS() {
	req, err := http.NewRequest(http.MethodOptions, s.srv.URL+"/api/p/x/publish", nil)
	s.Require().NoError(err)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	resp.Body.Close()
	s.NotEmpty(resp.Header.Get("Access-Control-Allow-Origin"))
}
