// Package publish is the HTTP client of the page service.
//
// [Client.SyncPublish] turns one publish-state change into exactly one request:
// an upsert of the page when it becomes public, a retraction when it becomes
// private. The outcome is binary. Any transport error, non-2xx status or
// unexpected body is reported as [ErrSync], and nothing is retried. Requests
// that would be rejected by the service anyway (no page, no id, a page whose
// own flag contradicts the requested one) fail with [ErrValidation] before
// anything is sent.
//
// The same client reads public pages back ([Client.FetchPublic]) and can ask
// the service to bootstrap its schema ([Client.InitDB]).
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/notedcloud/noted/pkg/models"
	"github.com/rs/zerolog"
)

var (
	// ErrValidation marks a request rejected before any network call.
	ErrValidation = errors.New("invalid publish request")

	// ErrSync marks a request that was sent but did not succeed.
	ErrSync = errors.New("publish sync failed")

	// ErrNotFound is returned by FetchPublic for unknown and private pages.
	ErrNotFound = errors.New("page not found or is not public")
)

// DefaultTimeout bounds every request made by a client built without
// WithHTTPClient.
const DefaultTimeout = 30 * time.Second

// APIError is a non-2xx response from the page service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: status=%d, body=%s", e.StatusCode, e.Message)
}

// Client talks to the page service. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	authToken  string
	validate   *validator.Validate
	logger     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithAuthToken sends token as a bearer token on every request.
func WithAuthToken(token string) Option {
	return func(c *Client) {
		c.authToken = token
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client for the service at baseURL, e.g.
// "http://localhost:8080", without a trailing slash or API prefix.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SyncPublish mirrors a publish-state change to the page service.
func (c *Client) SyncPublish(ctx context.Context, page *models.Page, isPublic bool) error {
	req := models.PublishRequest{PageData: page, IsPublic: &isPublic}
	if err := c.Validate(req); err != nil {
		return err
	}

	path := fmt.Sprintf("/api/p/%s/publish", url.PathEscape(page.ID.String()))
	resp, err := c.doRequest(ctx, http.MethodPost, path, req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSync, err)
	}

	var result models.PublishResponse
	if err := decodeResponse(resp, &result); err != nil {
		return fmt.Errorf("%w: %w", ErrSync, err)
	}
	if !result.Success {
		return fmt.Errorf("%w: service did not confirm the change", ErrSync)
	}

	c.logger.Debug().Str("page_id", page.ID.String()).Bool("is_public", isPublic).Msg("publish state synced")
	return nil
}

// Validate checks a publish request the way the service does.
func (c *Client) Validate(req models.PublishRequest) error {
	if err := c.validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if req.PageData.IsPublic != nil && *req.PageData.IsPublic != *req.IsPublic {
		return fmt.Errorf("%w: page flag %t contradicts requested %t", ErrValidation, *req.PageData.IsPublic, *req.IsPublic)
	}
	return nil
}

// FetchPublic reads the public copy of a page.
func (c *Client) FetchPublic(ctx context.Context, id models.PageID) (*models.PublicPage, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/p/"+url.PathEscape(id.String()), nil)
	if err != nil {
		return nil, err
	}

	var page models.PublicPage
	if err := decodeResponse(resp, &page); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &page, nil
}

// InitDB asks the service to create its schema and returns its message.
func (c *Client) InitDB(ctx context.Context) (string, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/init-db", nil)
	if err != nil {
		return "", err
	}

	var result struct {
		Message string `json:"message"`
	}
	if err := decodeResponse(resp, &result); err != nil {
		return "", err
	}
	return result.Message, nil
}

// Health checks the health status of the service.
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/health", nil)
	if err != nil {
		return nil, err
	}

	var result map[string]any
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	return c.httpClient.Do(req)
}

// decodeResponse decodes a JSON body into target, turning error statuses into
// an *APIError carrying the service's error message.
func decodeResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := strings.TrimSpace(string(body))
		var errResp models.ErrorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			msg = errResp.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if target != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
