// Package assistant asks an OpenRouter hosted model to explain note text.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/notedcloud/noted/pkg/marker"
	"github.com/notedcloud/noted/pkg/models"
	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
)

const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	Referer        = "https://noted.cloud"
	AppTitle       = "Noted.cloud"

	Temperature = 0.7
	MaxTokens   = 2000
	// MaxContext bounds the characters sent around a selection.
	MaxContext = 4096
)

var (
	ErrNotConfigured = errors.New("assistant API key is not configured")
	ErrDisabled      = errors.New("assistant is disabled")
	ErrEmptyResponse = errors.New("assistant returned no content")
)

const explainSystemPrompt = `You are an assistant that explains concepts.
Explain the text the user selected clearly and concisely.
Adapt the level of detail to the surrounding context.
Be precise, informative and useful.`

const explainInstruction = "User is taking notes and wants an explanation of the selected text (marked with >>...<<). Focus on the marked text."

const commandSystemPrompt = `You are an assistant inside a note taking application.
The user types "/" followed by a command to get help.
Answer directly and usefully given the page context.
Format the answer as markdown when appropriate.`

// Response is a completion and what it cost.
type Response struct {
	Content string
	Model   string
	Usage   openai.Usage
}

// Client talks to an OpenAI compatible chat completion API.
type Client struct {
	api      *openai.Client
	model    string
	language string
	logger   zerolog.Logger

	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithModel overrides the model taken from the settings.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// New builds a client from the user's settings.
func New(settings models.Settings, opts ...Option) (*Client, error) {
	if !settings.AIAssistantEnabled {
		return nil, ErrDisabled
	}
	if !settings.APIKeyConfigured() {
		return nil, ErrNotConfigured
	}

	c := &Client{
		model:      settings.DefaultModel,
		language:   settings.DefaultLanguage,
		logger:     zerolog.Nop(),
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{},
	}
	if c.model == "" {
		c.model = models.DefaultModel
	}
	for _, opt := range opts {
		opt(c)
	}

	transport := c.httpClient.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	httpClient := *c.httpClient
	httpClient.Transport = &headerTransport{base: transport}

	cfg := openai.DefaultConfig(settings.OpenRouterAPIKey)
	cfg.BaseURL = strings.TrimSuffix(c.baseURL, "/")
	cfg.HTTPClient = &httpClient
	c.api = openai.NewClientWithConfig(cfg)
	return c, nil
}

// headerTransport adds the attribution headers OpenRouter asks for.
type headerTransport struct {
	base http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("HTTP-Referer", Referer)
	req.Header.Set("X-Title", AppTitle)
	return t.base.RoundTrip(req)
}

func (c *Client) Model() string { return c.model }

// Complete sends one system and one user message.
func (c *Client) Complete(ctx context.Context, system, prompt string) (*Response, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system + c.languageInstruction(),
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	c.logger.Debug().Str("model", c.model).Int("prompt_len", len(prompt)).Msg("requesting completion")
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: Temperature,
		MaxTokens:   MaxTokens,
	})
	if err != nil {
		c.logger.Error().Err(err).Str("model", c.model).Msg("completion failed")
		return nil, fmt.Errorf("completion with %s failed: %w", c.model, err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, ErrEmptyResponse
	}
	return &Response{
		Content: resp.Choices[0].Message.Content,
		Model:   c.model,
		Usage:   resp.Usage,
	}, nil
}

// Explain asks for an explanation of content[start:end] using the text around
// it as context.
func (c *Client) Explain(ctx context.Context, content string, start, end int) (*Response, error) {
	if start < 0 || end > len(content) || start >= end {
		return nil, fmt.Errorf("selection [%d:%d] out of range", start, end)
	}
	selected := strings.TrimSpace(content[start:end])
	prompt := fmt.Sprintf("Page context: %s\n\nSelected text to explain: %q\n\n%s",
		BuildContext(content, start, end, MaxContext), selected, explainInstruction)
	return c.Complete(ctx, explainSystemPrompt, prompt)
}

// ExplainAndCite explains the selection and inserts the answer into content
// as a citation bound to the selection.
func (c *Client) ExplainAndCite(ctx context.Context, content string, start, end int) (string, *Response, error) {
	if !marker.SelectionAllowed(content, start, end) {
		return "", nil, marker.ErrInvalidSelection
	}
	resp, err := c.Explain(ctx, content, start, end)
	if err != nil {
		return "", nil, err
	}
	updated, err := marker.InsertCitation(content, start, end, marker.NextCitationID(content), resp.Content)
	if err != nil {
		return "", resp, err
	}
	return updated, resp, nil
}

// Command runs a slash command against the page context.
func (c *Client) Command(ctx context.Context, command, pageContext string) (*Response, error) {
	prompt := fmt.Sprintf("Page context: %s\n\nUser command: %s\n\nCan you answer this request?", pageContext, command)
	return c.Complete(ctx, commandSystemPrompt, prompt)
}

// BuildContext returns the selection marked as >>selection<< with up to
// budget bytes in total taken around it, split evenly before and after.
// A selection at the very start of content is returned without context.
func BuildContext(content string, start, end, budget int) string {
	selected := strings.TrimSpace(content[start:end])
	remaining := budget - len(selected)
	if remaining <= 0 || start == 0 {
		return selected
	}
	before := remaining / 2
	after := remaining - before
	return content[max(0, start-before):start] + ">>" + selected + "<<" + content[end:min(len(content), end+after)]
}

var languageNames = map[string]string{
	"en": "English",
	"fr": "French",
	"es": "Spanish",
	"de": "German",
	"it": "Italian",
	"pt": "Portuguese",
	"nl": "Dutch",
	"ja": "Japanese",
	"zh": "Chinese",
	"ko": "Korean",
	"ru": "Russian",
}

func (c *Client) languageInstruction() string {
	if c.language == "" {
		return ""
	}
	name, ok := languageNames[c.language]
	if !ok {
		name = c.language
	}
	return "\nAlways answer in " + name + "."
}
