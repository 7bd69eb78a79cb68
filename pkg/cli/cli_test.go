package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/notedcloud/noted/pkg/models"
	"github.com/notedcloud/noted/pkg/pagestore"
	"github.com/notedcloud/noted/pkg/publish"
	"github.com/notedcloud/noted/pkg/server"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type jsonPage struct {
	ID       models.PageID   `json:"id"`
	Title    string          `json:"title"`
	Content  string          `json:"content"`
	ParentID *models.PageID  `json:"parentId"`
	Children []models.PageID `json:"children"`
	IsPublic *bool           `json:"isPublic"`
	State    string          `json:"state"`
	Current  bool            `json:"current"`
}

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *CLIError       `json:"error"`
}

// noted runs one CLI invocation against the local store in dir.
type noted struct {
	t       *testing.T
	dir     string
	backend string
	remote  string
}

func newNoted(t *testing.T) *noted {
	t.Setenv("NOTED_REMOTE", "")
	t.Setenv("NOTED_TOKEN", "")
	return &noted{t: t, dir: t.TempDir(), backend: BackendBadger}
}

func (n *noted) run(args ...string) (string, error) {
	n.t.Helper()
	full := []string{"--data-dir", n.dir, "--backend", n.backend, "--log-level", "error"}
	if n.remote != "" {
		full = append(full, "--remote", n.remote)
	}
	full = append(full, args...)

	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(full)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (n *noted) mustRun(args ...string) string {
	n.t.Helper()
	out, err := n.run(args...)
	require.NoError(n.t, err, out)
	return out
}

// data runs a command with --format json and decodes its payload into v.
func (n *noted) data(v any, args ...string) {
	n.t.Helper()
	out := n.mustRun(append([]string{"--format", "json"}, args...)...)
	var env envelope
	require.NoError(n.t, json.Unmarshal([]byte(out), &env), out)
	require.Equal(n.t, "ok", env.Status)
	require.NoError(n.t, json.Unmarshal(env.Data, v))
}

func (n *noted) create(title string, parent *models.PageID) jsonPage {
	n.t.Helper()
	args := []string{"page", "new", "--title", title}
	if parent != nil {
		args = append(args, "--parent", parent.String())
	}
	var p jsonPage
	n.data(&p, args...)
	return p
}

func (n *noted) list() []jsonPage {
	n.t.Helper()
	var pages []jsonPage
	n.data(&pages, "page", "list")
	return pages
}

func TestPageLifecycle(t *testing.T) {
	n := newNoted(t)

	a := n.create("A", nil)
	assert.Equal(t, "A", a.Title)
	assert.True(t, a.Current)
	assert.Nil(t, a.ParentID)

	b := n.create("B", &a.ID)
	require.NotNil(t, b.ParentID)
	assert.Equal(t, a.ID, *b.ParentID)

	pages := n.list()
	require.Len(t, pages, 2)
	assert.Equal(t, a.ID, pages[0].ID)
	assert.Equal(t, []models.PageID{b.ID}, pages[0].Children)
	assert.False(t, pages[0].Current)
	assert.True(t, pages[1].Current)
	assert.Equal(t, "private", pages[1].State)

	tree := n.mustRun("page", "tree")
	assert.Contains(t, tree, "  A  "+a.ID.String())
	assert.Contains(t, tree, "*   B  "+b.ID.String())

	n.mustRun("page", "select", a.ID.String())
	shown := n.mustRun("page", "show", "--raw")
	assert.True(t, strings.HasPrefix(shown, "A\n\n"))

	n.mustRun("page", "rm", a.ID.String())
	assert.Empty(t, n.list())
	_, err := n.run("page", "show")
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestPageEdit(t *testing.T) {
	n := newNoted(t)
	var p jsonPage
	n.data(&p, "page", "new")
	assert.Equal(t, models.DefaultTitle, p.Title)

	n.data(&p, "page", "edit", p.ID.String(), "--content", "Groceries\n- eggs")
	assert.Equal(t, "Groceries", p.Title)
	assert.Equal(t, "Groceries\n- eggs", p.Content)

	n.data(&p, "page", "edit", "--title", "Shopping")
	assert.Equal(t, "Shopping", p.Title)

	file := filepath.Join(t.TempDir(), "body.txt")
	require.NoError(t, os.WriteFile(file, []byte("Errands\n- bank"), 0o600))
	n.data(&p, "page", "edit", "--file", file)
	assert.Equal(t, "Shopping", p.Title, "a title set by hand stays")
	assert.Equal(t, "Errands\n- bank", p.Content)

	_, err := n.run("page", "edit")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	_, err = n.run("page", "edit", "--content", "x", "--file", file)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestPageShowRendersMarkers(t *testing.T) {
	n := newNoted(t)
	p := n.create("Notes", nil)
	n.mustRun("page", "edit", p.ID.String(), "--content", "Go has [[goroutines:1]].\n\n> [1] Lightweight threads.")

	shown := n.mustRun("page", "show", "--width", "0")
	assert.Contains(t, shown, "goroutines")
	assert.Contains(t, shown, "[1]")
	assert.Contains(t, shown, "Lightweight threads.")
	assert.NotContains(t, shown, "[[goroutines:1]]")
}

func TestUnknownPages(t *testing.T) {
	n := newNoted(t)
	_, err := n.run("page", "select", "page_0_missing")
	assert.Equal(t, ExitFailure, GetExitCode(err))
	_, err = n.run("page", "rm", "page_0_missing")
	assert.Equal(t, ExitFailure, GetExitCode(err))

	orphan := n.create("Orphan", models.Ptr(models.PageID("page_0_missing")))
	assert.Nil(t, orphan.ParentID)
}

func TestSQLiteBackend(t *testing.T) {
	n := newNoted(t)
	n.backend = BackendSQLite
	a := n.create("A", nil)
	n.create("B", &a.ID)
	assert.Len(t, n.list(), 2)
	assert.FileExists(t, filepath.Join(n.dir, "noted.db"))
}

func TestUnopenableStoreFallsBackToMemory(t *testing.T) {
	n := newNoted(t)
	n.backend = BackendSQLite
	n.dir = filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(n.dir, nil, 0o600))

	n.create("Scratch", nil)
	assert.Empty(t, n.list())
}

func newPageService(t *testing.T) (*httptest.Server, *pagestore.MemoryStore) {
	t.Helper()
	store := pagestore.NewMemoryStore()
	cfg := server.DefaultConfig()
	cfg.Store = server.StoreMemory
	app := server.NewWithStore(store, cfg, zerolog.Nop())
	srv := httptest.NewServer(app.Handler())
	t.Cleanup(srv.Close)
	return srv, store
}

func TestPublishAndFetch(t *testing.T) {
	srv, store := newPageService(t)
	n := newNoted(t)
	n.remote = srv.URL

	a := n.create("A", nil)
	b := n.create("B", &a.ID)
	n.mustRun("page", "edit", b.ID.String(), "--content", "Shared body")

	out := n.mustRun("publish", b.ID.String())
	assert.Contains(t, out, srv.URL+"/p/"+b.ID.String())
	assert.True(t, store.Exists(b.ID))

	var pub models.PublicPage
	n.data(&pub, "fetch", b.ID.String())
	assert.Equal(t, "Shared body", pub.Content)

	var page jsonPage
	n.data(&page, "page", "show", b.ID.String())
	assert.Equal(t, "public", page.State)

	_, err := n.run("fetch", a.ID.String())
	assert.Equal(t, ExitFailure, GetExitCode(err))

	n.mustRun("unpublish", b.ID.String())
	_, err = n.run("fetch", b.ID.String())
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, store.Exists(b.ID))
}

func TestStatus(t *testing.T) {
	srv, _ := newPageService(t)
	n := newNoted(t)
	n.remote = srv.URL

	out := n.mustRun("status")
	assert.Contains(t, out, "is healthy")

	var health map[string]any
	n.data(&health, "status")
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, server.StoreMemory, health["store"])
	assert.Equal(t, false, health["read_only"])

	down := httptest.NewServer(http.NotFoundHandler())
	down.Close()
	n.remote = down.URL
	_, err := n.run("status")
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestPublishRollsBackWhenServiceIsDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	n := newNoted(t)
	n.remote = srv.URL
	p := n.create("Draft", nil)

	out, err := n.run("--format", "json", "publish")
	assert.Equal(t, ExitFailure, GetExitCode(err))
	var env envelope
	require.NoError(t, json.Unmarshal([]byte(out), &env))
	assert.Equal(t, "error", env.Status)
	assert.Contains(t, env.Error.Message, "page is private")

	pages := n.list()
	require.Len(t, pages, 1)
	assert.Equal(t, p.ID, pages[0].ID)
	assert.False(t, pages[0].IsPublic != nil && *pages[0].IsPublic)
}

func TestPublishWithToken(t *testing.T) {
	store := pagestore.NewMemoryStore()
	cfg := server.DefaultConfig()
	cfg.Store = server.StoreMemory
	cfg.JWTSecret = "0123456789abcdef0123"
	srv := httptest.NewServer(server.NewWithStore(store, cfg, zerolog.Nop()).Handler())
	defer srv.Close()

	n := newNoted(t)
	n.remote = srv.URL
	p := n.create("Secret", nil)

	_, err := n.run("publish")
	assert.Equal(t, ExitFailure, GetExitCode(err))

	token := strings.TrimSpace(n.mustRun("token", "--secret", cfg.JWTSecret))
	subject, err := publish.VerifyToken(cfg.JWTSecret, token)
	require.NoError(t, err)
	assert.Equal(t, "noted-cli", subject)

	n.mustRun("--token", token, "publish")
	assert.True(t, store.Exists(p.ID))
}

func TestTokenRequiresSecret(t *testing.T) {
	t.Setenv("NOTED_JWT_SECRET", "")
	n := newNoted(t)
	_, err := n.run("token")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSettings(t *testing.T) {
	n := newNoted(t)

	var s settingsView
	n.data(&s, "settings", "show")
	assert.Equal(t, models.DefaultModel, s.DefaultModel)
	assert.Equal(t, "en", s.DefaultLanguage)
	assert.False(t, s.APIKeyConfigured)

	n.data(&s, "settings", "set", "--api-key", "sk-or-1", "--language", "fr",
		"--custom-models", "mistral/large, openai/gpt-4o", "--assistant=false")
	assert.True(t, s.APIKeyConfigured)
	assert.Equal(t, "fr", s.DefaultLanguage)
	assert.Equal(t, []string{"mistral/large", "openai/gpt-4o"}, s.CustomModels)
	assert.False(t, s.AIAssistantEnabled)
	assert.Equal(t, models.DefaultModel, s.DefaultModel)

	out := n.mustRun("--format", "json", "settings", "show")
	assert.NotContains(t, out, "sk-or-1")

	_, err := n.run("settings", "set", "--language", "french")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	_, err = n.run("settings", "set", "--model", " ")
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var ids []string
	n.data(&ids, "models")
	assert.Equal(t, []string{"anthropic/claude-4-sonnet", "moonshotai/kimi-k2", "mistral/large", "openai/gpt-4o"}, ids)
}

func TestExportImportReset(t *testing.T) {
	n := newNoted(t)
	a := n.create("A", nil)
	n.create("B", &a.ID)

	file := filepath.Join(t.TempDir(), "backup.json")
	n.mustRun("export", file)

	_, err := n.run("reset")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	n.mustRun("reset", "--yes")
	assert.Empty(t, n.list())

	n.mustRun("import", file)
	pages := n.list()
	require.Len(t, pages, 2)
	assert.Equal(t, a.ID, pages[0].ID)

	var snapshot models.Snapshot
	require.NoError(t, json.Unmarshal([]byte(n.mustRun("export")), &snapshot))
	assert.Len(t, snapshot.Pages, 2)

	broken := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte(`{"pages":[{"id":"page_1_x","parentId":"page_0_gone","children":[]}],"settings":{}}`), 0o600))
	_, err = n.run("import", broken)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Len(t, n.list(), 2)
}

func TestInvalidGlobalFlags(t *testing.T) {
	n := newNoted(t)
	_, err := n.run("--format", "yaml", "page", "list")
	assert.Error(t, err)
	n.backend = "leveldb"
	_, err = n.run("page", "list")
	assert.Error(t, err)
}
