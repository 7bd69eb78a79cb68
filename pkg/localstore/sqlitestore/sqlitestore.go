// Package sqlitestore is a localstore backend keeping pages and settings in a
// single SQLite file.
//
// Timestamps are stored as Unix nanoseconds so ordering by created_at is exact.
// The children list is stored as a JSON array next to the parent_id column,
// which is indexed for child lookups.
package sqlitestore

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/notedcloud/noted/pkg/localstore"
	"github.com/notedcloud/noted/pkg/models"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is recorded in PRAGMA user_version.
const schemaVersion = 1

// Backend implements localstore.Backend with SQL transactions.
type Backend struct {
	db *sql.DB
}

var _ localstore.Backend = (*Backend)(nil)

// Open creates or opens the database at path. Use ":memory:" for a throwaway
// database.
func Open(path string) (*Backend, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Backend{db: db}, nil
}

// OpenStore opens a SQLite backend and wraps it in a PageStore.
func OpenStore(path string, opts ...localstore.Option) (*localstore.PageStore, error) {
	backend, err := Open(path)
	if err != nil {
		return nil, err
	}
	return localstore.New(backend, opts...), nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version > schemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, schemaVersion)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("failed to set schema version: %w", err)
	}
	return nil
}

func (b *Backend) Update(ctx context.Context, fn func(localstore.Tx) error) error {
	return b.run(ctx, fn)
}

func (b *Backend) View(ctx context.Context, fn func(localstore.Tx) error) error {
	return b.run(ctx, fn)
}

func (b *Backend) run(ctx context.Context, fn func(localstore.Tx) error) error {
	sqlTx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&tx{ctx: ctx, tx: sqlTx}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (b *Backend) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}

type tx struct {
	ctx context.Context
	tx  *sql.Tx
}

const pageColumns = "id, title, content, parent_id, children, created_at, updated_at, is_public"

type scanner interface {
	Scan(dest ...any) error
}

func scanPage(row scanner) (*models.Page, error) {
	var (
		page      models.Page
		parentID  sql.NullString
		children  string
		createdAt int64
		updatedAt int64
		isPublic  sql.NullBool
	)
	if err := row.Scan(&page.ID, &page.Title, &page.Content, &parentID, &children, &createdAt, &updatedAt, &isPublic); err != nil {
		return nil, err
	}
	if parentID.Valid {
		id := models.PageID(parentID.String)
		page.ParentID = &id
	}
	if err := json.Unmarshal([]byte(children), &page.Children); err != nil {
		return nil, fmt.Errorf("failed to decode children of %s: %w", page.ID, err)
	}
	if page.Children == nil {
		page.Children = []models.PageID{}
	}
	page.CreatedAt = time.Unix(0, createdAt)
	page.UpdatedAt = time.Unix(0, updatedAt)
	if isPublic.Valid {
		public := isPublic.Bool
		page.IsPublic = &public
	}
	return &page, nil
}

func (t *tx) Page(id models.PageID) (*models.Page, error) {
	row := t.tx.QueryRowContext(t.ctx, "SELECT "+pageColumns+" FROM pages WHERE id = ?", string(id))
	page, err := scanPage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, localstore.ErrNotFound
	}
	return page, err
}

func (t *tx) PutPage(page *models.Page) error {
	children := page.Children
	if children == nil {
		children = []models.PageID{}
	}
	encoded, err := json.Marshal(children)
	if err != nil {
		return fmt.Errorf("failed to encode children of %s: %w", page.ID, err)
	}

	var parentID, isPublic any
	if page.ParentID != nil {
		parentID = string(*page.ParentID)
	}
	if page.IsPublic != nil {
		isPublic = *page.IsPublic
	}

	_, err = t.tx.ExecContext(t.ctx, `
		INSERT INTO pages (`+pageColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			content = excluded.content,
			parent_id = excluded.parent_id,
			children = excluded.children,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			is_public = excluded.is_public`,
		string(page.ID), page.Title, page.Content, parentID, string(encoded),
		page.CreatedAt.UnixNano(), page.UpdatedAt.UnixNano(), isPublic,
	)
	return err
}

func (t *tx) DeletePage(id models.PageID) error {
	_, err := t.tx.ExecContext(t.ctx, "DELETE FROM pages WHERE id = ?", string(id))
	return err
}

func (t *tx) Pages() ([]*models.Page, error) {
	return t.query("SELECT " + pageColumns + " FROM pages")
}

func (t *tx) PagesWithParent(parentID *models.PageID) ([]*models.Page, error) {
	if parentID == nil {
		return t.query("SELECT " + pageColumns + " FROM pages WHERE parent_id IS NULL")
	}
	return t.query("SELECT "+pageColumns+" FROM pages WHERE parent_id = ?", string(*parentID))
}

func (t *tx) query(query string, args ...any) ([]*models.Page, error) {
	rows, err := t.tx.QueryContext(t.ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []*models.Page
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}
	return pages, rows.Err()
}

func (t *tx) Settings() (*models.Settings, error) {
	var data string
	err := t.tx.QueryRowContext(t.ctx, "SELECT data FROM settings WHERE id = 1").Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var settings models.Settings
	if err := json.Unmarshal([]byte(data), &settings); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	if settings.CustomModels == nil {
		settings.CustomModels = []string{}
	}
	return &settings, nil
}

func (t *tx) PutSettings(settings models.Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	_, err = t.tx.ExecContext(t.ctx,
		"INSERT INTO settings (id, data) VALUES (1, ?) ON CONFLICT(id) DO UPDATE SET data = excluded.data",
		string(data))
	return err
}

func (t *tx) Clear() error {
	if _, err := t.tx.ExecContext(t.ctx, "DELETE FROM pages"); err != nil {
		return err
	}
	_, err := t.tx.ExecContext(t.ctx, "DELETE FROM settings")
	return err
}
