// Package surrealdb stores published pages in SurrealDB.
//
// Each page is the record pages:<id>. The connection uses the surrealcbor codec
// so time.Time values travel as native SurrealDB datetimes, and every statement
// is parameterized: ids and content are never interpolated into SurrealQL.
package surrealdb

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/notedcloud/noted/pkg/models"
	"github.com/notedcloud/noted/pkg/pagestore"
	"github.com/rs/zerolog"
	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/pkg/connection"
	"github.com/surrealdb/surrealdb.go/pkg/connection/gorillaws"
	"github.com/surrealdb/surrealdb.go/surrealcbor"
)

const table = "pages"

// Config holds connection settings.
type Config struct {
	URL       string `yaml:"url" validate:"required,url"`
	Namespace string `yaml:"namespace" validate:"required"`
	Database  string `yaml:"database" validate:"required"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
}

// Store implements pagestore.Store on SurrealDB.
type Store struct {
	db     *surrealdb.DB
	logger zerolog.Logger
}

var _ pagestore.Store = (*Store)(nil)

// Open connects over WebSocket, signs in when credentials are set and selects
// the namespace and database.
func Open(ctx context.Context, cfg Config, logger zerolog.Logger) (*Store, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	conf := connection.NewConfig(u)
	codec := surrealcbor.New()
	conf.Marshaler = codec
	conf.Unmarshaler = codec

	db, err := surrealdb.FromConnection(ctx, gorillaws.New(conf))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if cfg.Username != "" && cfg.Password != "" {
		if _, err := db.SignIn(ctx, map[string]any{
			"user": cfg.Username,
			"pass": cfg.Password,
		}); err != nil {
			_ = db.Close(ctx)
			return nil, fmt.Errorf("failed to authenticate: %w", err)
		}
	}

	if err := db.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
		_ = db.Close(ctx)
		return nil, fmt.Errorf("failed to use namespace/database: %w", err)
	}

	return &Store{db: db, logger: logger.With().Str("component", "surrealdb").Logger()}, nil
}

// Migrate defines the pages table and an index on is_public. SurrealDB would
// create the table on first write anyway; defining it keeps the index in place.
func (s *Store) Migrate(ctx context.Context) error {
	statements := []string{
		"DEFINE TABLE IF NOT EXISTS pages SCHEMALESS",
		"DEFINE INDEX IF NOT EXISTS pages_is_public ON TABLE pages FIELDS is_public",
	}
	for _, stmt := range statements {
		if _, err := surrealdb.Query[any](ctx, s.db, stmt, nil); err != nil {
			return fmt.Errorf("failed to run %q: %w", stmt, err)
		}
	}
	return nil
}

type publicRecord struct {
	PageID    string    `json:"page_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Store) GetPublic(ctx context.Context, id models.PageID) (*models.PublicPage, error) {
	query := `SELECT record::id(id) AS page_id, title, content, updated_at
		FROM type::thing($tb, $id) WHERE is_public = true`
	result, err := surrealdb.Query[[]publicRecord](ctx, s.db, query, map[string]any{
		"tb": table,
		"id": string(id),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	if result == nil || len(*result) == 0 || len((*result)[0].Result) == 0 {
		return nil, pagestore.ErrNotFound
	}

	record := (*result)[0].Result[0]
	return &models.PublicPage{
		ID:        id,
		Title:     record.Title,
		Content:   record.Content,
		UpdatedAt: record.UpdatedAt,
	}, nil
}

func (s *Store) Upsert(ctx context.Context, page *models.Page) error {
	query := `UPSERT type::thing($tb, $id) SET
		title = $title,
		content = $content,
		is_public = true,
		created_at = created_at ?? $created_at,
		updated_at = $updated_at`
	_, err := surrealdb.Query[any](ctx, s.db, query, map[string]any{
		"tb":         table,
		"id":         string(page.ID),
		"title":      page.Title,
		"content":    page.Content,
		"created_at": page.CreatedAt.UTC(),
		"updated_at": page.UpdatedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to upsert page: %w", err)
	}
	s.logger.Debug().Str("page_id", page.ID.String()).Msg("page upserted")
	return nil
}

func (s *Store) Retract(ctx context.Context, id models.PageID, at time.Time) error {
	// UPDATE only touches existing records, so unknown ids stay absent.
	query := `UPDATE type::thing($tb, $id) SET is_public = false, updated_at = $at`
	_, err := surrealdb.Query[any](ctx, s.db, query, map[string]any{
		"tb": table,
		"id": string(id),
		"at": at.UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to retract page: %w", err)
	}
	return nil
}

// Close closes the connection.
func (s *Store) Close() error {
	return s.db.Close(context.Background())
}
