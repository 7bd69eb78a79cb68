// Package postgres stores published pages in a relational database through
// GORM. PostgreSQL is the production target; SQLite is supported through the
// same code for local development and tests.
//
// The table mirrors the page service's historical schema:
//
//	pages(id VARCHAR(255) PRIMARY KEY, title TEXT NOT NULL, content TEXT,
//	      is_public BOOLEAN NOT NULL DEFAULT FALSE,
//	      created_at TIMESTAMPTZ, updated_at TIMESTAMPTZ)
//
// Upserts use INSERT ... ON CONFLICT (id) DO UPDATE and never touch
// created_at once the row exists.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/notedcloud/noted/pkg/models"
	"github.com/notedcloud/noted/pkg/pagestore"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PageRecord is the row of the pages table. The timestamp fields are not named
// CreatedAt/UpdatedAt so GORM leaves them exactly as the client sent them.
type PageRecord struct {
	ID       string    `gorm:"column:id;primaryKey;type:varchar(255)"`
	Title    string    `gorm:"column:title;type:text;not null"`
	Content  string    `gorm:"column:content;type:text"`
	IsPublic bool      `gorm:"column:is_public;not null;default:false;index"`
	Created  time.Time `gorm:"column:created_at"`
	Updated  time.Time `gorm:"column:updated_at"`
}

func (PageRecord) TableName() string {
	return "pages"
}

// Store implements pagestore.Store with GORM.
type Store struct {
	db *gorm.DB
}

var _ pagestore.Store = (*Store)(nil)

// Open connects to PostgreSQL using dsn.
func Open(dsn string, logger zerolog.Logger) (*Store, error) {
	return open(postgres.Open(dsn), logger)
}

// OpenSQLite opens a SQLite database at path, ":memory:" included.
func OpenSQLite(path string, logger zerolog.Logger) (*Store, error) {
	return open(sqlite.Open(path), logger)
}

func open(dialector gorm.Dialector, logger zerolog.Logger) (*Store, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newGormLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &Store{db: db}, nil
}

// Migrate creates the pages table and its index when missing.
func (s *Store) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&PageRecord{})
}

func (s *Store) GetPublic(ctx context.Context, id models.PageID) (*models.PublicPage, error) {
	var record PageRecord
	err := s.db.WithContext(ctx).
		Select("id", "title", "content", "updated_at").
		Where("id = ? AND is_public = ?", string(id), true).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pagestore.ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	return &models.PublicPage{
		ID:        models.PageID(record.ID),
		Title:     record.Title,
		Content:   record.Content,
		UpdatedAt: record.Updated,
	}, nil
}

func (s *Store) Upsert(ctx context.Context, page *models.Page) error {
	record := PageRecord{
		ID:       string(page.ID),
		Title:    page.Title,
		Content:  page.Content,
		IsPublic: true,
		Created:  page.CreatedAt.UTC(),
		Updated:  page.UpdatedAt.UTC(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "content", "is_public", "updated_at"}),
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("failed to upsert page: %w", err)
	}
	return nil
}

func (s *Store) Retract(ctx context.Context, id models.PageID, at time.Time) error {
	err := s.db.WithContext(ctx).
		Model(&PageRecord{}).
		Where("id = ?", string(id)).
		Updates(map[string]any{"is_public": false, "updated_at": at.UTC()}).Error
	if err != nil {
		return fmt.Errorf("failed to retract page: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
