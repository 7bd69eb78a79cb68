// Package pagestoretest is the behaviour shared by every pagestore.Store.
package pagestoretest

import (
	"context"
	"testing"
	"time"

	"github.com/notedcloud/noted/pkg/models"
	"github.com/notedcloud/noted/pkg/pagestore"
	"github.com/stretchr/testify/suite"
)

// Factory returns a migrated, empty store for one test.
type Factory func(t *testing.T) pagestore.Store

type Suite struct {
	suite.Suite
	open  Factory
	store pagestore.Store
	ctx   context.Context
	base  time.Time
}

func New(open Factory) *Suite {
	return &Suite{open: open}
}

func (s *Suite) SetupTest() {
	s.ctx = context.Background()
	s.base = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	s.store = s.open(s.T())
	s.Require().NoError(s.store.Migrate(s.ctx))
}

func (s *Suite) TearDownTest() {
	s.Require().NoError(s.store.Close())
}

func (s *Suite) page(id, title, content string) *models.Page {
	return &models.Page{
		ID:        models.PageID(id),
		Title:     title,
		Content:   content,
		Children:  []models.PageID{},
		CreatedAt: s.base,
		UpdatedAt: s.base.Add(time.Minute),
		IsPublic:  models.Ptr(true),
	}
}

func (s *Suite) TestUnknownPageIsNotFound() {
	_, err := s.store.GetPublic(s.ctx, "page_0_unknown")
	s.ErrorIs(err, pagestore.ErrNotFound)
}

func (s *Suite) TestUpsertThenGet() {
	page := s.page("page_1_a", "Hello", "world [[w:1]]\n> [1] note")
	s.Require().NoError(s.store.Upsert(s.ctx, page))

	got, err := s.store.GetPublic(s.ctx, page.ID)
	s.Require().NoError(err)
	s.Equal(page.ID, got.ID)
	s.Equal("Hello", got.Title)
	s.Equal(page.Content, got.Content)
	s.True(got.UpdatedAt.Equal(page.UpdatedAt), "updated_at %v != %v", got.UpdatedAt, page.UpdatedAt)
}

func (s *Suite) TestUpsertIsIdempotent() {
	page := s.page("page_2_b", "Same", "same body")
	s.Require().NoError(s.store.Upsert(s.ctx, page))
	first, err := s.store.GetPublic(s.ctx, page.ID)
	s.Require().NoError(err)

	s.Require().NoError(s.store.Upsert(s.ctx, page))
	second, err := s.store.GetPublic(s.ctx, page.ID)
	s.Require().NoError(err)

	s.Equal(first.ID, second.ID)
	s.Equal(first.Title, second.Title)
	s.Equal(first.Content, second.Content)
	s.True(first.UpdatedAt.Equal(second.UpdatedAt))
}

func (s *Suite) TestUpsertOverwrites() {
	page := s.page("page_3_c", "Draft", "v1")
	s.Require().NoError(s.store.Upsert(s.ctx, page))

	page.Title = "Final"
	page.Content = "v2"
	page.UpdatedAt = page.UpdatedAt.Add(time.Hour)
	s.Require().NoError(s.store.Upsert(s.ctx, page))

	got, err := s.store.GetPublic(s.ctx, page.ID)
	s.Require().NoError(err)
	s.Equal("Final", got.Title)
	s.Equal("v2", got.Content)
	s.True(got.UpdatedAt.Equal(page.UpdatedAt))
}

func (s *Suite) TestRetractHidesPage() {
	page := s.page("page_4_d", "Secret", "shh")
	s.Require().NoError(s.store.Upsert(s.ctx, page))
	s.Require().NoError(s.store.Retract(s.ctx, page.ID, s.base.Add(time.Hour)))

	_, err := s.store.GetPublic(s.ctx, page.ID)
	s.ErrorIs(err, pagestore.ErrNotFound)

	// Publishing again brings the retained row back.
	s.Require().NoError(s.store.Upsert(s.ctx, page))
	got, err := s.store.GetPublic(s.ctx, page.ID)
	s.Require().NoError(err)
	s.Equal("Secret", got.Title)
}

func (s *Suite) TestRetractUnknownIsNoop() {
	s.Require().NoError(s.store.Retract(s.ctx, "page_5_never", s.base))
	_, err := s.store.GetPublic(s.ctx, "page_5_never")
	s.ErrorIs(err, pagestore.ErrNotFound)
}

func (s *Suite) TestMigrateIsRepeatable() {
	s.Require().NoError(s.store.Migrate(s.ctx))
	s.Require().NoError(s.store.Migrate(s.ctx))
}
