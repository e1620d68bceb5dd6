package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/alexandria-backend/pkg/db/models"
	"github.com/angelmondragon/alexandria-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openCatalogDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:catalog_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Book{}))
	return conn
}

func seedBooks(t *testing.T, repo *Repository) []models.Book {
	t.Helper()
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	books := []models.Book{
		{Title: "The Left Hand of Darkness", Author: "Ursula K. Le Guin", Genre: "Science Fiction", Price: decimal.RequireFromString("15.50")},
		{Title: "Middlemarch", Author: "George Eliot", Genre: "Classics", Price: decimal.RequireFromString("10.99")},
		{Title: "The Dispossessed", Author: "Ursula K. Le Guin", Genre: "Science Fiction", Price: decimal.RequireFromString("8.25")},
		{Title: "Hidden Title", Author: "Nobody", Genre: "Classics", Price: decimal.RequireFromString("1.00")},
	}
	for i := range books {
		books[i].CreatedAt = base.Add(time.Duration(i) * time.Hour)
		books[i].UpdatedAt = books[i].CreatedAt
		require.NoError(t, repo.Create(context.Background(), &books[i]))
	}
	require.NoError(t, repo.db.Model(&models.Book{}).Where("id = ?", books[3].ID).Update("is_active", false).Error)
	return books
}

func TestRepositoryListPagesNewestFirst(t *testing.T) {
	repo := NewRepository(openCatalogDB(t))
	books := seedBooks(t, repo)
	ctx := context.Background()

	first, err := repo.List(ctx, ListInput{Pagination: pagination.Params{Limit: 2}})
	require.NoError(t, err)
	require.Len(t, first.Books, 2)
	assert.Equal(t, books[2].ID, first.Books[0].ID)
	assert.Equal(t, books[1].ID, first.Books[1].ID)
	require.NotEmpty(t, first.NextCursor)

	second, err := repo.List(ctx, ListInput{Pagination: pagination.Params{Limit: 2, Cursor: first.NextCursor}})
	require.NoError(t, err)
	require.Len(t, second.Books, 1, "inactive books are hidden")
	assert.Equal(t, books[0].ID, second.Books[0].ID)
	assert.Empty(t, second.NextCursor)
}

func TestRepositoryListFilters(t *testing.T) {
	repo := NewRepository(openCatalogDB(t))
	seedBooks(t, repo)
	ctx := context.Background()

	byGenre, err := repo.List(ctx, ListInput{Filters: ListFilters{Genre: "science fiction"}})
	require.NoError(t, err)
	assert.Len(t, byGenre.Books, 2)

	bySearch, err := repo.List(ctx, ListInput{Filters: ListFilters{Query: "le guin"}})
	require.NoError(t, err)
	assert.Len(t, bySearch.Books, 2)

	byTitle, err := repo.List(ctx, ListInput{Filters: ListFilters{Query: "MIDDLE"}})
	require.NoError(t, err)
	require.Len(t, byTitle.Books, 1)
	assert.Equal(t, "Middlemarch", byTitle.Books[0].Title)
}

func TestRepositoryFindByIDSkipsInactive(t *testing.T) {
	repo := NewRepository(openCatalogDB(t))
	books := seedBooks(t, repo)

	found, err := repo.FindByID(context.Background(), books[1].ID)
	require.NoError(t, err)
	assert.True(t, found.Price.Equal(decimal.RequireFromString("10.99")))

	_, err = repo.FindByID(context.Background(), books[3].ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryGenres(t *testing.T) {
	repo := NewRepository(openCatalogDB(t))
	seedBooks(t, repo)

	genres, err := repo.Genres(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Classics", "Science Fiction"}, genres)
}
