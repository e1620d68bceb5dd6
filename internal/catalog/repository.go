package catalog

import (
	"context"
	"strings"

	"github.com/angelmondragon/alexandria-backend/pkg/db/models"
	"github.com/angelmondragon/alexandria-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository reads catalog listings.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByID returns an active listing.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	var book models.Book
	if err := r.db.WithContext(ctx).Where("id = ? AND is_active = ?", id, true).First(&book).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *Repository) Create(ctx context.Context, book *models.Book) error {
	return r.db.WithContext(ctx).Create(book).Error
}

// List pages active books newest first, keyed on (created_at, id).
func (r *Repository) List(ctx context.Context, input ListInput) (*ListResult, error) {
	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).Model(&models.Book{}).Where("is_active = ?", true)
	if genre := strings.TrimSpace(input.Filters.Genre); genre != "" {
		qb = qb.Where("LOWER(genre) = ?", strings.ToLower(genre))
	}
	if search := strings.TrimSpace(input.Filters.Query); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		qb = qb.Where("(LOWER(title) LIKE ? OR LOWER(author) LIKE ?)", pattern, pattern)
	}
	if cursor != nil {
		qb = qb.Where("(created_at < ? OR (created_at = ? AND id < ?))", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var records []models.Book
	err = qb.Order("created_at DESC").Order("id DESC").
		Limit(pagination.LimitWithBuffer(input.Pagination.Limit)).
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	rows, more := pagination.Trim(records, input.Pagination.Limit)
	nextCursor := ""
	if more {
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	books := make([]BookDTO, 0, len(rows))
	for _, record := range rows {
		books = append(books, toDTO(record))
	}
	return &ListResult{Books: books, NextCursor: nextCursor}, nil
}

// Genres lists the distinct genres of active books.
func (r *Repository) Genres(ctx context.Context) ([]string, error) {
	var genres []string
	err := r.db.WithContext(ctx).Model(&models.Book{}).
		Where("is_active = ?", true).
		Distinct("genre").
		Order("genre ASC").
		Pluck("genre", &genres).Error
	return genres, err
}
