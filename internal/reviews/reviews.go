package reviews

import (
	"context"
	"strings"
	"time"

	"github.com/angelmondragon/alexandria-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/alexandria-backend/pkg/errors"
	"github.com/angelmondragon/alexandria-backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MinRating     = 1
	MaxRating     = 5
	maxBodyLength = 4000
)

// Review is the public shape of a book review.
type Review struct {
	ID         uuid.UUID `json:"id"`
	BookID     uuid.UUID `json:"book_id"`
	AuthorName string    `json:"author_name"`
	Rating     int       `json:"rating"`
	Title      *string   `json:"title,omitempty"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

// SubmitInput is a new review for a book.
type SubmitInput struct {
	BookID     string
	AuthorName string
	Rating     int
	Title      string
	Body       string
}

// Summary aggregates ratings for a book.
type Summary struct {
	Count         int     `json:"count"`
	AverageRating float64 `json:"average_rating"`
}

type bookLookup interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Repository stores reviews.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).Create(review).Error
}

func (r *Repository) ListByBook(ctx context.Context, bookID uuid.UUID, limit int) ([]models.Review, error) {
	var rows []models.Review
	err := r.db.WithContext(ctx).
		Where("book_id = ?", bookID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *Repository) Summarize(ctx context.Context, bookID uuid.UUID) (Summary, error) {
	var row struct {
		Count   int
		Average float64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Select("COUNT(*) AS count, COALESCE(AVG(rating), 0) AS average").
		Where("book_id = ?", bookID).
		Scan(&row).Error
	if err != nil {
		return Summary{}, err
	}
	return Summary{Count: row.Count, AverageRating: row.Average}, nil
}

// Exists reports whether an active book with id is listed.
func (r *Repository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Book{}).Where("id = ? AND is_active = ?", id, true).Count(&count).Error
	return count > 0, err
}

type store interface {
	Create(ctx context.Context, review *models.Review) error
	ListByBook(ctx context.Context, bookID uuid.UUID, limit int) ([]models.Review, error)
	Summarize(ctx context.Context, bookID uuid.UUID) (Summary, error)
}

// Service validates and lists reviews.
type Service struct {
	repo  store
	books bookLookup
	logg  *logger.Logger
	now   func() time.Time
}

func NewService(repo store, books bookLookup, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "review repository required")
	}
	if books == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "book lookup required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{repo: repo, books: books, logg: logg, now: time.Now}, nil
}

func (s *Service) Submit(ctx context.Context, input SubmitInput) (*Review, error) {
	bookID, err := s.requireBook(ctx, input.BookID)
	if err != nil {
		return nil, err
	}

	var violations pkgerrors.Violations
	author := strings.TrimSpace(input.AuthorName)
	if author == "" {
		violations.Add("author_name", "is required")
	}
	if input.Rating < MinRating || input.Rating > MaxRating {
		violations.Add("rating", "must be between 1 and 5")
	}
	body := strings.TrimSpace(input.Body)
	if body == "" {
		violations.Add("body", "is required")
	} else if len(body) > maxBodyLength {
		violations.Add("body", "is too long")
	}
	if err := violations.Err("invalid review"); err != nil {
		return nil, err
	}

	record := &models.Review{
		BookID:     bookID,
		AuthorName: author,
		Rating:     input.Rating,
		Body:       body,
		CreatedAt:  s.now().UTC(),
	}
	if title := strings.TrimSpace(input.Title); title != "" {
		record.Title = &title
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "create review")
	}
	s.logg.Info(s.logg.WithField(ctx, "book_id", bookID.String()), "review submitted")
	review := toReview(*record)
	return &review, nil
}

// List returns the newest reviews first.
func (s *Service) List(ctx context.Context, rawBookID string, limit int) ([]Review, Summary, error) {
	bookID, err := s.requireBook(ctx, rawBookID)
	if err != nil {
		return nil, Summary{}, err
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := s.repo.ListByBook(ctx, bookID, limit)
	if err != nil {
		return nil, Summary{}, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "list reviews")
	}
	summary, err := s.repo.Summarize(ctx, bookID)
	if err != nil {
		return nil, Summary{}, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "summarize reviews")
	}
	out := make([]Review, 0, len(rows))
	for _, row := range rows {
		out = append(out, toReview(row))
	}
	return out, summary, nil
}

func (s *Service) requireBook(ctx context.Context, raw string) (uuid.UUID, error) {
	bookID, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "book id must be a uuid")
	}
	ok, err := s.books.Exists(ctx, bookID)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "lookup book")
	}
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, "book not found")
	}
	return bookID, nil
}

func toReview(row models.Review) Review {
	return Review{
		ID:         row.ID,
		BookID:     row.BookID,
		AuthorName: row.AuthorName,
		Rating:     row.Rating,
		Title:      row.Title,
		Body:       row.Body,
		CreatedAt:  row.CreatedAt.UTC(),
	}
}
