package catalog

import (
	"context"
	stdErrors "errors"
	"strings"

	"github.com/angelmondragon/alexandria-backend/internal/cart"
	"github.com/angelmondragon/alexandria-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/alexandria-backend/pkg/errors"
	"github.com/angelmondragon/alexandria-backend/pkg/logger"
	"github.com/angelmondragon/alexandria-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Book, error)
	List(ctx context.Context, input ListInput) (*ListResult, error)
	Genres(ctx context.Context) ([]string, error)
}

// Service exposes the book catalog to controllers and the cart.
type Service interface {
	List(ctx context.Context, input ListInput) (*ListResult, error)
	Get(ctx context.Context, id string) (*BookDTO, error)
	Genres(ctx context.Context) ([]string, error)
	ResolveBook(ctx context.Context, bookID string) (cart.Book, error)
}

type service struct {
	repo repository
	logg *logger.Logger
}

func NewService(repo repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "catalog repository required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) List(ctx context.Context, input ListInput) (*ListResult, error) {
	if _, err := pagination.ParseCursor(input.Pagination.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	result, err := s.repo.List(ctx, input)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "list books")
	}
	return result, nil
}

func (s *service) Get(ctx context.Context, id string) (*BookDTO, error) {
	book, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toDTO(*book)
	return &dto, nil
}

func (s *service) Genres(ctx context.Context) ([]string, error) {
	genres, err := s.repo.Genres(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "list genres")
	}
	return genres, nil
}

// ResolveBook feeds the cart with the catalog's current title and price.
func (s *service) ResolveBook(ctx context.Context, bookID string) (cart.Book, error) {
	book, err := s.find(ctx, bookID)
	if err != nil {
		return cart.Book{}, err
	}
	return cart.Book{
		ID:        book.ID.String(),
		Title:     book.Title,
		Author:    book.Author,
		UnitPrice: book.Price,
		ImageRef:  book.ImageRef,
	}, nil
}

func (s *service) find(ctx context.Context, raw string) (*models.Book, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "book id must be a uuid")
	}
	book, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "book not found")
		}
		s.logg.Error(s.logg.WithField(ctx, "book_id", id.String()), "load book", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "load book")
	}
	return book, nil
}
