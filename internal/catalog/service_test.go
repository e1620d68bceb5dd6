package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/alexandria-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/alexandria-backend/pkg/errors"
	"github.com/angelmondragon/alexandria-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubRepo struct {
	books   map[uuid.UUID]models.Book
	listErr error
	findErr error
	listed  int
}

func (s *stubRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Book, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	book, ok := s.books[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &book, nil
}

func (s *stubRepo) List(context.Context, ListInput) (*ListResult, error) {
	s.listed++
	if s.listErr != nil {
		return nil, s.listErr
	}
	return &ListResult{Books: []BookDTO{}}, nil
}

func (s *stubRepo) Genres(context.Context) ([]string, error) {
	return []string{"Classics"}, nil
}

func TestResolveBookUsesCatalogPrice(t *testing.T) {
	id := uuid.New()
	repo := &stubRepo{books: map[uuid.UUID]models.Book{
		id: {ID: id, Title: "Middlemarch", Author: "George Eliot", Price: decimal.RequireFromString("10.99"), ImageRef: "/covers/middlemarch.jpg"},
	}}
	svc, err := NewService(repo, nil)
	require.NoError(t, err)

	book, err := svc.ResolveBook(context.Background(), " "+id.String()+" ")
	require.NoError(t, err)
	assert.Equal(t, id.String(), book.ID)
	assert.Equal(t, "Middlemarch", book.Title)
	assert.True(t, book.UnitPrice.Equal(decimal.RequireFromString("10.99")))
	assert.Equal(t, "/covers/middlemarch.jpg", book.ImageRef)
}

func TestResolveBookErrors(t *testing.T) {
	repo := &stubRepo{books: map[uuid.UUID]models.Book{}}
	svc, err := NewService(repo, nil)
	require.NoError(t, err)

	_, err = svc.ResolveBook(context.Background(), "not-a-uuid")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.ResolveBook(context.Background(), uuid.NewString())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	repo.findErr = errors.New("db down")
	_, err = svc.Get(context.Background(), uuid.NewString())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUpstream))
}

func TestListRejectsMalformedCursor(t *testing.T) {
	repo := &stubRepo{}
	svc, err := NewService(repo, nil)
	require.NoError(t, err)

	_, err = svc.List(context.Background(), ListInput{Pagination: pagination.Params{Cursor: "%%%"}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Zero(t, repo.listed)

	repo.listErr = errors.New("timeout")
	_, err = svc.List(context.Background(), ListInput{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUpstream))
}

func TestNewServiceRequiresRepo(t *testing.T) {
	_, err := NewService(nil, nil)
	assert.Error(t, err)
}
