package cart

import (
	"context"
	"fmt"
	"strings"

	pkgerrors "github.com/angelmondragon/alexandria-backend/pkg/errors"
	"github.com/angelmondragon/alexandria-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// Summary is the read model returned to callers after every cart operation.
type Summary struct {
	Items      []LineItem      `json:"items"`
	TotalItems int             `json:"total_items"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// Service exposes session-scoped cart operations.
type Service interface {
	Open(ctx context.Context, sessionID string) (*Cart, error)
	Get(ctx context.Context, sessionID string) (*Summary, error)
	AddBook(ctx context.Context, sessionID, bookID string) (*Summary, error)
	UpdateQuantity(ctx context.Context, sessionID, itemID string, quantity int) (*Summary, error)
	RemoveItem(ctx context.Context, sessionID, itemID string) (*Summary, error)
	Clear(ctx context.Context, sessionID string) (*Summary, error)
}

// ServiceParams wires the cart service.
type ServiceParams struct {
	Store  KV
	Books  BookResolver
	KeyFor KeyFunc
	Logger *logger.Logger
}

type service struct {
	store  KV
	books  BookResolver
	keyFor KeyFunc
	logg   *logger.Logger
}

// NewService builds a cart service over the provided store.
func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if params.Books == nil {
		return nil, fmt.Errorf("book resolver required")
	}
	keyFor := params.KeyFor
	if keyFor == nil {
		keyFor = DefaultKey
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		store:  params.Store,
		books:  params.Books,
		keyFor: keyFor,
		logg:   logg,
	}, nil
}

func (s *service) Open(ctx context.Context, sessionID string) (*Cart, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	return Open(s.logg.WithSessionID(ctx, sessionID), s.store, s.keyFor(sessionID), s.logg), nil
}

func (s *service) Get(ctx context.Context, sessionID string) (*Summary, error) {
	c, err := s.Open(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return Summarize(c), nil
}

func (s *service) AddBook(ctx context.Context, sessionID, bookID string) (*Summary, error) {
	bookID = strings.TrimSpace(bookID)
	if bookID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "book id is required")
	}
	c, err := s.Open(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	book, err := s.books.ResolveBook(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if err := c.AddItem(ctx, book); err != nil {
		return nil, err
	}
	return Summarize(c), nil
}

func (s *service) UpdateQuantity(ctx context.Context, sessionID, itemID string, quantity int) (*Summary, error) {
	c, err := s.Open(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := c.UpdateQuantity(ctx, itemID, quantity); err != nil {
		return nil, err
	}
	return Summarize(c), nil
}

func (s *service) RemoveItem(ctx context.Context, sessionID, itemID string) (*Summary, error) {
	c, err := s.Open(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := c.RemoveItem(ctx, itemID); err != nil {
		return nil, err
	}
	return Summarize(c), nil
}

func (s *service) Clear(ctx context.Context, sessionID string) (*Summary, error) {
	c, err := s.Open(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := c.Clear(ctx); err != nil {
		return nil, err
	}
	return Summarize(c), nil
}

// Summarize builds the read model for a cart.
func Summarize(c *Cart) *Summary {
	items := c.Items()
	if items == nil {
		items = []LineItem{}
	}
	return &Summary{
		Items:      items,
		TotalItems: c.TotalItemCount(),
		TotalPrice: c.TotalPrice(),
	}
}
