package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/alexandria-backend/internal/cart"
	"github.com/angelmondragon/alexandria-backend/pkg/db"
	"github.com/angelmondragon/alexandria-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/alexandria-backend/pkg/errors"
	"github.com/angelmondragon/alexandria-backend/pkg/logger"
	"gorm.io/gorm"
)

const maxStatusRetries = 3

// Service defines order lifecycle operations on top of the repository.
type Service interface {
	Place(ctx context.Context, input PlaceInput) (*Order, error)
	Get(ctx context.Context, id string) (*Order, error)
	GetForSession(ctx context.Context, sessionID, id string) (*Order, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*Order, error)
	FindByPaymentReference(ctx context.Context, ref string) (*Order, error)
	ListForSession(ctx context.Context, sessionID string) ([]Order, error)
	ListByCustomer(ctx context.Context, email string, limit int) ([]Order, error)
	UpdateStatus(ctx context.Context, id string, status enums.OrderStatus) (*Order, error)
	OverrideStatus(ctx context.Context, id string, status enums.OrderStatus, reason string) (*Order, error)
}

// PlaceInput carries everything needed to turn a cart snapshot into a stored order.
type PlaceInput struct {
	SessionID        string
	PaymentReference string
	Customer         CustomerInfo
	Items            []cart.LineItem
	IdempotencyKey   string
}

// ServiceParams wires the order service.
type ServiceParams struct {
	Repo    Repository
	DB      txRunner
	History HistoryStore
	Pricing Pricing
	Logger  *logger.Logger
	Metrics metricsRecorder
	Now     func() time.Time
}

type service struct {
	repo    Repository
	tx      txRunner
	history HistoryStore
	pricing Pricing
	logg    *logger.Logger
	metrics metricsRecorder
	now     func() time.Time
}

// NewService builds the order service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.History == nil {
		return nil, fmt.Errorf("order history store required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:    params.Repo,
		tx:      params.DB,
		history: params.History,
		pricing: params.Pricing,
		logg:    logg,
		metrics: params.Metrics,
		now:     now,
	}, nil
}

// Place builds and stores a pending order. A repeated idempotency key returns the order
// created by the first call.
func (s *service) Place(ctx context.Context, input PlaceInput) (*Order, error) {
	sessionID := strings.TrimSpace(input.SessionID)
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	key := strings.TrimSpace(input.IdempotencyKey)
	if key != "" {
		existing, err := s.repo.FindByIdempotencyKey(ctx, key)
		if err == nil {
			return replayFor(sessionID, existing)
		}
		if !db.IsNotFound(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "lookup order by idempotency key")
		}
	}

	order, err := s.pricing.CreateOrder(input.PaymentReference, input.Customer, input.Items)
	if err != nil {
		return nil, err
	}
	order.SessionID = sessionID
	order.IdempotencyKey = key

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Create(ctx, order)
	})
	if err != nil {
		if key != "" && db.IsUniqueViolation(err, "") {
			existing, findErr := s.repo.FindByIdempotencyKey(ctx, key)
			if findErr == nil {
				return replayFor(sessionID, existing)
			}
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "create order")
	}

	logCtx := s.logg.WithOrderID(s.logg.WithSessionID(ctx, sessionID), order.ID)
	s.logg.Info(s.logg.WithFields(logCtx, map[string]any{
		"total":    order.Totals.Total.StringFixed(2),
		"currency": order.Totals.Currency,
		"items":    order.ItemCount(),
	}), "order placed")
	if s.metrics != nil {
		s.metrics.IncOrderCreated(order.Totals.Currency.String())
	}
	s.recordHistory(logCtx, *order)
	return order, nil
}

// replayFor returns the order an idempotency key already produced, as long as it was
// placed by the same session.
func replayFor(sessionID string, existing *Order) (*Order, error) {
	if existing.SessionID != sessionID {
		return nil, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key was used by another session")
	}
	return existing, nil
}

func (s *service) Get(ctx context.Context, id string) (*Order, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapLookupErr(err, "order not found")
	}
	return order, nil
}

func (s *service) GetForSession(ctx context.Context, sessionID, id string) (*Order, error) {
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.SessionID != sessionID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) FindByIdempotencyKey(ctx context.Context, key string) (*Order, error) {
	order, err := s.repo.FindByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, mapLookupErr(err, "order not found")
	}
	return order, nil
}

func (s *service) FindByPaymentReference(ctx context.Context, ref string) (*Order, error) {
	order, err := s.repo.FindByPaymentReference(ctx, ref)
	if err != nil {
		return nil, mapLookupErr(err, "no order for payment reference")
	}
	return order, nil
}

func (s *service) ListForSession(ctx context.Context, sessionID string) ([]Order, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	return s.history.List(ctx, sessionID)
}

func (s *service) ListByCustomer(ctx context.Context, email string, limit int) ([]Order, error) {
	if strings.TrimSpace(email) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer email is required")
	}
	orders, err := s.repo.ListByCustomer(ctx, email, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "list orders by customer")
	}
	return orders, nil
}

// UpdateStatus moves an order along the lifecycle. Setting the current status again is a no-op.
func (s *service) UpdateStatus(ctx context.Context, id string, status enums.OrderStatus) (*Order, error) {
	return s.changeStatus(ctx, id, status, false)
}

// OverrideStatus sets any valid status regardless of the lifecycle graph.
func (s *service) OverrideStatus(ctx context.Context, id string, status enums.OrderStatus, reason string) (*Order, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "override reason is required")
	}
	ctx = s.logg.WithField(ctx, "override_reason", reason)
	return s.changeStatus(ctx, id, status, true)
}

func (s *service) changeStatus(ctx context.Context, id string, status enums.OrderStatus, override bool) (*Order, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", status))
	}
	for attempt := 0; attempt < maxStatusRetries; attempt++ {
		order, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if order.Status == status {
			return order, nil
		}
		if !override {
			if err := ValidateTransition(order.Status, status); err != nil {
				return nil, err
			}
		}

		from := order.Status
		ApplyStatus(order, status, s.now().UTC())
		change := StatusChange{Status: order.Status, UpdatedAt: order.UpdatedAt, CompletedAt: order.CompletedAt}

		var updated bool
		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			var txErr error
			updated, txErr = s.repo.WithTx(tx).UpdateStatus(ctx, order.ID, from, change)
			return txErr
		})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "update order status")
		}
		if !updated {
			// status moved underneath us; reload and re-evaluate
			continue
		}

		logCtx := s.logg.WithOrderID(ctx, order.ID)
		s.logg.Info(s.logg.WithFields(logCtx, map[string]any{
			"from":     from,
			"to":       status,
			"override": override,
		}), "order status updated")
		if s.metrics != nil {
			s.metrics.IncStatusTransition(from.String(), status.String(), override)
		}
		s.recordHistory(logCtx, *order)
		return order, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeConflict, "order status changed concurrently; retry")
}

// recordHistory is best effort; the repository remains the source of truth.
func (s *service) recordHistory(ctx context.Context, order Order) {
	if order.SessionID == "" {
		return
	}
	if err := s.history.Upsert(ctx, order.SessionID, order); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "order history not updated")
	}
}

func mapLookupErr(err error, notFoundMsg string) error {
	if db.IsNotFound(err) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, notFoundMsg)
	}
	if typed := pkgerrors.As(err); typed != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "load order")
}
