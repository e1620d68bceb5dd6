package checkout

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/angelmondragon/alexandria-backend/internal/cart"
	"github.com/angelmondragon/alexandria-backend/internal/orders"
	"github.com/angelmondragon/alexandria-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/alexandria-backend/pkg/errors"
	"github.com/angelmondragon/alexandria-backend/pkg/logger"
	"github.com/angelmondragon/alexandria-backend/pkg/money"
	pkgstripe "github.com/angelmondragon/alexandria-backend/pkg/stripe"
)

// PaymentGateway creates a payment for an order total.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, req pkgstripe.IntentRequest) (*pkgstripe.Intent, error)
}

type cartService interface {
	Get(ctx context.Context, sessionID string) (*cart.Summary, error)
	Clear(ctx context.Context, sessionID string) (*cart.Summary, error)
}

type orderService interface {
	Place(ctx context.Context, input orders.PlaceInput) (*orders.Order, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*orders.Order, error)
	FindByPaymentReference(ctx context.Context, ref string) (*orders.Order, error)
	UpdateStatus(ctx context.Context, id string, status enums.OrderStatus) (*orders.Order, error)
	OverrideStatus(ctx context.Context, id string, status enums.OrderStatus, reason string) (*orders.Order, error)
}

// maxKeyGenerations bounds how many settled identical checkouts a session can chain
// through before a new derived key is refused.
const maxKeyGenerations = 25

const latePaymentReason = "payment succeeded after the order was closed"

// Service turns a session cart into a pending order with a payment intent and
// applies payment outcomes to that order.
type Service interface {
	Start(ctx context.Context, input StartInput) (*Result, error)
	ApplyPaymentStatus(ctx context.Context, paymentReference string, status enums.OrderStatus) (*orders.Order, error)
}

// StartInput carries the checkout form.
type StartInput struct {
	SessionID      string
	Customer       orders.CustomerInfo
	IdempotencyKey string
}

// Result is what the storefront needs to confirm the payment client-side.
type Result struct {
	Order        *orders.Order `json:"order"`
	ClientSecret string        `json:"client_secret"`
}

// ServiceParams wires the checkout service.
type ServiceParams struct {
	Carts    cartService
	Orders   orderService
	Payments PaymentGateway
	Pricing  orders.Pricing
	Logger   *logger.Logger
}

type service struct {
	carts    cartService
	orders   orderService
	payments PaymentGateway
	pricing  orders.Pricing
	logg     *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Carts == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order service required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if params.Pricing.Currency != "" && !params.Pricing.Currency.IsValid() {
		return nil, fmt.Errorf("checkout currency %q not supported", params.Pricing.Currency)
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		carts:    params.Carts,
		orders:   params.Orders,
		payments: params.Payments,
		pricing:  params.Pricing,
		logg:     logg,
	}, nil
}

// Start prices the cart, opens a payment intent for the total and stores the pending
// order. The cart is left intact until the payment succeeds.
func (s *service) Start(ctx context.Context, input StartInput) (*Result, error) {
	sessionID := strings.TrimSpace(input.SessionID)
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	summary, err := s.carts.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(summary.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty").
			WithDetails(pkgerrors.Violations{{Field: "items", Message: "must contain at least one item"}})
	}

	// priced up front so invalid customer data never reaches the payment provider
	draft, err := s.pricing.CreateOrder("", input.Customer, summary.Items)
	if err != nil {
		return nil, err
	}
	amount, err := money.ToMinorUnits(draft.Totals.Total)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "order total")
	}

	key, err := s.attemptKey(ctx, sessionID, input.IdempotencyKey, draft.Customer.Email, summary.Items)
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithSessionID(ctx, sessionID)
	intent, err := s.payments.CreateIntent(ctx, pkgstripe.IntentRequest{
		AmountMinor:    amount,
		Currency:       draft.Totals.Currency.Lower(),
		ReceiptEmail:   draft.Customer.Email,
		IdempotencyKey: key,
		Metadata:       map[string]string{"session_id": sessionID, "item_count": strconv.Itoa(draft.ItemCount())},
	})
	if err != nil {
		s.logg.Error(ctx, "create payment intent", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "create payment intent")
	}

	order, err := s.orders.Place(ctx, orders.PlaceInput{
		SessionID:        sessionID,
		PaymentReference: intent.Reference,
		Customer:         input.Customer,
		Items:            summary.Items,
		IdempotencyKey:   key,
	})
	if err != nil {
		return nil, err
	}
	return &Result{Order: order, ClientSecret: intent.ClientSecret}, nil
}

// ApplyPaymentStatus moves the order paid through paymentReference to status.
// Completion walks through processing when the provider skipped it and empties
// the session cart.
func (s *service) ApplyPaymentStatus(ctx context.Context, paymentReference string, status enums.OrderStatus) (*orders.Order, error) {
	order, err := s.orders.FindByPaymentReference(ctx, strings.TrimSpace(paymentReference))
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithOrderID(ctx, order.ID)

	var updated *orders.Order
	switch {
	case status == enums.OrderStatusCompleted && (order.Status == enums.OrderStatusCancelled || order.Status == enums.OrderStatusFailed):
		// the shopper was charged, so the order is fulfilled rather than left closed
		s.logg.Warn(s.logg.WithField(ctx, "from", order.Status.String()), "payment captured on a closed order")
		if updated, err = s.orders.OverrideStatus(ctx, order.ID, status, latePaymentReason); err != nil {
			return nil, err
		}
	default:
		if status == enums.OrderStatusCompleted && order.Status == enums.OrderStatusPending {
			if order, err = s.orders.UpdateStatus(ctx, order.ID, enums.OrderStatusProcessing); err != nil {
				return nil, err
			}
		}
		if updated, err = s.orders.UpdateStatus(ctx, order.ID, status); err != nil {
			return nil, err
		}
	}

	if updated.Status == enums.OrderStatusCompleted && updated.SessionID != "" {
		if _, err := s.carts.Clear(ctx, updated.SessionID); err != nil {
			// the order is paid either way; a stale cart is recoverable by the shopper
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "cart not cleared after payment")
		}
	}
	return updated, nil
}

// attemptKey picks the key shared by the stored order and the payment intent. A
// client key is scoped to the session so two sessions never share an order. A derived
// key skips past orders that are no longer pending, so buying the same books again
// starts a new order.
func (s *service) attemptKey(ctx context.Context, sessionID, clientKey, email string, items []cart.LineItem) (string, error) {
	if clientKey = strings.TrimSpace(clientKey); clientKey != "" {
		return ScopeIdempotencyKey(sessionID, clientKey), nil
	}
	previous := ""
	for i := 0; i < maxKeyGenerations; i++ {
		key := DeriveIdempotencyKey(sessionID, email, items, previous)
		existing, err := s.orders.FindByIdempotencyKey(ctx, key)
		switch {
		case pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
			return key, nil
		case err != nil:
			return "", err
		case existing.Status == enums.OrderStatusPending:
			return key, nil
		}
		previous = existing.ID
	}
	return "", pkgerrors.New(pkgerrors.CodeConflict, "too many identical checkouts for this session")
}

// ScopeIdempotencyKey binds a client supplied key to the session that sent it.
func ScopeIdempotencyKey(sessionID, clientKey string) string {
	h := sha256.New()
	h.Write([]byte(sessionID))
	h.Write([]byte{0})
	h.Write([]byte(clientKey))
	return "ck_" + hex.EncodeToString(h.Sum(nil))[:40]
}

// DeriveIdempotencyKey fingerprints a checkout attempt so a resubmitted form maps onto
// the same payment intent and order. previousOrderID names the settled order the
// same fingerprint produced last, or is empty for the first attempt.
func DeriveIdempotencyKey(sessionID, email string, items []cart.LineItem, previousOrderID string) string {
	h := sha256.New()
	h.Write([]byte(sessionID))
	h.Write([]byte{0})
	h.Write([]byte(strings.ToLower(strings.TrimSpace(email))))
	for _, item := range items {
		fmt.Fprintf(h, "\x00%s:%d:%s", item.ItemID, item.Quantity, money.RoundCents(item.UnitPrice).StringFixed(2))
	}
	if previousOrderID != "" {
		fmt.Fprintf(h, "\x00after:%s", previousOrderID)
	}
	return "co_" + hex.EncodeToString(h.Sum(nil))[:40]
}
