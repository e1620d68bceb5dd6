package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/alexandria-backend/internal/orders"
	"github.com/angelmondragon/alexandria-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/alexandria-backend/pkg/errors"
	"github.com/angelmondragon/alexandria-backend/pkg/logger"
	pkgstripe "github.com/angelmondragon/alexandria-backend/pkg/stripe"
	"go.uber.org/multierr"
)

const (
	defaultPendingTTL = 24 * time.Hour
	expiryBatchSize   = 100
)

type pendingOrderReader interface {
	ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]orders.Order, error)
}

type orderCanceller interface {
	UpdateStatus(ctx context.Context, id string, status enums.OrderStatus) (*orders.Order, error)
}

type intentCanceller interface {
	CancelIntent(ctx context.Context, reference string) (*pkgstripe.Intent, error)
}

// OrderExpiryJobParams configure the pending order sweeper.
type OrderExpiryJobParams struct {
	Logger     *logger.Logger
	Pending    pendingOrderReader
	Orders     orderCanceller
	Payments   intentCanceller
	PendingTTL time.Duration
}

// NewOrderExpiryJob builds the job that cancels orders whose payment never arrived.
func NewOrderExpiryJob(params OrderExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Pending == nil {
		return nil, fmt.Errorf("pending orders reader required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order service required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	ttl := params.PendingTTL
	if ttl <= 0 {
		ttl = defaultPendingTTL
	}
	return &orderExpiryJob{
		logg:     params.Logger,
		pending:  params.Pending,
		orders:   params.Orders,
		payments: params.Payments,
		ttl:      ttl,
		now:      time.Now,
	}, nil
}

type orderExpiryJob struct {
	logg     *logger.Logger
	pending  pendingOrderReader
	orders   orderCanceller
	payments intentCanceller
	ttl      time.Duration
	now      func() time.Time
}

func (j *orderExpiryJob) Name() string { return "order-expiry" }

// Run cancels every pending order older than the TTL, abandoning its payment intent
// first. Orders whose payment is already under way stay pending for the webhook to
// settle. A failing order does not stop the sweep; all failures are returned together.
func (j *orderExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	var errs error
	expired := 0
	skipped := map[string]struct{}{}

	for {
		batch, err := j.pending.ListPendingBefore(ctx, cutoff, expiryBatchSize)
		if err != nil {
			return multierr.Append(errs, fmt.Errorf("query pending orders: %w", err))
		}
		progressed := false
		for _, order := range batch {
			if _, seen := skipped[order.ID]; seen {
				continue
			}
			payable, err := j.abandonPayment(ctx, order)
			if err != nil {
				skipped[order.ID] = struct{}{}
				errs = multierr.Append(errs, fmt.Errorf("cancel payment for order %s: %w", order.ID, err))
				continue
			}
			if !payable {
				skipped[order.ID] = struct{}{}
				continue
			}

			_, err = j.orders.UpdateStatus(ctx, order.ID, enums.OrderStatusCancelled)
			switch {
			case err == nil:
				expired++
				progressed = true
			case pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
				// moved on since the query ran
				skipped[order.ID] = struct{}{}
			default:
				skipped[order.ID] = struct{}{}
				errs = multierr.Append(errs, fmt.Errorf("expire order %s: %w", order.ID, err))
			}
		}
		if len(batch) < expiryBatchSize || !progressed {
			break
		}
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{"count": expired, "cutoff": cutoff}), "pending order expiry complete")
	return errs
}

// abandonPayment reports whether the order can be cancelled, which is once its intent
// can no longer be charged.
func (j *orderExpiryJob) abandonPayment(ctx context.Context, order orders.Order) (bool, error) {
	if order.PaymentReference == "" {
		return true, nil
	}
	intent, err := j.payments.CancelIntent(ctx, order.PaymentReference)
	if err != nil {
		return false, err
	}
	if intent.Status != pkgstripe.IntentStatusCanceled {
		logCtx := j.logg.WithFields(j.logg.WithOrderID(ctx, order.ID), map[string]any{
			"payment_reference": order.PaymentReference,
			"intent_status":     intent.Status,
		})
		j.logg.Warn(logCtx, "payment under way; order left pending")
		return false, nil
	}
	return true, nil
}
