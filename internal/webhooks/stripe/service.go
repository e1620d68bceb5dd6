package stripewebhook

import (
	"context"
	"encoding/json"

	"github.com/angelmondragon/alexandria-backend/internal/orders"
	"github.com/angelmondragon/alexandria-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/alexandria-backend/pkg/errors"
	"github.com/angelmondragon/alexandria-backend/pkg/logger"
	"github.com/stripe/stripe-go/v84"
)

type paymentApplier interface {
	ApplyPaymentStatus(ctx context.Context, paymentReference string, status enums.OrderStatus) (*orders.Order, error)
}

// Service applies Stripe payment events to orders.
type Service struct {
	payments paymentApplier
	logg     *logger.Logger
}

func NewService(payments paymentApplier, logg *logger.Logger) (*Service, error) {
	if payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment applier required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{payments: payments, logg: logg}, nil
}

// StatusForEvent maps a Stripe event type onto the order status it implies.
func StatusForEvent(eventType stripe.EventType) (enums.OrderStatus, bool) {
	switch eventType {
	case stripe.EventTypePaymentIntentProcessing:
		return enums.OrderStatusProcessing, true
	case stripe.EventTypePaymentIntentSucceeded:
		return enums.OrderStatusCompleted, true
	case stripe.EventTypePaymentIntentPaymentFailed:
		return enums.OrderStatusFailed, true
	case stripe.EventTypePaymentIntentCanceled:
		return enums.OrderStatusCancelled, true
	case stripe.EventTypeChargeRefunded:
		return enums.OrderStatusRefunded, true
	default:
		return "", false
	}
}

// HandleEvent ignores unrelated event types. Events that no longer fit the order's
// lifecycle are logged and acknowledged so Stripe stops redelivering them.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}
	status, ok := StatusForEvent(event.Type)
	if !ok {
		return nil
	}

	ref, err := paymentReference(event)
	if err != nil {
		return err
	}
	ctx = s.logg.WithFields(ctx, map[string]any{"stripe_event": event.ID, "event_type": string(event.Type), "payment_reference": ref})

	_, err = s.payments.ApplyPaymentStatus(ctx, ref, status)
	switch {
	case err == nil:
		return nil
	case pkgerrors.IsCode(err, pkgerrors.CodeStateConflict):
		if status == enums.OrderStatusCompleted {
			s.logg.Error(ctx, "captured payment could not be applied to its order", err)
			return nil
		}
		s.logg.Warn(ctx, "stripe event does not fit order lifecycle; ignored")
		return nil
	case pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
		s.logg.Warn(ctx, "stripe event for unknown payment; ignored")
		return nil
	default:
		return err
	}
}

func paymentReference(event *stripe.Event) (string, error) {
	if event.Type == stripe.EventTypeChargeRefunded {
		var charge stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode charge event")
		}
		if charge.PaymentIntent == nil || charge.PaymentIntent.ID == "" {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "charge has no payment intent")
		}
		return charge.PaymentIntent.ID, nil
	}
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent event")
	}
	if intent.ID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "payment intent id missing")
	}
	return intent.ID, nil
}
