package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/angelmondragon/alexandria-backend/internal/orders"
	"github.com/angelmondragon/alexandria-backend/pkg/config"
	"github.com/angelmondragon/alexandria-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/alexandria-backend/pkg/errors"
	"github.com/angelmondragon/alexandria-backend/pkg/redis"
	"github.com/stripe/stripe-go/v84"
)

type applyCall struct {
	ref    string
	status enums.OrderStatus
}

type stubApplier struct {
	calls []applyCall
	err   error
}

func (s *stubApplier) ApplyPaymentStatus(_ context.Context, ref string, status enums.OrderStatus) (*orders.Order, error) {
	s.calls = append(s.calls, applyCall{ref: ref, status: status})
	if s.err != nil {
		return nil, s.err
	}
	return &orders.Order{PaymentReference: ref, Status: status}, nil
}

func intentEvent(t *testing.T, eventType stripe.EventType, id string) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(map[string]any{"id": id, "object": "payment_intent"})
	if err != nil {
		t.Fatalf("marshal intent: %v", err)
	}
	return &stripe.Event{ID: "evt_1", Type: eventType, Data: &stripe.EventData{Raw: raw}}
}

func TestHandleEventMapsPaymentIntentTypes(t *testing.T) {
	cases := map[stripe.EventType]enums.OrderStatus{
		stripe.EventTypePaymentIntentProcessing:    enums.OrderStatusProcessing,
		stripe.EventTypePaymentIntentSucceeded:     enums.OrderStatusCompleted,
		stripe.EventTypePaymentIntentPaymentFailed: enums.OrderStatusFailed,
		stripe.EventTypePaymentIntentCanceled:      enums.OrderStatusCancelled,
	}
	for eventType, want := range cases {
		applier := &stubApplier{}
		svc, err := NewService(applier, nil)
		if err != nil {
			t.Fatalf("setup service: %v", err)
		}
		if err := svc.HandleEvent(context.Background(), intentEvent(t, eventType, "pi_42")); err != nil {
			t.Fatalf("%s: handle event: %v", eventType, err)
		}
		if len(applier.calls) != 1 || applier.calls[0].ref != "pi_42" || applier.calls[0].status != want {
			t.Fatalf("%s: unexpected calls %+v", eventType, applier.calls)
		}
	}
}

func TestHandleEventRefundUsesChargePaymentIntent(t *testing.T) {
	applier := &stubApplier{}
	svc, _ := NewService(applier, nil)
	raw, _ := json.Marshal(map[string]any{"id": "ch_1", "object": "charge", "payment_intent": "pi_9"})
	event := &stripe.Event{ID: "evt_2", Type: stripe.EventTypeChargeRefunded, Data: &stripe.EventData{Raw: raw}}

	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(applier.calls) != 1 || applier.calls[0].ref != "pi_9" || applier.calls[0].status != enums.OrderStatusRefunded {
		t.Fatalf("unexpected calls %+v", applier.calls)
	}
}

func TestHandleEventIgnoresUnrelatedTypes(t *testing.T) {
	applier := &stubApplier{}
	svc, _ := NewService(applier, nil)
	if err := svc.HandleEvent(context.Background(), intentEvent(t, stripe.EventTypeCustomerCreated, "cus_1")); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(applier.calls) != 0 {
		t.Fatalf("expected no calls, got %+v", applier.calls)
	}
}

func TestHandleEventAcknowledgesLifecycleConflicts(t *testing.T) {
	applier := &stubApplier{err: pkgerrors.New(pkgerrors.CodeStateConflict, "illegal transition")}
	svc, _ := NewService(applier, nil)
	if err := svc.HandleEvent(context.Background(), intentEvent(t, stripe.EventTypePaymentIntentCanceled, "pi_1")); err != nil {
		t.Fatalf("conflicts should be acknowledged, got %v", err)
	}

	applier.err = pkgerrors.Wrap(pkgerrors.CodeUpstream, errors.New("db down"), "update order status")
	if err := svc.HandleEvent(context.Background(), intentEvent(t, stripe.EventTypePaymentIntentCanceled, "pi_1")); !pkgerrors.IsCode(err, pkgerrors.CodeUpstream) {
		t.Fatalf("expected upstream error to propagate, got %v", err)
	}
}

func TestHandleEventRejectsMissingIntentID(t *testing.T) {
	svc, _ := NewService(&stubApplier{}, nil)
	err := svc.HandleEvent(context.Background(), intentEvent(t, stripe.EventTypePaymentIntentSucceeded, ""))
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestEventGuardMarksOnce(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := redis.New(context.Background(), config.RedisConfig{Address: mr.Addr()}, nil)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	guard, err := NewEventGuard(client, time.Hour)
	if err != nil {
		t.Fatalf("guard setup: %v", err)
	}
	ctx := context.Background()

	seen, err := guard.CheckAndMark(ctx, "evt_1")
	if err != nil || seen {
		t.Fatalf("first delivery: seen=%v err=%v", seen, err)
	}
	seen, err = guard.CheckAndMark(ctx, "evt_1")
	if err != nil || !seen {
		t.Fatalf("redelivery: seen=%v err=%v", seen, err)
	}
	if !mr.Exists("al:webhook:stripe:evt_1") {
		t.Fatalf("expected namespaced key, keys=%v", mr.Keys())
	}
	if err := guard.Release(ctx, "evt_1"); err != nil {
		t.Fatalf("release: %v", err)
	}
	seen, _ = guard.CheckAndMark(ctx, "evt_1")
	if seen {
		t.Fatalf("released event should be processable again")
	}
}
