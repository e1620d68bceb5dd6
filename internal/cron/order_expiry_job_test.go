package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/alexandria-backend/internal/orders"
	"github.com/angelmondragon/alexandria-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/alexandria-backend/pkg/errors"
	"github.com/angelmondragon/alexandria-backend/pkg/logger"
	pkgstripe "github.com/angelmondragon/alexandria-backend/pkg/stripe"
	"go.uber.org/multierr"
)

type fakeOrderStore struct {
	orders     map[string]*orders.Order
	cutoff     time.Time
	fail       map[string]error
	cancelled  []string
	queryCalls int
}

func (f *fakeOrderStore) ListPendingBefore(_ context.Context, cutoff time.Time, limit int) ([]orders.Order, error) {
	f.queryCalls++
	f.cutoff = cutoff
	var out []orders.Order
	for _, o := range f.orders {
		if o.Status == enums.OrderStatusPending && o.CreatedAt.Before(cutoff) && len(out) < limit {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeOrderStore) UpdateStatus(_ context.Context, id string, status enums.OrderStatus) (*orders.Order, error) {
	if err := f.fail[id]; err != nil {
		return nil, err
	}
	o := f.orders[id]
	o.Status = status
	f.cancelled = append(f.cancelled, id)
	return o, nil
}

type fakeIntents struct {
	statuses  map[string]string
	fail      map[string]error
	cancelled []string
}

func (f *fakeIntents) CancelIntent(_ context.Context, reference string) (*pkgstripe.Intent, error) {
	if err := f.fail[reference]; err != nil {
		return nil, err
	}
	if status, ok := f.statuses[reference]; ok {
		return &pkgstripe.Intent{Reference: reference, Status: status}, nil
	}
	f.cancelled = append(f.cancelled, reference)
	return &pkgstripe.Intent{Reference: reference, Status: pkgstripe.IntentStatusCanceled}, nil
}

func newExpiryJob(t *testing.T, store *fakeOrderStore, now time.Time) *orderExpiryJob {
	t.Helper()
	return newExpiryJobWithIntents(t, store, &fakeIntents{}, now)
}

func newExpiryJobWithIntents(t *testing.T, store *fakeOrderStore, intents *fakeIntents, now time.Time) *orderExpiryJob {
	t.Helper()
	job, err := NewOrderExpiryJob(OrderExpiryJobParams{Logger: logger.Nop(), Pending: store, Orders: store, Payments: intents, PendingTTL: 2 * time.Hour})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	typed := job.(*orderExpiryJob)
	typed.now = func() time.Time { return now }
	return typed
}

func TestOrderExpiryCancelsStalePendingOrders(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeOrderStore{orders: map[string]*orders.Order{
		"old":   {ID: "old", Status: enums.OrderStatusPending, CreatedAt: now.Add(-3 * time.Hour)},
		"fresh": {ID: "fresh", Status: enums.OrderStatusPending, CreatedAt: now.Add(-time.Hour)},
		"paid":  {ID: "paid", Status: enums.OrderStatusCompleted, CreatedAt: now.Add(-5 * time.Hour)},
	}}
	job := newExpiryJob(t, store, now)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(store.cancelled) != 1 || store.cancelled[0] != "old" {
		t.Fatalf("expected only old order cancelled, got %v", store.cancelled)
	}
	if !store.cutoff.Equal(now.Add(-2 * time.Hour)) {
		t.Fatalf("unexpected cutoff %v", store.cutoff)
	}
	if store.orders["fresh"].Status != enums.OrderStatusPending {
		t.Fatalf("fresh order should stay pending")
	}
}

func TestOrderExpiryCollectsFailuresAndContinues(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeOrderStore{
		orders: map[string]*orders.Order{
			"a": {ID: "a", Status: enums.OrderStatusPending, CreatedAt: now.Add(-3 * time.Hour)},
			"b": {ID: "b", Status: enums.OrderStatusPending, CreatedAt: now.Add(-4 * time.Hour)},
			"c": {ID: "c", Status: enums.OrderStatusPending, CreatedAt: now.Add(-5 * time.Hour)},
		},
		fail: map[string]error{
			"a": errors.New("db down"),
			"b": pkgerrors.New(pkgerrors.CodeStateConflict, "already processing"),
		},
	}
	job := newExpiryJob(t, store, now)

	err := job.Run(context.Background())
	if err == nil {
		t.Fatalf("expected aggregated error")
	}
	if got := len(multierr.Errors(err)); got != 1 {
		t.Fatalf("expected 1 failure, got %d (%v)", got, err)
	}
	if len(store.cancelled) != 1 || store.cancelled[0] != "c" {
		t.Fatalf("expected c cancelled despite failures, got %v", store.cancelled)
	}
}

func TestOrderExpiryCancelsPaymentIntentBeforeOrder(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeOrderStore{orders: map[string]*orders.Order{
		"stale":     {ID: "stale", PaymentReference: "pi_stale", Status: enums.OrderStatusPending, CreatedAt: now.Add(-3 * time.Hour)},
		"no-intent": {ID: "no-intent", Status: enums.OrderStatusPending, CreatedAt: now.Add(-3 * time.Hour)},
	}}
	intents := &fakeIntents{}
	job := newExpiryJobWithIntents(t, store, intents, now)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(intents.cancelled) != 1 || intents.cancelled[0] != "pi_stale" {
		t.Fatalf("expected pi_stale cancelled at Stripe, got %v", intents.cancelled)
	}
	if store.orders["stale"].Status != enums.OrderStatusCancelled || store.orders["no-intent"].Status != enums.OrderStatusCancelled {
		t.Fatalf("expected both orders cancelled")
	}
}

func TestOrderExpiryLeavesPaidIntentPending(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeOrderStore{orders: map[string]*orders.Order{
		"paid":       {ID: "paid", PaymentReference: "pi_paid", Status: enums.OrderStatusPending, CreatedAt: now.Add(-3 * time.Hour)},
		"processing": {ID: "processing", PaymentReference: "pi_processing", Status: enums.OrderStatusPending, CreatedAt: now.Add(-3 * time.Hour)},
		"gone":       {ID: "gone", PaymentReference: "pi_gone", Status: enums.OrderStatusPending, CreatedAt: now.Add(-3 * time.Hour)},
	}}
	intents := &fakeIntents{statuses: map[string]string{
		"pi_paid":       "succeeded",
		"pi_processing": "processing",
		"pi_gone":       pkgstripe.IntentStatusCanceled,
	}}
	job := newExpiryJobWithIntents(t, store, intents, now)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if store.orders["paid"].Status != enums.OrderStatusPending || store.orders["processing"].Status != enums.OrderStatusPending {
		t.Fatalf("orders with payment under way must stay pending")
	}
	if store.orders["gone"].Status != enums.OrderStatusCancelled {
		t.Fatalf("order whose intent was already cancelled should be cancelled")
	}
	if store.queryCalls != 1 {
		t.Fatalf("expected a single query pass, got %d", store.queryCalls)
	}
}

func TestOrderExpiryGatewayFailureKeepsOrderPending(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeOrderStore{orders: map[string]*orders.Order{
		"a": {ID: "a", PaymentReference: "pi_a", Status: enums.OrderStatusPending, CreatedAt: now.Add(-3 * time.Hour)},
	}}
	intents := &fakeIntents{fail: map[string]error{"pi_a": errors.New("stripe unavailable")}}
	job := newExpiryJobWithIntents(t, store, intents, now)

	err := job.Run(context.Background())
	if got := len(multierr.Errors(err)); got != 1 {
		t.Fatalf("expected 1 failure, got %d (%v)", got, err)
	}
	if store.orders["a"].Status != enums.OrderStatusPending || len(store.cancelled) != 0 {
		t.Fatalf("order must not be cancelled while its intent may still be charged")
	}
}

func TestOrderExpiryJobRequiresDependencies(t *testing.T) {
	if _, err := NewOrderExpiryJob(OrderExpiryJobParams{}); err == nil {
		t.Fatalf("expected error without logger")
	}
	if _, err := NewOrderExpiryJob(OrderExpiryJobParams{Logger: logger.Nop()}); err == nil {
		t.Fatalf("expected error without reader")
	}
	store := &fakeOrderStore{}
	if _, err := NewOrderExpiryJob(OrderExpiryJobParams{Logger: logger.Nop(), Pending: store, Orders: store}); err == nil {
		t.Fatalf("expected error without payment gateway")
	}
}
