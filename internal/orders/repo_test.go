package orders

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/alexandria-backend/pkg/db"
	"github.com/angelmondragon/alexandria-backend/pkg/db/models"
	"github.com/angelmondragon/alexandria-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Order{}, &models.OrderItem{}))
	return conn
}

func newStoredOrder(t *testing.T, repo Repository, session, email string, created time.Time) *Order {
	t.Helper()
	order, err := CreateOrder("pi_"+uuid.NewString(), CustomerInfo{Email: email, Name: "Reader"}, sampleLines(), decimal.RequireFromString("0.08"))
	require.NoError(t, err)
	order.SessionID = session
	order.CreatedAt = created
	order.UpdatedAt = created
	require.NoError(t, repo.Create(context.Background(), order))
	return order
}

func TestRepositoryCreateAndGet(t *testing.T) {
	conn := setupOrdersTestDB(t)
	repo := NewRepository(conn)
	created := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	order := newStoredOrder(t, repo, "sess-1", "reader@example.com", created)

	got, err := repo.Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
	assert.Equal(t, "sess-1", got.SessionID)
	assert.Equal(t, order.PaymentReference, got.PaymentReference)
	assert.Equal(t, enums.OrderStatusPending, got.Status)
	assert.True(t, created.Equal(got.CreatedAt))
	assert.True(t, got.Totals.Total.Equal(order.Totals.Total))
	assert.True(t, got.Totals.Subtotal.Equal(decimal.RequireFromString("62.23")))
	require.Len(t, got.Items, 3)
	assert.Equal(t, "a", got.Items[0].ItemID)
	assert.Equal(t, "c", got.Items[2].ItemID)
	assert.Equal(t, 3, got.Items[2].Quantity)

	byRef, err := repo.FindByPaymentReference(context.Background(), order.PaymentReference)
	require.NoError(t, err)
	assert.Equal(t, order.ID, byRef.ID)

	_, err = repo.Get(context.Background(), "AL-MISSING")
	assert.True(t, db.IsNotFound(err))
}

func TestRepositoryIdempotencyKeyIsUnique(t *testing.T) {
	conn := setupOrdersTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	first, err := CreateOrder("pi_1", CustomerInfo{Email: "a@b.co", Name: "A"}, sampleLines(), decimal.Zero)
	require.NoError(t, err)
	first.SessionID = "s"
	first.IdempotencyKey = "key-1"
	require.NoError(t, repo.Create(ctx, first))

	second, err := CreateOrder("pi_2", CustomerInfo{Email: "a@b.co", Name: "A"}, sampleLines(), decimal.Zero)
	require.NoError(t, err)
	second.SessionID = "s"
	second.IdempotencyKey = "key-1"
	err = repo.Create(ctx, second)
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err, ""))

	found, err := repo.FindByIdempotencyKey(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)
}

func TestRepositoryUpdateStatusIsConditional(t *testing.T) {
	conn := setupOrdersTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	order := newStoredOrder(t, repo, "sess-1", "reader@example.com", time.Now().UTC())

	at := time.Now().UTC()
	ok, err := repo.UpdateStatus(ctx, order.ID, enums.OrderStatusPending, StatusChange{Status: enums.OrderStatusProcessing, UpdatedAt: at})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.UpdateStatus(ctx, order.ID, enums.OrderStatusPending, StatusChange{Status: enums.OrderStatusFailed, UpdatedAt: at})
	require.NoError(t, err)
	assert.False(t, ok, "stale from-status must not update")

	completed := at.Add(time.Minute)
	ok, err = repo.UpdateStatus(ctx, order.ID, enums.OrderStatusProcessing, StatusChange{Status: enums.OrderStatusCompleted, UpdatedAt: completed, CompletedAt: &completed})
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, completed.Equal(*got.CompletedAt))
}

func TestRepositoryListQueries(t *testing.T) {
	conn := setupOrdersTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	old := newStoredOrder(t, repo, "sess-1", "reader@example.com", base)
	mid := newStoredOrder(t, repo, "sess-1", "reader@example.com", base.Add(2*time.Hour))
	other := newStoredOrder(t, repo, "sess-2", "other@example.com", base.Add(3*time.Hour))
	_, err := repo.UpdateStatus(ctx, mid.ID, enums.OrderStatusPending, StatusChange{Status: enums.OrderStatusProcessing, UpdatedAt: base})
	require.NoError(t, err)

	byCustomer, err := repo.ListByCustomer(ctx, " Reader@Example.com ", 10)
	require.NoError(t, err)
	require.Len(t, byCustomer, 2)
	assert.Equal(t, mid.ID, byCustomer[0].ID, "newest first")
	assert.Equal(t, old.ID, byCustomer[1].ID)
	assert.Len(t, byCustomer[0].Items, 3)

	bySession, err := repo.ListBySession(ctx, "sess-2", 0)
	require.NoError(t, err)
	require.Len(t, bySession, 1)
	assert.Equal(t, other.ID, bySession[0].ID)

	pending, err := repo.ListPendingBefore(ctx, base.Add(4*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, old.ID, pending[0].ID, "oldest first")
	assert.Equal(t, other.ID, pending[1].ID)

	pending, err = repo.ListPendingBefore(ctx, base.Add(time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, old.ID, pending[0].ID)
}
