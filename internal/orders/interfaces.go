package orders

import (
	"context"
	"time"

	"github.com/angelmondragon/alexandria-backend/pkg/enums"
	"gorm.io/gorm"
)

// Repository is the order-storage collaborator.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*Order, error)
	FindByPaymentReference(ctx context.Context, ref string) (*Order, error)
	// UpdateStatus moves the order only if it is still in from; it reports whether a row changed.
	UpdateStatus(ctx context.Context, id string, from enums.OrderStatus, change StatusChange) (bool, error)
	ListByCustomer(ctx context.Context, email string, limit int) ([]Order, error)
	ListBySession(ctx context.Context, sessionID string, limit int) ([]Order, error)
	ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]Order, error)
}

// StatusChange is the set of columns written by a status update.
type StatusChange struct {
	Status      enums.OrderStatus
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

// HistoryStore keeps the per-session list of placed orders.
type HistoryStore interface {
	List(ctx context.Context, sessionID string) ([]Order, error)
	Upsert(ctx context.Context, sessionID string, order Order) error
}

// KV is the session key-value store backing HistoryStore.
type KV interface {
	Read(ctx context.Context, key string) (string, bool, error)
	Write(ctx context.Context, key, value string) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type metricsRecorder interface {
	IncOrderCreated(currency string)
	IncStatusTransition(from, to string, override bool)
}
