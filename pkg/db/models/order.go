package models

import (
	"time"

	"github.com/angelmondragon/alexandria-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// Order is the persisted checkout submission. Only status and timestamps change after insert.
type Order struct {
	ID               string            `gorm:"column:id;primaryKey"`
	SessionID        string            `gorm:"column:session_id;not null;index"`
	PaymentReference string            `gorm:"column:payment_reference;not null;index"`
	CustomerEmail    string            `gorm:"column:customer_email;not null;index"`
	CustomerName     string            `gorm:"column:customer_name;not null"`
	CustomerPhone    *string           `gorm:"column:customer_phone"`
	Subtotal         decimal.Decimal   `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Tax              decimal.Decimal   `gorm:"column:tax;type:numeric(12,2);not null"`
	Shipping         decimal.Decimal   `gorm:"column:shipping;type:numeric(12,2);not null"`
	Total            decimal.Decimal   `gorm:"column:total;type:numeric(12,2);not null"`
	Currency         enums.Currency    `gorm:"column:currency;not null;default:'USD'"`
	Status           enums.OrderStatus `gorm:"column:status;not null;default:'pending';index"`
	IdempotencyKey   *string           `gorm:"column:idempotency_key;uniqueIndex"`
	Items            []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime"`
	CompletedAt      *time.Time        `gorm:"column:completed_at"`
}
