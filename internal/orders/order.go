package orders

import (
	"time"

	"github.com/angelmondragon/alexandria-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// CustomerInfo identifies who placed an order.
type CustomerInfo struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

// Item is the immutable snapshot of a cart line item captured at order time.
type Item struct {
	ItemID    string          `json:"item_id"`
	Title     string          `json:"title"`
	Author    string          `json:"author"`
	ImageRef  string          `json:"image_ref"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// Totals are rounded to cents when computed; Total always equals Subtotal + Tax + Shipping.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
	Currency enums.Currency  `json:"currency"`
}

// Order is a placed checkout submission. Only Status and the timestamps change after creation.
type Order struct {
	ID               string            `json:"order_id"`
	SessionID        string            `json:"-"`
	PaymentReference string            `json:"payment_reference"`
	Customer         CustomerInfo      `json:"customer"`
	Items            []Item            `json:"items"`
	Totals           Totals            `json:"totals"`
	Status           enums.OrderStatus `json:"status"`
	IdempotencyKey   string            `json:"-"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
	CompletedAt      *time.Time        `json:"completed_at,omitempty"`
}

// ItemCount sums quantities across the order's items.
func (o *Order) ItemCount() int {
	total := 0
	for _, item := range o.Items {
		total += item.Quantity
	}
	return total
}
