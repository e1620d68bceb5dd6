package orders

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/alexandria-backend/internal/cart"
	"github.com/angelmondragon/alexandria-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/alexandria-backend/pkg/errors"
	"github.com/angelmondragon/alexandria-backend/pkg/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	orderIDPrefix    = "AL"
	orderIDRandomLen = 6
)

// Pricing is the policy applied when totals are derived.
type Pricing struct {
	TaxRate  decimal.Decimal
	Shipping decimal.Decimal
	Currency enums.Currency
}

// GenerateOrderID returns AL-<base36 unix millis>-<6 random base36 chars>, upper-cased.
func GenerateOrderID() string {
	return formatOrderID(time.Now(), uuid.New())
}

func formatOrderID(at time.Time, entropy uuid.UUID) string {
	stamp := strconv.FormatInt(at.UnixMilli(), 36)
	return strings.ToUpper(fmt.Sprintf("%s-%s-%s", orderIDPrefix, stamp, randomBase36(entropy)))
}

// randomBase36 folds the uuid's random bytes into orderIDRandomLen base36 digits.
func randomBase36(entropy uuid.UUID) string {
	var acc uint64
	for _, b := range entropy[8:] {
		acc = acc<<8 | uint64(b)
	}
	const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	out := make([]byte, orderIDRandomLen)
	for i := range out {
		out[i] = alphabet[acc%36]
		acc /= 36
	}
	return string(out)
}

// ToOrderItems snapshots cart line items, computing each subtotal rounded to cents.
func ToOrderItems(lineItems []cart.LineItem) []Item {
	items := make([]Item, 0, len(lineItems))
	for _, li := range lineItems {
		items = append(items, Item{
			ItemID:    li.ItemID,
			Title:     li.Title,
			Author:    li.Author,
			ImageRef:  li.ImageRef,
			UnitPrice: li.UnitPrice,
			Quantity:  li.Quantity,
			Subtotal:  money.LineTotal(li.UnitPrice, li.Quantity),
		})
	}
	return items
}

// ComputeTotals derives totals with free shipping in the default currency.
func ComputeTotals(items []Item, taxRate decimal.Decimal) Totals {
	return Pricing{TaxRate: taxRate}.Totals(items)
}

// Totals rounds every derived field independently so recomputing from the same
// inputs always yields the same values.
func (p Pricing) Totals(items []Item) Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Subtotal)
	}
	subtotal = money.RoundCents(subtotal)
	tax := money.RoundCents(subtotal.Mul(p.TaxRate))
	shipping := money.RoundCents(p.Shipping)
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    money.RoundCents(subtotal.Add(tax).Add(shipping)),
		Currency: p.currency(),
	}
}

func (p Pricing) currency() enums.Currency {
	if p.Currency == "" {
		return enums.CurrencyUSD
	}
	return p.Currency
}

// CreateOrder builds a pending order with free shipping in the default currency.
func CreateOrder(paymentReference string, customer CustomerInfo, lineItems []cart.LineItem, taxRate decimal.Decimal) (*Order, error) {
	return Pricing{TaxRate: taxRate}.CreateOrder(paymentReference, customer, lineItems)
}

// CreateOrder validates every input, reporting all violations together, and returns a
// pending order. Nothing is built when validation fails.
func (p Pricing) CreateOrder(paymentReference string, customer CustomerInfo, lineItems []cart.LineItem) (*Order, error) {
	customer = CustomerInfo{
		Email: strings.ToLower(strings.TrimSpace(customer.Email)),
		Name:  strings.TrimSpace(customer.Name),
		Phone: strings.TrimSpace(customer.Phone),
	}
	if err := validateOrderInput(customer, lineItems); err != nil {
		return nil, err
	}

	items := ToOrderItems(lineItems)
	now := time.Now().UTC()
	return &Order{
		ID:               GenerateOrderID(),
		PaymentReference: strings.TrimSpace(paymentReference),
		Customer:         customer,
		Items:            items,
		Totals:           p.Totals(items),
		Status:           enums.OrderStatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

func validateOrderInput(customer CustomerInfo, lineItems []cart.LineItem) error {
	var violations pkgerrors.Violations
	if customer.Email == "" {
		violations.Add("customer.email", "is required")
	}
	if customer.Name == "" {
		violations.Add("customer.name", "is required")
	}
	if len(lineItems) == 0 {
		violations.Add("items", "must contain at least one item")
	}
	for i, li := range lineItems {
		field := fmt.Sprintf("items[%d]", i)
		if strings.TrimSpace(li.ItemID) == "" {
			violations.Add(field+".item_id", "is required")
		}
		if !li.UnitPrice.IsPositive() {
			violations.Add(field+".unit_price", "must be positive")
		}
		if li.Quantity <= 0 {
			violations.Add(field+".quantity", "must be positive")
		}
	}
	return violations.Err("invalid order")
}
