package orders

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/alexandria-backend/internal/cart"
	"github.com/angelmondragon/alexandria-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/alexandria-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func line(id, price string, qty int) cart.LineItem {
	return cart.LineItem{ItemID: id, Title: "Title " + id, Author: "Author", UnitPrice: dec(price), ImageRef: "/img/" + id, Quantity: qty}
}

func sampleLines() []cart.LineItem {
	return []cart.LineItem{line("a", "10.99", 2), line("b", "15.50", 1), line("c", "8.25", 3)}
}

var orderIDPattern = regexp.MustCompile(`^AL-[0-9A-Z]+-[0-9A-Z]{6}$`)

func TestGenerateOrderIDFormat(t *testing.T) {
	id := GenerateOrderID()
	assert.Regexp(t, orderIDPattern, id)
	assert.Equal(t, strings.ToUpper(id), id)
}

func TestGenerateOrderIDDistinct(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := GenerateOrderID()
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s after %d calls", id, i)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, 1000)
}

func TestFormatOrderIDEncodesTimestamp(t *testing.T) {
	at := time.UnixMilli(1_700_000_000_000)
	id := formatOrderID(at, uuid.MustParse("00000000-0000-4000-8000-000000000000"))
	parts := strings.Split(id, "-")
	require.Len(t, parts, 3)
	assert.Equal(t, "AL", parts[0])
	assert.Equal(t, "LOYW3V28", parts[1])
	assert.Len(t, parts[2], 6)
}

func TestToOrderItemsRoundsSubtotals(t *testing.T) {
	items := ToOrderItems([]cart.LineItem{line("a", "10.99", 2), line("b", "3.333", 3)})
	require.Len(t, items, 2)
	assert.Equal(t, "21.98", items[0].Subtotal.StringFixed(2))
	assert.Equal(t, "10.00", items[1].Subtotal.StringFixed(2))
	assert.Equal(t, "a", items[0].ItemID)
	assert.Equal(t, 2, items[0].Quantity)
}

func TestToOrderItemsIsDecoupledFromCart(t *testing.T) {
	lines := sampleLines()
	items := ToOrderItems(lines)
	lines[0].Quantity = 40
	lines[0].UnitPrice = dec("1.00")
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, "21.98", items[0].Subtotal.StringFixed(2))
}

func TestComputeTotals(t *testing.T) {
	items := ToOrderItems(sampleLines())
	totals := ComputeTotals(items, dec("0.08"))

	assert.Equal(t, "62.23", totals.Subtotal.StringFixed(2))
	assert.Equal(t, "4.98", totals.Tax.StringFixed(2))
	assert.Equal(t, "0.00", totals.Shipping.StringFixed(2))
	assert.Equal(t, "67.21", totals.Total.StringFixed(2))
	assert.Equal(t, enums.CurrencyUSD, totals.Currency)
	assert.True(t, totals.Total.Equal(totals.Subtotal.Add(totals.Tax).Add(totals.Shipping)))
}

func TestComputeTotalsIdempotent(t *testing.T) {
	items := ToOrderItems([]cart.LineItem{line("a", "19.99", 3), line("b", "0.07", 7)})
	rate := dec("0.0725")
	first := ComputeTotals(items, rate)
	second := ComputeTotals(items, rate)
	for _, pair := range [][2]decimal.Decimal{
		{first.Subtotal, second.Subtotal},
		{first.Tax, second.Tax},
		{first.Shipping, second.Shipping},
		{first.Total, second.Total},
	} {
		assert.True(t, pair[0].Equal(pair[1]))
	}
	assert.Equal(t, first.Currency, second.Currency)
}

func TestPricingAppliesShippingAndCurrency(t *testing.T) {
	p := Pricing{TaxRate: dec("0.10"), Shipping: dec("4.995"), Currency: enums.CurrencyEUR}
	totals := p.Totals(ToOrderItems([]cart.LineItem{line("a", "10.00", 1)}))
	assert.Equal(t, "1.00", totals.Tax.StringFixed(2))
	assert.Equal(t, "5.00", totals.Shipping.StringFixed(2))
	assert.Equal(t, "16.00", totals.Total.StringFixed(2))
	assert.Equal(t, enums.CurrencyEUR, totals.Currency)
}

func TestCreateOrderSuccess(t *testing.T) {
	before := time.Now().UTC()
	order, err := CreateOrder(" pi_123 ", CustomerInfo{Email: " Reader@Example.com ", Name: " Ada "}, sampleLines(), dec("0.08"))
	require.NoError(t, err)

	assert.Regexp(t, orderIDPattern, order.ID)
	assert.Equal(t, "pi_123", order.PaymentReference)
	assert.Equal(t, "reader@example.com", order.Customer.Email)
	assert.Equal(t, "Ada", order.Customer.Name)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Len(t, order.Items, 3)
	assert.Equal(t, 6, order.ItemCount())
	assert.Equal(t, "67.21", order.Totals.Total.StringFixed(2))
	assert.False(t, order.CreatedAt.Before(before))
	assert.True(t, order.CreatedAt.Equal(order.UpdatedAt))
	assert.Nil(t, order.CompletedAt)
}

func TestCreateOrderEmptyCart(t *testing.T) {
	_, err := CreateOrder("pi_1", CustomerInfo{Email: "a@b.co", Name: "A"}, nil, decimal.Zero)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Contains(t, err.Error(), "at least one item")
}

func TestCreateOrderAccumulatesViolations(t *testing.T) {
	lines := []cart.LineItem{line("a", "0", 1), line("", "2.00", 0)}
	_, err := CreateOrder("pi_1", CustomerInfo{}, lines, decimal.Zero)
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())

	violations, ok := typed.Details().(pkgerrors.Violations)
	require.True(t, ok)
	fields := make([]string, 0, len(violations))
	for _, v := range violations {
		fields = append(fields, v.Field)
	}
	assert.ElementsMatch(t, []string{
		"customer.email",
		"customer.name",
		"items[0].unit_price",
		"items[1].item_id",
		"items[1].quantity",
	}, fields)
}
