package cart

import (
	"context"
	"encoding/json"
	"strings"

	pkgerrors "github.com/angelmondragon/alexandria-backend/pkg/errors"
	"github.com/angelmondragon/alexandria-backend/pkg/logger"
	"github.com/angelmondragon/alexandria-backend/pkg/money"
	"github.com/shopspring/decimal"
)

// Book is the payload a cart accepts when a reader picks a title.
type Book struct {
	ID        string
	Title     string
	Author    string
	UnitPrice decimal.Decimal
	ImageRef  string
}

// LineItem is one distinct book in the cart with its quantity.
type LineItem struct {
	ItemID    string          `json:"item_id"`
	Title     string          `json:"title"`
	Author    string          `json:"author"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	ImageRef  string          `json:"image_ref"`
	Quantity  int             `json:"quantity"`
}

// Cart holds the line items of one session. It is not safe for concurrent use; each
// request opens its own Cart over the session key.
type Cart struct {
	kv        KV
	key       string
	logg      *logger.Logger
	items     []LineItem
	persisted []LineItem
}

// Open restores the cart stored under key. Restore never fails: a missing, unreadable or
// corrupt record yields an empty cart.
func Open(ctx context.Context, kv KV, key string, logg *logger.Logger) *Cart {
	if logg == nil {
		logg = logger.Nop()
	}
	c := &Cart{kv: kv, key: key, logg: logg}
	c.items = c.restore(ctx)
	c.persisted = cloneItems(c.items)
	return c
}

func (c *Cart) restore(ctx context.Context) []LineItem {
	if c.kv == nil {
		return nil
	}
	raw, found, err := c.kv.Read(ctx, c.key)
	if err != nil {
		c.logg.Warn(c.logg.WithFields(ctx, map[string]any{"key": c.key, "error": err.Error()}), "cart read failed; starting empty")
		return nil
	}
	if !found || strings.TrimSpace(raw) == "" {
		return nil
	}
	items, err := decodeItems(raw)
	if err != nil {
		c.logg.Warn(c.logg.WithFields(ctx, map[string]any{"key": c.key, "error": err.Error()}), "corrupt cart record; starting empty")
		return nil
	}
	return items
}

// Items returns a copy of the line items in insertion order.
func (c *Cart) Items() []LineItem {
	return cloneItems(c.items)
}

// IsEmpty reports whether the cart has no line items.
func (c *Cart) IsEmpty() bool {
	return len(c.items) == 0
}

// AddItem increments the quantity of an existing line item or appends a new one with quantity 1.
func (c *Cart) AddItem(ctx context.Context, book Book) error {
	id := strings.TrimSpace(book.ID)
	if id == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	if book.UnitPrice.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unit price must not be negative")
	}
	if idx := c.indexOf(id); idx >= 0 {
		c.items[idx].Quantity++
	} else {
		c.items = append(c.items, LineItem{
			ItemID:    id,
			Title:     book.Title,
			Author:    book.Author,
			UnitPrice: book.UnitPrice,
			ImageRef:  book.ImageRef,
			Quantity:  1,
		})
	}
	return c.persist(ctx)
}

// RemoveItem deletes the matching line item. Absent ids are a no-op.
func (c *Cart) RemoveItem(ctx context.Context, itemID string) error {
	if idx := c.indexOf(strings.TrimSpace(itemID)); idx >= 0 {
		c.items = append(c.items[:idx], c.items[idx+1:]...)
	}
	return c.persist(ctx)
}

// UpdateQuantity replaces the quantity of a line item; quantity <= 0 removes it.
// Absent ids are a no-op.
func (c *Cart) UpdateQuantity(ctx context.Context, itemID string, quantity int) error {
	if quantity <= 0 {
		return c.RemoveItem(ctx, itemID)
	}
	if idx := c.indexOf(strings.TrimSpace(itemID)); idx >= 0 {
		c.items[idx].Quantity = quantity
	}
	return c.persist(ctx)
}

// Clear empties the cart.
func (c *Cart) Clear(ctx context.Context) error {
	c.items = nil
	return c.persist(ctx)
}

// TotalItemCount sums quantities across line items.
func (c *Cart) TotalItemCount() int {
	total := 0
	for _, item := range c.items {
		total += item.Quantity
	}
	return total
}

// TotalPrice sums unitPrice × quantity across line items, rounded to cents.
func (c *Cart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return money.RoundCents(total)
}

func (c *Cart) indexOf(itemID string) int {
	for i, item := range c.items {
		if item.ItemID == itemID {
			return i
		}
	}
	return -1
}

// persist writes the current snapshot. On failure the in-memory items roll back to the
// last persisted snapshot so memory and storage never diverge.
func (c *Cart) persist(ctx context.Context) error {
	if c.kv == nil {
		c.persisted = cloneItems(c.items)
		return nil
	}
	payload, err := encodeItems(c.items)
	if err == nil {
		err = c.kv.Write(ctx, c.key, payload)
	}
	if err != nil {
		c.items = cloneItems(c.persisted)
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "persist cart")
	}
	c.persisted = cloneItems(c.items)
	return nil
}

func encodeItems(items []LineItem) (string, error) {
	if items == nil {
		items = []LineItem{}
	}
	buf, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

func decodeItems(raw string) ([]LineItem, error) {
	var items []LineItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if err := item.validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[item.ItemID]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate item id "+item.ItemID)
		}
		seen[item.ItemID] = struct{}{}
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items, nil
}

func (i LineItem) validate() error {
	switch {
	case strings.TrimSpace(i.ItemID) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "line item without id")
	case i.Quantity < 1:
		return pkgerrors.New(pkgerrors.CodeValidation, "line item "+i.ItemID+" has non-positive quantity")
	case i.UnitPrice.IsNegative():
		return pkgerrors.New(pkgerrors.CodeValidation, "line item "+i.ItemID+" has negative price")
	}
	return nil
}

func cloneItems(items []LineItem) []LineItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]LineItem, len(items))
	copy(out, items)
	return out
}
