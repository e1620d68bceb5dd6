package orders

import (
	"context"
	"strings"
	"time"

	"github.com/angelmondragon/alexandria-backend/pkg/db/models"
	"github.com/angelmondragon/alexandria-backend/pkg/enums"
	"github.com/angelmondragon/alexandria-backend/pkg/pagination"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *Order) error {
	record := toModel(order)
	return r.db.WithContext(ctx).Create(&record).Error
}

func (r *repository) Get(ctx context.Context, id string) (*Order, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *repository) FindByIdempotencyKey(ctx context.Context, key string) (*Order, error) {
	return r.first(ctx, "idempotency_key = ?", key)
}

func (r *repository) FindByPaymentReference(ctx context.Context, ref string) (*Order, error) {
	return r.first(ctx, "payment_reference = ?", ref)
}

func (r *repository) first(ctx context.Context, query string, arg any) (*Order, error) {
	var record models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where(query, arg).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	order := fromModel(record)
	return &order, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id string, from enums.OrderStatus, change StatusChange) (bool, error) {
	updates := map[string]any{
		"status":     change.Status,
		"updated_at": change.UpdatedAt,
	}
	if change.CompletedAt != nil {
		updates["completed_at"] = *change.CompletedAt
	}
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) ListByCustomer(ctx context.Context, email string, limit int) ([]Order, error) {
	return r.list(ctx, limit, "created_at DESC", "customer_email = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (r *repository) ListBySession(ctx context.Context, sessionID string, limit int) ([]Order, error) {
	return r.list(ctx, limit, "created_at DESC", "session_id = ?", sessionID)
}

func (r *repository) ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]Order, error) {
	return r.list(ctx, limit, "created_at ASC", "status = ? AND created_at < ?", enums.OrderStatusPending, cutoff)
}

func (r *repository) list(ctx context.Context, limit int, order string, query string, args ...any) ([]Order, error) {
	var records []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where(query, args...).
		Order(order).
		Limit(pagination.NormalizeLimit(limit)).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	out := make([]Order, 0, len(records))
	for _, record := range records {
		out = append(out, fromModel(record))
	}
	return out, nil
}

func toModel(order *Order) models.Order {
	record := models.Order{
		ID:               order.ID,
		SessionID:        order.SessionID,
		PaymentReference: order.PaymentReference,
		CustomerEmail:    strings.ToLower(order.Customer.Email),
		CustomerName:     order.Customer.Name,
		Subtotal:         order.Totals.Subtotal,
		Tax:              order.Totals.Tax,
		Shipping:         order.Totals.Shipping,
		Total:            order.Totals.Total,
		Currency:         order.Totals.Currency,
		Status:           order.Status,
		CreatedAt:        order.CreatedAt,
		UpdatedAt:        order.UpdatedAt,
		CompletedAt:      order.CompletedAt,
	}
	if order.Customer.Phone != "" {
		phone := order.Customer.Phone
		record.CustomerPhone = &phone
	}
	if order.IdempotencyKey != "" {
		key := order.IdempotencyKey
		record.IdempotencyKey = &key
	}
	record.Items = make([]models.OrderItem, 0, len(order.Items))
	for i, item := range order.Items {
		record.Items = append(record.Items, models.OrderItem{
			OrderID:   order.ID,
			Position:  i,
			ItemID:    item.ItemID,
			Title:     item.Title,
			Author:    item.Author,
			ImageRef:  item.ImageRef,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			Subtotal:  item.Subtotal,
		})
	}
	return record
}

func fromModel(record models.Order) Order {
	order := Order{
		ID:               record.ID,
		SessionID:        record.SessionID,
		PaymentReference: record.PaymentReference,
		Customer: CustomerInfo{
			Email: record.CustomerEmail,
			Name:  record.CustomerName,
		},
		Totals: Totals{
			Subtotal: record.Subtotal,
			Tax:      record.Tax,
			Shipping: record.Shipping,
			Total:    record.Total,
			Currency: record.Currency,
		},
		Status:      record.Status,
		CreatedAt:   record.CreatedAt.UTC(),
		UpdatedAt:   record.UpdatedAt.UTC(),
		CompletedAt: utcPtr(record.CompletedAt),
	}
	if record.CustomerPhone != nil {
		order.Customer.Phone = *record.CustomerPhone
	}
	if record.IdempotencyKey != nil {
		order.IdempotencyKey = *record.IdempotencyKey
	}
	order.Items = make([]Item, 0, len(record.Items))
	for _, item := range record.Items {
		order.Items = append(order.Items, Item{
			ItemID:    item.ItemID,
			Title:     item.Title,
			Author:    item.Author,
			ImageRef:  item.ImageRef,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			Subtotal:  item.Subtotal,
		})
	}
	return order
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}
