package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderItem is the line-item snapshot captured when an order is placed.
type OrderItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   string          `gorm:"column:order_id;not null;index"`
	Position  int             `gorm:"column:position;not null"`
	ItemID    string          `gorm:"column:item_id;not null"`
	Title     string          `gorm:"column:title;not null"`
	Author    string          `gorm:"column:author;not null"`
	ImageRef  string          `gorm:"column:image_ref;not null;default:''"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Quantity  int             `gorm:"column:quantity;not null"`
	Subtotal  decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
