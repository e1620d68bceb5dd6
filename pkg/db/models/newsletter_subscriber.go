package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NewsletterSubscriber records a confirmed newsletter signup.
type NewsletterSubscriber struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Email     string    `gorm:"column:email;not null;uniqueIndex"`
	FirstName *string   `gorm:"column:first_name"`
	Source    string    `gorm:"column:source;not null;default:'site'"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (n *NewsletterSubscriber) BeforeCreate(*gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
