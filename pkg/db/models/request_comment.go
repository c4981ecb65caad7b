package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RequestComment is a discussion entry on an item request.
type RequestComment struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	RequestID uuid.UUID `gorm:"column:request_id;type:uuid;not null"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null"`
	Content   string    `gorm:"column:content;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (c *RequestComment) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
