package models

import (
	"time"

	"github.com/google/uuid"
)

// ToppingOption is immutable reference data for topping choices.
type ToppingOption struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	Slug      string    `gorm:"column:slug;not null;uniqueIndex"`
	PriceFils int64     `gorm:"column:price_fils;not null"`
	Category  string    `gorm:"column:category;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
