package models

import (
	"time"

	"github.com/google/uuid"
)

// Flavor is a house gelato flavor sellable as a base item.
type Flavor struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name          string    `gorm:"column:name;not null"`
	Slug          string    `gorm:"column:slug;not null;uniqueIndex"`
	Description   *string   `gorm:"column:description"`
	BasePriceFils int64     `gorm:"column:base_price_fils;not null"`
	ImageRef      *string   `gorm:"column:image_ref"`
	IsActive      bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
