package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/gelatokw/scoops-backend/pkg/enums"
)

// CartLine is one distinct customization in a cart. The unit price is frozen
// at add time; only the quantity mutates afterwards.
type CartLine struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID        uuid.UUID           `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:idx_cart_lines_cart_line_key,priority:1"`
	LineKey       string              `gorm:"column:line_key;not null;uniqueIndex:idx_cart_lines_cart_line_key,priority:2"`
	BaseItemID    uuid.UUID           `gorm:"column:base_item_id;type:uuid;not null"`
	Source        enums.CatalogSource `gorm:"column:source;type:catalog_source;not null;default:'flavor'"`
	Title         string              `gorm:"column:title;not null"`
	ImageRef      *string             `gorm:"column:image_ref"`
	ContainerID   *uuid.UUID          `gorm:"column:container_id;type:uuid"`
	ToppingIDs    []uuid.UUID         `gorm:"column:topping_ids;type:jsonb;serializer:json"`
	UnitPriceFils int64               `gorm:"column:unit_price_fils;not null"`
	Quantity      int                 `gorm:"column:quantity;not null"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
