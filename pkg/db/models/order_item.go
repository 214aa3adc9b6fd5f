package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/gelatokw/scoops-backend/pkg/enums"
)

// OrderItem captures the snapshot of one cart line at submission time.
type OrderItem struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID       uuid.UUID           `gorm:"column:order_id;type:uuid;not null"`
	LineKey       string              `gorm:"column:line_key;not null"`
	BaseItemID    uuid.UUID           `gorm:"column:base_item_id;type:uuid;not null"`
	Source        enums.CatalogSource `gorm:"column:source;type:catalog_source;not null"`
	Title         string              `gorm:"column:title;not null"`
	ContainerName *string             `gorm:"column:container_name"`
	ToppingNames  []string            `gorm:"column:topping_names;type:jsonb;serializer:json"`
	UnitPriceFils int64               `gorm:"column:unit_price_fils;not null"`
	Quantity      int                 `gorm:"column:quantity;not null"`
	LineTotalFils int64               `gorm:"column:line_total_fils;not null"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
}
