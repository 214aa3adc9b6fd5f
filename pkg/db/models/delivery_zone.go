package models

import (
	"time"

	"github.com/google/uuid"
)

// DeliveryZone is a serviceable city/province pair.
type DeliveryZone struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	City      string    `gorm:"column:city;not null;uniqueIndex:idx_delivery_zones_city_province,priority:1"`
	Province  string    `gorm:"column:province;not null;uniqueIndex:idx_delivery_zones_city_province,priority:2"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
