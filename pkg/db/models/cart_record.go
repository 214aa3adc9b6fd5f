package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/gelatokw/scoops-backend/pkg/enums"
)

// CartRecord is a customer's cart. One active cart exists per user; converted
// carts are kept for audit.
type CartRecord struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID        `gorm:"column:user_id;type:uuid;not null"`
	Status      enums.CartStatus `gorm:"column:status;type:cart_status;not null;default:'active'"`
	ConvertedAt *time.Time       `gorm:"column:converted_at"`
	Lines       []CartLine       `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
