package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/gelatokw/scoops-backend/pkg/enums"
)

// RefundRequest is an append-only review record attached to a delivered order.
type RefundRequest struct {
	ID         uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID    uuid.UUID          `gorm:"column:order_id;type:uuid;not null"`
	UserID     uuid.UUID          `gorm:"column:user_id;type:uuid;not null"`
	Reason     string             `gorm:"column:reason;not null"`
	Status     enums.RefundStatus `gorm:"column:status;type:refund_status;not null;default:'pending'"`
	ReviewedBy *uuid.UUID         `gorm:"column:reviewed_by;type:uuid"`
	ReviewedAt *time.Time         `gorm:"column:reviewed_at"`
	CreatedAt  time.Time          `gorm:"column:created_at;autoCreateTime"`
}
