package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/gelatokw/scoops-backend/pkg/enums"
	"github.com/gelatokw/scoops-backend/pkg/types"
)

// Order is a submitted, immutable-priced customer order. Totals are frozen at
// submission; only the status moves afterwards.
type Order struct {
	ID                  uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID              uuid.UUID           `gorm:"column:user_id;type:uuid;not null"`
	Status              enums.OrderStatus   `gorm:"column:status;type:order_status;not null;default:'pending'"`
	SubtotalFils        int64               `gorm:"column:subtotal_fils;not null"`
	ShippingFeeFils     int64               `gorm:"column:shipping_fee_fils;not null"`
	TotalFils           int64               `gorm:"column:total_fils;not null"`
	DeliveryAddress     types.Address       `gorm:"column:delivery_address;type:address_t;not null"`
	DeliveryDate        string              `gorm:"column:delivery_date;not null"`
	DeliverySlot        string              `gorm:"column:delivery_slot;not null"`
	SpecialInstructions *string             `gorm:"column:special_instructions"`
	PaymentMethod       enums.PaymentMethod `gorm:"column:payment_method;type:payment_method;not null"`
	PaymentRef          *string             `gorm:"column:payment_ref"`
	Items               []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt           time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
