package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/gelatokw/scoops-backend/pkg/enums"
)

// CartUpdatedEvent is the change notification emitted after every cart
// mutation so interested consumers can refresh derived displays.
type CartUpdatedEvent struct {
	CartID       uuid.UUID `json:"cart_id"`
	UserID       uuid.UUID `json:"user_id"`
	LineCount    int       `json:"line_count"`
	ItemCount    int       `json:"item_count"`
	SubtotalFils int64     `json:"subtotal_fils"`
	Mutation     string    `json:"mutation"`
}

// OrderCreatedEvent signals a cart converted into a placed order.
type OrderCreatedEvent struct {
	OrderID         uuid.UUID           `json:"order_id"`
	UserID          uuid.UUID           `json:"user_id"`
	CartID          uuid.UUID           `json:"cart_id"`
	SubtotalFils    int64               `json:"subtotal_fils"`
	ShippingFeeFils int64               `json:"shipping_fee_fils"`
	TotalFils       int64               `json:"total_fils"`
	PaymentMethod   enums.PaymentMethod `json:"payment_method"`
}

// OrderStatusChangedEvent reports a status transition on a placed order.
type OrderStatusChangedEvent struct {
	OrderID    uuid.UUID         `json:"order_id"`
	UserID     uuid.UUID         `json:"user_id"`
	FromStatus enums.OrderStatus `json:"from_status"`
	ToStatus   enums.OrderStatus `json:"to_status"`
	ChangedAt  time.Time         `json:"changed_at"`
}

// RefundRequestedEvent is emitted when a customer asks for a refund on a
// delivered order.
type RefundRequestedEvent struct {
	RefundRequestID uuid.UUID `json:"refund_request_id"`
	OrderID         uuid.UUID `json:"order_id"`
	UserID          uuid.UUID `json:"user_id"`
	Reason          string    `json:"reason"`
}

// RefundReviewedEvent reports an admin decision on a refund request.
type RefundReviewedEvent struct {
	RefundRequestID uuid.UUID          `json:"refund_request_id"`
	OrderID         uuid.UUID          `json:"order_id"`
	Status          enums.RefundStatus `json:"status"`
	ReviewedBy      uuid.UUID          `json:"reviewed_by"`
}
