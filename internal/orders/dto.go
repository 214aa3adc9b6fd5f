package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/gelatokw/scoops-backend/pkg/db/models"
	"github.com/gelatokw/scoops-backend/pkg/enums"
	"github.com/gelatokw/scoops-backend/pkg/money"
	"github.com/gelatokw/scoops-backend/pkg/types"
)

// ItemDTO is the immutable snapshot of one order line.
type ItemDTO struct {
	ID            uuid.UUID           `json:"id"`
	Title         string              `json:"title"`
	Source        enums.CatalogSource `json:"source"`
	ContainerName *string             `json:"container_name,omitempty"`
	ToppingNames  []string            `json:"topping_names,omitempty"`
	UnitPrice     string              `json:"unit_price"`
	Quantity      int                 `json:"quantity"`
	LineTotal     string              `json:"line_total"`
}

// OrderDTO is the transport shape of a placed order.
type OrderDTO struct {
	ID                  uuid.UUID           `json:"id"`
	Status              enums.OrderStatus   `json:"status"`
	Items               []ItemDTO           `json:"items"`
	Subtotal            string              `json:"subtotal"`
	ShippingFee         string              `json:"shipping_fee"`
	Total               string              `json:"total"`
	TotalFils           int64               `json:"total_fils"`
	DeliveryAddress     types.Address       `json:"delivery_address"`
	DeliveryDate        string              `json:"delivery_date"`
	DeliverySlot        string              `json:"delivery_slot"`
	SpecialInstructions *string             `json:"special_instructions,omitempty"`
	PaymentMethod       enums.PaymentMethod `json:"payment_method"`
	CreatedAt           time.Time           `json:"created_at"`
}

// ListDTO is one page of orders with the cursor for the next page.
type ListDTO struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// RefundDTO is the transport shape of a refund request.
type RefundDTO struct {
	ID         uuid.UUID          `json:"id"`
	OrderID    uuid.UUID          `json:"order_id"`
	Reason     string             `json:"reason"`
	Status     enums.RefundStatus `json:"status"`
	ReviewedBy *uuid.UUID         `json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time         `json:"reviewed_at,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
}

// RefundListDTO is one page of refund requests.
type RefundListDTO struct {
	Refunds    []RefundDTO `json:"refunds"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

// RequestRefundRequest carries the customer's reason for a refund.
type RequestRefundRequest struct {
	Reason string `json:"reason" validate:"required,min=5,max=500"`
}

// SetStatusRequest is the admin transition input.
type SetStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// ReviewRefundRequest is the admin refund decision input.
type ReviewRefundRequest struct {
	Approve bool `json:"approve"`
}

func itemToDTO(item models.OrderItem) ItemDTO {
	return ItemDTO{
		ID:            item.ID,
		Title:         item.Title,
		Source:        item.Source,
		ContainerName: item.ContainerName,
		ToppingNames:  item.ToppingNames,
		UnitPrice:     money.FormatKWD(item.UnitPriceFils),
		Quantity:      item.Quantity,
		LineTotal:     money.FormatKWD(item.LineTotalFils),
	}
}

func orderToDTO(order *models.Order) OrderDTO {
	dto := OrderDTO{
		ID:                  order.ID,
		Status:              order.Status,
		Items:               make([]ItemDTO, 0, len(order.Items)),
		Subtotal:            money.FormatKWD(order.SubtotalFils),
		ShippingFee:         money.FormatKWD(order.ShippingFeeFils),
		Total:               money.FormatKWD(order.TotalFils),
		TotalFils:           order.TotalFils,
		DeliveryAddress:     order.DeliveryAddress,
		DeliveryDate:        order.DeliveryDate,
		DeliverySlot:        order.DeliverySlot,
		SpecialInstructions: order.SpecialInstructions,
		PaymentMethod:       order.PaymentMethod,
		CreatedAt:           order.CreatedAt,
	}
	for _, item := range order.Items {
		dto.Items = append(dto.Items, itemToDTO(item))
	}
	return dto
}

func refundToDTO(refund *models.RefundRequest) RefundDTO {
	return RefundDTO{
		ID:         refund.ID,
		OrderID:    refund.OrderID,
		Reason:     refund.Reason,
		Status:     refund.Status,
		ReviewedBy: refund.ReviewedBy,
		ReviewedAt: refund.ReviewedAt,
		CreatedAt:  refund.CreatedAt,
	}
}
