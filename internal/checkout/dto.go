package checkout

import (
	"github.com/google/uuid"

	"github.com/gelatokw/scoops-backend/pkg/enums"
	"github.com/gelatokw/scoops-backend/pkg/types"
)

// AddressRequest carries the delivery address for zone validation.
type AddressRequest struct {
	FirstName string  `json:"first_name" validate:"required,min=1,max=100"`
	LastName  string  `json:"last_name" validate:"required,min=1,max=100"`
	Address1  string  `json:"address1" validate:"required,min=3,max=200"`
	Address2  *string `json:"address2,omitempty" validate:"omitempty,max=200"`
	City      string  `json:"city" validate:"required,min=2,max=100"`
	Province  string  `json:"province" validate:"required,min=2,max=100"`
	Zip       string  `json:"zip" validate:"required,min=2,max=20"`
	Phone     string  `json:"phone" validate:"required,min=8,max=20"`
}

func (r AddressRequest) toAddress() types.Address {
	return types.Address{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Address1:  r.Address1,
		Address2:  r.Address2,
		City:      r.City,
		Province:  r.Province,
		Country:   "KW",
		Zip:       r.Zip,
		Phone:     r.Phone,
	}
}

// DeliveryRequest selects the delivery window and payment method.
type DeliveryRequest struct {
	DeliveryDate        string  `json:"delivery_date" validate:"required"`
	DeliverySlot        string  `json:"delivery_slot" validate:"required"`
	PaymentMethod       string  `json:"payment_method" validate:"required"`
	PaymentSourceID     string  `json:"payment_source_id,omitempty"`
	SpecialInstructions *string `json:"special_instructions,omitempty" validate:"omitempty,max=500"`
}

// StateDTO is the transport shape of the checkout machine.
type StateDTO struct {
	Stage               Stage               `json:"stage"`
	Address             *types.Address      `json:"address,omitempty"`
	DeliveryDate        string              `json:"delivery_date,omitempty"`
	DeliverySlot        string              `json:"delivery_slot,omitempty"`
	PaymentMethod       enums.PaymentMethod `json:"payment_method,omitempty"`
	SpecialInstructions *string             `json:"special_instructions,omitempty"`
	FailureReason       string              `json:"failure_reason,omitempty"`
	OrderID             *uuid.UUID          `json:"order_id,omitempty"`
}

// SubmitResponse reports the order produced by a completed checkout.
type SubmitResponse struct {
	OrderID     uuid.UUID `json:"order_id"`
	Subtotal    string    `json:"subtotal"`
	ShippingFee string    `json:"shipping_fee"`
	Total       string    `json:"total"`
	TotalFils   int64     `json:"total_fils"`
}

func stateToDTO(state *State) StateDTO {
	return StateDTO{
		Stage:               state.Stage,
		Address:             state.Address,
		DeliveryDate:        state.DeliveryDate,
		DeliverySlot:        state.DeliverySlot,
		PaymentMethod:       state.PaymentMethod,
		SpecialInstructions: state.SpecialInstructions,
		FailureReason:       state.FailureReason,
		OrderID:             state.OrderID,
	}
}
