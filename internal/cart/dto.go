package cart

import (
	"time"

	"github.com/google/uuid"

	"github.com/gelatokw/scoops-backend/pkg/db/models"
	"github.com/gelatokw/scoops-backend/pkg/enums"
	"github.com/gelatokw/scoops-backend/pkg/money"
)

// LineDTO is the transport shape of one cart line.
type LineDTO struct {
	ID            uuid.UUID           `json:"id"`
	LineKey       string              `json:"line_key"`
	BaseItemID    uuid.UUID           `json:"base_item_id"`
	Source        enums.CatalogSource `json:"source"`
	Title         string              `json:"title"`
	ImageRef      *string             `json:"image_ref,omitempty"`
	ContainerID   *uuid.UUID          `json:"container_id,omitempty"`
	ToppingIDs    []uuid.UUID         `json:"topping_ids,omitempty"`
	UnitPrice     string              `json:"unit_price"`
	Quantity      int                 `json:"quantity"`
	LineTotal     string              `json:"line_total"`
	LineTotalFils int64               `json:"line_total_fils"`
}

// CartDTO is the transport shape of the active cart with computed totals.
type CartDTO struct {
	ID           uuid.UUID `json:"id"`
	Lines        []LineDTO `json:"lines"`
	ItemCount    int       `json:"item_count"`
	Subtotal     string    `json:"subtotal"`
	SubtotalFils int64     `json:"subtotal_fils"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AddLineRequest describes an add-to-cart call. Exactly one of FlavorID or
// ProductID must be set; container and toppings apply to flavors only.
type AddLineRequest struct {
	FlavorID    *uuid.UUID  `json:"flavor_id,omitempty"`
	ProductID   *string     `json:"product_id,omitempty"`
	ContainerID *uuid.UUID  `json:"container_id,omitempty"`
	ToppingIDs  []uuid.UUID `json:"topping_ids,omitempty"`
	Quantity    int         `json:"quantity" validate:"required,min=1"`
}

// UpdateQuantityRequest sets the absolute quantity for a line. Values below
// one remove the line.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

func lineToDTO(line models.CartLine) LineDTO {
	total := line.UnitPriceFils * int64(line.Quantity)
	return LineDTO{
		ID:            line.ID,
		LineKey:       line.LineKey,
		BaseItemID:    line.BaseItemID,
		Source:        line.Source,
		Title:         line.Title,
		ImageRef:      line.ImageRef,
		ContainerID:   line.ContainerID,
		ToppingIDs:    line.ToppingIDs,
		UnitPrice:     money.FormatKWD(line.UnitPriceFils),
		Quantity:      line.Quantity,
		LineTotal:     money.FormatKWD(total),
		LineTotalFils: total,
	}
}

func cartToDTO(record *models.CartRecord) CartDTO {
	dto := CartDTO{
		ID:        record.ID,
		Lines:     make([]LineDTO, 0, len(record.Lines)),
		UpdatedAt: record.UpdatedAt,
	}
	for _, line := range record.Lines {
		lineDTO := lineToDTO(line)
		dto.Lines = append(dto.Lines, lineDTO)
		dto.ItemCount += line.Quantity
		dto.SubtotalFils += lineDTO.LineTotalFils
	}
	dto.Subtotal = money.FormatKWD(dto.SubtotalFils)
	return dto
}
