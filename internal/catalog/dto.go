package catalog

import (
	"time"

	"github.com/google/uuid"

	"github.com/gelatokw/scoops-backend/pkg/db/models"
	"github.com/gelatokw/scoops-backend/pkg/enums"
	"github.com/gelatokw/scoops-backend/pkg/money"
)

// FlavorDTO is the transport projection of a house flavor.
type FlavorDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description *string   `json:"description,omitempty"`
	BasePrice   string    `json:"base_price"`
	ImageRef    *string   `json:"image_ref,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// OptionDTO covers both container and topping reference rows.
type OptionDTO struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Slug     string    `json:"slug"`
	Price    string    `json:"price"`
	Category string    `json:"category"`
}

// ItemDTO is the unified catalog entry: house flavors and commerce-synced
// products share one listing shape, discriminated by source.
type ItemDTO struct {
	ID          string              `json:"id"`
	Source      enums.CatalogSource `json:"source"`
	Title       string              `json:"title"`
	Description *string             `json:"description,omitempty"`
	Price       string              `json:"price"`
	ImageRef    *string             `json:"image_ref,omitempty"`
	Available   bool                `json:"available"`
}

func flavorToDTO(f models.Flavor) FlavorDTO {
	return FlavorDTO{
		ID:          f.ID,
		Name:        f.Name,
		Slug:        f.Slug,
		Description: f.Description,
		BasePrice:   money.FormatKWD(f.BasePriceFils),
		ImageRef:    f.ImageRef,
		IsActive:    f.IsActive,
		CreatedAt:   f.CreatedAt,
	}
}

func containerToDTO(c models.ContainerOption) OptionDTO {
	return OptionDTO{
		ID:       c.ID,
		Name:     c.Name,
		Slug:     c.Slug,
		Price:    money.FormatKWD(c.PriceFils),
		Category: c.Category,
	}
}

func toppingToDTO(tp models.ToppingOption) OptionDTO {
	return OptionDTO{
		ID:       tp.ID,
		Name:     tp.Name,
		Slug:     tp.Slug,
		Price:    money.FormatKWD(tp.PriceFils),
		Category: tp.Category,
	}
}

func flavorToItem(f models.Flavor) ItemDTO {
	return ItemDTO{
		ID:          f.ID.String(),
		Source:      enums.CatalogSourceFlavor,
		Title:       f.Name,
		Description: f.Description,
		Price:       money.FormatKWD(f.BasePriceFils),
		ImageRef:    f.ImageRef,
		Available:   f.IsActive,
	}
}
