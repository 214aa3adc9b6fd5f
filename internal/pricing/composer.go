package pricing

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gelatokw/scoops-backend/internal/catalog"
	"github.com/gelatokw/scoops-backend/pkg/commerce"
	"github.com/gelatokw/scoops-backend/pkg/config"
	"github.com/gelatokw/scoops-backend/pkg/db/models"
	"github.com/gelatokw/scoops-backend/pkg/enums"
	pkgerrors "github.com/gelatokw/scoops-backend/pkg/errors"
)

// ComposeInput describes one customization to price.
type ComposeInput struct {
	FlavorID    uuid.UUID
	ContainerID *uuid.UUID
	ToppingIDs  []uuid.UUID
}

// ComposedLine is a fully priced customization ready for the cart. The unit
// price is the sum of base, container, and topping prices at compose time.
type ComposedLine struct {
	LineKey       string
	BaseItemID    uuid.UUID
	Source        enums.CatalogSource
	Title         string
	ImageRef      *string
	ContainerID   *uuid.UUID
	ContainerName *string
	ToppingIDs    []uuid.UUID
	ToppingNames  []string
	UnitPriceFils int64
}

// CommerceProducts is the slice of the commerce client the composer needs.
type CommerceProducts interface {
	GetProduct(ctx context.Context, productID string) (*commerce.Product, error)
}

// Composer prices customizations against the catalog reference data.
type Composer struct {
	catalog  *catalog.Repository
	commerce CommerceProducts
	cfg      config.PricingConfig
}

// ComposerParams groups dependencies for the composer.
type ComposerParams struct {
	Catalog  *catalog.Repository
	Commerce CommerceProducts
	Pricing  config.PricingConfig
}

// NewComposer builds a pricing composer. The commerce client is optional.
func NewComposer(params ComposerParams) (*Composer, error) {
	if params.Catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog repo is required")
	}
	if params.Pricing.MaxToppings <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "max toppings must be positive")
	}
	return &Composer{
		catalog:  params.Catalog,
		commerce: params.Commerce,
		cfg:      params.Pricing,
	}, nil
}

// ComposeFlavorLine prices a flavor customization. Toppings past the
// configured cap are dropped silently; duplicates collapse to one.
func (c *Composer) ComposeFlavorLine(ctx context.Context, input ComposeInput) (*ComposedLine, error) {
	if input.FlavorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "flavor id is required")
	}

	flavor, err := c.catalog.FindFlavorByID(ctx, input.FlavorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "flavor not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load flavor")
	}
	if !flavor.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "flavor is not available")
	}

	unitPrice := flavor.BasePriceFils
	line := &ComposedLine{
		BaseItemID: flavor.ID,
		Source:     enums.CatalogSourceFlavor,
		Title:      flavor.Name,
		ImageRef:   flavor.ImageRef,
	}

	if input.ContainerID != nil {
		container, err := c.catalog.FindContainerByID(ctx, *input.ContainerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "container not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load container")
		}
		unitPrice += container.PriceFils
		id := container.ID
		name := container.Name
		line.ContainerID = &id
		line.ContainerName = &name
	}

	toppingIDs := c.capToppings(dedupeUUIDs(input.ToppingIDs))
	if len(toppingIDs) > 0 {
		toppings, err := c.catalog.FindToppingsByIDs(ctx, toppingIDs)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load toppings")
		}
		if len(toppings) != len(toppingIDs) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "one or more toppings not found")
		}
		byID := make(map[uuid.UUID]models.ToppingOption, len(toppings))
		for _, tp := range toppings {
			byID[tp.ID] = tp
		}
		for _, id := range toppingIDs {
			tp := byID[id]
			unitPrice += tp.PriceFils
			line.ToppingNames = append(line.ToppingNames, tp.Name)
		}
		line.ToppingIDs = toppingIDs
	}

	line.UnitPriceFils = unitPrice
	line.LineKey = LineKey(line.BaseItemID, line.ContainerID, line.ToppingIDs)
	return line, nil
}

// ComposeProductLine prices a commerce-synced product. Products take no
// customization, so the line key covers the bare product id.
func (c *Composer) ComposeProductLine(ctx context.Context, productID string) (*ComposedLine, error) {
	if c.commerce == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "commerce catalog unavailable")
	}
	trimmed := strings.TrimSpace(productID)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	product, err := c.commerce.GetProduct(ctx, trimmed)
	if err != nil {
		return nil, err
	}
	if !product.Available {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "product is not available")
	}

	baseID, err := uuid.Parse(product.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "product id is not a uuid")
	}

	var imageRef *string
	if product.ImageRef != "" {
		ref := product.ImageRef
		imageRef = &ref
	}

	return &ComposedLine{
		LineKey:       LineKey(baseID, nil, nil),
		BaseItemID:    baseID,
		Source:        enums.CatalogSourceProduct,
		Title:         product.Title,
		ImageRef:      imageRef,
		UnitPriceFils: product.PriceFils,
	}, nil
}

// ShippingFeeFils returns the flat delivery fee for a given subtotal. Orders
// at or above the free-shipping threshold ship free.
func (c *Composer) ShippingFeeFils(subtotalFils int64) int64 {
	if subtotalFils >= c.cfg.FreeShippingThresholdFils {
		return 0
	}
	return c.cfg.FlatShippingFeeFils
}

func (c *Composer) capToppings(ids []uuid.UUID) []uuid.UUID {
	if len(ids) <= c.cfg.MaxToppings {
		return ids
	}
	return ids[:c.cfg.MaxToppings]
}

func dedupeUUIDs(ids []uuid.UUID) []uuid.UUID {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
