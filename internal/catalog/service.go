package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gelatokw/scoops-backend/pkg/commerce"
	"github.com/gelatokw/scoops-backend/pkg/enums"
	pkgerrors "github.com/gelatokw/scoops-backend/pkg/errors"
	"github.com/gelatokw/scoops-backend/pkg/logger"
	"github.com/gelatokw/scoops-backend/pkg/money"
)

// CommerceCatalog is the slice of the commerce client the catalog needs.
type CommerceCatalog interface {
	ListProducts(ctx context.Context) ([]commerce.Product, error)
	GetProduct(ctx context.Context, productID string) (*commerce.Product, error)
}

// Service exposes the storefront catalog: house flavors plus products synced
// from the commerce platform.
type Service interface {
	ListFlavors(ctx context.Context) ([]FlavorDTO, error)
	GetFlavor(ctx context.Context, idOrSlug string) (*FlavorDTO, error)
	ListContainers(ctx context.Context) ([]OptionDTO, error)
	ListToppings(ctx context.Context) ([]OptionDTO, error)
	ListItems(ctx context.Context) ([]ItemDTO, error)
}

// ServiceParams groups dependencies for the catalog service.
type ServiceParams struct {
	Repo     *Repository
	Commerce CommerceCatalog
	Logger   *logger.Logger
}

type service struct {
	repo     *Repository
	commerce CommerceCatalog
	logg     *logger.Logger
}

// NewService builds a catalog service. The commerce client is optional; when
// absent, listings contain house flavors only.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog repo is required")
	}
	return &service{
		repo:     params.Repo,
		commerce: params.Commerce,
		logg:     params.Logger,
	}, nil
}

func (s *service) ListFlavors(ctx context.Context) ([]FlavorDTO, error) {
	flavors, err := s.repo.ListFlavors(ctx, true)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list flavors")
	}
	out := make([]FlavorDTO, 0, len(flavors))
	for _, f := range flavors {
		out = append(out, flavorToDTO(f))
	}
	return out, nil
}

func (s *service) GetFlavor(ctx context.Context, idOrSlug string) (*FlavorDTO, error) {
	key := strings.TrimSpace(idOrSlug)
	if key == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "flavor id or slug is required")
	}

	var err error
	if id, parseErr := uuid.Parse(key); parseErr == nil {
		model, findErr := s.repo.FindFlavorByID(ctx, id)
		if findErr == nil {
			dto := flavorToDTO(*model)
			return &dto, nil
		}
		err = findErr
	} else {
		model, findErr := s.repo.FindFlavorBySlug(ctx, key)
		if findErr == nil {
			dto := flavorToDTO(*model)
			return &dto, nil
		}
		err = findErr
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "flavor not found")
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load flavor")
}

func (s *service) ListContainers(ctx context.Context) ([]OptionDTO, error) {
	containers, err := s.repo.ListContainers(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list containers")
	}
	out := make([]OptionDTO, 0, len(containers))
	for _, c := range containers {
		out = append(out, containerToDTO(c))
	}
	return out, nil
}

func (s *service) ListToppings(ctx context.Context) ([]OptionDTO, error) {
	toppings, err := s.repo.ListToppings(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list toppings")
	}
	out := make([]OptionDTO, 0, len(toppings))
	for _, tp := range toppings {
		out = append(out, toppingToDTO(tp))
	}
	return out, nil
}

// ListItems merges flavors with commerce products. A commerce outage degrades
// the listing instead of failing it.
func (s *service) ListItems(ctx context.Context) ([]ItemDTO, error) {
	flavors, err := s.repo.ListFlavors(ctx, true)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list flavors")
	}

	items := make([]ItemDTO, 0, len(flavors))
	for _, f := range flavors {
		items = append(items, flavorToItem(f))
	}

	if s.commerce == nil {
		return items, nil
	}

	products, err := s.commerce.ListProducts(ctx)
	if err != nil {
		if s.logg != nil {
			s.logg.Warn(ctx, "commerce catalog unavailable, listing flavors only")
		}
		return items, nil
	}
	for _, p := range products {
		items = append(items, productToItem(p))
	}
	return items, nil
}

func productToItem(p commerce.Product) ItemDTO {
	var description *string
	if p.Description != "" {
		d := p.Description
		description = &d
	}
	var imageRef *string
	if p.ImageRef != "" {
		ref := p.ImageRef
		imageRef = &ref
	}
	return ItemDTO{
		ID:          p.ID,
		Source:      enums.CatalogSourceProduct,
		Title:       p.Title,
		Description: description,
		Price:       money.FormatKWD(p.PriceFils),
		ImageRef:    imageRef,
		Available:   p.Available,
	}
}
