package zones

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/gelatokw/scoops-backend/pkg/db"
	"github.com/gelatokw/scoops-backend/pkg/db/models"
	pkgerrors "github.com/gelatokw/scoops-backend/pkg/errors"
)

// ZoneDTO is the transport shape of a delivery zone.
type ZoneDTO struct {
	ID        uuid.UUID `json:"id"`
	City      string    `json:"city"`
	Province  string    `json:"province"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// UpsertZoneRequest creates or updates a zone.
type UpsertZoneRequest struct {
	City     string `json:"city" validate:"required,min=2,max=100"`
	Province string `json:"province" validate:"required,min=2,max=100"`
	IsActive *bool  `json:"is_active,omitempty"`
}

// Service exposes delivery zone lookups plus the admin CRUD surface.
type Service interface {
	ListActive(ctx context.Context) ([]ZoneDTO, error)
	ListAll(ctx context.Context) ([]ZoneDTO, error)
	Serviceable(ctx context.Context, city, province string) (bool, error)
	Create(ctx context.Context, req UpsertZoneRequest) (ZoneDTO, error)
	Update(ctx context.Context, id uuid.UUID, req UpsertZoneRequest) (ZoneDTO, error)
}

type service struct {
	repo *Repository
}

// NewService builds the zones service.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "zones repo is required")
	}
	return &service{repo: repo}, nil
}

// ListActive returns serviceable zones for checkout pickers.
func (s *service) ListActive(ctx context.Context) ([]ZoneDTO, error) {
	records, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list delivery zones")
	}
	return toDTOs(records), nil
}

// ListAll returns every zone for the admin surface.
func (s *service) ListAll(ctx context.Context) ([]ZoneDTO, error) {
	records, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list delivery zones")
	}
	return toDTOs(records), nil
}

// Serviceable reports whether the city/province pair has an active zone.
func (s *service) Serviceable(ctx context.Context, city, province string) (bool, error) {
	if strings.TrimSpace(city) == "" || strings.TrimSpace(province) == "" {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "city and province are required")
	}
	_, err := s.repo.FindActiveByCityProvince(ctx, city, province)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup delivery zone")
	}
	return true, nil
}

// Create adds a new zone, active by default.
func (s *service) Create(ctx context.Context, req UpsertZoneRequest) (ZoneDTO, error) {
	zone := models.DeliveryZone{
		City:     strings.TrimSpace(req.City),
		Province: strings.TrimSpace(req.Province),
		IsActive: true,
	}
	if req.IsActive != nil {
		zone.IsActive = *req.IsActive
	}
	if zone.City == "" || zone.Province == "" {
		return ZoneDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "city and province are required")
	}

	if err := s.repo.Create(ctx, &zone); err != nil {
		if dbpkg.IsUniqueViolation(err, "idx_delivery_zones_city_province") {
			return ZoneDTO{}, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "delivery zone already exists")
		}
		return ZoneDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create delivery zone")
	}
	return toDTO(zone), nil
}

// Update edits a zone's name or active flag.
func (s *service) Update(ctx context.Context, id uuid.UUID, req UpsertZoneRequest) (ZoneDTO, error) {
	zone, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ZoneDTO{}, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "delivery zone not found")
		}
		return ZoneDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery zone")
	}

	if city := strings.TrimSpace(req.City); city != "" {
		zone.City = city
	}
	if province := strings.TrimSpace(req.Province); province != "" {
		zone.Province = province
	}
	if req.IsActive != nil {
		zone.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, zone); err != nil {
		if dbpkg.IsUniqueViolation(err, "idx_delivery_zones_city_province") {
			return ZoneDTO{}, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "delivery zone already exists")
		}
		return ZoneDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update delivery zone")
	}
	return toDTO(*zone), nil
}

func toDTO(zone models.DeliveryZone) ZoneDTO {
	return ZoneDTO{
		ID:        zone.ID,
		City:      zone.City,
		Province:  zone.Province,
		IsActive:  zone.IsActive,
		CreatedAt: zone.CreatedAt,
	}
}

func toDTOs(records []models.DeliveryZone) []ZoneDTO {
	dtos := make([]ZoneDTO, 0, len(records))
	for _, record := range records {
		dtos = append(dtos, toDTO(record))
	}
	return dtos
}
