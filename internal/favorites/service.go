package favorites

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gelatokw/scoops-backend/internal/catalog"
	pkgerrors "github.com/gelatokw/scoops-backend/pkg/errors"
	"github.com/gelatokw/scoops-backend/pkg/money"
	"github.com/gelatokw/scoops-backend/pkg/pagination"
)

// FavoriteDTO is one saved flavor with its current catalog details.
type FavoriteDTO struct {
	FlavorID  uuid.UUID `json:"flavor_id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	BasePrice string    `json:"base_price"`
	ImageRef  *string   `json:"image_ref,omitempty"`
	IsActive  bool      `json:"is_active"`
	SavedAt   time.Time `json:"saved_at"`
}

// ListDTO is one page of favorites.
type ListDTO struct {
	Favorites  []FavoriteDTO `json:"favorites"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// Service exposes favorite flavor management.
type Service interface {
	Add(ctx context.Context, userID, flavorID uuid.UUID) error
	Remove(ctx context.Context, userID, flavorID uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID, params pagination.Params) (ListDTO, error)
}

type service struct {
	repo    *Repository
	catalog *catalog.Repository
}

// NewService builds the favorites service.
func NewService(repo *Repository, catalogRepo *catalog.Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "favorites repo is required")
	}
	if catalogRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog repo is required")
	}
	return &service{repo: repo, catalog: catalogRepo}, nil
}

// Add saves a flavor. Saving twice is a no-op.
func (s *service) Add(ctx context.Context, userID, flavorID uuid.UUID) error {
	if userID == uuid.Nil || flavorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id and flavor id are required")
	}

	if _, err := s.catalog.FindFlavorByID(ctx, flavorID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "flavor not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load flavor")
	}

	if err := s.repo.Add(ctx, userID, flavorID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save favorite")
	}
	return nil
}

// Remove drops a saved flavor.
func (s *service) Remove(ctx context.Context, userID, flavorID uuid.UUID) error {
	if userID == uuid.Nil || flavorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id and flavor id are required")
	}
	removed, err := s.repo.Remove(ctx, userID, flavorID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove favorite")
	}
	if !removed {
		return pkgerrors.New(pkgerrors.CodeNotFound, "favorite not found")
	}
	return nil
}

// List returns one page of favorites, newest first.
func (s *service) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (ListDTO, error) {
	if userID == uuid.Nil {
		return ListDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	records, nextCursor, err := s.repo.List(ctx, userID, params)
	if err != nil {
		return ListDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list favorites")
	}

	dto := ListDTO{
		Favorites:  make([]FavoriteDTO, 0, len(records)),
		NextCursor: nextCursor,
	}
	for _, record := range records {
		dto.Favorites = append(dto.Favorites, FavoriteDTO{
			FlavorID:  record.FlavorID,
			Name:      record.Name,
			Slug:      record.Slug,
			BasePrice: money.FormatKWD(record.BasePriceFils),
			ImageRef:  record.ImageRef,
			IsActive:  record.IsActive,
			SavedAt:   record.FavoriteCreatedAt,
		})
	}
	return dto, nil
}
