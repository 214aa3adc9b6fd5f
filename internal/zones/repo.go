package zones

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gelatokw/scoops-backend/pkg/db/models"
)

// Repository encapsulates delivery zone persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a zones repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// ListActive returns serviceable zones ordered for display.
func (r *Repository) ListActive(ctx context.Context) ([]models.DeliveryZone, error) {
	var zones []models.DeliveryZone
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("province ASC, city ASC").
		Find(&zones).Error
	if err != nil {
		return nil, err
	}
	return zones, nil
}

// ListAll returns every zone including deactivated ones.
func (r *Repository) ListAll(ctx context.Context) ([]models.DeliveryZone, error) {
	var zones []models.DeliveryZone
	err := r.db.WithContext(ctx).
		Order("province ASC, city ASC").
		Find(&zones).Error
	if err != nil {
		return nil, err
	}
	return zones, nil
}

// FindByID loads one zone.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.DeliveryZone, error) {
	var zone models.DeliveryZone
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&zone).Error
	if err != nil {
		return nil, err
	}
	return &zone, nil
}

// FindActiveByCityProvince matches a zone case-insensitively.
func (r *Repository) FindActiveByCityProvince(ctx context.Context, city, province string) (*models.DeliveryZone, error) {
	var zone models.DeliveryZone
	err := r.db.WithContext(ctx).
		Where("LOWER(city) = ? AND LOWER(province) = ? AND is_active = ?",
			strings.ToLower(strings.TrimSpace(city)),
			strings.ToLower(strings.TrimSpace(province)),
			true).
		First(&zone).Error
	if err != nil {
		return nil, err
	}
	return &zone, nil
}

// Create inserts a new zone.
func (r *Repository) Create(ctx context.Context, zone *models.DeliveryZone) error {
	if zone.ID == uuid.Nil {
		zone.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(zone).Error
}

// Update persists city, province, and active flag changes.
func (r *Repository) Update(ctx context.Context, zone *models.DeliveryZone) error {
	return r.db.WithContext(ctx).
		Model(&models.DeliveryZone{}).
		Where("id = ?", zone.ID).
		Updates(map[string]any{
			"city":      zone.City,
			"province":  zone.Province,
			"is_active": zone.IsActive,
		}).Error
}
