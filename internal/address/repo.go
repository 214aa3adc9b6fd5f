package address

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gelatokw/scoops-backend/pkg/db/models"
)

// Repository encapsulates saved address persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds an address repository bound to the provided DB.
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

// ListByUser returns the user's saved addresses, default first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Address, error) {
	var records []models.Address
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_default DESC, created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// FindByIDForUser loads one saved address scoped to its owner.
func (r *Repository) FindByIDForUser(ctx context.Context, id, userID uuid.UUID) (*models.Address, error) {
	var record models.Address
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Create inserts a saved address.
func (r *Repository) Create(ctx context.Context, record *models.Address) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(record).Error
}

// Update persists field changes on a saved address.
func (r *Repository) Update(ctx context.Context, record *models.Address) error {
	return r.db.WithContext(ctx).
		Model(&models.Address{}).
		Where("id = ? AND user_id = ?", record.ID, record.UserID).
		Updates(map[string]any{
			"first_name": record.FirstName,
			"last_name":  record.LastName,
			"address1":   record.Address1,
			"address2":   record.Address2,
			"city":       record.City,
			"province":   record.Province,
			"country":    record.Country,
			"zip":        record.Zip,
			"phone":      record.Phone,
			"is_default": record.IsDefault,
		}).Error
}

// Delete removes one saved address scoped to its owner.
func (r *Repository) Delete(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.Address{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ClearDefault drops the default flag from every address the user owns.
func (r *Repository) ClearDefault(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Address{}).
		Where("user_id = ? AND is_default = ?", userID, true).
		Update("is_default", false).Error
}

// SetDefault marks one address as the default. ClearDefault must run first
// in the same transaction to keep the partial unique index satisfied.
func (r *Repository) SetDefault(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Address{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_default", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
