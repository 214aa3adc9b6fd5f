package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gelatokw/scoops-backend/pkg/db/models"
	"github.com/gelatokw/scoops-backend/pkg/enums"
)

// Repository encapsulates cart persistence. One active cart exists per user,
// enforced by a partial unique index on (user_id) WHERE status = 'active'.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindActiveByUserID loads the user's active cart with its lines.
func (r *Repository) FindActiveByUserID(ctx context.Context, userID uuid.UUID) (*models.CartRecord, error) {
	var record models.CartRecord
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("user_id = ? AND status = ?", userID, enums.CartStatusActive).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// EnsureActive returns the user's active cart, creating one when absent.
func (r *Repository) EnsureActive(ctx context.Context, userID uuid.UUID) (*models.CartRecord, error) {
	record, err := r.FindActiveByUserID(ctx, userID)
	if err == nil {
		return record, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	fresh := models.CartRecord{
		ID:     uuid.New(),
		UserID: userID,
		Status: enums.CartStatusActive,
	}
	if err := r.db.WithContext(ctx).Create(&fresh).Error; err != nil {
		return nil, err
	}
	fresh.Lines = []models.CartLine{}
	return &fresh, nil
}

// FindLineByKey loads one line from a cart by its customization key.
func (r *Repository) FindLineByKey(ctx context.Context, cartID uuid.UUID, lineKey string) (*models.CartLine, error) {
	var line models.CartLine
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND line_key = ?", cartID, lineKey).
		First(&line).Error
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// CreateLine inserts a new cart line.
func (r *Repository) CreateLine(ctx context.Context, line *models.CartLine) error {
	if line.ID == uuid.Nil {
		line.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(line).Error
}

// UpdateLineQuantity sets a line's absolute quantity.
func (r *Repository) UpdateLineQuantity(ctx context.Context, lineID uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&models.CartLine{}).
		Where("id = ?", lineID).
		Update("quantity", quantity).Error
}

// DeleteLine removes one line.
func (r *Repository) DeleteLine(ctx context.Context, lineID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", lineID).
		Delete(&models.CartLine{}).Error
}

// DeleteLines removes every line in a cart.
func (r *Repository) DeleteLines(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&models.CartLine{}).Error
}

// MarkConverted flips the cart out of active status after checkout.
func (r *Repository) MarkConverted(ctx context.Context, cartID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.CartRecord{}).
		Where("id = ? AND status = ?", cartID, enums.CartStatusActive).
		Updates(map[string]any{
			"status":       enums.CartStatusConverted,
			"converted_at": at,
		}).Error
}

// Touch bumps the cart's updated_at so list views sort correctly.
func (r *Repository) Touch(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.CartRecord{}).
		Where("id = ?", cartID).
		Update("updated_at", time.Now()).Error
}
