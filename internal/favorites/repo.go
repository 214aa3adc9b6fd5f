package favorites

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gelatokw/scoops-backend/pkg/db/models"
	"github.com/gelatokw/scoops-backend/pkg/pagination"
)

// Repository encapsulates favorite flavor persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a favorites repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Add inserts a favorite and ignores duplicates.
func (r *Repository) Add(ctx context.Context, userID, flavorID uuid.UUID) error {
	if userID == uuid.Nil || flavorID == uuid.Nil {
		return gorm.ErrInvalidValue
	}
	return r.db.WithContext(ctx).
		Exec(`INSERT INTO favorite_items (id, user_id, flavor_id, created_at) VALUES (?, ?, ?, ?) ON CONFLICT (user_id, flavor_id) DO NOTHING`,
			uuid.New(), userID, flavorID, time.Now()).
		Error
}

// Remove deletes the favorite if it exists. It reports whether a row went.
func (r *Repository) Remove(ctx context.Context, userID, flavorID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND flavor_id = ?", userID, flavorID).
		Delete(&models.FavoriteItem{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

type favoriteFlavorRecord struct {
	FavoriteID        uuid.UUID `gorm:"column:favorite_id"`
	FavoriteCreatedAt time.Time `gorm:"column:favorite_created_at"`
	FlavorID          uuid.UUID `gorm:"column:flavor_id"`
	Name              string    `gorm:"column:name"`
	Slug              string    `gorm:"column:slug"`
	BasePriceFils     int64     `gorm:"column:base_price_fils"`
	ImageRef          *string   `gorm:"column:image_ref"`
	IsActive          bool      `gorm:"column:is_active"`
}

// List returns one page of the user's favorites joined with flavor details,
// newest favorite first.
func (r *Repository) List(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]favoriteFlavorRecord, string, error) {
	normalizedLimit := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(strings.TrimSpace(params.Cursor))
	if err != nil {
		return nil, "", err
	}

	query := r.db.WithContext(ctx).
		Table("favorite_items fi").
		Select(strings.Join([]string{
			"fi.id AS favorite_id",
			"fi.created_at AS favorite_created_at",
			"f.id AS flavor_id",
			"f.name",
			"f.slug",
			"f.base_price_fils",
			"f.image_ref",
			"f.is_active",
		}, ", ")).
		Joins("JOIN flavors f ON f.id = fi.flavor_id").
		Where("fi.user_id = ?", userID)

	if cursor != nil {
		query = query.Where("(fi.created_at < ?) OR (fi.created_at = ? AND fi.id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var records []favoriteFlavorRecord
	err = query.
		Order("fi.created_at DESC").
		Order("fi.id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Scan(&records).Error
	if err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(records) > normalizedLimit {
		records = records[:normalizedLimit]
		last := records[len(records)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.FavoriteCreatedAt,
			ID:        last.FavoriteID,
		})
	}
	return records, nextCursor, nil
}
