package models

import (
	"time"

	"github.com/google/uuid"
)

// FavoriteItem marks a flavor saved by a customer.
type FavoriteItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_favorites_user_flavor,priority:1"`
	FlavorID  uuid.UUID `gorm:"column:flavor_id;type:uuid;not null;uniqueIndex:idx_favorites_user_flavor,priority:2"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
