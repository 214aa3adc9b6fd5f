package models

import (
	"time"

	"github.com/google/uuid"
)

// Address is a saved delivery address. At most one per user carries
// is_default = true.
type Address struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null"`
	FirstName string    `gorm:"column:first_name;not null"`
	LastName  string    `gorm:"column:last_name;not null"`
	Address1  string    `gorm:"column:address1;not null"`
	Address2  *string   `gorm:"column:address2"`
	City      string    `gorm:"column:city;not null"`
	Province  string    `gorm:"column:province;not null"`
	Country   string    `gorm:"column:country;not null;default:'KW'"`
	Zip       string    `gorm:"column:zip;not null"`
	Phone     string    `gorm:"column:phone;not null"`
	IsDefault bool      `gorm:"column:is_default;not null;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
