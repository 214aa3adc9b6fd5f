package address

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gelatokw/scoops-backend/pkg/db/models"
	pkgerrors "github.com/gelatokw/scoops-backend/pkg/errors"
)

func setupAddressTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`CREATE TABLE IF NOT EXISTS addresses (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  address1 TEXT NOT NULL,
  address2 TEXT,
  city TEXT NOT NULL,
  province TEXT NOT NULL,
  country TEXT NOT NULL DEFAULT 'KW',
  zip TEXT NOT NULL,
  phone TEXT NOT NULL,
  is_default INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`).Error)
	return db
}

type addressTxRunner struct {
	db *gorm.DB
}

func (r *addressTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newAddressService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db), &addressTxRunner{db: db})
	require.NoError(t, err)
	return svc
}

func addressRequest(city string, isDefault bool) UpsertAddressRequest {
	return UpsertAddressRequest{
		FirstName: "Noura",
		LastName:  "AlSabah",
		Address1:  "Block 4, Street 12",
		City:      city,
		Province:  "Hawalli",
		Zip:       "22001",
		Phone:     "+96550001234",
		IsDefault: isDefault,
	}
}

func countDefaults(t *testing.T, db *gorm.DB, userID uuid.UUID) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.Address{}).
		Where("user_id = ? AND is_default = ?", userID, true).
		Count(&count).Error)
	return count
}

func TestCreateAddressDefaultsToKuwait(t *testing.T) {
	db := setupAddressTestDB(t)
	svc := newAddressService(t, db)
	userID := uuid.New()

	dto, err := svc.Create(context.Background(), userID, addressRequest("Salmiya", false))
	require.NoError(t, err)
	assert.Equal(t, "KW", dto.Country)
	assert.False(t, dto.IsDefault)
}

func TestCreateDefaultDemotesPrevious(t *testing.T) {
	db := setupAddressTestDB(t)
	svc := newAddressService(t, db)
	userID := uuid.New()

	first, err := svc.Create(context.Background(), userID, addressRequest("Salmiya", true))
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), userID, addressRequest("Jahra", true))
	require.NoError(t, err)

	assert.Equal(t, int64(1), countDefaults(t, db, userID))

	list, err := svc.List(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	// default sorts first
	assert.Equal(t, second.ID, list[0].ID)
	assert.True(t, list[0].IsDefault)
	assert.Equal(t, first.ID, list[1].ID)
	assert.False(t, list[1].IsDefault)
}

func TestSetDefaultSwapsAtomically(t *testing.T) {
	db := setupAddressTestDB(t)
	svc := newAddressService(t, db)
	userID := uuid.New()

	first, err := svc.Create(context.Background(), userID, addressRequest("Salmiya", true))
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), userID, addressRequest("Jahra", false))
	require.NoError(t, err)

	promoted, err := svc.SetDefault(context.Background(), userID, second.ID)
	require.NoError(t, err)
	assert.True(t, promoted.IsDefault)
	assert.Equal(t, int64(1), countDefaults(t, db, userID))

	reloaded, err := svc.List(context.Background(), userID)
	require.NoError(t, err)
	for _, dto := range reloaded {
		if dto.ID == first.ID {
			assert.False(t, dto.IsDefault)
		}
	}
}

func TestUpdateScopedToOwner(t *testing.T) {
	db := setupAddressTestDB(t)
	svc := newAddressService(t, db)
	userID := uuid.New()

	created, err := svc.Create(context.Background(), userID, addressRequest("Salmiya", false))
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), uuid.New(), created.ID, addressRequest("Jahra", false))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	updated, err := svc.Update(context.Background(), userID, created.ID, addressRequest("Jahra", false))
	require.NoError(t, err)
	assert.Equal(t, "Jahra", updated.City)
}

func TestDeleteAddress(t *testing.T) {
	db := setupAddressTestDB(t)
	svc := newAddressService(t, db)
	userID := uuid.New()

	created, err := svc.Create(context.Background(), userID, addressRequest("Salmiya", false))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), userID, created.ID))

	err = svc.Delete(context.Background(), userID, created.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}
