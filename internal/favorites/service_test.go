package favorites

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gelatokw/scoops-backend/internal/catalog"
	"github.com/gelatokw/scoops-backend/pkg/db/models"
	pkgerrors "github.com/gelatokw/scoops-backend/pkg/errors"
	"github.com/gelatokw/scoops-backend/pkg/pagination"
)

func setupFavoritesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	ddl := []string{
		`CREATE TABLE IF NOT EXISTS flavors (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  description TEXT,
  base_price_fils INTEGER NOT NULL,
  image_ref TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS favorite_items (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  flavor_id TEXT NOT NULL,
  created_at DATETIME,
  UNIQUE (user_id, flavor_id)
);`,
	}
	for _, stmt := range ddl {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func newFavoritesService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db), catalog.NewRepository(db))
	require.NoError(t, err)
	return svc
}

func seedTestFlavor(t *testing.T, db *gorm.DB, name string) models.Flavor {
	t.Helper()
	flavor := models.Flavor{
		ID:            uuid.New(),
		Name:          name,
		Slug:          name + "-" + uuid.NewString()[:8],
		BasePriceFils: 1900,
		IsActive:      true,
	}
	require.NoError(t, db.Create(&flavor).Error)
	return flavor
}

func TestAddFavoriteIdempotent(t *testing.T) {
	db := setupFavoritesTestDB(t)
	svc := newFavoritesService(t, db)

	userID := uuid.New()
	flavor := seedTestFlavor(t, db, "Pistachio")

	require.NoError(t, svc.Add(context.Background(), userID, flavor.ID))
	require.NoError(t, svc.Add(context.Background(), userID, flavor.ID))

	page, err := svc.List(context.Background(), userID, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, page.Favorites, 1)
}

func TestAddUnknownFlavor(t *testing.T) {
	db := setupFavoritesTestDB(t)
	svc := newFavoritesService(t, db)

	err := svc.Add(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestRemoveFavorite(t *testing.T) {
	db := setupFavoritesTestDB(t)
	svc := newFavoritesService(t, db)

	userID := uuid.New()
	flavor := seedTestFlavor(t, db, "Kunafa")
	require.NoError(t, svc.Add(context.Background(), userID, flavor.ID))

	require.NoError(t, svc.Remove(context.Background(), userID, flavor.ID))

	err := svc.Remove(context.Background(), userID, flavor.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestListPaginatesNewestFirst(t *testing.T) {
	db := setupFavoritesTestDB(t)
	svc := newFavoritesService(t, db)

	userID := uuid.New()
	base := time.Now().Add(-time.Hour)
	names := []string{"Pistachio", "Saffron Rose", "Kunafa"}
	for i, name := range names {
		flavor := seedTestFlavor(t, db, name)
		// direct insert with a controlled timestamp for a stable order
		require.NoError(t, db.Exec(
			`INSERT INTO favorite_items (id, user_id, flavor_id, created_at) VALUES (?, ?, ?, ?)`,
			uuid.New(), userID, flavor.ID, base.Add(time.Duration(i)*time.Minute),
		).Error)
	}

	page, err := svc.List(context.Background(), userID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Favorites, 2)
	assert.Equal(t, "Kunafa", page.Favorites[0].Name)
	assert.Equal(t, "Saffron Rose", page.Favorites[1].Name)
	require.NotEmpty(t, page.NextCursor)

	rest, err := svc.List(context.Background(), userID, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, rest.Favorites, 1)
	assert.Equal(t, "Pistachio", rest.Favorites[0].Name)
	assert.Empty(t, rest.NextCursor)
}
