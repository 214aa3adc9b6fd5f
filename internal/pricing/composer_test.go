package pricing

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gelatokw/scoops-backend/internal/catalog"
	"github.com/gelatokw/scoops-backend/pkg/commerce"
	"github.com/gelatokw/scoops-backend/pkg/config"
	"github.com/gelatokw/scoops-backend/pkg/db/models"
	pkgerrors "github.com/gelatokw/scoops-backend/pkg/errors"
)

func setupCatalogTestDB(t *testing.T) *gorm.DB {
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
		`CREATE TABLE IF NOT EXISTS container_options (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  price_fils INTEGER NOT NULL,
  category TEXT NOT NULL,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS topping_options (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  price_fils INTEGER NOT NULL,
  category TEXT NOT NULL,
  created_at DATETIME
);`,
	}
	for _, stmt := range ddl {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func seedFlavor(t *testing.T, db *gorm.DB, priceFils int64, active bool) models.Flavor {
	t.Helper()
	flavor := models.Flavor{
		ID:            uuid.New(),
		Name:          "Pistachio",
		Slug:          "pistachio-" + uuid.NewString()[:8],
		BasePriceFils: priceFils,
		IsActive:      active,
	}
	require.NoError(t, db.Create(&flavor).Error)
	return flavor
}

func seedTopping(t *testing.T, db *gorm.DB, name string, priceFils int64) models.ToppingOption {
	t.Helper()
	topping := models.ToppingOption{
		ID:        uuid.New(),
		Name:      name,
		Slug:      name + "-" + uuid.NewString()[:8],
		PriceFils: priceFils,
		Category:  "nuts",
	}
	require.NoError(t, db.Create(&topping).Error)
	return topping
}

func testPricingConfig() config.PricingConfig {
	return config.PricingConfig{
		MaxToppings:               3,
		FreeShippingThresholdFils: 15000,
		FlatShippingFeeFils:       2000,
	}
}

func newTestComposer(t *testing.T, db *gorm.DB) *Composer {
	t.Helper()
	composer, err := NewComposer(ComposerParams{
		Catalog: catalog.NewRepository(db),
		Pricing: testPricingConfig(),
	})
	require.NoError(t, err)
	return composer
}

func TestComposeFlavorLineSumsPrices(t *testing.T) {
	db := setupCatalogTestDB(t)
	flavor := seedFlavor(t, db, 1900, true)
	topping := seedTopping(t, db, "Pistachio Crumble", 250)

	composer := newTestComposer(t, db)
	line, err := composer.ComposeFlavorLine(context.Background(), ComposeInput{
		FlavorID:   flavor.ID,
		ToppingIDs: []uuid.UUID{topping.ID},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(2150), line.UnitPriceFils)
	assert.Equal(t, flavor.Name, line.Title)
	assert.Equal(t, []string{"Pistachio Crumble"}, line.ToppingNames)
	assert.NotEmpty(t, line.LineKey)
}

func TestComposeFlavorLineInactiveFlavor(t *testing.T) {
	db := setupCatalogTestDB(t)
	flavor := seedFlavor(t, db, 1900, false)

	composer := newTestComposer(t, db)
	_, err := composer.ComposeFlavorLine(context.Background(), ComposeInput{FlavorID: flavor.ID})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestComposeFlavorLineUnknownFlavor(t *testing.T) {
	db := setupCatalogTestDB(t)

	composer := newTestComposer(t, db)
	_, err := composer.ComposeFlavorLine(context.Background(), ComposeInput{FlavorID: uuid.New()})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestComposeFlavorLineCapsToppings(t *testing.T) {
	db := setupCatalogTestDB(t)
	flavor := seedFlavor(t, db, 1000, true)

	ids := make([]uuid.UUID, 0, 5)
	for _, name := range []string{"A", "B", "C", "D", "E"} {
		topping := seedTopping(t, db, name, 100)
		ids = append(ids, topping.ID)
	}

	composer := newTestComposer(t, db)
	line, err := composer.ComposeFlavorLine(context.Background(), ComposeInput{
		FlavorID:   flavor.ID,
		ToppingIDs: ids,
	})
	require.NoError(t, err)

	// only the first three toppings survive the cap
	assert.Len(t, line.ToppingIDs, 3)
	assert.Equal(t, int64(1300), line.UnitPriceFils)
}

func TestComposeFlavorLineDedupesToppings(t *testing.T) {
	db := setupCatalogTestDB(t)
	flavor := seedFlavor(t, db, 1000, true)
	topping := seedTopping(t, db, "Lotus Crumbs", 300)

	composer := newTestComposer(t, db)
	line, err := composer.ComposeFlavorLine(context.Background(), ComposeInput{
		FlavorID:   flavor.ID,
		ToppingIDs: []uuid.UUID{topping.ID, topping.ID, topping.ID},
	})
	require.NoError(t, err)

	assert.Len(t, line.ToppingIDs, 1)
	assert.Equal(t, int64(1300), line.UnitPriceFils)
}

func TestLineKeyOrderIndependent(t *testing.T) {
	base := uuid.New()
	container := uuid.New()
	t1, t2, t3 := uuid.New(), uuid.New(), uuid.New()

	keyA := LineKey(base, &container, []uuid.UUID{t1, t2, t3})
	keyB := LineKey(base, &container, []uuid.UUID{t3, t1, t2})
	assert.Equal(t, keyA, keyB)

	keyC := LineKey(base, nil, []uuid.UUID{t1, t2, t3})
	assert.NotEqual(t, keyA, keyC)

	keyD := LineKey(base, &container, []uuid.UUID{t1, t2})
	assert.NotEqual(t, keyA, keyD)
}

func TestShippingFeeThreshold(t *testing.T) {
	db := setupCatalogTestDB(t)
	composer := newTestComposer(t, db)

	assert.Equal(t, int64(2000), composer.ShippingFeeFils(14999))
	assert.Equal(t, int64(0), composer.ShippingFeeFils(15000))
	assert.Equal(t, int64(0), composer.ShippingFeeFils(20000))
	assert.Equal(t, int64(2000), composer.ShippingFeeFils(0))
}

type stubCommerceProducts struct {
	product *commerce.Product
	err     error
}

func (s *stubCommerceProducts) GetProduct(context.Context, string) (*commerce.Product, error) {
	return s.product, s.err
}

func TestComposeProductLine(t *testing.T) {
	db := setupCatalogTestDB(t)
	productID := uuid.New()

	composer, err := NewComposer(ComposerParams{
		Catalog: catalog.NewRepository(db),
		Commerce: &stubCommerceProducts{product: &commerce.Product{
			ID:        productID.String(),
			Title:     "Affogato Kit",
			PriceFils: 3500,
			Available: true,
		}},
		Pricing: testPricingConfig(),
	})
	require.NoError(t, err)

	line, err := composer.ComposeProductLine(context.Background(), productID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(3500), line.UnitPriceFils)
	assert.Equal(t, "Affogato Kit", line.Title)
	assert.Equal(t, LineKey(productID, nil, nil), line.LineKey)
}

func TestComposeProductLineUnavailable(t *testing.T) {
	db := setupCatalogTestDB(t)
	productID := uuid.New()

	composer, err := NewComposer(ComposerParams{
		Catalog: catalog.NewRepository(db),
		Commerce: &stubCommerceProducts{product: &commerce.Product{
			ID:        productID.String(),
			Title:     "Affogato Kit",
			PriceFils: 3500,
			Available: false,
		}},
		Pricing: testPricingConfig(),
	})
	require.NoError(t, err)

	_, err = composer.ComposeProductLine(context.Background(), productID.String())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}
