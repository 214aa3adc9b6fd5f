package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gelatokw/scoops-backend/internal/pricing"
	"github.com/gelatokw/scoops-backend/pkg/enums"
	pkgerrors "github.com/gelatokw/scoops-backend/pkg/errors"
	"github.com/gelatokw/scoops-backend/pkg/outbox"
)

func setupCartTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	ddl := []string{
		`CREATE TABLE IF NOT EXISTS carts (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'active',
  converted_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS cart_lines (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  line_key TEXT NOT NULL,
  base_item_id TEXT NOT NULL,
  source TEXT NOT NULL DEFAULT 'flavor',
  title TEXT NOT NULL,
  image_ref TEXT,
  container_id TEXT,
  topping_ids TEXT,
  unit_price_fils INTEGER NOT NULL,
  quantity INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (cart_id, line_key)
);`,
	}
	for _, stmt := range ddl {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type testTxRunner struct {
	db *gorm.DB
}

func (r *testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type stubComposer struct {
	lines map[uuid.UUID]*pricing.ComposedLine
}

func newStubComposer() *stubComposer {
	return &stubComposer{lines: make(map[uuid.UUID]*pricing.ComposedLine)}
}

func (c *stubComposer) add(line *pricing.ComposedLine) {
	c.lines[line.BaseItemID] = line
}

func (c *stubComposer) ComposeFlavorLine(_ context.Context, input pricing.ComposeInput) (*pricing.ComposedLine, error) {
	if line, ok := c.lines[input.FlavorID]; ok {
		return line, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "flavor not found")
}

func (c *stubComposer) ComposeProductLine(_ context.Context, productID string) (*pricing.ComposedLine, error) {
	id, err := uuid.Parse(productID)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bad product id")
	}
	if line, ok := c.lines[id]; ok {
		return line, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
}

type recordingOutbox struct {
	events []outbox.DomainEvent
}

func (r *recordingOutbox) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	r.events = append(r.events, event)
	return nil
}

func composedFlavorLine(priceFils int64) *pricing.ComposedLine {
	flavorID := uuid.New()
	return &pricing.ComposedLine{
		LineKey:       pricing.LineKey(flavorID, nil, nil),
		BaseItemID:    flavorID,
		Source:        enums.CatalogSourceFlavor,
		Title:         "Pistachio",
		UnitPriceFils: priceFils,
	}
}

func newTestService(t *testing.T, db *gorm.DB, composer lineComposer, sink outboxPublisher) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(db),
		Tx:       &testTxRunner{db: db},
		Composer: composer,
		Outbox:   sink,
	})
	require.NoError(t, err)
	return svc
}

func TestAddLineCreatesCartAndLine(t *testing.T) {
	db := setupCartTestDB(t)
	composer := newStubComposer()
	line := composedFlavorLine(2150)
	composer.add(line)
	sink := &recordingOutbox{}

	svc := newTestService(t, db, composer, sink)
	userID := uuid.New()

	dto, err := svc.AddLine(context.Background(), userID, AddLineRequest{
		FlavorID: &line.BaseItemID,
		Quantity: 2,
	})
	require.NoError(t, err)

	require.Len(t, dto.Lines, 1)
	assert.Equal(t, 2, dto.Lines[0].Quantity)
	assert.Equal(t, "2.150", dto.Lines[0].UnitPrice)
	assert.Equal(t, int64(4300), dto.SubtotalFils)
	assert.Equal(t, "4.300", dto.Subtotal)

	require.Len(t, sink.events, 1)
	assert.Equal(t, enums.EventCartUpdated, sink.events[0].EventType)
}

func TestAddLineMergesOnSameKey(t *testing.T) {
	db := setupCartTestDB(t)
	composer := newStubComposer()
	line := composedFlavorLine(1900)
	composer.add(line)

	svc := newTestService(t, db, composer, &recordingOutbox{})
	userID := uuid.New()

	_, err := svc.AddLine(context.Background(), userID, AddLineRequest{FlavorID: &line.BaseItemID, Quantity: 1})
	require.NoError(t, err)

	dto, err := svc.AddLine(context.Background(), userID, AddLineRequest{FlavorID: &line.BaseItemID, Quantity: 3})
	require.NoError(t, err)

	require.Len(t, dto.Lines, 1)
	assert.Equal(t, 4, dto.Lines[0].Quantity)
	assert.Equal(t, int64(7600), dto.SubtotalFils)
}

func TestAddLineKeepsFrozenUnitPrice(t *testing.T) {
	db := setupCartTestDB(t)
	composer := newStubComposer()
	line := composedFlavorLine(1900)
	composer.add(line)

	svc := newTestService(t, db, composer, &recordingOutbox{})
	userID := uuid.New()

	_, err := svc.AddLine(context.Background(), userID, AddLineRequest{FlavorID: &line.BaseItemID, Quantity: 1})
	require.NoError(t, err)

	// catalog price moves, but the cart keeps the price frozen at add time
	line.UnitPriceFils = 2500

	dto, err := svc.AddLine(context.Background(), userID, AddLineRequest{FlavorID: &line.BaseItemID, Quantity: 1})
	require.NoError(t, err)

	require.Len(t, dto.Lines, 1)
	assert.Equal(t, "1.900", dto.Lines[0].UnitPrice)
}

func TestUpdateQuantityBelowOneRemoves(t *testing.T) {
	db := setupCartTestDB(t)
	composer := newStubComposer()
	line := composedFlavorLine(1900)
	composer.add(line)

	svc := newTestService(t, db, composer, &recordingOutbox{})
	userID := uuid.New()

	added, err := svc.AddLine(context.Background(), userID, AddLineRequest{FlavorID: &line.BaseItemID, Quantity: 2})
	require.NoError(t, err)

	dto, err := svc.UpdateQuantity(context.Background(), userID, added.Lines[0].LineKey, 0)
	require.NoError(t, err)
	assert.Empty(t, dto.Lines)
	assert.Equal(t, int64(0), dto.SubtotalFils)
}

func TestUpdateQuantitySetsAbsoluteValue(t *testing.T) {
	db := setupCartTestDB(t)
	composer := newStubComposer()
	line := composedFlavorLine(1000)
	composer.add(line)

	svc := newTestService(t, db, composer, &recordingOutbox{})
	userID := uuid.New()

	added, err := svc.AddLine(context.Background(), userID, AddLineRequest{FlavorID: &line.BaseItemID, Quantity: 5})
	require.NoError(t, err)

	dto, err := svc.UpdateQuantity(context.Background(), userID, added.Lines[0].LineKey, 2)
	require.NoError(t, err)
	require.Len(t, dto.Lines, 1)
	assert.Equal(t, 2, dto.Lines[0].Quantity)
	assert.Equal(t, int64(2000), dto.SubtotalFils)
}

func TestRemoveLineUnknownKey(t *testing.T) {
	db := setupCartTestDB(t)
	composer := newStubComposer()
	line := composedFlavorLine(1000)
	composer.add(line)

	svc := newTestService(t, db, composer, &recordingOutbox{})
	userID := uuid.New()

	_, err := svc.AddLine(context.Background(), userID, AddLineRequest{FlavorID: &line.BaseItemID, Quantity: 1})
	require.NoError(t, err)

	_, err = svc.RemoveLine(context.Background(), userID, "missing-key")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestClearEmptiesCart(t *testing.T) {
	db := setupCartTestDB(t)
	composer := newStubComposer()
	lineA := composedFlavorLine(1000)
	lineB := composedFlavorLine(2000)
	composer.add(lineA)
	composer.add(lineB)

	svc := newTestService(t, db, composer, &recordingOutbox{})
	userID := uuid.New()

	_, err := svc.AddLine(context.Background(), userID, AddLineRequest{FlavorID: &lineA.BaseItemID, Quantity: 1})
	require.NoError(t, err)
	_, err = svc.AddLine(context.Background(), userID, AddLineRequest{FlavorID: &lineB.BaseItemID, Quantity: 1})
	require.NoError(t, err)

	dto, err := svc.Clear(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, dto.Lines)
	assert.Equal(t, "0.000", dto.Subtotal)
}

func TestGetCartEmptyWithoutActiveCart(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newTestService(t, db, newStubComposer(), &recordingOutbox{})

	dto, err := svc.GetCart(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, dto.Lines)
	assert.Equal(t, "0.000", dto.Subtotal)
}

func TestAddLineRequiresExactlyOneSource(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newTestService(t, db, newStubComposer(), &recordingOutbox{})
	userID := uuid.New()

	_, err := svc.AddLine(context.Background(), userID, AddLineRequest{Quantity: 1})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	flavorID := uuid.New()
	productID := uuid.NewString()
	_, err = svc.AddLine(context.Background(), userID, AddLineRequest{
		FlavorID:  &flavorID,
		ProductID: &productID,
		Quantity:  1,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}
