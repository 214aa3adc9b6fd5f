package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gelatokw/scoops-backend/internal/cart"
	"github.com/gelatokw/scoops-backend/internal/catalog"
	"github.com/gelatokw/scoops-backend/internal/orders"
	"github.com/gelatokw/scoops-backend/pkg/db/models"
	"github.com/gelatokw/scoops-backend/pkg/enums"
	pkgerrors "github.com/gelatokw/scoops-backend/pkg/errors"
	"github.com/gelatokw/scoops-backend/pkg/outbox"
	"github.com/gelatokw/scoops-backend/pkg/square"
)

func setupCheckoutTestDB(t *testing.T) *gorm.DB {
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
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  subtotal_fils INTEGER NOT NULL,
  shipping_fee_fils INTEGER NOT NULL,
  total_fils INTEGER NOT NULL,
  delivery_address TEXT NOT NULL,
  delivery_date TEXT NOT NULL,
  delivery_slot TEXT NOT NULL,
  special_instructions TEXT,
  payment_method TEXT NOT NULL,
  payment_ref TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  line_key TEXT NOT NULL,
  base_item_id TEXT NOT NULL,
  source TEXT NOT NULL,
  title TEXT NOT NULL,
  container_name TEXT,
  topping_names TEXT,
  unit_price_fils INTEGER NOT NULL,
  quantity INTEGER NOT NULL,
  line_total_fils INTEGER NOT NULL,
  created_at DATETIME
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

type checkoutTxRunner struct {
	db *gorm.DB
}

func (r *checkoutTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type memoryStateStore struct {
	states map[uuid.UUID]State
}

func newMemoryStateStore() *memoryStateStore {
	return &memoryStateStore{states: make(map[uuid.UUID]State)}
}

func (m *memoryStateStore) Load(_ context.Context, userID uuid.UUID) (*State, error) {
	if state, ok := m.states[userID]; ok {
		copied := state
		return &copied, nil
	}
	return freshState(), nil
}

func (m *memoryStateStore) Save(_ context.Context, userID uuid.UUID, state *State) error {
	m.states[userID] = *state
	return nil
}

func (m *memoryStateStore) Reset(_ context.Context, userID uuid.UUID) error {
	delete(m.states, userID)
	return nil
}

type stubZones struct {
	serviceable bool
}

func (z *stubZones) Serviceable(context.Context, string, string) (bool, error) {
	return z.serviceable, nil
}

type flatFee struct {
	thresholdFils int64
	feeFils       int64
}

func (f flatFee) ShippingFeeFils(subtotalFils int64) int64 {
	if subtotalFils >= f.thresholdFils {
		return 0
	}
	return f.feeFils
}

type checkoutOutboxRecorder struct {
	events []outbox.DomainEvent
	err    error
}

func (r *checkoutOutboxRecorder) EmitIfNotExists(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

type stubCharger struct {
	paymentID string
	err       error
	calls     []square.PaymentCreateParams
}

func (c *stubCharger) CreatePayment(_ context.Context, params square.PaymentCreateParams) (*sq.Payment, error) {
	c.calls = append(c.calls, params)
	if c.err != nil {
		return nil, c.err
	}
	id := c.paymentID
	return &sq.Payment{ID: &id}, nil
}

type checkoutFixture struct {
	db      *gorm.DB
	states  *memoryStateStore
	zones   *stubZones
	outbox  *checkoutOutboxRecorder
	charger *stubCharger
	svc     Service
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()

	db := setupCheckoutTestDB(t)
	fix := &checkoutFixture{
		db:      db,
		states:  newMemoryStateStore(),
		zones:   &stubZones{serviceable: true},
		outbox:  &checkoutOutboxRecorder{},
		charger: &stubCharger{paymentID: "pay_123"},
	}

	svc, err := NewService(ServiceParams{
		States:   fix.states,
		Zones:    fix.zones,
		CartRepo: cart.NewRepository(db),
		Catalog:  catalog.NewRepository(db),
		Orders:   orders.NewRepository(db),
		Fee:      flatFee{thresholdFils: 15000, feeFils: 2000},
		Tx:       &checkoutTxRunner{db: db},
		Outbox:   fix.outbox,
		Payments: fix.charger,
	})
	require.NoError(t, err)
	fix.svc = svc
	return fix
}

func seedActiveCart(t *testing.T, db *gorm.DB, userID uuid.UUID, lines ...models.CartLine) models.CartRecord {
	t.Helper()
	record := models.CartRecord{
		ID:     uuid.New(),
		UserID: userID,
		Status: enums.CartStatusActive,
	}
	require.NoError(t, db.Create(&record).Error)
	for i := range lines {
		lines[i].ID = uuid.New()
		lines[i].CartID = record.ID
		require.NoError(t, db.Create(&lines[i]).Error)
	}
	return record
}

func flavorLine(priceFils int64, quantity int) models.CartLine {
	return models.CartLine{
		LineKey:       uuid.NewString(),
		BaseItemID:    uuid.New(),
		Source:        enums.CatalogSourceFlavor,
		Title:         "Pistachio",
		UnitPriceFils: priceFils,
		Quantity:      quantity,
	}
}

func validAddress() AddressRequest {
	return AddressRequest{
		FirstName: "Noura",
		LastName:  "AlSabah",
		Address1:  "Block 4, Street 12",
		City:      "Salmiya",
		Province:  "Hawalli",
		Zip:       "22001",
		Phone:     "+96550001234",
	}
}

func validDelivery(method string) DeliveryRequest {
	req := DeliveryRequest{
		DeliveryDate:  time.Now().Add(48 * time.Hour).Format(deliveryDateLayout),
		DeliverySlot:  "16:00-18:00",
		PaymentMethod: method,
	}
	if method == "card" {
		req.PaymentSourceID = "cnon:card-nonce"
	}
	return req
}

func advanceToPayment(t *testing.T, fix *checkoutFixture, userID uuid.UUID, method string) {
	t.Helper()
	_, err := fix.svc.SubmitAddress(context.Background(), userID, validAddress())
	require.NoError(t, err)
	state, err := fix.svc.SelectDelivery(context.Background(), userID, validDelivery(method))
	require.NoError(t, err)
	require.Equal(t, StageCollectingPayment, state.Stage)
}

func TestSubmitAddressRejectsUnserviceableZone(t *testing.T) {
	fix := newCheckoutFixture(t)
	fix.zones.serviceable = false
	userID := uuid.New()

	_, err := fix.svc.SubmitAddress(context.Background(), userID, validAddress())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	state, err := fix.svc.GetState(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, StageCollectingAddress, state.Stage)
}

func TestSubmitAddressAdvancesMachine(t *testing.T) {
	fix := newCheckoutFixture(t)
	userID := uuid.New()

	state, err := fix.svc.SubmitAddress(context.Background(), userID, validAddress())
	require.NoError(t, err)
	assert.Equal(t, StageAddressValidated, state.Stage)
	require.NotNil(t, state.Address)
	assert.Equal(t, "KW", state.Address.Country)
}

func TestSelectDeliveryRequiresValidatedAddress(t *testing.T) {
	fix := newCheckoutFixture(t)
	userID := uuid.New()

	_, err := fix.svc.SelectDelivery(context.Background(), userID, validDelivery("cash"))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestSelectDeliveryValidation(t *testing.T) {
	fix := newCheckoutFixture(t)
	userID := uuid.New()
	_, err := fix.svc.SubmitAddress(context.Background(), userID, validAddress())
	require.NoError(t, err)

	bad := validDelivery("cash")
	bad.DeliveryDate = "tomorrow"
	_, err = fix.svc.SelectDelivery(context.Background(), userID, bad)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	bad = validDelivery("cash")
	bad.PaymentMethod = "bitcoin"
	_, err = fix.svc.SelectDelivery(context.Background(), userID, bad)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	bad = validDelivery("card")
	bad.PaymentSourceID = ""
	_, err = fix.svc.SelectDelivery(context.Background(), userID, bad)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestSubmitCashOrder(t *testing.T) {
	fix := newCheckoutFixture(t)
	userID := uuid.New()
	cartRecord := seedActiveCart(t, fix.db, userID, flavorLine(2150, 2))
	advanceToPayment(t, fix, userID, "cash")

	resp, err := fix.svc.Submit(context.Background(), userID)
	require.NoError(t, err)

	assert.Equal(t, "4.300", resp.Subtotal)
	assert.Equal(t, "2.000", resp.ShippingFee)
	assert.Equal(t, "6.300", resp.Total)
	assert.Equal(t, int64(6300), resp.TotalFils)

	// order persisted with frozen totals and item snapshot
	order, err := orders.NewRepository(fix.db).FindByID(context.Background(), resp.OrderID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Equal(t, int64(6300), order.TotalFils)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.Equal(t, int64(4300), order.Items[0].LineTotalFils)

	// cart converted and emptied
	var converted models.CartRecord
	require.NoError(t, fix.db.Where("id = ?", cartRecord.ID).First(&converted).Error)
	assert.Equal(t, enums.CartStatusConverted, converted.Status)
	var lineCount int64
	require.NoError(t, fix.db.Model(&models.CartLine{}).Where("cart_id = ?", cartRecord.ID).Count(&lineCount).Error)
	assert.Zero(t, lineCount)

	// one order_created event, machine reset
	require.Len(t, fix.outbox.events, 1)
	assert.Equal(t, enums.EventOrderCreated, fix.outbox.events[0].EventType)
	state, err := fix.svc.GetState(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, StageCollectingAddress, state.Stage)

	// cash never touches the card processor
	assert.Empty(t, fix.charger.calls)
}

func TestSubmitFreeShippingAboveThreshold(t *testing.T) {
	fix := newCheckoutFixture(t)
	userID := uuid.New()
	seedActiveCart(t, fix.db, userID, flavorLine(5000, 3))
	advanceToPayment(t, fix, userID, "cash")

	resp, err := fix.svc.Submit(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "0.000", resp.ShippingFee)
	assert.Equal(t, int64(15000), resp.TotalFils)
}

func TestSubmitCardCapturesPayment(t *testing.T) {
	fix := newCheckoutFixture(t)
	userID := uuid.New()
	seedActiveCart(t, fix.db, userID, flavorLine(2000, 1))
	advanceToPayment(t, fix, userID, "card")

	resp, err := fix.svc.Submit(context.Background(), userID)
	require.NoError(t, err)

	require.Len(t, fix.charger.calls, 1)
	assert.Equal(t, int64(4000), fix.charger.calls[0].AmountFils)
	assert.Equal(t, "cnon:card-nonce", fix.charger.calls[0].SourceID)

	order, err := orders.NewRepository(fix.db).FindByID(context.Background(), resp.OrderID)
	require.NoError(t, err)
	require.NotNil(t, order.PaymentRef)
	assert.Equal(t, "pay_123", *order.PaymentRef)
}

func TestSubmitEmptyCart(t *testing.T) {
	fix := newCheckoutFixture(t)
	userID := uuid.New()
	advanceToPayment(t, fix, userID, "cash")

	_, err := fix.svc.Submit(context.Background(), userID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestSubmitFailureParksMachineInFailed(t *testing.T) {
	fix := newCheckoutFixture(t)
	fix.outbox.err = pkgerrors.New(pkgerrors.CodeDependency, "outbox unavailable")
	userID := uuid.New()
	cartRecord := seedActiveCart(t, fix.db, userID, flavorLine(2150, 1))
	advanceToPayment(t, fix, userID, "cash")

	_, err := fix.svc.Submit(context.Background(), userID)
	require.Error(t, err)

	state, err := fix.svc.GetState(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, StageFailed, state.Stage)
	assert.NotEmpty(t, state.FailureReason)

	// the tx rolled back: no order rows, cart untouched
	var orderCount int64
	require.NoError(t, fix.db.Model(&models.Order{}).Count(&orderCount).Error)
	assert.Zero(t, orderCount)
	var record models.CartRecord
	require.NoError(t, fix.db.Where("id = ?", cartRecord.ID).First(&record).Error)
	assert.Equal(t, enums.CartStatusActive, record.Status)

	// a retry after the dependency recovers succeeds from failed
	fix.outbox.err = nil
	resp, err := fix.svc.Submit(context.Background(), userID)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, resp.OrderID)
}

func TestSubmitSnapshotsContainerAndToppingNames(t *testing.T) {
	fix := newCheckoutFixture(t)
	userID := uuid.New()

	container := models.ContainerOption{ID: uuid.New(), Name: "Waffle Cone", Slug: "waffle-cone", PriceFils: 400, Category: "cone"}
	require.NoError(t, fix.db.Create(&container).Error)
	topping := models.ToppingOption{ID: uuid.New(), Name: "Pistachio Crumble", Slug: "pistachio-crumble", PriceFils: 250, Category: "nuts"}
	require.NoError(t, fix.db.Create(&topping).Error)

	line := flavorLine(2550, 1)
	line.ContainerID = &container.ID
	line.ToppingIDs = []uuid.UUID{topping.ID}
	seedActiveCart(t, fix.db, userID, line)
	advanceToPayment(t, fix, userID, "cash")

	resp, err := fix.svc.Submit(context.Background(), userID)
	require.NoError(t, err)

	order, err := orders.NewRepository(fix.db).FindByID(context.Background(), resp.OrderID)
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	require.NotNil(t, order.Items[0].ContainerName)
	assert.Equal(t, "Waffle Cone", *order.Items[0].ContainerName)
	assert.Equal(t, []string{"Pistachio Crumble"}, order.Items[0].ToppingNames)
}
