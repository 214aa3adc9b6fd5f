package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gelatokw/scoops-backend/pkg/db/models"
	"github.com/gelatokw/scoops-backend/pkg/enums"
	pkgerrors "github.com/gelatokw/scoops-backend/pkg/errors"
	"github.com/gelatokw/scoops-backend/pkg/outbox"
	"github.com/gelatokw/scoops-backend/pkg/pagination"
	"github.com/gelatokw/scoops-backend/pkg/types"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	ddl := []string{
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
		`CREATE TABLE IF NOT EXISTS refund_requests (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  reason TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  reviewed_by TEXT,
  reviewed_at DATETIME,
  created_at DATETIME
);`,
	}
	for _, stmt := range ddl {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type ordersTxRunner struct {
	db *gorm.DB
}

func (r *ordersTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type ordersOutboxRecorder struct {
	events []outbox.DomainEvent
}

func (r *ordersOutboxRecorder) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	r.events = append(r.events, event)
	return nil
}

func testAddress() types.Address {
	return types.Address{
		FirstName: "Noura",
		LastName:  "AlSabah",
		Address1:  "Block 4, Street 12",
		City:      "Salmiya",
		Province:  "Hawalli",
		Country:   "KW",
		Zip:       "22001",
		Phone:     "+96550001234",
	}
}

func seedOrder(t *testing.T, db *gorm.DB, userID uuid.UUID, status enums.OrderStatus, createdAt time.Time) models.Order {
	t.Helper()
	order := models.Order{
		ID:              uuid.New(),
		UserID:          userID,
		Status:          status,
		SubtotalFils:    4300,
		ShippingFeeFils: 2000,
		TotalFils:       6300,
		DeliveryAddress: testAddress(),
		DeliveryDate:    "2026-09-05",
		DeliverySlot:    "16:00-18:00",
		PaymentMethod:   enums.PaymentMethodCash,
		Items: []models.OrderItem{{
			ID:            uuid.New(),
			LineKey:       uuid.NewString(),
			BaseItemID:    uuid.New(),
			Source:        enums.CatalogSourceFlavor,
			Title:         "Pistachio",
			UnitPriceFils: 2150,
			Quantity:      2,
			LineTotalFils: 4300,
		}},
		CreatedAt: createdAt,
	}
	require.NoError(t, db.Create(&order).Error)
	return order
}

func newOrderServices(t *testing.T, db *gorm.DB, sink *ordersOutboxRecorder) (Service, AdminService) {
	t.Helper()
	repo := NewRepository(db)
	runner := &ordersTxRunner{db: db}

	svc, err := NewService(ServiceParams{Repo: repo, Tx: runner, Outbox: sink})
	require.NoError(t, err)

	admin, err := NewAdminService(AdminServiceParams{Repo: repo, Tx: runner, Outbox: sink})
	require.NoError(t, err)
	return svc, admin
}

func TestGetScopedToOwner(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc, _ := newOrderServices(t, db, &ordersOutboxRecorder{})

	owner := uuid.New()
	order := seedOrder(t, db, owner, enums.OrderStatusPending, time.Now())

	dto, err := svc.Get(context.Background(), owner, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "6.300", dto.Total)
	require.Len(t, dto.Items, 1)
	assert.Equal(t, "2.150", dto.Items[0].UnitPrice)

	_, err = svc.Get(context.Background(), uuid.New(), order.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestCancelPendingOrder(t *testing.T) {
	db := setupOrdersTestDB(t)
	sink := &ordersOutboxRecorder{}
	svc, _ := newOrderServices(t, db, sink)

	owner := uuid.New()
	order := seedOrder(t, db, owner, enums.OrderStatusPending, time.Now())

	dto, err := svc.Cancel(context.Background(), owner, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, dto.Status)

	require.Len(t, sink.events, 1)
	assert.Equal(t, enums.EventOrderStatusChanged, sink.events[0].EventType)
}

func TestCancelDeliveredOrderRejected(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc, _ := newOrderServices(t, db, &ordersOutboxRecorder{})

	owner := uuid.New()
	order := seedOrder(t, db, owner, enums.OrderStatusDelivered, time.Now())

	_, err := svc.Cancel(context.Background(), owner, order.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())

	reloaded, err := NewRepository(db).FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDelivered, reloaded.Status)
}

func TestRequestRefundDeliveredOnly(t *testing.T) {
	db := setupOrdersTestDB(t)
	sink := &ordersOutboxRecorder{}
	svc, _ := newOrderServices(t, db, sink)

	owner := uuid.New()
	delivered := seedOrder(t, db, owner, enums.OrderStatusDelivered, time.Now())
	pending := seedOrder(t, db, owner, enums.OrderStatusPending, time.Now())

	refund, err := svc.RequestRefund(context.Background(), owner, delivered.ID, "melted on arrival")
	require.NoError(t, err)
	assert.Equal(t, enums.RefundStatusPending, refund.Status)

	require.Len(t, sink.events, 1)
	assert.Equal(t, enums.EventRefundRequested, sink.events[0].EventType)

	_, err = svc.RequestRefund(context.Background(), owner, pending.ID, "changed my mind")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestRequestRefundDuplicatePending(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc, _ := newOrderServices(t, db, &ordersOutboxRecorder{})

	owner := uuid.New()
	order := seedOrder(t, db, owner, enums.OrderStatusDelivered, time.Now())

	_, err := svc.RequestRefund(context.Background(), owner, order.ID, "melted on arrival")
	require.NoError(t, err)

	_, err = svc.RequestRefund(context.Background(), owner, order.ID, "still melted")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestAdminSetStatusForwardOnly(t *testing.T) {
	db := setupOrdersTestDB(t)
	_, admin := newOrderServices(t, db, &ordersOutboxRecorder{})

	adminID := uuid.New()
	order := seedOrder(t, db, uuid.New(), enums.OrderStatusPending, time.Now())

	dto, err := admin.SetStatus(context.Background(), adminID, order.ID, enums.OrderStatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusProcessing, dto.Status)

	// skipping a step is rejected
	_, err = admin.SetStatus(context.Background(), adminID, order.ID, enums.OrderStatusDelivered)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())

	// moving backward is rejected
	_, err = admin.SetStatus(context.Background(), adminID, order.ID, enums.OrderStatusPending)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestAdminSetStatusCancelFromNonTerminal(t *testing.T) {
	db := setupOrdersTestDB(t)
	_, admin := newOrderServices(t, db, &ordersOutboxRecorder{})

	adminID := uuid.New()
	shipped := seedOrder(t, db, uuid.New(), enums.OrderStatusShipped, time.Now())
	delivered := seedOrder(t, db, uuid.New(), enums.OrderStatusDelivered, time.Now())

	dto, err := admin.SetStatus(context.Background(), adminID, shipped.ID, enums.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, dto.Status)

	_, err = admin.SetStatus(context.Background(), adminID, delivered.ID, enums.OrderStatusCancelled)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestAdminReviewRefundOnce(t *testing.T) {
	db := setupOrdersTestDB(t)
	sink := &ordersOutboxRecorder{}
	svc, admin := newOrderServices(t, db, sink)

	owner := uuid.New()
	adminID := uuid.New()
	order := seedOrder(t, db, owner, enums.OrderStatusDelivered, time.Now())

	refund, err := svc.RequestRefund(context.Background(), owner, order.ID, "melted on arrival")
	require.NoError(t, err)

	reviewed, err := admin.ReviewRefund(context.Background(), adminID, refund.ID, true)
	require.NoError(t, err)
	assert.Equal(t, enums.RefundStatusApproved, reviewed.Status)
	require.NotNil(t, reviewed.ReviewedBy)
	assert.Equal(t, adminID, *reviewed.ReviewedBy)

	_, err = admin.ReviewRefund(context.Background(), adminID, refund.ID, false)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestListPaginatesNewestFirst(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc, _ := newOrderServices(t, db, &ordersOutboxRecorder{})

	owner := uuid.New()
	base := time.Now().Add(-time.Hour)
	oldest := seedOrder(t, db, owner, enums.OrderStatusPending, base)
	middle := seedOrder(t, db, owner, enums.OrderStatusPending, base.Add(time.Minute))
	newest := seedOrder(t, db, owner, enums.OrderStatusPending, base.Add(2*time.Minute))

	page, err := svc.List(context.Background(), owner, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Orders, 2)
	assert.Equal(t, newest.ID, page.Orders[0].ID)
	assert.Equal(t, middle.ID, page.Orders[1].ID)
	require.NotEmpty(t, page.NextCursor)

	rest, err := svc.List(context.Background(), owner, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, rest.Orders, 1)
	assert.Equal(t, oldest.ID, rest.Orders[0].ID)
	assert.Empty(t, rest.NextCursor)
}

func TestAdminListFiltersByStatus(t *testing.T) {
	db := setupOrdersTestDB(t)
	_, admin := newOrderServices(t, db, &ordersOutboxRecorder{})

	seedOrder(t, db, uuid.New(), enums.OrderStatusPending, time.Now())
	seedOrder(t, db, uuid.New(), enums.OrderStatusDelivered, time.Now())

	status := enums.OrderStatusDelivered
	page, err := admin.ListAll(context.Background(), &status, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Orders, 1)
	assert.Equal(t, enums.OrderStatusDelivered, page.Orders[0].Status)
}
