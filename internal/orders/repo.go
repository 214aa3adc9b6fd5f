package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gelatokw/scoops-backend/pkg/db/models"
	"github.com/gelatokw/scoops-backend/pkg/enums"
	"github.com/gelatokw/scoops-backend/pkg/pagination"
)

// Repository encapsulates order and refund persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts an order together with its item snapshot.
func (r *Repository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	for i := range order.Items {
		if order.Items[i].ID == uuid.Nil {
			order.Items[i].ID = uuid.New()
		}
		order.Items[i].OrderID = order.ID
	}
	return r.db.WithContext(ctx).Create(order).Error
}

// FindByID loads one order with its items.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByIDForUser loads one order scoped to its owner.
func (r *Repository) FindByIDForUser(ctx context.Context, id, userID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("id = ? AND user_id = ?", id, userID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListByUser returns a page of the user's orders, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("user_id = ?", userID)
	return r.listPage(ctx, query, params)
}

// ListAll returns a page of every order, optionally filtered by status.
func (r *Repository) ListAll(ctx context.Context, status *enums.OrderStatus, params pagination.Params) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		})
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	return r.listPage(ctx, query, params)
}

func (r *Repository) listPage(_ context.Context, query *gorm.DB, params pagination.Params) ([]models.Order, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var orders []models.Order
	err = query.
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// TransitionStatus moves an order from one status to another. It reports
// whether the guarded update matched a row.
func (r *Repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CreateRefundRequest inserts a pending refund request row.
func (r *Repository) CreateRefundRequest(ctx context.Context, refund *models.RefundRequest) error {
	if refund.ID == uuid.Nil {
		refund.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(refund).Error
}

// FindRefundByID loads one refund request.
func (r *Repository) FindRefundByID(ctx context.Context, id uuid.UUID) (*models.RefundRequest, error) {
	var refund models.RefundRequest
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&refund).Error
	if err != nil {
		return nil, err
	}
	return &refund, nil
}

// HasPendingRefund reports whether the order already carries an open request.
func (r *Repository) HasPendingRefund(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.RefundRequest{}).
		Where("order_id = ? AND status = ?", orderID, enums.RefundStatusPending).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListRefunds returns a page of refund requests, optionally by status.
func (r *Repository) ListRefunds(ctx context.Context, status *enums.RefundStatus, params pagination.Params) ([]models.RefundRequest, error) {
	query := r.db.WithContext(ctx).Model(&models.RefundRequest{})
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var refunds []models.RefundRequest
	err = query.
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&refunds).Error
	if err != nil {
		return nil, err
	}
	return refunds, nil
}

// ReviewRefund records an admin decision on a pending request. It reports
// whether the request was still pending.
func (r *Repository) ReviewRefund(ctx context.Context, id uuid.UUID, status enums.RefundStatus, reviewedBy uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.RefundRequest{}).
		Where("id = ? AND status = ?", id, enums.RefundStatusPending).
		Updates(map[string]any{
			"status":      status,
			"reviewed_by": reviewedBy,
			"reviewed_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
