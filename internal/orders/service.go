package orders

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gelatokw/scoops-backend/pkg/db/models"
	"github.com/gelatokw/scoops-backend/pkg/enums"
	pkgerrors "github.com/gelatokw/scoops-backend/pkg/errors"
	"github.com/gelatokw/scoops-backend/pkg/outbox"
	"github.com/gelatokw/scoops-backend/pkg/outbox/payloads"
	"github.com/gelatokw/scoops-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service exposes the order operations available to the order's owner.
type Service interface {
	List(ctx context.Context, userID uuid.UUID, params pagination.Params) (ListDTO, error)
	Get(ctx context.Context, userID, orderID uuid.UUID) (OrderDTO, error)
	Cancel(ctx context.Context, userID, orderID uuid.UUID) (OrderDTO, error)
	RequestRefund(ctx context.Context, userID, orderID uuid.UUID, reason string) (RefundDTO, error)
}

// ServiceParams groups dependencies for the customer order service.
type ServiceParams struct {
	Repo   *Repository
	Tx     txRunner
	Outbox outboxPublisher
}

type service struct {
	repo   *Repository
	tx     txRunner
	outbox outboxPublisher
}

// NewService builds the customer-facing order service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "orders repo is required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction runner is required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "outbox publisher is required")
	}
	return &service{repo: params.Repo, tx: params.Tx, outbox: params.Outbox}, nil
}

// List returns one page of the user's orders, newest first.
func (s *service) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (ListDTO, error) {
	if userID == uuid.Nil {
		return ListDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	records, err := s.repo.ListByUser(ctx, userID, params)
	if err != nil {
		return ListDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return buildListDTO(records, params.Limit), nil
}

// Get loads one order scoped to its owner.
func (s *service) Get(ctx context.Context, userID, orderID uuid.UUID) (OrderDTO, error) {
	record, err := s.findOwned(ctx, userID, orderID)
	if err != nil {
		return OrderDTO{}, err
	}
	return orderToDTO(record), nil
}

// Cancel moves an order to cancelled while it is still in flight. Delivered
// and already-cancelled orders stay untouched.
func (s *service) Cancel(ctx context.Context, userID, orderID uuid.UUID) (OrderDTO, error) {
	record, err := s.findOwned(ctx, userID, orderID)
	if err != nil {
		return OrderDTO{}, err
	}
	if record.Status.IsTerminal() {
		return OrderDTO{}, pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer be cancelled")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		moved, err := repo.TransitionStatus(ctx, record.ID, record.Status, enums.OrderStatusCancelled)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
		}
		return s.emitStatusChange(ctx, tx, record, enums.OrderStatusCancelled, userID, enums.UserRoleCustomer)
	})
	if err != nil {
		return OrderDTO{}, err
	}

	record.Status = enums.OrderStatusCancelled
	return orderToDTO(record), nil
}

// RequestRefund opens a refund review on a delivered order. The order status
// is left untouched; the request row carries the review lifecycle.
func (s *service) RequestRefund(ctx context.Context, userID, orderID uuid.UUID, reason string) (RefundDTO, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return RefundDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "refund reason is required")
	}

	record, err := s.findOwned(ctx, userID, orderID)
	if err != nil {
		return RefundDTO{}, err
	}
	if record.Status != enums.OrderStatusDelivered {
		return RefundDTO{}, pkgerrors.New(pkgerrors.CodeStateConflict, "refunds are available for delivered orders only")
	}

	open, err := s.repo.HasPendingRefund(ctx, orderID)
	if err != nil {
		return RefundDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check open refunds")
	}
	if open {
		return RefundDTO{}, pkgerrors.New(pkgerrors.CodeConflict, "a refund request is already under review")
	}

	refund := models.RefundRequest{
		OrderID: orderID,
		UserID:  userID,
		Reason:  reason,
		Status:  enums.RefundStatusPending,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateRefundRequest(ctx, &refund); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create refund request")
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventRefundRequested,
			AggregateType: enums.AggregateRefundRequest,
			AggregateID:   refund.ID,
			Actor:         &outbox.ActorRef{UserID: userID, Role: string(enums.UserRoleCustomer)},
			Data: payloads.RefundRequestedEvent{
				RefundRequestID: refund.ID,
				OrderID:         orderID,
				UserID:          userID,
				Reason:          reason,
			},
			Version: 1,
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return RefundDTO{}, err
	}

	refund.CreatedAt = time.Now()
	return refundToDTO(&refund), nil
}

func (s *service) findOwned(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	record, err := s.repo.FindByIDForUser(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return record, nil
}

func (s *service) emitStatusChange(ctx context.Context, tx *gorm.DB, record *models.Order, to enums.OrderStatus, actorID uuid.UUID, role enums.UserRole) error {
	event := outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   record.ID,
		Actor:         &outbox.ActorRef{UserID: actorID, Role: string(role)},
		Data: payloads.OrderStatusChangedEvent{
			OrderID:    record.ID,
			UserID:     record.UserID,
			FromStatus: record.Status,
			ToStatus:   to,
			ChangedAt:  time.Now(),
		},
		Version: 1,
	}
	return s.outbox.Emit(ctx, tx, event)
}

func buildListDTO(records []models.Order, limit int) ListDTO {
	pageSize := pagination.NormalizeLimit(limit)
	dto := ListDTO{Orders: make([]OrderDTO, 0, len(records))}

	hasMore := len(records) > pageSize
	if hasMore {
		records = records[:pageSize]
	}
	for i := range records {
		dto.Orders = append(dto.Orders, orderToDTO(&records[i]))
	}
	if hasMore {
		last := records[len(records)-1]
		dto.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return dto
}
