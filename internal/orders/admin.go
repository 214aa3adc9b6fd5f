package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gelatokw/scoops-backend/pkg/enums"
	pkgerrors "github.com/gelatokw/scoops-backend/pkg/errors"
	"github.com/gelatokw/scoops-backend/pkg/outbox"
	"github.com/gelatokw/scoops-backend/pkg/outbox/payloads"
	"github.com/gelatokw/scoops-backend/pkg/pagination"
)

// forwardTransitions is the only legal non-cancel step from each status.
var forwardTransitions = map[enums.OrderStatus]enums.OrderStatus{
	enums.OrderStatusPending:    enums.OrderStatusProcessing,
	enums.OrderStatusProcessing: enums.OrderStatusShipped,
	enums.OrderStatusShipped:    enums.OrderStatusDelivered,
}

// AdminService exposes the role-gated order operations.
type AdminService interface {
	ListAll(ctx context.Context, status *enums.OrderStatus, params pagination.Params) (ListDTO, error)
	Get(ctx context.Context, orderID uuid.UUID) (OrderDTO, error)
	SetStatus(ctx context.Context, adminID, orderID uuid.UUID, next enums.OrderStatus) (OrderDTO, error)
	ListRefunds(ctx context.Context, status *enums.RefundStatus, params pagination.Params) (RefundListDTO, error)
	ReviewRefund(ctx context.Context, adminID, refundID uuid.UUID, approve bool) (RefundDTO, error)
}

// AdminServiceParams groups dependencies for the admin order service.
type AdminServiceParams struct {
	Repo   *Repository
	Tx     txRunner
	Outbox outboxPublisher
}

type adminService struct {
	repo   *Repository
	tx     txRunner
	outbox outboxPublisher
}

// NewAdminService builds the admin order service.
func NewAdminService(params AdminServiceParams) (AdminService, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "orders repo is required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction runner is required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "outbox publisher is required")
	}
	return &adminService{repo: params.Repo, tx: params.Tx, outbox: params.Outbox}, nil
}

// ListAll returns a page of every order, optionally filtered by status.
func (s *adminService) ListAll(ctx context.Context, status *enums.OrderStatus, params pagination.Params) (ListDTO, error) {
	records, err := s.repo.ListAll(ctx, status, params)
	if err != nil {
		return ListDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return buildListDTO(records, params.Limit), nil
}

// Get loads any order by id.
func (s *adminService) Get(ctx context.Context, orderID uuid.UUID) (OrderDTO, error) {
	record, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return OrderDTO{}, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "order not found")
		}
		return OrderDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return orderToDTO(record), nil
}

// SetStatus advances an order one step along the fulfillment path, or
// cancels it from any non-terminal state. Backward moves and skips are
// rejected.
func (s *adminService) SetStatus(ctx context.Context, adminID, orderID uuid.UUID, next enums.OrderStatus) (OrderDTO, error) {
	if !next.IsValid() {
		return OrderDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status")
	}

	record, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return OrderDTO{}, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "order not found")
		}
		return OrderDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	if !transitionAllowed(record.Status, next) {
		return OrderDTO{}, pkgerrors.New(pkgerrors.CodeStateConflict, "illegal order status transition")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		moved, err := repo.TransitionStatus(ctx, record.ID, record.Status, next)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   record.ID,
			Actor:         &outbox.ActorRef{UserID: adminID, Role: string(enums.UserRoleAdmin)},
			Data: payloads.OrderStatusChangedEvent{
				OrderID:    record.ID,
				UserID:     record.UserID,
				FromStatus: record.Status,
				ToStatus:   next,
				ChangedAt:  time.Now(),
			},
			Version: 1,
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return OrderDTO{}, err
	}

	record.Status = next
	return orderToDTO(record), nil
}

// ListRefunds returns a page of refund requests, optionally by status.
func (s *adminService) ListRefunds(ctx context.Context, status *enums.RefundStatus, params pagination.Params) (RefundListDTO, error) {
	records, err := s.repo.ListRefunds(ctx, status, params)
	if err != nil {
		return RefundListDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list refund requests")
	}

	pageSize := pagination.NormalizeLimit(params.Limit)
	dto := RefundListDTO{Refunds: make([]RefundDTO, 0, len(records))}

	hasMore := len(records) > pageSize
	if hasMore {
		records = records[:pageSize]
	}
	for i := range records {
		dto.Refunds = append(dto.Refunds, refundToDTO(&records[i]))
	}
	if hasMore {
		last := records[len(records)-1]
		dto.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return dto, nil
}

// ReviewRefund records an approve or deny decision on a pending request.
func (s *adminService) ReviewRefund(ctx context.Context, adminID, refundID uuid.UUID, approve bool) (RefundDTO, error) {
	refund, err := s.repo.FindRefundByID(ctx, refundID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RefundDTO{}, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "refund request not found")
		}
		return RefundDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load refund request")
	}
	if refund.Status != enums.RefundStatusPending {
		return RefundDTO{}, pkgerrors.New(pkgerrors.CodeStateConflict, "refund request already reviewed")
	}

	decision := enums.RefundStatusDenied
	if approve {
		decision = enums.RefundStatusApproved
	}
	now := time.Now()

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		reviewed, err := repo.ReviewRefund(ctx, refundID, decision, adminID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "review refund request")
		}
		if !reviewed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "refund request reviewed concurrently")
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventRefundReviewed,
			AggregateType: enums.AggregateRefundRequest,
			AggregateID:   refund.ID,
			Actor:         &outbox.ActorRef{UserID: adminID, Role: string(enums.UserRoleAdmin)},
			Data: payloads.RefundReviewedEvent{
				RefundRequestID: refund.ID,
				OrderID:         refund.OrderID,
				Status:          decision,
				ReviewedBy:      adminID,
			},
			Version: 1,
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return RefundDTO{}, err
	}

	refund.Status = decision
	refund.ReviewedBy = &adminID
	refund.ReviewedAt = &now
	return refundToDTO(refund), nil
}

func transitionAllowed(from, to enums.OrderStatus) bool {
	if from.IsTerminal() {
		return false
	}
	if to == enums.OrderStatusCancelled {
		return true
	}
	return forwardTransitions[from] == to
}
