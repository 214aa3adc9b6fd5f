package cart

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gelatokw/scoops-backend/internal/pricing"
	"github.com/gelatokw/scoops-backend/pkg/db/models"
	"github.com/gelatokw/scoops-backend/pkg/enums"
	pkgerrors "github.com/gelatokw/scoops-backend/pkg/errors"
	"github.com/gelatokw/scoops-backend/pkg/logger"
	"github.com/gelatokw/scoops-backend/pkg/outbox"
	"github.com/gelatokw/scoops-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type lineComposer interface {
	ComposeFlavorLine(ctx context.Context, input pricing.ComposeInput) (*pricing.ComposedLine, error)
	ComposeProductLine(ctx context.Context, productID string) (*pricing.ComposedLine, error)
}

// Service exposes the cart operations available to a customer.
type Service interface {
	GetCart(ctx context.Context, userID uuid.UUID) (CartDTO, error)
	AddLine(ctx context.Context, userID uuid.UUID, req AddLineRequest) (CartDTO, error)
	UpdateQuantity(ctx context.Context, userID uuid.UUID, lineKey string, quantity int) (CartDTO, error)
	RemoveLine(ctx context.Context, userID uuid.UUID, lineKey string) (CartDTO, error)
	Clear(ctx context.Context, userID uuid.UUID) (CartDTO, error)
}

// ServiceParams groups dependencies for the cart service.
type ServiceParams struct {
	Repo     *Repository
	Tx       txRunner
	Composer lineComposer
	Outbox   outboxPublisher
	Logger   *logger.Logger
}

type service struct {
	repo     *Repository
	tx       txRunner
	composer lineComposer
	outbox   outboxPublisher
	logg     *logger.Logger
}

// NewService builds a cart service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart repo is required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction runner is required")
	}
	if params.Composer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "line composer is required")
	}
	return &service{
		repo:     params.Repo,
		tx:       params.Tx,
		composer: params.Composer,
		outbox:   params.Outbox,
		logg:     params.Logger,
	}, nil
}

// GetCart returns the active cart, or an empty cart view when none exists.
func (s *service) GetCart(ctx context.Context, userID uuid.UUID) (CartDTO, error) {
	if userID == uuid.Nil {
		return CartDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	record, err := s.repo.FindActiveByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CartDTO{Lines: []LineDTO{}, Subtotal: "0.000"}, nil
		}
		return CartDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return cartToDTO(record), nil
}

// AddLine prices the requested customization and merges it into the cart.
// A line with the same customization key absorbs the quantity instead of
// duplicating; the original frozen unit price wins.
func (s *service) AddLine(ctx context.Context, userID uuid.UUID, req AddLineRequest) (CartDTO, error) {
	if userID == uuid.Nil {
		return CartDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if req.Quantity < 1 {
		return CartDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	composed, err := s.composeLine(ctx, req)
	if err != nil {
		return CartDTO{}, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		record, err := repo.EnsureActive(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ensure active cart")
		}

		existing, err := repo.FindLineByKey(ctx, record.ID, composed.LineKey)
		switch {
		case err == nil:
			if err := repo.UpdateLineQuantity(ctx, existing.ID, existing.Quantity+req.Quantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "merge cart line")
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			line := models.CartLine{
				CartID:        record.ID,
				LineKey:       composed.LineKey,
				BaseItemID:    composed.BaseItemID,
				Source:        composed.Source,
				Title:         composed.Title,
				ImageRef:      composed.ImageRef,
				ContainerID:   composed.ContainerID,
				ToppingIDs:    composed.ToppingIDs,
				UnitPriceFils: composed.UnitPriceFils,
				Quantity:      req.Quantity,
			}
			if err := repo.CreateLine(ctx, &line); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart line")
			}
		default:
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup cart line")
		}

		if err := repo.Touch(ctx, record.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "touch cart")
		}

		s.emitCartUpdated(ctx, tx, repo, userID, record.ID, "add_line")
		return nil
	})
	if err != nil {
		return CartDTO{}, err
	}

	return s.GetCart(ctx, userID)
}

// UpdateQuantity sets a line's absolute quantity. Anything below one removes
// the line entirely.
func (s *service) UpdateQuantity(ctx context.Context, userID uuid.UUID, lineKey string, quantity int) (CartDTO, error) {
	if quantity < 1 {
		return s.RemoveLine(ctx, userID, lineKey)
	}
	if err := s.mutateLine(ctx, userID, lineKey, "update_quantity", func(repo *Repository, line *models.CartLine) error {
		return repo.UpdateLineQuantity(ctx, line.ID, quantity)
	}); err != nil {
		return CartDTO{}, err
	}
	return s.GetCart(ctx, userID)
}

// RemoveLine deletes one line from the cart by its customization key.
func (s *service) RemoveLine(ctx context.Context, userID uuid.UUID, lineKey string) (CartDTO, error) {
	if err := s.mutateLine(ctx, userID, lineKey, "remove_line", func(repo *Repository, line *models.CartLine) error {
		return repo.DeleteLine(ctx, line.ID)
	}); err != nil {
		return CartDTO{}, err
	}
	return s.GetCart(ctx, userID)
}

// Clear drops every line from the active cart.
func (s *service) Clear(ctx context.Context, userID uuid.UUID) (CartDTO, error) {
	if userID == uuid.Nil {
		return CartDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		record, err := repo.FindActiveByUserID(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		if err := repo.DeleteLines(ctx, record.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}
		if err := repo.Touch(ctx, record.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "touch cart")
		}
		s.emitCartUpdated(ctx, tx, repo, userID, record.ID, "clear")
		return nil
	})
	if err != nil {
		return CartDTO{}, err
	}

	return s.GetCart(ctx, userID)
}

func (s *service) composeLine(ctx context.Context, req AddLineRequest) (*pricing.ComposedLine, error) {
	hasFlavor := req.FlavorID != nil && *req.FlavorID != uuid.Nil
	hasProduct := req.ProductID != nil && strings.TrimSpace(*req.ProductID) != ""
	if hasFlavor == hasProduct {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "exactly one of flavor_id or product_id is required")
	}

	if hasProduct {
		if req.ContainerID != nil || len(req.ToppingIDs) > 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "products cannot be customized")
		}
		return s.composer.ComposeProductLine(ctx, *req.ProductID)
	}

	return s.composer.ComposeFlavorLine(ctx, pricing.ComposeInput{
		FlavorID:    *req.FlavorID,
		ContainerID: req.ContainerID,
		ToppingIDs:  req.ToppingIDs,
	})
}

func (s *service) mutateLine(ctx context.Context, userID uuid.UUID, lineKey, mutation string, fn func(repo *Repository, line *models.CartLine) error) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if strings.TrimSpace(lineKey) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "line key is required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		record, err := repo.FindActiveByUserID(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "cart is empty")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}

		line, err := repo.FindLineByKey(ctx, record.ID, lineKey)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "cart line not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup cart line")
		}

		if err := fn(repo, line); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mutate cart line")
		}
		if err := repo.Touch(ctx, record.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "touch cart")
		}
		s.emitCartUpdated(ctx, tx, repo, userID, record.ID, mutation)
		return nil
	})
}

// emitCartUpdated queues a cart_updated event. Cart mutations never fail on
// notification problems; the error is logged and swallowed.
func (s *service) emitCartUpdated(ctx context.Context, tx *gorm.DB, repo *Repository, userID, cartID uuid.UUID, mutation string) {
	if s.outbox == nil {
		return
	}

	record, err := repo.FindActiveByUserID(ctx, userID)
	if err != nil {
		if s.logg != nil {
			s.logg.Warn(ctx, "skip cart_updated event, reload failed")
		}
		return
	}
	dto := cartToDTO(record)

	event := outbox.DomainEvent{
		EventType:     enums.EventCartUpdated,
		AggregateType: enums.AggregateCart,
		AggregateID:   cartID,
		Actor:         &outbox.ActorRef{UserID: userID, Role: string(enums.UserRoleCustomer)},
		Data: payloads.CartUpdatedEvent{
			CartID:       cartID,
			UserID:       userID,
			LineCount:    len(dto.Lines),
			ItemCount:    dto.ItemCount,
			SubtotalFils: dto.SubtotalFils,
			Mutation:     mutation,
		},
		Version: 1,
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil && s.logg != nil {
		s.logg.Error(ctx, "emit cart_updated event", err)
	}
}
