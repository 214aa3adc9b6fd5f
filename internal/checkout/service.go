package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"
	"gorm.io/gorm"

	"github.com/gelatokw/scoops-backend/internal/catalog"
	"github.com/gelatokw/scoops-backend/internal/cart"
	"github.com/gelatokw/scoops-backend/internal/orders"
	"github.com/gelatokw/scoops-backend/pkg/db/models"
	"github.com/gelatokw/scoops-backend/pkg/enums"
	pkgerrors "github.com/gelatokw/scoops-backend/pkg/errors"
	"github.com/gelatokw/scoops-backend/pkg/logger"
	"github.com/gelatokw/scoops-backend/pkg/money"
	"github.com/gelatokw/scoops-backend/pkg/outbox"
	"github.com/gelatokw/scoops-backend/pkg/outbox/payloads"
	"github.com/gelatokw/scoops-backend/pkg/square"
)

const deliveryDateLayout = "2006-01-02"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stateStore interface {
	Load(ctx context.Context, userID uuid.UUID) (*State, error)
	Save(ctx context.Context, userID uuid.UUID, state *State) error
	Reset(ctx context.Context, userID uuid.UUID) error
}

type zoneChecker interface {
	Serviceable(ctx context.Context, city, province string) (bool, error)
}

type feeCalculator interface {
	ShippingFeeFils(subtotalFils int64) int64
}

type dedupPublisher interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type cardCharger interface {
	CreatePayment(ctx context.Context, params square.PaymentCreateParams) (*sq.Payment, error)
}

// Service drives the checkout state machine through to a placed order.
type Service interface {
	GetState(ctx context.Context, userID uuid.UUID) (StateDTO, error)
	SubmitAddress(ctx context.Context, userID uuid.UUID, req AddressRequest) (StateDTO, error)
	SelectDelivery(ctx context.Context, userID uuid.UUID, req DeliveryRequest) (StateDTO, error)
	Submit(ctx context.Context, userID uuid.UUID) (SubmitResponse, error)
	Abandon(ctx context.Context, userID uuid.UUID) error
}

// ServiceParams groups dependencies for the checkout service.
type ServiceParams struct {
	States   stateStore
	Zones    zoneChecker
	CartRepo *cart.Repository
	Catalog  *catalog.Repository
	Orders   *orders.Repository
	Fee      feeCalculator
	Tx       txRunner
	Outbox   dedupPublisher
	Payments cardCharger
	Logger   *logger.Logger
}

type service struct {
	states   stateStore
	zones    zoneChecker
	cartRepo *cart.Repository
	catalog  *catalog.Repository
	orders   *orders.Repository
	fee      feeCalculator
	tx       txRunner
	outbox   dedupPublisher
	payments cardCharger
	logg     *logger.Logger
}

// NewService builds the checkout orchestrator. The payments client is
// optional; without it card checkouts are refused.
func NewService(params ServiceParams) (Service, error) {
	if params.States == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "state store is required")
	}
	if params.Zones == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "zone checker is required")
	}
	if params.CartRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart repo is required")
	}
	if params.Catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog repo is required")
	}
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "orders repo is required")
	}
	if params.Fee == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "fee calculator is required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction runner is required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "outbox publisher is required")
	}
	return &service{
		states:   params.States,
		zones:    params.Zones,
		cartRepo: params.CartRepo,
		catalog:  params.Catalog,
		orders:   params.Orders,
		fee:      params.Fee,
		tx:       params.Tx,
		outbox:   params.Outbox,
		payments: params.Payments,
		logg:     params.Logger,
	}, nil
}

// GetState returns the user's current checkout progress.
func (s *service) GetState(ctx context.Context, userID uuid.UUID) (StateDTO, error) {
	if userID == uuid.Nil {
		return StateDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	state, err := s.states.Load(ctx, userID)
	if err != nil {
		return StateDTO{}, err
	}
	return stateToDTO(state), nil
}

// SubmitAddress validates the delivery address against the active zones and
// advances the machine. A non-serviceable address keeps the machine where it
// is and reports why.
func (s *service) SubmitAddress(ctx context.Context, userID uuid.UUID, req AddressRequest) (StateDTO, error) {
	if userID == uuid.Nil {
		return StateDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	state, err := s.states.Load(ctx, userID)
	if err != nil {
		return StateDTO{}, err
	}

	ok, err := s.zones.Serviceable(ctx, req.City, req.Province)
	if err != nil {
		return StateDTO{}, err
	}
	if !ok {
		return stateToDTO(state), pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("we do not deliver to %s, %s yet", strings.TrimSpace(req.City), strings.TrimSpace(req.Province)))
	}

	address := req.toAddress()
	state.Address = &address
	state.Stage = StageAddressValidated
	state.FailureReason = ""
	if err := s.states.Save(ctx, userID, state); err != nil {
		return StateDTO{}, err
	}
	return stateToDTO(state), nil
}

// SelectDelivery records the delivery window and payment method. It requires
// a validated address.
func (s *service) SelectDelivery(ctx context.Context, userID uuid.UUID, req DeliveryRequest) (StateDTO, error) {
	if userID == uuid.Nil {
		return StateDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	state, err := s.states.Load(ctx, userID)
	if err != nil {
		return StateDTO{}, err
	}
	if state.Address == nil || (state.Stage != StageAddressValidated && state.Stage != StageCollectingPayment && state.Stage != StageFailed) {
		return stateToDTO(state), pkgerrors.New(pkgerrors.CodeStateConflict, "delivery address must be validated first")
	}

	date, err := time.Parse(deliveryDateLayout, req.DeliveryDate)
	if err != nil {
		return stateToDTO(state), pkgerrors.New(pkgerrors.CodeValidation, "delivery date must be YYYY-MM-DD")
	}
	today := time.Now().Truncate(24 * time.Hour)
	if date.Before(today) {
		return stateToDTO(state), pkgerrors.New(pkgerrors.CodeValidation, "delivery date is in the past")
	}
	if strings.TrimSpace(req.DeliverySlot) == "" {
		return stateToDTO(state), pkgerrors.New(pkgerrors.CodeValidation, "delivery slot is required")
	}

	method, err := enums.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return stateToDTO(state), pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}
	if method == enums.PaymentMethodCard && strings.TrimSpace(req.PaymentSourceID) == "" {
		return stateToDTO(state), pkgerrors.New(pkgerrors.CodeValidation, "card payments require a payment source")
	}

	state.DeliveryDate = req.DeliveryDate
	state.DeliverySlot = strings.TrimSpace(req.DeliverySlot)
	state.PaymentMethod = method
	state.PaymentSourceID = strings.TrimSpace(req.PaymentSourceID)
	state.SpecialInstructions = req.SpecialInstructions
	state.Stage = StageCollectingPayment
	state.FailureReason = ""
	if err := s.states.Save(ctx, userID, state); err != nil {
		return StateDTO{}, err
	}
	return stateToDTO(state), nil
}

// Submit converts the cart into an order. It reads a fresh cart snapshot,
// captures card payments up front, and persists the order, the cart
// conversion, and the outbox event in one transaction. Any failure parks the
// machine in failed with the reason; nothing partial survives.
func (s *service) Submit(ctx context.Context, userID uuid.UUID) (SubmitResponse, error) {
	if userID == uuid.Nil {
		return SubmitResponse{}, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	state, err := s.states.Load(ctx, userID)
	if err != nil {
		return SubmitResponse{}, err
	}
	if state.Stage != StageCollectingPayment && state.Stage != StageFailed {
		return SubmitResponse{}, pkgerrors.New(pkgerrors.CodeStateConflict, "checkout is not ready to submit")
	}
	if state.Address == nil || state.DeliveryDate == "" || state.DeliverySlot == "" || !state.PaymentMethod.IsValid() {
		return SubmitResponse{}, pkgerrors.New(pkgerrors.CodeStateConflict, "checkout is missing address or delivery details")
	}

	cartRecord, err := s.cartRepo.FindActiveByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return SubmitResponse{}, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}
		return SubmitResponse{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if len(cartRecord.Lines) == 0 {
		return SubmitResponse{}, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	state.Stage = StageSubmitting
	if err := s.states.Save(ctx, userID, state); err != nil {
		return SubmitResponse{}, err
	}

	response, err := s.placeOrder(ctx, userID, state, cartRecord)
	if err != nil {
		state.Stage = StageFailed
		state.FailureReason = err.Error()
		if saveErr := s.states.Save(ctx, userID, state); saveErr != nil && s.logg != nil {
			s.logg.Error(ctx, "park checkout in failed state", saveErr)
		}
		return SubmitResponse{}, err
	}

	if err := s.states.Reset(ctx, userID); err != nil && s.logg != nil {
		s.logg.Warn(ctx, "reset checkout state after completion")
	}
	return response, nil
}

// Abandon drops the checkout machine without touching the cart.
func (s *service) Abandon(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	return s.states.Reset(ctx, userID)
}

func (s *service) placeOrder(ctx context.Context, userID uuid.UUID, state *State, cartRecord *models.CartRecord) (SubmitResponse, error) {
	var subtotal int64
	for _, line := range cartRecord.Lines {
		subtotal += line.UnitPriceFils * int64(line.Quantity)
	}
	shippingFee := s.fee.ShippingFeeFils(subtotal)
	total := subtotal + shippingFee

	items, err := s.snapshotItems(ctx, cartRecord.Lines)
	if err != nil {
		return SubmitResponse{}, err
	}

	orderID := uuid.New()
	var paymentRef *string
	if state.PaymentMethod == enums.PaymentMethodCard {
		ref, err := s.captureCardPayment(ctx, orderID, total, state.PaymentSourceID)
		if err != nil {
			return SubmitResponse{}, err
		}
		paymentRef = ref
	}

	order := models.Order{
		ID:                  orderID,
		UserID:              userID,
		Status:              enums.OrderStatusPending,
		SubtotalFils:        subtotal,
		ShippingFeeFils:     shippingFee,
		TotalFils:           total,
		DeliveryAddress:     *state.Address,
		DeliveryDate:        state.DeliveryDate,
		DeliverySlot:        state.DeliverySlot,
		SpecialInstructions: state.SpecialInstructions,
		PaymentMethod:       state.PaymentMethod,
		PaymentRef:          paymentRef,
		Items:               items,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.orders.WithTx(tx)
		cartRepo := s.cartRepo.WithTx(tx)

		if err := ordersRepo.Create(ctx, &order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		if err := cartRepo.MarkConverted(ctx, cartRecord.ID, time.Now()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "convert cart")
		}
		if err := cartRepo.DeleteLines(ctx, cartRecord.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear converted cart")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: userID, Role: string(enums.UserRoleCustomer)},
			Data: payloads.OrderCreatedEvent{
				OrderID:         order.ID,
				UserID:          userID,
				CartID:          cartRecord.ID,
				SubtotalFils:    subtotal,
				ShippingFeeFils: shippingFee,
				TotalFils:       total,
				PaymentMethod:   state.PaymentMethod,
			},
			Version: 1,
		}
		return s.outbox.EmitIfNotExists(ctx, tx, event)
	})
	if err != nil {
		return SubmitResponse{}, err
	}

	return SubmitResponse{
		OrderID:     order.ID,
		Subtotal:    money.FormatKWD(subtotal),
		ShippingFee: money.FormatKWD(shippingFee),
		Total:       money.FormatKWD(total),
		TotalFils:   total,
	}, nil
}

func (s *service) captureCardPayment(ctx context.Context, orderID uuid.UUID, totalFils int64, sourceID string) (*string, error) {
	if s.payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "card payments are not configured")
	}
	payment, err := s.payments.CreatePayment(ctx, square.PaymentCreateParams{
		AmountFils:  totalFils,
		Currency:    "KWD",
		SourceID:    sourceID,
		ReferenceID: orderID.String(),
		Note:        "scoops order " + orderID.String(),
	})
	if err != nil {
		return nil, err
	}
	if id := payment.GetID(); id != nil && *id != "" {
		ref := *id
		return &ref, nil
	}
	return nil, nil
}

// snapshotItems denormalizes cart lines into immutable order items, looking
// up container and topping names so the snapshot survives catalog edits.
func (s *service) snapshotItems(ctx context.Context, lines []models.CartLine) ([]models.OrderItem, error) {
	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		item := models.OrderItem{
			LineKey:       line.LineKey,
			BaseItemID:    line.BaseItemID,
			Source:        line.Source,
			Title:         line.Title,
			UnitPriceFils: line.UnitPriceFils,
			Quantity:      line.Quantity,
			LineTotalFils: line.UnitPriceFils * int64(line.Quantity),
		}

		if line.ContainerID != nil {
			container, err := s.catalog.FindContainerByID(ctx, *line.ContainerID)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve container name")
			}
			name := container.Name
			item.ContainerName = &name
		}
		if len(line.ToppingIDs) > 0 {
			toppings, err := s.catalog.FindToppingsByIDs(ctx, line.ToppingIDs)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve topping names")
			}
			for _, tp := range toppings {
				item.ToppingNames = append(item.ToppingNames, tp.Name)
			}
		}

		items = append(items, item)
	}
	return items, nil
}
