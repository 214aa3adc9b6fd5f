package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/gelatokw/scoops-backend/pkg/enums"
	pkgerrors "github.com/gelatokw/scoops-backend/pkg/errors"
	"github.com/gelatokw/scoops-backend/pkg/types"
)

// Stage names one step of the checkout machine.
type Stage string

const (
	StageCollectingAddress Stage = "collecting_address"
	StageAddressValidated  Stage = "address_validated"
	StageCollectingPayment Stage = "collecting_payment"
	StageSubmitting        Stage = "submitting"
	StageCompleted         Stage = "completed"
	StageFailed            Stage = "failed"
)

// stateTTL bounds how long an abandoned checkout lingers in redis.
const stateTTL = 2 * time.Hour

// State is the per-user checkout progress persisted between requests.
type State struct {
	Stage               Stage               `json:"stage"`
	Address             *types.Address      `json:"address,omitempty"`
	DeliveryDate        string              `json:"delivery_date,omitempty"`
	DeliverySlot        string              `json:"delivery_slot,omitempty"`
	PaymentMethod       enums.PaymentMethod `json:"payment_method,omitempty"`
	PaymentSourceID     string              `json:"payment_source_id,omitempty"`
	SpecialInstructions *string             `json:"special_instructions,omitempty"`
	FailureReason       string              `json:"failure_reason,omitempty"`
	OrderID             *uuid.UUID          `json:"order_id,omitempty"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

func freshState() *State {
	return &State{Stage: StageCollectingAddress, UpdatedAt: time.Now()}
}

type stateKV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CheckoutStateKey(userID string) string
}

// StateStore persists checkout progress in redis, one JSON blob per user.
type StateStore struct {
	kv stateKV
}

// NewStateStore builds a redis-backed state store.
func NewStateStore(kv stateKV) (*StateStore, error) {
	if kv == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "redis store is required")
	}
	return &StateStore{kv: kv}, nil
}

// Load returns the user's checkout state, or a fresh machine when none exists.
func (s *StateStore) Load(ctx context.Context, userID uuid.UUID) (*State, error) {
	raw, err := s.kv.Get(ctx, s.kv.CheckoutStateKey(userID.String()))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return freshState(), nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load checkout state")
	}

	var state State
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		// unreadable state is treated as abandoned
		return freshState(), nil
	}
	return &state, nil
}

// Save writes the state back with a sliding TTL.
func (s *StateStore) Save(ctx context.Context, userID uuid.UUID, state *State) error {
	state.UpdatedAt = time.Now()
	raw, err := json.Marshal(state)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode checkout state")
	}
	if err := s.kv.Set(ctx, s.kv.CheckoutStateKey(userID.String()), string(raw), stateTTL); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save checkout state")
	}
	return nil
}

// Reset drops the user's checkout state entirely.
func (s *StateStore) Reset(ctx context.Context, userID uuid.UUID) error {
	if err := s.kv.Del(ctx, s.kv.CheckoutStateKey(userID.String())); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reset checkout state")
	}
	return nil
}
