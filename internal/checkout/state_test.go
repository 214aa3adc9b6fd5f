package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gelatokw/scoops-backend/pkg/enums"
)

type fakeKV struct {
	values map[string]string
}

func newFakeKV() *fakeKV {
	return &fakeKV{values: make(map[string]string)}
}

func (f *fakeKV) Get(_ context.Context, key string) (string, error) {
	value, ok := f.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return value, nil
}

func (f *fakeKV) Set(_ context.Context, key string, value any, _ time.Duration) error {
	f.values[key] = value.(string)
	return nil
}

func (f *fakeKV) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.values, key)
	}
	return nil
}

func (f *fakeKV) CheckoutStateKey(userID string) string {
	return "scoops:checkout:" + userID
}

func TestStateStoreRoundTrip(t *testing.T) {
	kv := newFakeKV()
	store, err := NewStateStore(kv)
	require.NoError(t, err)

	userID := uuid.New()
	ctx := context.Background()

	// missing key yields a fresh machine
	state, err := store.Load(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, StageCollectingAddress, state.Stage)

	state.Stage = StageCollectingPayment
	state.DeliveryDate = "2026-09-05"
	state.PaymentMethod = enums.PaymentMethodKnet
	require.NoError(t, store.Save(ctx, userID, state))

	loaded, err := store.Load(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, StageCollectingPayment, loaded.Stage)
	assert.Equal(t, "2026-09-05", loaded.DeliveryDate)
	assert.Equal(t, enums.PaymentMethodKnet, loaded.PaymentMethod)

	require.NoError(t, store.Reset(ctx, userID))
	reset, err := store.Load(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, StageCollectingAddress, reset.Stage)
}

func TestStateStoreUnreadableStateDiscarded(t *testing.T) {
	kv := newFakeKV()
	store, err := NewStateStore(kv)
	require.NoError(t, err)

	userID := uuid.New()
	kv.values[kv.CheckoutStateKey(userID.String())] = "{not json"

	state, err := store.Load(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, StageCollectingAddress, state.Stage)
}
