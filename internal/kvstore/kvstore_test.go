package kvstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), 0))

	raw, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), raw)

	require.NoError(t, store.Delete(ctx, "k"))
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreDeleteAbsentKey(t *testing.T) {
	store := NewMemoryStore()
	assert.NoError(t, store.Delete(context.Background(), "missing"))
}

func TestMemoryStoreTTL(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), 10*time.Millisecond))

	_, err := store.Get(ctx, "k")
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestJSONHelpers(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	type payload struct {
		Name  string  `json:"name"`
		Price float64 `json:"price"`
	}

	require.NoError(t, SetJSON(ctx, store, "p", payload{Name: "Alpine Fire", Price: 14.00}, 0))

	var out payload
	require.NoError(t, GetJSON(ctx, store, "p", &out))
	assert.Equal(t, "Alpine Fire", out.Name)
	assert.Equal(t, 14.00, out.Price)

	err := GetJSON(ctx, store, "missing", &out)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestContractKeysAreSessionScoped(t *testing.T) {
	assert.Equal(t, "cart:s1", CartKey("s1"))
	assert.Equal(t, "customer:s1", CustomerKey("s1"))
	assert.Equal(t, "lastpayment:s1", LastPaymentKey("s1"))
	assert.Equal(t, "pendingclear:s1", PendingClearKey("s1"))
	assert.Equal(t, "pendingnotification:s1", PendingNotificationKey("s1"))
	assert.Equal(t, "chathistory:s1", ChatHistoryKey("s1"))
	assert.Equal(t, "checkoutstate:s1", CheckoutStateKey("s1"))
	assert.Equal(t, "catalog:products:all", ProductCacheKey(""))
	assert.Equal(t, "catalog:products:sauces", ProductCacheKey("sauces"))
}
