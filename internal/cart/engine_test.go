package cart

import (
	"context"
	"testing"

	"storefront-service/internal/kvstore"
	"storefront-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProduct(id int64, price float64) models.Product {
	return models.Product{
		ID:        id,
		Name:      "Ghost Rider",
		Price:     price,
		HeatLevel: 5,
		Rating:    4.8,
	}
}

func testCombo(id string, price float64) models.ComboOffer {
	return models.ComboOffer{
		ID:            id,
		Name:          "Inferno Pack",
		OriginalPrice: price + 10,
		OfferPrice:    price,
		Discount:      25,
	}
}

func TestAddItemMergesQuantities(t *testing.T) {
	engine := NewEngine(kvstore.NewMemoryStore())
	ctx := context.Background()

	_, err := engine.AddItem(ctx, "s1", testProduct(1, 14.00), 2)
	require.NoError(t, err)

	cart, err := engine.AddItem(ctx, "s1", testProduct(1, 14.00), 3)
	require.NoError(t, err)

	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)
	assert.Equal(t, 5, cart.ItemCount())
}

func TestAddItemKeepsInsertionOrder(t *testing.T) {
	engine := NewEngine(kvstore.NewMemoryStore())
	ctx := context.Background()

	_, err := engine.AddItem(ctx, "s1", testProduct(3, 9.90), 1)
	require.NoError(t, err)
	_, err = engine.AddItem(ctx, "s1", testProduct(1, 14.00), 1)
	require.NoError(t, err)
	cart, err := engine.AddItem(ctx, "s1", testProduct(3, 9.90), 1)
	require.NoError(t, err)

	require.Len(t, cart.Items, 2)
	assert.Equal(t, int64(3), cart.Items[0].ID)
	assert.Equal(t, int64(1), cart.Items[1].ID)
	assert.Equal(t, 2, cart.Items[0].Quantity)
}

func TestAddComboMergesAndDerivesID(t *testing.T) {
	engine := NewEngine(kvstore.NewMemoryStore())
	ctx := context.Background()

	_, err := engine.AddCombo(ctx, "s1", testCombo("combo1", 44.90), 1)
	require.NoError(t, err)

	cart, err := engine.AddCombo(ctx, "s1", testCombo("combo1", 44.90), 1)
	require.NoError(t, err)

	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.Equal(t, int64(1001), cart.Items[0].ID)
	assert.True(t, cart.Items[0].IsCombo)
	assert.Equal(t, "combo1", cart.Items[0].ComboID)
	assert.Equal(t, 44.90, cart.Items[0].Price)
}

func TestPlainAndComboIDSpacesDisjoint(t *testing.T) {
	engine := NewEngine(kvstore.NewMemoryStore())
	ctx := context.Background()

	_, err := engine.AddItem(ctx, "s1", testProduct(5, 12.50), 1)
	require.NoError(t, err)

	cart, err := engine.AddCombo(ctx, "s1", testCombo("combo5", 39.90), 1)
	require.NoError(t, err)

	require.Len(t, cart.Items, 2)
	assert.Equal(t, int64(5), cart.Items[0].ID)
	assert.Equal(t, int64(1005), cart.Items[1].ID)
}

func TestAddItemRejectsReservedIDRange(t *testing.T) {
	engine := NewEngine(kvstore.NewMemoryStore())
	ctx := context.Background()

	_, err := engine.AddItem(ctx, "s1", testProduct(ComboIDOffset, 5.00), 1)
	assert.ErrorIs(t, err, ErrProductIDReserved)
}

func TestRemoveOneDecrementsThenRemoves(t *testing.T) {
	engine := NewEngine(kvstore.NewMemoryStore())
	ctx := context.Background()

	_, err := engine.AddItem(ctx, "s1", testProduct(1, 14.00), 3)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = engine.RemoveOne(ctx, "s1", 1)
		require.NoError(t, err)
	}

	cart, err := engine.Load(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())

	// One further call is a no-op.
	cart, err = engine.RemoveOne(ctx, "s1", 1)
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
}

func TestClearIsIdempotent(t *testing.T) {
	engine := NewEngine(kvstore.NewMemoryStore())
	ctx := context.Background()

	_, err := engine.AddItem(ctx, "s1", testProduct(1, 14.00), 1)
	require.NoError(t, err)

	require.NoError(t, engine.Clear(ctx, "s1"))
	require.NoError(t, engine.Clear(ctx, "s1"))

	cart, err := engine.Load(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
}

func TestSnapshotSurvivesReload(t *testing.T) {
	store := kvstore.NewMemoryStore()
	ctx := context.Background()

	engine := NewEngine(store)
	_, err := engine.AddItem(ctx, "s1", testProduct(1, 14.00), 2)
	require.NoError(t, err)
	_, err = engine.AddCombo(ctx, "s1", testCombo("combo2", 44.90), 1)
	require.NoError(t, err)

	// Fresh engine over the same store, as after a process restart.
	reloaded, err := NewEngine(store).Load(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, reloaded.Items, 2)
	assert.Equal(t, 3, reloaded.ItemCount())
}

func TestPendingClearFlagDiscardsSnapshot(t *testing.T) {
	store := kvstore.NewMemoryStore()
	ctx := context.Background()

	engine := NewEngine(store)
	_, err := engine.AddItem(ctx, "s1", testProduct(1, 14.00), 2)
	require.NoError(t, err)

	require.NoError(t, store.Set(ctx, kvstore.PendingClearKey("s1"), []byte("1"), 0))

	cart, err := engine.Load(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())

	_, err = store.Get(ctx, kvstore.CartKey("s1"))
	assert.ErrorIs(t, err, kvstore.ErrNotFound)
	_, err = store.Get(ctx, kvstore.PendingClearKey("s1"))
	assert.ErrorIs(t, err, kvstore.ErrNotFound)
}

func TestDeriveComboID(t *testing.T) {
	tests := []struct {
		comboID string
		want    int64
		wantErr bool
	}{
		{"combo1", 1001, false},
		{"combo12", 1012, false},
		{"offer3", 1003, false},
		{"combo", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := DeriveComboID(tt.comboID)
		if tt.wantErr {
			assert.Error(t, err, tt.comboID)
			continue
		}
		require.NoError(t, err, tt.comboID)
		assert.Equal(t, tt.want, got, tt.comboID)
	}
}

func TestSubtotal(t *testing.T) {
	cart := &models.Cart{Items: []models.CartItem{
		{ID: 1, Price: 14.00, Quantity: 2},
		{ID: 1001, Price: 29.90, Quantity: 1, IsCombo: true, ComboID: "combo1"},
	}}

	assert.Equal(t, 57.90, Subtotal(cart))
}

func TestSubtotalAvoidsFloatDrift(t *testing.T) {
	cart := &models.Cart{Items: []models.CartItem{
		{ID: 1, Price: 0.10, Quantity: 3},
	}}

	assert.Equal(t, 0.30, Subtotal(cart))
}
