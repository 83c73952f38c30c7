package checkout

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"storefront-service/config"
	"storefront-service/internal/cart"
	"storefront-service/internal/kvstore"
	"storefront-service/internal/models"
	"storefront-service/internal/upstream"

	"github.com/stretchr/testify/assert"
	tfrequire "github.com/stretchr/testify/require"
)

type fakeOrders struct {
	resp  *upstream.OrderResponse
	err   error
	calls int
	last  *upstream.OrderRequest
}

func (f *fakeOrders) AddOrder(ctx context.Context, req *upstream.OrderRequest) (*upstream.OrderResponse, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func paypalCfg() config.PayPalConfig {
	return config.PayPalConfig{
		BaseURL:   "https://www.paypal.com/cgi-bin/webscr",
		Business:  "shop@example.ch",
		Currency:  "CHF",
		ReturnURL: "http://localhost:8080/payment/return",
		CancelURL: "http://localhost:8080/payment/cancel",
	}
}

func newTestOrchestrator(store kvstore.Store, orders OrderSubmitter, business config.BusinessConfig) (*Orchestrator, *cart.Engine) {
	engine := cart.NewEngine(store)
	return NewOrchestrator(store, engine, orders, nil, paypalCfg(), business), engine
}

func seedCart(t *testing.T, engine *cart.Engine, session string) {
	t.Helper()
	ctx := context.Background()

	_, err := engine.AddItem(ctx, session, models.Product{ID: 1, Name: "Jalapeño Gold", Price: 14.00}, 2)
	tfrequire.NoError(t, err)
	_, err = engine.AddCombo(ctx, session, models.ComboOffer{
		ID: "combo1", Name: "Starter Trio", OriginalPrice: 39.90, OfferPrice: 29.90, Discount: 25,
	}, 1)
	tfrequire.NoError(t, err)
}

func TestComputeTotal(t *testing.T) {
	orch, _ := newTestOrchestrator(kvstore.NewMemoryStore(), &fakeOrders{}, config.BusinessConfig{})

	c := &models.Cart{Items: []models.CartItem{
		{ID: 1, Price: 14.00, Quantity: 2},
		{ID: 1001, Price: 29.90, Quantity: 1, IsCombo: true, ComboID: "combo1"},
	}}

	subtotal, shipping, total := orch.ComputeTotal(c)
	assert.Equal(t, 57.90, subtotal)
	assert.Equal(t, 0.0, shipping)
	assert.Equal(t, 57.90, total)
}

func TestComputeTotalWithShipping(t *testing.T) {
	orch, _ := newTestOrchestrator(kvstore.NewMemoryStore(), &fakeOrders{},
		config.BusinessConfig{ShippingCost: 7.50})

	c := &models.Cart{Items: []models.CartItem{{ID: 1, Price: 10.00, Quantity: 1}}}

	_, shipping, total := orch.ComputeTotal(c)
	assert.Equal(t, 7.50, shipping)
	assert.Equal(t, 17.50, total)
}

func TestBeginPaymentRejectsInvalidForm(t *testing.T) {
	store := kvstore.NewMemoryStore()
	orch, engine := newTestOrchestrator(store, &fakeOrders{}, config.BusinessConfig{})
	ctx := context.Background()
	seedCart(t, engine, "s1")

	info := validInfo()
	info.PostalCode = "123"

	_, err := orch.BeginPayment(ctx, "s1", info)

	var valErr *ValidationError
	tfrequire.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields, "postal_code")

	status, err := orch.Status(ctx, "s1")
	tfrequire.NoError(t, err)
	assert.Equal(t, models.CheckoutStatusPending, status)
}

func TestBeginPaymentRejectsEmptyCart(t *testing.T) {
	orch, _ := newTestOrchestrator(kvstore.NewMemoryStore(), &fakeOrders{}, config.BusinessConfig{})

	_, err := orch.BeginPayment(context.Background(), "s1", validInfo())
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestBeginPaymentEnforcesMinimumOrder(t *testing.T) {
	store := kvstore.NewMemoryStore()
	orch, engine := newTestOrchestrator(store, &fakeOrders{},
		config.BusinessConfig{MinOrderAmount: 100.00})
	ctx := context.Background()
	seedCart(t, engine, "s1")

	_, err := orch.BeginPayment(ctx, "s1", validInfo())
	assert.ErrorIs(t, err, ErrBelowMinimum)
}

func TestBeginPaymentBuildsRedirectAndTransitions(t *testing.T) {
	store := kvstore.NewMemoryStore()
	orch, engine := newTestOrchestrator(store, &fakeOrders{}, config.BusinessConfig{})
	ctx := context.Background()
	seedCart(t, engine, "s1")

	redirect, err := orch.BeginPayment(ctx, "s1", validInfo())
	tfrequire.NoError(t, err)

	u, err := url.Parse(redirect)
	tfrequire.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "57.90", q.Get("amount"))
	assert.Equal(t, "CHF", q.Get("currency_code"))
	assert.Equal(t, "shop@example.ch", q.Get("business"))
	assert.True(t, strings.Contains(q.Get("return"), "session=s1"))
	assert.True(t, strings.Contains(q.Get("cancel_return"), "session=s1"))

	status, err := orch.Status(ctx, "s1")
	tfrequire.NoError(t, err)
	assert.Equal(t, models.CheckoutStatusProcessing, status)

	// Customer info persisted for the confirmation leg.
	var saved models.CustomerInfo
	tfrequire.NoError(t, kvstore.GetJSON(ctx, store, kvstore.CustomerKey("s1"), &saved))
	assert.Equal(t, "Anna", saved.FirstName)
}

func TestBeginPaymentBlockedWhileProcessing(t *testing.T) {
	store := kvstore.NewMemoryStore()
	orch, engine := newTestOrchestrator(store, &fakeOrders{}, config.BusinessConfig{})
	ctx := context.Background()
	seedCart(t, engine, "s1")

	_, err := orch.BeginPayment(ctx, "s1", validInfo())
	tfrequire.NoError(t, err)

	_, err = orch.BeginPayment(ctx, "s1", validInfo())
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestConfirmPaymentRequiresProcessing(t *testing.T) {
	orch, _ := newTestOrchestrator(kvstore.NewMemoryStore(), &fakeOrders{}, config.BusinessConfig{})

	_, err := orch.ConfirmPayment(context.Background(), "s1", true)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestConfirmPaymentSuccessFlow(t *testing.T) {
	store := kvstore.NewMemoryStore()
	orders := &fakeOrders{resp: &upstream.OrderResponse{Success: true, OrderNumber: "HS-1042"}}
	orders.resp.Data.OrderNumber = "HS-1042"
	orders.resp.Data.CreatedAt = "2026-08-31T10:00:00Z"

	orch, engine := newTestOrchestrator(store, orders, config.BusinessConfig{MarkerTTLMinutes: 5})
	ctx := context.Background()
	seedCart(t, engine, "s1")

	_, err := orch.BeginPayment(ctx, "s1", validInfo())
	tfrequire.NoError(t, err)

	result, err := orch.ConfirmPayment(ctx, "s1", true)
	tfrequire.NoError(t, err)

	assert.Equal(t, models.CheckoutStatusCompleted, result.Status)
	assert.Equal(t, "HS-1042", result.OrderNumber)
	assert.Equal(t, "2026-08-31T10:00:00Z", result.CreatedAt)

	// Order payload carried the full contract.
	tfrequire.NotNil(t, orders.last)
	assert.Equal(t, "paypal", orders.last.PaymentMethod)
	assert.Equal(t, "completed", orders.last.PaymentStatus)
	assert.Equal(t, 57.90, orders.last.TotalAmount)
	assert.Len(t, orders.last.Cart, 2)
	assert.Equal(t, "Anna", orders.last.CustomerInfo.FirstName)

	// Cart cleared only after the save succeeded.
	c, err := engine.Load(ctx, "s1")
	tfrequire.NoError(t, err)
	assert.True(t, c.IsEmpty())

	marker, err := orch.LastPayment(ctx, "s1")
	tfrequire.NoError(t, err)
	tfrequire.NotNil(t, marker)
	assert.Equal(t, "completed", marker.Status)

	status, err := orch.Status(ctx, "s1")
	tfrequire.NoError(t, err)
	assert.Equal(t, models.CheckoutStatusCompleted, status)
}

func TestConfirmPaymentDeclinedPreservesCart(t *testing.T) {
	store := kvstore.NewMemoryStore()
	orders := &fakeOrders{}
	orch, engine := newTestOrchestrator(store, orders, config.BusinessConfig{})
	ctx := context.Background()
	seedCart(t, engine, "s1")

	_, err := orch.BeginPayment(ctx, "s1", validInfo())
	tfrequire.NoError(t, err)

	result, err := orch.ConfirmPayment(ctx, "s1", false)
	tfrequire.NoError(t, err)
	assert.Equal(t, models.CheckoutStatusError, result.Status)

	// No save was attempted, the cart is untouched.
	assert.Equal(t, 0, orders.calls)
	c, err := engine.Load(ctx, "s1")
	tfrequire.NoError(t, err)
	assert.Equal(t, 3, c.ItemCount())
}

func TestConfirmPaymentSaveFailurePreservesCart(t *testing.T) {
	store := kvstore.NewMemoryStore()
	orders := &fakeOrders{err: &upstream.RemoteRejection{Op: "add_order.php", Message: "db down"}}
	orch, engine := newTestOrchestrator(store, orders, config.BusinessConfig{})
	ctx := context.Background()
	seedCart(t, engine, "s1")

	_, err := orch.BeginPayment(ctx, "s1", validInfo())
	tfrequire.NoError(t, err)

	_, err = orch.ConfirmPayment(ctx, "s1", true)
	tfrequire.Error(t, err)

	var rejErr *upstream.RemoteRejection
	assert.True(t, errors.As(err, &rejErr))

	status, err := orch.Status(ctx, "s1")
	tfrequire.NoError(t, err)
	assert.Equal(t, models.CheckoutStatusError, status)

	c, err := engine.Load(ctx, "s1")
	tfrequire.NoError(t, err)
	assert.False(t, c.IsEmpty())

	marker, err := orch.LastPayment(ctx, "s1")
	tfrequire.NoError(t, err)
	assert.Nil(t, marker)
}

func TestRetryFromError(t *testing.T) {
	store := kvstore.NewMemoryStore()
	orch, engine := newTestOrchestrator(store, &fakeOrders{}, config.BusinessConfig{})
	ctx := context.Background()
	seedCart(t, engine, "s1")

	_, err := orch.BeginPayment(ctx, "s1", validInfo())
	tfrequire.NoError(t, err)
	_, err = orch.ConfirmPayment(ctx, "s1", false)
	tfrequire.NoError(t, err)

	tfrequire.NoError(t, orch.Retry(ctx, "s1"))

	status, err := orch.Status(ctx, "s1")
	tfrequire.NoError(t, err)
	assert.Equal(t, models.CheckoutStatusPending, status)

	// Customer info survives, so the form needs no re-entry.
	var saved models.CustomerInfo
	tfrequire.NoError(t, kvstore.GetJSON(ctx, store, kvstore.CustomerKey("s1"), &saved))
	assert.Equal(t, "a@b.ch", saved.Email)
}

func TestRetryOnlyFromError(t *testing.T) {
	orch, _ := newTestOrchestrator(kvstore.NewMemoryStore(), &fakeOrders{}, config.BusinessConfig{})

	err := orch.Retry(context.Background(), "s1")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestAppendSession(t *testing.T) {
	out := AppendSession("http://localhost:8080/payment/return", "abc")
	u, err := url.Parse(out)
	tfrequire.NoError(t, err)
	assert.Equal(t, "abc", u.Query().Get("session"))
}
