// Package checkout drives a checkout attempt through its state machine:
// pending -> processing -> completed | error, with error recoverable by
// retry. The cart is cleared only after the upstream order save succeeds.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront-service/config"
	"storefront-service/internal/cart"
	"storefront-service/internal/kvstore"
	"storefront-service/internal/models"
	"storefront-service/internal/upstream"
	"storefront-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	// ErrEmptyCart rejects payment on a cart with no lines.
	ErrEmptyCart = errors.New("checkout: cart is empty")
	// ErrBelowMinimum gates payment on the configured minimum order amount.
	ErrBelowMinimum = errors.New("checkout: subtotal below minimum order amount")
	// ErrInvalidTransition rejects an operation the current state forbids.
	ErrInvalidTransition = errors.New("checkout: invalid state transition")
)

// Events is the slice of the event publisher the orchestrator uses.
type Events interface {
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
	PublishPaymentFailed(ctx context.Context, event *models.PaymentFailedEvent) error
}

// OrderSubmitter is the slice of the upstream client the orchestrator uses.
type OrderSubmitter interface {
	AddOrder(ctx context.Context, req *upstream.OrderRequest) (*upstream.OrderResponse, error)
}

// Orchestrator owns the checkout attempt for a session. It reads/writes
// the checkout-state, customer-info and last-payment keys, and signals the
// cart engine to clear on completion.
type Orchestrator struct {
	store    kvstore.Store
	cart     *cart.Engine
	orders   OrderSubmitter
	events   Events
	paypal   config.PayPalConfig
	business config.BusinessConfig
	logger   *zap.Logger
}

// NewOrchestrator creates a checkout orchestrator.
func NewOrchestrator(
	store kvstore.Store,
	cartEngine *cart.Engine,
	orders OrderSubmitter,
	events Events,
	paypal config.PayPalConfig,
	business config.BusinessConfig,
) *Orchestrator {
	return &Orchestrator{
		store:    store,
		cart:     cartEngine,
		orders:   orders,
		events:   events,
		paypal:   paypal,
		business: business,
		logger:   util.GetLogger(),
	}
}

// ConfirmResult is what a finished confirmation reports back.
type ConfirmResult struct {
	Status      models.CheckoutStatus `json:"status"`
	OrderNumber string                `json:"order_number,omitempty"`
	CreatedAt   string                `json:"created_at,omitempty"`
}

// Status reads the current attempt state. A session with no recorded
// state is pending.
func (o *Orchestrator) Status(ctx context.Context, sessionID string) (models.CheckoutStatus, error) {
	raw, err := o.store.Get(ctx, kvstore.CheckoutStateKey(sessionID))
	if errors.Is(err, kvstore.ErrNotFound) {
		return models.CheckoutStatusPending, nil
	}
	if err != nil {
		return "", err
	}
	return models.CheckoutStatus(raw), nil
}

func (o *Orchestrator) setStatus(ctx context.Context, sessionID string, status models.CheckoutStatus) error {
	return o.store.Set(ctx, kvstore.CheckoutStateKey(sessionID), []byte(status), 0)
}

// ComputeTotal derives subtotal, shipping and final total for a cart.
// Shipping is a configured constant, not computed from weight or
// destination.
func (o *Orchestrator) ComputeTotal(c *models.Cart) (subtotal, shipping, total float64) {
	subtotal = cart.Subtotal(c)
	shipping = o.business.ShippingCost
	t := decimal.NewFromFloat(subtotal).Add(decimal.NewFromFloat(shipping))
	total, _ = t.Round(2).Float64()
	return subtotal, shipping, total
}

// BeginPayment validates the form, persists the customer info, and builds
// the external payment redirect. On success the attempt moves to
// processing; the redirect itself is opened by the caller and does not
// block.
func (o *Orchestrator) BeginPayment(ctx context.Context, sessionID string, info models.CustomerInfo) (string, error) {
	ctx, span := util.StartSpan(ctx, "Checkout.BeginPayment")
	defer span.End()

	util.CheckoutAttemptsTotal.Inc()

	state, err := o.Status(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if state == models.CheckoutStatusProcessing {
		return "", fmt.Errorf("%w: payment already in progress", ErrInvalidTransition)
	}

	if fieldErrs := Validate(info); len(fieldErrs) > 0 {
		return "", &ValidationError{Fields: fieldErrs}
	}

	c, err := o.cart.Load(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if c.IsEmpty() {
		return "", ErrEmptyCart
	}

	subtotal, _, total := o.ComputeTotal(c)
	if o.business.MinOrderAmount > 0 && subtotal < o.business.MinOrderAmount {
		return "", fmt.Errorf("%w: %.2f < %.2f", ErrBelowMinimum, subtotal, o.business.MinOrderAmount)
	}

	// Customer info survives across attempts and is never cleared
	// automatically.
	if err := kvstore.SetJSON(ctx, o.store, kvstore.CustomerKey(sessionID), info, 0); err != nil {
		return "", err
	}

	if err := o.setStatus(ctx, sessionID, models.CheckoutStatusProcessing); err != nil {
		return "", err
	}

	paypalCfg := o.paypal
	paypalCfg.ReturnURL = AppendSession(paypalCfg.ReturnURL, sessionID)
	paypalCfg.CancelURL = AppendSession(paypalCfg.CancelURL, sessionID)
	redirect := BuildRedirectURL(paypalCfg, total, itemName(c))
	util.PaymentRedirectsTotal.Inc()

	o.logger.Info("Payment redirect issued",
		zap.String("session_id", sessionID),
		zap.Float64("total", total))
	return redirect, nil
}

// ConfirmPayment resolves a processing attempt. On success the order is
// saved upstream before anything local changes; the cart is cleared only
// after the save succeeds. Failure (either the provider's or a failed
// save) moves to error and preserves the cart.
func (o *Orchestrator) ConfirmPayment(ctx context.Context, sessionID string, success bool) (*ConfirmResult, error) {
	ctx, span := util.StartSpan(ctx, "Checkout.ConfirmPayment")
	defer span.End()

	state, err := o.Status(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state != models.CheckoutStatusProcessing {
		return nil, fmt.Errorf("%w: confirm from %s", ErrInvalidTransition, state)
	}

	if !success {
		if err := o.setStatus(ctx, sessionID, models.CheckoutStatusError); err != nil {
			return nil, err
		}
		o.publishPaymentFailed(ctx, sessionID, "provider_declined")
		o.logger.Warn("Payment declined by provider", zap.String("session_id", sessionID))
		return &ConfirmResult{Status: models.CheckoutStatusError}, nil
	}

	var info models.CustomerInfo
	if err := kvstore.GetJSON(ctx, o.store, kvstore.CustomerKey(sessionID), &info); err != nil {
		_ = o.setStatus(ctx, sessionID, models.CheckoutStatusError)
		return nil, fmt.Errorf("checkout: customer info missing: %w", err)
	}

	c, err := o.cart.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if c.IsEmpty() {
		_ = o.setStatus(ctx, sessionID, models.CheckoutStatusError)
		return nil, ErrEmptyCart
	}

	_, shipping, total := o.ComputeTotal(c)

	start := time.Now()
	resp, err := o.orders.AddOrder(ctx, &upstream.OrderRequest{
		CustomerInfo:  info,
		Cart:          c.Items,
		TotalAmount:   total,
		ShippingCost:  shipping,
		PaymentMethod: "paypal",
		PaymentStatus: "completed",
	})
	util.OrderSubmitLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		// The customer has not definitively lost the cart: keep it.
		util.OrdersFailedTotal.WithLabelValues(failureReason(err)).Inc()
		_ = o.setStatus(ctx, sessionID, models.CheckoutStatusError)
		o.publishPaymentFailed(ctx, sessionID, "order_save_failed")
		o.logger.Error("Order save failed", zap.String("session_id", sessionID), zap.Error(err))
		return nil, err
	}

	util.OrdersSubmittedTotal.Inc()

	if err := o.cart.Clear(ctx, sessionID); err != nil {
		o.logger.Error("Cart clear after order save failed", zap.Error(err))
	}

	marker := models.LastPaymentMarker{
		Status:    "completed",
		Timestamp: time.Now(),
	}
	ttl := time.Duration(o.business.MarkerTTLMinutes) * time.Minute
	if err := kvstore.SetJSON(ctx, o.store, kvstore.LastPaymentKey(sessionID), marker, ttl); err != nil {
		o.logger.Error("Last-payment marker write failed", zap.Error(err))
	}

	if err := o.setStatus(ctx, sessionID, models.CheckoutStatusCompleted); err != nil {
		return nil, err
	}

	if o.events != nil {
		event := &models.OrderPlacedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeOrderPlaced,
				Timestamp: time.Now(),
			},
			SessionID:   sessionID,
			OrderNumber: resp.OrderNumber,
			TotalAmount: total,
			ItemCount:   c.ItemCount(),
		}
		if err := o.events.PublishOrderPlaced(ctx, event); err != nil {
			o.logger.Error("Failed to publish OrderPlaced event", zap.Error(err))
		}
	}

	o.logger.Info("Checkout completed",
		zap.String("session_id", sessionID),
		zap.String("order_number", resp.OrderNumber))

	return &ConfirmResult{
		Status:      models.CheckoutStatusCompleted,
		OrderNumber: resp.OrderNumber,
		CreatedAt:   resp.Data.CreatedAt,
	}, nil
}

// Retry moves an errored attempt back to pending. Customer info is kept,
// so the form does not need re-entering.
func (o *Orchestrator) Retry(ctx context.Context, sessionID string) error {
	state, err := o.Status(ctx, sessionID)
	if err != nil {
		return err
	}
	if state != models.CheckoutStatusError {
		return fmt.Errorf("%w: retry from %s", ErrInvalidTransition, state)
	}
	return o.setStatus(ctx, sessionID, models.CheckoutStatusPending)
}

// LastPayment reads the short-lived marker, or nil when none is live.
func (o *Orchestrator) LastPayment(ctx context.Context, sessionID string) (*models.LastPaymentMarker, error) {
	var marker models.LastPaymentMarker
	err := kvstore.GetJSON(ctx, o.store, kvstore.LastPaymentKey(sessionID), &marker)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &marker, nil
}

func (o *Orchestrator) publishPaymentFailed(ctx context.Context, sessionID, reason string) {
	if o.events == nil {
		return
	}
	event := &models.PaymentFailedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypePaymentFailed,
			Timestamp: time.Now(),
		},
		SessionID: sessionID,
		Reason:    reason,
	}
	if err := o.events.PublishPaymentFailed(ctx, event); err != nil {
		o.logger.Error("Failed to publish PaymentFailed event", zap.Error(err))
	}
}

func failureReason(err error) string {
	var netErr *upstream.NetworkError
	var rejErr *upstream.RemoteRejection
	var parseErr *upstream.ParseError
	switch {
	case errors.As(err, &netErr):
		return "network"
	case errors.As(err, &rejErr):
		return "rejected"
	case errors.As(err, &parseErr):
		return "parse"
	default:
		return "unknown"
	}
}

func itemName(c *models.Cart) string {
	if len(c.Items) == 1 && c.Items[0].Quantity == 1 {
		return c.Items[0].Name
	}
	return fmt.Sprintf("Hot sauce order (%d items)", c.ItemCount())
}
