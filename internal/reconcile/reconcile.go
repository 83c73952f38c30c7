// Package reconcile handles the return leg of the external payment
// redirect. It runs on its own entry point, cooperates with the cart
// engine's idempotent clear, and never blocks success display on the
// confirmation email.
package reconcile

import (
	"context"
	"errors"
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

// Notifier is the slice of the upstream client used for the confirmation
// email.
type Notifier interface {
	SendConfirmation(ctx context.Context, email *upstream.ConfirmationEmail) error
}

// Events is the slice of the event publisher used to announce queued
// notifications to the retry worker.
type Events interface {
	PublishNotificationQueued(ctx context.Context, event *models.NotificationQueuedEvent) error
}

// Reconciler reads the customer-info and cart keys, writes the
// last-payment and pending-notification keys, and clears the cart.
type Reconciler struct {
	store    kvstore.Store
	cart     *cart.Engine
	notifier Notifier
	events   Events
	business config.BusinessConfig
	logger   *zap.Logger
}

// NewReconciler creates a reconciler.
func NewReconciler(
	store kvstore.Store,
	cartEngine *cart.Engine,
	notifier Notifier,
	events Events,
	business config.BusinessConfig,
) *Reconciler {
	return &Reconciler{
		store:    store,
		cart:     cartEngine,
		notifier: notifier,
		events:   events,
		business: business,
		logger:   util.GetLogger(),
	}
}

// Result reports what a reconciliation run did.
type Result struct {
	Skipped     bool                      `json:"skipped"`
	EmailSent   bool                      `json:"email_sent"`
	EmailQueued bool                      `json:"email_queued"`
	Marker      *models.LastPaymentMarker `json:"marker,omitempty"`
}

// HandleReturn processes the payment provider's return redirect. Without
// a payer id it is a terminal no-op. With one, the confirmation email is
// attempted when both customer info and cart are present (best effort,
// queued for retry on failure), the cart is cleared unconditionally, and
// the last-payment marker is set. There is no retry path from this view.
func (r *Reconciler) HandleReturn(ctx context.Context, sessionID, payerID string) (*Result, error) {
	ctx, span := util.StartSpan(ctx, "Reconcile.HandleReturn")
	defer span.End()

	if payerID == "" {
		return &Result{Skipped: true}, nil
	}

	result := &Result{}

	var info models.CustomerInfo
	haveInfo := true
	if err := kvstore.GetJSON(ctx, r.store, kvstore.CustomerKey(sessionID), &info); err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) {
			return nil, err
		}
		haveInfo = false
	}

	var snapshot models.Cart
	haveCart := true
	if err := kvstore.GetJSON(ctx, r.store, kvstore.CartKey(sessionID), &snapshot); err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) {
			return nil, err
		}
		haveCart = false
	}

	if haveInfo && haveCart && !snapshot.IsEmpty() {
		r.notify(ctx, sessionID, payerID, info, snapshot, result)
	} else {
		util.ReconciliationsTotal.WithLabelValues("no_data").Inc()
		r.logger.Warn("Reconciliation without local data, skipping email",
			zap.String("session_id", sessionID),
			zap.Bool("have_customer", haveInfo),
			zap.Bool("have_cart", haveCart))
	}

	// Reached only after a real payment attempt: clearing is the
	// documented side effect. The storefront's own clear may also fire;
	// both sites rely on Clear being idempotent.
	if err := r.cart.Clear(ctx, sessionID); err != nil {
		return nil, err
	}

	marker := models.LastPaymentMarker{
		Status:    "completed",
		PayerID:   payerID,
		Timestamp: time.Now(),
	}
	ttl := time.Duration(r.business.MarkerTTLMinutes) * time.Minute
	if err := kvstore.SetJSON(ctx, r.store, kvstore.LastPaymentKey(sessionID), marker, ttl); err != nil {
		return nil, err
	}
	result.Marker = &marker

	return result, nil
}

// notify sends the confirmation email, parking the payload under the
// pending-notification key when the send fails.
func (r *Reconciler) notify(ctx context.Context, sessionID, payerID string, info models.CustomerInfo, snapshot models.Cart, result *Result) {
	subtotal := decimal.NewFromFloat(cart.Subtotal(&snapshot))
	total, _ := subtotal.Add(decimal.NewFromFloat(r.business.ShippingCost)).Round(2).Float64()

	email := &upstream.ConfirmationEmail{
		PayerID:      payerID,
		CustomerInfo: info,
		Cart:         snapshot.Items,
		Total:        total,
		Timestamp:    time.Now(),
	}

	err := r.notifier.SendConfirmation(ctx, email)
	if err == nil {
		result.EmailSent = true
		util.NotificationsSentTotal.Inc()
		util.ReconciliationsTotal.WithLabelValues("notified").Inc()
		return
	}
	r.logger.Error("Confirmation email failed, queuing for retry",
		zap.String("session_id", sessionID), zap.Error(err))

	pending := models.PendingNotification{
		PayerID:      payerID,
		CustomerInfo: info,
		Cart:         snapshot,
		Total:        total,
		Timestamp:    time.Now(),
	}
	if err := kvstore.SetJSON(ctx, r.store, kvstore.PendingNotificationKey(sessionID), pending, 0); err != nil {
		r.logger.Error("Failed to park pending notification", zap.Error(err))
		util.ReconciliationsTotal.WithLabelValues("queue_failed").Inc()
		return
	}

	result.EmailQueued = true
	util.NotificationsQueuedTotal.Inc()
	util.ReconciliationsTotal.WithLabelValues("queued").Inc()

	if r.events != nil {
		event := &models.NotificationQueuedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeNotificationQueued,
				Timestamp: time.Now(),
			},
			SessionID: sessionID,
			PayerID:   payerID,
		}
		if err := r.events.PublishNotificationQueued(ctx, event); err != nil {
			r.logger.Error("Failed to publish NotificationQueued event", zap.Error(err))
		}
	}
}
