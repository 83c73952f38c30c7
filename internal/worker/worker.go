package worker

import (
	"context"
	"errors"
	"log"
	"time"

	"storefront-service/internal/broker"
	"storefront-service/internal/kvstore"
	"storefront-service/internal/models"
	"storefront-service/internal/reconcile"
	"storefront-service/internal/upstream"
	"storefront-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NotificationWorker retries confirmation emails whose payloads were
// parked under the pending-notification key. One retry per queued event;
// the payload stays parked if the retry also fails.
type NotificationWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	store        kvstore.Store
	notifier     reconcile.Notifier
	events       *broker.EventPublisher
	logger       *zap.Logger
}

// NewNotificationWorker creates a notification retry worker.
func NewNotificationWorker(
	consumer *broker.Consumer,
	store kvstore.Store,
	notifier reconcile.Notifier,
	events *broker.EventPublisher,
) *NotificationWorker {
	w := &NotificationWorker{
		consumer: consumer,
		store:    store,
		notifier: notifier,
		events:   events,
		logger:   util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnNotificationQueued(w.handleQueued)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *NotificationWorker) Start(ctx context.Context) error {
	log.Println("Starting notification worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *NotificationWorker) Stop() error {
	log.Println("Stopping notification worker...")
	return w.consumer.Close()
}

func (w *NotificationWorker) handleQueued(ctx context.Context, event *models.NotificationQueuedEvent) error {
	key := kvstore.PendingNotificationKey(event.SessionID)

	var pending models.PendingNotification
	err := kvstore.GetJSON(ctx, w.store, key, &pending)
	if errors.Is(err, kvstore.ErrNotFound) {
		// Already retried or handled manually.
		return nil
	}
	if err != nil {
		return err
	}

	email := &upstream.ConfirmationEmail{
		PayerID:      pending.PayerID,
		CustomerInfo: pending.CustomerInfo,
		Cart:         pending.Cart.Items,
		Total:        pending.Total,
		Timestamp:    pending.Timestamp,
	}

	sendErr := w.notifier.SendConfirmation(ctx, email)
	success := sendErr == nil
	if success {
		if err := w.store.Delete(ctx, key); err != nil {
			w.logger.Error("Failed to remove retried notification", zap.Error(err))
		}
		util.NotificationRetriesTotal.WithLabelValues("success").Inc()
		w.logger.Info("Queued confirmation email sent",
			zap.String("session_id", event.SessionID))
	} else {
		// Payload stays parked for manual retry.
		util.NotificationRetriesTotal.WithLabelValues("failure").Inc()
		w.logger.Warn("Confirmation email retry failed",
			zap.String("session_id", event.SessionID),
			zap.Error(sendErr))
	}

	if w.events != nil {
		retried := &models.NotificationRetriedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeNotificationRetried,
				Timestamp: time.Now(),
			},
			SessionID: event.SessionID,
			Success:   success,
		}
		if err := w.events.PublishNotificationRetried(ctx, retried); err != nil {
			w.logger.Error("Failed to publish NotificationRetried event", zap.Error(err))
		}
	}

	return nil
}
