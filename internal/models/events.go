package models

import "time"

// Event types published on the order-events topic
const (
	EventTypeOrderPlaced         = "ORDER_PLACED"
	EventTypePaymentFailed       = "PAYMENT_FAILED"
	EventTypeNotificationQueued  = "NOTIFICATION_QUEUED"
	EventTypeNotificationRetried = "NOTIFICATION_RETRIED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderPlacedEvent published after the upstream order API accepts an order
type OrderPlacedEvent struct {
	BaseEvent
	SessionID   string  `json:"session_id"`
	OrderNumber string  `json:"order_number"`
	TotalAmount float64 `json:"total_amount"`
	ItemCount   int     `json:"item_count"`
}

// PaymentFailedEvent published when a payment attempt ends in failure
type PaymentFailedEvent struct {
	BaseEvent
	SessionID string `json:"session_id"`
	Reason    string `json:"reason"`
}

// NotificationQueuedEvent published when a confirmation email could not be
// sent and its payload was parked for retry
type NotificationQueuedEvent struct {
	BaseEvent
	SessionID string `json:"session_id"`
	PayerID   string `json:"payer_id"`
}

// NotificationRetriedEvent published after a retry attempt on a queued
// confirmation email
type NotificationRetriedEvent struct {
	BaseEvent
	SessionID string `json:"session_id"`
	Success   bool   `json:"success"`
}
