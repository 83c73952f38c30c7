// Package kvstore is the persisted key-value port shared by the cart,
// checkout and reconciliation flows. Values are JSON blobs; keys are
// session-scoped and part of the storage contract. Concurrent writers are
// not locked out: correctness relies on idempotent clears and
// last-write-wins, not mutual exclusion.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a key has no value (or it expired).
var ErrNotFound = errors.New("kvstore: key not found")

// Store is the storage port injected into each component. A zero ttl
// means the value does not expire.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Contract keys. Every component states which of these it reads/writes.

func CartKey(sessionID string) string { return "cart:" + sessionID }

func CustomerKey(sessionID string) string { return "customer:" + sessionID }

func LastPaymentKey(sessionID string) string { return "lastpayment:" + sessionID }

func PendingClearKey(sessionID string) string { return "pendingclear:" + sessionID }

func PendingNotificationKey(sessionID string) string { return "pendingnotification:" + sessionID }

func ChatHistoryKey(sessionID string) string { return "chathistory:" + sessionID }

func CheckoutStateKey(sessionID string) string { return "checkoutstate:" + sessionID }

func ProductCacheKey(category string) string {
	if category == "" {
		category = "all"
	}
	return "catalog:products:" + category
}

// GetJSON reads key and unmarshals it into v.
func GetJSON(ctx context.Context, s Store, key string, v interface{}) error {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("kvstore: decode %s: %w", key, err)
	}
	return nil
}

// SetJSON marshals v and writes it under key.
func SetJSON(ctx context.Context, s Store, key string, v interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("kvstore: encode %s: %w", key, err)
	}
	return s.Set(ctx, key, raw, ttl)
}
