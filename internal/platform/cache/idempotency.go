// Package cache holds the idempotency replay stores used by the HTTP layer.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrInFlight is returned by Load when a key is reserved but its response is not stored yet.
var ErrInFlight = errors.New("idempotent request still in flight")

// StoredResponse is a captured response replayed for a repeated Idempotency-Key.
type StoredResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"contentType"`
	Body        []byte `json:"body"`
}

// IdempotencyStore reserves keys and keeps the first response produced for each.
type IdempotencyStore interface {
	// Reserve marks key as in flight. It returns false if the key already exists.
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Load returns the stored response, nil if the key is unknown, or ErrInFlight.
	Load(ctx context.Context, key string) (*StoredResponse, error)
	// Complete stores the response for a reserved key.
	Complete(ctx context.Context, key string, resp StoredResponse, ttl time.Duration) error
	// Release forgets a reservation so that the request can be retried.
	Release(ctx context.Context, key string) error
}
