// Package idempotency defines the contract of the X-Idempotency-Key store.
package idempotency

import "context"

// Replay is the cached HTTP response of a completed request.
type Replay struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Store tracks idempotency keys.
type Store interface {
	// AcquireKey claims key for a request.
	// Returns (nil, nil) when acquired, (replay, nil) when the request already
	// finished, and an error when the key is in flight or reused for another request.
	AcquireKey(ctx context.Context, key, userID, operation, requestHash string) (*Replay, error)

	// CompleteKey stores a successful response.
	CompleteKey(ctx context.Context, key string, statusCode int, contentType string, response any) error

	// FailKey stores an error response.
	FailKey(ctx context.Context, key string, statusCode int, contentType string, response any) error
}
