package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"retailpos/internal/core/apperror"
	"retailpos/internal/core/idempotency"
)

type idempotencyEntry struct {
	userID      string
	operation   string
	requestHash string
	done        bool
	replay      idempotency.Replay
	expiresAt   time.Time
}

// IdempotencyStore implements idempotency.Store in memory.
type IdempotencyStore struct {
	mu   sync.Mutex
	keys map[string]*idempotencyEntry
	ttl  time.Duration
}

var _ idempotency.Store = (*IdempotencyStore)(nil)

// NewIdempotencyStore creates a store whose keys expire after ttl.
func NewIdempotencyStore(ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{keys: make(map[string]*idempotencyEntry), ttl: ttl}
}

func (s *IdempotencyStore) AcquireKey(_ context.Context, key, userID, operation, requestHash string) (*idempotency.Replay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	e, ok := s.keys[key]
	if !ok || now.After(e.expiresAt) {
		s.keys[key] = &idempotencyEntry{
			userID:      userID,
			operation:   operation,
			requestHash: requestHash,
			expiresAt:   now.Add(s.ttl),
		}
		return nil, nil
	}
	if e.userID != userID || e.operation != operation || e.requestHash != requestHash {
		return nil, apperror.NewIdempotencyMismatch(key)
	}
	if !e.done {
		return nil, apperror.NewIdempotencyConflict(key)
	}
	replay := e.replay
	return &replay, nil
}

func (s *IdempotencyStore) CompleteKey(_ context.Context, key string, statusCode int, contentType string, response any) error {
	return s.finish(key, statusCode, contentType, response)
}

func (s *IdempotencyStore) FailKey(_ context.Context, key string, statusCode int, contentType string, response any) error {
	return s.finish(key, statusCode, contentType, response)
}

func (s *IdempotencyStore) finish(key string, statusCode int, contentType string, response any) error {
	body, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.keys[key]
	if !ok {
		return nil
	}
	e.done = true
	e.replay = idempotency.Replay{StatusCode: statusCode, ContentType: contentType, Body: body}
	return nil
}

// CleanupExpired removes expired keys.
func (s *IdempotencyStore) CleanupExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	now := time.Now()
	for k, e := range s.keys {
		if now.After(e.expiresAt) {
			delete(s.keys, k)
			removed++
		}
	}
	return removed, nil
}
