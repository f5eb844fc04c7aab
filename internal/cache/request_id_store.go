package cache

import (
	"context"
	"errors"
	"time"

	"slabdesk/pkg/middleware"
)

const requestIDPrefix = "request_id:"

// RequestIDStore keeps idempotent responses in the shared cache so every
// API replica sees them.
type RequestIDStore struct {
	cache Cache
}

func NewRequestIDStore(cache Cache) *RequestIDStore {
	return &RequestIDStore{cache: cache}
}

func (s *RequestIDStore) Store(ctx context.Context, requestID string, response []byte, ttl time.Duration) error {
	return s.cache.Set(ctx, requestIDPrefix+requestID, response, ttl)
}

func (s *RequestIDStore) Get(ctx context.Context, requestID string) ([]byte, error) {
	data, err := s.cache.Get(ctx, requestIDPrefix+requestID)
	if errors.Is(err, ErrCacheMiss) {
		return nil, middleware.ErrRequestIDNotFound
	}
	return data, err
}

func (s *RequestIDStore) Exists(ctx context.Context, requestID string) (bool, error) {
	return s.cache.Exists(ctx, requestIDPrefix+requestID)
}

var _ middleware.RequestIDStore = (*RequestIDStore)(nil)
