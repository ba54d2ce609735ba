// Package cache provides the caching contract used by the model catalog
// and usage stats, with in-memory and Redis backends.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned when a key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Service is the caching contract. Implementations marshal values to
// JSON; Get unmarshals into the dest pointer.
type Service interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
