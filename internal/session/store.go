// Package session keeps server-side login sessions and issues the signed
// tokens clients present to find them again.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a session id is unknown or expired.
var ErrNotFound = errors.New("session not found")

// Store persists the mapping from session id to user id.
type Store interface {
	Create(ctx context.Context, userID uint, ttl time.Duration) (string, error)
	Get(ctx context.Context, sid string) (uint, error)
	Delete(ctx context.Context, sid string) error
}
