// Package session binds browser sessions to user ids on the server side.
package session

import (
	"context"
	"errors"
)

var ErrInvalidUser = errors.New("session: user id must be non-zero")

// Store is the server-side half of a session: an opaque token mapped to
// the user id it was issued for.
type Store interface {
	Create(ctx context.Context, userID uint) (string, error)
	Lookup(ctx context.Context, token string) (uint, bool, error)
	// Destroy is idempotent.
	Destroy(ctx context.Context, token string) error
}
