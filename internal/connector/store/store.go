package store

import (
	"context"
	"errors"

	"github.com/organicecom/marketconnect/internal/connector/domain"
)

// ErrNotFound reports a missing row.
var ErrNotFound = errors.New("store: not found")

// Store is the root data access interface. Concrete drivers (sqlite for
// now) implement this behind sub-repositories so callers never touch SQL.
type Store interface {
	Tokens() Tokens

	ApplyMigrations() error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

type Tokens interface {
	// UpsertToken creates or replaces the token row for t.UserID. The
	// one-live-row-per-user invariant lives here: a second upsert for the
	// same user overwrites both token strings and the expiry.
	UpsertToken(ctx context.Context, t domain.Token) error

	// GetTokenByUserID returns the stored token or ErrNotFound.
	GetTokenByUserID(ctx context.Context, userID string) (domain.Token, error)

	// DeleteToken removes the row. Deleting an absent row is not an error;
	// revocation is idempotent.
	DeleteToken(ctx context.Context, userID string) error
}
