// Package domain contains the core business entities and interfaces.
package domain

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrDuplicateEmail is returned by UserStore.Create when the email
	// is already registered.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrUserNotFound is returned by UserStore.UpdatePasswordHash when
	// no user has the given id.
	ErrUserNotFound = errors.New("user not found")
)

// User represents a registered account.
//
// Email comparison is exact-string everywhere: "A@x.com" and "a@x.com"
// are distinct accounts. This is a documented limitation of the store
// contract, not something adapters may normalize away.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	DisplayName  string
	CreatedAt    time.Time
}

// Session binds an opaque token to a user for a bounded time window.
type Session struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// ResetToken authorizes exactly one password replacement. It is deleted
// on use and treated as absent after expiry.
type ResetToken struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// UserStore defines the port for credential persistence.
//
// Create must be atomic per email: of two concurrent registrations for
// the same email, exactly one succeeds.
type UserStore interface {
	Create(ctx context.Context, email, passwordHash, displayName string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	UpdatePasswordHash(ctx context.Context, id, newHash string) error
}

// SessionStore defines the port for session persistence. GetByToken
// treats expired entries as absent; implementations may purge them on
// read but are not required to.
type SessionStore interface {
	Create(ctx context.Context, userID, token string, expiresAt time.Time) error
	GetByToken(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context) error
}

// ResetTokenStore has the same shape as SessionStore, over a disjoint
// token space. A token must never be valid in both stores at once.
type ResetTokenStore interface {
	Create(ctx context.Context, userID, token string, expiresAt time.Time) error
	GetByToken(ctx context.Context, token string) (*ResetToken, error)
	Delete(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context) error
}
