// Package memory implements the auth stores as in-process maps. This is
// the reference backend: not durable across restarts, which is a stated
// limitation rather than a defect.
package memory

import (
	"context"
	"sync"
	"time"

	"quotadash/internal/domain"

	"github.com/google/uuid"
)

// DB implements in-memory storage for users, sessions, and reset
// tokens. One mutex guards all three maps; signup's check-then-create
// on the email index runs under it, so duplicate registrations for the
// same email cannot race.
type DB struct {
	mu            sync.Mutex
	usersByID     map[string]*domain.User
	userIDByEmail map[string]string
	sessions      map[string]*domain.Session
	resetTokens   map[string]*domain.ResetToken
}

// New creates a new in-memory database.
func New() *DB {
	return &DB{
		usersByID:     make(map[string]*domain.User),
		userIDByEmail: make(map[string]string),
		sessions:      make(map[string]*domain.Session),
		resetTokens:   make(map[string]*domain.ResetToken),
	}
}

// Ensure interfaces are met.
var _ domain.UserStore = (*DB)(nil)
var _ domain.SessionStore = (*SessionStore)(nil)
var _ domain.ResetTokenStore = (*ResetTokenStore)(nil)

// --- UserStore ---

// Create registers a new user. Email matching is exact-string.
func (db *DB) Create(ctx context.Context, email, passwordHash, displayName string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.userIDByEmail[email]; exists {
		return nil, domain.ErrDuplicateEmail
	}

	u := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		DisplayName:  displayName,
		CreatedAt:    time.Now().UTC(),
	}
	db.usersByID[u.ID] = u
	db.userIDByEmail[email] = u.ID

	cp := *u
	return &cp, nil
}

// GetByEmail retrieves a user by exact email. Returns nil if absent.
func (db *DB) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	id, ok := db.userIDByEmail[email]
	if !ok {
		return nil, nil
	}
	cp := *db.usersByID[id]
	return &cp, nil
}

// GetByID retrieves a user by ID. Returns nil if absent.
func (db *DB) GetByID(ctx context.Context, id string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	u, ok := db.usersByID[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

// UpdatePasswordHash replaces the stored hash for a user.
func (db *DB) UpdatePasswordHash(ctx context.Context, id, newHash string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	u, ok := db.usersByID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordHash = newHash
	return nil
}

// --- SessionStore ---

// SessionStore implements session persistence on DB.
type SessionStore struct {
	db *DB
}

// NewSessionStore wraps the DB as a SessionStore.
func (db *DB) NewSessionStore() *SessionStore {
	return &SessionStore{db: db}
}

// Create stores a new session.
func (s *SessionStore) Create(ctx context.Context, userID, token string, expiresAt time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	s.db.sessions[token] = &domain.Session{
		Token:     token,
		UserID:    userID,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}
	return nil
}

// GetByToken retrieves a session by token. Expired sessions are purged
// and reported absent.
func (s *SessionStore) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	sess, ok := s.db.sessions[token]
	if !ok {
		return nil, nil
	}
	if time.Now().After(sess.ExpiresAt) {
		delete(s.db.sessions, token)
		return nil, nil
	}
	cp := *sess
	return &cp, nil
}

// Delete removes a session. Absent tokens are not an error.
func (s *SessionStore) Delete(ctx context.Context, token string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	delete(s.db.sessions, token)
	return nil
}

// DeleteExpired removes all expired sessions.
func (s *SessionStore) DeleteExpired(ctx context.Context) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	now := time.Now()
	for k, v := range s.db.sessions {
		if now.After(v.ExpiresAt) {
			delete(s.db.sessions, k)
		}
	}
	return nil
}

// --- ResetTokenStore ---

// ResetTokenStore implements reset token persistence on DB. Same shape
// as SessionStore over a disjoint token space.
type ResetTokenStore struct {
	db *DB
}

// NewResetTokenStore wraps the DB as a ResetTokenStore.
func (db *DB) NewResetTokenStore() *ResetTokenStore {
	return &ResetTokenStore{db: db}
}

// Create stores a new reset token.
func (r *ResetTokenStore) Create(ctx context.Context, userID, token string, expiresAt time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.resetTokens[token] = &domain.ResetToken{
		Token:     token,
		UserID:    userID,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}
	return nil
}

// GetByToken retrieves a reset token. Expired tokens are purged and
// reported absent.
func (r *ResetTokenStore) GetByToken(ctx context.Context, token string) (*domain.ResetToken, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	rt, ok := r.db.resetTokens[token]
	if !ok {
		return nil, nil
	}
	if time.Now().After(rt.ExpiresAt) {
		delete(r.db.resetTokens, token)
		return nil, nil
	}
	cp := *rt
	return &cp, nil
}

// Delete removes a reset token.
func (r *ResetTokenStore) Delete(ctx context.Context, token string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.resetTokens, token)
	return nil
}

// DeleteExpired removes all expired reset tokens.
func (r *ResetTokenStore) DeleteExpired(ctx context.Context) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	now := time.Now()
	for k, v := range r.db.resetTokens {
		if now.After(v.ExpiresAt) {
			delete(r.db.resetTokens, k)
		}
	}
	return nil
}
