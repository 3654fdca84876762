// Package postgres implements the domain stores using PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"quotadash/internal/domain"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Create registers a new user. The unique constraint on email makes the
// check-then-create atomic; a duplicate insert surfaces as
// domain.ErrDuplicateEmail.
func (d *DB) Create(ctx context.Context, email, passwordHash, displayName string) (*domain.User, error) {
	var u domain.User
	err := d.sql.QueryRowContext(ctx,
		"INSERT INTO users (id, email, password_hash, display_name, created_at) VALUES ($1, $2, $3, $4, $5) RETURNING id, email, password_hash, display_name, created_at",
		uuid.NewString(), email, passwordHash, displayName, time.Now(),
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, err
	}
	return &u, nil
}

// GetByEmail retrieves a user by exact email.
func (d *DB) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := d.sql.QueryRowContext(ctx,
		"SELECT id, email, password_hash, display_name, created_at FROM users WHERE email = $1",
		email,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID retrieves a user by ID.
func (d *DB) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := d.sql.QueryRowContext(ctx,
		"SELECT id, email, password_hash, display_name, created_at FROM users WHERE id = $1",
		id,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdatePasswordHash replaces the stored hash for a user.
func (d *DB) UpdatePasswordHash(ctx context.Context, id, newHash string) error {
	res, err := d.sql.ExecContext(ctx, "UPDATE users SET password_hash = $1 WHERE id = $2", newHash, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// SessionStore implements session store operations on DB.
type SessionStore struct {
	db *DB
}

// NewSessionStore wraps a DB as a SessionStore.
func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db}
}

// Create stores a new session.
func (s *SessionStore) Create(ctx context.Context, userID, token string, expiresAt time.Time) error {
	_, err := s.db.sql.ExecContext(ctx,
		"INSERT INTO sessions (token, user_id, expires_at, created_at) VALUES ($1, $2, $3, $4)",
		token, userID, expiresAt, time.Now(),
	)
	return err
}

// GetByToken retrieves a session by token. Expired rows are reported
// absent whether or not the janitor has purged them yet.
func (s *SessionStore) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	var sess domain.Session
	err := s.db.sql.QueryRowContext(ctx,
		"SELECT token, user_id, expires_at, created_at FROM sessions WHERE token = $1 AND expires_at > $2",
		token, time.Now(),
	).Scan(&sess.Token, &sess.UserID, &sess.ExpiresAt, &sess.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// Delete deletes a session by token.
func (s *SessionStore) Delete(ctx context.Context, token string) error {
	_, err := s.db.sql.ExecContext(ctx, "DELETE FROM sessions WHERE token = $1", token)
	return err
}

// DeleteExpired deletes all expired sessions.
func (s *SessionStore) DeleteExpired(ctx context.Context) error {
	_, err := s.db.sql.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at < $1", time.Now())
	return err
}

// ResetTokenStore implements reset token store operations on DB.
type ResetTokenStore struct {
	db *DB
}

// NewResetTokenStore wraps a DB as a ResetTokenStore.
func NewResetTokenStore(db *DB) *ResetTokenStore {
	return &ResetTokenStore{db: db}
}

// Create stores a new reset token.
func (r *ResetTokenStore) Create(ctx context.Context, userID, token string, expiresAt time.Time) error {
	_, err := r.db.sql.ExecContext(ctx,
		"INSERT INTO reset_tokens (token, user_id, expires_at, created_at) VALUES ($1, $2, $3, $4)",
		token, userID, expiresAt, time.Now(),
	)
	return err
}

// GetByToken retrieves a reset token, treating expired rows as absent.
func (r *ResetTokenStore) GetByToken(ctx context.Context, token string) (*domain.ResetToken, error) {
	var rt domain.ResetToken
	err := r.db.sql.QueryRowContext(ctx,
		"SELECT token, user_id, expires_at, created_at FROM reset_tokens WHERE token = $1 AND expires_at > $2",
		token, time.Now(),
	).Scan(&rt.Token, &rt.UserID, &rt.ExpiresAt, &rt.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rt, nil
}

// Delete deletes a reset token.
func (r *ResetTokenStore) Delete(ctx context.Context, token string) error {
	_, err := r.db.sql.ExecContext(ctx, "DELETE FROM reset_tokens WHERE token = $1", token)
	return err
}

// DeleteExpired deletes all expired reset tokens.
func (r *ResetTokenStore) DeleteExpired(ctx context.Context) error {
	_, err := r.db.sql.ExecContext(ctx, "DELETE FROM reset_tokens WHERE expires_at < $1", time.Now())
	return err
}
