// Package app holds the application services and business logic.
package app

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log/slog"
	"strings"
	"time"

	"quotadash/internal/domain"
	"quotadash/internal/mail"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidInput indicates a missing required field.
	ErrInvalidInput = errors.New("missing required field")
	// ErrDuplicateEmail indicates the email is already registered.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrInvalidCredentials indicates the email or password was wrong.
	// The two cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUnauthorized indicates a missing, expired, or foreign session.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidOrExpiredToken indicates the reset token is absent,
	// already used, or past its expiry.
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
)

const (
	defaultSessionTTL = 7 * 24 * time.Hour
	defaultResetTTL   = time.Hour
)

// AuthService handles signup, login, session resolution, and the
// password-reset lifecycle. Handlers hold no mutable state of their
// own; all state lives in the injected stores.
type AuthService struct {
	users      domain.UserStore
	sessions   domain.SessionStore
	resets     domain.ResetTokenStore
	sender     mail.Sender
	log        *slog.Logger
	sessionTTL time.Duration
	resetTTL   time.Duration
}

// AuthOption customizes an AuthService.
type AuthOption func(*AuthService)

// WithSessionTTL overrides the default 7-day session lifetime.
func WithSessionTTL(d time.Duration) AuthOption {
	return func(s *AuthService) { s.sessionTTL = d }
}

// WithResetTTL overrides the default 1-hour reset token lifetime.
func WithResetTTL(d time.Duration) AuthOption {
	return func(s *AuthService) { s.resetTTL = d }
}

// NewAuthService creates a new authentication service.
func NewAuthService(users domain.UserStore, sessions domain.SessionStore, resets domain.ResetTokenStore, sender mail.Sender, log *slog.Logger, opts ...AuthOption) *AuthService {
	s := &AuthService{
		users:      users,
		sessions:   sessions,
		resets:     resets,
		sender:     sender,
		log:        log,
		sessionTTL: defaultSessionTTL,
		resetTTL:   defaultResetTTL,
	}
	if s.sender == nil {
		s.sender = mail.NoopSender{}
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Signup registers a new user and creates a session for it. A duplicate
// email fails before any session is minted.
func (s *AuthService) Signup(ctx context.Context, email, password, displayName string) (*domain.User, string, error) {
	if email == "" || password == "" {
		return nil, "", ErrInvalidInput
	}
	if displayName == "" {
		displayName = displayNameFromEmail(email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}

	user, err := s.users.Create(ctx, email, string(hash), displayName)
	if errors.Is(err, domain.ErrDuplicateEmail) {
		return nil, "", ErrDuplicateEmail
	}
	if err != nil {
		return nil, "", err
	}

	token, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login authenticates a user and creates a session. Unknown email and
// wrong password return the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	if email == "" || password == "" {
		return nil, "", ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil || user == nil {
		// Burn a hash comparison anyway so the unknown-email path
		// costs the same as a wrong password.
		_ = bcrypt.CompareHashAndPassword([]byte("$2a$10$0000000000000000000000uGZwQog5zQEkXmLJretZITC3qLDvnKS6"), []byte(password))
		return nil, "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Logout invalidates a session. Deleting an absent session is not an
// error; logout is idempotent.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.Delete(ctx, token)
}

// ValidateSession resolves a session token to its user. Expired or
// unknown tokens, and sessions whose user no longer exists, all return
// ErrUnauthorized.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}

	session, err := s.sessions.GetByToken(ctx, token)
	if err != nil || session == nil {
		return nil, ErrUnauthorized
	}

	if time.Now().After(session.ExpiresAt) {
		_ = s.sessions.Delete(ctx, token)
		return nil, ErrUnauthorized
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil || user == nil {
		return nil, ErrUnauthorized
	}
	return user, nil
}

// RequestPasswordReset mints a short-lived single-use token and hands
// it to the mail sender. It always succeeds from the caller's point of
// view: an unknown email produces no token but the same acknowledgement,
// so responses cannot be used to enumerate accounts.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	if email == "" {
		return nil
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil || user == nil {
		return nil
	}

	token, err := generateToken()
	if err != nil {
		s.log.Error("reset token generation failed", "err", err)
		return nil
	}

	if err := s.resets.Create(ctx, user.ID, token, time.Now().Add(s.resetTTL)); err != nil {
		s.log.Error("reset token store failed", "err", err)
		return nil
	}

	// The token itself must never reach the logs.
	if err := s.sender.SendPasswordReset(ctx, user.Email, token); err != nil {
		s.log.Error("reset email send failed", "email", user.Email, "err", err)
	}
	return nil
}

// ResetPassword consumes a reset token and replaces the user's password
// hash. The token is deleted before success is reported, so a second
// call with the same token fails.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" || newPassword == "" {
		return ErrInvalidInput
	}

	reset, err := s.resets.GetByToken(ctx, token)
	if err != nil || reset == nil {
		return ErrInvalidOrExpiredToken
	}
	if time.Now().After(reset.ExpiresAt) {
		_ = s.resets.Delete(ctx, token)
		return ErrInvalidOrExpiredToken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	if err := s.users.UpdatePasswordHash(ctx, reset.UserID, string(hash)); err != nil {
		return err
	}
	return s.resets.Delete(ctx, token)
}

// PurgeExpired removes expired sessions and reset tokens. Expiry is
// already enforced lazily on read; this is best-effort housekeeping.
func (s *AuthService) PurgeExpired(ctx context.Context) {
	if err := s.sessions.DeleteExpired(ctx); err != nil {
		s.log.Warn("session purge failed", "err", err)
	}
	if err := s.resets.DeleteExpired(ctx); err != nil {
		s.log.Warn("reset token purge failed", "err", err)
	}
}

func (s *AuthService) createSession(ctx context.Context, userID string) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	if err := s.sessions.Create(ctx, userID, token, time.Now().Add(s.sessionTTL)); err != nil {
		return "", err
	}
	return token, nil
}

func displayNameFromEmail(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
