// Package client implements the dashboard-side authentication session:
// cached identity, the login/signup modal state machine, and the
// deferred-action gate. It talks to the auth HTTP surface as a
// non-browser client, carrying the session token as a bearer header.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// User mirrors the server's outward user shape.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ModalMode is the pane the auth modal shows.
type ModalMode string

// Modal panes.
const (
	ModalLogin          ModalMode = "login"
	ModalSignup         ModalMode = "signup"
	ModalForgotPassword ModalMode = "forgot-password"
)

// Kind classifies an operation failure.
type Kind string

// Failure kinds. The values double as the wire error codes the server
// emits, plus KindNetwork for transport errors that never reached the
// server and KindServer for responses carrying no recognized code.
const (
	KindInvalidInput          Kind = "invalid_input"
	KindDuplicateEmail        Kind = "duplicate_email"
	KindInvalidCredentials    Kind = "invalid_credentials"
	KindUnauthorized          Kind = "unauthorized"
	KindInvalidOrExpiredToken Kind = "invalid_or_expired_token"
	KindNetwork               Kind = "network"
	KindServer                Kind = "server"
)

// Failure is a structured operation result. Operations return it
// instead of panicking so the view can render inline errors.
type Failure struct {
	Kind    Kind
	Message string
}

// Error implements error.
func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// State is the observable client auth state. Views read it and mutate
// it only through SessionClient operations.
type State struct {
	User      *User
	Loading   bool
	ShowModal bool
	ModalMode ModalMode
}

// IsAuthenticated reports whether an identity is present.
func (s State) IsAuthenticated() bool {
	return s.User != nil
}

// SessionClient owns the client-side auth state machine.
//
// Operations may overlap in time (a CheckAuth in flight while the user
// submits Login); whichever completion mutates state last wins. There
// is no cancellation of in-flight calls: a result landing after the
// modal was closed simply overwrites state that may by then be stale.
type SessionClient struct {
	http    *http.Client
	baseURL string
	cache   Cache
	log     *slog.Logger

	mu      sync.Mutex
	token   string
	state   State
	pending func()
}

// ClientOption customizes a SessionClient.
type ClientOption func(*SessionClient)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *SessionClient) { c.http = hc }
}

// WithCache sets the local identity cache.
func WithCache(cache Cache) ClientOption {
	return func(c *SessionClient) { c.cache = cache }
}

// WithLogger sets the logger used for best-effort failures.
func WithLogger(log *slog.Logger) ClientOption {
	return func(c *SessionClient) { c.log = log }
}

// New creates a SessionClient against the auth base URL
// (e.g. "http://localhost:8080/api/auth").
func New(baseURL string, opts ...ClientOption) *SessionClient {
	c := &SessionClient{
		http:    &http.Client{Timeout: 15 * time.Second},
		baseURL: baseURL,
		cache:   &MemCache{},
		log:     slog.Default(),
		state:   State{ModalMode: ModalLogin},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns a snapshot of the observable state.
func (c *SessionClient) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Token returns the current bearer token, empty when signed out. The
// token lives in memory only and is never written to the cache.
func (c *SessionClient) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// CheckAuth surfaces any locally cached identity, then reconciles it
// against the server. A definitive "not signed in" answer clears the
// identity and the cache; a transport failure leaves the cached
// identity in place — the network being down is not a logout.
func (c *SessionClient) CheckAuth(ctx context.Context) *Failure {
	c.mu.Lock()
	if cached, err := c.cache.Load(); err == nil && cached != nil {
		c.state.User = cached
	}
	c.state.Loading = true
	c.mu.Unlock()

	var resp struct {
		User *User `json:"user"`
	}
	status, fail := c.do(ctx, http.MethodGet, "/me", nil, &resp)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Loading = false

	switch {
	case fail != nil && fail.Kind == KindNetwork:
		// Offline-tolerant: keep showing the cached identity.
		return fail
	case status == http.StatusOK && resp.User != nil:
		c.state.User = resp.User
		c.persist(resp.User)
		return nil
	default:
		c.state.User = nil
		c.token = ""
		c.clearCache()
		return fail
	}
}

// Login authenticates and, on success, closes the modal and runs any
// pending deferred callback exactly once. On failure the modal state is
// left untouched so the view can render the failure inline.
func (c *SessionClient) Login(ctx context.Context, email, password string) *Failure {
	return c.authenticate(ctx, "/login", map[string]string{
		"email":    email,
		"password": password,
	})
}

// Signup registers a new account; success behaves exactly like a
// successful login.
func (c *SessionClient) Signup(ctx context.Context, email, password, displayName string) *Failure {
	return c.authenticate(ctx, "/signup", map[string]string{
		"email":       email,
		"password":    password,
		"displayName": displayName,
	})
}

func (c *SessionClient) authenticate(ctx context.Context, path string, body map[string]string) *Failure {
	var resp struct {
		User  *User  `json:"user"`
		Token string `json:"token"`
	}
	if _, fail := c.do(ctx, http.MethodPost, path, body, &resp); fail != nil {
		return fail
	}

	c.mu.Lock()
	c.token = resp.Token
	c.state.User = resp.User
	c.state.ShowModal = false
	c.persist(resp.User)
	cb := c.pending
	c.pending = nil
	c.mu.Unlock()

	// Drain the deferred action outside the lock, after the modal is
	// already closed.
	if cb != nil {
		cb()
	}
	return nil
}

// RequestPasswordReset asks the server to mail a reset link. The server
// acknowledges unknown emails identically, so there is nothing to
// branch on.
func (c *SessionClient) RequestPasswordReset(ctx context.Context, email string) *Failure {
	_, fail := c.do(ctx, http.MethodPost, "/request-password-reset", map[string]string{
		"email": email,
	}, nil)
	return fail
}

// ResetPassword completes a reset with a token from the email link.
func (c *SessionClient) ResetPassword(ctx context.Context, token, password string) *Failure {
	_, fail := c.do(ctx, http.MethodPost, "/reset-password", map[string]string{
		"token":    token,
		"password": password,
	}, nil)
	return fail
}

// Logout tells the server to drop the session, then clears local
// identity and cache regardless of what the server said.
func (c *SessionClient) Logout(ctx context.Context) {
	if _, fail := c.do(ctx, http.MethodPost, "/logout", nil, nil); fail != nil {
		c.log.Warn("logout request failed", "err", fail.Message)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	c.state.User = nil
	c.clearCache()
}

// RequireAuth gates an action on authentication. Authenticated: returns
// true immediately and the callback is not retained. Otherwise the
// callback becomes the single pending deferred action — replacing any
// previous one — the modal opens in login mode, and RequireAuth
// returns false. The pending action runs exactly once, after the next
// successful login or signup.
func (c *SessionClient) RequireAuth(cb func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.User != nil {
		return true
	}
	c.pending = cb
	c.state.ModalMode = ModalLogin
	c.state.ShowModal = true
	return false
}

// OpenModal shows the auth modal in the given mode.
func (c *SessionClient) OpenModal(mode ModalMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.ModalMode = mode
	c.state.ShowModal = true
}

// SwitchMode changes the visible pane (login, signup, forgot-password).
func (c *SessionClient) SwitchMode(mode ModalMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.ModalMode = mode
}

// CloseModal dismisses the modal. Cancelling abandons the gated action,
// so the pending callback is dropped with it.
func (c *SessionClient) CloseModal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.ShowModal = false
	c.pending = nil
}

// persist and clearCache are best-effort; callers hold c.mu.
func (c *SessionClient) persist(u *User) {
	if err := c.cache.Save(u); err != nil {
		c.log.Warn("identity cache save failed", "err", err)
	}
}

func (c *SessionClient) clearCache() {
	if err := c.cache.Clear(); err != nil {
		c.log.Warn("identity cache clear failed", "err", err)
	}
}

// failureKind classifies an error response. The server's code field is
// authoritative; when it is absent or unrecognized the status gives a
// coarse fallback.
func failureKind(code string, status int) Kind {
	switch k := Kind(code); k {
	case KindInvalidInput, KindDuplicateEmail, KindInvalidCredentials,
		KindUnauthorized, KindInvalidOrExpiredToken:
		return k
	}
	switch status {
	case http.StatusBadRequest:
		return KindInvalidInput
	case http.StatusUnauthorized:
		return KindUnauthorized
	}
	return KindServer
}

// do performs one request against the auth surface. It returns the
// HTTP status (0 when the request never completed) and a Failure for
// anything other than a 2xx response.
func (c *SessionClient) do(ctx context.Context, method, path string, body any, out any) (int, *Failure) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return 0, &Failure{Kind: KindInvalidInput, Message: err.Error()}
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return 0, &Failure{Kind: KindInvalidInput, Message: err.Error()}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, &Failure{Kind: KindNetwork, Message: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		var e struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			e.Error = resp.Status
		}
		return resp.StatusCode, &Failure{Kind: failureKind(e.Code, resp.StatusCode), Message: e.Error}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, &Failure{Kind: KindServer, Message: err.Error()}
		}
	}
	return resp.StatusCode, nil
}
