package client_test

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adapthttp "quotadash/internal/adapter/http"
	"quotadash/internal/adapter/memory"
	"quotadash/internal/app"
	"quotadash/internal/client"
)

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	db := memory.New()
	authSvc := app.NewAuthService(db, db.NewSessionStore(), db.NewResetTokenStore(), nil, nil)
	srv := httptest.NewServer(adapthttp.New(authSvc, app.NewUsageService(nil), nil).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T, srv *httptest.Server) *client.SessionClient {
	t.Helper()
	return client.New(srv.URL + "/api/auth")
}

func TestSignupSetsIdentityAndClosesModal(t *testing.T) {
	srv := newBackend(t)
	c := newClient(t, srv)
	ctx := context.Background()

	c.OpenModal(client.ModalSignup)

	fail := c.Signup(ctx, "a@x.com", "pw123456", "Ann")
	require.Nil(t, fail)

	st := c.State()
	require.True(t, st.IsAuthenticated())
	assert.Equal(t, "a@x.com", st.User.Email)
	assert.Equal(t, "Ann", st.User.DisplayName)
	assert.False(t, st.ShowModal)
	assert.NotEmpty(t, c.Token())
}

func TestLoginFailureLeavesModalUntouched(t *testing.T) {
	srv := newBackend(t)
	c := newClient(t, srv)
	ctx := context.Background()

	c.OpenModal(client.ModalLogin)

	fail := c.Login(ctx, "ghost@x.com", "wrong")
	require.NotNil(t, fail)
	assert.Equal(t, client.KindInvalidCredentials, fail.Kind)

	st := c.State()
	assert.False(t, st.IsAuthenticated())
	assert.True(t, st.ShowModal, "failed login keeps the modal open for inline errors")
	assert.Equal(t, client.ModalLogin, st.ModalMode)
}

func TestSignupDuplicateEmailKind(t *testing.T) {
	srv := newBackend(t)
	ctx := context.Background()

	first := newClient(t, srv)
	require.Nil(t, first.Signup(ctx, "a@x.com", "pw123456", ""))

	second := newClient(t, srv)
	fail := second.Signup(ctx, "a@x.com", "pw123456", "")
	require.NotNil(t, fail)
	assert.Equal(t, client.KindDuplicateEmail, fail.Kind)
	assert.False(t, second.State().IsAuthenticated())
}

func TestRequireAuthGatesAndDrainsOnce(t *testing.T) {
	srv := newBackend(t)
	c := newClient(t, srv)
	ctx := context.Background()

	require.Nil(t, c.Signup(ctx, "a@x.com", "pw123456", ""))
	c.Logout(ctx)

	var calls int
	ok := c.RequireAuth(func() { calls++ })
	assert.False(t, ok)

	st := c.State()
	assert.True(t, st.ShowModal)
	assert.Equal(t, client.ModalLogin, st.ModalMode)
	assert.Zero(t, calls)

	require.Nil(t, c.Login(ctx, "a@x.com", "pw123456"))
	assert.Equal(t, 1, calls, "deferred callback runs exactly once")
	assert.False(t, c.State().ShowModal)

	// A later login does not run it again.
	c.Logout(ctx)
	require.Nil(t, c.Login(ctx, "a@x.com", "pw123456"))
	assert.Equal(t, 1, calls)
}

func TestRequireAuthKeepsOnlyLatestCallback(t *testing.T) {
	srv := newBackend(t)
	c := newClient(t, srv)
	ctx := context.Background()

	require.Nil(t, c.Signup(ctx, "a@x.com", "pw123456", ""))
	c.Logout(ctx)

	var firstCalls, secondCalls int
	c.RequireAuth(func() { firstCalls++ })
	c.RequireAuth(func() { secondCalls++ })

	require.Nil(t, c.Login(ctx, "a@x.com", "pw123456"))
	assert.Zero(t, firstCalls, "replaced callback never fires")
	assert.Equal(t, 1, secondCalls)
}

func TestRequireAuthWhenAuthenticated(t *testing.T) {
	srv := newBackend(t)
	c := newClient(t, srv)
	ctx := context.Background()

	require.Nil(t, c.Signup(ctx, "a@x.com", "pw123456", ""))

	called := false
	ok := c.RequireAuth(func() { called = true })
	assert.True(t, ok)
	assert.False(t, called, "callback is not retained when already authenticated")
	assert.False(t, c.State().ShowModal)

	// Nothing pending: a fresh login cycle fires no stale callback.
	c.Logout(ctx)
	require.Nil(t, c.Login(ctx, "a@x.com", "pw123456"))
	assert.False(t, called)
}

func TestCloseModalDropsPendingCallback(t *testing.T) {
	srv := newBackend(t)
	c := newClient(t, srv)
	ctx := context.Background()

	require.Nil(t, c.Signup(ctx, "a@x.com", "pw123456", ""))
	c.Logout(ctx)

	var calls int
	c.RequireAuth(func() { calls++ })
	c.CloseModal()

	require.Nil(t, c.Login(ctx, "a@x.com", "pw123456"))
	assert.Zero(t, calls, "cancelling the modal abandons the gated action")
}

func TestModalModeTransitions(t *testing.T) {
	srv := newBackend(t)
	c := newClient(t, srv)

	c.OpenModal(client.ModalLogin)
	assert.Equal(t, client.ModalLogin, c.State().ModalMode)

	c.SwitchMode(client.ModalSignup)
	assert.Equal(t, client.ModalSignup, c.State().ModalMode)
	assert.True(t, c.State().ShowModal)

	c.SwitchMode(client.ModalForgotPassword)
	assert.Equal(t, client.ModalForgotPassword, c.State().ModalMode)

	c.CloseModal()
	assert.False(t, c.State().ShowModal)
}

func TestCheckAuthReconcilesWithServer(t *testing.T) {
	srv := newBackend(t)
	c := newClient(t, srv)
	ctx := context.Background()

	require.Nil(t, c.Signup(ctx, "a@x.com", "pw123456", ""))

	fail := c.CheckAuth(ctx)
	assert.Nil(t, fail)
	st := c.State()
	require.True(t, st.IsAuthenticated())
	assert.False(t, st.Loading)
}

func TestCheckAuthClearsStaleIdentity(t *testing.T) {
	srv := newBackend(t)
	cache := &client.MemCache{}
	c := client.New(srv.URL+"/api/auth", client.WithCache(cache))
	ctx := context.Background()

	// A cached identity the server no longer recognizes.
	require.NoError(t, cache.Save(&client.User{ID: "stale", Email: "old@x.com"}))

	fail := c.CheckAuth(ctx)
	require.NotNil(t, fail)
	assert.Equal(t, client.KindUnauthorized, fail.Kind)

	assert.False(t, c.State().IsAuthenticated())
	cached, err := cache.Load()
	require.NoError(t, err)
	assert.Nil(t, cached, "definitive rejection clears the cache")
}

func TestCheckAuthIsOfflineTolerant(t *testing.T) {
	srv := newBackend(t)
	cache := &client.MemCache{}
	c := client.New(srv.URL+"/api/auth", client.WithCache(cache))
	ctx := context.Background()

	require.NoError(t, cache.Save(&client.User{ID: "u1", Email: "a@x.com"}))

	// Server gone: transport failure, not a logout.
	srv.Close()

	fail := c.CheckAuth(ctx)
	require.NotNil(t, fail)
	assert.Equal(t, client.KindNetwork, fail.Kind)

	st := c.State()
	require.True(t, st.IsAuthenticated(), "network failure keeps the cached identity")
	assert.Equal(t, "a@x.com", st.User.Email)
	cached, err := cache.Load()
	require.NoError(t, err)
	assert.NotNil(t, cached)
}

func TestLogoutClearsLocallyEvenWhenServerUnreachable(t *testing.T) {
	srv := newBackend(t)
	cache := &client.MemCache{}
	c := client.New(srv.URL+"/api/auth", client.WithCache(cache))
	ctx := context.Background()

	require.Nil(t, c.Signup(ctx, "a@x.com", "pw123456", ""))
	srv.Close()

	c.Logout(ctx)

	assert.False(t, c.State().IsAuthenticated())
	assert.Empty(t, c.Token())
	cached, err := cache.Load()
	require.NoError(t, err)
	assert.Nil(t, cached)
}

func TestRequestPasswordResetPassThrough(t *testing.T) {
	srv := newBackend(t)
	c := newClient(t, srv)

	assert.Nil(t, c.RequestPasswordReset(context.Background(), "anyone@x.com"))
}

func TestResetPasswordBadTokenKind(t *testing.T) {
	srv := newBackend(t)
	c := newClient(t, srv)

	fail := c.ResetPassword(context.Background(), "bogus", "new-password")
	require.NotNil(t, fail)
	assert.Equal(t, client.KindInvalidOrExpiredToken, fail.Kind)
}

// A missing token or password is an input error, not a bad token.
func TestResetPasswordMissingInputKind(t *testing.T) {
	srv := newBackend(t)
	c := newClient(t, srv)
	ctx := context.Background()

	fail := c.ResetPassword(ctx, "", "new-password")
	require.NotNil(t, fail)
	assert.Equal(t, client.KindInvalidInput, fail.Kind)

	fail = c.ResetPassword(ctx, "some-token", "")
	require.NotNil(t, fail)
	assert.Equal(t, client.KindInvalidInput, fail.Kind)
}

func TestFileCacheRoundTripWithoutSecrets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth", "identity.json")
	cache := client.NewFileCache(path)

	u := &client.User{ID: "u1", Email: "a@x.com", DisplayName: "Ann"}
	require.NoError(t, cache.Save(u))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "token")
	assert.NotContains(t, string(raw), "password")

	got, err := cache.Load()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "a@x.com", got.Email)

	require.NoError(t, cache.Clear())
	got, err = cache.Load()
	require.NoError(t, err)
	assert.Nil(t, got)

	// Clearing twice is fine.
	assert.NoError(t, cache.Clear())
}
