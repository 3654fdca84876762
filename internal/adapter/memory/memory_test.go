package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"quotadash/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserStore_CreateAndLookup(t *testing.T) {
	db := New()
	ctx := context.Background()

	u, err := db.Create(ctx, "a@x.com", "hash", "Ann")
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)

	byEmail, err := db.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, u.ID, byEmail.ID)

	byID, err := db.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "a@x.com", byID.Email)

	absent, err := db.GetByEmail(ctx, "A@x.com")
	require.NoError(t, err)
	assert.Nil(t, absent, "email matching is exact-string")
}

func TestUserStore_DuplicateEmail(t *testing.T) {
	db := New()
	ctx := context.Background()

	_, err := db.Create(ctx, "a@x.com", "hash", "")
	require.NoError(t, err)

	_, err = db.Create(ctx, "a@x.com", "hash2", "")
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
}

func TestUserStore_ConcurrentDuplicateSignup(t *testing.T) {
	db := New()
	ctx := context.Background()

	const attempts = 32
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = db.Create(ctx, "race@x.com", "hash", "")
		}()
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
		}
	}
	assert.Equal(t, 1, ok, "exactly one concurrent registration may win")
}

func TestUserStore_UpdatePasswordHash(t *testing.T) {
	db := New()
	ctx := context.Background()

	u, err := db.Create(ctx, "a@x.com", "old", "")
	require.NoError(t, err)

	require.NoError(t, db.UpdatePasswordHash(ctx, u.ID, "new"))

	got, err := db.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", got.PasswordHash)

	assert.ErrorIs(t, db.UpdatePasswordHash(ctx, "missing", "x"), domain.ErrUserNotFound)
}

func TestSessionStore_ExpiredIsAbsent(t *testing.T) {
	db := New()
	store := db.NewSessionStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, "u1", "live", time.Now().Add(time.Hour)))
	require.NoError(t, store.Create(ctx, "u1", "dead", time.Now().Add(-time.Minute)))

	live, err := store.GetByToken(ctx, "live")
	require.NoError(t, err)
	require.NotNil(t, live)
	assert.Equal(t, "u1", live.UserID)

	dead, err := store.GetByToken(ctx, "dead")
	require.NoError(t, err)
	assert.Nil(t, dead, "expired session reads as absent")

	never, err := store.GetByToken(ctx, "never")
	require.NoError(t, err)
	assert.Nil(t, never)
}

func TestSessionStore_DeleteIsIdempotent(t *testing.T) {
	db := New()
	store := db.NewSessionStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, "u1", "tok", time.Now().Add(time.Hour)))
	require.NoError(t, store.Delete(ctx, "tok"))
	require.NoError(t, store.Delete(ctx, "tok"))

	got, err := store.GetByToken(ctx, "tok")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSessionStore_DeleteExpired(t *testing.T) {
	db := New()
	store := db.NewSessionStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, "u1", "live", time.Now().Add(time.Hour)))
	require.NoError(t, store.Create(ctx, "u1", "dead", time.Now().Add(-time.Minute)))

	require.NoError(t, store.DeleteExpired(ctx))

	live, err := store.GetByToken(ctx, "live")
	require.NoError(t, err)
	assert.NotNil(t, live)
}

func TestResetTokenStore_SameShapeDisjointSpace(t *testing.T) {
	db := New()
	sessions := db.NewSessionStore()
	resets := db.NewResetTokenStore()
	ctx := context.Background()

	require.NoError(t, resets.Create(ctx, "u1", "tok", time.Now().Add(time.Hour)))

	rt, err := resets.GetByToken(ctx, "tok")
	require.NoError(t, err)
	require.NotNil(t, rt)
	assert.Equal(t, "u1", rt.UserID)

	// The same token string is not a session.
	sess, err := sessions.GetByToken(ctx, "tok")
	require.NoError(t, err)
	assert.Nil(t, sess)

	require.NoError(t, resets.Delete(ctx, "tok"))
	rt, err = resets.GetByToken(ctx, "tok")
	require.NoError(t, err)
	assert.Nil(t, rt)
}

func TestResetTokenStore_ExpiredIsAbsent(t *testing.T) {
	db := New()
	resets := db.NewResetTokenStore()
	ctx := context.Background()

	require.NoError(t, resets.Create(ctx, "u1", "dead", time.Now().Add(-time.Second)))

	rt, err := resets.GetByToken(ctx, "dead")
	require.NoError(t, err)
	assert.Nil(t, rt)
}
