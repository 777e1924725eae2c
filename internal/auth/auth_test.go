package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"face_verification/internal/lib/jwt"
	"face_verification/internal/lib/password"
	"face_verification/internal/models"
	"face_verification/internal/storage"
	"face_verification/internal/storage/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAuth(t *testing.T) (*Auth, *memory.Storage) {
	t.Helper()

	store := memory.New()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	return New(log, store, store, password.New(bcrypt.MinCost), jwt.New("test-secret", jwt.DefaultTTL)), store
}

func TestRegisterNewUser(t *testing.T) {
	a, _ := newAuth(t)
	ctx := context.Background()

	user, err := a.RegisterNewUser(ctx, "a@x.com", "alice", "pw123456")
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.NotEqual(t, []byte("pw123456"), user.PassHash)
	assert.False(t, user.CreatedAt.IsZero())

	_, err = a.RegisterNewUser(ctx, "other@x.com", "alice", "pw")
	assert.ErrorIs(t, err, ErrUserExists, "same username, different email")

	_, err = a.RegisterNewUser(ctx, "a@x.com", "bob", "pw")
	assert.ErrorIs(t, err, ErrUserExists, "same email, different username")
}

func TestRegisterNewUser_Concurrent(t *testing.T) {
	a, _ := newAuth(t)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)

	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := a.RegisterNewUser(ctx, "a@x.com", "alice", "pw"); err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
}

func TestAuthenticate_NoExistenceOracle(t *testing.T) {
	a, _ := newAuth(t)
	ctx := context.Background()

	_, err := a.RegisterNewUser(ctx, "a@x.com", "alice", "pw123456")
	require.NoError(t, err)

	user, err := a.Authenticate(ctx, "alice", "pw123456")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	_, wrongPass := a.Authenticate(ctx, "alice", "wrong")
	_, noUser := a.Authenticate(ctx, "nobody", "pw123456")

	assert.ErrorIs(t, wrongPass, ErrInvalidCredentials)
	assert.ErrorIs(t, noUser, ErrInvalidCredentials)
	assert.Equal(t, wrongPass.Error(), noUser.Error())
}

func TestAuthenticate_LongPassword(t *testing.T) {
	a, _ := newAuth(t)
	ctx := context.Background()

	long := strings.Repeat("p", 100)

	_, err := a.RegisterNewUser(ctx, "a@x.com", "alice", long)
	require.NoError(t, err)

	_, err = a.Authenticate(ctx, "alice", long)
	assert.NoError(t, err)

	_, err = a.Authenticate(ctx, "alice", long[:password.MaxBytes]+"different tail")
	assert.NoError(t, err, "bytes past the limit are ignored")
}

func TestLoginAndUserByToken(t *testing.T) {
	a, _ := newAuth(t)
	ctx := context.Background()

	registered, err := a.RegisterNewUser(ctx, "a@x.com", "alice", "pw123456")
	require.NoError(t, err)

	token, err := a.Login(ctx, "alice", "pw123456")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	user, err := a.UserByToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)

	_, err = a.Login(ctx, "alice", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = a.UserByToken(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUserByToken_UnknownSubject(t *testing.T) {
	a, _ := newAuth(t)

	token, err := jwt.New("test-secret", time.Minute).Issue("ghost")
	require.NoError(t, err)

	_, err = a.UserByToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

type fakeCache struct {
	mu      sync.Mutex
	users   map[string]models.PublicUser
	readErr error
	writes  int
}

func (c *fakeCache) CacheUser(_ context.Context, u models.PublicUser) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.writes++
	c.users[u.Username] = u

	return nil
}

func (c *fakeCache) CachedUser(_ context.Context, username string) (models.PublicUser, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.readErr != nil {
		return models.PublicUser{}, c.readErr
	}
	u, ok := c.users[username]
	if !ok {
		return models.PublicUser{}, storage.ErrCacheMiss
	}

	return u, nil
}

func TestUserByToken_ReadThroughCache(t *testing.T) {
	a, _ := newAuth(t)
	cache := &fakeCache{users: map[string]models.PublicUser{}}
	a.WithCache(cache)
	ctx := context.Background()

	registered, err := a.RegisterNewUser(ctx, "a@x.com", "alice", "pw123456")
	require.NoError(t, err)

	token, err := a.Login(ctx, "alice", "pw123456")
	require.NoError(t, err)

	for range 3 {
		user, err := a.UserByToken(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, registered.ID, user.ID)
	}
	assert.Equal(t, 1, cache.writes)

	cache.readErr = errors.New("redis down")
	user, err := a.UserByToken(ctx, token)
	require.NoError(t, err, "cache failures fall back to the store")
	assert.Equal(t, registered.ID, user.ID)
}
