package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	sl "face_verification/internal/lib/logger"
	"face_verification/internal/models"
	"face_verification/internal/storage"

	"github.com/google/uuid"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
)

type Auth struct {
	log         *slog.Logger
	usrSaver    UserSaver
	usrProvider UserProvider
	hasher      PasswordHasher
	tokens      TokenIssuer
	cache       UserCache
	now         func() time.Time

	dummyOnce   sync.Once
	dummyDigest []byte
}

type UserSaver interface {
	SaveUser(ctx context.Context, user models.User) error
}

type UserProvider interface {
	UserByUsername(ctx context.Context, username string) (models.User, error)
}

type PasswordHasher interface {
	Hash(password string) ([]byte, error)
	Verify(password string, digest []byte) bool
}

type TokenIssuer interface {
	Issue(username string) (string, error)
	Validate(token string) (string, error)
}

// UserCache holds public user fields keyed by username.
type UserCache interface {
	CacheUser(ctx context.Context, user models.PublicUser) error
	CachedUser(ctx context.Context, username string) (models.PublicUser, error)
}

func New(
	log *slog.Logger,
	userSaver UserSaver,
	userProvider UserProvider,
	hasher PasswordHasher,
	tokens TokenIssuer,
) *Auth {
	return &Auth{
		log:         log,
		usrSaver:    userSaver,
		usrProvider: userProvider,
		hasher:      hasher,
		tokens:      tokens,
		now:         time.Now,
	}
}

// WithCache enables read-through caching of users resolved from tokens.
func (a *Auth) WithCache(cache UserCache) *Auth {
	a.cache = cache
	return a
}

func (a *Auth) RegisterNewUser(
	ctx context.Context,
	email string,
	username string,
	pass string,
) (models.User, error) {
	const op = "auth.RegisterNewUser"

	log := a.log.With(
		slog.String("op", op),
		slog.String("username", username),
	)

	log.Info("registering new user")

	passHash, err := a.hasher.Hash(pass)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	user := models.User{
		ID:        uuid.NewString(),
		Email:     email,
		Username:  username,
		PassHash:  passHash,
		CreatedAt: a.now().UTC(),
	}

	// Uniqueness is enforced by the store in the same write.
	if err := a.usrSaver.SaveUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			log.Warn("user already exists")
			return models.User{}, fmt.Errorf("%s: %w", op, ErrUserExists)
		}

		log.Error("failed to save user", sl.Err(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user registered", slog.String("uid", user.ID))

	return user, nil
}

// Authenticate returns ErrInvalidCredentials both for unknown usernames and wrong passwords.
func (a *Auth) Authenticate(ctx context.Context, username, pass string) (models.User, error) {
	const op = "auth.Authenticate"

	log := a.log.With(slog.String("op", op))

	user, err := a.usrProvider.UserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			// Spend the same hashing work as for a real user.
			a.hasher.Verify(pass, a.dummy())
			log.Info("invalid credentials")
			return models.User{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		log.Error("failed to get user", sl.Err(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	if !a.hasher.Verify(pass, user.PassHash) {
		log.Info("invalid credentials")
		return models.User{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	return user, nil
}

// Login authenticates the user and issues an access token.
func (a *Auth) Login(ctx context.Context, username, pass string) (string, error) {
	const op = "auth.Login"

	log := a.log.With(slog.String("op", op))

	user, err := a.Authenticate(ctx, username, pass)
	if err != nil {
		return "", err
	}

	token, err := a.tokens.Issue(user.Username)
	if err != nil {
		log.Error("failed to generate access token", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user logged in successfully", slog.String("uid", user.ID))

	return token, nil
}

// UserByToken resolves a bearer token to its user. Any token or lookup
// failure that is not an infrastructure error yields ErrInvalidCredentials.
func (a *Auth) UserByToken(ctx context.Context, token string) (models.User, error) {
	const op = "auth.UserByToken"

	log := a.log.With(slog.String("op", op))

	username, err := a.tokens.Validate(token)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if a.cache != nil {
		cached, err := a.cache.CachedUser(ctx, username)
		switch {
		case err == nil:
			return fromPublic(cached), nil
		case !errors.Is(err, storage.ErrCacheMiss):
			log.Warn("user cache read failed", sl.Err(err))
		}
	}

	user, err := a.usrProvider.UserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.User{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		log.Error("failed to get user", sl.Err(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	if a.cache != nil {
		if err := a.cache.CacheUser(ctx, user.Public()); err != nil {
			log.Warn("user cache write failed", sl.Err(err))
		}
	}

	return user, nil
}

func (a *Auth) dummy() []byte {
	a.dummyOnce.Do(func() {
		a.dummyDigest, _ = a.hasher.Hash(uuid.NewString())
	})

	return a.dummyDigest
}

func fromPublic(u models.PublicUser) models.User {
	return models.User{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		CreatedAt: u.CreatedAt,
	}
}
