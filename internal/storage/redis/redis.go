package redis

import (
	"context"
	"fmt"
	"time"

	"face_verification/internal/models"
	"face_verification/internal/storage"

	"github.com/redis/go-redis/v9"
)

type RedisRepo struct {
	client *redis.Client
	ttl    time.Duration
}

func New(ctx context.Context, addr, pass string, db int, ttl time.Duration) (*RedisRepo, error) {
	const op = "storage.redis.New"

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     pass,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &RedisRepo{
		client: client,
		ttl:    ttl,
	}, nil
}

func userKey(username string) string {
	return fmt.Sprintf("user:public:%s", username)
}

// CacheUser stores the public fields of a user under its username.
func (r *RedisRepo) CacheUser(ctx context.Context, user models.PublicUser) error {
	const op = "storage.redis.CacheUser"

	key := userKey(user.Username)

	data := map[string]interface{}{
		"id":         user.ID,
		"email":      user.Email,
		"username":   user.Username,
		"created_at": user.CreatedAt.UTC().Format(time.RFC3339Nano),
	}

	pipe := r.client.Pipeline()
	pipe.HSet(ctx, key, data)
	pipe.Expire(ctx, key, r.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// CachedUser returns storage.ErrCacheMiss when the username is not cached.
func (r *RedisRepo) CachedUser(ctx context.Context, username string) (models.PublicUser, error) {
	const op = "storage.redis.CachedUser"

	fields, err := r.client.HGetAll(ctx, userKey(username)).Result()
	if err != nil {
		return models.PublicUser{}, fmt.Errorf("%s: %w", op, err)
	}

	if len(fields) == 0 || fields["id"] == "" {
		return models.PublicUser{}, storage.ErrCacheMiss
	}

	createdAt, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return models.PublicUser{}, fmt.Errorf("%s: bad created_at: %w", op, err)
	}

	return models.PublicUser{
		ID:        fields["id"],
		Email:     fields["email"],
		Username:  fields["username"],
		CreatedAt: createdAt,
	}, nil
}

// Close closes the underlying client.
func (r *RedisRepo) Close() {
	r.client.Close()
}
