//go:build integration

package postgres

import (
	"context"
	"strconv"
	"testing"
	"time"

	"face_verification/internal/config"
	"face_verification/internal/models"
	"face_verification/internal/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestContainer(t *testing.T) *PostgresRepo {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil || container == nil {
		t.Skipf("Docker not available, skipping integration test: %v", err)
	}
	t.Cleanup(func() { container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	portNum, err := strconv.Atoi(port.Port())
	require.NoError(t, err)

	repo, err := New(ctx, config.Postgres{
		Host:     host,
		Port:     portNum,
		User:     "test",
		Password: "test",
		DBName:   "testdb",
		SSLMode:  "disable",
	})
	require.NoError(t, err)
	t.Cleanup(repo.Close)

	require.NoError(t, repo.Migrate(ctx))

	return repo
}

func TestPostgresRepo_Integration(t *testing.T) {
	repo := setupTestContainer(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	alice := models.User{
		ID:        uuid.NewString(),
		Email:     "a@x.com",
		Username:  "alice",
		PassHash:  []byte("$2a$10$hash"),
		CreatedAt: now,
	}

	t.Run("users", func(t *testing.T) {
		require.NoError(t, repo.SaveUser(ctx, alice))

		dupName := alice
		dupName.ID, dupName.Email = uuid.NewString(), "other@x.com"
		assert.ErrorIs(t, repo.SaveUser(ctx, dupName), storage.ErrUserExists)

		dupEmail := alice
		dupEmail.ID, dupEmail.Username = uuid.NewString(), "bob"
		assert.ErrorIs(t, repo.SaveUser(ctx, dupEmail), storage.ErrUserExists)

		got, err := repo.UserByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, got.ID)
		assert.Equal(t, alice.PassHash, got.PassHash)

		_, err = repo.UserByUsername(ctx, "nobody")
		assert.ErrorIs(t, err, storage.ErrUserNotFound)
	})

	t.Run("history", func(t *testing.T) {
		for i, id := range []string{"01A", "01B", "01C"} {
			require.NoError(t, repo.SaveVerification(ctx, models.VerificationRecord{
				ID:              id,
				UserID:          alice.ID,
				Image1Ref:       "a.jpg",
				Image2Ref:       "b.jpg",
				Result:          models.ResultMatch,
				ConfidenceScore: 0.9,
				CreatedAt:       now.Add(time.Duration(i) * time.Second),
			}))
		}

		recs, err := repo.Verifications(ctx, alice.ID, 2)
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, "01C", recs[0].ID)
		assert.Equal(t, "01B", recs[1].ID)

		n, err := repo.DeleteVerifications(ctx, alice.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 3, n)

		n, err = repo.DeleteVerifications(ctx, alice.ID)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}
