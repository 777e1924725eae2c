package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"face_verification/internal/models"
	"face_verification/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveUser_Uniqueness(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.SaveUser(ctx, models.User{ID: "1", Username: "alice", Email: "a@x.com"}))

	err := s.SaveUser(ctx, models.User{ID: "2", Username: "alice", Email: "other@x.com"})
	assert.ErrorIs(t, err, storage.ErrUserExists)

	err = s.SaveUser(ctx, models.User{ID: "3", Username: "bob", Email: "a@x.com"})
	assert.ErrorIs(t, err, storage.ErrUserExists)

	u, err := s.UserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "1", u.ID)

	_, err = s.UserByUsername(ctx, "bob")
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
}

func TestSaveUser_ConcurrentSignupsOfSameUsername(t *testing.T) {
	ctx := context.Background()
	s := New()

	const n = 32

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)

	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.SaveUser(ctx, models.User{
				ID:       string(rune('a' + i)),
				Username: "alice",
				Email:    string(rune('a'+i)) + "@x.com",
			})
			if err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, success)
}

func TestVerifications_OrderLimitAndDelete(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"r1", "r2", "r3"} {
		require.NoError(t, s.SaveVerification(ctx, models.VerificationRecord{
			ID:        id,
			UserID:    "u1",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, s.SaveVerification(ctx, models.VerificationRecord{ID: "other", UserID: "u2", CreatedAt: base}))

	recs, err := s.Verifications(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "r3", recs[0].ID)
	assert.Equal(t, "r2", recs[1].ID)

	n, err := s.DeleteVerifications(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	n, err = s.DeleteVerifications(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, n)

	recs, err = s.Verifications(ctx, "u2", 10)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}
