package ledger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"face_verification/internal/models"
	"face_verification/internal/storage/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLedger(t *testing.T, store Store) *Ledger {
	t.Helper()

	l := New(slog.New(slog.NewTextHandler(io.Discard, nil)), store, DefaultHistoryLimit)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	l.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	return l
}

func TestRecord(t *testing.T) {
	l := newLedger(t, memory.New())

	rec, err := l.Record(context.Background(), "u1", "a.jpg", "b.jpg", models.ResultMatch, 0.9)
	require.NoError(t, err)

	assert.Len(t, rec.ID, 26)
	assert.Equal(t, "u1", rec.UserID)
	assert.Equal(t, "a.jpg", rec.Image1Ref)
	assert.Equal(t, models.ResultMatch, rec.Result)
	assert.InDelta(t, 0.9, rec.ConfidenceScore, 1e-9)
	assert.False(t, rec.CreatedAt.IsZero())
}

func TestHistory_NewestFirstWithLimit(t *testing.T) {
	l := newLedger(t, memory.New())
	ctx := context.Background()

	var ids []string
	for range 3 {
		rec, err := l.Record(ctx, "u1", "a.jpg", "b.jpg", models.ResultNoMatch, 0.1)
		require.NoError(t, err)
		ids = append(ids, rec.ID)
	}

	recs, err := l.History(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, ids[2], recs[0].ID)
	assert.Equal(t, ids[1], recs[1].ID)

	again, err := l.History(ctx, "u1", 2)
	require.NoError(t, err)
	assert.Equal(t, recs, again)

	other, err := l.History(ctx, "u2", 0)
	require.NoError(t, err)
	assert.NotNil(t, other)
	assert.Empty(t, other)
}

func TestPurge(t *testing.T) {
	l := newLedger(t, memory.New())
	ctx := context.Background()

	n, err := l.Purge(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, n)

	for range 2 {
		_, err := l.Record(ctx, "u1", "a.jpg", "b.jpg", models.ResultMatch, 1)
		require.NoError(t, err)
	}

	n, err = l.Purge(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	recs, err := l.History(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestClampLimit(t *testing.T) {
	l := newLedger(t, memory.New())

	tests := []struct {
		in, want int
	}{
		{-1, DefaultHistoryLimit},
		{0, DefaultHistoryLimit},
		{1, 1},
		{MaxHistoryLimit, MaxHistoryLimit},
		{MaxHistoryLimit + 1, MaxHistoryLimit},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, l.clampLimit(tc.in), "limit %d", tc.in)
	}
}

type failingStore struct{ err error }

func (s failingStore) SaveVerification(context.Context, models.VerificationRecord) error { return s.err }

func (s failingStore) Verifications(context.Context, string, int) ([]models.VerificationRecord, error) {
	return nil, s.err
}

func (s failingStore) DeleteVerifications(context.Context, string) (int64, error) { return 0, s.err }

func TestStoreErrorsAreWrapped(t *testing.T) {
	boom := errors.New("boom")
	l := newLedger(t, failingStore{err: boom})
	ctx := context.Background()

	_, err := l.Record(ctx, "u1", "a", "b", models.ResultMatch, 1)
	assert.ErrorIs(t, err, boom)

	_, err = l.History(ctx, "u1", 1)
	assert.ErrorIs(t, err, boom)

	_, err = l.Purge(ctx, "u1")
	assert.ErrorIs(t, err, boom)
}
