// Package ledger records verification outcomes per user.
package ledger

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	sl "face_verification/internal/lib/logger"
	"face_verification/internal/models"

	"github.com/oklog/ulid/v2"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

type Store interface {
	SaveVerification(ctx context.Context, rec models.VerificationRecord) error
	Verifications(ctx context.Context, userID string, limit int) ([]models.VerificationRecord, error)
	DeleteVerifications(ctx context.Context, userID string) (int64, error)
}

type Ledger struct {
	log          *slog.Logger
	store        Store
	defaultLimit int
	now          func() time.Time

	mu      sync.Mutex
	entropy io.Reader
}

func New(log *slog.Logger, store Store, defaultLimit int) *Ledger {
	if defaultLimit <= 0 || defaultLimit > MaxHistoryLimit {
		defaultLimit = DefaultHistoryLimit
	}

	return &Ledger{
		log:          log,
		store:        store,
		defaultLimit: defaultLimit,
		now:          time.Now,
		entropy:      ulid.Monotonic(rand.Reader, 0),
	}
}

// Record appends a new verification outcome for userID.
func (l *Ledger) Record(
	ctx context.Context,
	userID, image1Ref, image2Ref string,
	result models.Result,
	confidence float64,
) (models.VerificationRecord, error) {
	const op = "ledger.Record"

	log := l.log.With(
		slog.String("op", op),
		slog.String("uid", userID),
	)

	now := l.now().UTC()

	id, err := l.newID(now)
	if err != nil {
		log.Error("failed to generate record id", sl.Err(err))
		return models.VerificationRecord{}, fmt.Errorf("%s: %w", op, err)
	}

	rec := models.VerificationRecord{
		ID:              id,
		UserID:          userID,
		Image1Ref:       image1Ref,
		Image2Ref:       image2Ref,
		Result:          result,
		ConfidenceScore: confidence,
		CreatedAt:       now,
	}

	if err := l.store.SaveVerification(ctx, rec); err != nil {
		log.Error("failed to save verification", sl.Err(err))
		return models.VerificationRecord{}, fmt.Errorf("%s: %w", op, err)
	}

	return rec, nil
}

// History returns the newest records first. A non-positive limit selects the
// default and limits above MaxHistoryLimit are capped.
func (l *Ledger) History(ctx context.Context, userID string, limit int) ([]models.VerificationRecord, error) {
	const op = "ledger.History"

	recs, err := l.store.Verifications(ctx, userID, l.clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if recs == nil {
		recs = []models.VerificationRecord{}
	}

	return recs, nil
}

// Purge deletes every record of userID and reports how many were removed.
func (l *Ledger) Purge(ctx context.Context, userID string) (int64, error) {
	const op = "ledger.Purge"

	log := l.log.With(
		slog.String("op", op),
		slog.String("uid", userID),
	)

	n, err := l.store.DeleteVerifications(ctx, userID)
	if err != nil {
		log.Error("failed to purge history", sl.Err(err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("history purged", slog.Int64("deleted", n))

	return n, nil
}

func (l *Ledger) clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return l.defaultLimit
	case limit > MaxHistoryLimit:
		return MaxHistoryLimit
	default:
		return limit
	}
}

func (l *Ledger) newID(t time.Time) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(t), l.entropy)
	if err != nil {
		return "", err
	}

	return id.String(), nil
}
