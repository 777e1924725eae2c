// Package memory is a process-local storage backend for development and tests.
// Uniqueness of username and email is enforced under the same lock as the
// insert, so it gives the same guarantee as a unique index.
package memory

import (
	"context"
	"sort"
	"sync"

	"face_verification/internal/models"
	"face_verification/internal/storage"
)

type Storage struct {
	mu            sync.RWMutex
	users         map[string]models.User
	byUsername    map[string]string
	byEmail       map[string]string
	verifications map[string][]models.VerificationRecord
}

func New() *Storage {
	return &Storage{
		users:         make(map[string]models.User),
		byUsername:    make(map[string]string),
		byEmail:       make(map[string]string),
		verifications: make(map[string][]models.VerificationRecord),
	}
}

func (s *Storage) SaveUser(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byUsername[user.Username]; ok {
		return storage.ErrUserExists
	}
	if _, ok := s.byEmail[user.Email]; ok {
		return storage.ErrUserExists
	}

	s.users[user.ID] = user
	s.byUsername[user.Username] = user.ID
	s.byEmail[user.Email] = user.ID

	return nil
}

func (s *Storage) UserByUsername(_ context.Context, username string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[username]
	if !ok {
		return models.User{}, storage.ErrUserNotFound
	}

	return s.users[id], nil
}

func (s *Storage) SaveVerification(_ context.Context, rec models.VerificationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.verifications[rec.UserID] = append(s.verifications[rec.UserID], rec)

	return nil
}

func (s *Storage) Verifications(_ context.Context, userID string, limit int) ([]models.VerificationRecord, error) {
	s.mu.RLock()
	recs := make([]models.VerificationRecord, len(s.verifications[userID]))
	copy(recs, s.verifications[userID])
	s.mu.RUnlock()

	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].CreatedAt.After(recs[j].CreatedAt)
		}
		return recs[i].ID > recs[j].ID
	})

	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}

	return recs, nil
}

func (s *Storage) DeleteVerifications(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.verifications[userID])
	delete(s.verifications, userID)

	return int64(n), nil
}

func (s *Storage) Ping(context.Context) error {
	return nil
}

func (s *Storage) Close() {}
