// Package password hashes and checks user passwords with bcrypt.
//
// bcrypt only looks at the first 72 bytes of its input and newer versions of
// x/crypto reject longer inputs outright, so both Hash and Verify cut the
// password down to MaxBytes before touching bcrypt.
package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const MaxBytes = 72

type Hasher struct {
	cost int
}

func New(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	return &Hasher{cost: cost}
}

func (h *Hasher) Hash(password string) ([]byte, error) {
	const op = "password.Hash"

	digest, err := bcrypt.GenerateFromPassword(truncate(password), h.cost)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return digest, nil
}

// Verify reports whether password matches digest. Malformed digests are
// treated as a mismatch.
func (h *Hasher) Verify(password string, digest []byte) bool {
	return bcrypt.CompareHashAndPassword(digest, truncate(password)) == nil
}

func truncate(password string) []byte {
	b := []byte(password)
	if len(b) > MaxBytes {
		b = b[:MaxBytes]
	}

	return b
}
