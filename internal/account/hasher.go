package account

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Hasher derives and checks salted one-way PIN digests.
type Hasher interface {
	Hash(pin string) ([]byte, error)
	Compare(hash []byte, pin string) error
}

// BcryptHasher hashes PINs with bcrypt at a fixed cost.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher builds a hasher. Costs outside bcrypt's bounds fall back to
// bcrypt.DefaultCost.
func NewBcryptHasher(cost int) BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return BcryptHasher{cost: cost}
}

// Hash returns a bcrypt digest with a freshly generated salt.
func (h BcryptHasher) Hash(pin string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), h.cost)
	if err != nil {
		return nil, fmt.Errorf("hash pin: %w", err)
	}
	return hash, nil
}

// Compare reports ErrIncorrectPin when pin does not match hash.
func (h BcryptHasher) Compare(hash []byte, pin string) error {
	err := bcrypt.CompareHashAndPassword(hash, []byte(pin))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return ErrIncorrectPin
	default:
		return fmt.Errorf("compare pin: %w", err)
	}
}
