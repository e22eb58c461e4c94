package tracker

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// DefaultHashCost is the bcrypt cost for confirmation code hashes.
const DefaultHashCost = bcrypt.DefaultCost

var (
	dummyHashOnce sync.Once
	dummyHash     []byte
)

// NewConfirmationCode returns a fresh random UUIDv4 string.
func NewConfirmationCode() (string, error) {
	code, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return code.String(), nil
}

// HashSecret will generate a salted hash of secret
func HashSecret(secret string, cost int) (string, error) {
	if secret == "" {
		return "", errors.New("secret must not be empty")
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultHashCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	return string(h), err
}

// CompareSecretAndHash verifies secret against hash in constant time. An
// empty hash still runs a full comparison so a never issued code takes as
// long to reject as a wrong one.
func CompareSecretAndHash(secret, hash string) error {
	if hash == "" {
		_ = bcrypt.CompareHashAndPassword(emptyHash(), []byte(secret))
		return ErrInvalidConfirmationCode.Clone()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidConfirmationCode.Clone()
		}
		return NewInternalError(err, "unable to verify confirmation code")
	}
	return nil
}

func emptyHash() []byte {
	dummyHashOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte(uuid.NewString()), DefaultHashCost)
	})
	return dummyHash
}
