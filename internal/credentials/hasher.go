// Package credentials hashes and verifies account passwords with bcrypt.
package credentials

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is the longest plaintext bcrypt accepts.
const MaxPasswordBytes = 72

var (
	// ErrEmptyPassword is returned when hashing an empty plaintext.
	ErrEmptyPassword = errors.New("password must not be empty")
	// ErrPasswordTooLong is returned for plaintexts over MaxPasswordBytes.
	ErrPasswordTooLong = errors.New("password must not exceed 72 bytes")
)

// Hasher turns plaintext passwords into salted hashes and checks them.
type Hasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
	// DummyVerify spends the same work as Verify against a throwaway hash.
	DummyVerify(plain string)
}

// BcryptHasher implements Hasher with golang.org/x/crypto/bcrypt.
type BcryptHasher struct {
	cost  int
	dummy []byte
}

// NewBcryptHasher returns a hasher using cost, or bcrypt.DefaultCost when cost is out of range.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	// the dummy hash shares the cost so DummyVerify takes as long as a real check
	dummy, err := bcrypt.GenerateFromPassword([]byte("warbler-dummy-password"), cost)
	if err != nil {
		panic(fmt.Sprintf("credentials: build dummy hash: %v", err))
	}
	return &BcryptHasher{cost: cost, dummy: dummy}
}

// Cost reports the bcrypt work factor in use.
func (h *BcryptHasher) Cost() int {
	return h.cost
}

// Hash returns a salted bcrypt hash of plain. Two calls never return the same string.
func (h *BcryptHasher) Hash(plain string) (string, error) {
	if plain == "" {
		return "", ErrEmptyPassword
	}
	if len(plain) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether plain produced hash. Malformed hashes yield false.
func (h *BcryptHasher) Verify(plain, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

func (h *BcryptHasher) DummyVerify(plain string) {
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(plain))
}
