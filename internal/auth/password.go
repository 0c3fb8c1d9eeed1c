package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordTooLong is returned for passwords bcrypt would otherwise truncate.
var ErrPasswordTooLong = errors.New("password must be at most 72 bytes")

const maxPasswordBytes = 72

// PasswordHasher hashes and verifies passwords with bcrypt.
// The zero value uses bcrypt.DefaultCost.
type PasswordHasher struct {
	Cost int
}

// Hash returns a salted bcrypt hash of plain. Hashing the same input twice
// yields different strings; both verify.
func (h PasswordHasher) Hash(plain string) (string, error) {
	if len(plain) > maxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify reports whether plain matches a hash produced by Hash.
func (h PasswordHasher) Verify(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
