// ABOUTME: Salted password hashing and verification for chat accounts
// ABOUTME: Uses bcrypt and accepts legacy clear-text rows so they can be upgraded

package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the work factor used when none is configured.
const DefaultBcryptCost = bcrypt.DefaultCost

// dummyHash is compared against when the account doesn't exist, so a failed
// login costs the same whether the email or the password was wrong.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// ErrPasswordTooLong is returned for passwords bcrypt cannot hash (over 72 bytes).
var ErrPasswordTooLong = errors.New("password exceeds 72 bytes")

// HashPassword returns a bcrypt hash of password at the given cost.
// Costs outside bcrypt's accepted range fall back to DefaultBcryptCost.
func HashPassword(password string, cost int) (string, error) {
	if len(password) > 72 {
		return "", ErrPasswordTooLong
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// IsHash reports whether stored looks like a bcrypt hash rather than a
// clear-text password written by an older client.
func IsHash(stored string) bool {
	_, err := bcrypt.Cost([]byte(stored))
	return err == nil
}

// VerifyPassword checks password against the stored credential.
//
// match is true when the password is correct. legacy is true when the stored
// value was clear text; callers should replace it with a hash after a match.
func VerifyPassword(stored, password string) (match bool, legacy bool) {
	if IsHash(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil, false
	}
	if stored == "" {
		BurnCompare(password)
		return false, false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(password)) == 1, true
}

// BurnCompare runs a bcrypt comparison against a fixed hash and discards the
// result. Used on the unknown-account path of a login.
func BurnCompare(password string) {
	_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
}
