// ABOUTME: Tests for password hashing, legacy clear-text verification, and session tokens
// ABOUTME: Uses bcrypt.MinCost to keep hashing fast

package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter2", bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, IsHash(hash))
	assert.NotEqual(t, "hunter2", hash)

	match, legacy := VerifyPassword(hash, "hunter2")
	assert.True(t, match)
	assert.False(t, legacy)

	match, _ = VerifyPassword(hash, "hunter3")
	assert.False(t, match)
}

func TestHashPassword_Salted(t *testing.T) {
	a, err := HashPassword("same", bcrypt.MinCost)
	require.NoError(t, err)
	b, err := HashPassword("same", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "two hashes of the same password should differ")
}

func TestHashPassword_InvalidCostFallsBack(t *testing.T) {
	hash, err := HashPassword("pw", 99)
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, DefaultBcryptCost, cost)
}

func TestHashPassword_TooLong(t *testing.T) {
	_, err := HashPassword(strings.Repeat("x", 73), bcrypt.MinCost)
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestVerifyPassword_Legacy(t *testing.T) {
	match, legacy := VerifyPassword("123", "123")
	assert.True(t, match)
	assert.True(t, legacy)

	match, legacy = VerifyPassword("123", "1234")
	assert.False(t, match)
	assert.True(t, legacy)
}

func TestVerifyPassword_EmptyStored(t *testing.T) {
	match, legacy := VerifyPassword("", "")
	assert.False(t, match)
	assert.False(t, legacy)
}

func TestSessionToken(t *testing.T) {
	a := NewSessionToken()
	b := NewSessionToken()
	assert.NotEqual(t, a, b)
	assert.True(t, ValidSessionToken(a))
	assert.True(t, ValidSessionToken(" "+a+"\n"))
	assert.False(t, ValidSessionToken(""))
	assert.False(t, ValidSessionToken("not-a-token"))
}
