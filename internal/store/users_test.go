// ABOUTME: Tests for registration, login, and user lookups
// ABOUTME: Covers uniqueness, credential checks, validation, and bcrypt storage

package store

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Register(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	u, err := store.Register(ctx, "alice", "alice@example.com", "secret")
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.Equal(t, "alice", u.Name)
	assert.Equal(t, "alice@example.com", u.Email)

	var stored string
	require.NoError(t, store.db.QueryRow(`SELECT password FROM users WHERE id = ?`, u.ID).Scan(&stored))
	assert.NotEqual(t, "secret", stored, "password must not be stored in clear text")
}

func TestStore_Register_Uniqueness(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.Register(ctx, "alice", "alice@example.com", "pw")
	require.NoError(t, err)

	t.Run("same email", func(t *testing.T) {
		_, err := store.Register(ctx, "alice2", "alice@example.com", "pw")
		assert.ErrorIs(t, err, ErrAlreadyExists)
	})

	t.Run("same username", func(t *testing.T) {
		_, err := store.Register(ctx, "alice", "other@example.com", "pw")
		assert.ErrorIs(t, err, ErrAlreadyExists)
	})

	t.Run("both distinct", func(t *testing.T) {
		_, err := store.Register(ctx, "bob", "bob@example.com", "pw")
		assert.NoError(t, err)
	})

	users, err := store.ListUsers(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestStore_Register_InvalidInput(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name, username, email, password string
	}{
		{"empty username", "  ", "a@example.com", "pw"},
		{"malformed email", "alice", "not-an-email", "pw"},
		{"empty email", "alice", "", "pw"},
		{"empty password", "alice", "a@example.com", ""},
		{"password too long", "alice", "a@example.com", strings.Repeat("x", 73)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Register(ctx, tt.username, tt.email, tt.password)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestStore_Login(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	alice, err := store.Register(ctx, "alice", "alice@example.com", "secret")
	require.NoError(t, err)
	_, err = store.Register(ctx, "bob", "bob@example.com", "other")
	require.NoError(t, err)

	got, err := store.Login(ctx, "alice@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	_, err = store.Login(ctx, "alice@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = store.Login(ctx, "nobody@example.com", "secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Bob's password does not open Alice's account
	_, err = store.Login(ctx, "alice@example.com", "other")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestStore_Login_SameErrorForBothMismatches(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	mustRegister(t, store, "alice", "alice@example.com")

	_, wrongPassword := store.Login(ctx, "alice@example.com", "nope")
	_, wrongEmail := store.Login(ctx, "nobody@example.com", "pw-alice")
	require.Error(t, wrongPassword)
	require.Error(t, wrongEmail)
	assert.Equal(t, wrongPassword.Error(), wrongEmail.Error())
}

func TestStore_UserLookups(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	alice := mustRegister(t, store, "alice", "alice@example.com")
	bob := mustRegister(t, store, "bob", "bob@example.com")

	got, err := store.UserByEmail(ctx, " bob@example.com ")
	require.NoError(t, err)
	assert.Equal(t, bob.ID, got.ID)

	got, err = store.UserByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.Email)

	_, err = store.UserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.UserByID(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ListUsers(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	carol := mustRegister(t, store, "carol", "carol@example.com")
	mustRegister(t, store, "alice", "alice@example.com")
	mustRegister(t, store, "bob", "bob@example.com")

	all, err := store.ListUsers(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "alice", all[0].Name)
	assert.Equal(t, "bob", all[1].Name)
	assert.Equal(t, "carol", all[2].Name)

	others, err := store.ListUsers(ctx, carol.ID)
	require.NoError(t, err)
	require.Len(t, others, 2)
	for _, u := range others {
		assert.NotEqual(t, carol.ID, u.ID)
	}
}
