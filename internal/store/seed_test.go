// ABOUTME: Tests for demo data seeding
// ABOUTME: Verifies the seeded users, groups, and histories and that seeding runs once

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Seed(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	seeded, err := store.Seed(ctx)
	require.NoError(t, err)
	assert.True(t, seeded)

	users, err := store.ListUsers(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, users, len(seedUsers))

	alice, err := store.Login(ctx, "alice@example.com", SeedPassword)
	require.NoError(t, err)
	assert.Equal(t, "Alice", alice.Name)

	general, err := store.GroupByName(ctx, "General")
	require.NoError(t, err)
	members, err := store.ListGroupMembers(ctx, general.ID)
	require.NoError(t, err)
	assert.Len(t, members, 5)

	coffee, err := store.GroupByName(ctx, "Coffee Break")
	require.NoError(t, err)
	admin, err := store.GroupAdmin(ctx, coffee.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob@gmail.com", admin.Email)

	history, err := store.GroupHistory(ctx, general.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Hello everyone!",
		"Hi Alice, how are you?",
		"Welcome to the general chat!",
	}, contents(history))

	bob, err := store.UserByEmail(ctx, "bob@gmail.com")
	require.NoError(t, err)
	dms, err := store.DirectHistory(ctx, alice.ID, bob.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Hey Bob, do you have the meeting notes?",
		"Yes, I'll send them over shortly!",
	}, contents(dms))

	created, err := store.ListCreatedGroups(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, "General", created[0].Name)
	assert.Equal(t, "Tech Talk", created[1].Name)
	assert.Equal(t, 3, created[1].MemberCount)
}

func TestStore_Seed_SkipsPopulatedDatabase(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	mustRegister(t, store, "zed", "zed@example.com")

	seeded, err := store.Seed(ctx)
	require.NoError(t, err)
	assert.False(t, seeded)

	users, err := store.ListUsers(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestStore_Seed_Twice(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.Seed(ctx)
	require.NoError(t, err)
	seeded, err := store.Seed(ctx)
	require.NoError(t, err)
	assert.False(t, seeded)
	assert.Equal(t, len(seedMessages), countRows(t, store, `SELECT COUNT(*) FROM messages`))
}
